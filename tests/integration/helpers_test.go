// Package integration exercises the full mirroring pipeline in-process
// against a fake MediaWiki server: ingestion with checkpointed resume,
// ledger recovery, and backup retention over one data directory.
package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/snpmirror/internal/sqlite"
	"github.com/mesh-intelligence/snpmirror/pkg/types"
)

// fakeWiki serves a minimal MediaWiki API: paginated categorymembers
// listings plus revision content per title. Failures are scripted per
// title: failOnce answers 503 on the first content request, missing titles
// answer with page id -1.
type fakeWiki struct {
	mu       sync.Mutex
	titles   map[types.Class][]string
	pageSize int
	failOnce map[string]bool
	missing  map[string]bool

	contentRequests map[string]int
}

func newFakeWiki(pageSize int) *fakeWiki {
	return &fakeWiki{
		titles:          make(map[types.Class][]string),
		pageSize:        pageSize,
		failOnce:        make(map[string]bool),
		missing:         make(map[string]bool),
		contentRequests: make(map[string]int),
	}
}

// addTitles registers n sequential titles for class with the given prefix.
func (w *fakeWiki) addTitles(class types.Class, prefix string, n int) []string {
	titles := make([]string, n)
	for i := range titles {
		titles[i] = fmt.Sprintf("%s%d", prefix, i+1)
	}
	w.titles[class] = append(w.titles[class], titles...)
	return titles
}

// addGenotypes registers n genotype titles of the form Rs<base+i>(A;A).
func (w *fakeWiki) addGenotypes(base, n int) []string {
	titles := make([]string, n)
	for i := range titles {
		titles[i] = fmt.Sprintf("Rs%d(A;A)", base+i)
	}
	w.titles[types.ClassGenotype] = append(w.titles[types.ClassGenotype], titles...)
	return titles
}

var classForCategory = map[string]types.Class{
	"Category:Is_a_snp":      types.ClassSNP,
	"Category:Is_a_genotype": types.ClassGenotype,
	"Category:Is_a_genoset":  types.ClassGenoset,
}

func (w *fakeWiki) handler() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("list") == "categorymembers" {
			w.serveListing(rw, q.Get("cmtitle"), q.Get("cmcontinue"))
			return
		}
		w.serveContent(rw, q.Get("titles"))
	})
}

func (w *fakeWiki) serveListing(rw http.ResponseWriter, category, token string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	titles := w.titles[classForCategory[category]]
	start := 0
	if token != "" {
		start, _ = strconv.Atoi(token)
	}
	end := start + w.pageSize
	if end > len(titles) {
		end = len(titles)
	}

	resp := map[string]any{
		"query": map[string]any{
			"categorymembers": membersOf(titles[start:end]),
		},
	}
	if end < len(titles) {
		resp["continue"] = map[string]any{"cmcontinue": strconv.Itoa(end)}
	}
	writeJSON(rw, resp)
}

func (w *fakeWiki) serveContent(rw http.ResponseWriter, title string) {
	w.mu.Lock()
	w.contentRequests[title]++
	if w.failOnce[title] {
		w.failOnce[title] = false
		w.mu.Unlock()
		http.Error(rw, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	isMissing := w.missing[title]
	w.mu.Unlock()

	pageID := "100"
	page := map[string]any{
		"revisions": []map[string]any{{"*": "content of " + title}},
	}
	if isMissing {
		pageID = "-1"
		page = map[string]any{}
	}
	writeJSON(rw, map[string]any{
		"query": map[string]any{
			"pages": map[string]any{pageID: page},
		},
	})
}

// requests returns how many content fetches were made for title.
func (w *fakeWiki) requests(title string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.contentRequests[title]
}

func membersOf(titles []string) []map[string]string {
	members := make([]map[string]string, len(titles))
	for i, t := range titles {
		members[i] = map[string]string{"title": t}
	}
	return members
}

func writeJSON(rw http.ResponseWriter, v any) {
	rw.Header().Set("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(v)
}

// startWiki serves the fake wiki for the duration of the test.
func startWiki(t *testing.T, w *fakeWiki) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(w.handler())
	t.Cleanup(srv.Close)
	return srv
}

// openStore opens the store over dataDir and closes it at test end.
func openStore(t *testing.T, dataDir string) *sqlite.Store {
	t.Helper()
	store := sqlite.NewStore()
	require.NoError(t, store.Open(dataDir))
	t.Cleanup(func() { store.Close() })
	return store
}
