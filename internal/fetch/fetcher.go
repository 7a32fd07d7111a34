// Package fetch defines the entity fetcher contract and its MediaWiki API
// implementation. The ingestion driver owns pacing; implementations issue
// exactly one request per call and never retry internally.
package fetch

import (
	"context"
	"errors"

	"github.com/mesh-intelligence/snpmirror/pkg/types"
)

// Page is one finite ordered batch of a class listing plus the opaque
// continuation token for the next batch. An empty Next means the listing is
// exhausted.
type Page struct {
	Members []string
	Next    string
}

// Fetcher lists entity identifiers page by page and fetches raw content for
// one identifier at a time.
type Fetcher interface {
	// ListPage requests the listing page for class at the given continuation
	// token. An empty token means the initial page.
	ListPage(ctx context.Context, class types.Class, token string) (Page, error)

	// FetchContent retrieves the raw content for one identifier.
	// Returns ErrPageMissing if the remote page does not exist.
	FetchContent(ctx context.Context, id string) (string, error)
}

// ErrPageMissing marks an identifier whose remote page does not exist. The
// caller logs it distinctly and never retries it automatically.
var ErrPageMissing = errors.New("remote page does not exist")

// RemoteError is a transient server-side failure (HTTP 5xx, malformed
// response body). Entries carrying it are eligible for later recovery.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// IsTransient reports whether err should be recorded in the error ledger for
// a later recovery pass, as opposed to a malformed-identifier failure that
// needs investigation.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, ErrPageMissing) {
		return false
	}
	return true
}
