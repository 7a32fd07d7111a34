package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mesh-intelligence/snpmirror/pkg/types"
)

// categoryFor maps an entity class to its MediaWiki listing category.
var categoryFor = map[types.Class]string{
	types.ClassSNP:      "Category:Is_a_snp",
	types.ClassGenotype: "Category:Is_a_genotype",
	types.ClassGenoset:  "Category:Is_a_genoset",
}

// Client is a MediaWiki API fetcher. It issues one HTTP request per call;
// pacing and retries belong to the caller.
type Client struct {
	httpClient *http.Client
	apiURL     string
	userAgent  string
	pageSize   int
}

var _ Fetcher = (*Client)(nil)

// NewClient builds a Client for the given API endpoint.
func NewClient(apiURL, userAgent string, pageSize int) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		apiURL:     apiURL,
		userAgent:  userAgent,
		pageSize:   pageSize,
	}
}

// ListPage requests one categorymembers batch. Page titles come back with
// spaces; identifiers use underscores, matching the stored key format.
func (c *Client) ListPage(ctx context.Context, class types.Class, token string) (Page, error) {
	category, ok := categoryFor[class]
	if !ok {
		return Page{}, types.ErrClassUnknown
	}

	params := url.Values{
		"action":  {"query"},
		"list":    {"categorymembers"},
		"cmtitle": {category},
		"cmlimit": {strconv.Itoa(c.pageSize)},
		"format":  {"json"},
	}
	if token != "" {
		params.Set("cmcontinue", token)
	}

	body, err := c.get(ctx, params)
	if err != nil {
		return Page{}, err
	}

	var resp struct {
		Query struct {
			CategoryMembers []struct {
				Title string `json:"title"`
			} `json:"categorymembers"`
		} `json:"query"`
		Continue struct {
			CmContinue string `json:"cmcontinue"`
		} `json:"continue"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return Page{}, &RemoteError{Message: fmt.Sprintf("decoding listing: %v", err)}
	}

	page := Page{Next: resp.Continue.CmContinue}
	for _, m := range resp.Query.CategoryMembers {
		page.Members = append(page.Members, strings.ReplaceAll(m.Title, " ", "_"))
	}
	return page, nil
}

// FetchContent retrieves the current revision wikitext for one page title.
// A page id of "-1" in the response means the page does not exist.
func (c *Client) FetchContent(ctx context.Context, id string) (string, error) {
	params := url.Values{
		"action": {"query"},
		"prop":   {"revisions"},
		"rvprop": {"content"},
		"format": {"json"},
		"titles": {id},
	}

	body, err := c.get(ctx, params)
	if err != nil {
		return "", err
	}

	var resp struct {
		Query struct {
			Pages map[string]struct {
				Revisions []map[string]any `json:"revisions"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &RemoteError{Message: fmt.Sprintf("decoding content: %v", err)}
	}
	if len(resp.Query.Pages) == 0 {
		return "", &RemoteError{Message: "response has no pages"}
	}

	for pageID, page := range resp.Query.Pages {
		if pageID == "-1" {
			return "", ErrPageMissing
		}
		if len(page.Revisions) == 0 {
			return "", &RemoteError{Message: fmt.Sprintf("page %s has no revisions", id)}
		}
		// The revision text sits under the legacy "*" key.
		if text, ok := page.Revisions[0]["*"].(string); ok {
			return text, nil
		}
		return "", &RemoteError{Message: fmt.Sprintf("page %s revision has no content", id)}
	}
	return "", &RemoteError{Message: "response has no pages"}
}

func (c *Client) get(ctx context.Context, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RemoteError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &RemoteError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%s returned %s", c.apiURL, resp.Status),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RemoteError{Message: fmt.Sprintf("reading response: %v", err)}
	}
	return body, nil
}
