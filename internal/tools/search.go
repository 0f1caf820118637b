package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/cropsage/cropsage/internal/advisor"
)

// maxSnippetLen bounds a single search snippet.
const maxSnippetLen = 700

// searchRequest is the Tavily /search payload.
type searchRequest struct {
	Query             string `json:"query"`
	MaxResults        int    `json:"max_results"`
	SearchDepth       string `json:"search_depth"`
	Topic             string `json:"topic"`
	IncludeAnswer     bool   `json:"include_answer"`
	IncludeRawContent bool   `json:"include_raw_content"`
	IncludeImages     bool   `json:"include_images"`
	TimeRange         string `json:"time_range,omitempty"`
}

// searchResponse is the subset of the Tavily response the snapshot keeps.
type searchResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// SearchWeb runs a Tavily search and condenses the results to bounded
// snippet and URL lists. timeRange (e.g. "week", "month") is optional.
func (c *Client) SearchWeb(ctx context.Context, query, timeRange string) (*advisor.WebContext, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search: empty query", ErrTool)
	}

	req := searchRequest{
		Query:       query,
		MaxResults:  c.maxResults,
		SearchDepth: "basic",
		Topic:       "general",
		TimeRange:   timeRange,
	}
	resp, err := c.doWithRetry(ctx, "search", func(ctx context.Context) (*resty.Response, error) {
		return c.search.R().
			SetContext(ctx).
			SetBody(req).
			Post("/search")
	})
	if err != nil {
		return nil, err
	}

	var sr searchResponse
	if err := json.Unmarshal(resp.Body(), &sr); err != nil {
		return nil, fmt.Errorf("%w: search: parsing response: %w", ErrTool, err)
	}

	wc := &advisor.WebContext{
		Source:    "tavily",
		FetchedAt: advisor.UTCNow(c.now()),
		Query:     query,
	}
	for _, r := range sr.Results {
		if u := strings.TrimSpace(r.URL); u != "" && len(wc.URLs) < advisor.MaxWebURLs {
			wc.URLs = append(wc.URLs, u)
		}
		snippet := buildSnippet(r.Title, r.Content)
		if snippet != "" && len(wc.Snippets) < advisor.MaxWebSnippets {
			wc.Snippets = append(wc.Snippets, snippet)
		}
	}
	c.logger.Debug("web search done", "query", query, "snippets", len(wc.Snippets))
	return wc, nil
}

// buildSnippet joins a result's title and content into one bounded line.
func buildSnippet(title, content string) string {
	var parts []string
	if t := strings.TrimSpace(title); t != "" {
		parts = append(parts, t)
	}
	if c := strings.TrimSpace(content); c != "" {
		parts = append(parts, c)
	}
	if len(parts) == 0 {
		return ""
	}
	s := strings.Join(parts, " - ")
	if len(s) <= maxSnippetLen {
		return s
	}
	// Clamp on a rune boundary; titles and content are often non-ASCII.
	n := 0
	for i := range s {
		if n == maxSnippetLen {
			return s[:i]
		}
		n++
	}
	return s
}
