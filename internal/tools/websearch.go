package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/sells-group/thesis-scout/internal/gateway"
	"github.com/sells-group/thesis-scout/pkg/jina"
)

const maxSearchResults = 8

// SearchHit is one web search result returned to callers.
type SearchHit struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// WebSearch searches the web through Jina Search.
type WebSearch struct {
	client jina.Client
}

// NewWebSearch creates the web_search tool.
func NewWebSearch(c jina.Client) *WebSearch {
	return &WebSearch{client: c}
}

// Spec implements gateway.Tool.
func (t *WebSearch) Spec() gateway.ToolSpec {
	return gateway.ToolSpec{
		Name:        WebSearchName,
		Description: "Search the web. Returns titles, URLs and snippets of the top results.",
		Params: []gateway.Param{
			{Name: "query", Type: "string", Description: "Search query", Required: true},
			{Name: "site", Type: "string", Description: "Optional domain to restrict results to"},
		},
	}
}

// Invoke implements gateway.Tool.
func (t *WebSearch) Invoke(ctx context.Context, args []any, kwargs map[string]any) (json.RawMessage, error) {
	query := strings.TrimSpace(gateway.Arg(args, kwargs, "query", 0))
	if query == "" {
		return nil, missingArg(WebSearchName, "query")
	}

	var opts []jina.SearchOption
	if site := gateway.Arg(args, kwargs, "site", 1); site != "" {
		opts = append(opts, jina.WithSiteFilter(site))
	}

	resp, err := t.client.Search(ctx, query, opts...)
	if err != nil {
		return nil, classify(WebSearchName, err)
	}

	hits := make([]SearchHit, 0, len(resp.Data))
	for _, r := range resp.Data {
		if len(hits) == maxSearchResults {
			break
		}
		snippet := r.Description
		if snippet == "" {
			snippet = truncateRunes(r.Content, 300)
		}
		hits = append(hits, SearchHit{Title: r.Title, URL: r.URL, Snippet: snippet})
	}
	return json.Marshal(map[string]any{"query": query, "results": hits})
}

// Stub implements gateway.Stubber.
func (t *WebSearch) Stub(args []any, kwargs map[string]any) json.RawMessage {
	data, _ := json.Marshal(map[string]any{
		"query":   gateway.Arg(args, kwargs, "query", 0),
		"results": []SearchHit{},
	})
	return data
}
