// Package tools implements the external lookups exposed to agents and the
// enricher through the gateway.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sells-group/thesis-scout/internal/gateway"
	"github.com/sells-group/thesis-scout/internal/resilience"
	"github.com/sells-group/thesis-scout/pkg/firecrawl"
	"github.com/sells-group/thesis-scout/pkg/google"
	"github.com/sells-group/thesis-scout/pkg/jina"
)

// Tool names.
const (
	WebSearchName    = "web_search"
	FetchPageName    = "fetch_page"
	PlacesLookupName = "places_lookup"
)

// classify converts a client error into a gateway ToolError.
func classify(tool string, err error) error {
	var te *gateway.ToolError
	if errors.As(err, &te) {
		return te
	}

	var jse *jina.StatusError
	if errors.As(err, &jse) {
		return gateway.FromHTTPStatus(tool, jse.StatusCode, resilience.ParseRetryAfter(jse.RetryAfter, time.Now()), err)
	}
	var fce *firecrawl.APIError
	if errors.As(err, &fce) {
		return gateway.FromHTTPStatus(tool, fce.StatusCode, 0, err)
	}
	var gse *google.StatusError
	if errors.As(err, &gse) {
		return gateway.FromHTTPStatus(tool, gse.StatusCode, resilience.ParseRetryAfter(gse.RetryAfter, time.Now()), err)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return gateway.NewToolError(gateway.KindInvalidResponse, tool, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return gateway.NewToolError(gateway.KindTimeout, tool, err)
	}
	if resilience.IsTransient(err) {
		return gateway.NewToolError(gateway.KindUnavailable, tool, resilience.NewTransientError(err, 0))
	}
	return gateway.NewToolError(gateway.KindUnavailable, tool, err)
}

func missingArg(tool, name string) error {
	return gateway.NewToolError(gateway.KindUnavailable, tool, errors.New("missing argument "+name))
}

// New returns the standard research toolset. Tools whose backing client is
// nil are omitted; Firecrawl only backs fetch_page.
func New(j jina.Client, g google.Client, fc firecrawl.Client) []gateway.Tool {
	var out []gateway.Tool
	if j != nil {
		out = append(out, &WebSearch{client: j})
	}
	if j != nil || fc != nil {
		out = append(out, NewFetchPage(j, fc))
	}
	if g != nil {
		out = append(out, &PlacesLookup{client: g})
	}
	return out
}
