package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/sells-group/thesis-scout/internal/gateway"
	"github.com/sells-group/thesis-scout/pkg/google"
)

// PlaceInfo is the places_lookup result.
type PlaceInfo struct {
	Found   bool   `json:"found"`
	Name    string `json:"name,omitempty"`
	Website string `json:"website,omitempty"`
	Address string `json:"address,omitempty"`
	Country string `json:"country,omitempty"`
}

// PlacesLookup resolves a company name to its listed website and country
// through Google Places.
type PlacesLookup struct {
	client google.Client
}

// NewPlacesLookup creates the places_lookup tool.
func NewPlacesLookup(c google.Client) *PlacesLookup {
	return &PlacesLookup{client: c}
}

// Spec implements gateway.Tool.
func (t *PlacesLookup) Spec() gateway.ToolSpec {
	return gateway.ToolSpec{
		Name:        PlacesLookupName,
		Description: "Look up a company by name and return its listed website, address and country.",
		Params: []gateway.Param{
			{Name: "query", Type: "string", Description: "Company name, optionally with a city or country", Required: true},
		},
	}
}

// Invoke implements gateway.Tool.
func (t *PlacesLookup) Invoke(ctx context.Context, args []any, kwargs map[string]any) (json.RawMessage, error) {
	query := strings.TrimSpace(gateway.Arg(args, kwargs, "query", 0))
	if query == "" {
		return nil, missingArg(PlacesLookupName, "query")
	}

	resp, err := t.client.TextSearch(ctx, query)
	if err != nil {
		return nil, classify(PlacesLookupName, err)
	}

	info := PlaceInfo{}
	for _, p := range resp.Places {
		if p.WebsiteURI == "" && p.FormattedAddress == "" {
			continue
		}
		info = PlaceInfo{
			Found:   true,
			Name:    p.DisplayName.Text,
			Website: p.WebsiteURI,
			Address: p.FormattedAddress,
			Country: p.Country(),
		}
		break
	}
	return json.Marshal(info)
}

// Stub implements gateway.Stubber.
func (t *PlacesLookup) Stub(_ []any, _ map[string]any) json.RawMessage {
	return json.RawMessage(`{"found":false}`)
}
