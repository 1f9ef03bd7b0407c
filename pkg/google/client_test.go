package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextSearch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/places:searchText", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))
		assert.Contains(t, r.Header.Get("X-Goog-FieldMask"), "places.websiteUri")

		var body textSearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Biome Makers", body.TextQuery)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(TextSearchResponse{
			Places: []Place{{
				DisplayName:      DisplayName{Text: "Biome Makers"},
				WebsiteURI:       "https://biomemakers.com/",
				FormattedAddress: "1 Main St, West Sacramento, CA 95691, USA",
				AddressComponents: []AddressComponent{
					{LongText: "California", ShortText: "CA", Types: []string{"administrative_area_level_1", "political"}},
					{LongText: "United States", ShortText: "US", Types: []string{"country", "political"}},
				},
			}},
		})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.TextSearch(context.Background(), "Biome Makers")

	require.NoError(t, err)
	require.Len(t, resp.Places, 1)
	assert.Equal(t, "Biome Makers", resp.Places[0].DisplayName.Text)
	assert.Equal(t, "https://biomemakers.com/", resp.Places[0].WebsiteURI)
	assert.Equal(t, "United States", resp.Places[0].Country())
}

func TestPlaceCountry_FallsBackToAddress(t *testing.T) {
	assert.Equal(t, "Spain", Place{FormattedAddress: "Calle Mayor 1, Valladolid, Spain"}.Country())
	assert.Equal(t, "", Place{}.Country())
}

func TestTextSearch_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.TextSearch(context.Background(), "Nonexistent Corp")

	require.NoError(t, err)
	assert.Empty(t, resp.Places)
}

func TestTextSearch_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": "invalid API key"}`))
	}))
	defer srv.Close()

	client := NewClient("bad-key", WithBaseURL(srv.URL))
	resp, err := client.TextSearch(context.Background(), "test query")

	assert.Nil(t, resp)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusForbidden, se.StatusCode)
	assert.Contains(t, err.Error(), "403")
}

func TestTextSearch_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	client := NewClient("k", WithBaseURL(srv.URL))
	_, err := client.TextSearch(ctx, "slow")
	assert.Error(t, err)
}
