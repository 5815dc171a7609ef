package semantic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kailas-cloud/findex/internal/domain"
	"github.com/kailas-cloud/findex/internal/domain/search"
	"github.com/kailas-cloud/findex/internal/domain/search/source"
)

func testServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, NewClient(Config{BaseURL: srv.URL, APIKey: "test-key"})
}

func TestSearchDecodesResults(t *testing.T) {
	_, c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/semantic/search" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}
		var body searchRequestBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body.Query != "coffee" {
			t.Errorf("query = %q", body.Query)
		}
		if body.Aggregation != string(search.AggRelevance) {
			t.Errorf("aggregation = %q, want %q", body.Aggregation, search.AggRelevance)
		}
		_ = json.NewEncoder(w).Encode(searchResponseBody{Results: []search.Result{
			{ID: "r1", Source: source.Receipts, Title: "coffee", Similarity: 0.8},
		}})
	})

	results, err := c.Search(context.Background(), search.Request{
		Query:       "coffee",
		Sources:     source.All(),
		Limit:       10,
		PrincipalID: "user-1",
		Aggregation: search.AggRelevance,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "r1" {
		t.Fatalf("results = %+v", results)
	}
}

func TestSearchStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, domain.ErrAuthentication},
		{http.StatusForbidden, domain.ErrAuthentication},
		{http.StatusBadRequest, domain.ErrMalformedRequest},
		{http.StatusNotFound, domain.ErrNotFound},
		{http.StatusInternalServerError, domain.ErrNetwork},
		{http.StatusTooManyRequests, domain.ErrNetwork},
	}
	for _, tc := range cases {
		status := tc.status
		_, c := testServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		})
		_, err := c.Search(context.Background(), search.Request{Query: "q"})
		if !errors.Is(err, tc.want) {
			t.Errorf("status %d: err = %v, want %v", tc.status, err, tc.want)
		}
	}
}

func TestSearchUnreachableIsNetworkError(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1"})
	_, err := c.Search(context.Background(), search.Request{Query: "q"})
	if !errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("err = %v, want network error", err)
	}
}

func TestPing(t *testing.T) {
	_, c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	})
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
