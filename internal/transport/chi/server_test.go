package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/findex/internal/domain"
	"github.com/kailas-cloud/findex/internal/domain/search"
	healthuc "github.com/kailas-cloud/findex/internal/usecase/health"
)

type mockSearcher struct {
	gotReq       search.Request
	gotPrincipal domain.Principal
	resp         *search.Response
}

func (m *mockSearcher) Search(_ context.Context, req search.Request, principal domain.Principal) *search.Response {
	m.gotReq = req
	m.gotPrincipal = principal
	if m.resp != nil {
		return m.resp
	}
	return &search.Response{Success: true, Results: []search.Result{}}
}

type okPinger struct{}

func (okPinger) Ping(_ context.Context) error { return nil }

func newTestServer(searcher *mockSearcher) http.Handler {
	health := healthuc.New([]healthuc.Dependency{{Name: "postgres", Pinger: okPinger{}}}, nil)
	return NewServer(searcher, health, zap.NewNop()).Router(nil)
}

func postSearch(t *testing.T, handler http.Handler, body map[string]any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/search", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestSearchEndpoint(t *testing.T) {
	searcher := &mockSearcher{}
	handler := newTestServer(searcher)

	rec := postSearch(t, handler, map[string]any{
		"query":   "coffee receipts",
		"sources": []string{"receipts"},
		"limit":   10,
	}, map[string]string{"X-Principal-ID": "user-42"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if searcher.gotReq.Query != "coffee receipts" {
		t.Fatalf("query = %q", searcher.gotReq.Query)
	}
	if searcher.gotReq.PrincipalID != "user-42" {
		t.Fatalf("principal = %q", searcher.gotReq.PrincipalID)
	}
	if searcher.gotPrincipal.Tier != domain.TierStandard {
		t.Fatalf("tier = %q, want default standard", searcher.gotPrincipal.Tier)
	}

	var resp search.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success {
		t.Fatal("expected success")
	}
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	rec := postSearch(t, newTestServer(&mockSearcher{}), map[string]any{"query": "  "}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSearchRejectsUnknownSource(t *testing.T) {
	rec := postSearch(t, newTestServer(&mockSearcher{}), map[string]any{
		"query":   "coffee",
		"sources": []string{"emails"},
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSearchFailureMapsTo500(t *testing.T) {
	searcher := &mockSearcher{resp: &search.Response{Success: false, Error: "internal search failure"}}
	rec := postSearch(t, newTestServer(searcher), map[string]any{"query": "coffee"}, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestSearchAnonymousPrincipal(t *testing.T) {
	searcher := &mockSearcher{}
	postSearch(t, newTestServer(searcher), map[string]any{"query": "coffee"}, nil)
	if searcher.gotReq.PrincipalID != "anonymous" {
		t.Fatalf("principal = %q, want anonymous", searcher.gotReq.PrincipalID)
	}
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestServer(&mockSearcher{})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if body.Status != string(healthuc.Healthy) {
		t.Fatalf("status = %q", body.Status)
	}
}
