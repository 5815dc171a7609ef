package health

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

type mockEmbeddingChecker struct {
	err error
}

func (m *mockEmbeddingChecker) HealthCheck(_ context.Context) error { return m.err }

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New([]Dependency{
		{Name: "postgres", Pinger: &mockPinger{}},
		{Name: "redis", Pinger: &mockPinger{}},
	}, &mockEmbeddingChecker{})
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	for _, name := range []string{"postgres", "redis", "embedding"} {
		if r.Checks[name] != CheckOK {
			t.Errorf("expected %s %q, got %q", name, CheckOK, r.Checks[name])
		}
	}
}

func TestCheck_OneDependencyDown(t *testing.T) {
	svc := New([]Dependency{
		{Name: "postgres", Pinger: &mockPinger{err: errors.New("conn refused")}},
		{Name: "redis", Pinger: &mockPinger{}},
	}, nil)
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["postgres"] != CheckError {
		t.Errorf("expected postgres %q, got %q", CheckError, r.Checks["postgres"])
	}
	if r.Checks["redis"] != CheckOK {
		t.Errorf("expected redis %q, got %q", CheckOK, r.Checks["redis"])
	}
}

func TestCheck_EmbeddingError(t *testing.T) {
	svc := New([]Dependency{
		{Name: "postgres", Pinger: &mockPinger{}},
	}, &mockEmbeddingChecker{err: errors.New("timeout")})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["embedding"] != CheckError {
		t.Errorf("expected embedding %q, got %q", CheckError, r.Checks["embedding"])
	}
}

func TestCheck_NilPingerSkipped(t *testing.T) {
	svc := New([]Dependency{
		{Name: "postgres", Pinger: &mockPinger{}},
		{Name: "redis", Pinger: nil},
	}, nil)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if _, ok := r.Checks["redis"]; ok {
		t.Error("nil pinger should be absent from the report")
	}
}

func TestCheck_NoEmbedding(t *testing.T) {
	svc := New([]Dependency{{Name: "postgres", Pinger: &mockPinger{}}}, nil)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if _, ok := r.Checks["embedding"]; ok {
		t.Error("embedding check should be absent when embedding is nil")
	}
}
