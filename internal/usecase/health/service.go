package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure. The search path still answers
	// through fallbacks, so degraded is not unhealthy.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Dependency is one named pinger.
type Dependency struct {
	Name   string
	Pinger Pinger
}

// Service coordinates health checks across the orchestrator's dependencies.
type Service struct {
	deps      []Dependency
	embedding EmbeddingChecker
}

// New creates a Service. Nil pingers are skipped; embedding can be nil.
func New(deps []Dependency, embedding EmbeddingChecker) *Service {
	return &Service{deps: deps, embedding: embedding}
}

// Check runs health checks against all registered dependencies.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	for _, d := range s.deps {
		if d.Pinger == nil {
			continue
		}
		if err := d.Pinger.Ping(ctx); err != nil {
			checks[d.Name] = CheckError
		} else {
			checks[d.Name] = CheckOK
		}
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding"] = CheckError
		} else {
			checks["embedding"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}
