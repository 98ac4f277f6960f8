package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates a collaborator is failing while the store answers.
	Degraded Status = "degraded"
	// Unhealthy indicates the vector store is unreachable.
	Unhealthy Status = "error"
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

type namedChecker struct {
	name    string
	checker Checker
}

// Service coordinates health checks.
type Service struct {
	db       DBPinger
	checkers []namedChecker
}

// Option adds a component to the report.
type Option func(*Service)

// WithChecker reports c under name. A nil checker is ignored.
func WithChecker(name string, c Checker) Option {
	return func(s *Service) {
		if c != nil {
			s.checkers = append(s.checkers, namedChecker{name: name, checker: c})
		}
	}
}

// New creates a Service.
func New(db DBPinger, opts ...Option) *Service {
	s := &Service{db: db}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.checkers)+1)
	status := Healthy

	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = CheckError
		status = Unhealthy
	} else {
		checks["database"] = CheckOK
	}

	for _, c := range s.checkers {
		if err := c.checker.HealthCheck(ctx); err != nil {
			checks[c.name] = CheckError
			if status == Healthy {
				status = Degraded
			}
			continue
		}
		checks[c.name] = CheckOK
	}

	return Report{Status: status, Checks: checks}
}
