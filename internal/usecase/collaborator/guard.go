package collaborator

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain"
	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/metrics"
)

// Call outcomes recorded in metrics.CollaboratorCallsTotal.
const (
	statusOK       = "ok"
	statusError    = "error"
	statusTimeout  = "timeout"
	statusRejected = "rejected"
)

// BreakerConfig controls when the circuit opens.
type BreakerConfig struct {
	// FailureRatio trips the breaker once reached within the counting interval. 0 disables the breaker.
	FailureRatio float64
	// MinRequests is the number of calls observed before the ratio is evaluated.
	MinRequests uint32
	// OpenTimeout is how long the breaker stays open before letting a probe through.
	OpenTimeout time.Duration
}

// GuardConfig configures one collaborator guard.
type GuardConfig struct {
	Name    string // one of domain.Collaborator*
	Timeout time.Duration
	RPS     float64 // 0 = unlimited
	Burst   int
	Breaker BreakerConfig
	Logger  *zap.Logger
}

// Guard runs collaborator calls under a timeout, an optional rate limit and a circuit breaker,
// and turns failures into *domain.CollaboratorError.
type Guard struct {
	name    string
	timeout time.Duration
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewGuard builds a guard and publishes its breaker state as closed.
func NewGuard(cfg GuardConfig) *Guard {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Guard{name: cfg.Name, timeout: cfg.Timeout, logger: logger}

	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}

	if cfg.Breaker.FailureRatio > 0 {
		bc := cfg.Breaker
		g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    cfg.Name,
			Timeout: bc.OpenTimeout,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.Requests >= bc.MinRequests &&
					float64(c.TotalFailures)/float64(c.Requests) >= bc.FailureRatio
			},
			// Caller cancellation and domain answers say nothing about collaborator health.
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled) || isOutcome(err)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("Circuit breaker state changed",
					zap.String("collaborator", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
				metrics.CollaboratorBreakerState.WithLabelValues(name).Set(breakerValue(to))
			},
		})
	}
	metrics.CollaboratorBreakerState.WithLabelValues(cfg.Name).Set(metrics.BreakerClosed)

	return g
}

// Name returns the collaborator name.
func (g *Guard) Name() string { return g.name }

func breakerValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return metrics.BreakerOpen
	case gobreaker.StateHalfOpen:
		return metrics.BreakerHalfOpen
	default:
		return metrics.BreakerClosed
	}
}

// call runs fn through the guard of g.
func call[T any](ctx context.Context, g *Guard, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	start := time.Now()

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return zero, g.fail(op, statusRejected, start, err)
		}
	}

	cctx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	var (
		res T
		err error
	)
	if g.breaker != nil {
		var out any
		out, err = g.breaker.Execute(func() (any, error) { return fn(cctx) })
		if err == nil {
			res = out.(T)
		}
	} else {
		res, err = fn(cctx)
	}

	if err != nil && isOutcome(err) {
		// a missing bucket is an answer, not a failure
		metrics.CollaboratorCallsTotal.WithLabelValues(g.name, op, statusOK).Inc()
		metrics.CollaboratorCallDuration.WithLabelValues(g.name, op).Observe(time.Since(start).Seconds())
		return zero, err
	}
	if err != nil {
		status := statusError
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			status = statusRejected
		case errors.Is(err, context.DeadlineExceeded):
			status = statusTimeout
		}
		return zero, g.fail(op, status, start, err)
	}

	metrics.CollaboratorCallsTotal.WithLabelValues(g.name, op, statusOK).Inc()
	metrics.CollaboratorCallDuration.WithLabelValues(g.name, op).Observe(time.Since(start).Seconds())
	return res, nil
}

func isOutcome(err error) bool {
	return errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrAlreadyExists) ||
		errors.Is(err, domain.ErrInvalidArgument)
}

func (g *Guard) fail(op, status string, start time.Time, err error) error {
	duration := time.Since(start)
	metrics.CollaboratorCallsTotal.WithLabelValues(g.name, op, status).Inc()
	metrics.CollaboratorCallDuration.WithLabelValues(g.name, op).Observe(duration.Seconds())

	g.logger.Error("Collaborator call failed",
		zap.String("collaborator", g.name),
		zap.String("operation", op),
		zap.String("status", status),
		zap.Duration("duration", duration),
		zap.Error(err),
	)
	return &domain.CollaboratorError{Collaborator: g.name, Err: err}
}
