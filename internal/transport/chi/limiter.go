package chi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/logger"
	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/metrics"
)

// WorkerPoolMiddleware bounds concurrently served requests to workers.
// A request waits up to queueTimeout for a slot, then gets 503.
// workers <= 0 disables the limit.
func WorkerPoolMiddleware(workers int, queueTimeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if workers <= 0 {
			return next
		}
		sem := semaphore.NewWeighted(int64(workers))

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			if queueTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, queueTimeout)
				defer cancel()
			}

			if err := sem.Acquire(ctx, 1); err != nil {
				// клиент ушёл сам, отвечать некому
				if errors.Is(r.Context().Err(), context.Canceled) {
					return
				}
				metrics.OverloadRejectedTotal.Inc()
				logger.FromContext(r.Context()).Warn("No free worker slot", zap.Duration("queue_timeout", queueTimeout))
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusServiceUnavailable, codeOverloaded, "server is overloaded, retry later")
				return
			}
			defer sem.Release(1)

			next.ServeHTTP(w, r)
		})
	}
}
