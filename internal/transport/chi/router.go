package chi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/metrics"
)

// RouterConfig tunes the middleware stack.
type RouterConfig struct {
	APIKeys      []string
	Workers      int
	QueueTimeout time.Duration
	MaxBodyBytes int64
	Logger       *zap.Logger
}

// NewRouter mounts the server's handlers behind the middleware stack.
// Order: recover, request id, wide event log, auth, metrics, worker pool, body limit.
func NewRouter(s *Server, cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(jsonRecoverer(log))
	r.Use(chimw.RequestID)
	r.Use(wideEventMiddleware(log))
	r.Use(BearerAuthMiddleware(cfg.APIKeys))
	r.Use(metrics.Middleware())
	r.Use(WorkerPoolMiddleware(cfg.Workers, cfg.QueueTimeout))
	r.Use(maxBodyMiddleware(cfg.MaxBodyBytes))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeBadRequest, "method not allowed")
	})

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/v1/buckets/{bucket}", func(r chi.Router) {
		r.Post("/", s.InitBucket)
		r.Delete("/", s.DestroyBucket)
		r.Post("/find", s.Find)
		r.Put("/tickets/{ticket}", s.PutTicket)
		r.Delete("/tickets/{ticket}", s.RemoveTicket)
	})

	return r
}
