package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain/ticket"
	healthuc "github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/usecase/health"
)

// Server holds the HTTP handlers of the storage API.
type Server struct {
	buckets BucketService
	entries EntryService
	search  SearchService
	health  HealthService
}

// NewServer creates an HTTP API server.
func NewServer(buckets BucketService, entries EntryService, search SearchService, health HealthService) *Server {
	return &Server{buckets: buckets, entries: entries, search: search, health: health}
}

// InitBucket handles POST /v1/buckets/{bucket}.
func (s *Server) InitBucket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "bucket")
	if err := s.buckets.Init(r.Context(), id); err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, bucketResponse{Bucket: id})
}

// DestroyBucket handles DELETE /v1/buckets/{bucket}.
func (s *Server) DestroyBucket(w http.ResponseWriter, r *http.Request) {
	if err := s.buckets.Destroy(r.Context(), chi.URLParam(r, "bucket")); err != nil {
		handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PutTicket handles PUT /v1/buckets/{bucket}/tickets/{ticket}.
func (s *Server) PutTicket(w http.ResponseWriter, r *http.Request) {
	var req putTicketRequest
	if !decodeBody(w, r, &req) {
		return
	}

	attachments, err := imagesFromDTO(req.Attachments, "attachment")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalid, err.Error())
		return
	}

	t := ticket.Ticket{
		ID:          chi.URLParam(r, "ticket"),
		Title:       req.Title,
		Description: req.Description,
		Attachments: attachments,
	}
	n, err := s.entries.Put(r.Context(), chi.URLParam(r, "bucket"), t)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, putTicketResponse{TicketID: t.ID, Points: n})
}

// RemoveTicket handles DELETE /v1/buckets/{bucket}/tickets/{ticket}.
func (s *Server) RemoveTicket(w http.ResponseWriter, r *http.Request) {
	n, err := s.entries.Remove(r.Context(), chi.URLParam(r, "bucket"), chi.URLParam(r, "ticket"))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, removeTicketResponse{Removed: n})
}

// Find handles POST /v1/buckets/{bucket}/find.
func (s *Server) Find(w http.ResponseWriter, r *http.Request) {
	var req findRequest
	if !decodeBody(w, r, &req) {
		return
	}

	images, err := imagesFromDTO(req.Images, "image")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalid, err.Error())
		return
	}
	if req.TopK < 0 {
		writeError(w, http.StatusBadRequest, codeInvalid, "top_k must not be negative")
		return
	}

	ids, err := s.search.Find(r.Context(), chi.URLParam(r, "bucket"), req.Query, images, req.TopK)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, findResponse{TicketIDs: ids})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, healthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// decodeBody writes a 400 (or 413) and returns false when the body is not valid JSON.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, codeBadRequest, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}
