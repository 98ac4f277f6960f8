package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain"
	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/logger"
)

// Error codes of errorResponse.
const (
	codeBadRequest    = "bad_request"
	codeInvalid       = "invalid_argument"
	codeNotFound      = "not_found"
	codeAlreadyExists = "already_exists"
	codeUnauthorized  = "unauthorized"
	codeOverloaded    = "overloaded"
	codeInternal      = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// errorHandlers is checked in order; the first match wins.
var errorHandlers = []errorHandler{
	invalidArgumentHandler,
	sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
	sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, codeAlreadyExists),
	sentinelHandler(domain.ErrOverloaded, http.StatusServiceUnavailable, codeOverloaded),
}

// invalidArgumentHandler reports the validation detail: it names the client's own input.
func invalidArgumentHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrInvalidArgument) {
		return false
	}
	writeError(w, http.StatusBadRequest, codeInvalid, err.Error())
	return true
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

func handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	for _, h := range errorHandlers {
		if h(w, err) {
			log.Debug("Request rejected", zap.Error(err))
			return
		}
	}
	log.Error("Internal error",
		zap.String("collaborator", domain.CollaboratorOf(err)),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
