package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/JakeFAU/lockss-laaws/internal/metrics"
	"github.com/JakeFAU/lockss-laaws/internal/paging"
	"github.com/JakeFAU/lockss-laaws/internal/store"
)

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// statusFor maps an error onto its HTTP status.
func statusFor(err error) int {
	switch {
	case paging.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, paging.ErrPaginationConflict):
		return http.StatusConflict
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrForbidden), errors.Is(err, store.ErrNotEligible):
		return http.StatusForbidden
	case errors.Is(err, store.ErrQueueFull):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail reports err to the client. collection names the listing for
// conflict metrics.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, collection string, err error) {
	status := statusFor(err)
	fields := []zap.Field{
		zap.String("request_id", RequestID(r.Context())),
		zap.String("path", r.URL.Path),
	}
	body := errorBody{Error: err.Error()}

	switch status {
	case http.StatusBadRequest:
		var verr *paging.ValidationError
		if errors.As(err, &verr) {
			body.Field = verr.Field
			fields = append(fields, zap.String("field", verr.Field), zap.String("value", verr.Value))
		}
		s.logger.Warn("invalid request", append(fields, zap.Error(err))...)
	case http.StatusConflict:
		metrics.ObserveConflict(collection)
		s.logger.Warn("pagination conflict", append(fields, zap.String("collection", collection), zap.Error(err))...)
	case http.StatusNotFound:
		s.logger.Debug("not found", append(fields, zap.Error(err))...)
	case http.StatusForbidden:
		s.logger.Warn("request refused", append(fields, zap.Error(err))...)
	case http.StatusServiceUnavailable:
		s.logger.Warn("busy", append(fields, zap.Error(err))...)
		w.Header().Set("Retry-After", "1")
	default:
		s.logger.Error("request failed", append(fields, zap.Error(err))...)
		body.Error = "internal server error"
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}
