// Package api provides the uniform success/error JSON envelope every route
// returns, plus the route-boundary helper that maps classified errors to
// responses and quarantines everything else behind an opaque 500.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/kindredai/apiguard/pkg/audit"
	"github.com/kindredai/apiguard/pkg/domain"
	"github.com/kindredai/apiguard/pkg/request"
)

type successEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type errorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// WriteSuccess writes `{"success":true,"data":...}` with HTTP 200.
func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, data, http.StatusOK)
}

// WriteSuccessStatus writes the success envelope with a caller-chosen status.
func WriteSuccessStatus(w http.ResponseWriter, data any, status int) {
	writeJSON(w, status, successEnvelope{Success: true, Data: data})
}

// WriteError writes the error envelope for err. A classified
// *domain.APIError keeps its status, code, and message; anything else
// becomes an opaque 500 with no internal detail leaked.
func WriteError(w http.ResponseWriter, err error) {
	apiErr, ok := domain.AsAPIError(err)
	if !ok {
		apiErr = domain.NewInternal()
	}
	writeJSON(w, apiErr.Status, errorEnvelope{Error: apiErr.Message, Code: apiErr.Code})
}

// WriteErrorMessage writes an error envelope from an explicit status and
// message, for handlers that classify locally.
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorEnvelope{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("api: failed to encode response envelope")
	}
}

// HandlerFunc is a route handler that returns its payload or an error
// instead of writing the response directly.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) (any, error)

// Handle adapts fn to http.HandlerFunc. Classified errors keep their
// disposition; unclassified failures are recorded as SUSPICIOUS_REQUEST
// (severity high) before the generic 500 goes out.
func Handle(auditLog *audit.Logger, fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := fn(w, r)
		if err == nil {
			WriteSuccess(w, data)
			return
		}

		if _, classified := domain.AsAPIError(err); !classified && auditLog != nil {
			auditLog.LogSecurityEvent(r.Context(), domain.EventSuspiciousRequest,
				audit.RequestMeta{
					ClientIP: request.ClientIP(r),
					Path:     r.URL.Path,
					Method:   r.Method,
				},
				map[string]any{"error": err.Error()},
				audit.EventMeta{Severity: domain.SeverityHigh, Blocked: true})
		}
		WriteError(w, err)
	}
}
