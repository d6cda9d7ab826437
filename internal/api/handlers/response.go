// Package handlers implements the console's JSON endpoints on top of the ads
// page controller, the create-page service and the action journal.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Fantasim/p2pads/internal/backend"
	"github.com/Fantasim/p2pads/internal/config"
	"github.com/Fantasim/p2pads/internal/models"
)

// maxBodyBytes bounds request bodies; the console only accepts small forms.
const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

// writeError writes a standard error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, models.APIError{
		Error: models.APIErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// writeFailure maps err to a status and error code and writes it.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := errorStatus(err)
	writeError(w, status, code, err.Error())
}

// errorStatus maps an operation error to an HTTP status and error code.
// Backend rejections keep the backend's message; they are reported as a bad
// gateway because the console itself handled the request correctly.
func errorStatus(err error) (int, string) {
	var httpErr *backend.HTTPError
	switch {
	case errors.As(err, &httpErr):
		return http.StatusBadGateway, config.ErrorBackendHTTP
	case errors.Is(err, config.ErrBackendNetwork):
		return http.StatusServiceUnavailable, config.ErrorBackendNetwork
	case errors.Is(err, config.ErrBackendDecode):
		return http.StatusBadGateway, config.ErrorBackendHTTP
	case backend.IsConfigurationError(err):
		return http.StatusInternalServerError, config.ErrorInvalidConfig

	case errors.Is(err, config.ErrAccountBusy):
		return http.StatusConflict, config.ErrorAccountBusy
	case errors.Is(err, config.ErrBusy):
		return http.StatusConflict, config.ErrorBusy
	case errors.Is(err, config.ErrBulkUnavailable):
		return http.StatusConflict, config.ErrorBulkUnavailable
	case errors.Is(err, config.ErrAutomationOn):
		return http.StatusConflict, config.ErrorAutomationOn
	case errors.Is(err, config.ErrNoAccount):
		return http.StatusConflict, config.ErrorNoAccount

	case errors.Is(err, config.ErrAccountNotFound), errors.Is(err, config.ErrAdNotFound):
		return http.StatusNotFound, config.ErrorNotFound
	case errors.Is(err, config.ErrInvalidViewMode), errors.Is(err, config.ErrInvalidStatus):
		return http.StatusBadRequest, config.ErrorInvalidRequest
	case errors.Is(err, config.ErrEmptyRemarkMarker):
		return http.StatusBadRequest, config.ErrorEmptyRemark
	case errors.Is(err, config.ErrNoAccountSelected),
		errors.Is(err, config.ErrNoTokenSelected),
		errors.Is(err, config.ErrNoFiatSelected),
		errors.Is(err, config.ErrInvalidAmount):
		return http.StatusBadRequest, config.ErrorValidation

	case errors.Is(err, config.ErrJournalWrite):
		return http.StatusInternalServerError, config.ErrorDatabase
	}
	return http.StatusInternalServerError, config.ErrorInternal
}

// decodeBody decodes a JSON request body into dst, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		slog.Warn("invalid request body",
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, http.StatusBadRequest, config.ErrorInvalidRequest, "invalid request body")
		return false
	}
	return true
}

// parseIntParam extracts an integer query parameter with a default value.
func parseIntParam(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		slog.Debug("invalid int param, using default",
			"key", key,
			"value", val,
			"default", defaultVal,
		)
		return defaultVal
	}
	return n
}
