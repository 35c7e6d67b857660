package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"khata/internal/core"
	"khata/internal/ledger"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		slog.ErrorContext(r.Context(), "Request failed",
			"url", r.URL.Path,
			"status", status,
			"error", err)
	} else {
		slog.WarnContext(r.Context(), "Request rejected",
			"url", r.URL.Path,
			"status", status,
			"error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusFor maps domain errors to HTTP statuses. A write that exhausted its
// conflict retries is a 503: the client may retry, nothing was applied.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrTransactionFailed):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidSide),
		errors.Is(err, core.ErrInvalidPolicy),
		errors.Is(err, core.ErrEmptySociety),
		errors.Is(err, core.ErrEmptyAccount),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrEmptyDescription):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	w.WriteHeader(http.StatusMethodNotAllowed)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// accountFromQuery builds an AccountRef from society/category/name query
// parameters.
func accountFromQuery(q url.Values) core.AccountRef {
	return core.AccountRef{
		Society:  strings.TrimSpace(q.Get("society")),
		Category: core.AccountCategory(strings.TrimSpace(q.Get("category"))),
		Name:     strings.TrimSpace(q.Get("account")),
	}
}

// dayFromQuery reads a YYYY-MM-DD query parameter, defaulting to today.
func dayFromQuery(q url.Values, key string) (core.Date, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return core.Today(), nil
	}
	return core.ParseDate(raw)
}
