package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/scry-cue/internal/api/shared"
	"github.com/phrazzld/scry-cue/internal/domain"
	"github.com/phrazzld/scry-cue/internal/platform/logger"
)

// requireUserID returns the authenticated player's ID, or writes a 401 and
// returns false.
func requireUserID(w http.ResponseWriter, r *http.Request, log *slog.Logger) (string, bool) {
	userID, ok := shared.UserIDFromContext(r.Context())
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		HandleAPIError(w, r, domain.ErrEmptyUserID, "")
		return "", false
	}
	return userID, true
}

// getPathParam extracts and unescapes a path parameter.
func getPathParam(r *http.Request, name string) (string, error) {
	raw := chi.URLParam(r, name)
	value, err := url.PathUnescape(raw)
	if err != nil {
		return "", domain.NewValidationError(name, "has invalid encoding", domain.ErrValidation)
	}
	if strings.TrimSpace(value) == "" {
		return "", domain.NewValidationError(name, "is required", domain.ErrValidation)
	}
	return value, nil
}

// getLimit parses the optional "limit" query parameter. An absent limit
// yields def; zero means no limit.
func getLimit(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, domain.NewValidationError("limit", fmt.Sprintf("must be a non-negative integer, got %q", raw), domain.ErrValidation)
	}
	return limit, nil
}

// handleUserIDAndPathParam extracts the player ID and a path parameter,
// writing an error response if either is missing.
func handleUserIDAndPathParam(w http.ResponseWriter, r *http.Request, name string, log *slog.Logger) (string, string, bool) {
	if log == nil {
		log = logger.FromContextOrDefault(r.Context(), slog.Default())
	}

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return "", "", false
	}

	value, err := getPathParam(r, name)
	if err != nil {
		log.Warn("invalid path parameter", slog.String("param_name", name))
		HandleAPIError(w, r, err, "")
		return "", "", false
	}
	return userID, value, true
}

// decodeAndValidate decodes the body into v and validates it, writing a 400
// on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v any, log *slog.Logger) bool {
	if err := shared.DecodeJSON(r, v); err != nil {
		log.Debug("invalid request body", slog.String("error", err.Error()))
		HandleAPIError(w, r, err, "Invalid request format")
		return false
	}
	if err := shared.ValidateRequest(v); err != nil {
		HandleAPIError(w, r, err, "Validation error")
		return false
	}
	return true
}
