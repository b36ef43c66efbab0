package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/scry-cue/internal/api/shared"
	"github.com/phrazzld/scry-cue/internal/catalog"
	"github.com/phrazzld/scry-cue/internal/domain"
	"github.com/phrazzld/scry-cue/internal/service/auth"
	"github.com/phrazzld/scry-cue/internal/service/card_review"
	"github.com/phrazzld/scry-cue/internal/service/trigger"
	"github.com/phrazzld/scry-cue/internal/store"
)

const unexpectedErrorMessage = "An unexpected error occurred"

// errorRule pairs a sentinel with the status and client-facing message it
// maps to. Rules are matched in order, so specific sentinels precede the
// generic ones they wrap.
type errorRule struct {
	target  error
	status  int
	message string
}

var errorRules = []errorRule{
	{auth.ErrExpiredToken, http.StatusUnauthorized, "Token expired"},
	{auth.ErrInvalidToken, http.StatusUnauthorized, "Invalid token"},
	{auth.ErrTokenNotYetValid, http.StatusUnauthorized, "Invalid token"},
	{auth.ErrMissingToken, http.StatusUnauthorized, "Invalid token"},
	{auth.ErrWrongTokenType, http.StatusUnauthorized, "Invalid token"},
	{domain.ErrEmptyUserID, http.StatusUnauthorized, "User ID not found or invalid"},

	{card_review.ErrCardNotFound, http.StatusNotFound, "Card not found"},
	{catalog.ErrDeckNotFound, http.StatusNotFound, "Deck not found"},
	{catalog.ErrCategoryNotFound, http.StatusNotFound, "Category not found"},
	{store.ErrNotFound, http.StatusNotFound, "Not found"},

	{catalog.ErrReadOnly, http.StatusConflict, "Deck catalog is read-only"},
	{catalog.ErrCategoryInUse, http.StatusConflict, "Category still has subcategories or decks"},
	{store.ErrDuplicate, http.StatusConflict, "Already exists"},

	{card_review.ErrInvalidAnswer, http.StatusBadRequest, "Invalid answer"},
	{domain.ErrInvalidOutcome, http.StatusBadRequest, "Invalid answer"},
	{trigger.ErrUnknownKind, http.StatusBadRequest, "Unknown event kind"},
	{trigger.ErrTimerNotReportable, http.StatusBadRequest, "Timer events cannot be reported"},
	{catalog.ErrCategoryCycle, http.StatusBadRequest, "Category parent would create a cycle"},
	{shared.ErrEmptyBody, http.StatusBadRequest, "Request body is required"},
	{shared.ErrMalformedBody, http.StatusBadRequest, "Invalid request format"},
	{domain.ErrValidation, http.StatusBadRequest, "Validation error"},
	{store.ErrInvalidEntity, http.StatusBadRequest, "Validation error"},

	{store.ErrClosed, http.StatusServiceUnavailable, "Service is shutting down"},
}

func matchRule(err error) (errorRule, bool) {
	if err == nil {
		return errorRule{}, false
	}
	for _, r := range errorRules {
		if errors.Is(err, r.target) {
			return r, true
		}
	}
	return errorRule{}, false
}

func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}

func isValidationErrors(err error) bool {
	var verrs validator.ValidationErrors
	return errors.As(err, &verrs)
}

// MapErrorToStatusCode maps err to an HTTP status without exposing its type.
func MapErrorToStatusCode(err error) int {
	if r, ok := matchRule(err); ok {
		return r.status
	}
	if isDecodeError(err) || isValidationErrors(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// GetSafeErrorMessage returns the client-facing message for err. Errors with
// no mapping get a generic message.
func GetSafeErrorMessage(err error) string {
	if isValidationErrors(err) {
		return SanitizeValidationError(err)
	}
	if r, ok := matchRule(err); ok {
		return r.message
	}
	if isDecodeError(err) {
		return "Invalid request format"
	}
	return unexpectedErrorMessage
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
	}

	// Example format: "Key: 'AnswerRequest.Outcome' Error:Field validation for 'Outcome' failed on the 'required' tag"
	errMsg := err.Error()
	if strings.Contains(errMsg, "Field validation") {
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 5 {
				return fmt.Sprintf("Invalid %s: %s", fieldParts[1], getValidationTagMessage(fieldParts[3]))
			}
			if len(fieldParts) >= 3 {
				return fmt.Sprintf("Invalid %s", fieldParts[1])
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "gte", "lte", "gt", "lt":
		return "out of range"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes the status and safe message for err and logs the
// redacted detail. fallback replaces the generic message for errors with no
// specific mapping.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if message == unexpectedErrorMessage && fallback != "" {
		message = fallback
	}

	var opts []shared.ResponseOption
	if status == http.StatusUnauthorized {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}
