package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/streamtweet/backend/internal/auth"
	"github.com/streamtweet/backend/internal/engagement"
	"github.com/streamtweet/backend/internal/logging"
	"github.com/streamtweet/backend/internal/repositories"
)

// apiResponse is the uniform envelope every endpoint returns.
type apiResponse struct {
	StatusCode int      `json:"statusCode"`
	Data       any      `json:"data,omitempty"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors,omitempty"`
}

// apiError pairs an HTTP status with a caller-facing message.
type apiError struct {
	status  int
	message string
}

func (e apiError) Error() string { return e.message }

func badRequest(message string) apiError {
	return apiError{status: http.StatusBadRequest, message: message}
}

func unauthorized(message string) apiError {
	return apiError{status: http.StatusUnauthorized, message: message}
}

func forbidden(message string) apiError {
	return apiError{status: http.StatusForbidden, message: message}
}

func notFound(message string) apiError {
	return apiError{status: http.StatusNotFound, message: message}
}

func conflict(message string) apiError {
	return apiError{status: http.StatusConflict, message: message}
}

func internal(message string) apiError {
	return apiError{status: http.StatusInternalServerError, message: message}
}

// mapError folds domain sentinels into the envelope taxonomy. Unexpected
// errors surface as a generic 500 without leaking internals.
func mapError(err error, notFoundMessage string) apiError {
	var apiErr apiError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, repositories.ErrNotFound):
		return notFound(notFoundMessage)
	case errors.Is(err, repositories.ErrConflict):
		return conflict("resource already exists")
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrTokenReused):
		return unauthorized("invalid or expired token")
	case errors.Is(err, engagement.ErrSelfSubscription):
		return badRequest("cannot subscribe to your own channel")
	default:
		return internal("something went wrong")
	}
}

func respondData(ctx context.Context, w http.ResponseWriter, status int, data any, message string) {
	writeJSON(ctx, w, status, apiResponse{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    true,
	})
}

func respondError(ctx context.Context, w http.ResponseWriter, err error, notFoundMessage string) {
	apiErr := mapError(err, notFoundMessage)

	logger := logging.FromContext(ctx)
	if apiErr.status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", apiErr.status, "error", err)
	} else {
		logger.Warn("request rejected", "status", apiErr.status, "error", err)
	}

	writeJSON(ctx, w, apiErr.status, apiResponse{
		StatusCode: apiErr.status,
		Message:    apiErr.message,
		Success:    false,
		Errors:     []string{apiErr.message},
	})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
	}
}
