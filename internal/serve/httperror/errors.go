package httperror

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/playvault/marketplace-backend/internal/apptracker"
	"github.com/playvault/marketplace-backend/internal/entities"
	"github.com/playvault/marketplace-backend/internal/queryguard"
)

type ErrorResponse struct {
	Status int                    `json:"-"`
	Error  string                 `json:"error"`
	Extras map[string]interface{} `json:"extras,omitempty"`
}

func (e ErrorResponse) Render(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(e.Status)
	if err := json.NewEncoder(w).Encode(e); err != nil {
		logrus.WithError(err).Error("writing error response")
	}
}

type ErrorHandler struct {
	Error ErrorResponse
}

func (h ErrorHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.Error.Render(w)
}

var NotFound = ErrorResponse{
	Status: http.StatusNotFound,
	Error:  "The resource at the url requested was not found.",
}

var MethodNotAllowed = ErrorResponse{
	Status: http.StatusMethodNotAllowed,
	Error:  "The method is not allowed for resource at the url requested.",
}

func BadRequest(message string, extras map[string]interface{}) *ErrorResponse {
	if message == "" {
		message = "Invalid request"
	}

	return &ErrorResponse{
		Status: http.StatusBadRequest,
		Error:  message,
		Extras: extras,
	}
}

func Unauthorized(message string, extras map[string]interface{}) *ErrorResponse {
	if message == "" {
		message = "Not authorized."
	}

	return &ErrorResponse{
		Status: http.StatusUnauthorized,
		Error:  message,
		Extras: extras,
	}
}

func Forbidden(message string, extras map[string]interface{}) *ErrorResponse {
	if message == "" {
		message = "Not allowed."
	}

	return &ErrorResponse{
		Status: http.StatusForbidden,
		Error:  message,
		Extras: extras,
	}
}

func Conflict(message string, extras map[string]interface{}) *ErrorResponse {
	if message == "" {
		message = "The request conflicts with the current state of the resource."
	}

	return &ErrorResponse{
		Status: http.StatusConflict,
		Error:  message,
		Extras: extras,
	}
}

func UnprocessableEntity(message string, extras map[string]interface{}) *ErrorResponse {
	if message == "" {
		message = "The request cannot be applied in the resource's current state."
	}

	return &ErrorResponse{
		Status: http.StatusUnprocessableEntity,
		Error:  message,
		Extras: extras,
	}
}

func InternalServerError(ctx context.Context, message string, err error, extras map[string]interface{}, appTracker apptracker.AppTracker) *ErrorResponse {
	logrus.WithContext(ctx).WithError(err).Error("unexpected error")
	if appTracker != nil {
		appTracker.CaptureException(err)
	} else {
		logrus.Warn("App Tracker is nil")
	}

	if message == "" {
		message = "An error occurred while processing this request."
	}
	return &ErrorResponse{
		Status: http.StatusInternalServerError,
		Error:  message,
		Extras: extras,
	}
}

// FromDomainError maps a service-layer error onto the HTTP taxonomy.
// Expected rule violations keep their specific message so clients can
// react without parsing free text; anything unrecognized is reported as
// an internal error and captured by the tracker.
func FromDomainError(ctx context.Context, err error, appTracker apptracker.AppTracker) *ErrorResponse {
	switch {
	case errors.Is(err, entities.ErrAccountNotFound),
		errors.Is(err, entities.ErrTransactionNotFound):
		return &ErrorResponse{Status: http.StatusNotFound, Error: err.Error()}
	case errors.Is(err, entities.ErrActiveTransactionExists):
		return Conflict(err.Error(), nil)
	case errors.Is(err, entities.ErrAccountNotPurchasable):
		return Conflict(err.Error(), nil)
	case errors.Is(err, entities.ErrInvalidTransition):
		return UnprocessableEntity(err.Error(), nil)
	case errors.Is(err, entities.ErrSelfPurchase),
		errors.Is(err, entities.ErrNotParticipant):
		return Forbidden(err.Error(), nil)
	case errors.Is(err, entities.ErrInvalidCursor):
		return BadRequest(err.Error(), nil)
	case errors.Is(err, queryguard.ErrMalformedQuery),
		errors.Is(err, queryguard.ErrQueryTooComplex),
		errors.Is(err, queryguard.ErrQueryTooDeep):
		return BadRequest(err.Error(), nil)
	default:
		return InternalServerError(ctx, "", err, nil, appTracker)
	}
}
