package apierror

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Kind classifies a failure and determines its HTTP status.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuth
	KindNotFound
	KindConflict
	KindMethodNotAllowed
	KindTooManyRequests
)

// Status returns the HTTP status code for the kind.
func (kind Kind) Status() int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a failure with a client-safe message and an optional internal cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (apiErr *Error) Error() string {
	if apiErr.Cause != nil {
		return apiErr.Message + ": " + apiErr.Cause.Error()
	}
	return apiErr.Message
}

func (apiErr *Error) Unwrap() error {
	return apiErr.Cause
}

// Validation reports missing or malformed input.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// Unauthorized reports a missing, invalid or expired credential.
func Unauthorized(message string) *Error {
	return &Error{Kind: KindAuth, Message: message}
}

// NotFound reports a missing entity.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Conflict reports a duplicate unique field.
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// TooManyRequests reports a throttled client.
func TooManyRequests(message string) *Error {
	return &Error{Kind: KindTooManyRequests, Message: message}
}

// Internal wraps an unexpected failure. The cause is logged, never returned to the client.
func Internal(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: message, Cause: cause}
}

// Envelope is the JSON body of every error response.
type Envelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// DataEnvelope is the JSON body of catalog success responses.
type DataEnvelope struct {
	Status int `json:"status"`
	Data   any `json:"data"`
}

// Abort writes err as a JSON error response and stops the handler chain.
// Errors that are not *Error are treated as internal failures.
func Abort(contextGin *gin.Context, logger *zap.Logger, err error) {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		apiErr = Internal("Internal server error", err)
	}
	status := apiErr.Kind.Status()
	if status >= http.StatusInternalServerError && logger != nil {
		logger.Error("request failed",
			zap.String("method", contextGin.Request.Method),
			zap.String("path", contextGin.FullPath()),
			zap.String("message", apiErr.Message),
			zap.Error(apiErr.Cause))
	}
	contextGin.AbortWithStatusJSON(status, Envelope{Status: status, Message: apiErr.Message})
}

// WriteData writes a success envelope.
func WriteData(contextGin *gin.Context, status int, data any) {
	contextGin.JSON(status, DataEnvelope{Status: status, Data: data})
}

// MethodNotAllowed is installed as the router's NoMethod handler.
func MethodNotAllowed(contextGin *gin.Context) {
	contextGin.AbortWithStatusJSON(http.StatusMethodNotAllowed, Envelope{
		Status:  http.StatusMethodNotAllowed,
		Message: "Method Not Allowed",
	})
}

// RouteNotFound is installed as the router's NoRoute handler.
func RouteNotFound(contextGin *gin.Context) {
	contextGin.AbortWithStatusJSON(http.StatusNotFound, Envelope{
		Status:  http.StatusNotFound,
		Message: "Not Found",
	})
}
