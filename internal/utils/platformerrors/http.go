package platformerrors

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// HTTPErrorResponse represents the standard error response format.
type HTTPErrorResponse struct {
	Error *HTTPErrorDetail `json:"error"`
}

// HTTPErrorDetail contains error details for HTTP responses.
type HTTPErrorDetail struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteHTTPError writes a PlatformError as an HTTP response.
func WriteHTTPError(c *gin.Context, err *PlatformError, log zerolog.Logger) {
	if err == nil {
		WriteInternalError(c, "unknown error")
		return
	}

	LogError(log, err)

	c.JSON(ErrorTypeToHTTPStatus(err.Type), HTTPErrorResponse{
		Error: &HTTPErrorDetail{
			Message:   err.Message,
			Type:      ErrorTypeString(err.Type),
			Code:      err.UUID,
			RequestID: err.RequestID,
		},
	})
}

// WriteError writes a generic error as an HTTP response.
// Errors that are not PlatformErrors are reported as internal errors.
func WriteError(c *gin.Context, err error, log zerolog.Logger) {
	if err == nil {
		WriteInternalError(c, "unknown error")
		return
	}

	if platformErr := GetPlatformError(err); platformErr != nil {
		WriteHTTPError(c, platformErr, log)
		return
	}

	log.Error().Err(err).Msg("unhandled error")
	WriteInternalError(c, err.Error())
}

// WriteUnauthorized writes a 401 Unauthorized response.
func WriteUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, HTTPErrorResponse{
		Error: &HTTPErrorDetail{
			Message: message,
			Type:    "unauthorized_error",
		},
	})
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, HTTPErrorResponse{
		Error: &HTTPErrorDetail{
			Message: message,
			Type:    "internal_error",
		},
	})
}

// ErrorTypeString converts an ErrorType to a snake_case string for API responses.
func ErrorTypeString(t ErrorType) string {
	switch t {
	case ErrorTypeNotFound:
		return "not_found_error"
	case ErrorTypeValidation:
		return "validation_error"
	case ErrorTypeConflict:
		return "conflict_error"
	case ErrorTypeUnauthorized:
		return "unauthorized_error"
	case ErrorTypeForbidden:
		return "forbidden_error"
	case ErrorTypeTimeout:
		return "timeout_error"
	case ErrorTypeExternal:
		return "external_error"
	case ErrorTypeUnavailable:
		return "unavailable_error"
	case ErrorTypeInternal:
		fallthrough
	default:
		return "internal_error"
	}
}
