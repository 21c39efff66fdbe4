package router

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/issue-tracker/internal/apperror"
)

// errorBody is the uniform failure envelope.  Every error a client sees,
// regardless of which layer produced it, has this shape.
type errorBody struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	StatusCode int            `json:"statusCode"`
	Details    map[string]any `json:"details,omitempty"`
}

type errorEnvelope struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

// ErrorHandler translates errors returned by handlers and middleware into
// the uniform envelope.  apperror values pass through with their code and
// status; Echo's own routing errors (404, 405) are mapped onto the
// taxonomy; anything else is logged server-side and surfaced as an opaque
// 500 so no internal detail leaks.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var body errorBody
	switch e := err.(type) {
	case *apperror.Error:
		body = errorBody{Code: e.Code, Message: e.Message, StatusCode: e.Status, Details: e.Details}
	case *echo.HTTPError:
		switch e.Code {
		case http.StatusNotFound:
			body = errorBody{Code: "NOT_FOUND", Message: "not found", StatusCode: e.Code}
		case http.StatusMethodNotAllowed:
			body = errorBody{Code: "METHOD_NOT_ALLOWED", Message: "method not allowed", StatusCode: e.Code}
		default:
			log.Printf("http error: %v (path=%s)", err, c.Path())
			fallback := apperror.Internal()
			body = errorBody{Code: fallback.Code, Message: fallback.Message, StatusCode: fallback.Status}
		}
	default:
		log.Printf("unhandled error: %v (path=%s)", err, c.Path())
		fallback := apperror.Internal()
		body = errorBody{Code: fallback.Code, Message: fallback.Message, StatusCode: fallback.Status}
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(body.StatusCode)
		return
	}
	_ = c.JSON(body.StatusCode, errorEnvelope{Success: false, Error: body})
}
