package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/shop-api/internal/middleware"
	"github.com/iliyamo/shop-api/internal/service"
	"github.com/iliyamo/shop-api/internal/utils"
)

// errorBody is the single error shape of the API.
type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

type apiError struct {
	status int
	body   errorBody
}

func newAPIError(status int, code, msg string) apiError {
	return apiError{status: status, body: errorBody{Code: code, Message: msg}}
}

var sentinelErrors = []struct {
	err error
	api apiError
}{
	{service.ErrDuplicateUsername, newAPIError(http.StatusConflict, "DUPLICATE_USERNAME", "username is already taken")},
	{service.ErrUserNotFound, newAPIError(http.StatusNotFound, "USER_NOT_FOUND", "user not found")},
	{service.ErrInvalidCredentials, newAPIError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid username or password")},
	{service.ErrProductNotFound, newAPIError(http.StatusNotFound, "PRODUCT_NOT_FOUND", "product not found")},
	{service.ErrAccessDenied, newAPIError(http.StatusForbidden, "ACCESS_DENIED", "you do not own this product")},
	{utils.ErrTokenExpired, newAPIError(http.StatusUnauthorized, "TOKEN_EXPIRED", "access token has expired")},
	{utils.ErrTokenInvalid, newAPIError(http.StatusUnauthorized, "TOKEN_INVALID", "access token is missing or invalid")},
	{middleware.ErrForbidden, newAPIError(http.StatusForbidden, "ACCESS_DENIED", "access denied")},
	{middleware.ErrTooManyRequests, newAPIError(http.StatusTooManyRequests, "TOO_MANY_REQUESTS", "rate limit exceeded")},
}

// classify maps an error to its HTTP status and body.  The boolean is
// false for unexpected errors, whose details must not reach the client.
func classify(err error) (apiError, bool) {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		a := newAPIError(http.StatusBadRequest, "VALIDATION_FAILED", "request validation failed")
		a.body.Errors = ve.Fields
		return a, true
	}
	for _, s := range sentinelErrors {
		if errors.Is(err, s.err) {
			return s.api, true
		}
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return fromHTTPError(he)
	}
	return newAPIError(http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"), false
}

func fromHTTPError(he *echo.HTTPError) (apiError, bool) {
	msg := http.StatusText(he.Code)
	if m, ok := he.Message.(string); ok && m != "" {
		msg = m
	}
	switch he.Code {
	case http.StatusBadRequest, http.StatusUnsupportedMediaType, http.StatusRequestEntityTooLarge:
		return newAPIError(he.Code, "VALIDATION_FAILED", msg), true
	case http.StatusNotFound:
		return newAPIError(he.Code, "NOT_FOUND", "resource not found"), true
	case http.StatusMethodNotAllowed:
		return newAPIError(he.Code, "METHOD_NOT_ALLOWED", "method not allowed"), true
	case http.StatusUnauthorized:
		return newAPIError(he.Code, "TOKEN_INVALID", msg), true
	case http.StatusForbidden:
		return newAPIError(he.Code, "ACCESS_DENIED", msg), true
	case http.StatusTooManyRequests:
		return newAPIError(he.Code, "TOO_MANY_REQUESTS", msg), true
	}
	if he.Code >= 500 {
		return newAPIError(he.Code, "INTERNAL_ERROR", "internal server error"), false
	}
	return newAPIError(he.Code, strings.ToUpper(strings.ReplaceAll(http.StatusText(he.Code), " ", "_")), msg), true
}

// ErrorHandler renders every error returned by handlers and middleware.
// Install it as echo's HTTPErrorHandler.
func ErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		a, known := classify(err)
		if !known {
			log.Error().Err(err).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Str("method", c.Request().Method).
				Str("uri", c.Request().RequestURI).
				Msg("unhandled error")
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(a.status)
		} else {
			err = c.JSON(a.status, a.body)
		}
		if err != nil {
			log.Error().Err(err).Msg("write error response")
		}
	}
}
