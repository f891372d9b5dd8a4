package router

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/iliyamo/shop-api/internal/handler"
	"github.com/iliyamo/shop-api/internal/middleware"
	"github.com/iliyamo/shop-api/internal/utils"
)

// Deps is everything New needs to assemble the HTTP server.
type Deps struct {
	Log       zerolog.Logger
	Issuer    *utils.TokenIssuer
	Auth      *handler.AuthHandler
	Products  *handler.ProductHandler
	RateLimit echo.MiddlewareFunc // nil disables rate limiting
	Cache     ProductCache
}

// New builds the echo instance: global middleware in order request id,
// request log, recover, body limit, rate limit; then every route.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(d.Log)

	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(echomw.Recover())
	e.Use(echomw.BodyLimit("1M"))
	if d.RateLimit != nil {
		e.Use(d.RateLimit)
	}

	RegisterRoutes(e)
	RegisterAuth(e, d.Auth, d.Issuer)
	RegisterProducts(e, d.Products, d.Issuer, d.Cache)
	return e
}
