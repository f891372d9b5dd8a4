// Package router registers the HTTP routes of the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shop-api/internal/handler"
	"github.com/iliyamo/shop-api/internal/middleware"
	"github.com/iliyamo/shop-api/internal/model"
	"github.com/iliyamo/shop-api/internal/utils"
)

// RegisterRoutes registers routes that do not belong to any resource.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers signup and login under /api/auth, and the
// token-protected /api/auth/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, issuer *utils.TokenIssuer) {
	g := e.Group("/api/auth")
	g.POST("/signup", a.Signup)
	g.POST("/login", a.Login)
	g.GET("/me", a.Me, middleware.JWTAuth(issuer), middleware.RequireRole(model.RoleUser))
}

// ProductCache carries the optional response-cache middleware for product
// routes: Read wraps the public reads, Purge wraps the mutations.
type ProductCache struct {
	Read  echo.MiddlewareFunc
	Purge echo.MiddlewareFunc
}

// RegisterProducts registers /api/products.  Reads are public; create,
// update and delete require a USER token.
func RegisterProducts(e *echo.Echo, p *handler.ProductHandler, issuer *utils.TokenIssuer, cache ProductCache) {
	var read, write []echo.MiddlewareFunc
	if cache.Read != nil {
		read = append(read, cache.Read)
	}
	write = append(write, middleware.JWTAuth(issuer), middleware.RequireRole(model.RoleUser))
	if cache.Purge != nil {
		write = append(write, cache.Purge)
	}

	g := e.Group("/api/products")
	g.GET("", p.List, read...)
	g.GET("/:id", p.Get, read...)
	g.POST("", p.Create, write...)
	g.PUT("/:id", p.Update, write...)
	g.DELETE("/:id", p.Delete, write...)
}
