package middleware

import (
	"errors"
	"strconv"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shop-api/internal/utils"
)

// Context keys set by JWTAuth.
const (
	ContextKeyClaims = "claims"
	ContextKeyUserID = "user_id"
	ContextKeyRole   = "role"
)

// JWTAuth verifies the Bearer access token with issuer and stores the
// caller's identity in the context: the parsed claims under "claims", the
// numeric subject under "user_id" and the role under "role".  Any failure
// ends the request with utils.ErrTokenExpired or utils.ErrTokenInvalid;
// a missing header counts as invalid.
func JWTAuth(issuer *utils.TokenIssuer) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey: ContextKeyClaims,
		ParseTokenFunc: func(_ echo.Context, raw string) (interface{}, error) {
			return issuer.Parse(raw)
		},
		SuccessHandler: func(c echo.Context) {
			claims, ok := c.Get(ContextKeyClaims).(*utils.AccessClaims)
			if !ok {
				return
			}
			// Parse already rejected non-numeric subjects.
			id, _ := claims.UserID()
			c.Set(ContextKeyUserID, id)
			c.Set(ContextKeyRole, claims.Role)
		},
		ErrorHandler: func(_ echo.Context, err error) error {
			if errors.Is(err, utils.ErrTokenExpired) {
				return utils.ErrTokenExpired
			}
			return utils.ErrTokenInvalid
		},
	})
}

// RequireRole lets the request through only when the role stored by
// JWTAuth is one of roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(ContextKeyRole).(string)
			if !ok || !allowed[role] {
				return ErrForbidden
			}
			return next(c)
		}
	}
}

// UserID returns the authenticated user id, or false on public routes.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(ContextKeyUserID).(uint64)
	return id, ok && id != 0
}

// currentUserID is the rate-limit and log identity: the user id when
// authenticated, "anon" otherwise.
func currentUserID(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
