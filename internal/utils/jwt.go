package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"  // errors defines the token sentinels and matches jwt errors
	"strconv" // strconv encodes the numeric user id into the subject claim
	"time"    // time utilities for generating expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and verifying signed tokens
)

var (
	// ErrTokenInvalid covers malformed tokens, bad signatures, unexpected
	// algorithms and unusable subjects.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired is returned once the current time reaches exp.
	ErrTokenExpired = errors.New("token expired")
)

// AccessToken represents a signed JWT access token along with its expiry.
// The Token field contains the JWT string.  Exp stores the expiration
// timestamp.  Access tokens travel in the Authorization header as a
// Bearer credential.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// AccessClaims is the claim set carried by every access token: the
// registered sub/iat/exp claims plus the user's role.
type AccessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// UserID decodes the subject claim.
func (c *AccessClaims) UserID() (uint64, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrTokenInvalid
	}
	return id, nil
}

// TokenIssuer signs and verifies HS256 access tokens with a process-wide
// secret loaded once at startup.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer returns an issuer whose tokens live for ttl.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock returns a copy of the issuer that reads time from now.
func (t *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	cp := *t
	cp.now = now
	return &cp
}

// TTL returns the lifetime of issued tokens.
func (t *TokenIssuer) TTL() time.Duration { return t.ttl }

// Issue builds and signs a token binding userID.  The claims are sub (the
// decimal user id), role, iat and exp = iat + ttl.
func (t *TokenIssuer) Issue(userID uint64, role string) (AccessToken, error) {
	iat := t.now().UTC()
	exp := iat.Add(t.ttl)
	claims := AccessClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return AccessToken{}, err
	}
	// exp is encoded with second precision; report what the token carries.
	return AccessToken{Token: signed, Exp: claims.ExpiresAt.Time}, nil
}

// Parse verifies the signature and expiry of raw and returns its claims.
// Only HS256 is accepted.  Expired tokens yield ErrTokenExpired, every other
// failure yields ErrTokenInvalid.
func (t *TokenIssuer) Parse(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (interface{}, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !tok.Valid {
		return nil, ErrTokenInvalid
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}
	return claims, nil
}

// Verify is Parse reduced to the subject: it returns the user id bound to a
// valid token.
func (t *TokenIssuer) Verify(raw string) (uint64, error) {
	claims, err := t.Parse(raw)
	if err != nil {
		return 0, err
	}
	return claims.UserID()
}
