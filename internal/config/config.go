package config // package config loads application configuration from environment variables

import (
	"errors"  // errors joins every configuration problem into one report
	"fmt"     // fmt formats configuration error messages
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"strings" // strings normalizes enum-like values
)

// Storage backends accepted by STORE_DRIVER.
const (
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

// Ownership modes accepted by PRODUCT_OWNERSHIP.
const (
	OwnershipEnforced = "enforced"
	OwnershipDisabled = "disabled"
)

// bcrypt accepts costs in [4, 31]; values outside are clamped.
const (
	minBcryptCost = 4
	maxBcryptCost = 31
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Redis, rate limiting, caching and events have
// their own loaders in this package.
type Config struct {
	Env              string // application environment (e.g. "dev", "prod")
	Port             string // HTTP port to listen on
	StoreDriver      string // "mysql" or "memory"
	DBUser           string // database username
	DBPass           string // database password (optional)
	DBHost           string // database host address
	DBPort           string // database port number
	DBName           string // database name
	DBAutoMigrate    bool   // run embedded migrations at startup
	JWTSecret        string // secret used to sign JWTs
	AccessTTLMin     int    // access token time-to-live in minutes
	BcryptCost       int    // bcrypt cost for password hashing
	ProductOwnership string // "enforced" or "disabled"
	APILinks         bool   // decorate product responses with hypermedia links
	LogLevel         string // zerolog level name
	LogFormat        string // "json" or "console"
}

// OwnershipEnforced reports whether products record an owner and reject
// mutations from other users.
func (c Config) OwnershipEnforced() bool {
	return c.ProductOwnership != OwnershipDisabled
}

// Load reads configuration values from environment variables and returns a
// Config.  Every missing or malformed required variable is reported in the
// returned error rather than stopping at the first one.
func Load() (Config, error) {
	l := &loader{}
	cfg := Config{
		Env:              envStr("APP_ENV", "dev"),
		Port:             l.must("APP_PORT"),
		StoreDriver:      strings.ToLower(envStr("STORE_DRIVER", StoreMySQL)),
		DBPass:           os.Getenv("DB_PASS"), // empty allowed
		DBAutoMigrate:    envBool("DB_AUTO_MIGRATE", true),
		JWTSecret:        l.must("JWT_SECRET"),
		AccessTTLMin:     l.intOr("ACCESS_TOKEN_TTL_MIN", 60),
		BcryptCost:       l.intOr("BCRYPT_COST", 10),
		ProductOwnership: strings.ToLower(envStr("PRODUCT_OWNERSHIP", OwnershipEnforced)),
		APILinks:         envBool("API_LINKS", false),
		LogLevel:         strings.ToLower(envStr("LOG_LEVEL", "info")),
		LogFormat:        strings.ToLower(envStr("LOG_FORMAT", "json")),
	}

	switch cfg.StoreDriver {
	case StoreMySQL:
		cfg.DBUser = l.must("DB_USER")
		cfg.DBHost = l.must("DB_HOST")
		cfg.DBPort = l.must("DB_PORT")
		cfg.DBName = l.must("DB_NAME")
	case StoreMemory:
	default:
		l.fail("invalid STORE_DRIVER: %q", cfg.StoreDriver)
	}

	if cfg.ProductOwnership != OwnershipEnforced && cfg.ProductOwnership != OwnershipDisabled {
		l.fail("invalid PRODUCT_OWNERSHIP: %q", cfg.ProductOwnership)
	}
	if cfg.AccessTTLMin <= 0 {
		l.fail("ACCESS_TOKEN_TTL_MIN must be positive, got %d", cfg.AccessTTLMin)
	}
	if cfg.BcryptCost < minBcryptCost {
		cfg.BcryptCost = minBcryptCost
	}
	if cfg.BcryptCost > maxBcryptCost {
		cfg.BcryptCost = maxBcryptCost
	}
	return cfg, l.err()
}

// loader collects errors while reading required variables.
type loader struct {
	errs []error
}

// must retrieves the value of a required environment variable.  A missing
// or blank value is recorded and an empty string is returned.
func (l *loader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		l.fail("missing required env var: %s", key)
		return ""
	}
	return strings.TrimSpace(v)
}

// intOr is like envInt but records a malformed value instead of silently
// using the default.
func (l *loader) intOr(key string, def int) int {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		l.fail("invalid int for %s: %q", key, s)
		return def
	}
	return n
}

func (l *loader) fail(format string, args ...any) {
	l.errs = append(l.errs, fmt.Errorf(format, args...))
}

func (l *loader) err() error {
	return errors.Join(l.errs...)
}
