// Package config defines the gateway's runtime configuration, loaded with
// pkg/config's layered env/file/default resolution.
package config

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	neo4jclient "github.com/StricklySoft/cypher-gateway/pkg/clients/neo4j"
	sserr "github.com/StricklySoft/cypher-gateway/pkg/errors"
)

// Config is the gateway's complete runtime configuration.
type Config struct {
	// Driver holds the Bolt connection settings (driver.uri,
	// driver.username, driver.password per spec.md §6.3), reusing the
	// teacher's neo4j client configuration and validation unmodified.
	Driver neo4jclient.Config `yaml:"driver"`

	// FetchSize is the record prefetch watermark passed to every session;
	// 0 falls back to FetchDefault.
	FetchSize int `env:"FETCH_SIZE" envDefault:"2000" yaml:"fetch_size"`

	// VerifyConnectivity is loaded but not read by cmd/gateway: startup
	// fails whenever the database is unreachable, whatever its value,
	// because neo4jclient.NewClient verifies connectivity itself. Setting
	// it to false does not make startup degrade to DefaultToSSR.
	VerifyConnectivity bool `env:"VERIFY_CONNECTIVITY" envDefault:"true" yaml:"verify_connectivity"`

	// DefaultToSSR is the routing fallback used when the startup
	// capabilities probe itself fails (not when SSR is merely
	// unavailable — that is a normal, successful probe result).
	DefaultToSSR bool `env:"DEFAULT_TO_SSR" yaml:"default_to_ssr"`

	// ProfileSSR forces the capabilities probe to report SSR available
	// (over a routing-scheme URI), skipping the dbms.listConfig round-trip;
	// the edition probe still runs.
	ProfileSSR bool `env:"PROFILE_SSR" yaml:"profile_ssr"`

	// Server groups the HTTP listener settings. Ambient: spec.md §6.3
	// only lists core-pipeline options, but a runnable binary needs a
	// listen address.
	Server ServerConfig `env:"SERVER" yaml:"server"`

	// Auth groups service-identity and JWT settings for internal/authadapter.
	Auth AuthConfig `env:"AUTH" yaml:"auth"`

	// Cache groups the optional distributed evaluator cache settings.
	Cache CacheConfig `env:"CACHE" yaml:"cache"`
}

// ServerConfig is the HTTP listener configuration.
type ServerConfig struct {
	// Addr is the address the HTTP server listens on, e.g. ":8080".
	Addr string `env:"ADDR" envDefault:":8080" yaml:"addr"`

	// ShutdownTimeout bounds how long graceful shutdown waits for
	// in-flight requests (including open streams) to finish.
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s" yaml:"shutdown_timeout"`
}

// AuthConfig groups internal/authadapter's credentials.
type AuthConfig struct {
	// ServiceUsername is the fixed identity that bypasses impersonation.
	ServiceUsername string `env:"SERVICE_USERNAME" yaml:"service_username"`

	// ServicePasswordHash is a bcrypt hash of the service identity's
	// password. Never the plaintext password itself.
	ServicePasswordHash string `env:"SERVICE_PASSWORD_HASH" yaml:"-"`

	// ServiceJWTSecret is the HS256 signing key for service-to-service
	// bearer tokens. Empty disables bearer-token authentication.
	ServiceJWTSecret string `env:"SERVICE_JWT_SECRET" yaml:"-"`
}

// CacheConfig groups the optional Redis-backed evaluator cache.
type CacheConfig struct {
	// RedisURI, if set, backs internal/evalcache with a shared Redis
	// instance instead of the in-memory default.
	RedisURI string `env:"REDIS_URI" yaml:"redis_uri"`
}

// Validate implements pkg/config.Validator. It runs after required-field
// and struct-tag default resolution.
func (c *Config) Validate() error {
	if err := c.Driver.Validate(); err != nil {
		return sserr.Wrap(err, sserr.CodeValidation, "config: invalid driver configuration")
	}
	if c.FetchSize < 0 {
		return sserr.Newf(sserr.CodeValidation, "config: fetch_size must not be negative, got %d", c.FetchSize)
	}
	if c.Server.Addr == "" {
		return sserr.New(sserr.CodeValidation, "config: server.addr must not be empty")
	}
	return nil
}

// FetchSizeOrDefault returns FetchSize as the driver's fetch-size type,
// falling back to neo4j.FetchDefault when unset.
func (c *Config) FetchSizeOrDefault() int {
	if c.FetchSize <= 0 {
		return neo4j.FetchDefault
	}
	return c.FetchSize
}
