package config

import (
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	neo4jclient "github.com/StricklySoft/cypher-gateway/pkg/clients/neo4j"
	pkgconfig "github.com/StricklySoft/cypher-gateway/pkg/config"
	sserr "github.com/StricklySoft/cypher-gateway/pkg/errors"
)

func validConfig() *Config {
	return &Config{
		Driver: neo4jclient.Config{Database: "neo4j", Username: "neo4j"},
		Server: ServerConfig{Addr: ":8080"},
	}
}

func TestConfig_Validate_AcceptsMinimalValidConfig(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestConfig_Validate_RejectsEmptyServerAddr(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Addr = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, sserr.HasCode(err, sserr.CodeValidation))
}

func TestConfig_Validate_RejectsNegativeFetchSize(t *testing.T) {
	cfg := validConfig()
	cfg.FetchSize = -1
	err := cfg.Validate()
	require.Error(t, err)
}

func TestConfig_Validate_PropagatesDriverValidationFailure(t *testing.T) {
	cfg := validConfig()
	cfg.Driver.Database = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, sserr.HasCode(err, sserr.CodeValidation))
}

func TestConfig_FetchSizeOrDefault_ZeroFallsBackToDriverDefault(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, neo4j.FetchDefault, cfg.FetchSizeOrDefault())
}

func TestConfig_FetchSizeOrDefault_PositiveValuePassedThrough(t *testing.T) {
	cfg := &Config{FetchSize: 500}
	assert.Equal(t, 500, cfg.FetchSizeOrDefault())
}

func TestConfig_LoadAppliesEnvDefaults(t *testing.T) {
	t.Setenv("GATEWAY_NEO4J_DATABASE", "neo4j")
	t.Setenv("GATEWAY_NEO4J_USERNAME", "neo4j")

	var cfg Config
	err := pkgconfig.New().WithEnvPrefix("GATEWAY").Load(&cfg)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 2000, cfg.FetchSize)
	assert.True(t, cfg.VerifyConnectivity)
}

func TestConfig_LoadReadsNestedEnvVarsWithPrefix(t *testing.T) {
	t.Setenv("GATEWAY_NEO4J_DATABASE", "neo4j")
	t.Setenv("GATEWAY_NEO4J_USERNAME", "neo4j")
	t.Setenv("GATEWAY_SERVER_ADDR", ":9090")
	t.Setenv("GATEWAY_AUTH_SERVICE_USERNAME", "gateway-svc")
	t.Setenv("GATEWAY_CACHE_REDIS_URI", "redis://cache:6379/0")

	var cfg Config
	err := pkgconfig.New().WithEnvPrefix("GATEWAY").Load(&cfg)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "gateway-svc", cfg.Auth.ServiceUsername)
	assert.Equal(t, "redis://cache:6379/0", cfg.Cache.RedisURI)
}
