package config

import (
	"errors"
	"testing"

	"menuboard/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("SOURCE_MODE", "")
	t.Setenv("REDIS_HOST", "")
	t.Setenv("KAFKA_TOPIC", "")

	cfg := Load()

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, string(domain.ModeCloudRemote), cfg.SourceMode)
	assert.Equal(t, "localhost", cfg.RedisHost)
	assert.Equal(t, "catalog-changes", cfg.KafkaTopic)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SOURCE_MODE", string(domain.ModeEmbeddedLocal))
	t.Setenv("CLOUD_ENDPOINT_URL", "postgres://pos@cloud.example/posdata")
	t.Setenv("CLOUD_ACCESS_KEY", "secret")

	cfg := Load()

	assert.Equal(t, string(domain.ModeEmbeddedLocal), cfg.SourceMode)
	assert.Equal(t, "postgres://pos@cloud.example/posdata", cfg.CloudEndpointURL)
	assert.Equal(t, "secret", cfg.CloudAccessKey)
}

func TestInitCloudPostgresFailsFastWithoutCredentials(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		missing string
	}{
		{
			name:    "no endpoint",
			cfg:     Config{CloudAccessKey: "secret"},
			missing: "CLOUD_ENDPOINT_URL",
		},
		{
			name:    "no access key",
			cfg:     Config{CloudEndpointURL: "postgres://pos@cloud.example/posdata"},
			missing: "CLOUD_ACCESS_KEY",
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := InitCloudPostgres(testCase.cfg)

			var cerr *domain.ConfigurationError
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, testCase.missing, cerr.Missing)
		})
	}
}
