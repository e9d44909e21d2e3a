package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvFile(t *testing.T, name, content string) {
	t.Helper()

	tempDir := t.TempDir()
	configsDir := filepath.Join(tempDir, "configs")
	require.NoError(t, os.Mkdir(configsDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(configsDir, name+".env"), []byte(content), 0644))

	originalWD, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(originalWD) })
	require.NoError(t, os.Chdir(tempDir))
}

func defaultConfig() *Config {
	v := viper.New()
	setDefaults(v)
	return fromViper(v)
}

func TestLoadConfig_HappyPath(t *testing.T) {
	testAppName := "TestLedger"
	testPort := 9090
	testBrokers := "kafka1:9092,kafka2:9092"

	writeEnvFile(t, "test_happy", fmt.Sprintf(
		"APP_NAME=%s\nSERVER_PORT=%d\nLOG_LEVEL=debug\nKAFKA_ENABLED=true\nKAFKA_BROKERS=%s\nSTORAGE_DRIVER=memory\nLEDGER_MAX_RETRIES=7\n",
		testAppName, testPort, testBrokers,
	))

	cfg, err := LoadConfig("test_happy")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, testAppName, cfg.Application.Name)
	assert.Equal(t, testPort, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, testBrokers, cfg.Kafka.Brokers)
	assert.Equal(t, StorageDriverMemory, cfg.Storage.Driver)
	assert.Equal(t, 7, cfg.Ledger.MaxRetries)

	assert.Equal(t, "development", cfg.Application.Env)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "transfer_requests", cfg.Kafka.TransferTopic)
	assert.Equal(t, 5*time.Second, cfg.Ledger.TxTimeout)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, 10, cfg.WorkerPool.Size)

	cfgWithName, err := LoadConfigWithName("configs/test_happy")
	require.NoError(t, err)
	assert.Equal(t, testAppName, cfgWithName.Application.Name)

	cfgWithNameAndType, err := LoadConfigWithNameAndType("configs/test_happy", "env")
	require.NoError(t, err)
	assert.Equal(t, testAppName, cfgWithNameAndType.Application.Name)
}

func TestLoadConfig_EnvironmentOverridesFile(t *testing.T) {
	writeEnvFile(t, "test_override", "SERVER_PORT=9090\n")
	t.Setenv("SERVER_PORT", "7070")

	cfg, err := LoadConfig("test_override")

	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoadConfig_InvalidStorageDriver(t *testing.T) {
	writeEnvFile(t, "test_invalid", "STORAGE_DRIVER=sqlite\n")

	cfg, err := LoadConfig("test_invalid")

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORAGE_DRIVER must be one of postgres, memory")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantError []string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name: "memory driver skips postgres checks",
			mutate: func(c *Config) {
				c.Storage.Driver = StorageDriverMemory
				c.Postgres = PostgresConfig{}
			},
		},
		{
			name: "postgres driver requires url",
			mutate: func(c *Config) {
				c.Postgres.URL = ""
			},
			wantError: []string{"POSTGRES_URL is required"},
		},
		{
			name: "disabled kafka is not validated",
			mutate: func(c *Config) {
				c.Kafka = KafkaConfig{Enabled: false}
			},
		},
		{
			name: "enabled kafka collects every problem",
			mutate: func(c *Config) {
				c.Kafka = KafkaConfig{Enabled: true}
			},
			wantError: []string{"KAFKA_BROKERS is required", "KAFKA_TRANSFER_TOPIC is required", "KAFKA_DLQ_TOPIC is required"},
		},
		{
			name: "enabled audit requires mongo and breaker settings",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.MongoDB.URI = ""
				c.Audit.Breaker.ConsecutiveFailures = 0
			},
			wantError: []string{"MONGO_URI is required", "AUDIT_BREAKER_CONSECUTIVE_FAILURES must be greater than 0"},
		},
		{
			name: "ledger timeouts must be positive",
			mutate: func(c *Config) {
				c.Ledger.TxTimeout = 0
				c.Ledger.RetryBackoff = 0
				c.Ledger.MaxRetries = -1
			},
			wantError: []string{"LEDGER_TX_TIMEOUT", "LEDGER_RETRY_BACKOFF", "LEDGER_MAX_RETRIES"},
		},
		{
			name: "rate limit needs a burst",
			mutate: func(c *Config) {
				c.RateLimit = RateLimitConfig{RPS: 10, Burst: 0}
			},
			wantError: []string{"RATE_LIMIT_BURST"},
		},
		{
			name: "metrics path must be absolute",
			mutate: func(c *Config) {
				c.Metrics.Path = "metrics"
			},
			wantError: []string{"METRICS_PATH must start with /"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)

			err := cfg.validate()

			if len(tt.wantError) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantError {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}
