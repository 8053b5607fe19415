package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 5, cfg.Executor.MaxConcurrent)
	assert.Equal(t, "adaptive", cfg.Executor.DefaultStrategy)
	assert.Equal(t, 3, cfg.Matcher.MaxSkills)
	assert.True(t, cfg.Cache.Enabled)
	assert.False(t, cfg.Cache.RedisEnabled)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoaderDefaultsWithoutFile(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoaderMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath(filepath.Join(t.TempDir(), "absent.yaml")).Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoaderYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skillflow.yaml")
	data := `
executor:
  max_concurrent: 12
  default_strategy: parallel
cache:
  ttl: 5m
database:
  driver: sqlite
  path: /tmp/test-skillflow.db
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Executor.MaxConcurrent)
	assert.Equal(t, "parallel", cfg.Executor.DefaultStrategy)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)

	// 未覆盖的部分保持默认值
	assert.Equal(t, 3, cfg.Matcher.MaxSkills)
	assert.Equal(t, DefaultConfig().Context.HistoryTokenLimit, cfg.Context.HistoryTokenLimit)
}

func TestLoaderInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("executor: ["), 0o600))

	_, err := NewLoader().WithConfigPath(path).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

func TestLoaderEnvOverride(t *testing.T) {
	t.Setenv("SKILLFLOW_EXECUTOR_MAX_CONCURRENT", "9")
	t.Setenv("SKILLFLOW_EXECUTOR_DEFAULT_TIMEOUT", "45s")
	t.Setenv("SKILLFLOW_CACHE_ENABLED", "false")
	t.Setenv("SKILLFLOW_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("SKILLFLOW_RECOMMENDATION_NOVELTY_WEIGHT", "0.2")
	t.Setenv("SKILLFLOW_LOG_OUTPUT_PATHS", "stdout, /var/log/skillflow.log")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.Executor.MaxConcurrent)
	assert.Equal(t, 45*time.Second, cfg.Executor.DefaultTimeout)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, 0.2, cfg.Recommendation.NoveltyWeight)
	assert.Equal(t, []string{"stdout", "/var/log/skillflow.log"}, cfg.Log.OutputPaths)
}

func TestLoaderEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skillflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("matcher:\n  max_skills: 4\n"), 0o600))
	t.Setenv("SKILLFLOW_MATCHER_MAX_SKILLS", "7")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Matcher.MaxSkills)
}

func TestLoaderCustomEnvPrefix(t *testing.T) {
	t.Setenv("CHATBOT_EXECUTOR_MAX_CONCURRENT", "2")

	cfg, err := NewLoader().WithEnvPrefix("CHATBOT").Load()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Executor.MaxConcurrent)
}

func TestLoaderEnvParseError(t *testing.T) {
	t.Setenv("SKILLFLOW_EXECUTOR_MAX_CONCURRENT", "many")

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SKILLFLOW_EXECUTOR_MAX_CONCURRENT")
}

func TestLoaderValidator(t *testing.T) {
	_, err := NewLoader().
		WithValidator(func(cfg *Config) error { return cfg.Validate() }).
		Load()
	require.NoError(t, err)

	t.Setenv("SKILLFLOW_EXECUTOR_DEFAULT_STRATEGY", "round_robin")
	_, err = NewLoader().
		WithValidator(func(cfg *Config) error { return cfg.Validate() }).
		Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_strategy")
}

func TestConfigValidateErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Executor.MaxConcurrent = 0
	cfg.Matcher.MaxSkills = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_concurrent")
	assert.Contains(t, err.Error(), "max_skills")
}

func TestConfigValidateToleratesSkewedWeights(t *testing.T) {
	// 权重总和偏离 1.0 只记日志，不拒绝配置
	cfg := DefaultConfig()
	cfg.Recommendation.NoveltyWeight = 0.9

	require.NoError(t, cfg.Validate())
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{Driver: "sqlite", Path: "/data/chat.db"}
	assert.Equal(t, "/data/chat.db", d.DSN())

	d = DatabaseConfig{Driver: "sqlite"}
	assert.Equal(t, "skillflow.db", d.DSN())

	d = DatabaseConfig{Driver: "memory"}
	assert.Equal(t, "", d.DSN())
}
