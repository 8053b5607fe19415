// =============================================================================
// 📦 SkillFlow 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Executor:       DefaultExecutorConfig(),
		Context:        DefaultContextConfig(),
		Cache:          DefaultCacheConfig(),
		Redis:          DefaultRedisConfig(),
		Database:       DefaultDatabaseConfig(),
		Matcher:        DefaultMatcherConfig(),
		Recommendation: DefaultRecommendationConfig(),
		Log:            DefaultLogConfig(),
		Metrics:        DefaultMetricsConfig(),
	}
}

// DefaultExecutorConfig 返回默认执行器配置
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxConcurrent:   5,
		DefaultTimeout:  30 * time.Second,
		DefaultStrategy: "adaptive",
	}
}

// DefaultContextConfig 返回默认上下文配置
func DefaultContextConfig() ContextConfig {
	return ContextConfig{
		HistoryTokenLimit: 8000,
		TokenizerModel:    "",
		SessionMaxAge:     24 * time.Hour,
	}
}

// DefaultCacheConfig 返回默认缓存配置
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      true,
		LocalSize:    1024,
		TTL:          10 * time.Minute,
		RedisEnabled: false,
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "memory",
		Path:            "skillflow.db",
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DefaultMatcherConfig 返回默认匹配配置
func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{
		MaxSkills: 3,
	}
}

// DefaultRecommendationConfig 返回默认推荐配置
func DefaultRecommendationConfig() RecommendationConfig {
	return RecommendationConfig{
		FrequencyWeight:   0.25,
		PerformanceWeight: 0.30,
		ContextWeight:     0.25,
		NoveltyWeight:     0.20,
		RetentionDays:     30,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled: true,
	}
}
