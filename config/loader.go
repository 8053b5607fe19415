// =============================================================================
// 📦 SkillFlow 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("SKILLFLOW").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 SkillFlow 的完整配置结构
type Config struct {
	// Executor 执行器配置
	Executor ExecutorConfig `yaml:"executor" env:"EXECUTOR"`

	// Context 上下文存储配置
	Context ContextConfig `yaml:"context" env:"CONTEXT"`

	// Cache 结果缓存配置
	Cache CacheConfig `yaml:"cache" env:"CACHE"`

	// Redis 缓存后端配置
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Database 数据库配置
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`

	// Matcher 技能匹配配置
	Matcher MatcherConfig `yaml:"matcher" env:"MATCHER"`

	// Recommendation 推荐引擎配置
	Recommendation RecommendationConfig `yaml:"recommendation" env:"RECOMMENDATION"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Metrics 指标配置
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`
}

// ExecutorConfig 执行器配置
type ExecutorConfig struct {
	// 全局最大并发执行数
	MaxConcurrent int `yaml:"max_concurrent" env:"MAX_CONCURRENT"`
	// 元数据未指定时的单技能默认超时
	DefaultTimeout time.Duration `yaml:"default_timeout" env:"DEFAULT_TIMEOUT"`
	// 默认执行策略: parallel, sequential, adaptive
	DefaultStrategy string `yaml:"default_strategy" env:"DEFAULT_STRATEGY"`
}

// ContextConfig 上下文存储配置
type ContextConfig struct {
	// 对话历史 Token 上限，超出时裁剪最旧的消息
	HistoryTokenLimit int `yaml:"history_token_limit" env:"HISTORY_TOKEN_LIMIT"`
	// Token 计数使用的模型名，空则使用估算器
	TokenizerModel string `yaml:"tokenizer_model" env:"TOKENIZER_MODEL"`
	// 会话空闲多久后允许被清理
	SessionMaxAge time.Duration `yaml:"session_max_age" env:"SESSION_MAX_AGE"`
}

// CacheConfig 结果缓存配置
type CacheConfig struct {
	// 是否启用结果缓存
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 内存缓存容量（条目数）
	LocalSize int `yaml:"local_size" env:"LOCAL_SIZE"`
	// 缓存条目 TTL
	TTL time.Duration `yaml:"ttl" env:"TTL"`
	// 是否启用 Redis 二级缓存
	RedisEnabled bool `yaml:"redis_enabled" env:"REDIS_ENABLED"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB int `yaml:"db" env:"DB"`
	// 连接池大小
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
	// 最小空闲连接
	MinIdleConns int `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 驱动类型: sqlite, memory
	Driver string `yaml:"driver" env:"DRIVER"`
	// SQLite 数据库文件路径
	Path string `yaml:"path" env:"PATH"`
	// 最大连接数
	MaxOpenConns int `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	// 最大空闲连接
	MaxIdleConns int `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	// 连接最大生命周期
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// MatcherConfig 技能匹配配置
type MatcherConfig struct {
	// 单次请求最多激活的技能数
	MaxSkills int `yaml:"max_skills" env:"MAX_SKILLS"`
}

// RecommendationConfig 推荐引擎配置
type RecommendationConfig struct {
	// 使用频率权重
	FrequencyWeight float64 `yaml:"frequency_weight" env:"FREQUENCY_WEIGHT"`
	// 表现质量权重
	PerformanceWeight float64 `yaml:"performance_weight" env:"PERFORMANCE_WEIGHT"`
	// 上下文相关性权重
	ContextWeight float64 `yaml:"context_weight" env:"CONTEXT_WEIGHT"`
	// 新颖度权重
	NoveltyWeight float64 `yaml:"novelty_weight" env:"NOVELTY_WEIGHT"`
	// 使用记录保留天数
	RetentionDays int `yaml:"retention_days" env:"RETENTION_DAYS"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// 是否启用 Prometheus 指标
	Enabled bool `yaml:"enabled" env:"ENABLED"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "SKILLFLOW",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	// 1. 从默认值开始
	cfg := DefaultConfig()

	// 2. 如果指定了配置文件，从文件加载
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 3. 从环境变量覆盖
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// 4. 运行验证器
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		// 获取 env tag
		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		// 如果是结构体，递归处理
		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		// 获取环境变量值
		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		// 设置字段值
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	if c.Executor.MaxConcurrent <= 0 {
		errs = append(errs, "executor max_concurrent must be positive")
	}
	switch c.Executor.DefaultStrategy {
	case "parallel", "sequential", "adaptive":
	default:
		errs = append(errs, "executor default_strategy must be parallel, sequential or adaptive")
	}

	if c.Context.HistoryTokenLimit <= 0 {
		errs = append(errs, "context history_token_limit must be positive")
	}

	if c.Cache.Enabled && c.Cache.LocalSize <= 0 {
		errs = append(errs, "cache local_size must be positive when cache is enabled")
	}

	if c.Matcher.MaxSkills <= 0 {
		errs = append(errs, "matcher max_skills must be positive")
	}

	// 推荐权重总和偏离 1.0 不算配置错误，推荐引擎装配时会记日志。

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// DSN 返回数据库连接字符串
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "sqlite":
		if d.Path == "" {
			return "skillflow.db"
		}
		return d.Path
	default:
		return ""
	}
}
