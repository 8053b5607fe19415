// Package skillflow provides a top-level convenience entry point for
// assembling the character skill engine with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/skillflow"
//
//	eng, err := skillflow.New()
//	eng, err := skillflow.New(skillflow.WithConfig(cfg), skillflow.WithLogger(logger))
//
//	results, err := eng.ProcessInput(ctx, "为什么天空是蓝色的？", characterID, profile, skills.ProcessOptions{})
//
// New 装配注册表、上下文存储、执行器、意图分类、技能匹配与推荐引擎，
// 并预注册内置技能与三个预设角色的技能配置。
package skillflow

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/skillflow/config"
	"github.com/BaSui01/skillflow/internal/metrics"
	"github.com/BaSui01/skillflow/persistence"
	"github.com/BaSui01/skillflow/skills"
	"github.com/BaSui01/skillflow/skills/builtin"
	"github.com/BaSui01/skillflow/skills/intelligence"
	"github.com/BaSui01/skillflow/types"
)

// Engine 技能引擎门面，聚合全部子系统。
type Engine struct {
	cfg    *config.Config
	logger *zap.Logger

	registry    *skills.Registry
	contexts    *skills.ContextStore
	executor    *skills.Executor
	manager     *skills.Manager
	classifier  *intelligence.IntentClassifier
	matcher     *intelligence.SkillMatcher
	recommender *intelligence.RecommendationEngine
	store       persistence.Store
	collector   *metrics.Collector

	redisClient *redis.Client
	ownsRedis   bool
	ownsStore   bool
}

// Option 配置 Engine 装配过程。
type Option func(*engineOptions)

type engineOptions struct {
	cfg        *config.Config
	logger     *zap.Logger
	store      persistence.Store
	registerer prometheus.Registerer
	redis      *redis.Client
	extra      []extraSkill
}

type extraSkill struct {
	meta    *types.SkillMetadata
	factory skills.Factory
}

// WithConfig 使用给定配置。缺省为 config.DefaultConfig()。
func WithConfig(cfg *config.Config) Option {
	return func(o *engineOptions) { o.cfg = cfg }
}

// WithLogger 使用自定义 zap logger。缺省按 Log 配置构建。
func WithLogger(logger *zap.Logger) Option {
	return func(o *engineOptions) { o.logger = logger }
}

// WithStore 使用外部持久化存储，Engine 不负责关闭它。
func WithStore(s persistence.Store) Option {
	return func(o *engineOptions) { o.store = s }
}

// WithRegisterer 指定 Prometheus 注册器，测试中传独立 Registry
// 避免指标重复注册。
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *engineOptions) { o.registerer = reg }
}

// WithRedisClient 使用外部 Redis 客户端，Engine 不负责关闭它。
func WithRedisClient(client *redis.Client) Option {
	return func(o *engineOptions) { o.redis = client }
}

// WithSkill 追加注册自定义技能，在内置技能之后注册。
func WithSkill(meta *types.SkillMetadata, factory skills.Factory) Option {
	return func(o *engineOptions) {
		o.extra = append(o.extra, extraSkill{meta: meta, factory: factory})
	}
}

// New 按配置装配引擎。
func New(opts ...Option) (*Engine, error) {
	o := &engineOptions{}
	for _, opt := range opts {
		opt(o)
	}

	cfg := o.cfg
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := o.logger
	if logger == nil {
		logger = buildLogger(cfg.Log)
	}

	eng := &Engine{cfg: cfg, logger: logger}

	if cfg.Metrics.Enabled {
		eng.collector = metrics.NewCollector(o.registerer)
	}

	// 1. 注册表与内置技能
	eng.registry = skills.NewRegistry(logger)
	if err := builtin.RegisterAll(eng.registry); err != nil {
		return nil, fmt.Errorf("register builtin skills: %w", err)
	}
	for _, es := range o.extra {
		if err := eng.registry.Register(es.meta, es.factory); err != nil {
			return nil, fmt.Errorf("register skill %s: %w", es.meta.Name, err)
		}
	}

	// 2. 上下文存储
	var tokenizer types.Tokenizer = types.NewEstimateTokenizer()
	if cfg.Context.TokenizerModel != "" {
		tk, err := types.NewTiktokenTokenizer(cfg.Context.TokenizerModel)
		if err != nil {
			logger.Warn("tiktoken 初始化失败，回退到估算器",
				zap.String("model", cfg.Context.TokenizerModel),
				zap.Error(err))
		} else {
			tokenizer = tk
		}
	}
	eng.contexts = skills.NewContextStore(tokenizer, cfg.Context.HistoryTokenLimit, logger)

	// 3. 结果缓存
	var cache skills.ResultCache
	if cfg.Cache.Enabled {
		local := skills.NewLRUCache(cfg.Cache.LocalSize, cfg.Cache.TTL)
		if cfg.Cache.RedisEnabled {
			client := o.redis
			if client == nil {
				client = redis.NewClient(&redis.Options{
					Addr:         cfg.Redis.Addr,
					Password:     cfg.Redis.Password,
					DB:           cfg.Redis.DB,
					PoolSize:     cfg.Redis.PoolSize,
					MinIdleConns: cfg.Redis.MinIdleConns,
				})
				eng.ownsRedis = true
			}
			eng.redisClient = client
			remote := skills.NewRedisCache(client, cfg.Cache.TTL, logger)
			cache = skills.NewMultiLevelCache(local, remote)
		} else {
			cache = local
		}
	}

	// 4. 执行器
	eng.executor = skills.NewExecutor(int64(cfg.Executor.MaxConcurrent), cache, eng.collector, logger)

	// 5. 持久化
	if o.store != nil {
		eng.store = o.store
	} else {
		store, err := persistence.Open(cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("open persistence store: %w", err)
		}
		eng.store = store
		eng.ownsStore = true
	}

	// 6. 智能层
	eng.classifier = intelligence.NewIntentClassifier(logger)
	eng.recommender = intelligence.NewRecommendationEngine(eng.registry, logger,
		intelligence.WithUsageSink(eng.store),
		intelligence.WithWeights(intelligence.RecommendationWeights{
			UsageFrequency:   cfg.Recommendation.FrequencyWeight,
			PerformanceScore: cfg.Recommendation.PerformanceWeight,
			ContextRelevance: cfg.Recommendation.ContextWeight,
			NoveltyFactor:    cfg.Recommendation.NoveltyWeight,
		}))

	// 7. 编排层。匹配器需要 Manager 提供角色配置，分两步接线。
	eng.manager = skills.NewManager(eng.registry, eng.executor, eng.contexts, nil, logger,
		skills.WithMetrics(eng.collector),
		skills.WithUsageObserver(eng.recommender),
		skills.WithExecutionSink(eng.store))
	eng.matcher = intelligence.NewSkillMatcher(eng.registry, eng.classifier, eng.manager, logger,
		intelligence.WithMatcherMetrics(eng.collector))
	eng.manager.SetMatcher(eng.matcher)

	// 8. 预设角色技能配置
	for characterID, configs := range builtin.CharacterSkillConfigs() {
		if err := eng.manager.LoadCharacterSkillConfigs(characterID, configs); err != nil {
			return nil, fmt.Errorf("load character %d configs: %w", characterID, err)
		}
	}

	logger.Info("技能引擎已就绪",
		zap.Int("skills", eng.registry.Stats().TotalSkills),
		zap.String("strategy", cfg.Executor.DefaultStrategy))

	return eng, nil
}

// ProcessInput 处理一次用户输入。opts.Strategy 为空时使用配置的
// 默认策略。
func (e *Engine) ProcessInput(ctx context.Context, userInput string, characterID int64, character *types.CharacterProfile, opts skills.ProcessOptions) ([]*types.SkillResult, error) {
	if opts.Strategy == "" {
		opts.Strategy = skills.Strategy(e.cfg.Executor.DefaultStrategy)
	}
	if opts.MaxSkills <= 0 {
		opts.MaxSkills = e.cfg.Matcher.MaxSkills
	}
	return e.manager.ProcessUserInput(ctx, userInput, characterID, character, opts)
}

// Suggestions 返回当前输入下的技能建议。
func (e *Engine) Suggestions(userInput string, characterID int64, character *types.CharacterProfile, limit int) []skills.Suggestion {
	return e.manager.SkillSuggestions(userInput, characterID, character, limit)
}

// Recommend 基于使用画像给出技能推荐。
func (e *Engine) Recommend(sctx *types.SkillContext, limit int) []intelligence.Recommendation {
	return e.recommender.Recommend(sctx, limit)
}

// CancelExecution 取消进行中的执行。
func (e *Engine) CancelExecution(executionID string) bool {
	return e.manager.CancelExecution(executionID)
}

// Status 返回系统状态快照。
func (e *Engine) Status() skills.SystemStatus {
	return e.manager.Status()
}

// Manager 返回编排层，供需要细粒度控制的调用方使用。
func (e *Engine) Manager() *skills.Manager { return e.manager }

// Registry 返回技能注册表。
func (e *Engine) Registry() *skills.Registry { return e.registry }

// Contexts 返回上下文存储。
func (e *Engine) Contexts() *skills.ContextStore { return e.contexts }

// Classifier 返回意图分类器。
func (e *Engine) Classifier() *intelligence.IntentClassifier { return e.classifier }

// Recommender 返回推荐引擎。
func (e *Engine) Recommender() *intelligence.RecommendationEngine { return e.recommender }

// Store 返回持久化存储。
func (e *Engine) Store() persistence.Store { return e.store }

// Close 释放引擎持有的资源。外部注入的 store/redis 不在此关闭。
func (e *Engine) Close() error {
	var firstErr error
	if e.ownsStore && e.store != nil {
		if err := e.store.Close(); err != nil {
			firstErr = err
		}
	}
	if e.ownsRedis && e.redisClient != nil {
		if err := e.redisClient.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	_ = e.logger.Sync()
	return firstErr
}

// buildLogger 按日志配置构建 zap logger，构建失败时回退到生产配置。
func buildLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      encoding == "console",
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	}

	var buildOpts []zap.Option
	if cfg.EnableCaller {
		buildOpts = append(buildOpts, zap.AddCaller())
	}
	if cfg.EnableStacktrace {
		buildOpts = append(buildOpts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	logger, err := zapConfig.Build(buildOpts...)
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
