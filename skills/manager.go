package skills

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/skillflow/internal/metrics"
	"github.com/BaSui01/skillflow/types"
)

// Match 匹配器选出的一个候选：技能、生效配置与综合得分。
type Match struct {
	Skill  Skill
	Config types.SkillConfig
	Score  float64
	Reason string
}

// Matcher 技能匹配契约。实现负责意图识别、打分、阈值过滤与冷却，
// 返回按得分降序的候选列表；空列表是合法结果。
type Matcher interface {
	Match(ctx context.Context, sctx *types.SkillContext, maxSkills int) ([]Match, error)
}

// Suggester 可选的技能建议能力，供 UI 展示"可以试试这些技能"。
type Suggester interface {
	Suggest(sctx *types.SkillContext, limit int) []Suggestion
}

// Suggestion 一条技能建议。
type Suggestion struct {
	SkillName   string  `json:"skill_name"`
	DisplayName string  `json:"display_name"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// UsageObserver 技能使用观察者。执行完成后逐结果回调，推荐引擎
// 借此累积使用画像。
type UsageObserver interface {
	ObserveUsage(sctx *types.SkillContext, result *types.SkillResult)
}

// ExecutionSink 执行记录落盘接口，写入为 fire-and-forget，失败只记
// 日志不影响请求。
type ExecutionSink interface {
	SaveExecution(ctx context.Context, exec *types.SkillExecution) error
}

// ProcessOptions 单次请求的可选参数。
type ProcessOptions struct {
	ConversationID int64
	MessageID      int64
	SessionID      string
	History        []types.Message
	ContextData    map[string]any
	Strategy       Strategy // 缺省 adaptive
	MaxSkills      int      // 缺省 3
}

// ManagerStats Manager 累计统计。
type ManagerStats struct {
	TotalRequests      int64 `json:"total_requests"`
	RequestsWithSkills int64 `json:"requests_with_skills"`
	EmptyInputRequests int64 `json:"empty_input_requests"`
	TotalSkillResults  int64 `json:"total_skill_results"`
	SuccessfulResults  int64 `json:"successful_results"`
}

// SystemStatus 引擎整体状态快照。
type SystemStatus struct {
	Registry         RegistryStats          `json:"registry"`
	Executor         ExecutorStats          `json:"executor"`
	Manager          ManagerStats           `json:"manager"`
	ActiveExecutions []types.SkillExecution `json:"active_executions"`
	CharactersLoaded int                    `json:"characters_loaded"`
}

// Manager 技能系统门面：串起上下文构建、匹配、执行与后处理。
// 持有角色技能配置表，并向可选的观察者与持久化层分发结果。
type Manager struct {
	registry  *Registry
	executor  *Executor
	contexts  *ContextStore
	matcher   Matcher
	suggester Suggester
	observers []UsageObserver
	sink      ExecutionSink
	collector *metrics.Collector
	logger    *zap.Logger

	mu      sync.RWMutex
	configs map[int64]map[string]types.SkillConfig // characterID → skillName → config
	stats   ManagerStats
}

// ManagerOption Manager 构造可选项。
type ManagerOption func(*Manager)

// WithSuggester 挂接技能建议实现。
func WithSuggester(s Suggester) ManagerOption {
	return func(m *Manager) { m.suggester = s }
}

// WithUsageObserver 追加使用观察者，可多次调用。
func WithUsageObserver(o UsageObserver) ManagerOption {
	return func(m *Manager) { m.observers = append(m.observers, o) }
}

// WithExecutionSink 挂接持久化层。
func WithExecutionSink(s ExecutionSink) ManagerOption {
	return func(m *Manager) { m.sink = s }
}

// WithMetrics 挂接指标收集器。
func WithMetrics(c *metrics.Collector) ManagerOption {
	return func(m *Manager) { m.collector = c }
}

// NewManager 构造 Manager。registry/executor/contexts/matcher 均为必填。
func NewManager(registry *Registry, executor *Executor, contexts *ContextStore, matcher Matcher, logger *zap.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		registry: registry,
		executor: executor,
		contexts: contexts,
		matcher:  matcher,
		logger:   logger.With(zap.String("component", "skill_manager")),
		configs:  make(map[int64]map[string]types.SkillConfig),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetMatcher 注入匹配器。匹配器反过来依赖 Manager 提供角色配置，
// 装配阶段分两步接线，开始处理请求前必须完成。
func (m *Manager) SetMatcher(mt Matcher) {
	m.matcher = mt
	if m.suggester == nil {
		if s, ok := mt.(Suggester); ok {
			m.suggester = s
		}
	}
}

// ProcessUserInput 处理一次用户输入，返回与被选技能一一对应的结果
// 列表。空输入或无技能匹配时返回空列表，调用方应走普通对话路径。
// 技能失败不会产生 error，只会体现在对应结果的状态里。
func (m *Manager) ProcessUserInput(ctx context.Context, userInput string, characterID int64, character *types.CharacterProfile, opts ProcessOptions) ([]*types.SkillResult, error) {
	m.mu.Lock()
	m.stats.TotalRequests++
	m.mu.Unlock()

	if strings.TrimSpace(userInput) == "" {
		m.mu.Lock()
		m.stats.EmptyInputRequests++
		m.mu.Unlock()
		return []*types.SkillResult{}, nil
	}

	if opts.MaxSkills <= 0 {
		opts.MaxSkills = 3
	}
	if opts.Strategy == "" {
		opts.Strategy = StrategyAdaptive
	}

	sctx := m.contexts.Build(BuildParams{
		UserInput:      userInput,
		CharacterID:    characterID,
		Character:      character,
		ConversationID: opts.ConversationID,
		MessageID:      opts.MessageID,
		SessionID:      opts.SessionID,
		History:        opts.History,
		ContextData:    opts.ContextData,
	})

	matches, err := m.matcher.Match(ctx, sctx, opts.MaxSkills)
	if err != nil {
		return nil, fmt.Errorf("skill matching: %w", err)
	}
	m.collector.ObserveMatchCount(len(matches))
	if len(matches) == 0 {
		m.logger.Debug("无技能匹配", zap.String("request_id", sctx.RequestID))
		return []*types.SkillResult{}, nil
	}

	invocations := make([]Invocation, len(matches))
	for i, match := range matches {
		invocations[i] = Invocation{Skill: match.Skill, Context: sctx, Config: match.Config}
		m.collector.ObserveSelection(match.Skill.Metadata().Name)
	}

	results, err := m.executor.ExecuteMany(ctx, invocations, opts.Strategy)
	if err != nil {
		return nil, fmt.Errorf("skill execution: %w", err)
	}

	m.postProcess(sctx, results)
	m.recordOutcome(sctx, matches, results)
	return results, nil
}

// postProcess 对每个成功结果做内容清理与启发式加分。加分叠加在
// 技能自评之上，不管技能是否自评过。
func (m *Manager) postProcess(sctx *types.SkillContext, results []*types.SkillResult) {
	for _, res := range results {
		if !res.Succeeded() {
			continue
		}
		res.GeneratedContent = normalizeContent(res.GeneratedContent)
		assessResult(sctx.UserInput, res)
	}
}

// recordOutcome 更新统计、使用历史、观察者与持久化。
func (m *Manager) recordOutcome(sctx *types.SkillContext, matches []Match, results []*types.SkillResult) {
	now := time.Now()
	m.mu.Lock()
	m.stats.RequestsWithSkills++
	m.stats.TotalSkillResults += int64(len(results))
	for _, res := range results {
		if res.Succeeded() {
			m.stats.SuccessfulResults++
		}
	}
	m.mu.Unlock()

	for i, res := range results {
		meta := matches[i].Skill.Metadata()
		m.contexts.RecordSkillUse(sctx.ConversationID, types.SkillUse{
			SkillName: meta.Name,
			Category:  meta.Category,
			Status:    res.Status,
			UsedAt:    now,
		})
		for _, obs := range m.observers {
			obs.ObserveUsage(sctx, res)
		}
		if m.sink != nil {
			m.persistAsync(sctx, res)
		}
	}
}

// persistAsync 异步落盘执行记录。持久化对正确性无影响，失败仅告警。
func (m *Manager) persistAsync(sctx *types.SkillContext, res *types.SkillResult) {
	exec := &types.SkillExecution{
		ID:             res.ExecutionID,
		SkillName:      res.SkillName,
		CharacterID:    sctx.CharacterID,
		ConversationID: sctx.ConversationID,
		MessageID:      sctx.MessageID,
		Status:         res.Status,
		Progress:       1.0,
		StartedAt:      res.CreatedAt,
		CompletedAt:    res.CompletedAt,
		ExecutionTime:  res.ExecutionTime,
		Result:         res,
	}
	go func() {
		pctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.sink.SaveExecution(pctx, exec); err != nil {
			m.logger.Warn("执行记录落盘失败",
				zap.String("execution_id", exec.ID),
				zap.Error(err))
		}
	}()
}

// LoadCharacterSkillConfigs 批量加载某角色的技能配置，启动时调用。
// 非法配置整体拒绝并报错，不做部分加载。
func (m *Manager) LoadCharacterSkillConfigs(characterID int64, configs map[string]types.SkillConfig) error {
	for name, cfg := range configs {
		if problems := cfg.Validate(); len(problems) > 0 {
			return types.NewError(types.ErrInvalidConfig,
				fmt.Sprintf("invalid config: %v", problems)).WithSkill(name)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	byName := make(map[string]types.SkillConfig, len(configs))
	for name, cfg := range configs {
		cfg.SkillName = name
		cfg.CharacterID = characterID
		byName[name] = cfg
	}
	m.configs[characterID] = byName
	m.logger.Info("角色技能配置已加载",
		zap.Int64("character_id", characterID),
		zap.Int("skills", len(byName)))
	return nil
}

// ConfigFor 查询角色的技能配置，缺省返回 DefaultSkillConfig。
func (m *Manager) ConfigFor(characterID int64, skillName string) types.SkillConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if byName, ok := m.configs[characterID]; ok {
		if cfg, ok := byName[skillName]; ok {
			return cfg
		}
	}
	return types.DefaultSkillConfig(skillName)
}

// SkillSuggestions 返回当前输入下值得展示的技能建议。
// 未挂接 Suggester 时返回空列表。
func (m *Manager) SkillSuggestions(userInput string, characterID int64, character *types.CharacterProfile, limit int) []Suggestion {
	if m.suggester == nil || strings.TrimSpace(userInput) == "" {
		return nil
	}
	if limit <= 0 {
		limit = 5
	}
	sctx := m.contexts.Build(BuildParams{
		UserInput:   userInput,
		CharacterID: characterID,
		Character:   character,
	})
	return m.suggester.Suggest(sctx, limit)
}

// CancelExecution 透传执行取消。
func (m *Manager) CancelExecution(executionID string) bool {
	return m.executor.CancelExecution(executionID)
}

// Status 返回系统状态快照。
func (m *Manager) Status() SystemStatus {
	m.mu.RLock()
	stats := m.stats
	loaded := len(m.configs)
	m.mu.RUnlock()

	return SystemStatus{
		Registry:         m.registry.Stats(),
		Executor:         m.executor.Stats(),
		Manager:          stats,
		ActiveExecutions: m.executor.ActiveExecutions(),
		CharactersLoaded: loaded,
	}
}

// normalizeContent 去掉首尾空白与内容中间的空行。
func normalizeContent(content string) string {
	lines := strings.Split(strings.TrimSpace(content), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// assessResult 启发式加分：内容越长质量分越高封顶 0.9/0.8，与输入的
// 字符重合度越高相关性越高，每个重合字符 +0.1 单次最多 +0.3。
// 中文输入没有空格分词，按 rune 重合近似原版的词重合。
func assessResult(input string, res *types.SkillResult) {
	n := len([]rune(res.GeneratedContent))
	switch {
	case n > 100:
		res.QualityScore = min(res.QualityScore+0.2, 0.9)
	case n > 50:
		res.QualityScore = min(res.QualityScore+0.1, 0.8)
	}

	if overlap := runeOverlap(input, res.GeneratedContent); overlap > 0 {
		boost := min(float64(overlap)*0.1, 0.3)
		res.RelevanceScore = min(res.RelevanceScore+boost, 1.0)
	}
}

// runeOverlap 统计内容与输入重合的去重字符数，忽略空白与标点。
func runeOverlap(input, content string) int {
	if input == "" || content == "" {
		return 0
	}
	inputSet := make(map[rune]struct{})
	for _, r := range strings.ToLower(input) {
		if !isIgnorableRune(r) {
			inputSet[r] = struct{}{}
		}
	}
	overlap := 0
	seen := make(map[rune]struct{})
	for _, r := range strings.ToLower(content) {
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		if _, ok := inputSet[r]; ok {
			overlap++
		}
	}
	return overlap
}

func isIgnorableRune(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '，', '。', '？', '！', ',', '.', '?', '!', '、':
		return true
	}
	return false
}
