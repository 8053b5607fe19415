package intelligence

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/skillflow/internal/metrics"
	"github.com/BaSui01/skillflow/skills"
	"github.com/BaSui01/skillflow/types"
)

// ConfigProvider 按角色查询技能配置。skills.Manager 满足该接口。
type ConfigProvider interface {
	ConfigFor(characterID int64, skillName string) types.SkillConfig
}

// MatcherStats 匹配器统计。
type MatcherStats struct {
	IntentMappings       int `json:"intent_mappings"`
	CharacterPreferences int `json:"character_preferences"`
	ActiveCooldowns      int `json:"active_cooldowns"`
}

// defaultIntentCategories 意图到技能分类的映射。
func defaultIntentCategories() map[string][]types.SkillCategory {
	return map[string][]types.SkillCategory{
		// 对话类
		"deep_conversation":      {types.CategoryConversation},
		"storytelling":           {types.CategoryConversation},
		"scientific_explanation": {types.CategoryConversation, types.CategoryKnowledge},
		"emotional_support":      {types.CategoryConversation},
		"humor":                  {types.CategoryConversation, types.CategoryCreative},

		// 知识类
		"fact_lookup":   {types.CategoryKnowledge},
		"analysis":      {types.CategoryKnowledge},
		"memory_recall": {types.CategoryKnowledge},
		"comparison":    {types.CategoryKnowledge},

		// 创意类
		"creative_writing": {types.CategoryCreative},
		"brainstorming":    {types.CategoryCreative},
		"roleplay":         {types.CategoryCreative},
		"imagination":      {types.CategoryCreative},

		// 实用类
		"translation":   {types.CategoryUtility},
		"summarization": {types.CategoryUtility},
		"planning":      {types.CategoryUtility},
		"reflection":    {types.CategoryUtility},
	}
}

// defaultCharacterPreferences 预置角色的技能/意图偏好乘数。
func defaultCharacterPreferences() map[string]map[string]float64 {
	return map[string]map[string]float64{
		"哈利·波特": {
			"storytelling":      1.5,
			"roleplay":          1.3,
			"imagination":       1.2,
			"emotional_support": 1.1,
		},
		"苏格拉底": {
			"deep_conversation": 1.5,
			"analysis":          1.4,
			"fact_lookup":       1.2,
			"reflection":        1.3,
		},
		"阿尔伯特·爱因斯坦": {
			"scientific_explanation": 1.5,
			"imagination":            1.3,
			"analysis":               1.2,
			"creative_writing":       1.1,
		},
	}
}

// cooldownKey 冷却按 (角色, 技能) 维度隔离，不同角色互不影响。
func cooldownKey(characterID int64, skillName string) string {
	return fmt.Sprintf("%d|%s", characterID, skillName)
}

// SkillMatcher 加权技能匹配器。先做意图识别，再按
//
//	weight × (0.4·自评置信度 + 0.3·意图匹配 + 0.2·角色偏好 + 0.1·上下文相关性)
//
// 打分，低于阈值或处于冷却期的技能被剔除，返回得分降序的前 N 个。
type SkillMatcher struct {
	registry   *skills.Registry
	classifier *IntentClassifier
	configs    ConfigProvider
	collector  *metrics.Collector
	logger     *zap.Logger
	now        func() time.Time // 可注入时钟，测试模拟冷却流逝

	mu               sync.Mutex
	intentCategories map[string][]types.SkillCategory
	preferences      map[string]map[string]float64
	cooldowns        map[string]time.Time // cooldownKey → 最近选中时刻
}

// MatcherOption SkillMatcher 构造可选项。
type MatcherOption func(*SkillMatcher)

// WithClock 注入时钟，测试用。
func WithClock(now func() time.Time) MatcherOption {
	return func(m *SkillMatcher) { m.now = now }
}

// WithMatcherMetrics 挂接指标收集器。
func WithMatcherMetrics(c *metrics.Collector) MatcherOption {
	return func(m *SkillMatcher) { m.collector = c }
}

// NewSkillMatcher 构造匹配器。classifier 为 nil 时内部新建。
func NewSkillMatcher(registry *skills.Registry, classifier *IntentClassifier, configs ConfigProvider, logger *zap.Logger, opts ...MatcherOption) *SkillMatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if classifier == nil {
		classifier = NewIntentClassifier(logger)
	}
	m := &SkillMatcher{
		registry:         registry,
		classifier:       classifier,
		configs:          configs,
		logger:           logger.With(zap.String("component", "skill_matcher")),
		now:              time.Now,
		intentCategories: defaultIntentCategories(),
		preferences:      defaultCharacterPreferences(),
		cooldowns:        make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match 实现 skills.Matcher。空白输入直接返回空列表。
func (m *SkillMatcher) Match(_ context.Context, sctx *types.SkillContext, maxSkills int) ([]skills.Match, error) {
	if strings.TrimSpace(sctx.UserInput) == "" {
		return nil, nil
	}
	if maxSkills <= 0 {
		maxSkills = 3
	}

	classification := m.classifier.Classify(sctx)
	sctx.DetectedIntent = classification.DetectedIntent
	sctx.IntentConfidence = classification.Confidence
	if emotion, ok := classification.ContextFactors["emotional_state"].(string); ok {
		sctx.EmotionalState = emotion
	}
	m.collector.ObserveIntent(classification.DetectedIntent)

	m.logger.Debug("意图识别完成",
		zap.String("intent", classification.DetectedIntent),
		zap.Float64("confidence", classification.Confidence))

	candidates := m.filterByIntent(sctx.CharacterName(), classification)
	if len(candidates) == 0 {
		m.logger.Debug("无意图相关技能", zap.String("intent", classification.DetectedIntent))
		return nil, nil
	}

	now := m.now()
	var matches []skills.Match
	for _, meta := range candidates {
		cfg := m.configFor(sctx.CharacterID, meta.Name)
		if !cfg.Enabled {
			continue
		}
		skill, err := m.registry.Get(meta.Name)
		if err != nil {
			m.logger.Warn("技能实例化失败", zap.String("skill", meta.Name), zap.Error(err))
			continue
		}
		if !skill.CanHandle(sctx, cfg) {
			continue
		}
		if m.inCooldown(sctx.CharacterID, meta.Name, cfg, now) {
			continue
		}
		if m.usesExhausted(sctx, meta.Name, cfg) {
			continue
		}

		score := m.score(skill, cfg, sctx, classification)
		if score <= 0 {
			continue
		}
		matches = append(matches, skills.Match{
			Skill:  skill,
			Config: cfg,
			Score:  score,
			Reason: classification.DetectedIntent,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > maxSkills {
		matches = matches[:maxSkills]
	}

	// 被选中才进入冷却
	m.mu.Lock()
	for _, match := range matches {
		if match.Config.Cooldown > 0 {
			m.cooldowns[cooldownKey(sctx.CharacterID, match.Skill.Metadata().Name)] = now
		}
	}
	m.mu.Unlock()

	names := make([]string, len(matches))
	for i, match := range matches {
		names[i] = match.Skill.Metadata().Name
	}
	m.logger.Info("技能匹配完成",
		zap.String("intent", classification.DetectedIntent),
		zap.Strings("selected", names))
	return matches, nil
}

// filterByIntent 先按主意图对应分类筛选，无命中时退到候选意图，
// 意图无映射时返回全部可用技能。
func (m *SkillMatcher) filterByIntent(characterName string, classification *types.IntentClassification) []*types.SkillMetadata {
	available := m.registry.ListAvailable(characterName)

	m.mu.Lock()
	categories := m.intentCategories[classification.DetectedIntent]
	m.mu.Unlock()

	if len(categories) == 0 {
		return available
	}

	matched := metasInCategories(available, categories)
	if len(matched) > 0 {
		return matched
	}

	seen := make(map[string]bool)
	var fallback []*types.SkillMetadata
	for _, alt := range classification.AlternativeIntents {
		m.mu.Lock()
		altCategories := m.intentCategories[alt.Intent]
		m.mu.Unlock()
		for _, meta := range metasInCategories(available, altCategories) {
			if !seen[meta.Name] {
				seen[meta.Name] = true
				fallback = append(fallback, meta)
			}
		}
	}
	return fallback
}

func metasInCategories(metas []*types.SkillMetadata, categories []types.SkillCategory) []*types.SkillMetadata {
	var out []*types.SkillMetadata
	for _, meta := range metas {
		for _, cat := range categories {
			if meta.Category == cat {
				out = append(out, meta)
				break
			}
		}
	}
	return out
}

// score 计算综合得分；低于阈值返回 0 表示剔除。
func (m *SkillMatcher) score(skill skills.Skill, cfg types.SkillConfig, sctx *types.SkillContext, classification *types.IntentClassification) float64 {
	base := skill.ConfidenceScore(sctx, cfg) * 0.4
	base += m.intentMatchScore(skill.Metadata(), classification) * 0.3
	base += m.characterPreferenceScore(skill.Metadata(), sctx) * 0.2
	base += contextRelevanceScore(skill.Metadata(), sctx) * 0.1

	weighted := base * cfg.Weight
	if weighted < cfg.Threshold {
		return 0
	}
	return weighted
}

// intentMatchScore 主意图分类命中得满置信度，候选意图命中打七折。
func (m *SkillMatcher) intentMatchScore(meta *types.SkillMetadata, classification *types.IntentClassification) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, cat := range m.intentCategories[classification.DetectedIntent] {
		if meta.Category == cat {
			return classification.Confidence
		}
	}
	for _, alt := range classification.AlternativeIntents {
		for _, cat := range m.intentCategories[alt.Intent] {
			if meta.Category == cat {
				return alt.Confidence * 0.7
			}
		}
	}
	return 0
}

// characterPreferenceScore 角色对技能与意图的偏好乘数，归一化到 [0,1]。
func (m *SkillMatcher) characterPreferenceScore(meta *types.SkillMetadata, sctx *types.SkillContext) float64 {
	name := sctx.CharacterName()
	if name == "" {
		return 0.5
	}
	if !meta.CompatibleWith(name) {
		return 0.1
	}

	prefs := m.preferencesSnapshot(name)

	skillPref := 1.0
	if v, ok := prefs[meta.Name]; ok {
		skillPref = v
	}
	if sctx.DetectedIntent != "" {
		intentPref := 1.0
		if v, ok := prefs[sctx.DetectedIntent]; ok {
			intentPref = v
		}
		return clamp01(min(skillPref*intentPref, 2.0) / 2.0)
	}
	return clamp01(min(skillPref, 2.0) / 2.0)
}

// contextRelevanceScore 对话长度、情感状态与近期使用的修正项。
func contextRelevanceScore(meta *types.SkillMetadata, sctx *types.SkillContext) float64 {
	score := 0.5

	if len(sctx.ConversationHistory) > 10 {
		lower := strings.ToLower(meta.Name)
		if strings.Contains(lower, "memory") || strings.Contains(lower, "reflection") {
			score += 0.2
		}
	}

	switch sctx.EmotionalState {
	case "sad", "anxious":
		if strings.Contains(strings.ToLower(meta.Name), "emotional_support") {
			score += 0.3
		}
	case "curious":
		if meta.Category == types.CategoryKnowledge {
			score += 0.2
		}
	}

	for _, use := range sctx.RecentSkills(5) {
		if use.SkillName == meta.Name {
			score -= 0.2
			break
		}
	}

	return clamp01(score)
}

func (m *SkillMatcher) inCooldown(characterID int64, skillName string, cfg types.SkillConfig, now time.Time) bool {
	if cfg.Cooldown <= 0 {
		return false
	}
	m.mu.Lock()
	lastUsed, ok := m.cooldowns[cooldownKey(characterID, skillName)]
	m.mu.Unlock()
	if !ok {
		return false
	}
	return now.Sub(lastUsed) < cfg.Cooldown
}

// usesExhausted 本对话内使用次数达到上限即剔除。
func (m *SkillMatcher) usesExhausted(sctx *types.SkillContext, skillName string, cfg types.SkillConfig) bool {
	if cfg.MaxUsesPerConversation <= 0 {
		return false
	}
	uses := 0
	for _, use := range sctx.SkillHistory {
		if use.SkillName == skillName {
			uses++
		}
	}
	return uses >= cfg.MaxUsesPerConversation
}

func (m *SkillMatcher) configFor(characterID int64, skillName string) types.SkillConfig {
	if m.configs == nil {
		return types.DefaultSkillConfig(skillName)
	}
	return m.configs.ConfigFor(characterID, skillName)
}

// Suggest 实现 skills.Suggester：不执行技能，只按自评置信度与角色
// 偏好给出排序建议。
func (m *SkillMatcher) Suggest(sctx *types.SkillContext, limit int) []skills.Suggestion {
	name := sctx.CharacterName()
	prefs := m.preferencesSnapshot(name)

	var suggestions []skills.Suggestion
	for _, meta := range m.registry.ListAvailable(name) {
		skill, err := m.registry.Get(meta.Name)
		if err != nil {
			continue
		}
		cfg := types.DefaultSkillConfig(meta.Name)
		if !skill.CanHandle(sctx, cfg) {
			continue
		}
		confidence := skill.ConfidenceScore(sctx, cfg)
		if boost, ok := prefs[meta.Name]; ok {
			confidence *= boost
		}
		suggestions = append(suggestions, skills.Suggestion{
			SkillName:   meta.Name,
			DisplayName: meta.DisplayName,
			Description: meta.Description,
			Score:       min(confidence, 1.0),
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool { return suggestions[i].Score > suggestions[j].Score })
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions
}

// AddIntentMapping 追加或覆盖意图到分类的映射。
func (m *SkillMatcher) AddIntentMapping(intent string, categories []types.SkillCategory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intentCategories[intent] = categories
}

// preferencesSnapshot 拷贝指定角色的偏好表。内层 map 会被
// UpdateCharacterPreferences 原地写入，锁外只能读拷贝。
func (m *SkillMatcher) preferencesSnapshot(characterName string) map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, ok := m.preferences[characterName]
	if !ok {
		return nil
	}
	out := make(map[string]float64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// UpdateCharacterPreferences 合并更新角色偏好。
func (m *SkillMatcher) UpdateCharacterPreferences(characterName string, prefs map[string]float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.preferences[characterName]
	if !ok {
		existing = make(map[string]float64, len(prefs))
		m.preferences[characterName] = existing
	}
	for k, v := range prefs {
		existing[k] = v
	}
	m.logger.Info("角色技能偏好已更新", zap.String("character", characterName))
}

// Stats 返回匹配器统计。
func (m *SkillMatcher) Stats() MatcherStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MatcherStats{
		IntentMappings:       len(m.intentCategories),
		CharacterPreferences: len(m.preferences),
		ActiveCooldowns:      len(m.cooldowns),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

var (
	_ skills.Matcher   = (*SkillMatcher)(nil)
	_ skills.Suggester = (*SkillMatcher)(nil)
)
