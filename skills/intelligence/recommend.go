package intelligence

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/skillflow/skills"
	"github.com/BaSui01/skillflow/types"
)

// RecommendationWeights 推荐得分四要素的权重。
type RecommendationWeights struct {
	UsageFrequency   float64 `json:"usage_frequency" yaml:"usage_frequency"`
	PerformanceScore float64 `json:"performance_score" yaml:"performance_score"`
	ContextRelevance float64 `json:"context_relevance" yaml:"context_relevance"`
	NoveltyFactor    float64 `json:"novelty_factor" yaml:"novelty_factor"`
}

// DefaultRecommendationWeights 缺省权重。
func DefaultRecommendationWeights() RecommendationWeights {
	return RecommendationWeights{
		UsageFrequency:   0.25,
		PerformanceScore: 0.30,
		ContextRelevance: 0.25,
		NoveltyFactor:    0.20,
	}
}

// timeDecayFactor 使用频率的日衰减系数，每天衰减 5%。
const timeDecayFactor = 0.95

// Recommendation 一条技能推荐。
type Recommendation struct {
	SkillName   string              `json:"skill_name"`
	DisplayName string              `json:"display_name"`
	Description string              `json:"description"`
	Category    types.SkillCategory `json:"category"`
	Score       float64             `json:"recommendation_score"`
	Reasoning   string              `json:"reasoning"`

	PredictedQuality     float64       `json:"predicted_quality"`
	PredictedRelevance   float64       `json:"predicted_relevance"`
	PredictedTime        time.Duration `json:"predicted_execution_time"`
	PredictedSuccessRate float64       `json:"predicted_success_rate"`

	TotalUses  int       `json:"total_uses"`
	RecentUses int       `json:"recent_uses"`
	LastUsedAt time.Time `json:"last_used_at,omitempty"`
}

// UserInsights 用户技能使用洞察。
type UserInsights struct {
	TotalSkillUses      int            `json:"total_skill_uses"`
	MostUsedSkills      []SkillCount   `json:"most_used_skills"`
	FavoriteContexts    []ContextCount `json:"favorite_contexts"`
	AverageSatisfaction float64        `json:"average_satisfaction"`
	RecentActivity      int            `json:"recent_activity"`
	SkillDiversity      int            `json:"skill_diversity"`
}

// SkillCount / ContextCount 计数对。
type SkillCount struct {
	SkillName string `json:"skill_name"`
	Count     int    `json:"count"`
}

type ContextCount struct {
	ContextType string `json:"context_type"`
	Count       int    `json:"count"`
}

// UsageSink 使用记录落盘接口，persistence.Store 满足。写入为
// fire-and-forget。
type UsageSink interface {
	SaveUsage(ctx context.Context, rec *types.SkillUsageRecord) error
}

// performanceSample 单技能的一次性能采样。
type performanceSample struct {
	timestamp     time.Time
	executionTime time.Duration
	quality       float64
	relevance     float64
	success       bool
}

// RecommendationEngine 基于使用画像的技能推荐引擎。得分由四项加权：
// 时间衰减的使用频率、近期性能、上下文关联度与新颖性；输出经分类
// 轮转保证多样性。实现 skills.UsageObserver，由 Manager 在每次执行
// 后喂入数据。
type RecommendationEngine struct {
	registry *skills.Registry
	sink     UsageSink
	logger   *zap.Logger
	now      func() time.Time

	mu           sync.Mutex
	weights      RecommendationWeights
	usage        map[string][]*types.SkillUsageRecord // userID → 按时间追加
	performance  map[string][]performanceSample       // skillName → 采样
	associations map[string]map[string]int            // contextKey → skillName → 次数
}

// EngineOption RecommendationEngine 构造可选项。
type EngineOption func(*RecommendationEngine)

// WithUsageSink 挂接使用记录持久化。
func WithUsageSink(s UsageSink) EngineOption {
	return func(e *RecommendationEngine) { e.sink = s }
}

// WithEngineClock 注入时钟，测试模拟衰减。
func WithEngineClock(now func() time.Time) EngineOption {
	return func(e *RecommendationEngine) { e.now = now }
}

// WithWeights 覆盖缺省权重。总和偏离 1.0 只告警不拒绝。
func WithWeights(w RecommendationWeights) EngineOption {
	return func(e *RecommendationEngine) { e.weights = w }
}

// NewRecommendationEngine 构造推荐引擎。
func NewRecommendationEngine(registry *skills.Registry, logger *zap.Logger, opts ...EngineOption) *RecommendationEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &RecommendationEngine{
		registry:     registry,
		logger:       logger.With(zap.String("component", "recommendation_engine")),
		now:          time.Now,
		weights:      DefaultRecommendationWeights(),
		usage:        make(map[string][]*types.SkillUsageRecord),
		performance:  make(map[string][]performanceSample),
		associations: make(map[string]map[string]int),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.warnWeightSum()
	return e
}

func (e *RecommendationEngine) warnWeightSum() {
	sum := e.weights.UsageFrequency + e.weights.PerformanceScore +
		e.weights.ContextRelevance + e.weights.NoveltyFactor
	if math.Abs(sum-1.0) > 0.01 {
		e.logger.Warn("推荐权重总和不为 1.0", zap.Float64("sum", sum))
	}
}

// userKey 以会话标识优先，其次按角色维度聚合。
func userKey(sctx *types.SkillContext) string {
	if sctx.SessionID != "" {
		return sctx.SessionID
	}
	return fmt.Sprintf("character:%d", sctx.CharacterID)
}

// contextKey 由意图、情感与对话长度档位构成的上下文签名。
func contextKey(sctx *types.SkillContext) string {
	var parts []string
	if sctx.DetectedIntent != "" {
		parts = append(parts, "intent:"+sctx.DetectedIntent)
	}
	if sctx.EmotionalState != "" {
		parts = append(parts, "emotion:"+sctx.EmotionalState)
	}
	n := len(sctx.ConversationHistory)
	switch {
	case n <= 2:
		parts = append(parts, "conversation:short")
	case n <= 10:
		parts = append(parts, "conversation:medium")
	default:
		parts = append(parts, "conversation:long")
	}
	if len(parts) == 0 {
		return "general"
	}
	return strings.Join(parts, "|")
}

// ObserveUsage 实现 skills.UsageObserver：累积使用画像并异步落盘。
func (e *RecommendationEngine) ObserveUsage(sctx *types.SkillContext, result *types.SkillResult) {
	now := e.now()
	rec := &types.SkillUsageRecord{
		UserID:           userKey(sctx),
		SkillName:        result.SkillName,
		CharacterID:      sctx.CharacterID,
		Intent:           sctx.DetectedIntent,
		ContextType:      contextKey(sctx),
		Success:          result.Succeeded(),
		ExecutionTime:    result.ExecutionTime,
		QualityScore:     result.QualityScore,
		RelevanceScore:   result.RelevanceScore,
		UserSatisfaction: estimateSatisfaction(result),
		Timestamp:        now,
	}

	e.mu.Lock()
	e.usage[rec.UserID] = append(e.usage[rec.UserID], rec)
	assoc, ok := e.associations[rec.ContextType]
	if !ok {
		assoc = make(map[string]int)
		e.associations[rec.ContextType] = assoc
	}
	assoc[rec.SkillName]++
	e.performance[rec.SkillName] = append(e.performance[rec.SkillName], performanceSample{
		timestamp:     now,
		executionTime: result.ExecutionTime,
		quality:       result.QualityScore,
		relevance:     result.RelevanceScore,
		success:       result.Succeeded(),
	})
	e.mu.Unlock()

	if e.sink != nil {
		go func() {
			pctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := e.sink.SaveUsage(pctx, rec); err != nil {
				e.logger.Warn("使用记录落盘失败", zap.String("skill", rec.SkillName), zap.Error(err))
			}
		}()
	}
}

func estimateSatisfaction(result *types.SkillResult) float64 {
	if !result.Succeeded() {
		return 0.2
	}
	s := result.QualityScore*0.5 + result.RelevanceScore*0.3 + result.ConfidenceScore*0.2
	return math.Min(s, 1.0)
}

// Recommend 为当前上下文生成技能推荐，输出按分类轮转保证多样性。
func (e *RecommendationEngine) Recommend(sctx *types.SkillContext, maxRecommendations int) []Recommendation {
	if maxRecommendations <= 0 {
		maxRecommendations = 5
	}
	user := userKey(sctx)
	ckey := contextKey(sctx)

	var recs []Recommendation
	for _, meta := range e.registry.ListAvailable(sctx.CharacterName()) {
		score := e.scoreSkill(user, ckey, meta.Name)
		if score <= 0 {
			continue
		}
		rec := Recommendation{
			SkillName:   meta.Name,
			DisplayName: meta.DisplayName,
			Description: meta.Description,
			Category:    meta.Category,
			Score:       score,
			Reasoning:   e.reasoning(user, ckey, meta.Name, sctx.DetectedIntent),
		}
		e.fillPrediction(&rec)
		e.fillUsageStats(user, &rec)
		recs = append(recs, rec)
	}

	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Score > recs[j].Score })
	out := diversify(recs, maxRecommendations)
	e.logger.Debug("生成技能推荐", zap.Int("count", len(out)))
	return out
}

func (e *RecommendationEngine) scoreSkill(user, ckey, skillName string) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	total := e.usageFrequencyLocked(user, skillName)*e.weights.UsageFrequency +
		e.performanceLocked(skillName)*e.weights.PerformanceScore +
		e.contextRelevanceLocked(ckey, skillName)*e.weights.ContextRelevance +
		e.noveltyLocked(user, skillName)*e.weights.NoveltyFactor
	return math.Min(total, 1.0)
}

// usageFrequencyLocked 时间衰减的使用频率，按总使用量归一化。
func (e *RecommendationEngine) usageFrequencyLocked(user, skillName string) float64 {
	history := e.usage[user]
	if len(history) == 0 {
		return 0.3 // 新用户
	}
	now := e.now()
	weighted := 0.0
	seen := false
	for _, rec := range history {
		if rec.SkillName != skillName {
			continue
		}
		seen = true
		days := now.Sub(rec.Timestamp).Hours() / 24
		if days < 0 {
			days = 0
		}
		weighted += math.Pow(timeDecayFactor, math.Floor(days))
	}
	if !seen {
		return 0.2 // 从未用过：低但非零
	}
	return math.Min(weighted/float64(len(history))*2, 1.0)
}

// performanceLocked 最近 10 次执行的 0.4·质量 + 0.4·相关性 + 0.2·成功率。
func (e *RecommendationEngine) performanceLocked(skillName string) float64 {
	samples := e.performance[skillName]
	if len(samples) == 0 {
		return 0.5
	}
	if len(samples) > 10 {
		samples = samples[len(samples)-10:]
	}
	var quality, relevance, successes float64
	for _, s := range samples {
		quality += s.quality
		relevance += s.relevance
		if s.success {
			successes++
		}
	}
	n := float64(len(samples))
	return quality/n*0.4 + relevance/n*0.4 + successes/n*0.2
}

// contextRelevanceLocked 技能在等价上下文签名下的历史使用占比。
func (e *RecommendationEngine) contextRelevanceLocked(ckey, skillName string) float64 {
	assoc := e.associations[ckey]
	if len(assoc) == 0 {
		return 0.4 // 新上下文
	}
	total := 0
	for _, n := range assoc {
		total += n
	}
	if total == 0 {
		return 0.4
	}
	return math.Min(float64(assoc[skillName])/float64(total)*2, 1.0)
}

// noveltyLocked 与最近 10 次使用中的出现次数成反比。
func (e *RecommendationEngine) noveltyLocked(user, skillName string) float64 {
	history := e.usage[user]
	if len(history) == 0 {
		return 1.0
	}
	recent := history
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}
	freq := 0
	for _, rec := range recent {
		if rec.SkillName == skillName {
			freq++
		}
	}
	switch {
	case freq == 0:
		return 1.0
	case freq <= 2:
		return 0.7
	case freq <= 5:
		return 0.4
	default:
		return 0.1
	}
}

func (e *RecommendationEngine) fillPrediction(rec *Recommendation) {
	e.mu.Lock()
	defer e.mu.Unlock()

	samples := e.performance[rec.SkillName]
	if len(samples) == 0 {
		rec.PredictedQuality = 0.5
		rec.PredictedRelevance = 0.5
		rec.PredictedTime = 10 * time.Second
		rec.PredictedSuccessRate = 0.8
		return
	}
	if len(samples) > 20 {
		samples = samples[len(samples)-20:]
	}
	var quality, relevance, successes float64
	var elapsed time.Duration
	for _, s := range samples {
		quality += s.quality
		relevance += s.relevance
		elapsed += s.executionTime
		if s.success {
			successes++
		}
	}
	n := float64(len(samples))
	rec.PredictedQuality = quality / n
	rec.PredictedRelevance = relevance / n
	rec.PredictedTime = elapsed / time.Duration(len(samples))
	rec.PredictedSuccessRate = successes / n
}

func (e *RecommendationEngine) fillUsageStats(user string, rec *Recommendation) {
	e.mu.Lock()
	defer e.mu.Unlock()

	weekAgo := e.now().AddDate(0, 0, -7)
	for _, r := range e.usage[user] {
		if r.SkillName != rec.SkillName {
			continue
		}
		rec.TotalUses++
		if r.Timestamp.After(weekAgo) {
			rec.RecentUses++
		}
		if r.Timestamp.After(rec.LastUsedAt) {
			rec.LastUsedAt = r.Timestamp
		}
	}
}

func (e *RecommendationEngine) reasoning(user, ckey, skillName, intent string) string {
	e.mu.Lock()
	usage := e.usageFrequencyLocked(user, skillName)
	performance := e.performanceLocked(skillName)
	relevance := e.contextRelevanceLocked(ckey, skillName)
	e.mu.Unlock()

	var reasons []string
	if usage > 0.7 {
		reasons = append(reasons, "您经常使用此类技能")
	} else if usage < 0.3 {
		reasons = append(reasons, "尝试新技能")
	}
	if performance > 0.8 {
		reasons = append(reasons, "该技能表现优异")
	}
	if relevance > 0.6 {
		reasons = append(reasons, "适合当前对话情境")
	}
	switch intent {
	case "deep_conversation":
		reasons = append(reasons, "适合深度交流")
	case "storytelling":
		reasons = append(reasons, "适合故事分享")
	case "scientific_explanation":
		reasons = append(reasons, "适合科学探讨")
	case "creative_writing":
		reasons = append(reasons, "适合创意表达")
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "推荐尝试")
	}
	return strings.Join(reasons, "，")
}

// diversify 分类轮转挑选，保证推荐覆盖不同类别。
func diversify(recs []Recommendation, max int) []Recommendation {
	if len(recs) <= max {
		return recs
	}

	groups := make(map[types.SkillCategory][]Recommendation)
	var order []types.SkillCategory
	for _, rec := range recs {
		if _, ok := groups[rec.Category]; !ok {
			order = append(order, rec.Category)
		}
		groups[rec.Category] = append(groups[rec.Category], rec)
	}

	out := make([]Recommendation, 0, max)
	for i := 0; len(out) < max; i++ {
		cat := order[i%len(order)]
		if len(groups[cat]) > 0 {
			out = append(out, groups[cat][0])
			groups[cat] = groups[cat][1:]
		}
		remaining := 0
		for _, g := range groups {
			remaining += len(g)
		}
		if remaining == 0 {
			break
		}
	}
	return out
}

// UserInsights 返回某用户的使用洞察；无数据时返回零值。
func (e *RecommendationEngine) UserInsights(userID string) UserInsights {
	e.mu.Lock()
	defer e.mu.Unlock()

	history := e.usage[userID]
	if len(history) == 0 {
		return UserInsights{}
	}

	skillCounts := make(map[string]int)
	contextCounts := make(map[string]int)
	distinct := make(map[string]bool)
	satisfaction := 0.0
	weekAgo := e.now().AddDate(0, 0, -7)
	recent := 0
	for _, rec := range history {
		skillCounts[rec.SkillName]++
		contextCounts[rec.ContextType]++
		distinct[rec.SkillName] = true
		satisfaction += rec.UserSatisfaction
		if rec.Timestamp.After(weekAgo) {
			recent++
		}
	}

	return UserInsights{
		TotalSkillUses:      len(history),
		MostUsedSkills:      topSkills(skillCounts, 5),
		FavoriteContexts:    topContexts(contextCounts, 3),
		AverageSatisfaction: satisfaction / float64(len(history)),
		RecentActivity:      recent,
		SkillDiversity:      len(distinct),
	}
}

func topSkills(counts map[string]int, n int) []SkillCount {
	out := make([]SkillCount, 0, len(counts))
	for name, c := range counts {
		out = append(out, SkillCount{SkillName: name, Count: c})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].SkillName < out[j].SkillName
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func topContexts(counts map[string]int, n int) []ContextCount {
	out := make([]ContextCount, 0, len(counts))
	for key, c := range counts {
		out = append(out, ContextCount{ContextType: key, Count: c})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].ContextType < out[j].ContextType
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// UpdateWeights 更新推荐权重。总和偏离 1.0 记告警但不拒绝。
func (e *RecommendationEngine) UpdateWeights(w RecommendationWeights) {
	e.mu.Lock()
	e.weights = w
	e.mu.Unlock()
	e.warnWeightSum()
	e.logger.Info("推荐权重已更新")
}

// ClearOldData 清理早于保留窗口的使用与性能数据，返回清理条数。
func (e *RecommendationEngine) ClearOldData(daysToKeep int) int {
	if daysToKeep <= 0 {
		daysToKeep = 30
	}
	cutoff := e.now().AddDate(0, 0, -daysToKeep)

	e.mu.Lock()
	defer e.mu.Unlock()

	removed := 0
	for user, history := range e.usage {
		kept := history[:0]
		for _, rec := range history {
			if rec.Timestamp.After(cutoff) {
				kept = append(kept, rec)
			} else {
				removed++
			}
		}
		e.usage[user] = kept
	}
	for skill, samples := range e.performance {
		kept := samples[:0]
		for _, s := range samples {
			if s.timestamp.After(cutoff) {
				kept = append(kept, s)
			} else {
				removed++
			}
		}
		e.performance[skill] = kept
	}

	e.logger.Info("清理过期使用数据",
		zap.Int("days_kept", daysToKeep),
		zap.Int("removed", removed))
	return removed
}

var _ skills.UsageObserver = (*RecommendationEngine)(nil)
