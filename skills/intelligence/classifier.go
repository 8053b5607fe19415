package intelligence

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/skillflow/types"
)

// IntentDefinition 一个意图的识别规则。
type IntentDefinition struct {
	Name     string
	Keywords []string
	Patterns []string
	Category types.SkillCategory
	Weight   float64

	compiled []*regexp.Regexp
}

// EmotionDefinition 一种情感状态的关键词表。声明顺序即平局裁决顺序：
// 票数相同取先声明者。
type EmotionDefinition struct {
	Name     string
	Keywords []string
}

// defaultIntents 内置意图表。切片保证遍历顺序确定。
func defaultIntents() []IntentDefinition {
	return []IntentDefinition{
		// 对话相关意图
		{Name: "deep_conversation", Category: types.CategoryConversation, Weight: 1.0,
			Keywords: []string{"为什么", "如何", "怎么", "原理", "深入", "详细", "解释", "分析"},
			Patterns: []string{`为什么`, `如何`, `怎么`, `原理`}},
		{Name: "storytelling", Category: types.CategoryConversation, Weight: 1.0,
			Keywords: []string{"故事", "经历", "冒险", "传说", "情节", "讲述", "分享"},
			Patterns: []string{`讲.*故事`, `分享.*经历`, `冒险`}},
		{Name: "scientific_explanation", Category: types.CategoryConversation, Weight: 1.0,
			Keywords: []string{"科学", "物理", "相对论", "实验", "理论", "公式", "原理"},
			Patterns: []string{`科学`, `物理`, `理论`, `实验`}},
		{Name: "emotional_support", Category: types.CategoryConversation, Weight: 0.9,
			Keywords: []string{"难过", "开心", "困惑", "迷茫", "担心", "焦虑", "帮助"},
			Patterns: []string{`难过`, `担心`, `困惑`, `帮助`}},
		{Name: "humor", Category: types.CategoryConversation, Weight: 0.8,
			Keywords: []string{"笑话", "有趣", "幽默", "好玩", "搞笑", "开心"},
			Patterns: []string{`笑话`, `有趣`, `幽默`}},

		// 知识相关意图
		{Name: "fact_lookup", Category: types.CategoryKnowledge, Weight: 1.0,
			Keywords: []string{"什么是", "定义", "介绍", "资料", "信息", "查找"},
			Patterns: []string{`什么是`, `定义`, `介绍`}},
		{Name: "analysis", Category: types.CategoryKnowledge, Weight: 1.0,
			Keywords: []string{"分析", "比较", "对比", "评价", "判断", "区别"},
			Patterns: []string{`分析`, `比较`, `对比`}},
		{Name: "memory_recall", Category: types.CategoryKnowledge, Weight: 0.9,
			Keywords: []string{"记得", "之前", "以前", "刚才", "上次", "历史"},
			Patterns: []string{`记得`, `之前`, `以前`}},
		{Name: "comparison", Category: types.CategoryKnowledge, Weight: 0.8,
			Keywords: []string{"比如", "像", "类似", "好比", "如同", "相当于"},
			Patterns: []string{`比如`, `像`, `类似`}},

		// 创意相关意图
		{Name: "creative_writing", Category: types.CategoryCreative, Weight: 1.0,
			Keywords: []string{"写", "创作", "诗", "文章", "小说", "剧本"},
			Patterns: []string{`写`, `创作`, `诗`}},
		{Name: "brainstorming", Category: types.CategoryCreative, Weight: 1.0,
			Keywords: []string{"想法", "创意", "点子", "思路", "灵感", "建议"},
			Patterns: []string{`想法`, `创意`, `建议`}},
		{Name: "roleplay", Category: types.CategoryCreative, Weight: 0.9,
			Keywords: []string{"扮演", "角色", "情景", "模拟", "假设"},
			Patterns: []string{`扮演`, `角色`, `假设`}},
		{Name: "imagination", Category: types.CategoryCreative, Weight: 0.8,
			Keywords: []string{"想象", "如果", "假如", "可能", "也许"},
			Patterns: []string{`想象`, `如果`, `假如`}},

		// 实用相关意图
		{Name: "translation", Category: types.CategoryUtility, Weight: 1.0,
			Keywords: []string{"翻译", "英文", "中文", "语言", "转换"},
			Patterns: []string{`翻译`, `英文`, `中文`}},
		{Name: "summarization", Category: types.CategoryUtility, Weight: 1.0,
			Keywords: []string{"总结", "概括", "归纳", "要点", "摘要"},
			Patterns: []string{`总结`, `概括`, `归纳`}},
		{Name: "planning", Category: types.CategoryUtility, Weight: 0.9,
			Keywords: []string{"计划", "安排", "规划", "步骤", "流程"},
			Patterns: []string{`计划`, `安排`, `规划`}},
		{Name: "reflection", Category: types.CategoryUtility, Weight: 0.8,
			Keywords: []string{"反思", "回顾", "总结", "经验", "教训"},
			Patterns: []string{`反思`, `回顾`, `经验`}},
	}
}

// defaultEmotions 内置情感关键词表。
func defaultEmotions() []EmotionDefinition {
	return []EmotionDefinition{
		{Name: "happy", Keywords: []string{"开心", "高兴", "快乐", "愉快", "兴奋"}},
		{Name: "sad", Keywords: []string{"难过", "伤心", "沮丧", "失落", "悲伤"}},
		{Name: "angry", Keywords: []string{"生气", "愤怒", "恼火", "气愤", "不满"}},
		{Name: "confused", Keywords: []string{"困惑", "迷茫", "不懂", "疑惑", "不明白"}},
		{Name: "anxious", Keywords: []string{"担心", "焦虑", "紧张", "不安", "忧虑"}},
		{Name: "curious", Keywords: []string{"好奇", "想知道", "感兴趣", "想了解"}},
	}
}

// entityPattern 一类实体的提取规则。
type entityPattern struct {
	name string
	re   *regexp.Regexp
}

// IntentStats 意图表统计。
type IntentStats struct {
	TotalIntents   int                 `json:"total_intents"`
	Categories     map[string][]string `json:"categories"`
	CategoryCounts map[string]int      `json:"category_counts"`
}

// FallbackIntent 无任何意图得分时的兜底值。
const (
	FallbackIntent     = "general_conversation"
	fallbackConfidence = 0.5
)

// IntentClassifier 规则式意图识别器：关键词命中率 0.7 权重 + 正则
// 命中率 0.3 权重，乘以意图权重，再按角色与历史做上下文修正。
type IntentClassifier struct {
	mu       sync.RWMutex
	intents  []IntentDefinition
	emotions []EmotionDefinition
	entities []entityPattern
	logger   *zap.Logger
}

// NewIntentClassifier 以内置表构造识别器。
func NewIntentClassifier(logger *zap.Logger) *IntentClassifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &IntentClassifier{
		intents:  defaultIntents(),
		emotions: defaultEmotions(),
		logger:   logger.With(zap.String("component", "intent_classifier")),
		entities: []entityPattern{
			{name: "person", re: regexp.MustCompile(`[A-Za-z\p{Han}]+(?:·[A-Za-z\p{Han}]+)+`)},
			{name: "number", re: regexp.MustCompile(`\d+(?:\.\d+)?`)},
			{name: "time", re: regexp.MustCompile(`今天|明天|昨天|现在|以前|之前|刚才|上次`)},
			{name: "location", re: regexp.MustCompile(`在([\p{Han}A-Za-z]+?(?:地方|地点|地区|城市|国家))`)},
		},
	}
	for i := range c.intents {
		c.intents[i].compile()
	}
	return c
}

func (d *IntentDefinition) compile() {
	d.compiled = d.compiled[:0]
	for _, p := range d.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			continue
		}
		d.compiled = append(d.compiled, re)
	}
}

// Classify 识别用户输入的意图，填充置信度、前三候选、实体与情感。
// 无任何规则命中时回落到 general_conversation / 0.5。
func (c *IntentClassifier) Classify(sctx *types.SkillContext) *types.IntentClassification {
	start := time.Now()
	input := strings.ToLower(sctx.UserInput)

	c.mu.RLock()
	scores := c.baseScores(input)
	c.adjustByContext(scores, sctx)
	order := c.declarationOrderLocked()
	emotions := c.emotions
	entityPatterns := c.entities
	c.mu.RUnlock()

	detected := FallbackIntent
	confidence := fallbackConfidence
	if len(scores) > 0 {
		type scored struct {
			name  string
			score float64
		}
		ranked := make([]scored, 0, len(scores))
		for name, s := range scores {
			ranked = append(ranked, scored{name, s})
		}
		sort.SliceStable(ranked, func(i, j int) bool {
			if ranked[i].score != ranked[j].score {
				return ranked[i].score > ranked[j].score
			}
			return declarationIndex(order, ranked[i].name) < declarationIndex(order, ranked[j].name)
		})
		detected = ranked[0].name
		confidence = ranked[0].score

		var alternatives []types.IntentAlternative
		for _, r := range ranked[1:] {
			if len(alternatives) == 3 {
				break
			}
			alternatives = append(alternatives, types.IntentAlternative{Intent: r.name, Confidence: r.score})
		}

		result := &types.IntentClassification{
			InputText:          sctx.UserInput,
			DetectedIntent:     detected,
			Confidence:         confidence,
			AlternativeIntents: alternatives,
			Entities:           extractEntities(entityPatterns, sctx.UserInput),
			ContextFactors:     contextFactors(sctx, detectEmotion(emotions, input)),
			ProcessingTime:     time.Since(start),
			CreatedAt:          time.Now(),
		}
		return result
	}

	return &types.IntentClassification{
		InputText:      sctx.UserInput,
		DetectedIntent: detected,
		Confidence:     confidence,
		Entities:       extractEntities(entityPatterns, sctx.UserInput),
		ContextFactors: contextFactors(sctx, detectEmotion(emotions, input)),
		ProcessingTime: time.Since(start),
		CreatedAt:      time.Now(),
	}
}

// baseScores 计算每个意图的基础得分。零分意图不入表。
func (c *IntentClassifier) baseScores(input string) map[string]float64 {
	scores := make(map[string]float64)
	for i := range c.intents {
		def := &c.intents[i]
		score := 0.0

		hits := 0
		for _, kw := range def.Keywords {
			if strings.Contains(input, kw) {
				hits++
			}
		}
		if hits > 0 && len(def.Keywords) > 0 {
			score += float64(hits) / float64(len(def.Keywords)) * 0.7
		}

		matched := 0
		for _, re := range def.compiled {
			if re.MatchString(input) {
				matched++
			}
		}
		if matched > 0 && len(def.compiled) > 0 {
			score += float64(matched) / float64(len(def.compiled)) * 0.3
		}

		score *= def.Weight
		if score > 0 {
			scores[def.Name] = score
		}
	}
	return scores
}

// adjustByContext 按角色特征、对话长度与近期技能使用修正得分。
func (c *IntentClassifier) adjustByContext(scores map[string]float64, sctx *types.SkillContext) {
	boost := func(intent string, factor float64) {
		if _, ok := scores[intent]; ok {
			scores[intent] *= factor
		}
	}

	name := sctx.CharacterName()
	switch {
	case strings.Contains(name, "哈利"):
		boost("storytelling", 1.3)
		boost("roleplay", 1.2)
	case strings.Contains(name, "苏格拉底"):
		boost("deep_conversation", 1.5)
		boost("analysis", 1.3)
	case strings.Contains(name, "爱因斯坦"):
		boost("scientific_explanation", 1.5)
		boost("imagination", 1.2)
	}

	if len(sctx.ConversationHistory) > 5 {
		boost("memory_recall", 1.2)
		boost("reflection", 1.1)
	}

	// 近期同类技能用得多则降权，避免连续触发同类意图
	recent := sctx.RecentSkills(3)
	if len(recent) > 0 {
		for intent := range scores {
			category := c.categoryOf(intent)
			if category == "" {
				continue
			}
			similar := 0
			for _, use := range recent {
				if use.Category == category {
					similar++
				}
			}
			if similar > 1 {
				scores[intent] *= 0.8
			}
		}
	}
}

func (c *IntentClassifier) categoryOf(intent string) types.SkillCategory {
	for i := range c.intents {
		if c.intents[i].Name == intent {
			return c.intents[i].Category
		}
	}
	return ""
}

// declarationOrderLocked 给出意图声明顺序的快照。AddCustomIntent 会
// 原地改写 c.intents，排序比较器在锁外跑，只能用快照。
func (c *IntentClassifier) declarationOrderLocked() map[string]int {
	order := make(map[string]int, len(c.intents))
	for i := range c.intents {
		order[c.intents[i].Name] = i
	}
	return order
}

func declarationIndex(order map[string]int, intent string) int {
	if i, ok := order[intent]; ok {
		return i
	}
	return len(order)
}

// detectEmotion 投票式情感识别。票数相同取先声明的情感，保证确定性。
func detectEmotion(emotions []EmotionDefinition, input string) string {
	best := ""
	bestVotes := 0
	for _, def := range emotions {
		votes := 0
		for _, kw := range def.Keywords {
			if strings.Contains(input, kw) {
				votes++
			}
		}
		if votes > bestVotes {
			best = def.Name
			bestVotes = votes
		}
	}
	return best
}

func extractEntities(patterns []entityPattern, input string) map[string][]string {
	entities := make(map[string][]string)
	for _, p := range patterns {
		if matches := p.re.FindAllString(input, -1); len(matches) > 0 {
			entities[p.name] = matches
		}
	}
	if len(entities) == 0 {
		return nil
	}
	return entities
}

func contextFactors(sctx *types.SkillContext, emotion string) map[string]any {
	factors := map[string]any{
		"character_id":        sctx.CharacterID,
		"conversation_length": len(sctx.ConversationHistory),
		"has_history":         len(sctx.ConversationHistory) > 0,
	}
	if emotion != "" {
		factors["emotional_state"] = emotion
	}
	return factors
}

// AddCustomIntent 追加自定义意图。同名意图被覆盖。
func (c *IntentClassifier) AddCustomIntent(def IntentDefinition) {
	if def.Weight == 0 {
		def.Weight = 1.0
	}
	def.compile()

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.intents {
		if c.intents[i].Name == def.Name {
			c.intents[i] = def
			c.logger.Info("自定义意图已更新", zap.String("intent", def.Name))
			return
		}
	}
	c.intents = append(c.intents, def)
	c.logger.Info("自定义意图已添加", zap.String("intent", def.Name))
}

// UpdateIntentWeights 批量更新意图权重，未知意图名被忽略。
func (c *IntentClassifier) UpdateIntentWeights(weights map[string]float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.intents {
		if w, ok := weights[c.intents[i].Name]; ok {
			c.intents[i].Weight = w
		}
	}
}

// SupportedIntents 返回全部意图名，按声明顺序。
func (c *IntentClassifier) SupportedIntents() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, len(c.intents))
	for i := range c.intents {
		names[i] = c.intents[i].Name
	}
	return names
}

// Stats 返回意图表统计。
func (c *IntentClassifier) Stats() IntentStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := IntentStats{
		TotalIntents:   len(c.intents),
		Categories:     make(map[string][]string),
		CategoryCounts: make(map[string]int),
	}
	for i := range c.intents {
		cat := string(c.intents[i].Category)
		s.Categories[cat] = append(s.Categories[cat], c.intents[i].Name)
		s.CategoryCounts[cat]++
	}
	return s
}
