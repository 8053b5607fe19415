package builtin

import (
	"context"
	"strings"
	"time"

	"github.com/BaSui01/skillflow/skills"
	"github.com/BaSui01/skillflow/types"
)

// EmotionalSupportSkill 情感支持技能 — 提供共情回应，帮助处理负面情绪。
type EmotionalSupportSkill struct {
	*skills.BaseSkill
}

// NewEmotionalSupportSkill 构造情感支持技能。
func NewEmotionalSupportSkill() *EmotionalSupportSkill {
	return &EmotionalSupportSkill{BaseSkill: skills.NewBaseSkill(EmotionalSupportMetadata())}
}

// EmotionalSupportMetadata 情感支持技能元数据。
func EmotionalSupportMetadata() *types.SkillMetadata {
	return &types.SkillMetadata{
		Name:        "emotional_support",
		DisplayName: "情感支持",
		Description: "提供情感支持和共情，帮助用户处理负面情绪",
		Category:    types.CategoryConversation,
		Version:     "1.0.0",
		Triggers: types.SkillTrigger{
			Keywords:        []string{"难过", "伤心", "沮丧", "焦虑", "担心", "害怕", "孤独"},
			Patterns:        []string{`难过`, `担心`, `焦虑`},
			EmotionalStates: []string{"sad", "anxious", "angry", "confused"},
		},
		Priority:               types.PriorityHigh,
		CharacterCompatibility: []string{"哈利·波特", "苏格拉底"},
		MaxExecutionTime:       10 * time.Second,
		ConcurrentLimit:        3,
		CacheResults:           true,
		Enabled:                true,
	}
}

var (
	emotionalKeywords = []string{"难过", "伤心", "沮丧", "焦虑", "担心", "害怕", "孤独", "失落"}
	negativeEmotions  = []string{"sad", "anxious", "angry", "confused"}
)

// CanHandle 输入含情感关键词或上下文已识别出负面情绪。
func (s *EmotionalSupportSkill) CanHandle(sctx *types.SkillContext, _ types.SkillConfig) bool {
	input := strings.ToLower(sctx.UserInput)
	if containsAny(input, emotionalKeywords) {
		return true
	}
	for _, e := range negativeEmotions {
		if sctx.EmotionalState == e {
			return true
		}
	}
	return false
}

// ConfidenceScore 情感关键词、情感状态与角色三项累加。
func (s *EmotionalSupportSkill) ConfidenceScore(sctx *types.SkillContext, _ types.SkillConfig) float64 {
	input := strings.ToLower(sctx.UserInput)
	score := 0.0

	matches := countContains(input, []string{"难过", "伤心", "沮丧", "焦虑", "担心", "害怕", "孤独"})
	score += min(float64(matches)*0.2, 0.6)

	switch sctx.EmotionalState {
	case "sad", "anxious", "angry":
		score += 0.4
	}
	if strings.Contains(sctx.CharacterName(), "哈利") {
		score += 0.2
	}
	return min(score, 1.0)
}

// Execute 按情感类型与角色风格生成支持性回应。
func (s *EmotionalSupportSkill) Execute(_ context.Context, sctx *types.SkillContext, cfg types.SkillConfig) (*types.SkillResult, error) {
	input := sctx.UserInput
	characterName := sctx.CharacterName()
	emotionType := identifyEmotionType(input, sctx)

	var response string
	switch {
	case strings.Contains(characterName, "哈利"):
		response = harrySupport(emotionType)
	case strings.Contains(characterName, "苏格拉底"):
		response = socratesSupport(emotionType)
	default:
		response = generalSupport(emotionType)
	}

	style := characterName
	if style == "" {
		style = "general"
	}
	return &types.SkillResult{
		SkillName:        s.Metadata().Name,
		Status:           types.StatusCompleted,
		GeneratedContent: response,
		ConfidenceScore:  s.ConfidenceScore(sctx, cfg),
		RelevanceScore:   supportRelevance(response, input),
		QualityScore:     supportQuality(response),
		ResultData: map[string]any{
			"emotion_type":  emotionType,
			"support_style": style,
			"empathy_level": "high",
		},
		CreatedAt: time.Now(),
	}, nil
}

// identifyEmotionType 从输入关键词判断情感类型，无命中时回落到
// 上下文已识别的情感状态。
func identifyEmotionType(input string, sctx *types.SkillContext) string {
	lower := strings.ToLower(input)
	switch {
	case containsAny(lower, []string{"难过", "伤心", "沮丧", "失落"}):
		return "sadness"
	case containsAny(lower, []string{"焦虑", "担心", "害怕", "紧张"}):
		return "anxiety"
	case containsAny(lower, []string{"生气", "愤怒", "恼火"}):
		return "anger"
	case containsAny(lower, []string{"孤独", "寂寞", "没人理解"}):
		return "loneliness"
	case containsAny(lower, []string{"困惑", "迷茫", "不知道"}):
		return "confusion"
	case sctx.EmotionalState != "":
		return sctx.EmotionalState
	default:
		return "general"
	}
}

func harrySupport(emotionType string) string {
	responses := map[string]string{
		"sadness":    "我理解你现在的感受。我也曾经感到非常难过，特别是当我失去重要的人的时候。但我学到了一件事——虽然悲伤是真实的，但它不会永远持续下去。就像邓布利多说过的，'黑暗过后总会有光明'。你并不孤单，总有人关心着你。",
		"anxiety":    "我知道担心的感觉，特别是面对未知的时候。每次面对伏地魔之前，我都会感到恐惧和焦虑。但我发现，和朋友分享这些感受会让我感觉好很多。你也可以试着和信任的人聊聊，有时候说出来就已经减轻了一半的负担。",
		"loneliness": "我从小就感到孤独，在德思礼家的时候，我总觉得没有人真正理解我。但后来我发现，真正的连接不在于身边有多少人，而在于有几个真正关心你的人。即使现在，我也想让你知道，你的感受是重要的，你并不孤单。",
		"confusion":  "生活有时候确实很困惑，就像走在迷雾中一样。我记得有很多次我不知道该做什么决定，感觉一切都没有意义。但每次当我停下来思考，听听内心的声音，答案往往就会出现。给自己一些时间，答案会来的。",
	}
	if r, ok := responses[emotionType]; ok {
		return r
	}
	return "我能感受到你现在的感受。记住，即使在最黑暗的时候，也总有希望的光芒。你比你想象的更强大，而且你不是一个人在战斗。"
}

func socratesSupport(emotionType string) string {
	responses := map[string]string{
		"sadness":   "你感到悲伤，这表明你内心深处有所牵挂，有所珍视。让我问你：如果一个人从不感到悲伤，这意味着什么？也许悲伤正是我们人性的体现，是我们能够爱的证明。虽然痛苦，但它也提醒我们什么是真正重要的。",
		"anxiety":   "焦虑常常来自于对未来的担忧。但让我们思考一下：我们能控制的是什么？是过去已经发生的事，还是尚未到来的未来？还是此时此刻的我们自己？也许真正的平静来自于专注于我们能够掌控的东西。",
		"confusion": "困惑是智慧的开始，我的朋友。当我们不再困惑时，可能就停止了思考。你的困惑说明你在认真对待生活，在寻找真正的答案。这难道不是值得赞赏的吗？让我们一起探索这个困惑，也许其中隐藏着重要的真理。",
	}
	if r, ok := responses[emotionType]; ok {
		return r
	}
	return "情感是人类最真实的体验。你愿意和我一起探讨这种感受吗？有时候，理解我们的情感比消除它们更重要。"
}

func generalSupport(emotionType string) string {
	responses := map[string]string{
		"sadness":    "我能理解你现在的感受。悲伤是人类情感的一部分，它提醒我们什么对我们来说是重要的。虽然现在很痛苦，但请记住，这种感受会过去的。你并不孤单，总有人愿意倾听和支持你。",
		"anxiety":    "焦虑让人很不舒服，我理解。但请记住，大多数我们担心的事情都不会发生。试着专注于现在这一刻，深深呼吸，告诉自己你能够处理遇到的挑战。",
		"loneliness": "孤独是一种很深的感受，让人觉得与世界失去了连接。但请记住，即使在最孤独的时刻，也有人关心着你。有时候，主动向别人伸出手，也会帮助我们重新建立连接。",
	}
	if r, ok := responses[emotionType]; ok {
		return r
	}
	return "我听到了你的感受，这些感受都是真实和重要的。记住，寻求帮助是勇敢的表现，不是软弱。"
}

func supportQuality(response string) float64 {
	score := 0.0
	empathy := countContains(response, []string{"理解", "感受", "知道", "明白"})
	score += min(float64(empathy)*0.15, 0.4)

	support := countContains(response, []string{"不孤单", "关心", "支持", "帮助", "陪伴"})
	score += min(float64(support)*0.1, 0.3)

	positive := countContains(response, []string{"希望", "光明", "强大", "可以", "能够"})
	score += min(float64(positive)*0.1, 0.3)

	return min(score, 1.0)
}

func supportRelevance(response, input string) float64 {
	score := 0.8 // 情感支持通常都比较相关
	lower := strings.ToLower(input)
	for _, emotion := range []string{"难过", "担心", "焦虑", "害怕", "孤独"} {
		if strings.Contains(lower, emotion) && strings.Contains(response, emotion) {
			score += 0.1
		}
	}
	return min(score, 1.0)
}

var _ skills.Skill = (*EmotionalSupportSkill)(nil)
