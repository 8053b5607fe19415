package builtin

import (
	"context"
	"strings"
	"time"

	"github.com/BaSui01/skillflow/skills"
	"github.com/BaSui01/skillflow/types"
)

// DeepQuestioningSkill 深度提问技能 — 苏格拉底式提问，引导用户深入
// 思考问题的本质。
type DeepQuestioningSkill struct {
	*skills.BaseSkill
}

// NewDeepQuestioningSkill 构造深度提问技能。
func NewDeepQuestioningSkill() *DeepQuestioningSkill {
	return &DeepQuestioningSkill{BaseSkill: skills.NewBaseSkill(DeepQuestioningMetadata())}
}

// DeepQuestioningMetadata 深度提问技能元数据。
func DeepQuestioningMetadata() *types.SkillMetadata {
	return &types.SkillMetadata{
		Name:        "deep_questioning",
		DisplayName: "深度提问",
		Description: "通过苏格拉底式提问方法，引导用户深入思考问题的本质和内在逻辑",
		Category:    types.CategoryConversation,
		Version:     "1.0.0",
		Triggers: types.SkillTrigger{
			Keywords:        []string{"为什么", "如何", "怎么", "原理", "本质", "深入", "思考"},
			Patterns:        []string{`为什么`, `如何`, `怎么`, `原理`},
			IntentTypes:     []string{"deep_conversation", "analysis"},
			EmotionalStates: []string{"curious", "confused"},
		},
		Priority:               types.PriorityHigh,
		CharacterCompatibility: []string{"苏格拉底", "阿尔伯特·爱因斯坦"},
		MaxExecutionTime:       15 * time.Second,
		ConcurrentLimit:        3,
		CacheResults:           true,
		Enabled:                true,
	}
}

var questionIndicators = []string{"为什么", "如何", "怎么", "原理", "本质", "深入", "为何", "何以"}

// CanHandle 要求输入含疑问词或以问号结尾，且长度不至于太短。
func (s *DeepQuestioningSkill) CanHandle(sctx *types.SkillContext, _ types.SkillConfig) bool {
	input := strings.ToLower(sctx.UserInput)
	trimmed := strings.TrimSpace(input)

	hasQuestion := containsAny(input, questionIndicators)
	endsWithQuestion := strings.HasSuffix(trimmed, "?") || strings.HasSuffix(trimmed, "？")
	substantial := len([]rune(trimmed)) >= 5

	return (hasQuestion || endsWithQuestion) && substantial
}

// ConfidenceScore 疑问词、问号、角色与意图四项累加，封顶 1.0。
func (s *DeepQuestioningSkill) ConfidenceScore(sctx *types.SkillContext, _ types.SkillConfig) float64 {
	input := strings.ToLower(sctx.UserInput)
	score := 0.0

	matches := countContains(input, []string{"为什么", "如何", "怎么", "原理", "本质", "深入", "为何"})
	score += min(float64(matches)*0.2, 0.6)

	trimmed := strings.TrimSpace(input)
	if strings.HasSuffix(trimmed, "?") || strings.HasSuffix(trimmed, "？") {
		score += 0.3
	}
	if strings.Contains(sctx.CharacterName(), "苏格拉底") {
		score += 0.2
	}
	if sctx.DetectedIntent == "deep_conversation" {
		score += 0.3
	}
	return min(score, 1.0)
}

// Execute 按问题类型与角色风格生成反问式回应。
func (s *DeepQuestioningSkill) Execute(_ context.Context, sctx *types.SkillContext, cfg types.SkillConfig) (*types.SkillResult, error) {
	input := sctx.UserInput
	characterName := sctx.CharacterName()
	questionType := analyzeQuestionType(input)

	var response string
	var style string
	switch {
	case strings.Contains(characterName, "苏格拉底"):
		response = socraticResponse(input, questionType)
		style = "socratic"
	case strings.Contains(characterName, "爱因斯坦"):
		response = einsteinResponse(input, questionType)
		style = "general"
	default:
		response = generalQuestioningResponse(input, questionType)
		style = "general"
	}

	return &types.SkillResult{
		SkillName:        s.Metadata().Name,
		Status:           types.StatusCompleted,
		GeneratedContent: response,
		ConfidenceScore:  s.ConfidenceScore(sctx, cfg),
		RelevanceScore:   questioningRelevance(response, input, sctx),
		QualityScore:     questioningQuality(response),
		ResultData: map[string]any{
			"question_type":   questionType,
			"character_style": style,
			"word_count":      len([]rune(response)),
		},
		CreatedAt: time.Now(),
	}, nil
}

// analyzeQuestionType 把问题归为因果/程序/定义/比较/探索五类。
func analyzeQuestionType(input string) string {
	lower := strings.ToLower(input)
	switch {
	case containsAny(lower, []string{"为什么", "为何", "原因", "why"}):
		return "causal"
	case containsAny(lower, []string{"如何", "怎么", "方法", "how"}):
		return "procedural"
	case containsAny(lower, []string{"是什么", "定义", "本质", "what"}):
		return "definitional"
	case containsAny(lower, []string{"哪个", "which", "选择"}):
		return "comparative"
	default:
		return "exploratory"
	}
}

func socraticResponse(input, questionType string) string {
	templates := map[string][]string{
		"causal": {
			"让我们先思考一下，当你问'{question}'时，你是否已经考虑过可能的原因？你认为最重要的因素是什么？",
			"这是一个很好的问题。在寻找答案之前，我想问你：你是否注意到这个现象背后可能存在多个层面的原因？",
			"'{question}' - 这让我想起一个问题：我们是在寻找直接原因，还是在探寻更深层的根本原因？你觉得这两者有什么区别？",
		},
		"procedural": {
			"你问的是方法，这很好。但让我们先退一步思考：你认为找到正确方法的关键在于什么？",
			"在我回答'{question}'之前，我想了解你的想法：你已经尝试过哪些方法？它们为什么没有成功？",
			"方法很重要，但更重要的是理解为什么这个方法有效。你能想象一下理想的解决方案应该具备什么特征吗？",
		},
		"definitional": {
			"你寻求定义，这表明你在认真思考。让我反问你：如果你要向一个孩子解释这个概念，你会怎么说？",
			"定义往往比我们想象的更复杂。关于'{question}'，你认为最核心的特征是什么？",
			"有趣的是，我们经常使用一些概念却很少深入思考它们的本质。你觉得理解一个概念的真正含义重要吗？",
		},
		"comparative": {
			"你在比较选择，这说明你在思考。让我问你：你用来比较的标准是什么？这些标准本身是否合理？",
			"选择往往反映我们的价值观。在做出这个选择时，什么对你来说是最重要的？",
			"有时候最好的答案不是选择其中之一，而是理解为什么我们需要选择。你觉得呢？",
		},
		"exploratory": {
			"你的问题让我思考。在我们探索答案之前，你能告诉我是什么促使你提出这个问题的吗？",
			"这是一个值得深入探讨的话题。你觉得我们应该从哪个角度开始思考？",
			"问题本身就蕴含着智慧。你认为提出好问题和找到好答案，哪个更重要？",
		},
	}
	return renderTemplate(templates, questionType, input)
}

func einsteinResponse(input, questionType string) string {
	templates := map[string][]string{
		"causal": {
			"你知道，'{question}'这个问题让我想起了物理学中的因果关系。在自然界中，每个现象都有其深层的原因。让我们用科学的方法来思考：你觉得这里是否存在一个更根本的原理？",
			"这是个好问题！想象力比知识更重要。在思考这个问题时，我们不妨发挥想象力：如果你能设计一个思想实验来验证这个原因，你会怎么设计？",
		},
		"procedural": {
			"'{question}' - 这让我想起解决物理问题的方法。我们总是先理解原理，再寻找方法。你认为这里的基本原理是什么？",
			"解决问题就像做科学研究一样，需要假设、实验和验证。对于你的问题，你已经有什么假设了吗？",
		},
		"definitional": {
			"定义在科学中非常重要。就像我们定义'时间'和'空间'一样，准确的定义是理解的基础。你觉得对于'{question}'，什么是最本质的特征？",
			"你知道吗？有时候重新定义一个概念，就能带来全新的理解。你能尝试用不同的方式来思考这个概念吗？",
		},
		"comparative": {
			"选择就像物理学中的路径积分，有时候看起来不同的路径其实遵循相同的原理。你觉得这些选择之间有什么共同点吗？",
			"在相对论中，我们学到观察者的角度很重要。从不同的角度看这个选择，你看到了什么？",
		},
		"exploratory": {
			"好奇心是科学进步的动力！你的问题让我想起了我年轻时的思考。让我们一起用科学的眼光来探索这个问题，你觉得从哪里开始比较好？",
			"伟大的发现往往来自于简单的问题。你的问题虽然简单，但可能蕴含着深刻的道理。我们来一起思考一下...",
		},
	}
	return renderTemplate(templates, questionType, input)
}

func generalQuestioningResponse(input, questionType string) string {
	templates := map[string][]string{
		"causal": {
			"你提出了一个很有深度的问题。让我们一起思考：除了显而易见的原因，是否还有其他可能的解释？",
			"这个问题的答案可能不只一个。你觉得我们应该从哪个角度来分析这个原因？",
		},
		"procedural": {
			"方法确实重要，但理解背后的原理同样重要。你认为什么原理支撑着这个方法？",
			"在寻找方法之前，让我们先确定目标。你希望通过这个方法达到什么样的结果？",
		},
		"definitional": {
			"定义一个概念往往比我们想象的更有挑战性。你能尝试用自己的话来描述一下吗？",
			"理解一个概念的最好方法是思考它的边界。你觉得什么不属于这个概念？",
		},
		"comparative": {
			"比较是理解事物的好方法。你用来比较的标准是什么？这些标准合理吗？",
			"有时候最好的选择不是非此即彼，而是找到一个更高层面的解决方案。你觉得呢？",
		},
		"exploratory": {
			"这是一个值得深入思考的问题。让我们从不同的角度来探索这个话题。",
			"你的问题让我想到了很多可能的方向。我们应该先探索哪一个方面？",
		},
	}
	return renderTemplate(templates, questionType, input)
}

func renderTemplate(templates map[string][]string, questionType, input string) string {
	list, ok := templates[questionType]
	if !ok {
		list = templates["exploratory"]
	}
	return strings.ReplaceAll(pickTemplate(list, input), "{question}", input)
}

func questioningQuality(response string) float64 {
	score := 0.0
	length := len([]rune(response))
	switch {
	case length >= 50 && length <= 300:
		score += 0.3
	case length > 300 && length <= 500:
		score += 0.2
	}
	if strings.ContainsAny(response, "?？") {
		score += 0.3
	}
	thinking := countContains(response, []string{"思考", "探索", "理解", "分析", "原理", "本质"})
	score += min(float64(thinking)*0.1, 0.4)
	return min(score, 1.0)
}

func questioningRelevance(response, input string, sctx *types.SkillContext) float64 {
	score := 0.7
	prefix := []rune(input)
	if len(prefix) > 20 {
		prefix = prefix[:20]
	}
	if strings.Contains(response, string(prefix)) {
		score += 0.2
	}
	if sctx.DetectedIntent == "deep_conversation" {
		score += 0.1
	}
	return min(score, 1.0)
}

var _ skills.Skill = (*DeepQuestioningSkill)(nil)
