package builtin

import (
	"context"
	"strings"
	"time"

	"github.com/BaSui01/skillflow/skills"
	"github.com/BaSui01/skillflow/types"
)

// AnalysisSkill 深度分析技能 — 对复杂问题做逻辑分析与多角度解构。
type AnalysisSkill struct {
	*skills.BaseSkill
}

// NewAnalysisSkill 构造分析技能。
func NewAnalysisSkill() *AnalysisSkill {
	return &AnalysisSkill{BaseSkill: skills.NewBaseSkill(AnalysisMetadata())}
}

// AnalysisMetadata 分析技能元数据。
func AnalysisMetadata() *types.SkillMetadata {
	return &types.SkillMetadata{
		Name:        "analysis",
		DisplayName: "深度分析",
		Description: "对复杂问题进行逻辑分析和多角度解构",
		Category:    types.CategoryKnowledge,
		Version:     "1.0.0",
		Triggers: types.SkillTrigger{
			Keywords:    []string{"分析", "分解", "比较", "评价", "优缺点", "原因", "影响"},
			Patterns:    []string{`分析`, `比较`, `评价`},
			IntentTypes: []string{"analysis", "comparison", "deep_conversation"},
		},
		Priority:               types.PriorityHigh,
		CharacterCompatibility: []string{"苏格拉底", "阿尔伯特·爱因斯坦"},
		MaxExecutionTime:       15 * time.Second,
		ConcurrentLimit:        3,
		CacheResults:           true,
		Enabled:                true,
	}
}

var analysisKeywords = []string{"分析", "分解", "比较", "评价", "优缺点", "原因", "影响", "区别"}

// CanHandle 含分析关键词，或是意图为 analysis 的较长疑问句。
func (s *AnalysisSkill) CanHandle(sctx *types.SkillContext, _ types.SkillConfig) bool {
	input := strings.ToLower(sctx.UserInput)
	if containsAny(input, analysisKeywords) {
		return true
	}
	trimmed := strings.TrimSpace(input)
	isComplex := len([]rune(trimmed)) > 10 && strings.ContainsAny(trimmed, "?？")
	return isComplex && sctx.DetectedIntent == "analysis"
}

// ConfidenceScore 关键词、复杂度、角色与意图四项累加。
func (s *AnalysisSkill) ConfidenceScore(sctx *types.SkillContext, _ types.SkillConfig) float64 {
	input := strings.ToLower(sctx.UserInput)
	score := 0.0

	matches := countContains(input, []string{"分析", "分解", "比较", "评价", "优缺点", "原因", "影响"})
	score += min(float64(matches)*0.2, 0.6)

	if len([]rune(strings.TrimSpace(input))) > 20 {
		score += 0.2
	}
	name := sctx.CharacterName()
	if strings.Contains(name, "苏格拉底") || strings.Contains(name, "爱因斯坦") {
		score += 0.3
	}
	if sctx.DetectedIntent == "analysis" || sctx.DetectedIntent == "comparison" {
		score += 0.3
	}
	return min(score, 1.0)
}

// Execute 按分析类型与角色视角生成结构化分析。
func (s *AnalysisSkill) Execute(_ context.Context, sctx *types.SkillContext, cfg types.SkillConfig) (*types.SkillResult, error) {
	input := sctx.UserInput
	characterName := sctx.CharacterName()
	analysisType := determineAnalysisType(input)

	var analysis string
	switch {
	case strings.Contains(characterName, "苏格拉底"):
		analysis = socraticAnalysis(analysisType)
	case strings.Contains(characterName, "爱因斯坦"):
		analysis = scientificAnalysis(analysisType)
	default:
		analysis = generalAnalysis(analysisType)
	}

	return &types.SkillResult{
		SkillName:        s.Metadata().Name,
		Status:           types.StatusCompleted,
		GeneratedContent: analysis,
		ConfidenceScore:  s.ConfidenceScore(sctx, cfg),
		RelevanceScore:   analysisRelevance(analysis, input, sctx),
		QualityScore:     analysisQuality(analysis),
		ResultData: map[string]any{
			"analysis_type":         analysisType,
			"character_perspective": characterName,
			"structure":             "multi_angle",
			"depth_level":           "deep",
		},
		CreatedAt: time.Now(),
	}, nil
}

func determineAnalysisType(input string) string {
	lower := strings.ToLower(input)
	switch {
	case containsAny(lower, []string{"比较", "对比", "区别", "不同"}):
		return "comparative"
	case containsAny(lower, []string{"原因", "为什么", "导致", "引起"}):
		return "causal"
	case containsAny(lower, []string{"影响", "后果", "结果", "效果"}):
		return "impact"
	case containsAny(lower, []string{"优缺点", "利弊", "好坏", "评价"}):
		return "evaluative"
	case containsAny(lower, []string{"过程", "步骤", "如何", "方法"}):
		return "procedural"
	default:
		return "general"
	}
}

func socraticAnalysis(analysisType string) string {
	const intro = "让我们用哲学的方法来分析这个问题。"

	switch analysisType {
	case "comparative":
		return intro + `

当我们比较两个事物时，我们需要问自己几个问题：

🔍 **基础思考**
首先，我们比较的标准是什么？这些标准本身是否合理？我们是否应该质疑这些标准？

📏 **多维视角**
- 从表面现象看，它们有什么不同？
- 从本质属性看，它们的根本区别是什么？
- 从功能作用看，它们服务于什么目的？

💭 **深层反思**
但是，我想问你：为什么我们需要进行这种比较？比较的目的是为了选择，还是为了理解？

也许真正的智慧不在于找到标准答案，而在于理解为什么我们要提出这个问题。你觉得呢？`
	case "causal":
		return intro + `

寻找原因是哲学的核心任务之一。让我们一层层剥开现象的外衣：

🌱 **直接原因**
表面上看，什么直接导致了这个现象？但这真的是原因吗，还是只是另一个现象？

🌳 **根本原因**
让我们往更深处挖掘：什么是这个原因背后的原因？是否存在一个更根本的原理？

🔄 **因果链条**
原因和结果的关系真的如我们想象的那样简单吗？是否可能结果也在影响原因？

💡 **哲学思辨**
最重要的是，我们要问：真的存在绝对的原因吗？还是原因只是我们为了理解世界而创造的概念？

这个问题让你想到了什么？`
	default:
		return intro + `

让我们用苏格拉底式的方法来探索这个问题：

❓ **质疑假设**
首先，我们对这个问题有什么预设？这些预设是否经得起推敲？

🔍 **分解问题**
我们能否将这个复杂的问题分解成几个更简单的部分？

🎯 **寻找本质**
在所有的表面现象背后，什么是最核心、最不变的要素？

🤔 **反思过程**
最重要的是，我们思考这个问题的过程本身告诉了我们什么？

记住，有时候问题比答案更重要。你从这个思考过程中学到了什么？`
	}
}

func scientificAnalysis(analysisType string) string {
	const intro = "让我们用科学的方法来分析这个问题。"

	switch analysisType {
	case "comparative":
		return intro + `

在科学中，比较是发现规律的重要方法：

🔬 **定量分析**
- 我们能用什么可测量的标准来比较？
- 数据告诉我们什么故事？
- 是否存在我们没有考虑到的变量？

📐 **模型建立**
就像在物理学中，我们可以建立简化的模型来理解复杂现象。这里的关键变量是什么？

⚖️ **相对性原理**
记住，比较总是相对的。从不同的参考系看，结果可能完全不同。

🧪 **实验思维**
如果我们能设计一个实验来验证我们的比较，那会是什么样的？

科学告诉我们，最好的理解来自于精确的观察和严谨的推理。`
	case "causal":
		return intro + `

在科学中，因果关系需要严格的验证：

🔗 **因果链条**
- 时间序列：原因必须在结果之前发生
- 相关性：原因和结果之间必须有可观察的联系
- 排除其他：我们能否排除其他可能的解释？

📊 **系统思维**
大多数现象都是多因素相互作用的结果。我们需要考虑：
- 主要因素和次要因素
- 直接影响和间接影响
- 反馈回路和动态平衡

🎯 **可证伪性**
一个好的因果解释必须是可证伪的。我们能设计什么实验来测试这个假设？

想象力比知识更重要，但严谨的逻辑是通向真理的道路。`
	default:
		return intro + `

让我们用科学方法的步骤来分析：

📝 **观察现象**
首先，我们观察到了什么？哪些是事实，哪些是推测？

💡 **提出假设**
基于观察，我们能提出什么假设来解释这个现象？

🧪 **设计验证**
如果我们的假设是对的，应该能观察到什么结果？

📈 **数据分析**
证据支持还是反对我们的假设？我们需要修正理论吗？

🔄 **迭代改进**
科学是一个不断修正和完善的过程。每个答案都会带来新的问题。

记住，在科学中，"我不知道"是智慧的开始，好奇心是进步的动力。`
	}
}

func generalAnalysis(analysisType string) string {
	const intro = "让我来帮你分析这个问题："

	switch analysisType {
	case "comparative":
		return intro + `
📊 **多角度比较分析**

**相似点分析：**
• 共同特征和基础属性
• 相似的功能或作用
• 面临的共同挑战

**差异点分析：**
• 核心区别和独特特征
• 不同的优势和劣势
• 适用场景的差异

**综合评价：**
• 在不同情况下的适用性
• 选择标准和决策建议
• 未来发展趋势对比

这样的对比有助于我们做出更明智的选择。`
	case "causal":
		return intro + `
🔍 **原因分析框架**

**直接原因：**
• 立即触发因素
• 显而易见的关联
• 短期影响因素

**根本原因：**
• 深层结构性问题
• 长期累积的因素
• 系统性的根源

**影响因素：**
• 内部因素 vs 外部因素
• 可控因素 vs 不可控因素
• 主要因素 vs 次要因素

通过这种层次化分析，我们能更好地理解问题的全貌。`
	default:
		return intro + `
🎯 **综合分析框架**

**问题分解：**
• 核心问题识别
• 子问题梳理
• 关键要素提取

**多维度思考：**
• 现状分析：是什么？
• 原因分析：为什么？
• 影响分析：会怎样？
• 对策分析：怎么办？

**综合判断：**
• 权衡各种因素
• 考虑不同视角
• 形成合理结论

这种系统性的分析方法能帮助我们更全面地理解问题。`
	}
}

func analysisQuality(analysis string) float64 {
	score := 0.0

	structure := countContains(analysis, []string{"**", "•", "🔍", "📊", "💡"})
	score += min(float64(structure)*0.1, 0.3)

	depth := countContains(analysis, []string{"原因", "影响", "分析", "思考", "理解", "本质"})
	score += min(float64(depth)*0.05, 0.3)

	logic := countContains(analysis, []string{"首先", "其次", "然后", "因此", "所以", "但是"})
	score += min(float64(logic)*0.05, 0.2)

	if len([]rune(analysis)) > 200 {
		score += 0.2
	}
	return min(score, 1.0)
}

func analysisRelevance(analysis, input string, sctx *types.SkillContext) float64 {
	score := 0.7
	overlap := wordOverlap(input, analysis)
	if overlap > 0 {
		score += min(float64(overlap)*0.02, 0.2)
	}
	if sctx.DetectedIntent == "analysis" {
		score += 0.1
	}
	return min(score, 1.0)
}

var _ skills.Skill = (*AnalysisSkill)(nil)
