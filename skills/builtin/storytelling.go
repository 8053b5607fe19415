package builtin

import (
	"context"
	"strings"
	"time"

	"github.com/BaSui01/skillflow/skills"
	"github.com/BaSui01/skillflow/types"
)

// StorytellingSkill 故事讲述技能 — 按主题与角色风格讲述经历。
type StorytellingSkill struct {
	*skills.BaseSkill
}

// NewStorytellingSkill 构造故事讲述技能。
func NewStorytellingSkill() *StorytellingSkill {
	return &StorytellingSkill{BaseSkill: skills.NewBaseSkill(StorytellingMetadata())}
}

// StorytellingMetadata 故事讲述技能元数据。
func StorytellingMetadata() *types.SkillMetadata {
	return &types.SkillMetadata{
		Name:        "storytelling",
		DisplayName: "故事讲述",
		Description: "讲述引人入胜的故事，分享角色的经历和冒险，激发想象力",
		Category:    types.CategoryConversation,
		Version:     "1.0.0",
		Triggers: types.SkillTrigger{
			Keywords:        []string{"故事", "经历", "冒险", "传说", "分享", "讲述", "曾经"},
			Patterns:        []string{`讲.*故事`, `分享.*经历`, `冒险`, `传说`},
			IntentTypes:     []string{"storytelling", "roleplay"},
			EmotionalStates: []string{"curious", "happy"},
		},
		Priority:               types.PriorityHigh,
		CharacterCompatibility: []string{"哈利·波特", "苏格拉底", "阿尔伯特·爱因斯坦"},
		MaxExecutionTime:       20 * time.Second,
		ConcurrentLimit:        3,
		CacheResults:           true,
		Enabled:                true,
	}
}

var (
	storyKeywords   = []string{"故事", "经历", "冒险", "传说", "分享", "讲述", "曾经", "记得"}
	requestPatterns = []string{"讲", "说", "分享", "聊聊", "谈谈"}
)

// CanHandle 含故事关键词或请求模式即可处理。
func (s *StorytellingSkill) CanHandle(sctx *types.SkillContext, _ types.SkillConfig) bool {
	input := strings.ToLower(sctx.UserInput)
	if strings.TrimSpace(input) == "" {
		return false
	}
	return containsAny(input, storyKeywords) || containsAny(input, requestPatterns)
}

// ConfidenceScore 关键词、角色、意图与请求模式四项累加。
func (s *StorytellingSkill) ConfidenceScore(sctx *types.SkillContext, _ types.SkillConfig) float64 {
	input := strings.ToLower(sctx.UserInput)
	score := 0.0

	matches := countContains(input, []string{"故事", "经历", "冒险", "传说", "分享", "讲述", "曾经"})
	score += min(float64(matches)*0.15, 0.5)

	name := sctx.CharacterName()
	if strings.Contains(name, "哈利") {
		score += 0.3 // 哈利波特最适合讲故事
	} else if name != "" {
		score += 0.2
	}
	if sctx.DetectedIntent == "storytelling" {
		score += 0.4
	}
	if containsAny(input, requestPatterns) {
		score += 0.2
	}
	return min(score, 1.0)
}

// Execute 按主题与角色生成故事。
func (s *StorytellingSkill) Execute(_ context.Context, sctx *types.SkillContext, cfg types.SkillConfig) (*types.SkillResult, error) {
	input := sctx.UserInput
	characterName := sctx.CharacterName()
	theme := analyzeStoryTheme(input)

	var story string
	switch {
	case strings.Contains(characterName, "哈利"):
		story = harryStory(theme, input)
	case strings.Contains(characterName, "苏格拉底"):
		story = socratesStory(theme, input)
	case strings.Contains(characterName, "爱因斯坦"):
		story = einsteinStory(theme, input)
	default:
		story = generalStory(input)
	}

	return &types.SkillResult{
		SkillName:        s.Metadata().Name,
		Status:           types.StatusCompleted,
		GeneratedContent: story,
		ConfidenceScore:  s.ConfidenceScore(sctx, cfg),
		RelevanceScore:   storyRelevance(story, input, sctx),
		QualityScore:     storyQuality(story),
		ResultData: map[string]any{
			"story_theme":            theme,
			"character_style":        characterName,
			"word_count":             len([]rune(story)),
			"estimated_reading_time": len([]rune(story)) / 200, // 大约每分钟200字
		},
		CreatedAt: time.Now(),
	}, nil
}

// analyzeStoryTheme 从输入推断故事主题。
func analyzeStoryTheme(input string) string {
	lower := strings.ToLower(input)
	switch {
	case containsAny(lower, []string{"魔法", "冒险", "战斗", "怪物", "魁地奇"}):
		return "adventure"
	case containsAny(lower, []string{"朋友", "友谊", "成长", "学校", "同学"}):
		return "friendship"
	case containsAny(lower, []string{"智慧", "思考", "哲学", "道理", "真理"}):
		return "wisdom"
	case containsAny(lower, []string{"科学", "发现", "实验", "理论", "研究"}):
		return "discovery"
	case containsAny(lower, []string{"困难", "挑战", "问题", "解决", "克服"}):
		return "challenge"
	case containsAny(lower, []string{"回忆", "以前", "小时候", "曾经", "过去"}):
		return "memory"
	default:
		return "general"
	}
}

func harryStory(theme, input string) string {
	stories := map[string][]string{
		"adventure": {
			"我想起那次在禁林的冒险。当时我和赫敏、罗恩被德拉科告发，不得不在午夜去禁林做护树。起初我们都很害怕，但当我遇到那只独角兽时，我意识到有些东西比恐惧更重要。虽然我们面临着神秘人的威胁，但我学会了勇气不是没有恐惧，而是尽管恐惧仍然去做正确的事。",
			"有一次魁地奇比赛，我的飞天扫帚突然失控。当时整个体育场的人都在看着我，我感到非常无助。但是赫敏发现了真相——奇洛教授在念咒语控制我的扫帚。这次经历让我明白，有时候我们面临的困难并不是偶然的，而是有人故意制造的。但只要有朋友的帮助，没有什么是不能克服的。",
		},
		"friendship": {
			"我永远不会忘记第一次遇到罗恩和赫敏的那一天。在霍格沃茨特快上，罗恩帮我找巧克力蛙卡片，虽然他家境不富裕，但他分享了他仅有的食物。而赫敏，她起初显得有些傲慢，但当我们一起对抗巨怪时，我们成为了真正的朋友。友谊不是因为我们相似，而是因为我们愿意为彼此承担。",
			"在魔法石的冒险中，我意识到朋友的重要性。赫敏用她的智慧解决了魔药的谜题，罗恩在巫师棋中勇敢地牺牲自己。如果没有他们，我永远无法到达魔法石。真正的友谊就是这样——每个人都有自己的长处，而当我们团结在一起时，就没有什么是不可能的。",
		},
		"wisdom": {
			"邓布利多校长曾经告诉我一句话：'沉湎于虚幻的梦想，而忘记现实的生活，这是毫无益处的。'这句话在我面对厄里斯魔镜时特别有意义。魔镜让我看到了和父母在一起的画面，我几乎沉迷其中。但邓布利多的话提醒我，生活在现实中，为了目标而努力，比沉浸在不可能的幻想中更重要。",
			"有一次我问邓布利多为什么伏地魔无法杀死我，他说这是因为我母亲的爱。起初我不理解，但后来我明白了——爱是最强大的魔法，它可以保护我们，也可以让我们变得强大。不是我有什么特殊的力量，而是我被爱保护着，这让我有勇气面对任何困难。",
		},
		"challenge": {
			"每次面对伏地魔时，我都感到恐惧，但我学会了接受这种恐惧。在墓地重生仪式上，我眼睁睁看着塞德里克被杀害，那一刻我想要逃跑。但我意识到，如果我不站出来对抗邪恶，还会有更多无辜的人受害。有时候，做正确的事并不意味着我们不害怕，而是即使害怕也要坚持下去。",
			"三强争霸赛中的每一个任务都让我成长。火龙、湖底救人、迷宫中的危险——每一次我都觉得自己不够强大。但我发现，真正的勇气不是没有恐惧，而是在恐惧中仍然选择做正确的事。每一次挑战都让我变得更强，不是因为魔法，而是因为我学会了相信自己。",
		},
		"memory": {
			"我常常想起我的父母，虽然我对他们的记忆很少。但通过朋友和老师的讲述，我了解到他们是多么勇敢和善良的人。他们为了保护我而牺牲，这份爱一直伴随着我。虽然我从小就是孤儿，但我从来不是真正孤独的，因为爱从未离开过我。",
			"在霍格沃茨的每一天都是珍贵的回忆。从第一次踏进大礼堂的震撼，到学会第一个魔咒的兴奋，再到和朋友们一起度过的每一个节日。这些回忆让我明白，家不是一个地方，而是和那些关心你的人在一起的感觉。霍格沃茨就是我的家。",
		},
	}

	list, ok := stories[theme]
	if !ok {
		list = stories["adventure"]
	}
	return "让我来分享一个我的经历...\n\n" + pickTemplate(list, input) +
		"\n\n这就是我想告诉你的故事。每个人的人生都充满了冒险和成长，重要的是我们从中学到什么，以及我们如何用这些经历帮助他人。"
}

func socratesStory(theme, input string) string {
	stories := map[string][]string{
		"wisdom": {
			"让我给你讲一个关于智慧的故事。有一天，德尔斐神谕说我是雅典最聪明的人。我感到困惑，因为我知道自己其实一无所知。于是我去拜访那些被认为聪明的人——政治家、诗人、工匠。我发现他们虽然在各自领域有专长，但都认为自己无所不知。而我呢？我知道自己的无知。也许这就是神谕的意思——真正的智慧在于认识到自己的无知。",
			"有一次，一个年轻人问我什么是勇气。我没有直接回答，而是问他：'你见过勇敢的士兵吗？''是的，'他说，'他们在战场上不怕死。''那么，'我又问，'一个人仅仅因为不怕死就是勇敢的吗？如果一个疯子不怕死，他也是勇敢的吗？'通过这样的对话，我们一起发现了勇气的真正含义——不是无知无畏，而是明知危险仍选择做正确的事。",
		},
		"challenge": {
			"当我被控腐蚀青年和不信神时，我可以选择逃离雅典或者改变我的哲学观点。但我选择了留下来面对审判。我的朋友们问我为什么不为自己辩护，我告诉他们：如果我为了活命而放弃我的使命，那我还算什么哲学家？一个人的价值不在于活多久，而在于如何活。即使面对死亡，我也要坚持我的原则。",
			"有一天，一个富商向我抱怨说他的儿子不听话，浪费金钱。我问他：'你花了多少时间教导他金钱的价值？''我很忙，'他说，'我把他交给了最好的老师。''那么，'我说，'你认为品德可以像商品一样买卖吗？'最终我们都明白了，真正的教育需要的是父母的关爱和以身作则，而不是金钱。",
		},
		"friendship": {
			"我有一个朋友叫克里同，他是个善良的人，总是担心我的安全。当我被判死刑时，他来到狱中要帮我越狱。他说：'苏格拉底，你不能死，你的朋友们需要你！'我被他的友谊感动，但我问他：'如果我逃跑了，我不是在教导人们可以违背法律吗？真正的友谊是支持朋友做正确的事，还是帮助朋友逃避责任？'最终，他理解了我的选择。",
			"年轻时，我有许多追随者，他们认为跟随我就能获得智慧。但我告诉他们，我不是他们的老师，而是他们的朋友。我的作用是帮助他们发现自己内心已经拥有的智慧。真正的友谊不是依赖，而是互相启发，一起寻求真理。",
		},
	}

	list, ok := stories[theme]
	if !ok {
		list = stories["wisdom"]
	}
	return "让我分享一个关于人生的思考...\n\n" + pickTemplate(list, input) +
		"\n\n这个故事让你想到了什么？你认为其中蕴含着什么道理？有时候，故事的价值不在于故事本身，而在于它引发的思考。"
}

func einsteinStory(theme, input string) string {
	stories := map[string][]string{
		"discovery": {
			"我想起我提出相对论的那段时间。当时我在专利局工作，每天审查各种发明。有一天，我在想象如果我能够以光速运动会看到什么。这个简单的思想实验最终导致了狭义相对论的诞生。科学就是这样，最伟大的发现往往来自最简单的好奇心。我们不需要复杂的设备，只需要一个愿意思考的大脑。",
			"布朗运动的发现给了我很大启发。看着显微镜下花粉的随机运动，我意识到这证明了原子的存在。许多人认为这只是一个有趣的观察，但我看到了其中的深刻含义。这让我明白，大自然总是在最微小的细节中隐藏着最伟大的秘密。",
		},
		"challenge": {
			"当我提出广义相对论时，几乎没有人相信我。牛顿的理论已经统治了几个世纪，人们很难接受时空会弯曲的想法。但我相信数学和逻辑，即使整个世界都反对我。1919年的日食观测证实了我的理论，那一刻我并不感到意外，因为我知道真理总会胜利。坚持自己的信念，即使在孤独中，也是科学家必须具备的品质。",
			"在纳粹统治德国时，我的理论被称为'犹太物理学'而遭到攻击。我可以选择保持沉默，但我选择了发声。科学没有种族，真理没有国界。一个科学家的责任不仅是发现真理，更要为真理而战，为人类的尊严而战。",
		},
		"wisdom": {
			"有人问我宇宙最强大的力量是什么，我说是复利。但开玩笑之后，我认真地说，是人类的好奇心和想象力。知识给我们工具，但想象力给我们翅膀。我的理论不是从实验室来的，而是从我的想象来的。当我们停止好奇，停止想象，我们就停止了成长。",
			"我常常思考上帝是否掷骰子这个问题。虽然我在量子力学上与波尔有分歧，但这种科学辩论是珍贵的。真理不是通过权威获得的，而是通过理性的辩论和实验验证获得的。保持开放的心态，勇于质疑，这是通向智慧的道路。",
		},
	}

	list, ok := stories[theme]
	if !ok {
		list = stories["discovery"]
	}
	return "让我告诉你一个科学发现的故事...\n\n" + pickTemplate(list, input) +
		"\n\n你知道吗？科学最美妙的地方在于，每一个答案都会带来更多的问题。这就是人类永远在进步的原因。好奇心是我们最宝贵的财富。"
}

func generalStory(input string) string {
	list := []string{
		"让我给你讲一个小故事。从前有一个人在路上丢了钥匙，他在路灯下找来找去。路人问他：'你确定钥匙是在这里丢的吗？'他说：'不是，但是只有这里有光。'这个故事让我们思考：我们是否经常在舒适区里寻找答案，而忽略了真正需要去的地方？",
		"有一个古老的寓言：一只青蛙掉进了一口井里。经过努力，它终于跳了出来。当它向别的青蛙讲述外面世界的广阔时，井里的青蛙们都不相信。有时候，我们的视野被我们的经历所限制。保持开放的心态，相信还有更大的世界等待我们去发现。",
	}
	return pickTemplate(list, input) + "\n\n每个故事都有它的道理，每个人也会从中得到不同的启发。你从这个故事中想到了什么？"
}

func storyQuality(story string) float64 {
	score := 0.0
	length := len([]rune(story))
	switch {
	case length >= 200 && length <= 600:
		score += 0.3
	case length > 600:
		score += 0.2
	}
	if containsAny(story, []string{"让我", "我想起", "有一次"}) {
		score += 0.2
	}
	if containsAny(story, []string{"明白", "学会", "理解", "发现", "意识到"}) {
		score += 0.3
	}
	if strings.Contains(story, "你") && (strings.Contains(story, "吗") || strings.Contains(story, "呢")) {
		score += 0.2
	}
	return min(score, 1.0)
}

func storyRelevance(story, input string, sctx *types.SkillContext) float64 {
	score := 0.7
	overlap := wordOverlap(input, story)
	if overlap > 0 {
		score += min(float64(overlap)*0.05, 0.2)
	}
	if sctx.DetectedIntent == "storytelling" {
		score += 0.1
	}
	return min(score, 1.0)
}

func wordOverlap(a, b string) int {
	aWords := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(a)) {
		aWords[w] = struct{}{}
	}
	overlap := 0
	seen := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(b)) {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		if _, ok := aWords[w]; ok {
			overlap++
		}
	}
	return overlap
}

var _ skills.Skill = (*StorytellingSkill)(nil)
