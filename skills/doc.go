/*
Package skills 实现技能编排引擎的核心：技能接口与基类、注册中心、
上下文管理、结果缓存、并发执行器以及对外的 Manager 门面。

# 请求流水线

	ContextStore.Build → Matcher(意图识别 + 技能匹配) → Executor(并发执行)
	→ Manager 后处理(质量/相关性重评分)

执行器是唯一产生并发的组件；匹配与识别均为同步纯计算。所有技能失败
都被转换为携带错误码的 SkillResult，绝不向调用方抛出。空的技能选择
是合法结果，调用方应回退到普通对话路径。
*/
package skills
