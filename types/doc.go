/*
Package types 提供 skillflow 引擎的全局共享类型定义。

# 概述

types 是引擎最底层的公共包，不依赖任何内部包，为 skills、intelligence、
persistence 等上层模块提供统一的类型契约。所有跨包共享的结构体、枚举和
错误码均定义于此，以避免循环依赖。

# 核心类型

  - SkillMetadata      — 技能不可变描述符（触发规则、分类、依赖、执行限制）
  - SkillConfig        — 角色特定的技能配置（权重、阈值、冷却时间）
  - SkillContext       — 每请求执行上下文快照（输入、角色、历史、意图）
  - SkillResult        — 单次执行结果（状态、内容、得分、错误信息）
  - SkillExecution     — 执行器的执行记录（状态机、进度、耗时）
  - IntentClassification — 意图识别结果（意图、置信度、候选、实体）
  - PerformanceMetrics — 技能性能聚合指标
  - Message / Role     — 对话消息
  - Error / ErrorCode  — 结构化错误体系
  - Tokenizer          — Token 计数接口（tiktoken 及估算实现）
*/
package types
