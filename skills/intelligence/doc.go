/*
Package intelligence 提供技能编排的决策层：规则式意图识别器、
加权技能匹配器与带时间衰减的推荐引擎。

三个组件都是同步纯计算，不做 I/O；内部可变表（意图定义、角色偏好、
冷却时间戳、使用日志）各自用互斥锁保护，可被多个并发请求共享。
*/
package intelligence
