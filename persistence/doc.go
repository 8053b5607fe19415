// Package persistence 提供技能执行记录与使用记录的持久化层。
//
// Store 同时满足编排层的 ExecutionSink 与推荐引擎的 UsageSink，
// 提供内存实现（开发/测试）与 GORM + SQLite 实现（生产）。
// 所有写入都由调用方异步触发，持久化失败不影响请求处理。
package persistence
