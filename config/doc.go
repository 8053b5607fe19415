// Package config 提供 SkillFlow 的统一配置加载。
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量。
// 所有配置项均有可直接运行的默认值，YAML 文件与环境变量都是可选的。
package config
