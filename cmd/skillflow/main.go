// =============================================================================
// SkillFlow 主入口
// =============================================================================
// 命令行工具，用于在终端里直接体验技能引擎
//
// 使用方法:
//
//	skillflow chat "给我讲一个故事"                 # 处理一次输入
//	skillflow chat --character 2 "什么是正义？"     # 指定角色
//	skillflow chat --config config.yaml "..."      # 指定配置文件
//	skillflow suggest "为什么天空是蓝色的？"        # 查看技能建议
//	skillflow version                              # 显示版本信息
// =============================================================================

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/BaSui01/skillflow"
	"github.com/BaSui01/skillflow/config"
	"github.com/BaSui01/skillflow/skills"
	"github.com/BaSui01/skillflow/skills/builtin"
	"github.com/BaSui01/skillflow/types"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "chat":
		runChat(os.Args[2:])
	case "suggest":
		runSuggest(os.Args[2:])
	case "version":
		fmt.Printf("SkillFlow %s (built %s, commit %s)\n", Version, BuildTime, GitCommit)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "未知命令: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`SkillFlow - 角色技能编排引擎

用法:
  skillflow chat [--config FILE] [--character ID] <输入>   处理一次用户输入
  skillflow suggest [--config FILE] [--character ID] <输入> 查看技能建议
  skillflow version                                        显示版本信息

预置角色:
  1  哈利·波特
  2  苏格拉底
  3  爱因斯坦`)
}

// =============================================================================
// 💬 chat 子命令
// =============================================================================

func runChat(args []string) {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	configPath := fs.String("config", "", "配置文件路径")
	characterID := fs.Int64("character", builtin.CharacterHarryPotter, "角色 ID")
	timeout := fs.Duration("timeout", 30*time.Second, "处理超时")
	_ = fs.Parse(args)

	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "chat 需要一条用户输入")
		os.Exit(1)
	}
	input := fs.Arg(0)

	eng, character := mustBuildEngine(*configPath, *characterID)
	defer eng.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	results, err := eng.ProcessInput(ctx, input, *characterID, character, skills.ProcessOptions{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "处理失败: %v\n", err)
		os.Exit(1)
	}
	if len(results) == 0 {
		fmt.Println("（没有技能被触发，走普通对话路径）")
		return
	}

	for _, r := range results {
		fmt.Printf("── %s [%s] %.0fms\n", r.SkillName, r.Status, float64(r.ExecutionTime.Milliseconds()))
		if r.GeneratedContent != "" {
			fmt.Println(r.GeneratedContent)
		}
		if r.ErrorMessage != "" {
			fmt.Printf("错误: %s\n", r.ErrorMessage)
		}
		fmt.Println()
	}
}

// =============================================================================
// 💡 suggest 子命令
// =============================================================================

func runSuggest(args []string) {
	fs := flag.NewFlagSet("suggest", flag.ExitOnError)
	configPath := fs.String("config", "", "配置文件路径")
	characterID := fs.Int64("character", builtin.CharacterHarryPotter, "角色 ID")
	limit := fs.Int("limit", 5, "建议条数上限")
	_ = fs.Parse(args)

	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "suggest 需要一条用户输入")
		os.Exit(1)
	}
	input := fs.Arg(0)

	eng, character := mustBuildEngine(*configPath, *characterID)
	defer eng.Close()

	sugs := eng.Suggestions(input, *characterID, character, *limit)
	if len(sugs) == 0 {
		fmt.Println("（当前输入没有可建议的技能）")
		return
	}
	for i, s := range sugs {
		fmt.Printf("%d. %s (%.2f) - %s\n", i+1, s.DisplayName, s.Score, s.Description)
	}
}

// =============================================================================
// 🔧 引擎装配
// =============================================================================

func mustBuildEngine(configPath string, characterID int64) (*skillflow.Engine, *types.CharacterProfile) {
	loader := config.NewLoader()
	if configPath != "" {
		loader = loader.WithConfigPath(configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	// 命令行场景下不把日志打到 stdout，避免干扰输出。
	cfg.Log.OutputPaths = []string{"stderr"}

	eng, err := skillflow.New(skillflow.WithConfig(cfg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "引擎初始化失败: %v\n", err)
		os.Exit(1)
	}

	// 未知角色 ID 按匿名角色处理，不设档案。
	var character *types.CharacterProfile
	for _, p := range builtin.PresetCharacters() {
		if p.ID == characterID {
			character = p
			break
		}
	}
	return eng, character
}
