package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/DreamCats/docrag/cmd/docrag/internal"
	"github.com/DreamCats/docrag/internal/app"
	"github.com/DreamCats/docrag/internal/config"
)

// main 启动 docrag 命令行工具，解析全局参数并执行对应子命令。
// 若参数无效或缺少子命令则打印用法并退出。
func main() {
	if len(os.Args) < 2 {
		internal.PrintUsage()
		os.Exit(1)
	}

	// .env supplies secrets referenced as ${VAR} in the config file
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
	}

	configPath := ""
	verbose := false
	args := os.Args[1:]

	validSubcommands := map[string]bool{
		"ingest":    true,
		"ask":       true,
		"search":    true,
		"sources":   true,
		"delete":    true,
		"stats":     true,
		"summarize": true,
		"mcp":       true,
	}

	subcommandIndex := -1
	for i, arg := range args {
		if !strings.HasPrefix(arg, "-") && validSubcommands[arg] {
			subcommandIndex = i
			break
		}
	}

	// Parse global flags (before subcommand)
	globalFlags := args
	if subcommandIndex >= 0 {
		globalFlags = args[:subcommandIndex]
	}
	for i := 0; i < len(globalFlags); i++ {
		flag := globalFlags[i]
		switch flag {
		case "-config", "--config":
			if i+1 < len(globalFlags) {
				configPath = globalFlags[i+1]
				i++ // skip next arg
			}
		case "-v", "--verbose":
			verbose = true
		case "-version", "--version":
			fmt.Printf("docrag version %s\n", internal.Version)
			os.Exit(0)
		case "-h", "-help", "--help":
			internal.PrintUsage()
			os.Exit(0)
		default:
			if strings.HasPrefix(flag, "-") {
				fmt.Fprintf(os.Stderr, "Error: Unknown global flag: %s\n\n", flag)
			} else {
				fmt.Fprintf(os.Stderr, "Error: Unknown subcommand: %s\n\n", flag)
			}
			internal.PrintUsage()
			os.Exit(1)
		}
	}

	if subcommandIndex == -1 {
		fmt.Fprintf(os.Stderr, "Error: No subcommand specified\n\n")
		internal.PrintUsage()
		os.Exit(1)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	subcommand := args[subcommandIndex]
	subcommandArgs := args[subcommandIndex+1:]

	if err := internal.SetupLogging(subcommand, cfg.Log.Dir, internal.LogLevel(cfg.Log.Level, verbose)); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize log file: %v\n", err)
	}

	switch subcommand {
	case "ingest":
		handleIngest(cfg, subcommandArgs)
	case "ask":
		handleAsk(cfg, subcommandArgs)
	case "search":
		handleSearch(cfg, subcommandArgs)
	case "sources":
		handleSources(cfg, subcommandArgs)
	case "delete":
		handleDelete(cfg, subcommandArgs)
	case "stats":
		handleStats(cfg, subcommandArgs)
	case "summarize":
		handleSummarize(cfg, subcommandArgs)
	case "mcp":
		handleMCP(cfg, subcommandArgs)
	}
}

// loadConfig 读取配置文件；默认位置不存在时写入模板并继续使用默认值。
func loadConfig(configPath string) (*config.Config, error) {
	cfg, err := internal.LoadConfig(configPath)
	if err == nil {
		return cfg, nil
	}
	var notFound *config.ConfigNotFoundError
	if !errors.As(err, &notFound) {
		return nil, err
	}
	if configPath != "" {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		internal.PrintConfigExample()
		os.Exit(1)
	}

	created, createErr := config.WriteDefaultTemplate(notFound.DefaultPath)
	if createErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to create default config at %s: %v\n", notFound.DefaultPath, createErr)
		return config.Default(), nil
	}
	if created {
		fmt.Fprintf(os.Stderr, "Created default config at %s (local Ollama, sqlite store)\n", notFound.DefaultPath)
	}
	return config.LoadFromFile(notFound.DefaultPath)
}

// openApp 根据配置构建应用，失败时直接退出。
func openApp(cfg *config.Config) *app.App {
	a, err := app.Open(context.Background(), cfg, slog.Default())
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	return a
}
