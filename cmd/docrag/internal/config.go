package internal

import (
	"fmt"
	"os"

	"github.com/DreamCats/docrag/internal/config"
)

// LoadConfig 从指定路径读取并解析 YAML 配置文件。
// 返回填充后的 *config.Config 或解析错误。
func LoadConfig(configPath string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

// PrintConfigExample 向 stderr 打印一份完整的 YAML 配置示例。
// 供用户快速创建自定义配置文件。
func PrintConfigExample() {
	configPath, err := config.DefaultConfigPath()
	if err != nil {
		configPath = "~/.docrag/config/docrag.yaml"
	}

	fmt.Fprintf(os.Stderr, `Create a configuration file at %s:

# Embedding and completion backend
provider:
  # "ollama" | "openai" | "stub"
  name: ollama
  base_url: http://localhost:11434/api
  embed_model: mxbai-embed-large
  chat_model: llama3.2:latest
  dimensions: 1024              # must match the embedding model

# For an OpenAI-compatible API, use:
# provider:
#   name: openai
#   api_key: ${OPENAI_API_KEY}   # read from the environment or .env
#   embed_model: text-embedding-3-small
#   dimensions: 1536

# Where the embedding snapshot is kept
store:
  backend: sqlite               # sqlite | badger | file | s3 | memory
  path: ~/.docrag/data/docrag.db

Usage:
  1. Create the config file
  2. Start Ollama: ollama serve
  3. Ingest: docrag ingest "docs/**/*.md"
  4. Ask: docrag ask "What does the guide say about backups?"
`, configPath)
}
