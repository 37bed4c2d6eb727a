package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Database設定
	Database DatabaseConfig

	// 生成バックエンド（OpenAI互換API）設定
	LLM LLMConfig

	// Embedding設定
	Embedding EmbeddingConfig

	// チャンク分割設定
	Chunking ChunkingConfig

	// 検索設定
	TopKResults int

	// HTTP API設定
	API APIConfig

	// アップロードファイルの保存先
	UploadDir string

	// ベクトルインデックスのコレクション名
	IndexCollection string

	// ログ設定
	LogLevel  string
	LogFormat string
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// LLMConfig は生成バックエンドの設定。
// ベース URL を差し替えることで Ollama の OpenAI 互換エンドポイントにも接続できる。
type LLMConfig struct {
	BaseURL       string
	Model         string
	APIKey        string
	Temperature   float64
	MaxTokens     int
	ContextTokens int
}

// EmbeddingConfig は Embedding モデルの設定
type EmbeddingConfig struct {
	Model     string
	Dimension int
}

// ChunkingConfig はチャンク分割の設定
type ChunkingConfig struct {
	Size    int
	Overlap int
}

// APIConfig は HTTP API サーバの設定
type APIConfig struct {
	Host string
	Port int
}

// Addr はサーバのリッスンアドレスを返す
func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "docqa"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		LLM: LLMConfig{
			BaseURL:       getEnv("LLM_BASE_URL", "http://localhost:11434/v1"),
			Model:         getEnv("LLM_MODEL", "llama3.2"),
			APIKey:        getEnv("LLM_API_KEY", "ollama"),
			Temperature:   getEnvAsFloat("LLM_TEMPERATURE", 0.7),
			MaxTokens:     getEnvAsInt("LLM_MAX_TOKENS", 512),
			ContextTokens: getEnvAsInt("LLM_CONTEXT_TOKENS", 4096),
		},
		Embedding: EmbeddingConfig{
			Model:     getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
			Dimension: getEnvAsInt("EMBEDDING_DIMENSION", 768),
		},
		Chunking: ChunkingConfig{
			Size:    getEnvAsInt("CHUNK_SIZE", 500),
			Overlap: getEnvAsInt("CHUNK_OVERLAP", 100),
		},
		TopKResults: getEnvAsInt("TOP_K_RESULTS", 3),
		API: APIConfig{
			Host: getEnv("API_HOST", "0.0.0.0"),
			Port: getEnvAsInt("API_PORT", 8000),
		},
		UploadDir:       getEnv("UPLOAD_DIR", "./uploads"),
		IndexCollection: getEnv("INDEX_COLLECTION", "ecommerce_docs"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "json"),
	}

	return cfg, nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat は環境変数を浮動小数点数として取得します
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
