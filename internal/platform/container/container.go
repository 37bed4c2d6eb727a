package container

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kandori/doc-qa/internal/core/ask"
	"github.com/kandori/doc-qa/internal/core/extract"
	"github.com/kandori/doc-qa/internal/core/index"
	"github.com/kandori/doc-qa/internal/core/ingestion"
	"github.com/kandori/doc-qa/internal/infra/openai"
	"github.com/kandori/doc-qa/internal/infra/postgres"
	"github.com/kandori/doc-qa/internal/infra/tiktoken"
	"github.com/kandori/doc-qa/pkg/config"
)

// ServiceContainer はアプリケーション全体の依存関係を保持する
type ServiceContainer struct {
	IngestionService *ingestion.Service
	AskService       *ask.Service
	Extractor        *extract.Extractor
	Index            index.Index

	logger   *slog.Logger
	database *postgres.Database
}

type containerOptions struct {
	logger       *slog.Logger
	index        index.Index
	embedder     ingestion.Embedder
	generator    ask.Generator
	tokenCounter ask.TokenCounter
}

// ContainerOption は ServiceContainer 構築時のオプション
type ContainerOption func(*containerOptions)

// WithContainerLogger はロガーを差し替える
func WithContainerLogger(logger *slog.Logger) ContainerOption {
	return func(opts *containerOptions) {
		opts.logger = logger
	}
}

// WithContainerIndex はカスタム Index を注入する。
// 指定した場合、PostgreSQL への接続は行わない。
func WithContainerIndex(idx index.Index) ContainerOption {
	return func(opts *containerOptions) {
		opts.index = idx
	}
}

// WithContainerEmbedder はカスタム Embedder を注入する
func WithContainerEmbedder(embedder ingestion.Embedder) ContainerOption {
	return func(opts *containerOptions) {
		opts.embedder = embedder
	}
}

// WithContainerGenerator はカスタム Generator を注入する
func WithContainerGenerator(generator ask.Generator) ContainerOption {
	return func(opts *containerOptions) {
		opts.generator = generator
	}
}

// WithContainerTokenCounter はカスタム TokenCounter を注入する
func WithContainerTokenCounter(counter ask.TokenCounter) ContainerOption {
	return func(opts *containerOptions) {
		opts.tokenCounter = counter
	}
}

// NewContainer は設定からコンテナを生成する。
// 外部から Index が注入されない場合は PostgreSQL へ接続し、
// pgvector のスキーマを冪等に作成する。
func NewContainer(ctx context.Context, cfg *config.Config, opts ...ContainerOption) (*ServiceContainer, error) {
	options := containerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	var db *postgres.Database
	idx := options.index
	if idx == nil {
		var err error
		db, err = postgres.NewDatabase(ctx, postgres.ConnectionParams{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			return nil, fmt.Errorf("データベース初期化に失敗しました: %w", err)
		}

		if err := db.EnsureSchema(ctx, cfg.Embedding.Dimension); err != nil {
			db.Close()
			return nil, fmt.Errorf("スキーマ作成に失敗しました: %w", err)
		}

		idx = postgres.NewIndexRepository(db, cfg.IndexCollection)
	}

	// Embedder (OpenAI互換API)
	embedder := options.embedder
	if embedder == nil {
		embedder = openai.NewEmbedder(
			cfg.LLM.APIKey,
			openai.WithEmbeddingModel(cfg.Embedding.Model),
			openai.WithEmbeddingDimension(cfg.Embedding.Dimension),
			openai.WithEmbeddingBaseURL(cfg.LLM.BaseURL),
		)
	}

	// Generator (OpenAI互換API)
	generator := options.generator
	if generator == nil {
		generator = openai.NewGenerator(
			cfg.LLM.APIKey,
			openai.WithGenerationModel(cfg.LLM.Model),
			openai.WithTemperature(cfg.LLM.Temperature),
			openai.WithMaxTokens(cfg.LLM.MaxTokens),
			openai.WithGenerationBaseURL(cfg.LLM.BaseURL),
		)
	}

	// TokenCounter (tiktoken)
	tokenCounter := options.tokenCounter
	if tokenCounter == nil {
		counter, err := tiktoken.NewCounter()
		if err != nil {
			// トークン計測はコンテキスト切り詰め専用のため、初期化失敗時は
			// 無効化して動作を継続する
			options.logger.Warn("token counter unavailable, context trimming disabled", "error", err)
		} else {
			tokenCounter = counter
		}
	}

	chunker, err := ingestion.NewChunker(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, fmt.Errorf("チャンク設定が不正です: %w", err)
	}

	askEmbedder, ok := embedder.(ask.Embedder)
	if !ok {
		if db != nil {
			db.Close()
		}
		return nil, fmt.Errorf("embedder does not support query embedding")
	}

	askOpts := []ask.ServiceOption{ask.WithLogger(options.logger)}
	if tokenCounter != nil && cfg.LLM.ContextTokens > 0 {
		askOpts = append(askOpts, ask.WithTokenCounter(tokenCounter, cfg.LLM.ContextTokens))
	}

	return &ServiceContainer{
		IngestionService: ingestion.NewService(idx, embedder, chunker, ingestion.WithLogger(options.logger)),
		AskService:       ask.NewService(idx, askEmbedder, generator, askOpts...),
		Extractor:        extract.NewExtractor(),
		Index:            idx,
		logger:           options.logger,
		database:         db,
	}, nil
}

// Logger はコンテナのロガーを返す
func (c *ServiceContainer) Logger() *slog.Logger {
	return c.logger
}

// Close はコンテナが保持するリソースを解放する
func (c *ServiceContainer) Close() {
	if c.database != nil {
		c.database.Close()
	}
}
