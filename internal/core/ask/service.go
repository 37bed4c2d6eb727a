package ask

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kandori/doc-qa/internal/core/index"
)

// ErrGenerationFailed は生成バックエンドの呼び出しが失敗した場合のエラー。
// 質問応答パスでは伝播させず、劣化応答へ変換する。
var ErrGenerationFailed = errors.New("generation backend request failed")

// DefaultTopK は top_k 未指定時の検索件数
const DefaultTopK = 3

// Embedder は質問文の Embedding 生成インターフェース
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator は生成バックエンドのインターフェース
type Generator interface {
	// Generate はプロンプトから回答テキストを生成する
	Generate(ctx context.Context, prompt string) (string, error)

	// ListModels はバックエンドが認識しているモデル名の一覧を返す
	ListModels(ctx context.Context) ([]string, error)

	// ModelName は設定済みのモデル名を返す
	ModelName() string
}

// TokenCounter はプロンプトのトークン数の計測・切り詰めインターフェース
type TokenCounter interface {
	Count(text string) int
	Trim(text string, maxTokens int) string
}

// Service は RAG による質問応答のユースケースを提供する
type Service struct {
	index        index.Index
	embedder     Embedder
	retriever    *Retriever
	generator    Generator
	tokens       TokenCounter
	contextLimit int
	logger       *slog.Logger
}

// ServiceOption は Service のオプション設定
type ServiceOption func(*Service)

// WithLogger は Service にロガーを設定する
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTokenCounter はコンテキストのトークン数制限を有効にする。
// 組み立てたコンテキストが maxContextTokens を超える場合、
// 生成前に切り詰める。
func WithTokenCounter(counter TokenCounter, maxContextTokens int) ServiceOption {
	return func(s *Service) {
		s.tokens = counter
		s.contextLimit = maxContextTokens
	}
}

// NewService は新しい Service を作成する
func NewService(idx index.Index, embedder Embedder, generator Generator, opts ...ServiceOption) *Service {
	svc := &Service{
		index:     idx,
		embedder:  embedder,
		retriever: NewRetriever(idx),
		generator: generator,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(svc)
	}

	if svc.logger == nil {
		svc.logger = slog.Default()
	}

	return svc
}

// Ask は質問に対して RAG ベースで回答を生成する。
// インデックスが空の場合は生成器を呼ばず、定型の回答不能応答を返す。
// 生成バックエンドの失敗はエラーとして伝播させず、失敗内容を説明する
// 回答文へ劣化させる（sources / query / timestamp はその場合も返す）。
func (s *Service) Ask(ctx context.Context, question string, topK int) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("question is required")
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	timestamp := time.Now().Format(time.RFC3339)

	chunkCount, err := s.index.CountChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}
	if chunkCount == 0 {
		s.logger.Info("index is empty, returning refusal answer", "query", question)
		return &Answer{
			Answer:    RefusalAnswer,
			Sources:   []SourceDocument{},
			Query:     question,
			Timestamp: timestamp,
		}, nil
	}

	queryVector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	retrieved, err := s.retriever.Retrieve(ctx, queryVector, topK)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	s.logger.Info("retrieval completed",
		"query", question,
		"topK", topK,
		"results", len(retrieved),
	)

	contextBlock := BuildContext(retrieved)
	if s.tokens != nil && s.contextLimit > 0 {
		if tokens := s.tokens.Count(contextBlock); tokens > s.contextLimit {
			s.logger.Warn("context exceeds token limit, trimming",
				"tokens", tokens,
				"limit", s.contextLimit,
			)
			contextBlock = s.tokens.Trim(contextBlock, s.contextLimit)
		}
	}

	prompt := BuildPrompt(question, contextBlock)

	answer, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		// 生成失敗は構造化応答のまま劣化させる
		s.logger.Error("generation failed", "error", err)
		answer = fmt.Sprintf("Error generating response: %v", err)
	}

	sources := make([]SourceDocument, 0, len(retrieved))
	for _, r := range retrieved {
		sources = append(sources, r.Source)
	}

	s.logger.Info("ask completed",
		"query", question,
		"answerLength", len(answer),
		"sources", len(sources),
	)

	return &Answer{
		Answer:    answer,
		Sources:   sources,
		Query:     question,
		Timestamp: timestamp,
	}, nil
}

// CheckAvailability は設定済みモデルが生成バックエンドに存在するかを返す。
// タグサフィックス（例: llama3.2:latest）を許容するため、完全一致に加えて
// 前方一致・部分一致も認める。ヘルス報告専用で、質問応答パスでは使わない。
func (s *Service) CheckAvailability(ctx context.Context) bool {
	models, err := s.generator.ListModels(ctx)
	if err != nil {
		s.logger.Warn("failed to list backend models", "error", err)
		return false
	}

	name := s.generator.ModelName()
	for _, model := range models {
		if model == name || strings.HasPrefix(model, name) || strings.Contains(model, name) {
			return true
		}
	}
	return false
}
