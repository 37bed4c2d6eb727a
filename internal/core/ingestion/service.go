package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/mo"

	"github.com/kandori/doc-qa/internal/core/index"
)

// ErrEmptyContent は抽出には成功したがチャンクが1件も得られなかった場合のエラー。
// この場合ドキュメントは作成されない。
var ErrEmptyContent = errors.New("no text content could be extracted from the document")

// Embedder はテキストの Embedding 生成インターフェース
type Embedder interface {
	// Embed は単一テキストの Embedding を生成する
	Embed(ctx context.Context, text string) ([]float32, error)

	// BatchEmbed はバッチで Embedding を生成する
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)

	// MaxBatchSize はバッチ処理の最大サイズを返す
	MaxBatchSize() int
}

// Stats はインデックス全体の統計を表す
type Stats struct {
	ChunkCount    int `json:"chunk_count"`
	DocumentCount int `json:"document_count"`
}

// Service はドキュメント取り込みのユースケースを提供する。
// 同一 document_id への並行取り込みは呼び出し側で直列化すること。
type Service struct {
	index    index.Index
	embedder Embedder
	chunker  *Chunker
	logger   *slog.Logger
}

// ServiceOption は Service のオプション設定
type ServiceOption func(*Service)

// WithLogger は Service にロガーを設定する
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService は新しい Service を作成する
func NewService(idx index.Index, embedder Embedder, chunker *Chunker, opts ...ServiceOption) *Service {
	svc := &Service{
		index:    idx,
		embedder: embedder,
		chunker:  chunker,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(svc)
	}

	if svc.logger == nil {
		svc.logger = slog.Default()
	}

	return svc
}

// Ingest はテキストをチャンク化・ベクトル化してインデックスへ登録する。
// チャンクインデックスは Chunker の出力順に 0..n-1 が割り当てられる。
func (s *Service) Ingest(ctx context.Context, text, documentID, filename string) (*index.Document, error) {
	uploadTime := time.Now()

	chunks := s.chunker.Chunk(text)
	if len(chunks) == 0 {
		return nil, ErrEmptyContent
	}

	s.logger.Info("chunking completed",
		"documentID", documentID,
		"filename", filename,
		"chunks", len(chunks),
	)

	embeddings, err := s.embedAll(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}

	if err := s.index.Insert(ctx, chunks, embeddings, documentID, filename, uploadTime); err != nil {
		return nil, fmt.Errorf("failed to insert chunks: %w", err)
	}

	s.logger.Info("document indexed",
		"documentID", documentID,
		"filename", filename,
		"chunks", len(chunks),
	)

	return &index.Document{
		DocumentID: documentID,
		Filename:   filename,
		UploadTime: uploadTime,
		ChunkCount: len(chunks),
	}, nil
}

// embedAll は Embedder の最大バッチサイズに従ってチャンクをベクトル化する
func (s *Service) embedAll(ctx context.Context, chunks []string) ([][]float32, error) {
	batchSize := s.embedder.MaxBatchSize()
	if batchSize <= 0 {
		batchSize = len(chunks)
	}

	embeddings := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		batch, err := s.embedder.BatchEmbed(ctx, chunks[start:end])
		if err != nil {
			return nil, err
		}
		embeddings = append(embeddings, batch...)
	}

	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("embedding count mismatch: got %d for %d chunks", len(embeddings), len(chunks))
	}

	return embeddings, nil
}

// Remove は指定ドキュメントの全チャンクを削除し、削除件数を返す。
// 該当なしは 0 を返す（エラーではない）。アップロード済みファイルの保持は
// 呼び出し側のポリシーに委ねる。
func (s *Service) Remove(ctx context.Context, documentID string) (int, error) {
	deleted, err := s.index.DeleteByDocument(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete document: %w", err)
	}

	s.logger.Info("document removed",
		"documentID", documentID,
		"deletedChunks", deleted,
	)

	return deleted, nil
}

// Get は指定ドキュメントのメタデータを返す。存在しない場合は None。
func (s *Service) Get(ctx context.Context, documentID string) (mo.Option[index.Document], error) {
	doc, err := s.index.GetDocument(ctx, documentID)
	if err != nil {
		return mo.None[index.Document](), fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// List は格納済みドキュメントの一覧を返す
func (s *Service) List(ctx context.Context) ([]index.Document, error) {
	docs, err := s.index.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

// Stats はチャンク総数とドキュメント数を返す
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	chunkCount, err := s.index.CountChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}

	docCount, err := s.index.CountDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}

	return &Stats{
		ChunkCount:    chunkCount,
		DocumentCount: docCount,
	}, nil
}
