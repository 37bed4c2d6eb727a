package index

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/mo"
)

// ErrUnavailable はストレージ層に到達できない場合のエラー。
// すべての操作がこのエラーを返しうる。内部でのリトライは行わない。
var ErrUnavailable = errors.New("vector index unavailable")

// Chunk はインデックスに格納されるチャンクレコードを表す。
// 挿入後は不変であり、削除はドキュメント単位でのみ行われる。
type Chunk struct {
	ChunkID     string
	DocumentID  string
	ChunkIndex  int
	Content     string
	Filename    string
	UploadTime  time.Time
	TotalChunks int
}

// Document はチャンクのメタデータを document_id で集約した論理ドキュメント。
// 独立に永続化はされず、常にチャンクから導出される。
type Document struct {
	DocumentID string    `json:"document_id"`
	Filename   string    `json:"filename"`
	UploadTime time.Time `json:"upload_time"`
	ChunkCount int       `json:"chunk_count"`
}

// SearchResult は近傍検索の結果を表す。距離の昇順（近い順）で返される。
type SearchResult struct {
	Chunk    Chunk
	Distance float64 // コサイン距離（0=同一方向, 2=逆方向）
}

// Index はベクトルインデックスの契約。
// テスト時のモック用に消費者側で定義する。
type Index interface {
	// Insert はチャンク列と対応する Embedding 列を一括登録する。
	// len(chunks) == len(embeddings) が必要。どちらかが空なら何もしない。
	// チャンクインデックスは入力順に 0..n-1 が割り当てられる。
	// 1回の呼び出しは all-or-nothing であり、部分適用は起こらない。
	Insert(ctx context.Context, chunks []string, embeddings [][]float32, documentID, filename string, uploadTime time.Time) error

	// Search は近傍検索を実行し、距離の昇順で最大 topK 件を返す。
	Search(ctx context.Context, queryEmbedding []float32, topK int) ([]SearchResult, error)

	// DeleteByDocument は指定ドキュメントの全チャンクを削除し、削除件数を返す。
	// 該当なしは 0 を返す（エラーではない）。
	DeleteByDocument(ctx context.Context, documentID string) (int, error)

	// ListDocuments は格納済みチャンクを document_id で集約して返す。
	ListDocuments(ctx context.Context) ([]Document, error)

	// GetDocument は指定ドキュメントのメタデータを返す。
	GetDocument(ctx context.Context, documentID string) (mo.Option[Document], error)

	// CountChunks は格納済みチャンクの総数を返す。
	CountChunks(ctx context.Context) (int, error)

	// CountDocuments はユニークなドキュメント数を返す。
	CountDocuments(ctx context.Context) (int, error)
}

// ChunkID は (documentID, chunkIndex) からチャンクIDを決定的に導出する。
func ChunkID(documentID string, chunkIndex int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, chunkIndex)
}
