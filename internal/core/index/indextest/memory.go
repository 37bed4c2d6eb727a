// Package indextest はテスト用のインメモリ index.Index 実装を提供する。
package indextest

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/samber/mo"

	"github.com/kandori/doc-qa/internal/core/index"
)

// MemoryIndex は index.Index のインメモリ実装。
// 本番の PostgreSQL 実装と同じ契約（挿入順のインデックス割り当て、
// コサイン距離の昇順ソート、ドキュメント単位削除）を満たす。
type MemoryIndex struct {
	mu     sync.RWMutex
	chunks []record

	// Unavailable を true にすると全操作が index.ErrUnavailable を返す
	Unavailable bool
}

type record struct {
	chunk     index.Chunk
	embedding []float32
}

// NewMemoryIndex は空の MemoryIndex を作成する。
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

var _ index.Index = (*MemoryIndex)(nil)

func (m *MemoryIndex) Insert(ctx context.Context, chunks []string, embeddings [][]float32, documentID, filename string, uploadTime time.Time) error {
	if m.Unavailable {
		return index.ErrUnavailable
	}
	if len(chunks) == 0 || len(embeddings) == 0 {
		return nil
	}
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunks and embeddings length mismatch: %d != %d", len(chunks), len(embeddings))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i, content := range chunks {
		m.chunks = append(m.chunks, record{
			chunk: index.Chunk{
				ChunkID:     index.ChunkID(documentID, i),
				DocumentID:  documentID,
				ChunkIndex:  i,
				Content:     content,
				Filename:    filename,
				UploadTime:  uploadTime,
				TotalChunks: len(chunks),
			},
			embedding: embeddings[i],
		})
	}
	return nil
}

func (m *MemoryIndex) Search(ctx context.Context, queryEmbedding []float32, topK int) ([]index.SearchResult, error) {
	if m.Unavailable {
		return nil, index.ErrUnavailable
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]index.SearchResult, 0, len(m.chunks))
	for _, rec := range m.chunks {
		results = append(results, index.SearchResult{
			Chunk:    rec.chunk,
			Distance: cosineDistance(queryEmbedding, rec.embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

func (m *MemoryIndex) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	if m.Unavailable {
		return 0, index.ErrUnavailable
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.chunks[:0]
	deleted := 0
	for _, rec := range m.chunks {
		if rec.chunk.DocumentID == documentID {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	m.chunks = kept
	return deleted, nil
}

func (m *MemoryIndex) ListDocuments(ctx context.Context) ([]index.Document, error) {
	if m.Unavailable {
		return nil, index.ErrUnavailable
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	docs := make([]index.Document, 0)
	for _, rec := range m.chunks {
		if seen[rec.chunk.DocumentID] {
			continue
		}
		seen[rec.chunk.DocumentID] = true
		docs = append(docs, index.Document{
			DocumentID: rec.chunk.DocumentID,
			Filename:   rec.chunk.Filename,
			UploadTime: rec.chunk.UploadTime,
			ChunkCount: rec.chunk.TotalChunks,
		})
	}
	return docs, nil
}

func (m *MemoryIndex) GetDocument(ctx context.Context, documentID string) (mo.Option[index.Document], error) {
	if m.Unavailable {
		return mo.None[index.Document](), index.ErrUnavailable
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, rec := range m.chunks {
		if rec.chunk.DocumentID == documentID {
			return mo.Some(index.Document{
				DocumentID: rec.chunk.DocumentID,
				Filename:   rec.chunk.Filename,
				UploadTime: rec.chunk.UploadTime,
				ChunkCount: rec.chunk.TotalChunks,
			}), nil
		}
	}
	return mo.None[index.Document](), nil
}

func (m *MemoryIndex) CountChunks(ctx context.Context) (int, error) {
	if m.Unavailable {
		return 0, index.ErrUnavailable
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks), nil
}

func (m *MemoryIndex) CountDocuments(ctx context.Context) (int, error) {
	docs, err := m.ListDocuments(ctx)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

// Chunks は格納中の全チャンクをコピーして返す（アサーション用）。
func (m *MemoryIndex) Chunks() []index.Chunk {
	m.mu.RLock()
	defer m.mu.RUnlock()

	chunks := make([]index.Chunk, 0, len(m.chunks))
	for _, rec := range m.chunks {
		chunks = append(chunks, rec.chunk)
	}
	return chunks
}

// cosineDistance はコサイン距離（1 - コサイン類似度）を返す。
// ゼロベクトルとの距離は 1 とする。
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return 1
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
