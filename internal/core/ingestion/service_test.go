package ingestion

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kandori/doc-qa/internal/core/index"
	"github.com/kandori/doc-qa/internal/core/index/indextest"
)

type stubEmbedder struct {
	batchCalls int
	batchSizes []int
	failWith   error
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.failWith != nil {
		return nil, e.failWith
	}
	return []float32{1, 0, 0}, nil
}

func (e *stubEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	if e.failWith != nil {
		return nil, e.failWith
	}
	e.batchCalls++
	e.batchSizes = append(e.batchSizes, len(texts))

	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = []float32{float32(i + 1), 0, 0}
	}
	return embeddings, nil
}

func (e *stubEmbedder) MaxBatchSize() int { return 2 }

func newTestService(idx index.Index, size, overlap int) *Service {
	chunker, err := NewChunker(size, overlap)
	if err != nil {
		panic(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(idx, &stubEmbedder{}, chunker, WithLogger(logger))
}

func TestIngestAssignsMonotonicChunkIndices(t *testing.T) {
	idx := indextest.NewMemoryIndex()
	svc := newTestService(idx, 10, 0)

	doc, err := svc.Ingest(context.Background(), strings.Repeat("abcdefghij", 5), "doc-1", "manual.txt")
	require.NoError(t, err)
	assert.Equal(t, 5, doc.ChunkCount)
	assert.Equal(t, "doc-1", doc.DocumentID)
	assert.Equal(t, "manual.txt", doc.Filename)

	chunks := idx.Chunks()
	require.Len(t, chunks, 5)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.ChunkIndex)
		assert.Equal(t, index.ChunkID("doc-1", i), chunk.ChunkID)
		assert.Equal(t, 5, chunk.TotalChunks)
		assert.Equal(t, "manual.txt", chunk.Filename)
	}
}

func TestIngestEmptyContent(t *testing.T) {
	idx := indextest.NewMemoryIndex()
	svc := newTestService(idx, 10, 0)

	tests := []struct {
		name string
		text string
	}{
		{name: "空文字列", text: ""},
		{name: "空白のみ", text: "   \n\t  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Ingest(context.Background(), tt.text, "doc-x", "empty.txt")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrEmptyContent)

			count, err := idx.CountChunks(context.Background())
			require.NoError(t, err)
			assert.Zero(t, count, "no partial state on empty content")
		})
	}
}

func TestIngestBatchesEmbeddings(t *testing.T) {
	idx := indextest.NewMemoryIndex()
	chunker, err := NewChunker(10, 0)
	require.NoError(t, err)

	embedder := &stubEmbedder{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(idx, embedder, chunker, WithLogger(logger))

	// 5チャンク、最大バッチサイズ2 → 2+2+1 の3バッチ
	_, err = svc.Ingest(context.Background(), strings.Repeat("abcdefghij", 5), "doc-1", "manual.txt")
	require.NoError(t, err)
	assert.Equal(t, 3, embedder.batchCalls)
	assert.Equal(t, []int{2, 2, 1}, embedder.batchSizes)
}

func TestIngestIndexUnavailable(t *testing.T) {
	idx := indextest.NewMemoryIndex()
	idx.Unavailable = true
	svc := newTestService(idx, 10, 0)

	_, err := svc.Ingest(context.Background(), "some document text", "doc-1", "manual.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, index.ErrUnavailable)
}

func TestIngestEmbedderFailureAborts(t *testing.T) {
	idx := indextest.NewMemoryIndex()
	chunker, err := NewChunker(10, 0)
	require.NoError(t, err)

	embedErr := errors.New("embedding backend down")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(idx, &stubEmbedder{failWith: embedErr}, chunker, WithLogger(logger))

	_, err = svc.Ingest(context.Background(), "some document text", "doc-1", "manual.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, embedErr)

	count, err := idx.CountChunks(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count, "index must not be touched when embedding fails")
}

func TestRemoveDeletesAllChunks(t *testing.T) {
	idx := indextest.NewMemoryIndex()
	svc := newTestService(idx, 10, 0)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, strings.Repeat("abcdefghij", 3), "doc-1", "a.txt")
	require.NoError(t, err)
	_, err = svc.Ingest(ctx, strings.Repeat("abcdefghij", 5), "doc-2", "b.txt")
	require.NoError(t, err)

	deleted, err := svc.Remove(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	// 削除後の検索は対象ドキュメントのチャンクを一切返さない
	results, err := idx.Search(ctx, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	for _, res := range results {
		assert.NotEqual(t, "doc-1", res.Chunk.DocumentID)
	}

	docs, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc-2", docs[0].DocumentID)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.ChunkCount)
}

func TestRemoveUnknownDocumentReturnsZero(t *testing.T) {
	idx := indextest.NewMemoryIndex()
	svc := newTestService(idx, 10, 0)

	deleted, err := svc.Remove(context.Background(), "no-such-doc")
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestGetReturnsDocumentMetadata(t *testing.T) {
	idx := indextest.NewMemoryIndex()
	svc := newTestService(idx, 10, 0)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, strings.Repeat("abcdefghij", 3), "doc-1", "a.txt")
	require.NoError(t, err)

	doc, err := svc.Get(ctx, "doc-1")
	require.NoError(t, err)
	found, ok := doc.Get()
	require.True(t, ok)
	assert.Equal(t, "doc-1", found.DocumentID)
	assert.Equal(t, "a.txt", found.Filename)
	assert.Equal(t, 3, found.ChunkCount)
}

func TestGetUnknownDocumentReturnsNone(t *testing.T) {
	idx := indextest.NewMemoryIndex()
	svc := newTestService(idx, 10, 0)

	doc, err := svc.Get(context.Background(), "no-such-doc")
	require.NoError(t, err)
	assert.True(t, doc.IsAbsent())
}

func TestStatsCountsChunksAndDocuments(t *testing.T) {
	idx := indextest.NewMemoryIndex()
	svc := newTestService(idx, 10, 0)
	ctx := context.Background()

	// 3チャンクと5チャンクの2ドキュメント
	_, err := svc.Ingest(ctx, strings.Repeat("abcdefghij", 3), "doc-1", "a.txt")
	require.NoError(t, err)
	_, err = svc.Ingest(ctx, strings.Repeat("abcdefghij", 5), "doc-2", "b.txt")
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, stats.ChunkCount)
	assert.Equal(t, 2, stats.DocumentCount)
}
