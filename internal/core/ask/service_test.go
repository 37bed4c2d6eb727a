package ask

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kandori/doc-qa/internal/core/index"
)

type stubEmbedder struct {
	called bool
	err    error
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.called = true
	if e.err != nil {
		return nil, e.err
	}
	return []float32{1, 2, 3}, nil
}

type stubGenerator struct {
	answer     string
	err        error
	models     []string
	listErr    error
	model      string
	called     bool
	lastPrompt string
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.called = true
	g.lastPrompt = prompt
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}

func (g *stubGenerator) ListModels(ctx context.Context) ([]string, error) {
	if g.listErr != nil {
		return nil, g.listErr
	}
	return g.models, nil
}

func (g *stubGenerator) ModelName() string { return g.model }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAskReturnsAnswerWithSources(t *testing.T) {
	idx := &stubIndex{
		chunkCount: 2,
		results: []index.SearchResult{
			searchResult("doc-1", 0, "The warranty period is two years.", 0.2),
			searchResult("doc-1", 1, "Returns are accepted within 30 days.", 0.5),
		},
	}
	embedder := &stubEmbedder{}
	generator := &stubGenerator{answer: "The warranty lasts two years."}

	svc := NewService(idx, embedder, generator, WithLogger(discardLogger()))

	answer, err := svc.Ask(context.Background(), "How long is the warranty?", 2)
	require.NoError(t, err)

	assert.Equal(t, "The warranty lasts two years.", answer.Answer)
	assert.Equal(t, "How long is the warranty?", answer.Query)
	require.Len(t, answer.Sources, 2)
	assert.InDelta(t, 0.8, answer.Sources[0].RelevanceScore, 1e-9)
	assert.True(t, embedder.called)
	assert.Contains(t, generator.lastPrompt, "The warranty period is two years.")

	_, perr := time.Parse(time.RFC3339, answer.Timestamp)
	assert.NoError(t, perr)
}

func TestAskEmptyIndexShortCircuits(t *testing.T) {
	idx := &stubIndex{chunkCount: 0}
	embedder := &stubEmbedder{}
	generator := &stubGenerator{answer: "should not be called"}

	svc := NewService(idx, embedder, generator, WithLogger(discardLogger()))

	answer, err := svc.Ask(context.Background(), "Anything in there?", 3)
	require.NoError(t, err)

	assert.Equal(t, RefusalAnswer, answer.Answer)
	assert.Empty(t, answer.Sources)
	assert.NotNil(t, answer.Sources)
	assert.False(t, embedder.called, "embedder must not be called on empty index")
	assert.False(t, generator.called, "generator must not be called on empty index")
}

func TestAskGenerationFailureDegrades(t *testing.T) {
	idx := &stubIndex{
		chunkCount: 1,
		results: []index.SearchResult{
			searchResult("doc-1", 0, "some content", 0.3),
		},
	}
	generator := &stubGenerator{err: ErrGenerationFailed}

	svc := NewService(idx, &stubEmbedder{}, generator, WithLogger(discardLogger()))

	answer, err := svc.Ask(context.Background(), "What is this?", 3)
	require.NoError(t, err, "generation failure must not propagate as an error")

	assert.Contains(t, answer.Answer, "Error generating response:")
	require.Len(t, answer.Sources, 1, "sources are returned even when generation fails")
	assert.Equal(t, "What is this?", answer.Query)
	assert.NotEmpty(t, answer.Timestamp)
}

func TestAskAppliesDefaultTopK(t *testing.T) {
	idx := &stubIndex{
		chunkCount: 1,
		results: []index.SearchResult{
			searchResult("doc-1", 0, "content", 0.3),
		},
	}
	svc := NewService(idx, &stubEmbedder{}, &stubGenerator{answer: "ok"}, WithLogger(discardLogger()))

	_, err := svc.Ask(context.Background(), "question", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTopK, idx.lastTopK)
}

func TestAskRejectsEmptyQuestion(t *testing.T) {
	svc := NewService(&stubIndex{}, &stubEmbedder{}, &stubGenerator{}, WithLogger(discardLogger()))

	_, err := svc.Ask(context.Background(), "   ", 3)
	assert.Error(t, err)
}

func TestAskEmbeddingFailurePropagates(t *testing.T) {
	idx := &stubIndex{chunkCount: 1}
	embedErr := errors.New("embedding backend down")
	svc := NewService(idx, &stubEmbedder{err: embedErr}, &stubGenerator{}, WithLogger(discardLogger()))

	_, err := svc.Ask(context.Background(), "question", 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, embedErr)
}

func TestAskIndexUnavailablePropagates(t *testing.T) {
	idx := &stubIndex{chunkCount: 1, searchErr: index.ErrUnavailable}
	svc := NewService(idx, &stubEmbedder{}, &stubGenerator{}, WithLogger(discardLogger()))

	_, err := svc.Ask(context.Background(), "question", 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, index.ErrUnavailable)
}

type fixedTokenCounter struct {
	count   int
	trimmed string
}

func (c *fixedTokenCounter) Count(text string) int { return c.count }

func (c *fixedTokenCounter) Trim(text string, maxTokens int) string { return c.trimmed }

func TestAskTrimsOversizedContext(t *testing.T) {
	idx := &stubIndex{
		chunkCount: 1,
		results: []index.SearchResult{
			searchResult("doc-1", 0, "very long content", 0.3),
		},
	}
	generator := &stubGenerator{answer: "ok"}
	counter := &fixedTokenCounter{count: 10000, trimmed: "trimmed context"}

	svc := NewService(idx, &stubEmbedder{}, generator,
		WithLogger(discardLogger()),
		WithTokenCounter(counter, 4096),
	)

	_, err := svc.Ask(context.Background(), "question", 1)
	require.NoError(t, err)
	assert.Contains(t, generator.lastPrompt, "trimmed context")
	assert.NotContains(t, generator.lastPrompt, "very long content")
}

func TestCheckAvailability(t *testing.T) {
	tests := []struct {
		name   string
		model  string
		models []string
		want   bool
	}{
		{name: "完全一致", model: "llama3.2", models: []string{"llama3.2"}, want: true},
		{name: "タグサフィックス付き前方一致", model: "llama3.2", models: []string{"llama3.2:latest"}, want: true},
		{name: "部分一致", model: "llama3.2", models: []string{"my-llama3.2-ft"}, want: true},
		{name: "不一致", model: "llama3.2", models: []string{"mistral", "phi3"}, want: false},
		{name: "モデルなし", model: "llama3.2", models: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			generator := &stubGenerator{model: tt.model, models: tt.models}
			svc := NewService(&stubIndex{}, &stubEmbedder{}, generator, WithLogger(discardLogger()))
			assert.Equal(t, tt.want, svc.CheckAvailability(context.Background()))
		})
	}
}

func TestCheckAvailabilityListFailure(t *testing.T) {
	generator := &stubGenerator{model: "llama3.2", listErr: errors.New("connection refused")}
	svc := NewService(&stubIndex{}, &stubEmbedder{}, generator, WithLogger(discardLogger()))
	assert.False(t, svc.CheckAvailability(context.Background()))
}
