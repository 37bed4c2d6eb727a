package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEmbedderDefaults(t *testing.T) {
	embedder := NewEmbedder("dummy-key")

	assert.Equal(t, DefaultEmbeddingModel, embedder.ModelName())
	assert.Equal(t, DefaultEmbeddingDimension, embedder.Dimension())
	assert.Equal(t, 100, embedder.MaxBatchSize())
}

func TestNewEmbedderOptionsOverrideDefaults(t *testing.T) {
	embedder := NewEmbedder("dummy-key",
		WithEmbeddingModel("custom-model"),
		WithEmbeddingDimension(42),
		WithEmbeddingBaseURL("http://localhost:11434/v1"),
	)

	assert.Equal(t, "custom-model", embedder.ModelName())
	assert.Equal(t, 42, embedder.Dimension())
}

func TestNewGeneratorOptionsOverrideDefaults(t *testing.T) {
	generator := NewGenerator("dummy-key",
		WithGenerationModel("mistral"),
		WithTemperature(0.2),
		WithMaxTokens(256),
		WithGenerationBaseURL("http://localhost:11434/v1"),
	)

	assert.Equal(t, "mistral", generator.ModelName())
	assert.Equal(t, 0.2, generator.temperature)
	assert.Equal(t, 256, generator.maxTokens)
}
