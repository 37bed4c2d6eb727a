package ask

import (
	"context"
	"fmt"
	"math"

	"github.com/kandori/doc-qa/internal/core/index"
)

// displayContentLimit は表示用コンテンツの最大文字数（ルーン単位）
const displayContentLimit = 200

// Retriever はベクトル検索の結果を関連度スコア付きのソース参照へ変換する。
// インデックスの状態は読み取るだけで変更しない。
type Retriever struct {
	index index.Index
}

// NewRetriever は新しい Retriever を作成する
func NewRetriever(idx index.Index) *Retriever {
	return &Retriever{index: idx}
}

// Retrieve はクエリベクトルに近いパッセージを距離の昇順で返す。
// スコアは relevance = clamp(1 - distance, 0, 1) で算出する。
// コサイン距離は [0,2] の範囲を取るため、距離 1.0 超は負にせず 0 に丸める。
// インデックスが空の場合は空列を返す（「回答不能」の判断は呼び出し側）。
func (r *Retriever) Retrieve(ctx context.Context, queryEmbedding []float32, topK int) ([]Retrieved, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}

	results, err := r.index.Search(ctx, queryEmbedding, topK)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	retrieved := make([]Retrieved, 0, len(results))
	for _, res := range results {
		retrieved = append(retrieved, Retrieved{
			Source: SourceDocument{
				DocumentID:     res.Chunk.DocumentID,
				Filename:       res.Chunk.Filename,
				ChunkIndex:     res.Chunk.ChunkIndex,
				RelevanceScore: relevanceScore(res.Distance),
				Content:        truncateForDisplay(res.Chunk.Content),
			},
			Content:  res.Chunk.Content,
			Filename: res.Chunk.Filename,
		})
	}

	return retrieved, nil
}

// relevanceScore はコサイン距離を [0,1] の関連度スコアへ変換する。
// 表示用に小数第3位へ丸める。
func relevanceScore(distance float64) float64 {
	score := 1.0 - distance
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return math.Round(score*1000) / 1000
}

// truncateForDisplay はコードポイント単位で安全に切り詰め、省略記号を付ける。
// バイト境界ではなくルーン境界で切るため、マルチバイト文字を破壊しない。
func truncateForDisplay(content string) string {
	runes := []rune(content)
	if len(runes) <= displayContentLimit {
		return content
	}
	return string(runes[:displayContentLimit]) + "..."
}
