package ingestion

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidChunkConfig はチャンクサイズ・オーバーラップの組み合わせが不正な場合のエラー
var ErrInvalidChunkConfig = errors.New("invalid chunk configuration")

// Chunker はテキストをスライディングウィンドウでルーン単位に分割する。
// ウィンドウはオーバーラップ分を残して前進し、同じ入力には常に同じ
// チャンク列を返す。
type Chunker struct {
	size    int
	overlap int
}

// NewChunker は新しい Chunker を作成する。
// size は正、overlap は 0 以上 size 未満でなければならない。
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size must be positive, got %d", ErrInvalidChunkConfig, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap must be in [0, size), got %d", ErrInvalidChunkConfig, overlap)
	}

	return &Chunker{size: size, overlap: overlap}, nil
}

// Chunk はテキストをチャンク列へ分割する。
// 各ウィンドウは前後の空白を除去し、空になったウィンドウは出力しないが
// オフセットは進み続ける。最終ウィンドウが末尾へ到達した時点で停止する。
func (c *Chunker) Chunk(text string) []string {
	runes := []rune(text)
	step := c.size - c.overlap

	chunks := make([]string, 0)
	for offset := 0; offset < len(runes); offset += step {
		end := offset + c.size
		if end > len(runes) {
			end = len(runes)
		}

		window := strings.TrimSpace(string(runes[offset:end]))
		if window != "" {
			chunks = append(chunks, window)
		}

		if offset+c.size >= len(runes) {
			break
		}
	}

	return chunks
}

// Size はウィンドウサイズを返す
func (c *Chunker) Size() int {
	return c.size
}

// Overlap はウィンドウ間のオーバーラップを返す
func (c *Chunker) Overlap() int {
	return c.overlap
}
