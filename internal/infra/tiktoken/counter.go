package tiktoken

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/kandori/doc-qa/internal/core/ask"
)

// Counter は tiktoken によるトークン計測・切り詰め機能を提供する
type Counter struct {
	encoding *tiktoken.Tiktoken
}

// NewCounter は新しい Counter を作成する
// cl100k_base エンコーディングを使用する
func NewCounter() (*Counter, error) {
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
	}

	return &Counter{encoding: encoding}, nil
}

// Count はテキストのトークン数をカウントする
func (c *Counter) Count(text string) int {
	if c.encoding == nil {
		return 0
	}
	return len(c.encoding.Encode(text, nil, nil))
}

// Trim はテキストを maxTokens トークン以内に切り詰める。
// トークン境界で切るため、元のテキストのプレフィックスを返す。
func (c *Counter) Trim(text string, maxTokens int) string {
	if c.encoding == nil || maxTokens <= 0 {
		return text
	}

	tokens := c.encoding.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}

	return c.encoding.Decode(tokens[:maxTokens])
}

// インターフェース実装の確認
var _ ask.TokenCounter = (*Counter)(nil)
