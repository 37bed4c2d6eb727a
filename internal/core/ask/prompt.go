package ask

import (
	"fmt"
	"strings"
)

// NoContextSentinel は検索結果が空のときにコンテキストとして渡す定型文。
// この文字列自体をプロンプトへ渡すことで、生成器が回答を適切に断れる。
const NoContextSentinel = "No relevant context found."

// RefusalAnswer はコンテキスト不足時に生成器へ要求する定型の回答文
const RefusalAnswer = "I don't have enough information in the documents to answer this question."

// BuildContext は取得済みパッセージを1つのコンテキストブロックへ整形する。
// パッセージごとに 1 始まりのソース番号とファイル名を見出しに付け、
// ブロック間は空行で区切る。入力が空なら NoContextSentinel を返す。
func BuildContext(retrieved []Retrieved) string {
	if len(retrieved) == 0 {
		return NoContextSentinel
	}

	blocks := make([]string, 0, len(retrieved))
	for i, r := range retrieved {
		blocks = append(blocks, fmt.Sprintf("[Source %d: %s]\n%s\n", i+1, r.Filename, r.Content))
	}

	return strings.Join(blocks, "\n")
}

// BuildPrompt は質問とコンテキストから生成器への入力を構築する。
// 純粋な文字列テンプレートであり、同じ (question, context) には常に
// 同一のプロンプトを返す。
func BuildPrompt(question, contextBlock string) string {
	var sb strings.Builder

	sb.WriteString("You are a helpful AI assistant for an e-commerce platform. ")
	sb.WriteString("Answer the user's question based on the provided context from product documents.\n\n")

	sb.WriteString("Context from documents:\n")
	sb.WriteString(contextBlock)
	sb.WriteString("\n\n")

	sb.WriteString("User Question: ")
	sb.WriteString(question)
	sb.WriteString("\n\n")

	sb.WriteString("Instructions:\n")
	sb.WriteString("- Answer the question using ONLY the information from the context above\n")
	sb.WriteString("- If the context doesn't contain enough information to answer, say \"")
	sb.WriteString(RefusalAnswer)
	sb.WriteString("\"\n")
	sb.WriteString("- Be concise and accurate\n")
	sb.WriteString("- If referencing specific products or features, mention the source document\n\n")

	sb.WriteString("Answer:")

	return sb.String()
}
