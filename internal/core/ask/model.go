package ask

// SourceDocument は回答の根拠となったソースドキュメントの参照を表す。
// Content は表示用に切り詰められることがある（コンテキスト生成には全文を使う）。
type SourceDocument struct {
	DocumentID     string  `json:"document_id"`
	Filename       string  `json:"filename"`
	ChunkIndex     int     `json:"chunk_index"`
	RelevanceScore float64 `json:"relevance_score"`
	Content        string  `json:"content"`
}

// Answer は質問応答の結果を表す
type Answer struct {
	Answer    string           `json:"answer"`
	Sources   []SourceDocument `json:"sources"`
	Query     string           `json:"query"`
	Timestamp string           `json:"timestamp"`
}

// Retrieved は検索で取得した1パッセージを表す。
// Source.Content は表示用の切り詰め済みテキスト、Content は全文。
type Retrieved struct {
	Source   SourceDocument
	Content  string
	Filename string
}
