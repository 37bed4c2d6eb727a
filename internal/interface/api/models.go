package api

import (
	"github.com/kandori/doc-qa/internal/core/index"
)

// UploadResponse はドキュメント登録結果のレスポンス
type UploadResponse struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
	UploadTime string `json:"upload_time"`
	Message    string `json:"message"`
}

// QueryRequest は質問リクエスト
type QueryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// DocumentListResponse は登録済みドキュメントの一覧レスポンス
type DocumentListResponse struct {
	Documents  []index.Document `json:"documents"`
	TotalCount int              `json:"total_count"`
}

// DeleteResponse はドキュメント削除結果のレスポンス
type DeleteResponse struct {
	DocumentID string `json:"document_id"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// StatsResponse はインデックス統計のレスポンス
type StatsResponse struct {
	ChunkCount    int `json:"chunk_count"`
	DocumentCount int `json:"document_count"`
}

// HealthResponse はヘルスチェックのレスポンス
type HealthResponse struct {
	Status         string `json:"status"`
	Timestamp      string `json:"timestamp"`
	LLMAvailable   bool   `json:"llm_available"`
	IndexAvailable bool   `json:"index_available"`
}

// RootResponse はルートエンドポイントのレスポンス
type RootResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
	Docs    string `json:"docs"`
	Health  string `json:"health"`
}

// errorResponse はエラーレスポンスの共通形式
type errorResponse struct {
	Detail string `json:"detail"`
}
