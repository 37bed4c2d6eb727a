package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/kandori/doc-qa/internal/core/ask"
	"github.com/kandori/doc-qa/internal/core/extract"
	"github.com/kandori/doc-qa/internal/core/index"
	"github.com/kandori/doc-qa/internal/core/ingestion"
)

const (
	// maxTopK は 1 回の質問で参照できるチャンク数の上限
	maxTopK = 10

	// maxUploadSize はアップロードファイルのサイズ上限（32MB）
	maxUploadSize = 32 << 20
)

// Handler は HTTP ハンドラの依存関係を保持する
type Handler struct {
	ingestion   *ingestion.Service
	ask         *ask.Service
	extractor   *extract.Extractor
	index       index.Index
	uploadDir   string
	defaultTopK int
	logger      *slog.Logger
}

// NewHandler は新しい Handler を作成する
func NewHandler(ingestionSvc *ingestion.Service, askSvc *ask.Service, extractor *extract.Extractor, idx index.Index, uploadDir string, defaultTopK int, logger *slog.Logger) *Handler {
	if defaultTopK <= 0 {
		defaultTopK = ask.DefaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		ingestion:   ingestionSvc,
		ask:         askSvc,
		extractor:   extractor,
		index:       idx,
		uploadDir:   uploadDir,
		defaultTopK: defaultTopK,
		logger:      logger,
	}
}

// HandleRoot は GET / のリクエストを処理する
func (h *Handler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, RootResponse{
		Message: "Document Q&A System API",
		Version: "1.0.0",
		Docs:    "/docs",
		Health:  "/health",
	})
}

// HandleUpload は POST /api/documents/upload のリクエストを処理する。
// multipart の file フィールドを保存し、テキスト抽出してインデックスへ登録する。
// 保存したファイルは監査用に残し、登録失敗時のみ削除する。
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		sendError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		sendError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if !extract.Supported(filename) {
		sendError(w, http.StatusBadRequest, fmt.Sprintf(
			"unsupported file format: supported formats are %s",
			strings.Join(extract.Extensions(), ", "),
		))
		return
	}

	documentID := uuid.New().String()
	savedPath := filepath.Join(h.uploadDir, documentID+strings.ToLower(filepath.Ext(filename)))

	if err := h.saveUpload(file, savedPath); err != nil {
		h.logger.Error("failed to save uploaded file", "filename", filename, "error", err)
		sendError(w, http.StatusInternalServerError, "failed to save uploaded file")
		return
	}

	text, err := h.extractor.Extract(savedPath)
	if err != nil {
		os.Remove(savedPath)
		h.logger.Error("text extraction failed", "filename", filename, "error", err)
		sendError(w, http.StatusBadRequest, "failed to extract text from document")
		return
	}

	doc, err := h.ingestion.Ingest(r.Context(), text, documentID, filename)
	if err != nil {
		switch {
		case errors.Is(err, ingestion.ErrEmptyContent):
			// 中身のないファイルだけは残さない。他の失敗は再試行に備えて保持する。
			os.Remove(savedPath)
			sendError(w, http.StatusBadRequest, ingestion.ErrEmptyContent.Error())
		case errors.Is(err, index.ErrUnavailable):
			sendError(w, http.StatusServiceUnavailable, "vector index is unavailable")
		default:
			h.logger.Error("ingestion failed", "filename", filename, "error", err)
			sendError(w, http.StatusInternalServerError, "failed to ingest document")
		}
		return
	}

	sendJSON(w, http.StatusCreated, UploadResponse{
		DocumentID: doc.DocumentID,
		Filename:   doc.Filename,
		ChunkCount: doc.ChunkCount,
		UploadTime: doc.UploadTime.Format(time.RFC3339),
		Message:    "Document uploaded and indexed successfully",
	})
}

// HandleQuery は POST /api/query のリクエストを処理する
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		sendError(w, http.StatusBadRequest, "query is required")
		return
	}

	topK := req.TopK
	if topK <= 0 {
		topK = h.defaultTopK
	}
	if topK > maxTopK {
		topK = maxTopK
	}

	answer, err := h.ask.Ask(r.Context(), req.Query, topK)
	if err != nil {
		if errors.Is(err, index.ErrUnavailable) {
			sendError(w, http.StatusServiceUnavailable, "vector index is unavailable")
			return
		}
		h.logger.Error("query failed", "query", req.Query, "error", err)
		sendError(w, http.StatusInternalServerError, "failed to answer query")
		return
	}

	sendJSON(w, http.StatusOK, answer)
}

// HandleListDocuments は GET /api/documents のリクエストを処理する
func (h *Handler) HandleListDocuments(w http.ResponseWriter, r *http.Request) {
	documents, err := h.ingestion.List(r.Context())
	if err != nil {
		if errors.Is(err, index.ErrUnavailable) {
			sendError(w, http.StatusServiceUnavailable, "vector index is unavailable")
			return
		}
		h.logger.Error("failed to list documents", "error", err)
		sendError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}

	sendJSON(w, http.StatusOK, DocumentListResponse{
		Documents:  documents,
		TotalCount: len(documents),
	})
}

// HandleGetDocument は GET /api/documents/{document_id} のリクエストを処理する
func (h *Handler) HandleGetDocument(w http.ResponseWriter, r *http.Request) {
	documentID := mux.Vars(r)["document_id"]

	doc, err := h.ingestion.Get(r.Context(), documentID)
	if err != nil {
		if errors.Is(err, index.ErrUnavailable) {
			sendError(w, http.StatusServiceUnavailable, "vector index is unavailable")
			return
		}
		h.logger.Error("failed to get document", "documentID", documentID, "error", err)
		sendError(w, http.StatusInternalServerError, "failed to get document")
		return
	}

	found, ok := doc.Get()
	if !ok {
		sendError(w, http.StatusNotFound, fmt.Sprintf("document not found: %s", documentID))
		return
	}

	sendJSON(w, http.StatusOK, found)
}

// HandleDeleteDocument は DELETE /api/documents/{document_id} のリクエストを処理する。
// インデックスからチャンクを削除するが、保存済みのアップロードファイルは
// 監査のため残す。
func (h *Handler) HandleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	documentID := mux.Vars(r)["document_id"]

	deleted, err := h.ingestion.Remove(r.Context(), documentID)
	if err != nil {
		if errors.Is(err, index.ErrUnavailable) {
			sendError(w, http.StatusServiceUnavailable, "vector index is unavailable")
			return
		}
		h.logger.Error("failed to delete document", "documentID", documentID, "error", err)
		sendError(w, http.StatusInternalServerError, "failed to delete document")
		return
	}

	if deleted == 0 {
		sendError(w, http.StatusNotFound, fmt.Sprintf("document not found: %s", documentID))
		return
	}

	sendJSON(w, http.StatusOK, DeleteResponse{
		DocumentID: documentID,
		Message:    fmt.Sprintf("Successfully deleted document and %d chunks", deleted),
		Success:    true,
	})
}

// HandleStats は GET /api/stats のリクエストを処理する
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.ingestion.Stats(r.Context())
	if err != nil {
		if errors.Is(err, index.ErrUnavailable) {
			sendError(w, http.StatusServiceUnavailable, "vector index is unavailable")
			return
		}
		h.logger.Error("failed to get stats", "error", err)
		sendError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	sendJSON(w, http.StatusOK, StatsResponse{
		ChunkCount:    stats.ChunkCount,
		DocumentCount: stats.DocumentCount,
	})
}

// HandleHealth は GET /health のリクエストを処理する。
// 依存先が落ちていても 200 を返し、可用性は各フラグで報告する。
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	indexAvailable := true
	if _, err := h.index.CountChunks(r.Context()); err != nil {
		indexAvailable = false
	}

	llmAvailable := h.ask.CheckAvailability(r.Context())

	status := "healthy"
	if !indexAvailable || !llmAvailable {
		status = "degraded"
	}

	sendJSON(w, http.StatusOK, HealthResponse{
		Status:         status,
		Timestamp:      time.Now().Format(time.RFC3339),
		LLMAvailable:   llmAvailable,
		IndexAvailable: indexAvailable,
	})
}

func (h *Handler) saveUpload(src io.Reader, path string) error {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return fmt.Errorf("failed to create upload dir: %w", err)
	}

	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// sendJSON は JSON レスポンスを書き込む
func sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// sendError はエラーレスポンスを書き込む
func sendError(w http.ResponseWriter, status int, detail string) {
	sendJSON(w, status, errorResponse{Detail: detail})
}
