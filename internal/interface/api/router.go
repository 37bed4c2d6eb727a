package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// loggingMiddleware はリクエストの概要とレイテンシを記録する
func loggingMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Info("request handled",
				"method", r.Method,
				"path", r.URL.Path,
				"duration", time.Since(start).String(),
			)
		})
	}
}

// corsMiddleware は開発用の CORS ヘッダを付与する
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// NewRouter はルーティングを設定した HTTP ルータを作成する
func NewRouter(handler *Handler, logger *slog.Logger) *mux.Router {
	if logger == nil {
		logger = slog.Default()
	}

	r := mux.NewRouter()

	r.Use(loggingMiddleware(logger))
	r.Use(corsMiddleware)

	r.HandleFunc("/", handler.HandleRoot).Methods("GET")
	r.HandleFunc("/api/documents/upload", handler.HandleUpload).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/documents", handler.HandleListDocuments).Methods("GET")
	r.HandleFunc("/api/documents/{document_id}", handler.HandleGetDocument).Methods("GET")
	r.HandleFunc("/api/documents/{document_id}", handler.HandleDeleteDocument).Methods("DELETE", "OPTIONS")
	r.HandleFunc("/api/query", handler.HandleQuery).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/stats", handler.HandleStats).Methods("GET")
	r.HandleFunc("/health", handler.HandleHealth).Methods("GET")

	return r
}
