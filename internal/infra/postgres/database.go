package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kandori/doc-qa/internal/core/index"
)

// ConnectionParams は PostgreSQL への接続パラメータ
type ConnectionParams struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN は接続文字列を組み立てる
func (p ConnectionParams) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode,
	)
}

// Database は pgxpool を用いた接続を保持する
type Database struct {
	pool *pgxpool.Pool
}

// NewDatabase は接続プールを作成し疎通を確認する
func NewDatabase(ctx context.Context, params ConnectionParams) (*Database, error) {
	pool, err := pgxpool.New(ctx, params.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", index.ErrUnavailable, err)
	}

	return &Database{pool: pool}, nil
}

// Pool は内部の接続プールを返す
func (d *Database) Pool() *pgxpool.Pool {
	return d.pool
}

// Ping は接続の疎通を確認する
func (d *Database) Ping(ctx context.Context) error {
	if err := d.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", index.ErrUnavailable, err)
	}
	return nil
}

// Close は接続プールを閉じる
func (d *Database) Close() {
	d.pool.Close()
}

// EnsureSchema は pgvector 拡張とチャンクテーブル・HNSW インデックスを作成する。
// 冪等であり、既に存在する場合は何もしない。
func (d *Database) EnsureSchema(ctx context.Context, dimension int) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS document_chunks (
			collection   TEXT NOT NULL,
			chunk_id     TEXT NOT NULL,
			document_id  TEXT NOT NULL,
			chunk_index  INTEGER NOT NULL,
			content      TEXT NOT NULL,
			embedding    vector(%d) NOT NULL,
			filename     TEXT NOT NULL,
			upload_time  TIMESTAMPTZ NOT NULL,
			total_chunks INTEGER NOT NULL,
			PRIMARY KEY (collection, chunk_id)
		)`, dimension),
		`CREATE INDEX IF NOT EXISTS document_chunks_document_id_idx
			ON document_chunks (collection, document_id)`,
		`CREATE INDEX IF NOT EXISTS document_chunks_embedding_idx
			ON document_chunks USING hnsw (embedding vector_cosine_ops)`,
	}

	for _, stmt := range stmts {
		if _, err := d.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}

	return nil
}
