package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/samber/mo"

	"github.com/kandori/doc-qa/internal/core/index"
)

// IndexRepository は index.Index インターフェースを実装する PostgreSQL リポジトリ。
// pgvector のコサイン距離演算子（<=>）で近傍検索を行う。
type IndexRepository struct {
	db         *Database
	collection string
}

// NewIndexRepository は新しい IndexRepository を作成する
func NewIndexRepository(db *Database, collection string) *IndexRepository {
	return &IndexRepository{db: db, collection: collection}
}

// コンパイル時の型チェック
var _ index.Index = (*IndexRepository)(nil)

// unavailable はストレージ層の失敗を index.ErrUnavailable として包む
func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", index.ErrUnavailable, op, err)
}

// Insert はドキュメントの全チャンクを単一トランザクションで登録する。
// 途中で失敗した場合は何も登録されない。どちらかの入力が空なら何もしない。
func (r *IndexRepository) Insert(ctx context.Context, chunks []string, embeddings [][]float32, documentID, filename string, uploadTime time.Time) error {
	if len(chunks) == 0 || len(embeddings) == 0 {
		return nil
	}
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunk count %d does not match embedding count %d", len(chunks), len(embeddings))
	}

	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return unavailable("failed to begin chunk insert", err)
	}
	defer tx.Rollback(ctx)

	total := len(chunks)
	for i, content := range chunks {
		_, err := tx.Exec(ctx,
			`INSERT INTO document_chunks
				(collection, chunk_id, document_id, chunk_index, content, embedding, filename, upload_time, total_chunks)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			r.collection,
			index.ChunkID(documentID, i),
			documentID,
			i,
			content,
			pgvector.NewVector(embeddings[i]),
			filename,
			uploadTime,
			total,
		)
		if err != nil {
			return unavailable(fmt.Sprintf("failed to insert chunk %d", i), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return unavailable("failed to commit chunk insert", err)
	}

	return nil
}

// Search はクエリベクトルに近い順に topK 件のチャンクを返す
func (r *IndexRepository) Search(ctx context.Context, queryEmbedding []float32, topK int) ([]index.SearchResult, error) {
	rows, err := r.db.pool.Query(ctx,
		`SELECT chunk_id, document_id, chunk_index, content, filename, upload_time, total_chunks,
			embedding <=> $2 AS distance
		 FROM document_chunks
		 WHERE collection = $1
		 ORDER BY distance
		 LIMIT $3`,
		r.collection,
		pgvector.NewVector(queryEmbedding),
		topK,
	)
	if err != nil {
		return nil, unavailable("failed to query search results", err)
	}
	defer rows.Close()

	results := make([]index.SearchResult, 0, topK)
	for rows.Next() {
		var result index.SearchResult
		if err := rows.Scan(
			&result.Chunk.ChunkID,
			&result.Chunk.DocumentID,
			&result.Chunk.ChunkIndex,
			&result.Chunk.Content,
			&result.Chunk.Filename,
			&result.Chunk.UploadTime,
			&result.Chunk.TotalChunks,
			&result.Distance,
		); err != nil {
			return nil, unavailable("failed to scan search result", err)
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("failed to read search results", err)
	}

	return results, nil
}

// DeleteByDocument はドキュメントの全チャンクを削除し、削除件数を返す
func (r *IndexRepository) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	tag, err := r.db.pool.Exec(ctx,
		`DELETE FROM document_chunks WHERE collection = $1 AND document_id = $2`,
		r.collection, documentID,
	)
	if err != nil {
		return 0, unavailable("failed to delete document chunks", err)
	}

	return int(tag.RowsAffected()), nil
}

// ListDocuments は登録済みドキュメントの一覧をアップロード日時の降順で返す
func (r *IndexRepository) ListDocuments(ctx context.Context) ([]index.Document, error) {
	rows, err := r.db.pool.Query(ctx,
		`SELECT document_id, filename, upload_time, total_chunks
		 FROM (
			SELECT DISTINCT ON (document_id)
				document_id, filename, upload_time, total_chunks
			FROM document_chunks
			WHERE collection = $1
			ORDER BY document_id, chunk_index
		 ) docs
		 ORDER BY upload_time DESC`,
		r.collection,
	)
	if err != nil {
		return nil, unavailable("failed to query documents", err)
	}
	defer rows.Close()

	documents := make([]index.Document, 0)
	for rows.Next() {
		var doc index.Document
		if err := rows.Scan(&doc.DocumentID, &doc.Filename, &doc.UploadTime, &doc.ChunkCount); err != nil {
			return nil, unavailable("failed to scan document", err)
		}
		documents = append(documents, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("failed to read documents", err)
	}

	return documents, nil
}

// GetDocument はドキュメントのメタデータを返す。存在しない場合は None。
func (r *IndexRepository) GetDocument(ctx context.Context, documentID string) (mo.Option[index.Document], error) {
	var doc index.Document
	err := r.db.pool.QueryRow(ctx,
		`SELECT document_id, filename, upload_time, total_chunks
		 FROM document_chunks
		 WHERE collection = $1 AND document_id = $2
		 ORDER BY chunk_index
		 LIMIT 1`,
		r.collection, documentID,
	).Scan(&doc.DocumentID, &doc.Filename, &doc.UploadTime, &doc.ChunkCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mo.None[index.Document](), nil
		}
		return mo.None[index.Document](), unavailable("failed to get document", err)
	}

	return mo.Some(doc), nil
}

// CountChunks はコレクション内のチャンク総数を返す
func (r *IndexRepository) CountChunks(ctx context.Context) (int, error) {
	var count int
	err := r.db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM document_chunks WHERE collection = $1`,
		r.collection,
	).Scan(&count)
	if err != nil {
		return 0, unavailable("failed to count chunks", err)
	}
	return count, nil
}

// CountDocuments はコレクション内のドキュメント総数を返す
func (r *IndexRepository) CountDocuments(ctx context.Context) (int, error) {
	var count int
	err := r.db.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT document_id) FROM document_chunks WHERE collection = $1`,
		r.collection,
	).Scan(&count)
	if err != nil {
		return 0, unavailable("failed to count documents", err)
	}
	return count, nil
}
