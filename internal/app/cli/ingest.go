package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/kandori/doc-qa/internal/core/extract"
)

// IngestAction はローカルファイルをインデックスへ登録するコマンドのアクション
func IngestAction(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("file")
	envFile := cmd.String("env")

	if !extract.Supported(path) {
		return fmt.Errorf("サポート外のファイル形式です: %s", filepath.Ext(path))
	}

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	slog.Info("ドキュメント取り込みを開始", "file", path)

	text, err := appCtx.Container.Extractor.Extract(path)
	if err != nil {
		return fmt.Errorf("テキスト抽出に失敗: %w", err)
	}

	documentID := uuid.New().String()
	filename := filepath.Base(path)

	doc, err := appCtx.Container.IngestionService.Ingest(ctx, text, documentID, filename)
	if err != nil {
		return fmt.Errorf("取り込みに失敗: %w", err)
	}

	fmt.Printf("Document ID: %s\n", doc.DocumentID)
	fmt.Printf("Filename:    %s\n", doc.Filename)
	fmt.Printf("Chunks:      %d\n", doc.ChunkCount)

	return nil
}
