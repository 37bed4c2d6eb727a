package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
)

// DocumentListAction は登録済みドキュメントの一覧を表示するコマンドのアクション
func DocumentListAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	documents, err := appCtx.Container.IngestionService.List(ctx)
	if err != nil {
		return fmt.Errorf("ドキュメント一覧の取得に失敗: %w", err)
	}

	if len(documents) == 0 {
		fmt.Println("No documents indexed.")
		return nil
	}

	for _, doc := range documents {
		fmt.Printf("%s  %s  chunks=%d  uploaded=%s\n",
			doc.DocumentID,
			doc.Filename,
			doc.ChunkCount,
			doc.UploadTime.Format(time.RFC3339),
		)
	}

	return nil
}

// DocumentDeleteAction はドキュメントをインデックスから削除するコマンドのアクション
func DocumentDeleteAction(ctx context.Context, cmd *cli.Command) error {
	documentID := cmd.String("id")
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	deleted, err := appCtx.Container.IngestionService.Remove(ctx, documentID)
	if err != nil {
		return fmt.Errorf("ドキュメント削除に失敗: %w", err)
	}

	if deleted == 0 {
		return fmt.Errorf("ドキュメントが見つかりません: %s", documentID)
	}

	fmt.Printf("Deleted %d chunks of document %s\n", deleted, documentID)
	return nil
}

// StatsAction はインデックス統計を表示するコマンドのアクション
func StatsAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	stats, err := appCtx.Container.IngestionService.Stats(ctx)
	if err != nil {
		return fmt.Errorf("統計取得に失敗: %w", err)
	}

	fmt.Printf("Documents: %d\n", stats.DocumentCount)
	fmt.Printf("Chunks:    %d\n", stats.ChunkCount)
	return nil
}

// HealthAction は依存先の可用性を表示するコマンドのアクション
func HealthAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	indexAvailable := true
	if _, err := appCtx.Container.Index.CountChunks(ctx); err != nil {
		indexAvailable = false
	}

	llmAvailable := appCtx.Container.AskService.CheckAvailability(ctx)

	fmt.Printf("Index: %s\n", availability(indexAvailable))
	fmt.Printf("LLM:   %s\n", availability(llmAvailable))
	return nil
}

func availability(ok bool) string {
	if ok {
		return "available"
	}
	return "unavailable"
}
