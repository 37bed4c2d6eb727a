package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// AskAction は質問応答を実行するコマンドのアクション
func AskAction(ctx context.Context, cmd *cli.Command) error {
	question := cmd.String("question")
	topK := int(cmd.Int("top-k"))
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if topK <= 0 {
		topK = appCtx.Config.TopKResults
	}

	answer, err := appCtx.Container.AskService.Ask(ctx, question, topK)
	if err != nil {
		return fmt.Errorf("質問応答に失敗: %w", err)
	}

	fmt.Println(answer.Answer)

	if len(answer.Sources) > 0 {
		fmt.Println("\nSources:")
		for i, src := range answer.Sources {
			fmt.Printf("  [%d] %s (chunk %d, score %.3f)\n", i+1, src.Filename, src.ChunkIndex, src.RelevanceScore)
			fmt.Printf("      %s\n", src.Content)
		}
	}

	return nil
}
