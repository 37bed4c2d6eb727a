package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	appcli "github.com/kandori/doc-qa/internal/app/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 構造化ログの設定
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	envFlag := &cli.StringFlag{
		Name:  "env",
		Usage: "環境変数ファイルパス",
		Value: ".env",
	}

	app := &cli.Command{
		Name:  "doc-qa",
		Usage: "ドキュメントQ&A向け RAG サービス",
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "サーバ関連コマンド",
				Commands: []*cli.Command{
					{
						Name:  "start",
						Usage: "HTTP APIサーバを起動",
						Flags: []cli.Flag{
							envFlag,
							&cli.IntFlag{
								Name:  "port",
								Usage: "HTTPポート（省略時は環境変数またはデフォルトの8000）",
							},
						},
						Action: appcli.ServerStartAction,
					},
				},
			},
			{
				Name:  "ingest",
				Usage: "ローカルファイルをインデックスへ登録",
				Flags: []cli.Flag{
					envFlag,
					&cli.StringFlag{
						Name:     "file",
						Usage:    "取り込むファイルパス (.pdf/.txt/.md)",
						Required: true,
					},
				},
				Action: appcli.IngestAction,
			},
			{
				Name:  "ask",
				Usage: "登録済みドキュメントに対して質問応答を実行",
				Flags: []cli.Flag{
					envFlag,
					&cli.StringFlag{
						Name:     "question",
						Usage:    "質問文",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "参照するチャンク数（省略時は設定値）",
					},
				},
				Action: appcli.AskAction,
			},
			{
				Name:  "document",
				Usage: "ドキュメント管理コマンド",
				Commands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "ドキュメント一覧を表示",
						Flags:  []cli.Flag{envFlag},
						Action: appcli.DocumentListAction,
					},
					{
						Name:  "delete",
						Usage: "ドキュメントをインデックスから削除",
						Flags: []cli.Flag{
							envFlag,
							&cli.StringFlag{
								Name:     "id",
								Usage:    "ドキュメントID",
								Required: true,
							},
						},
						Action: appcli.DocumentDeleteAction,
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "インデックス統計を表示",
				Flags:  []cli.Flag{envFlag},
				Action: appcli.StatsAction,
			},
			{
				Name:   "health",
				Usage:  "依存先の可用性を表示",
				Flags:  []cli.Flag{envFlag},
				Action: appcli.HealthAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
