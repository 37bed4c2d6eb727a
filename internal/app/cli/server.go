package cli

import (
	"context"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/kandori/doc-qa/internal/interface/api"
)

// ServerStartAction はHTTP APIサーバを起動するコマンドのアクション
func ServerStartAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	cfg := appCtx.Config
	if port := cmd.Int("port"); port > 0 {
		cfg.API.Port = int(port)
	}

	handler := api.NewHandler(
		appCtx.Container.IngestionService,
		appCtx.Container.AskService,
		appCtx.Container.Extractor,
		appCtx.Container.Index,
		cfg.UploadDir,
		cfg.TopKResults,
		appCtx.Logger(),
	)

	router := api.NewRouter(handler, appCtx.Logger())
	server := api.NewServer(cfg.API.Addr(), router, appCtx.Logger())

	slog.Info("APIサーバを起動します", "addr", cfg.API.Addr())

	return server.Run(ctx)
}
