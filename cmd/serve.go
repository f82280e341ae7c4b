package cmd

import (
	"context"
	"fmt"

	"github.com/LegendarySumit/MediaDL/internal/config"
	"github.com/LegendarySumit/MediaDL/internal/server"
	"github.com/urfave/cli/v3"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the download API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "download-dir",
				Usage:   "Directory downloaded files are written to",
				Sources: cli.EnvVars("MD_DOWNLOAD_DIR"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load(cmd.String("config"))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			if v := cmd.String("download-dir"); v != "" {
				cfg.Download.Dir = v
			}
			if v := cmd.String("log-level"); v != "" {
				cfg.Logging.Level = v
			}

			return server.Run(ctx, cfg)
		},
	}
}
