package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/samber/lo"
	"github.com/urfave/cli/v3"

	"github.com/stupside/reelpull/internal/app"
	"github.com/stupside/reelpull/internal/extractor"
	"github.com/stupside/reelpull/internal/fetch"
	"github.com/stupside/reelpull/internal/ffmpeg"
	"github.com/stupside/reelpull/internal/ledger"
	"github.com/stupside/reelpull/internal/pipeline"
	"github.com/stupside/reelpull/internal/transcode"
)

// resolveCommand returns the "resolve" CLI subcommand.
func resolveCommand() *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Download and normalize the video behind each share link",
		ArgsUsage: "<link> [link...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "user",
				Usage: "Account the downloads to this user in the ledger",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			links := cmd.Args().Slice()
			if len(links) == 0 {
				return errors.New("at least one share link is required")
			}

			cfg, err := app.ConfigFrom(cmd)
			if err != nil {
				return err
			}

			outcomes := newService(cfg).ProcessAll(ctx, links, cmd.String("user"))

			enc := json.NewEncoder(os.Stdout)
			for _, out := range outcomes {
				if err := enc.Encode(out); err != nil {
					return fmt.Errorf("writing outcome: %w", err)
				}
			}
			failed := lo.CountBy(outcomes, func(out pipeline.Outcome) bool { return !out.Success })
			if failed > 0 {
				return fmt.Errorf("%d of %d links failed", failed, len(links))
			}
			return nil
		},
	}
}

func newService(cfg *app.Config) *pipeline.Service {
	runner := ffmpeg.ExecRunner{}
	return pipeline.NewService(cfg.Storage, cfg.Pool,
		extractor.New(cfg.Browser, cfg.Capture),
		fetch.New(cfg.Fetch, cfg.Transcode.FFmpegPath, runner),
		transcode.New(cfg.Transcode, runner, cfg.Pool.Encoders),
		ledger.New(cfg.Ledger),
	)
}
