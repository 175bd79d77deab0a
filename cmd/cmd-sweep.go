package cmd

import (
	"context"
	"errors"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/stupside/reelpull/internal/app"
	"github.com/stupside/reelpull/internal/filesystem"
	"github.com/stupside/reelpull/internal/sweep"
)

// sweepCommand returns the "sweep" CLI subcommand.
func sweepCommand() *cli.Command {
	return &cli.Command{
		Name:  "sweep",
		Usage: "Delete deliverables older than the retention window",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "max-age",
				Usage: "Retention window (default from storage.max_age)",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Keep running and sweep every storage.sweep_every",
			},
			&cli.DurationFlag{
				Name:  "every",
				Usage: "Keep running and sweep at this interval",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := app.ConfigFrom(cmd)
			if err != nil {
				return err
			}

			maxAge := cfg.Storage.MaxAge
			if cmd.IsSet("max-age") {
				maxAge = cmd.Duration("max-age")
			}

			s := sweep.New(filesystem.API().Fs, cfg.Storage.Dir)

			if cmd.Bool("watch") || cmd.IsSet("every") {
				every := cfg.Storage.SweepEvery
				if cmd.IsSet("every") {
					every = cmd.Duration("every")
				}
				err := s.Run(ctx, every, maxAge)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}

			n, err := s.Sweep(maxAge)
			slog.InfoContext(ctx, "sweep complete", "dir", cfg.Storage.Dir, "removed", n)
			return err
		},
	}
}
