package cmd

import (
	"context"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/stupside/reelpull/internal/app"
	"github.com/stupside/reelpull/internal/ledger"
)

// statsCommand returns the "stats" CLI subcommand.
func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show the download usage of a user",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "user",
				Usage:    "User to report on",
				Required: true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := app.ConfigFrom(cmd)
			if err != nil {
				return err
			}

			store := ledger.New(cfg.Ledger)
			user := cmd.String("user")

			st, err := store.Stats(ctx, user)
			if err != nil {
				return err
			}
			allowance, err := store.CanDownload(ctx, user)
			if err != nil {
				return err
			}

			slog.InfoContext(ctx, "usage",
				"user", user,
				"downloads", st.Downloads,
				"premium", st.Premium,
				"premium_expires_at", st.PremiumExpiresAt,
				"allowed", allowance.Allowed,
				"remaining", allowance.Remaining,
			)
			return nil
		},
	}
}

// premiumCommand returns the "premium" CLI subcommand.
func premiumCommand() *cli.Command {
	return &cli.Command{
		Name:  "premium",
		Usage: "Grant a user unlimited downloads for a number of days",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "user",
				Usage:    "User to upgrade",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "days",
				Usage: "Length of the grant",
				Value: 30,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := app.ConfigFrom(cmd)
			if err != nil {
				return err
			}

			expires, err := ledger.New(cfg.Ledger).ActivatePremium(ctx, cmd.String("user"), cmd.Int("days"))
			if err != nil {
				return err
			}

			slog.InfoContext(ctx, "premium activated", "user", cmd.String("user"), "expires_at", expires)
			return nil
		},
	}
}
