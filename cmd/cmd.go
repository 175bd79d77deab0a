package cmd

import (
	"context"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/stupside/reelpull/internal/app"
	"github.com/stupside/reelpull/internal/version"
)

// Root returns the root CLI command.
func Root() *cli.Command {
	var configPath string

	return &cli.Command{
		Name:    "reelpull",
		Usage:   "Resolve storefront share links into delivery-ready videos",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to configuration file",
				Value:       "config.yaml",
				Destination: &configPath,
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
			&cli.StringFlag{
				Name:    "chrome-path",
				Usage:   "Chrome binary to use instead of discovery",
				Sources: cli.EnvVars("REELPULL_CHROME_PATH", "PUPPETEER_EXECUTABLE_PATH"),
			},
			&cli.BoolFlag{
				Name:    "skip-provision",
				Usage:   "Never download a browser when none is installed",
				Sources: cli.EnvVars("REELPULL_SKIP_PROVISION", "PUPPETEER_SKIP_CHROMIUM_DOWNLOAD"),
			},
			&cli.StringFlag{
				Name:    "cookies",
				Usage:   "Cookie header to seed the browser session with",
				Sources: cli.EnvVars("REELPULL_COOKIES"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			cfg, err := app.Load(configPath)
			if err != nil {
				return ctx, err
			}
			applyOverrides(cmd, cfg)
			cmd.Metadata["config"] = cfg
			return ctx, nil
		},
		Commands: []*cli.Command{
			resolveCommand(),
			sweepCommand(),
			statsCommand(),
			premiumCommand(),
			{
				Name:  "info",
				Usage: "Print build information",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					slog.Info("build",
						"version", version.Version,
						"commit", version.Commit,
						"build_time", version.BuildTime,
					)
					return nil
				},
			},
		},
		Metadata: map[string]any{},
	}
}

// applyOverrides copies flags and their environment sources over the file
// configuration.
func applyOverrides(cmd *cli.Command, cfg *app.Config) {
	if cmd.IsSet("chrome-path") {
		cfg.Browser.ChromePath = cmd.String("chrome-path")
	}
	if cmd.IsSet("skip-provision") {
		cfg.Browser.SkipProvision = cmd.Bool("skip-provision")
	}
	if cmd.IsSet("cookies") {
		cfg.Browser.Cookies = cmd.String("cookies")
	}
}
