package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/jdejaegh/ics-fusion/internal/cache"
	"github.com/jdejaegh/ics-fusion/internal/config"
	"github.com/jdejaegh/ics-fusion/internal/ics"
	appLog "github.com/jdejaegh/ics-fusion/internal/log"
	"github.com/jdejaegh/ics-fusion/internal/merge"
	"github.com/jdejaegh/ics-fusion/internal/pipeline"
	"github.com/jdejaegh/ics-fusion/internal/web"
)

const defaultConfigPath = "./ics-fusion.yaml"

// newCLIApp creates the CLI application with all commands.
func newCLIApp() *cli.App {
	return &cli.App{
		Name:    "ics-fusion",
		Usage:   "Merge remote calendar feeds into filtered, derived ICS endpoints",
		Version: Version,
		Commands: []*cli.Command{
			serveCmd(),
			checkCmd(),
		},
	}
}

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the merged calendar endpoints over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: defaultConfigPath, Usage: "Path to the application config file"},
			&cli.StringFlag{Name: "listen", Aliases: []string{"l"}, Usage: "HTTP listen address (overrides config if set)"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if listen := c.String("listen"); listen != "" {
				cfg.Listen = listen
			}
			appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))

			appLog.Info("effective config",
				"listen", cfg.Listen,
				"config_dir", cfg.ConfigDir,
				"fetch_timeout_seconds", cfg.FetchTimeoutSeconds,
				"prewarm", cfg.Prewarm,
				"stamp", cfg.StampEnabled(),
			)

			merger := newMerger(cfg)

			if cfg.Prewarm != "" {
				cr, err := merge.StartPrewarm(cfg.Prewarm, merger)
				if err != nil {
					return fmt.Errorf("scheduling prewarm: %w", err)
				}
				defer cr.Stop()
			}

			return web.Run(web.NewServer(merger, cfg.Listen))
		},
	}
}

func checkCmd() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Resolve every available configuration and report errors",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: defaultConfigPath, Usage: "Path to the application config file"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			store := config.NewDirStore(cfg.ConfigDir)
			names, err := store.ListAvailableNames()
			if err != nil {
				return fmt.Errorf("listing configurations: %w", err)
			}

			failed := 0
			for _, name := range names {
				if err := checkOne(name, store); err != nil {
					failed++
					fmt.Fprintf(c.App.ErrWriter, "FAIL %s: %v\n", name, err)
					continue
				}
				fmt.Fprintf(c.App.Writer, "ok   %s\n", name)
			}

			if failed > 0 {
				return cli.Exit(fmt.Sprintf("%d of %d configurations failed", failed, len(names)), 1)
			}
			return nil
		},
	}
}

// checkOne resolves one configuration and compiles every feed pipeline,
// surfacing the same errors serving would.
func checkOne(name string, store config.Store) error {
	specs, err := config.ResolveName(name, store)
	if err != nil {
		return err
	}
	for _, spec := range specs {
		if _, err := pipeline.New(spec); err != nil {
			return err
		}
	}
	return nil
}

func newMerger(cfg *config.Config) *merge.Merger {
	fetcher := ics.NewFetcher(time.Duration(cfg.FetchTimeoutSeconds) * time.Second)
	feedCache := cache.New(fetcher)
	store := config.NewDirStore(cfg.ConfigDir)
	return merge.New(store, feedCache, cfg.StampEnabled())
}
