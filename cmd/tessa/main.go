package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/irydacea/tessa/internal/bot"
	"github.com/irydacea/tessa/internal/config"
	"github.com/irydacea/tessa/internal/policy"
)

const version = "1.1.0"

func main() {
	// The stock version flag claims -v, which belongs to --verbose here.
	cli.VersionFlag = &cli.BoolFlag{
		Name:  "version",
		Usage: "print the version",
	}

	cmd := &cli.Command{
		Name:    "tessa",
		Usage:   "Reaction butler for Discord guilds",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   config.DefaultPath,
				Usage:   "Path to the JSONC configuration file",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "Log everything, including gateway traffic",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log informational detail (superseded by --debug)",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "tessa:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := config.BuildLogger(cmd.Bool("debug"), cmd.Bool("verbose"))
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	policies := policy.Compile(cfg, logger.Named("policy"))

	botSvc, err := bot.New(cfg, policies, logger, bot.Options{
		Debug:   cmd.Bool("debug"),
		Verbose: cmd.Bool("verbose"),
	})
	if err != nil {
		return fmt.Errorf("initializing bot: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := botSvc.Start(runCtx); err != nil {
		return fmt.Errorf("starting bot: %w", err)
	}
	logger.Info("tessa started", zap.String("version", version))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown requested", zap.String("signal", sig.String()))

	cancel()
	botSvc.Stop()
	logger.Info("goodbye")
	return nil
}
