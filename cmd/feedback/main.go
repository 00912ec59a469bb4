package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/rxtech-lab/feedback-trader/internal/backtest/task"
	"github.com/rxtech-lab/feedback-trader/internal/config"
	"github.com/rxtech-lab/feedback-trader/internal/logger"
	"github.com/rxtech-lab/feedback-trader/internal/shell"
	"github.com/rxtech-lab/feedback-trader/internal/strategy"
	"github.com/rxtech-lab/feedback-trader/internal/version"
	"github.com/rxtech-lab/feedback-trader/pkg/marketdata"
)

// app bundles the services shared by every command.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	fetcher *marketdata.Fetcher
	runner  *task.Runner
}

func newApp(cmd *cli.Command) (*app, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	if level := cmd.String("log-level"); level != "" {
		cfg.LogLevel = level
	}

	log, err := logger.NewLoggerWithConfig(logger.Config{Level: cfg.LogLevel, Dir: cfg.LogDir})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	fetcher, err := marketdata.NewDefaultFetcher(cfg.FetcherConfig(), log)
	if err != nil {
		return nil, fmt.Errorf("failed to create fetcher: %w", err)
	}

	runner := task.NewRunner(task.RunnerConfig{
		TasksDir:   cfg.TasksDir,
		ResultsDir: cfg.ResultsDir,
	}, fetcher, strategy.NewRegistry(), log)

	return &app{cfg: cfg, log: log, fetcher: fetcher, runner: runner}, nil
}

func shellAction(ctx context.Context, cmd *cli.Command) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.log.Sync() //nolint:errcheck

	return shell.New(os.Stdin, os.Stdout, a.cfg, a.runner, a.fetcher, a.log).Run(ctx)
}

func main() {
	cmd := &cli.Command{
		Name:    "feedback",
		Usage:   "Fetch price history, run backtests and plot charts",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a feedback.yaml config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn or error",
			},
		},
		Action: shellAction,
		Commands: []*cli.Command{
			{
				Name:   "shell",
				Usage:  "Start the interactive shell",
				Action: shellAction,
			},
			backtestCommand(),
			fetchCommand(),
			plotCommand(),
			schemaCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, shell.ErrorStyle.Render("Error: "+err.Error()))
		stop()
		os.Exit(2)
	}
}
