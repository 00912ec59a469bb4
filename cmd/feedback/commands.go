package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	backtest "github.com/rxtech-lab/feedback-trader/internal/backtest/engine"
	engine "github.com/rxtech-lab/feedback-trader/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/feedback-trader/internal/backtest/task"
	"github.com/rxtech-lab/feedback-trader/internal/shell"
	"github.com/rxtech-lab/feedback-trader/internal/strategy"
	"github.com/rxtech-lab/feedback-trader/internal/types"
	"github.com/rxtech-lab/feedback-trader/pkg/marketdata"
	"github.com/rxtech-lab/feedback-trader/pkg/marketdata/provider"
)

func backtestCommand() *cli.Command {
	return &cli.Command{
		Name:    "backtest",
		Aliases: []string{"bt"},
		Usage:   "Run a backtest task",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "task",
				Aliases:  []string{"t"},
				Usage:    "Task name in the tasks folder, or a path to a task file",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Override the results folder of the task",
			},
		},
		Action: backtestAction,
	}
}

func backtestAction(ctx context.Context, cmd *cli.Command) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.log.Sync() //nolint:errcheck

	path, err := task.Resolve(a.cfg.TasksDir, cmd.String("task"))
	if err != nil {
		return err
	}

	t, err := task.Load(path)
	if err != nil {
		return err
	}

	if output := cmd.String("output"); output != "" {
		t.Output = output
	}

	var bar *progressbar.ProgressBar

	onStart := backtest.OnBacktestStartCallback(func(_, _, totalBars int) error {
		bar = progressbar.Default(int64(totalBars), "Backtesting "+t.Name)

		return nil
	})
	onProcess := backtest.OnProcessDataCallback(func(_, _ int) error {
		return bar.Add(1)
	})
	onDecisionError := backtest.OnDecisionErrorCallback(func(name string, date time.Time, err error) {
		a.log.Debug("Decision dropped", zap.String("strategy", name), zap.Time("date", date), zap.Error(err))
	})

	result, err := a.runner.Run(ctx, t, backtest.LifecycleCallbacks{
		OnBacktestStart: &onStart,
		OnProcessData:   &onProcess,
		OnDecisionError: &onDecisionError,
	})
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	fmt.Printf("Backtest done. Final equity: %.2f\n", result.FinalEquity)
	fmt.Printf("Total return: %.2f%%  Max drawdown: %.2f%%  Trades: %d\n",
		result.Stats.TotalReturn*100, result.Stats.TradeResult.MaxDrawdown*100, result.Stats.TradeResult.NumberOfTrades)

	if result.OutputDir != "" {
		fmt.Println(shell.HelpStyle.Render("Results written to " + result.OutputDir))
	}

	return nil
}

func fetchCommand() *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Download price history for one or more symbols into the cache",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:     "symbol",
				Aliases:  []string{"s"},
				Usage:    "Symbol or file path, repeatable",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "source",
				Usage: fmt.Sprintf("Data source (%v)", marketdata.GetSupportedSources()),
				Value: string(provider.SourceCSV),
			},
			&cli.StringFlag{Name: "start", Usage: "First date in `YYYY-MM-DD` format"},
			&cli.StringFlag{Name: "end", Usage: "Last date in `YYYY-MM-DD` format"},
			&cli.StringFlag{Name: "interval", Usage: "Bar interval", Value: string(provider.TimespanOneDay)},
			&cli.BoolFlag{Name: "adjusted", Usage: "Request adjusted prices"},
			&cli.BoolFlag{Name: "refresh", Usage: "Ignore cached data and fetch again"},
			&cli.IntFlag{Name: "max-retries", Usage: "Attempts per symbol when rate limited", Value: marketdata.DefaultMaxRetries},
			&cli.FloatFlag{Name: "backoff", Usage: "Base backoff in seconds", Value: marketdata.DefaultBackoffFactor.Seconds()},
		},
		Action: fetchAction,
	}
}

func fetchAction(ctx context.Context, cmd *cli.Command) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.log.Sync() //nolint:errcheck

	fetchConfig := marketdata.FetchConfig{
		Symbols:        cmd.StringSlice("symbol"),
		Source:         cmd.String("source"),
		Start:          cmd.String("start"),
		End:            cmd.String("end"),
		Interval:       cmd.String("interval"),
		Adjusted:       cmd.Bool("adjusted"),
		Refresh:        cmd.Bool("refresh"),
		MaxRetries:     int(cmd.Int("max-retries")),
		BackoffSeconds: cmd.Float("backoff"),
	}

	if err := fetchConfig.Validate(); err != nil {
		return err
	}

	req, err := fetchConfig.ToHistoryRequest()
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(len(fetchConfig.Symbols),
		progressbar.OptionSetDescription("Fetching"),
		progressbar.OptionShowCount(),
	)

	var mu sync.Mutex

	history, err := a.fetcher.GetHistories(ctx, fetchConfig.Symbols, req, func(symbol string, series types.TimeSeries) {
		mu.Lock()
		defer mu.Unlock()

		bar.Describe("Fetched " + symbol)
		_ = bar.Add(1)
	})
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}

	_ = bar.Finish()
	fmt.Println()

	symbols := make([]string, 0, len(history))
	for symbol := range history {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	for _, symbol := range symbols {
		series := history[symbol]
		first := series.At(0)
		last, _ := series.Last()
		fmt.Printf("%-12s %6d bars  %s .. %s\n", symbol, series.Len(),
			first.Time.Format("2006-01-02"), last.Time.Format("2006-01-02"))
	}

	return nil
}

func plotCommand() *cli.Command {
	return &cli.Command{
		Name:      "plot",
		Usage:     "Render a candlestick chart to HTML",
		ArgsUsage: "SYMBOL",
		Flags:     shell.PlotFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() == 0 {
				return fmt.Errorf("missing SYMBOL argument")
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.log.Sync() //nolint:errcheck

			opts, err := shell.ParsePlotOptions(cmd, cmd.Args().First())
			if err != nil {
				return err
			}

			path, err := shell.Plot(ctx, a.fetcher, opts, a.cfg.PlotsDir)
			if err != nil {
				return err
			}

			fmt.Println("Saved chart to " + path)

			return nil
		},
	}
}

func schemaCommand() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Print JSON schemas of the task document, strategy parameters, engine config or fetch config",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "strategy", Usage: "Print the parameter schema of this strategy"},
			&cli.BoolFlag{Name: "engine", Usage: "Print the engine config schema"},
			&cli.BoolFlag{Name: "fetch", Usage: "Print the fetch config schema"},
			&cli.BoolFlag{Name: "list", Usage: "List registered strategies and data sources"},
			&cli.StringFlag{Name: "write", Usage: "Write the task schema and a sample task into `DIR`"},
		},
		Action: schemaAction,
	}
}

func schemaAction(_ context.Context, cmd *cli.Command) error {
	registry := strategy.NewRegistry()

	var (
		schema string
		err    error
	)

	switch {
	case cmd.Bool("list"):
		fmt.Println(shell.TitleStyle.Render("Strategies"))

		for _, name := range registry.Names() {
			fmt.Println("  " + name)
		}

		fmt.Println(shell.TitleStyle.Render("Sources"))

		for _, name := range marketdata.GetSupportedSources() {
			info, _ := marketdata.GetSourceInfo(name)
			fmt.Printf("  %-10s %s\n", name, shell.HelpStyle.Render(info.Description))
		}

		return nil
	case cmd.String("write") != "":
		written, err := task.WriteSchema(cmd.String("write"))
		if err != nil {
			return err
		}

		for _, path := range written {
			fmt.Println("Wrote " + path)
		}

		return nil
	case cmd.String("strategy") != "":
		schema, err = registry.Schema(cmd.String("strategy"))
	case cmd.Bool("engine"):
		schema, err = engine.NewBacktestEngineV1(nil).GetConfigSchema()
	case cmd.Bool("fetch"):
		schema, err = marketdata.GetFetchConfigSchema()
	default:
		schema, err = task.GenerateSchemaJSON()
	}

	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(os.Stdout, schema)

	return err
}
