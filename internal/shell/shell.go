// Package shell implements the interactive line-oriented command interface.
package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	backtest "github.com/rxtech-lab/feedback-trader/internal/backtest/engine"
	"github.com/rxtech-lab/feedback-trader/internal/backtest/task"
	"github.com/rxtech-lab/feedback-trader/internal/config"
	"github.com/rxtech-lab/feedback-trader/internal/logger"
	"github.com/rxtech-lab/feedback-trader/internal/types"
	"github.com/rxtech-lab/feedback-trader/pkg/marketdata"
)

const (
	Prompt = "feedback > "
	Banner = "FeedbackTrader CLI. Type 'help' for commands, 'exit' to quit."
)

const helpText = `Commands:
    help, h, ?       Show this help
    config, cfg      Show the effective configuration
    backtest, bt     Run a backtest task: backtest TASK_NAME
    plot             Plot price history: plot SYMBOL [--frame daily|weekly] [--ma 5,20]
                     [--source csv] [--start YYYY-MM-DD] [--end YYYY-MM-DD] [--refresh] [--output file.html]
    exit, quit, q    Exit the CLI`

const quickStart = "If you just want to see something quick, try:\n    plot AAPL --frame weekly"

// BacktestRunner runs a named task.
type BacktestRunner interface {
	RunNamed(ctx context.Context, name string, callbacks backtest.LifecycleCallbacks) (*task.Result, error)
}

// HistoryGetter fetches one symbol's price history.
type HistoryGetter interface {
	GetHistory(ctx context.Context, req marketdata.HistoryRequest) (types.TimeSeries, error)
}

// Shell reads commands from in and writes their output to out.
type Shell struct {
	in      io.Reader
	out     io.Writer
	runner  BacktestRunner
	history HistoryGetter
	cfg     *config.Config
	log     *logger.Logger
}

func New(in io.Reader, out io.Writer, cfg *config.Config, runner BacktestRunner, history HistoryGetter, log *logger.Logger) *Shell {
	if log == nil {
		log = logger.NewNop()
	}

	if cfg == nil {
		cfg = config.Default()
	}

	return &Shell{
		in:      in,
		out:     out,
		runner:  runner,
		history: history,
		cfg:     cfg,
		log:     log,
	}
}

// Run prints the banner and processes commands until exit, end of input or
// context cancellation. Only a failure to read input is returned.
func (s *Shell) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.println(Banner)

	lines := make(chan string)
	readErr := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(s.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}

		readErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(s.out, Prompt)

		select {
		case <-ctx.Done():
			s.println("")

			return nil
		case err := <-readErr:
			s.println("")

			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}

			return nil
		case line := <-lines:
			if !s.Execute(ctx, line) {
				return nil
			}
		}
	}
}

// Execute runs one command line and reports whether the shell should keep running.
func (s *Shell) Execute(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return true
	}

	parts := strings.Fields(line)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "h", "?":
		s.log.Debug("User requested help")
		s.printHelp()
	case "exit", "quit", "q":
		s.log.Debug("User requested exit")
		s.println("Bye.")

		return false
	case "backtest", "bt":
		s.backtest(ctx, args)
	case "config", "cfg":
		s.printConfig()
	case "plot":
		s.plot(ctx, args)
	default:
		s.log.Debug("Unknown command", zap.String("line", line))
		s.println(fmt.Sprintf("Unknown command: %s. Type 'help' for available commands.", line))
	}

	return true
}

func (s *Shell) printHelp() {
	s.println(TitleStyle.Render("FeedbackTrader interactive CLI"))
	s.println(helpText)
	s.println("")
	s.println(HelpStyle.Render(quickStart))
}

func (s *Shell) printConfig() {
	s.println(TitleStyle.Render("Configuration"))

	for _, entry := range s.cfg.Entries() {
		s.println(KeyStyle.Render(entry[0]) + entry[1])
	}

	file := s.cfg.File
	if file == "" {
		file = "(defaults and environment)"
	}

	s.println(HelpStyle.Render("source: " + file))
}

func (s *Shell) backtest(ctx context.Context, args []string) {
	if len(args) == 0 {
		s.println("Usage: backtest TASK_NAME (without extension, from the tasks folder)")

		return
	}

	if s.runner == nil {
		s.println(ErrorStyle.Render("Backtest failed: no runner configured"))

		return
	}

	name := args[0]
	s.log.Info("Running backtest from shell", zap.String("task", name))

	result, err := s.runner.RunNamed(ctx, name, backtest.LifecycleCallbacks{})
	if err != nil {
		s.log.Error("Backtest failed", zap.String("task", name), zap.Error(err))
		s.println(ErrorStyle.Render(fmt.Sprintf("Backtest failed: %v", err)))

		return
	}

	s.println(fmt.Sprintf("Backtest done. Final equity: %.2f", result.FinalEquity))

	if result.OutputDir != "" {
		s.println(HelpStyle.Render("Results written to " + result.OutputDir))
	}
}

func (s *Shell) println(text string) {
	fmt.Fprintln(s.out, text)
}
