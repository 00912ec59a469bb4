package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	backtest "github.com/rxtech-lab/feedback-trader/internal/backtest/engine"
	"github.com/rxtech-lab/feedback-trader/internal/backtest/task"
	"github.com/rxtech-lab/feedback-trader/internal/config"
	"github.com/rxtech-lab/feedback-trader/internal/types"
	"github.com/rxtech-lab/feedback-trader/mocks"
	pkgerrors "github.com/rxtech-lab/feedback-trader/pkg/errors"
	"github.com/rxtech-lab/feedback-trader/pkg/marketdata"
	"github.com/rxtech-lab/feedback-trader/pkg/marketdata/provider"
)

type fakeRunner struct {
	names  []string
	result *task.Result
	err    error
}

func (f *fakeRunner) RunNamed(_ context.Context, name string, _ backtest.LifecycleCallbacks) (*task.Result, error) {
	f.names = append(f.names, name)

	return f.result, f.err
}

type fakeHistory struct {
	requests []marketdata.HistoryRequest
	series   types.TimeSeries
	err      error
}

func (f *fakeHistory) GetHistory(_ context.Context, req marketdata.HistoryRequest) (types.TimeSeries, error) {
	f.requests = append(f.requests, req)

	return f.series, f.err
}

type ShellTestSuite struct {
	suite.Suite
	out     *bytes.Buffer
	runner  *fakeRunner
	history *fakeHistory
	cfg     *config.Config
}

func TestShellSuite(t *testing.T) {
	suite.Run(t, new(ShellTestSuite))
}

func (suite *ShellTestSuite) SetupTest() {
	suite.out = &bytes.Buffer{}
	suite.runner = &fakeRunner{}
	suite.history = &fakeHistory{series: mocks.SeriesFromCloses("AAA", 10, 11, 12, 13, 14, 15)}
	suite.cfg = config.Default()
	suite.cfg.PlotsDir = suite.T().TempDir()
}

func (suite *ShellTestSuite) run(input string) error {
	sh := New(strings.NewReader(input), suite.out, suite.cfg, suite.runner, suite.history, nil)

	return sh.Run(context.Background())
}

func (suite *ShellTestSuite) TestBannerAndExit() {
	suite.Require().NoError(suite.run("exit\nhelp\n"))

	out := suite.out.String()
	suite.True(strings.HasPrefix(out, Banner))
	suite.Contains(out, Prompt)
	suite.Contains(out, "Bye.")
	// nothing after exit is processed
	suite.NotContains(out, "Commands:")
}

func (suite *ShellTestSuite) TestAliases() {
	for _, cmd := range []string{"q", "quit", "EXIT"} {
		suite.out.Reset()
		suite.Require().NoError(suite.run(cmd + "\n"))
		suite.Contains(suite.out.String(), "Bye.")
	}
}

func (suite *ShellTestSuite) TestEOFExitsCleanly() {
	suite.Require().NoError(suite.run("\n   \nh\n"))

	out := suite.out.String()
	suite.Contains(out, "Commands:")
	suite.NotContains(out, "Bye.")
	suite.NotContains(out, "Unknown command")
}

func (suite *ShellTestSuite) TestUnknownCommand() {
	suite.Require().NoError(suite.run("dance now\n"))
	suite.Contains(suite.out.String(), "Unknown command: dance now. Type 'help' for available commands.")
}

func (suite *ShellTestSuite) TestConfig() {
	suite.Require().NoError(suite.run("cfg\n"))

	out := suite.out.String()
	suite.Contains(out, "tasks_dir")
	suite.Contains(out, "(not set)")
	suite.Contains(out, "(defaults and environment)")
}

func (suite *ShellTestSuite) TestBacktest() {
	suite.runner.result = &task.Result{Result: backtest.Result{FinalEquity: 10234.567}, OutputDir: "results/demo"}

	suite.Require().NoError(suite.run("bt\nbacktest demo\n"))

	out := suite.out.String()
	suite.Contains(out, "Usage: backtest TASK_NAME")
	suite.Contains(out, "Backtest done. Final equity: 10234.57")
	suite.Contains(out, "Results written to results/demo")
	suite.Equal([]string{"demo"}, suite.runner.names)
}

func (suite *ShellTestSuite) TestBacktestFailureKeepsRunning() {
	suite.runner.err = pkgerrors.New(pkgerrors.ErrCodeTaskNotFound, "task \"nope\" not found")

	suite.Require().NoError(suite.run("backtest nope\nexit\n"))

	out := suite.out.String()
	suite.Contains(out, "Backtest failed:")
	suite.Contains(out, "not found")
	suite.Contains(out, "Bye.")
}

func (suite *ShellTestSuite) TestPlot() {
	suite.Require().NoError(suite.run("plot AAA --frame weekly --ma 2,3 --start 20240101 --end 2024-01-31 --source binance --refresh\n"))

	out := suite.out.String()
	path := filepath.Join(suite.cfg.PlotsDir, "AAA_weekly.html")
	suite.Contains(out, "Saved chart to "+path)
	suite.FileExists(path)

	suite.Require().Len(suite.history.requests, 1)
	req := suite.history.requests[0]
	suite.Equal("AAA", req.Symbol)
	suite.Equal(provider.SourceBinance, req.Source)
	suite.True(req.Refresh)
	suite.True(req.Cache)
	suite.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), req.Start.Unwrap())
	suite.Equal(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), req.End.Unwrap())
}

func (suite *ShellTestSuite) TestPlotOutputFile() {
	output := filepath.Join(suite.T().TempDir(), "chart.html")

	suite.Require().NoError(suite.run("plot AAA -o " + output + "\n"))

	data, err := os.ReadFile(output)
	suite.Require().NoError(err)
	suite.Contains(string(data), "MA5")
}

func (suite *ShellTestSuite) TestPlotErrors() {
	tests := []struct {
		name     string
		line     string
		setup    func()
		expected string
	}{
		{name: "usage", line: "plot", expected: "Usage: plot SYMBOL"},
		{name: "bad frame", line: "plot AAA --frame hourly", expected: "invalid --frame value: hourly"},
		{name: "bad ma", line: "plot AAA --ma 5,x", expected: "invalid --ma value: 5,x"},
		{name: "bad date", line: "plot AAA --start yesterday", expected: "invalid date: yesterday"},
		{
			name:     "fetch failure",
			line:     "plot AAA",
			setup:    func() { suite.history.err = errors.New("boom") },
			expected: "failed to fetch data: boom",
		},
		{
			name:     "empty series",
			line:     "plot AAA",
			setup:    func() { suite.history.series = types.EmptyTimeSeries("AAA") },
			expected: "no data to plot for AAA",
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.SetupTest()

			if tc.setup != nil {
				tc.setup()
			}

			suite.Require().NoError(suite.run(tc.line + "\n"))
			suite.Contains(suite.out.String(), tc.expected)
		})
	}
}

func (suite *ShellTestSuite) TestContextCancel() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reader, writer := io.Pipe()
	defer writer.Close()

	sh := New(reader, suite.out, suite.cfg, suite.runner, suite.history, nil)
	suite.Require().NoError(sh.Run(ctx))
}

func (suite *ShellTestSuite) TestSymbolLast() {
	suite.Equal([]string{"--frame", "weekly", "AAA"}, symbolLast([]string{"AAA", "--frame", "weekly"}))
	suite.Equal([]string{"--frame", "weekly"}, symbolLast([]string{"--frame", "weekly"}))
}
