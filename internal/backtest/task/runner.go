package task

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	backtest "github.com/rxtech-lab/feedback-trader/internal/backtest/engine"
	engine "github.com/rxtech-lab/feedback-trader/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/feedback-trader/internal/chart"
	"github.com/rxtech-lab/feedback-trader/internal/logger"
	"github.com/rxtech-lab/feedback-trader/internal/marker"
	"github.com/rxtech-lab/feedback-trader/internal/strategy"
	"github.com/rxtech-lab/feedback-trader/internal/types"
	"github.com/rxtech-lab/feedback-trader/internal/utils"
	"github.com/rxtech-lab/feedback-trader/pkg/errors"
	"github.com/rxtech-lab/feedback-trader/pkg/marketdata"
	"github.com/rxtech-lab/feedback-trader/pkg/marketdata/provider"
)

// HistoryFetcher is the part of marketdata.Fetcher the runner needs.
type HistoryFetcher interface {
	GetHistories(ctx context.Context, symbols []string, req marketdata.HistoryRequest, onFetched marketdata.OnSymbolFetched) (types.History, error)
}

// Runner executes tasks.
type Runner struct {
	fetcher    HistoryFetcher
	registry   *strategy.Registry
	log        *logger.Logger
	tasksDir   string
	resultsDir string
	newEngine  func(log *logger.Logger) backtest.Engine
}

// RunnerConfig holds the directories used by a Runner.
type RunnerConfig struct {
	TasksDir string
	// ResultsDir receives <name>[/<start>_<end>] folders for tasks without an explicit output.
	// Empty disables result files for those tasks.
	ResultsDir string
}

func NewRunner(cfg RunnerConfig, fetcher HistoryFetcher, registry *strategy.Registry, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.NewNop()
	}

	if registry == nil {
		registry = strategy.NewRegistry()
	}

	return &Runner{
		fetcher:    fetcher,
		registry:   registry,
		log:        log,
		tasksDir:   cfg.TasksDir,
		resultsDir: cfg.ResultsDir,
		newEngine:  engine.NewBacktestEngineV1,
	}
}

// Result is the outcome of a task run.
type Result struct {
	backtest.Result
	Task *Task
	// History is the price data the run replayed, warmup bars included.
	History types.History
	// OutputDir is where the result files were written, empty when none were.
	OutputDir string
}

// RunNamed resolves name in the tasks directory, then runs it.
func (r *Runner) RunNamed(ctx context.Context, name string, callbacks backtest.LifecycleCallbacks) (*Result, error) {
	path, err := Resolve(r.tasksDir, name)
	if err != nil {
		return nil, err
	}

	t, err := Load(path)
	if err != nil {
		return nil, err
	}

	return r.Run(ctx, t, callbacks)
}

// Run fetches the task's data, loads its strategies and replays the bars.
func (r *Runner) Run(ctx context.Context, t *Task, callbacks backtest.LifecycleCallbacks) (*Result, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	symbols := t.Symbols()
	r.log.Info("Running backtest task",
		zap.String("task", t.Name),
		zap.Strings("symbols", symbols),
		zap.Int("strategies", len(t.AllStrategies())),
	)

	history, err := r.fetcher.GetHistories(ctx, symbols, t.HistoryRequest(), func(symbol string, series types.TimeSeries) {
		r.log.Debug("Fetched history", zap.String("symbol", symbol), zap.Int("bars", series.Len()))
	})
	if err != nil {
		return nil, err
	}

	cfg := t.EngineConfig()

	configYAML, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBacktestConfigError, "failed to encode engine config", err)
	}

	e := r.newEngine(r.log)
	if err := e.Initialize(string(configYAML)); err != nil {
		return nil, err
	}

	for _, spec := range t.AllStrategies() {
		s, err := r.registry.New(spec.Name, spec.Params)
		if err != nil {
			return nil, err
		}

		if err := e.LoadStrategy(s); err != nil {
			return nil, err
		}
	}

	if err := e.SetMarketData(history); err != nil {
		return nil, err
	}

	out, err := e.Run(ctx, callbacks)
	if err != nil {
		return nil, err
	}

	out.Stats.Name = t.Name

	result := &Result{Result: out, Task: t, History: history}

	dir := t.Output
	if dir == "" && r.resultsDir != "" && t.Name != "" {
		dir = engine.ResultFolder(r.resultsDir, t.Name, cfg)
	}

	if dir != "" {
		if err := result.Write(dir); err != nil {
			return result, err
		}

		result.OutputDir = dir
	}

	r.log.Info("Backtest task finished",
		zap.String("task", t.Name),
		zap.Float64("final_equity", out.FinalEquity),
		zap.Int("transactions", len(out.Transactions)),
		zap.String("output", result.OutputDir),
	)

	return result, nil
}

// Write stores stats.yaml, equity.csv, transactions.csv, equity.html and one
// price_<symbol>.html per traded symbol in dir.
func (r *Result) Write(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(errors.ErrCodeResultWriteFailed, err, "failed to create results folder %s", dir)
	}

	if err := types.WriteBacktestStats(filepath.Join(dir, "stats.yaml"), r.Stats); err != nil {
		return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to write stats", err)
	}

	equity := roundEquity(r.EquityCurve)
	if err := writeCSV(filepath.Join(dir, "equity.csv"), &equity); err != nil {
		return err
	}

	transactions := roundTransactions(r.Transactions)
	if err := writeCSV(filepath.Join(dir, "transactions.csv"), &transactions); err != nil {
		return err
	}

	decisions := r.DroppedDecisions
	if decisions == nil {
		decisions = []types.DroppedDecision{}
	}

	if err := writeCSV(filepath.Join(dir, "decisions.csv"), &decisions); err != nil {
		return err
	}

	if len(r.EquityCurve) == 0 {
		return nil
	}

	title := "Equity"
	if r.Task != nil && r.Task.Name != "" {
		title = r.Task.Name + " equity"
	}

	err := chart.SaveHTML(filepath.Join(dir, "equity.html"), func(w io.Writer) error {
		return chart.RenderEquity(w, title, r.EquityCurve)
	})
	if err != nil {
		return err
	}

	return r.writePriceCharts(dir)
}

// writePriceCharts draws the replayed window of every symbol with its fills.
func (r *Result) writePriceCharts(dir string) error {
	start := r.EquityCurve[0].Time
	end := r.EquityCurve[len(r.EquityCurve)-1].Time

	for symbol, series := range r.History {
		window := series.Window(optional.Some(start), optional.Some(end))
		if window.IsEmpty() {
			continue
		}

		name := "price_" + provider.SanitizeKey(filepath.Base(symbol)) + ".html"

		err := chart.SaveHTML(filepath.Join(dir, name), func(w io.Writer) error {
			return chart.RenderPrice(w, window, chart.PriceOptions{
				Title:     strings.ToUpper(symbol),
				MAWindows: []int{},
				Marks:     marker.FromTransactions(symbol, r.Transactions),
			})
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// csvPrecision is the number of decimals kept for money columns in result CSVs.
const csvPrecision = 4

func roundEquity(curve []types.EquityPoint) []types.EquityPoint {
	rounded := make([]types.EquityPoint, len(curve))
	for i, point := range curve {
		point.Equity = utils.RoundToDecimalPrecision(point.Equity, csvPrecision)
		rounded[i] = point
	}

	return rounded
}

// roundTransactions returns rounded copies, leaving the result untouched.
func roundTransactions(transactions []types.Transaction) []types.Transaction {
	rounded := make([]types.Transaction, len(transactions))
	for i, tx := range transactions {
		tx.Price = utils.RoundToDecimalPrecision(tx.Price, csvPrecision)
		tx.Commission = utils.RoundToDecimalPrecision(tx.Commission, csvPrecision)
		tx.RealizedPnL = utils.RoundToDecimalPrecision(tx.RealizedPnL, csvPrecision)
		tx.Cash = utils.RoundToDecimalPrecision(tx.Cash, csvPrecision)
		rounded[i] = tx
	}

	return rounded
}

func writeCSV(path string, rows any) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeResultWriteFailed, err, "failed to create %s", path)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(rows, file); err != nil {
		return errors.Wrapf(errors.ErrCodeResultWriteFailed, err, "failed to write %s", path)
	}

	return nil
}
