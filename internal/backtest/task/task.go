// Package task loads backtest task documents and runs them end to end:
// fetch the data, build the strategies, replay the bars and write the results.
package task

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"gopkg.in/yaml.v3"

	engine "github.com/rxtech-lab/feedback-trader/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/feedback-trader/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/feedback-trader/internal/version"
	"github.com/rxtech-lab/feedback-trader/pkg/errors"
	"github.com/rxtech-lab/feedback-trader/pkg/marketdata"
	"github.com/rxtech-lab/feedback-trader/pkg/marketdata/provider"
)

// Extensions tried, in order, when a task is referenced by name.
var Extensions = []string{".json", ".yaml", ".yml"}

// Task is one backtest description.
type Task struct {
	Version    string         `yaml:"version,omitempty" json:"version,omitempty" jsonschema:"title=Version,description=Task format version (semver compatible with 1.x)"`
	Name       string         `yaml:"name,omitempty" json:"name,omitempty" jsonschema:"title=Name,description=Name used for the results folder"`
	Strategy   StrategySpec   `yaml:"strategy" json:"strategy" jsonschema:"title=Strategy,required"`
	Strategies []StrategySpec `yaml:"strategies,omitempty" json:"strategies,omitempty" jsonschema:"title=Strategies,description=Additional strategies whose orders are summed with the main one" validate:"dive"`
	Portfolio  Portfolio      `yaml:"portfolio" json:"portfolio" jsonschema:"title=Portfolio,required"`
	Data       Data           `yaml:"data" json:"data" jsonschema:"title=Data,required"`
	Output     string         `yaml:"output,omitempty" json:"output,omitempty" jsonschema:"title=Output,description=Directory receiving stats.yaml and the result CSVs"`
}

// StrategySpec names a registered strategy and its parameters.
type StrategySpec struct {
	Name   string         `yaml:"name" json:"name" jsonschema:"title=Name,description=Registered strategy name,required" validate:"required"`
	Params map[string]any `yaml:"params,omitempty" json:"params,omitempty" jsonschema:"title=Params,description=Strategy parameters"`
}

// Portfolio holds the ledger settings.
type Portfolio struct {
	InitialCash float64               `yaml:"initial_cash" json:"initial_cash" jsonschema:"title=Initial Cash,minimum=0,required" validate:"gt=0"`
	Commission  float64               `yaml:"commission,omitempty" json:"commission,omitempty" jsonschema:"title=Commission,description=Fraction of the notional charged per fill,minimum=0" validate:"gte=0,lt=1"`
	Slippage    float64               `yaml:"slippage,omitempty" json:"slippage,omitempty" jsonschema:"title=Slippage,minimum=0" validate:"gte=0,lt=1"`
	Broker      commission_fee.Broker `yaml:"broker,omitempty" json:"broker,omitempty" jsonschema:"title=Broker,enum=rate,enum=zero_commission,enum=interactive_broker,default=rate" validate:"omitempty,oneof=rate zero_commission interactive_broker"`
	Start       *Date                 `yaml:"start,omitempty" json:"start,omitempty" jsonschema:"title=Start,description=First simulated date"`
	End         *Date                 `yaml:"end,omitempty" json:"end,omitempty" jsonschema:"title=End,description=Last simulated date"`
}

// Data describes where the price history comes from.
type Data struct {
	Symbol        string            `yaml:"symbol,omitempty" json:"symbol,omitempty" jsonschema:"title=Symbol"`
	Symbols       []string          `yaml:"symbols,omitempty" json:"symbols,omitempty" jsonschema:"title=Symbols" validate:"dive,required"`
	Source        string            `yaml:"source,omitempty" json:"source,omitempty" jsonschema:"title=Source,enum=csv,enum=local,enum=polygon,enum=binance,default=csv" validate:"omitempty,oneof=csv local polygon binance"`
	Start         *Date             `yaml:"start,omitempty" json:"start,omitempty" jsonschema:"title=Start"`
	End           *Date             `yaml:"end,omitempty" json:"end,omitempty" jsonschema:"title=End"`
	Interval      string            `yaml:"interval,omitempty" json:"interval,omitempty" jsonschema:"title=Interval,default=1d" validate:"omitempty,oneof=1m 5m 15m 30m 1h 4h 1d 1w 1M"`
	Adjusted      bool              `yaml:"adjusted,omitempty" json:"adjusted,omitempty" jsonschema:"title=Adjusted"`
	Cache         *bool             `yaml:"cache,omitempty" json:"cache,omitempty" jsonschema:"title=Cache,default=true"`
	Refresh       bool              `yaml:"refresh,omitempty" json:"refresh,omitempty" jsonschema:"title=Refresh"`
	MaxRetries    *int              `yaml:"max_retries,omitempty" json:"max_retries,omitempty" jsonschema:"title=Max Retries,minimum=1,default=3" validate:"omitempty,min=1,max=20"`
	BackoffFactor *float64          `yaml:"backoff_factor,omitempty" json:"backoff_factor,omitempty" jsonschema:"title=Backoff Factor,description=Seconds,minimum=0,default=1" validate:"omitempty,min=0"`
	Options       map[string]string `yaml:"options,omitempty" json:"options,omitempty" jsonschema:"title=Options,description=Adapter specific options such as csv_base"`
}

// Date is a calendar date written as YYYY-MM-DD (RFC3339 is accepted too).
type Date struct {
	time.Time
}

// NewDate returns the UTC midnight of the given day.
func NewDate(year int, month time.Month, day int) *Date {
	return &Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d *Date) UnmarshalYAML(value *yaml.Node) error {
	t, err := marketdata.ParseDate(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}

	d.Time = t

	return nil
}

func (d Date) MarshalYAML() (any, error) {
	return d.Format("2006-01-02"), nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format("2006-01-02"))
}

func (Date) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Format: "date"}
}

func (d *Date) option() optional.Option[time.Time] {
	if d == nil {
		return optional.None[time.Time]()
	}

	return optional.Some(d.Time)
}

var validate = validator.New()

// Parse decodes a YAML or JSON task document and validates it.
func Parse(data []byte) (*Task, error) {
	var task Task
	if err := yaml.Unmarshal(data, &task); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidTask, "failed to parse task", err)
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return &task, nil
}

// Load reads and parses the task file at path. A task without a name is
// named after its file.
func Load(path string) (*Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrCodeTaskNotFound, "task file %s not found", path)
		}

		return nil, errors.Wrapf(errors.ErrCodeInvalidTask, err, "failed to read task %s", path)
	}

	task, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if task.Name == "" {
		task.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return task, nil
}

// Resolve finds the file of a task. name is either a path to an existing file
// or a bare name looked up as <tasksDir>/<name>.json|.yaml|.yml.
func Resolve(tasksDir, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New(errors.ErrCodeTaskNotFound, "task name is empty")
	}

	if info, err := os.Stat(name); err == nil && !info.IsDir() {
		return name, nil
	}

	base := strings.TrimSuffix(name, filepath.Ext(name))
	if ext := filepath.Ext(name); ext != "" && !isTaskExtension(ext) {
		base = name
	}

	for _, ext := range Extensions {
		candidate := filepath.Join(tasksDir, base+ext)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", errors.Newf(errors.ErrCodeTaskNotFound, "task %q not found in %s", name, tasksDir)
}

func isTaskExtension(ext string) bool {
	for _, e := range Extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}

	return false
}

// Validate checks field constraints, the format version and the date ranges.
func (t *Task) Validate() error {
	if err := version.CheckTask(t.Version); err != nil {
		return err
	}

	if err := validate.Struct(t); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidTask, "invalid task", err)
	}

	if len(t.Symbols()) == 0 {
		return errors.New(errors.ErrCodeInvalidTask, "task has no symbols: set data.symbol, data.symbols or strategy.params.symbol")
	}

	if t.Data.Interval != "" && !provider.Timespan(t.Data.Interval).IsValid() {
		return errors.Newf(errors.ErrCodeInvalidTask, "invalid interval %q", t.Data.Interval)
	}

	if err := checkRange("data", t.Data.Start, t.Data.End); err != nil {
		return err
	}

	return checkRange("portfolio", t.Portfolio.Start, t.Portfolio.End)
}

func checkRange(section string, start, end *Date) error {
	if start != nil && end != nil && start.After(end.Time) {
		return errors.Newf(errors.ErrCodeInvalidTask, "%s.start %s is after %s.end %s",
			section, start.Format("2006-01-02"), section, end.Format("2006-01-02"))
	}

	return nil
}

// AllStrategies returns the main strategy followed by the extra ones.
func (t *Task) AllStrategies() []StrategySpec {
	return append([]StrategySpec{t.Strategy}, t.Strategies...)
}

// Symbols returns data.symbols, data.symbol, or the symbol parameter of the
// strategies, in that order of preference, without duplicates.
func (t *Task) Symbols() []string {
	var symbols []string

	switch {
	case len(t.Data.Symbols) > 0:
		symbols = append(symbols, t.Data.Symbols...)
	case t.Data.Symbol != "":
		symbols = append(symbols, t.Data.Symbol)
	default:
		for _, spec := range t.AllStrategies() {
			if s, ok := spec.Params["symbol"].(string); ok && s != "" {
				symbols = append(symbols, s)
			}
		}
	}

	seen := make(map[string]bool, len(symbols))
	out := symbols[:0]

	for _, s := range symbols {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	return out
}

// EngineConfig converts the portfolio section into the engine's configuration.
// The simulated window defaults to the data window.
func (t *Task) EngineConfig() engine.BacktestEngineV1Config {
	cfg := engine.EmptyConfig()
	cfg.InitialCapital = t.Portfolio.InitialCash
	cfg.CommissionRate = t.Portfolio.Commission
	cfg.Slippage = t.Portfolio.Slippage

	if t.Portfolio.Broker != "" {
		cfg.Broker = t.Portfolio.Broker
	}

	cfg.StartTime = t.Portfolio.Start.option()
	if cfg.StartTime.IsNone() {
		cfg.StartTime = t.Data.Start.option()
	}

	cfg.EndTime = t.Portfolio.End.option()
	if cfg.EndTime.IsNone() {
		cfg.EndTime = t.Data.End.option()
	}

	return cfg
}

// HistoryRequest converts the data section into a fetch request template.
// The symbol is filled in per fetch.
func (t *Task) HistoryRequest() marketdata.HistoryRequest {
	req := marketdata.DefaultHistoryRequest("")
	req.Start = t.Data.Start.option()
	req.End = t.Data.End.option()
	req.Adjusted = t.Data.Adjusted
	req.Refresh = t.Data.Refresh
	req.Options = t.Data.Options

	if t.Data.Source != "" {
		req.Source = provider.Source(t.Data.Source)
	}

	if t.Data.Interval != "" {
		req.Interval = provider.Timespan(t.Data.Interval)
	}

	if t.Data.Cache != nil {
		req.Cache = *t.Data.Cache
	}

	if t.Data.MaxRetries != nil {
		req.MaxRetries = *t.Data.MaxRetries
	}

	if t.Data.BackoffFactor != nil {
		req.BackoffFactor = time.Duration(*t.Data.BackoffFactor * float64(time.Second))
	}

	return req
}

// GenerateSchemaJSON returns the JSON schema of a task document.
func GenerateSchemaJSON() (string, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if strings.Contains(t.String(), "commission_fee.Broker") {
				return &jsonschema.Schema{
					Type: "string",
					Enum: commission_fee.AllBrokers,
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(&Task{})
	schema.Title = "backtest-task"
	schema.Description = "Backtest task document"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal task schema: %w", err)
	}

	return string(data), nil
}
