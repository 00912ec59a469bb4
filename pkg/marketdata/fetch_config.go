package marketdata

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"

	"github.com/rxtech-lab/feedback-trader/pkg/errors"
	"github.com/rxtech-lab/feedback-trader/pkg/marketdata/provider"
)

// FetchConfig is the user facing form of a history request, shared by the fetch
// command and JSON callers.
type FetchConfig struct {
	Symbols        []string `json:"symbols" yaml:"symbols" mapstructure:"symbols" jsonschema:"title=Symbols,description=Symbols or file paths to fetch,required" validate:"required,min=1,dive,required"`
	Source         string   `json:"source,omitempty" yaml:"source,omitempty" mapstructure:"source" jsonschema:"title=Source,description=Data source,enum=csv,enum=local,enum=polygon,enum=binance,default=csv" validate:"omitempty,oneof=csv local polygon binance"`
	Start          string   `json:"start,omitempty" yaml:"start,omitempty" mapstructure:"start" jsonschema:"title=Start,description=First date (YYYY-MM-DD or RFC3339)"`
	End            string   `json:"end,omitempty" yaml:"end,omitempty" mapstructure:"end" jsonschema:"title=End,description=Last date (YYYY-MM-DD or RFC3339)"`
	Interval       string   `json:"interval,omitempty" yaml:"interval,omitempty" mapstructure:"interval" jsonschema:"title=Interval,description=Bar interval,enum=1m,enum=5m,enum=15m,enum=30m,enum=1h,enum=4h,enum=1d,enum=1w,enum=1M,default=1d" validate:"omitempty,oneof=1m 5m 15m 30m 1h 4h 1d 1w 1M"`
	Adjusted       bool     `json:"adjusted,omitempty" yaml:"adjusted,omitempty" mapstructure:"adjusted" jsonschema:"title=Adjusted,description=Request split and dividend adjusted prices"`
	NoCache        bool     `json:"noCache,omitempty" yaml:"no_cache,omitempty" mapstructure:"no_cache" jsonschema:"title=No Cache,description=Bypass the local cache completely"`
	Refresh        bool     `json:"refresh,omitempty" yaml:"refresh,omitempty" mapstructure:"refresh" jsonschema:"title=Refresh,description=Ignore cached data but store the new result"`
	MaxRetries     int      `json:"maxRetries,omitempty" yaml:"max_retries,omitempty" mapstructure:"max_retries" jsonschema:"title=Max Retries,description=Attempts per symbol when rate limited,minimum=1,default=3" validate:"omitempty,min=1,max=20"`
	BackoffSeconds float64  `json:"backoffSeconds,omitempty" yaml:"backoff_seconds,omitempty" mapstructure:"backoff_seconds" jsonschema:"title=Backoff Seconds,description=Base wait after a rate limit,minimum=0,default=1" validate:"omitempty,min=0"`
	CSVBase        string   `json:"csvBase,omitempty" yaml:"csv_base,omitempty" mapstructure:"csv_base" jsonschema:"title=CSV Base,description=Directory searched for local csv or parquet files"`
}

var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// ParseDate accepts YYYY-MM-DD or RFC3339 and returns UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD or RFC3339", s)
}

func parseOptionalDate(s string) (optional.Option[time.Time], error) {
	if strings.TrimSpace(s) == "" {
		return optional.None[time.Time](), nil
	}

	t, err := ParseDate(s)
	if err != nil {
		return optional.None[time.Time](), err
	}

	return optional.Some(t), nil
}

func (c *FetchConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid fetch config", err)
	}

	_, err := c.ToHistoryRequest()

	return err
}

// ToHistoryRequest converts the config into a request template; Symbol is left empty.
func (c *FetchConfig) ToHistoryRequest() (HistoryRequest, error) {
	req := DefaultHistoryRequest("")

	start, err := parseOptionalDate(c.Start)
	if err != nil {
		return req, errors.Wrap(errors.ErrCodeInvalidPeriod, "invalid start", err)
	}

	end, err := parseOptionalDate(c.End)
	if err != nil {
		return req, errors.Wrap(errors.ErrCodeInvalidPeriod, "invalid end", err)
	}

	if start.IsSome() && end.IsSome() && start.Unwrap().After(end.Unwrap()) {
		return req, errors.Newf(errors.ErrCodeInvalidPeriod, "start %s is after end %s", c.Start, c.End)
	}

	req.Start = start
	req.End = end
	req.Adjusted = c.Adjusted
	req.Cache = !c.NoCache
	req.Refresh = c.Refresh

	if c.Source != "" {
		req.Source = provider.Source(c.Source)
	}

	if c.Interval != "" {
		req.Interval = provider.Timespan(c.Interval)
	}

	if c.MaxRetries > 0 {
		req.MaxRetries = c.MaxRetries
	}

	if c.BackoffSeconds > 0 {
		req.BackoffFactor = time.Duration(c.BackoffSeconds * float64(time.Second))
	}

	if c.CSVBase != "" {
		req.Options = map[string]string{provider.OptionCSVBase: c.CSVBase}
	}

	return req, nil
}

// ParseFetchConfig parses JSON into a FetchConfig.
func ParseFetchConfig(jsonConfig string) (*FetchConfig, error) {
	var config FetchConfig
	if err := json.Unmarshal([]byte(jsonConfig), &config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse JSON config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}
