package task

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/rxtech-lab/feedback-trader/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/feedback-trader/internal/strategy"
	"github.com/rxtech-lab/feedback-trader/internal/version"
	"github.com/rxtech-lab/feedback-trader/pkg/errors"
)

const (
	SchemaFileName = "task-schema.json"
	SampleFileName = "sample-task.yaml"
)

// Sample returns a small task trading one symbol with the default SMA crossover.
func Sample() *Task {
	params := strategy.DefaultSMACrossoverConfig()

	return &Task{
		Version: version.TaskFormatVersion,
		Name:    "sample",
		Strategy: StrategySpec{
			Name: strategy.SMACrossoverName,
			Params: map[string]any{
				"symbol":       "AAPL",
				"short_window": params.ShortWindow,
				"long_window":  params.LongWindow,
				"qty":          params.Quantity,
			},
		},
		Portfolio: Portfolio{
			InitialCash: 100000,
			Commission:  0.001,
			Broker:      commission_fee.BrokerRate,
		},
		Data: Data{
			Symbol:   "AAPL",
			Source:   "csv",
			Interval: "1d",
		},
	}
}

// WriteSchema writes the task schema into dir, plus a sample task pointing
// at it when no sample exists yet. It returns the written paths.
func WriteSchema(dir string) ([]string, error) {
	schema, err := GenerateSchemaJSON()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeResultWriteFailed, err, "failed to create %s", dir)
	}

	schemaPath := filepath.Join(dir, SchemaFileName)
	if err := os.WriteFile(schemaPath, []byte(schema), 0o644); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeResultWriteFailed, err, "failed to write %s", schemaPath)
	}

	written := []string{schemaPath}

	samplePath := filepath.Join(dir, SampleFileName)
	if _, err := os.Stat(samplePath); err == nil {
		return written, nil
	}

	body, err := yaml.Marshal(Sample())
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidTask, "failed to encode sample task", err)
	}

	body = append([]byte("# yaml-language-server: $schema="+SchemaFileName+"\n"), body...)
	if err := os.WriteFile(samplePath, body, 0o644); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeResultWriteFailed, err, "failed to write %s", samplePath)
	}

	return append(written, samplePath), nil
}
