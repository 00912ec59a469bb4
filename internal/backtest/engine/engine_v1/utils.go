package engine

import (
	"fmt"
	"path/filepath"
)

// ResultFolder returns <resultsDir>/<name>[/<start>_<end>] for a run.
func ResultFolder(resultsDir string, name string, config BacktestEngineV1Config) string {
	folder := filepath.Join(resultsDir, name)

	if config.StartTime.IsNone() && config.EndTime.IsNone() {
		return folder
	}

	startTimeStr := "all"
	endTimeStr := "all"

	if config.StartTime.IsSome() {
		startTimeStr = config.StartTime.Unwrap().Format("20060102")
	}

	if config.EndTime.IsSome() {
		endTimeStr = config.EndTime.Unwrap().Format("20060102")
	}

	return filepath.Join(folder, fmt.Sprintf("%s_%s", startTimeStr, endTimeStr))
}
