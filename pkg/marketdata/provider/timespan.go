package provider

import (
	"time"

	"github.com/polygon-io/client-go/rest/models"
)

type Timespan string

const (
	TimespanOneMinute      Timespan = "1m"
	TimespanFiveMinutes    Timespan = "5m"
	TimespanFifteenMinutes Timespan = "15m"
	TimespanThirtyMinutes  Timespan = "30m"
	TimespanOneHour        Timespan = "1h"
	TimespanFourHours      Timespan = "4h"
	TimespanOneDay         Timespan = "1d"
	TimespanOneWeek        Timespan = "1w"
	TimespanOneMonth       Timespan = "1M"
)

var AllTimespans = []Timespan{
	TimespanOneMinute,
	TimespanFiveMinutes,
	TimespanFifteenMinutes,
	TimespanThirtyMinutes,
	TimespanOneHour,
	TimespanFourHours,
	TimespanOneDay,
	TimespanOneWeek,
	TimespanOneMonth,
}

// IsValid reports whether t is one of AllTimespans.
func (t Timespan) IsValid() bool {
	for _, known := range AllTimespans {
		if t == known {
			return true
		}
	}

	return false
}

func (t Timespan) Multiplier() int {
	switch t {
	case TimespanFiveMinutes:
		return 5
	case TimespanFifteenMinutes:
		return 15
	case TimespanThirtyMinutes:
		return 30
	case TimespanFourHours:
		return 4
	default:
		return 1
	}
}

// Timespan returns the polygon unit paired with Multiplier.
func (t Timespan) Timespan() models.Timespan {
	switch t {
	case TimespanOneMinute, TimespanFiveMinutes, TimespanFifteenMinutes, TimespanThirtyMinutes:
		return models.Minute
	case TimespanOneHour, TimespanFourHours:
		return models.Hour
	case TimespanOneWeek:
		return models.Week
	case TimespanOneMonth:
		return models.Month
	default:
		return models.Day
	}
}

// Duration is the nominal bar length. Months count as 30 days.
func (t Timespan) Duration() time.Duration {
	base := map[models.Timespan]time.Duration{
		models.Minute: time.Minute,
		models.Hour:   time.Hour,
		models.Day:    24 * time.Hour,
		models.Week:   7 * 24 * time.Hour,
		models.Month:  30 * 24 * time.Hour,
	}[t.Timespan()]

	return time.Duration(t.Multiplier()) * base
}
