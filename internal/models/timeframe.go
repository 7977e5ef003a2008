package models

import (
	"fmt"
	"time"
)

// Timeframe is a named lookback window used to bound log queries.
type Timeframe string

const (
	TimeframeLastHour   Timeframe = "last_1_hour"
	TimeframeLast6Hours Timeframe = "last_6_hours"
	TimeframeLast24H    Timeframe = "last_24_hours"
	TimeframeLast7Days  Timeframe = "last_7_days"
	TimeframeLast30Days Timeframe = "last_30_days"
)

var timeframeDurations = map[Timeframe]time.Duration{
	TimeframeLastHour:   time.Hour,
	TimeframeLast6Hours: 6 * time.Hour,
	TimeframeLast24H:    24 * time.Hour,
	TimeframeLast7Days:  7 * 24 * time.Hour,
	TimeframeLast30Days: 30 * 24 * time.Hour,
}

// Range converts the timeframe into absolute [start, end] bounds ending now.
func (t Timeframe) Range(now time.Time) (time.Time, time.Time, error) {
	d, ok := timeframeDurations[t]
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("unknown timeframe %q", string(t))
	}
	return now.Add(-d), now, nil
}

// Valid reports whether t is a known timeframe.
func (t Timeframe) Valid() bool {
	_, ok := timeframeDurations[t]
	return ok
}
