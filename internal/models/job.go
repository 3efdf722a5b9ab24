// Package models defines the data structures shared by the GWLab Viterbi client.
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// JobID identifies a remote job. The API sometimes returns ids as numbers,
// so every id is carried in its string form and compared by equality.
type JobID string

// JobIDFrom converts a decoded JSON value into a JobID.
func JobIDFrom(v any) (JobID, error) {
	switch id := v.(type) {
	case JobID:
		return id, nil
	case string:
		return JobID(id), nil
	case json.Number:
		return JobID(id.String()), nil
	case float64:
		return JobID(strconv.FormatFloat(id, 'f', -1, 64)), nil
	case int:
		return JobID(strconv.Itoa(id)), nil
	case int64:
		return JobID(strconv.FormatInt(id, 10)), nil
	default:
		return "", fmt.Errorf("unexpected job id type: %T", v)
	}
}

// JobStatus is the last reported state of a job and when it was reached.
// Status values are owned by the remote service ("Completed", "Error", ...).
type JobStatus struct {
	Status string `json:"status"`
	Date   string `json:"date"`
}

// TimeRange is a symbolic search window for public job searches.
type TimeRange string

const (
	TimeRangeAny   TimeRange = "any"
	TimeRangeDay   TimeRange = "day"
	TimeRangeWeek  TimeRange = "week"
	TimeRangeMonth TimeRange = "month"
	TimeRangeYear  TimeRange = "year"
)

// TimeRanges lists every supported time range.
var TimeRanges = []TimeRange{TimeRangeAny, TimeRangeDay, TimeRangeWeek, TimeRangeMonth, TimeRangeYear}

// ParseTimeRange accepts a time range name in any letter case.
func ParseTimeRange(s string) (TimeRange, error) {
	tr := TimeRange(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range TimeRanges {
		if tr == known {
			return tr, nil
		}
	}
	return "", fmt.Errorf("unknown time range %q", s)
}

// String returns the wire form of the time range.
func (t TimeRange) String() string {
	return string(t)
}
