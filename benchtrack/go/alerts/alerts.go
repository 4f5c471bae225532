// Package alerts compares two benchmark suites and reports the measurements
// that regressed.
package alerts

import (
	"math"

	"github.com/benchtrack/infra/benchtrack/go/types"
	"github.com/benchtrack/infra/go/sklog"
)

// Alert pairs a current measurement with the previous measurement of the
// same name. Ratio is previous/current, so for "bigger is better" values a
// ratio above 1 means the benchmark got worse.
type Alert struct {
	Current  types.Measurement
	Previous types.Measurement
	Ratio    float64
}

// Ratio returns previous/current.
//
// Two zero values count as no change and return 1. A zero current value with
// a non-zero previous value returns +Inf so that it exceeds every threshold.
func Ratio(previous, current float64) float64 {
	if current == 0 {
		if previous == 0 {
			return 1
		}
		return math.Inf(1)
	}
	return previous / current
}

// Detect returns an Alert for every measurement in current whose ratio
// against the same-named measurement in previous is greater than threshold.
// Alerts are in the order of current.Benches. Measurements missing from
// previous have no baseline and are skipped.
func Detect(current, previous *types.Suite, threshold float64) []Alert {
	sklog.Debugf("Comparing current:%s and prev:%s for alert", current.Commit.ID, previous.Commit.ID)

	ret := []Alert{}
	for _, cur := range current.Benches {
		prev := previous.Find(cur.Name)
		if prev == nil {
			sklog.Debugf("Skipped because benchmark %q is not found in previous benchmarks", cur.Name)
			continue
		}
		ratio := Ratio(prev.Value, cur.Value)
		if ratio > threshold {
			sklog.Warningf("Performance alert! Previous value was %v and current value is %v. It is %vx worse than previous exceeding a ratio threshold %v",
				prev.Value, cur.Value, ratio, threshold)
			ret = append(ret, Alert{
				Current:  cur,
				Previous: *prev,
				Ratio:    ratio,
			})
		}
	}
	return ret
}

// Exceeding returns the subset of alerts whose ratio is greater than
// threshold, preserving order. Used with the fail threshold on the output of
// Detect run with the lower alert threshold.
func Exceeding(alerts []Alert, threshold float64) []Alert {
	ret := []Alert{}
	for _, a := range alerts {
		if a.Ratio > threshold {
			ret = append(ret, a)
		}
	}
	return ret
}
