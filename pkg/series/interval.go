package series

import (
	"math"
	"sort"
	"time"
)

// IntervalConfig holds the cadence bucket targets and tolerances. All values
// are tunable; the defaults come from observed calendar behavior, not a fixed
// contract.
type IntervalConfig struct {
	DailyHours    float64 `yaml:"daily_hours"`
	WeeklyHours   float64 `yaml:"weekly_hours"`
	BiweeklyHours float64 `yaml:"biweekly_hours"`
	MonthlyHours  float64 `yaml:"monthly_hours"`

	// Tolerance is the fractional deviation from a bucket target still
	// accepted for that bucket (0.3 means a 24h target accepts 16.8-31.2h).
	Tolerance float64 `yaml:"tolerance"`

	// MaxVariation is the maximum coefficient of variation of the gap
	// sequence before the series is classified adhoc regardless of median.
	MaxVariation float64 `yaml:"max_variation"`
}

// DefaultIntervalConfig returns the default cadence buckets.
func DefaultIntervalConfig() IntervalConfig {
	return IntervalConfig{
		DailyHours:    24,
		WeeklyHours:   168,
		BiweeklyHours: 336,
		MonthlyHours:  720,
		Tolerance:     0.3,
		MaxVariation:  0.5,
	}
}

// ClassifyInterval infers the cadence of a series from its ordered occurrence
// timestamps and computes the expected window for the next occurrence.
//
// Fewer than two timestamps yield CadenceUnknown and a nil window. Gap
// sequences with a coefficient of variation above cfg.MaxVariation are adhoc
// regardless of their median. Daily series are exempt from the variation
// check below a weekly median: weekday-only standups legitimately show 72h
// weekend gaps between 24h weekday gaps.
func ClassifyInterval(times []time.Time, cfg IntervalConfig) (Cadence, *Window) {
	if len(times) < 2 {
		return CadenceUnknown, nil
	}

	sorted := make([]time.Time, len(times))
	copy(sorted, times)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	gaps := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		gaps = append(gaps, sorted[i].Sub(sorted[i-1]).Hours())
	}

	med := median(gaps)
	last := sorted[len(sorted)-1]

	cadence := bucketFor(med, cfg)
	if cadence != CadenceDaily && variation(gaps) > cfg.MaxVariation {
		return CadenceAdhoc, nil
	}
	if cadence == CadenceAdhoc {
		return CadenceAdhoc, nil
	}

	medDur := time.Duration(med * float64(time.Hour))
	half := time.Duration(med * cfg.Tolerance / 2 * float64(time.Hour))
	expected := last.Add(medDur)
	return cadence, &Window{Start: expected.Add(-half), End: expected.Add(half)}
}

// bucketFor maps a median gap in hours to a cadence bucket.
func bucketFor(medianHours float64, cfg IntervalConfig) Cadence {
	buckets := []struct {
		target  float64
		cadence Cadence
	}{
		{cfg.DailyHours, CadenceDaily},
		{cfg.WeeklyHours, CadenceWeekly},
		{cfg.BiweeklyHours, CadenceBiweekly},
		{cfg.MonthlyHours, CadenceMonthly},
	}
	for _, b := range buckets {
		if math.Abs(medianHours-b.target) <= b.target*cfg.Tolerance {
			return b.cadence
		}
	}
	return CadenceAdhoc
}

// median returns the median of vals. vals must be non-empty.
func median(vals []float64) float64 {
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// variation computes the coefficient of variation (stddev / mean) of vals.
func variation(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))
	if mean == 0 {
		return 0
	}
	variance := 0.0
	for _, v := range vals {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(vals))
	return math.Sqrt(variance) / mean
}
