package features

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

func newPercentile(key string, p int) (*statistic, error) {
	if p < 1 || p > 100 {
		return nil, fmt.Errorf("%w: percentile %d outside [1, 100]", ErrInvalidInput, p)
	}
	return &statistic{
		kind:       KindPercentile,
		key:        key,
		names:      []string{fmt.Sprintf("perc_%d_%s", p, key)},
		minSamples: 1,
		reduce: func(values []float64) []float64 {
			return []float64{percentile(sorted(values), p)}
		},
	}, nil
}

func newMedian(key string) *statistic {
	return &statistic{
		kind:       KindMedian,
		key:        key,
		names:      []string{"median_" + key},
		minSamples: 1,
		reduce: func(values []float64) []float64 {
			return []float64{median(values)}
		},
	}
}

func newVariance(key string) *statistic {
	return &statistic{
		kind:       KindVariance,
		key:        key,
		names:      []string{"var_" + key},
		minSamples: 1,
		reduce: func(values []float64) []float64 {
			return []float64{stat.PopVariance(values, nil)}
		},
	}
}

func newMeanStdCoeff(key string) *statistic {
	return &statistic{
		kind:       KindMeanStdCoeff,
		key:        key,
		names:      []string{"mean_" + key, "std_" + key, "coeff_var_" + key},
		minSamples: 1,
		reduce: func(values []float64) []float64 {
			mean, std := stat.PopMeanStdDev(values, nil)
			coeff := math.NaN()
			if mean != 0 {
				coeff = std / mean
			}
			return []float64{mean, std, coeff}
		},
	}
}

// newSkew reports the population skewness m3/m2^1.5 with no small-sample
// correction.
func newSkew(key string) *statistic {
	return &statistic{
		kind:       KindSkew,
		key:        key,
		names:      []string{"skew_" + key},
		minSamples: 3,
		reduce: func(values []float64) []float64 {
			if constant(values) {
				return []float64{math.NaN()}
			}
			return []float64{standardizedMoment(values, 3)}
		},
	}
}

// newKurtosis reports the population excess kurtosis m4/m2^2 - 3 with no
// small-sample correction.
func newKurtosis(key string) *statistic {
	return &statistic{
		kind:       KindKurtosis,
		key:        key,
		names:      []string{"kurto_" + key},
		minSamples: 4,
		reduce: func(values []float64) []float64 {
			if constant(values) {
				return []float64{math.NaN()}
			}
			return []float64{standardizedMoment(values, 4) - 3}
		},
	}
}

// standardizedMoment divides the central moment of the given order by
// the population standard deviation raised to the same order.
func standardizedMoment(values []float64, order float64) float64 {
	m2 := stat.PopVariance(values, nil)
	return stat.Moment(order, values, nil) / math.Pow(m2, order/2)
}

func newRange(key string) *statistic {
	return &statistic{
		kind:       KindRange,
		key:        key,
		names:      []string{"max_" + key, "min_" + key, "range_" + key},
		minSamples: 1,
		reduce: func(values []float64) []float64 {
			hi, lo := floats.Max(values), floats.Min(values)
			return []float64{hi, lo, hi - lo}
		},
	}
}

// newDensityAbsoluteMean reports the percentage of values strictly above
// the neighborhood mean.
func newDensityAbsoluteMean(key string) *statistic {
	return &statistic{
		kind:       KindDensityAbsoluteMean,
		key:        key,
		names:      []string{"density_absolute_mean_" + key},
		minSamples: 1,
		reduce: func(values []float64) []float64 {
			mean := stat.Mean(values, nil)
			above := 0
			for _, v := range values {
				if v > mean {
					above++
				}
			}
			return []float64{100 * float64(above) / float64(len(values))}
		},
	}
}

// newBandRatio reports the fraction of values in [lower, upper). A nil
// bound leaves that side open.
func newBandRatio(key string, lower, upper *float64) (*statistic, error) {
	if lower == nil && upper == nil {
		return nil, fmt.Errorf("%w: band ratio needs at least one bound", ErrInvalidInput)
	}
	if lower != nil && upper != nil && *lower >= *upper {
		return nil, fmt.Errorf("%w: band ratio lower bound %v not below upper bound %v",
			ErrInvalidInput, *lower, *upper)
	}
	lo, hi := math.Inf(-1), math.Inf(1)
	if lower != nil {
		lo = *lower
	}
	if upper != nil {
		hi = *upper
	}
	return &statistic{
		kind:       KindBandRatio,
		key:        key,
		names:      []string{BandRatioName(key, lower, upper)},
		minSamples: 1,
		reduce: func(values []float64) []float64 {
			in := 0
			for _, v := range values {
				if v >= lo && v < hi {
					in++
				}
			}
			return []float64{float64(in) / float64(len(values))}
		},
	}, nil
}

// BandRatioName formats the feature name of a band, for example
// "band_ratio_1<normalized_height<2" or "band_ratio_3<normalized_height".
func BandRatioName(key string, lower, upper *float64) string {
	name := "band_ratio_"
	if lower != nil {
		name += formatBound(*lower) + "<"
	}
	name += key
	if upper != nil {
		name += "<" + formatBound(*upper)
	}
	return name
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func sorted(values []float64) []float64 {
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	return s
}

// percentile interpolates linearly between the closest ranks of the sorted
// values, so percentile 50 equals the median.
func percentile(s []float64, p int) float64 {
	h := float64((len(s)-1)*p) / 100
	lo := int(math.Floor(h))
	if lo >= len(s)-1 {
		return s[len(s)-1]
	}
	return s[lo] + (h-float64(lo))*(s[lo+1]-s[lo])
}

func median(values []float64) float64 {
	s := sorted(values)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

func constant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}
