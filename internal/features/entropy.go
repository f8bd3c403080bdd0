package features

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// newEntropy builds the Shannon entropy (base 2) of the vertical
// distribution of key, histogrammed into layers of fixed thickness.
func newEntropy(key string, cfg Config) (*statistic, error) {
	thickness := cfg.LayerThickness
	if thickness == 0 {
		thickness = DefaultLayerThickness
	}
	if thickness < 0 || math.IsNaN(thickness) || math.IsInf(thickness, 0) {
		return nil, fmt.Errorf("%w: entropy layer thickness %v", ErrInvalidInput, thickness)
	}
	if cfg.ZMin != nil && cfg.ZMax != nil && *cfg.ZMin > *cfg.ZMax {
		return nil, fmt.Errorf("%w: entropy range [%v, %v]", ErrInvalidInput, *cfg.ZMin, *cfg.ZMax)
	}
	zmin, zmax := cfg.ZMin, cfg.ZMax
	return &statistic{
		kind:       KindEntropy,
		key:        key,
		names:      []string{"entropy_" + key},
		minSamples: 1,
		reduce: func(values []float64) []float64 {
			lo, hi := floats.Min(values), floats.Max(values)
			if zmin != nil {
				lo = *zmin
			}
			if zmax != nil {
				hi = *zmax
			}
			return []float64{layerEntropy(values, lo, hi, thickness)}
		},
	}, nil
}

// layerEntropy bins values in [lo, hi] into layers of the given thickness
// and returns the base-2 entropy of the occupancy distribution. Values
// outside the range are ignored; NaN is returned when none remain.
func layerEntropy(values []float64, lo, hi, thickness float64) float64 {
	bins := int(math.Ceil((hi - lo) / thickness))
	if bins < 1 {
		bins = 1
	}
	counts := make([]float64, bins)
	total := 0.0
	for _, v := range values {
		if v < lo || v > hi {
			continue
		}
		b := int((v - lo) / thickness)
		if b >= bins {
			b = bins - 1
		}
		counts[b]++
		total++
	}
	if total == 0 {
		return math.NaN()
	}
	floats.Scale(1/total, counts)
	return stat.Entropy(counts) / math.Ln2
}
