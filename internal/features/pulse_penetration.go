package features

import (
	"github.com/banshee-data/pointfeatures/internal/pointcloud"
)

// newPulsePenetration reports the fraction of neighbors whose raw
// classification is one of the ground classes.
func newPulsePenetration(groundClasses []int) *statistic {
	if len(groundClasses) == 0 {
		groundClasses = []int{DefaultGroundClass}
	}
	ground := make(map[float64]struct{}, len(groundClasses))
	for _, c := range groundClasses {
		ground[float64(c)] = struct{}{}
	}
	return &statistic{
		kind:       KindPulsePenetration,
		key:        pointcloud.RawClassification,
		names:      []string{"pulse_penetration_ratio"},
		minSamples: 1,
		reduce: func(values []float64) []float64 {
			n := 0
			for _, v := range values {
				if _, ok := ground[v]; ok {
					n++
				}
			}
			return []float64{float64(n) / float64(len(values))}
		},
	}
}
