// Package filter selects subsets of a point cloud by thresholding or
// matching one attribute. Every selection returns a newly allocated cloud
// and never modifies its input.
package filter

import (
	"fmt"
	"strconv"

	"github.com/banshee-data/pointfeatures/internal/monitoring"
	"github.com/banshee-data/pointfeatures/internal/pointcloud"
)

// ErrInvalidInput is wrapped by every selection argument error.
var ErrInvalidInput = pointcloud.ErrInvalidInput

// SelectBelow keeps the points whose attribute is strictly below threshold.
// A threshold of +Inf keeps every finite value.
func SelectBelow(pc *pointcloud.PointCloud, attribute string, threshold float64) (*pointcloud.PointCloud, error) {
	return selectWhere(pc, attribute, "filter.SelectBelow", formatValue(threshold),
		func(v float64) bool { return v < threshold })
}

// SelectAbove keeps the points whose attribute is strictly above threshold.
// A threshold of -Inf keeps every finite value.
func SelectAbove(pc *pointcloud.PointCloud, attribute string, threshold float64) (*pointcloud.PointCloud, error) {
	return selectWhere(pc, attribute, "filter.SelectAbove", formatValue(threshold),
		func(v float64) bool { return v > threshold })
}

// SelectEqual keeps the points whose attribute equals one of values, for
// example a set of classification codes.
func SelectEqual(pc *pointcloud.PointCloud, attribute string, values ...float64) (*pointcloud.PointCloud, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: no values to select", ErrInvalidInput)
	}
	set := make(map[float64]struct{}, len(values))
	formatted := make([]string, len(values))
	for i, v := range values {
		set[v] = struct{}{}
		formatted[i] = formatValue(v)
	}
	return selectWhere(pc, attribute, "filter.SelectEqual", formatted,
		func(v float64) bool {
			_, ok := set[v]
			return ok
		})
}

func selectWhere(pc *pointcloud.PointCloud, attribute, module string, param interface{},
	keep func(float64) bool) (*pointcloud.PointCloud, error) {
	if pc == nil {
		return nil, fmt.Errorf("%w: nil point cloud", ErrInvalidInput)
	}
	if attribute == "" {
		return nil, fmt.Errorf("%w: empty attribute name", ErrInvalidInput)
	}
	data, err := pc.Data(attribute)
	if err != nil {
		return nil, err
	}

	mask := make([]bool, len(data))
	kept := 0
	for i, v := range data {
		if keep(v) {
			mask[i] = true
			kept++
		}
	}
	out, err := pc.CopyMasked(mask)
	if err != nil {
		return nil, err
	}
	if err := pointcloud.AddMetadata(out, module, map[string]interface{}{
		"attribute": attribute,
		"value":     param,
	}); err != nil {
		return nil, err
	}
	monitoring.Diagf("%s on %q kept %d of %d points", module, attribute, kept, len(data))
	return out, nil
}

// formatValue renders a threshold so that infinities survive JSON encoding
// of the provenance trail.
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
