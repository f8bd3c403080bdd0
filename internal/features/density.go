package features

import (
	"fmt"
	"math"

	"github.com/banshee-data/pointfeatures/internal/neighborhood"
	"github.com/banshee-data/pointfeatures/internal/pointcloud"
)

// pointDensity divides the neighbor count by the volume of the search
// region. Unbounded regions (cylinders, cells) use their base area.
type pointDensity struct{}

func (*pointDensity) Kind() Kind { return KindPointDensity }

func (*pointDensity) Requires() []string { return []string{} }

func (*pointDensity) Provides() []string { return []string{"point_density"} }

func (*pointDensity) Extract(src *pointcloud.PointCloud, neighborhoods [][]int, _ *pointcloud.PointCloud,
	targetIndices []int, vol neighborhood.Volume) ([][]float64, error) {
	if err := checkArgs(src, neighborhoods, targetIndices); err != nil {
		return nil, err
	}
	if vol == nil {
		return nil, fmt.Errorf("%w: point density requires a volume", ErrInvalidInput)
	}
	if err := neighborhood.Validate(neighborhoods, src.Len()); err != nil {
		return nil, err
	}

	size := vol.Volume()
	if math.IsInf(size, 1) {
		size = vol.BaseArea()
	}
	out := nanOutputs(1, len(neighborhoods))
	if size <= 0 || math.IsNaN(size) {
		return out, nil
	}
	for i, nb := range neighborhoods {
		if len(nb) == 0 {
			continue
		}
		out[0][i] = float64(len(nb)) / size
	}
	return out, nil
}
