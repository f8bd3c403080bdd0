package features

import (
	"fmt"

	"github.com/banshee-data/pointfeatures/internal/neighborhood"
	"github.com/banshee-data/pointfeatures/internal/pointcloud"
)

// echoRatio is the percentage of cylinder neighbors that also fall inside
// the sphere of the same radius around the target point.
type echoRatio struct{}

func (*echoRatio) Kind() Kind { return KindEchoRatio }

func (*echoRatio) Requires() []string {
	return []string{pointcloud.X, pointcloud.Y, pointcloud.Z}
}

func (*echoRatio) Provides() []string { return []string{"echo_ratio"} }

func (*echoRatio) Extract(src *pointcloud.PointCloud, neighborhoods [][]int, target *pointcloud.PointCloud,
	targetIndices []int, vol neighborhood.Volume) ([][]float64, error) {
	if err := checkArgs(src, neighborhoods, targetIndices); err != nil {
		return nil, err
	}
	cyl, ok := vol.(neighborhood.InfiniteCylinder)
	if !ok {
		return nil, fmt.Errorf("%w: echo ratio requires an infinite cylinder volume", ErrInvalidInput)
	}
	if target == nil {
		return nil, fmt.Errorf("%w: nil target point cloud", ErrInvalidInput)
	}
	t, err := neighborhood.GatherXYZ(src, neighborhoods)
	if err != nil {
		return nil, err
	}

	r2 := cyl.Radius * cyl.Radius
	out := nanOutputs(1, len(neighborhoods))
	for i, ti := range targetIndices {
		if ti < 0 || ti >= target.Len() {
			return nil, fmt.Errorf("%w: target index %d out of range [0, %d)", ErrInvalidInput, ti, target.Len())
		}
		n := t.Len(i)
		if n == 0 {
			continue
		}
		p, err := target.Values([]string{pointcloud.X, pointcloud.Y, pointcloud.Z}, ti)
		if err != nil {
			return nil, err
		}
		inside := 0
		for k := 0; k < n; k++ {
			dx := t.At(i, 0, k) - p[0]
			dy := t.At(i, 1, k) - p[1]
			dz := t.At(i, 2, k) - p[2]
			if dx*dx+dy*dy+dz*dz <= r2 {
				inside++
			}
		}
		out[0][i] = 100 * float64(inside) / float64(n)
	}
	return out, nil
}
