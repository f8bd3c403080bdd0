package features

import (
	"math"

	"github.com/banshee-data/pointfeatures/internal/neighborhood"
	"github.com/banshee-data/pointfeatures/internal/pointcloud"
)

var xyz = []string{pointcloud.X, pointcloud.Y, pointcloud.Z}

// eigenValues reports the covariance eigenvalues of the neighbor
// coordinates (largest first), the plane normal, and the slope of that
// plane as the tangent of its inclination.
type eigenValues struct{}

func (*eigenValues) Kind() Kind { return KindEigenValues }

func (*eigenValues) Requires() []string { return append([]string(nil), xyz...) }

func (*eigenValues) Provides() []string {
	return []string{"eigenv_1", "eigenv_2", "eigenv_3", "normal_vector_1", "normal_vector_2", "normal_vector_3", "slope"}
}

func (e *eigenValues) Extract(src *pointcloud.PointCloud, neighborhoods [][]int, _ *pointcloud.PointCloud,
	targetIndices []int, _ neighborhood.Volume) ([][]float64, error) {
	if err := checkArgs(src, neighborhoods, targetIndices); err != nil {
		return nil, err
	}
	t, err := neighborhood.GatherXYZ(src, neighborhoods)
	if err != nil {
		return nil, err
	}

	out := nanOutputs(7, len(neighborhoods))
	for i := range neighborhoods {
		if t.Len(i) < 3 {
			continue
		}
		normal, ev, err := principalAxes(t.Valid(i, 0), t.Valid(i, 1), t.Valid(i, 2))
		if err != nil {
			return nil, err
		}
		for k := 0; k < 3; k++ {
			out[k][i] = ev[k]
			out[3+k][i] = normal[k]
		}
		out[6][i] = math.Hypot(normal[0], normal[1]) / normal[2]
	}
	return out, nil
}

// sigmaZ is the root mean square residual of the least-squares plane
// through the neighbors.
type sigmaZ struct{}

func (*sigmaZ) Kind() Kind { return KindSigmaZ }

func (*sigmaZ) Requires() []string { return append([]string(nil), xyz...) }

func (*sigmaZ) Provides() []string { return []string{"sigma_z"} }

func (*sigmaZ) Extract(src *pointcloud.PointCloud, neighborhoods [][]int, _ *pointcloud.PointCloud,
	targetIndices []int, _ neighborhood.Volume) ([][]float64, error) {
	if err := checkArgs(src, neighborhoods, targetIndices); err != nil {
		return nil, err
	}
	t, err := neighborhood.GatherXYZ(src, neighborhoods)
	if err != nil {
		return nil, err
	}

	out := nanOutputs(1, len(neighborhoods))
	for i := range neighborhoods {
		n := t.Len(i)
		if n < 3 {
			continue
		}
		_, rss, err := FitPlane(t.Valid(i, 0), t.Valid(i, 1), t.Valid(i, 2))
		if err != nil {
			return nil, err
		}
		out[0][i] = math.Sqrt(rss / float64(n))
	}
	return out, nil
}
