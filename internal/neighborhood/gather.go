package neighborhood

import (
	"fmt"

	"github.com/banshee-data/pointfeatures/internal/pointcloud"
)

// ErrInvalidInput is the point cloud package's validation error, so callers
// can test any gathering failure with a single errors.Is.
var ErrInvalidInput = pointcloud.ErrInvalidInput

// xyz is the fixed channel order of GatherXYZ.
var xyz = []string{pointcloud.X, pointcloud.Y, pointcloud.Z}

// GatherXYZ gathers the coordinates of every neighborhood into a tensor of
// shape (len(neighborhoods), 3, L) with channels x, y, z.
func GatherXYZ(pc *pointcloud.PointCloud, neighborhoods [][]int) (*Tensor, error) {
	return GatherAttributes(pc, neighborhoods, xyz)
}

// GatherAttributes gathers the named attributes of every neighborhood into
// a tensor of shape (len(neighborhoods), len(names), L), where L is the
// longest neighborhood (at least 1). Channel order follows names and slot
// order follows the neighbor lists; duplicates are kept.
func GatherAttributes(pc *pointcloud.PointCloud, neighborhoods [][]int, names []string) (*Tensor, error) {
	if pc == nil {
		return nil, fmt.Errorf("%w: nil point cloud", ErrInvalidInput)
	}
	if len(neighborhoods) == 0 {
		return nil, fmt.Errorf("%w: no neighborhoods", ErrInvalidInput)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no attributes to gather", ErrInvalidInput)
	}

	columns := make([][]float64, len(names))
	for c, name := range names {
		data, err := pc.Data(name)
		if err != nil {
			return nil, err
		}
		columns[c] = data
	}

	if err := Validate(neighborhoods, pc.Len()); err != nil {
		return nil, err
	}

	t := newTensor(len(neighborhoods), len(names), MaxLen(neighborhoods))
	for i, nb := range neighborhoods {
		t.lengths[i] = len(nb)
		for c, col := range columns {
			base := t.offset(i, c, 0)
			for k, idx := range nb {
				t.data[base+k] = col[idx]
				t.invalid[base+k] = false
			}
		}
	}
	return t, nil
}

// Validate checks that every index refers to one of n source points.
func Validate(neighborhoods [][]int, n int) error {
	for i, nb := range neighborhoods {
		for _, idx := range nb {
			if idx < 0 || idx >= n {
				return fmt.Errorf("%w: neighborhood %d references point %d, source has %d points",
					ErrInvalidInput, i, idx, n)
			}
		}
	}
	return nil
}

// MaxLen returns the longest neighborhood length, never less than 1.
func MaxLen(neighborhoods [][]int) int {
	l := 1
	for _, nb := range neighborhoods {
		if len(nb) > l {
			l = len(nb)
		}
	}
	return l
}
