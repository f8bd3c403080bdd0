package features

import (
	"github.com/banshee-data/pointfeatures/internal/neighborhood"
	"github.com/banshee-data/pointfeatures/internal/pointcloud"
)

// statistic is a single-attribute reduction applied to each neighborhood.
// Neighborhoods with fewer than minSamples valid values yield NaN for
// every provided name.
type statistic struct {
	kind       Kind
	key        string
	names      []string
	minSamples int
	reduce     func(values []float64) []float64
}

func (s *statistic) Kind() Kind { return s.kind }

func (s *statistic) Requires() []string { return []string{s.key} }

func (s *statistic) Provides() []string { return append([]string(nil), s.names...) }

func (s *statistic) Extract(src *pointcloud.PointCloud, neighborhoods [][]int, _ *pointcloud.PointCloud,
	targetIndices []int, _ neighborhood.Volume) ([][]float64, error) {
	if err := checkArgs(src, neighborhoods, targetIndices); err != nil {
		return nil, err
	}
	t, err := neighborhood.GatherAttributes(src, neighborhoods, []string{s.key})
	if err != nil {
		return nil, err
	}

	out := nanOutputs(len(s.names), len(neighborhoods))
	for i := range neighborhoods {
		values := t.Valid(i, 0)
		if len(values) < s.minSamples || len(values) == 0 {
			continue
		}
		for k, v := range s.reduce(values) {
			out[k][i] = v
		}
	}
	return out, nil
}
