package report

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pointfeatures/internal/pointcloud"
)

func featureCloud(t *testing.T) *pointcloud.PointCloud {
	t.Helper()
	pc, err := pointcloud.New([]float64{0, 1, 2, 3}, []float64{0, 1, 0, 1}, []float64{5, 6, 7, 8})
	require.NoError(t, err)
	require.NoError(t, pc.SetAttribute("mean_z", pointcloud.TypeDouble, []float64{1, 2, math.NaN(), 4}))
	require.NoError(t, pc.SetAttribute("band_ratio_1<normalized_height<2", pointcloud.TypeDouble, []float64{0, 0.5, 0.5, 1}))
	require.NoError(t, pc.SetAttribute("sigma_z", pointcloud.TypeDouble, []float64{math.NaN(), math.NaN(), math.NaN(), math.NaN()}))
	return pc
}

func TestNewHistogram(t *testing.T) {
	t.Parallel()

	h, err := NewHistogram([]float64{0, 1.5, 2.5, 3, math.NaN(), math.Inf(1)}, 3)
	require.NoError(t, err)
	assert.Len(t, h.Edges, 4)
	assert.Equal(t, []float64{1, 1, 2}, h.Counts)
	assert.Equal(t, 2, h.Skipped)
	assert.InDelta(t, 0.5, h.Centers()[0], 1e-9)

	h, err = NewHistogram([]float64{7, 7, 7}, 0)
	require.NoError(t, err)
	assert.Len(t, h.Counts, DefaultBins)
	total := 0.0
	for _, c := range h.Counts {
		total += c
	}
	assert.Equal(t, 3.0, total)

	_, err = NewHistogram([]float64{math.NaN()}, 5)
	assert.True(t, errors.Is(err, ErrNoData))
}

func TestFileName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "band_ratio_1_normalized_height_2", FileName("band_ratio_1<normalized_height<2"))
	assert.Equal(t, "perc_95_z", FileName("perc_95_z"))
}

func TestWriteHistograms(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "plots")
	pc := featureCloud(t)

	written, err := WriteHistograms(dir, pc, []string{"mean_z", "band_ratio_1<normalized_height<2", "sigma_z"}, 4)
	require.NoError(t, err)
	require.Len(t, written, 2, "all-NaN feature is skipped")

	for _, path := range written {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")), path)
	}
	assert.Equal(t, filepath.Join(dir, "band_ratio_1_normalized_height_2.png"), written[1])

	_, err = WriteHistograms(dir, pc, []string{"unknown"}, 4)
	assert.Error(t, err)
}

func TestWriteHTML(t *testing.T) {
	t.Parallel()
	pc := featureCloud(t)

	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, "features", pc, []string{"mean_z", "sigma_z"}, 4))
	html := buf.String()
	assert.Contains(t, html, "<html")
	assert.Contains(t, html, "mean_z")
	assert.NotContains(t, html, "sigma_z", "all-NaN feature has no chart")

	assert.Error(t, WriteHTML(&buf, "features", pc, nil, 4))
	assert.Error(t, WriteHTML(&buf, "features", pc, []string{"unknown"}, 4))
}
