// Package report renders computed features for inspection: PNG histograms
// drawn with gonum/plot and an HTML page of go-echarts charts.
package report

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/pointfeatures/internal/monitoring"
	"github.com/banshee-data/pointfeatures/internal/pointcloud"
)

// DefaultBins is the histogram bin count used when none is given.
const DefaultBins = 20

// ErrNoData reports a feature with no finite values to draw.
var ErrNoData = errors.New("no finite values")

// Histogram holds bin edges and counts over the finite values of a
// feature. len(Edges) == len(Counts)+1.
type Histogram struct {
	Edges  []float64
	Counts []float64
	// Skipped counts the NaN and infinite values left out.
	Skipped int
}

// NewHistogram bins the finite values into the given number of equal-width
// bins spanning their range.
func NewHistogram(values []float64, bins int) (*Histogram, error) {
	if bins <= 0 {
		bins = DefaultBins
	}
	finite := finiteValues(values)
	if len(finite) == 0 {
		return nil, ErrNoData
	}
	sort.Float64s(finite)

	lo, hi := floats.Min(finite), floats.Max(finite)
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	edges := make([]float64, bins+1)
	floats.Span(edges, lo, math.Nextafter(hi, math.Inf(1)))
	counts := stat.Histogram(nil, edges, finite, nil)
	return &Histogram{Edges: edges, Counts: counts, Skipped: len(values) - len(finite)}, nil
}

// Centers returns the midpoint of every bin.
func (h *Histogram) Centers() []float64 {
	out := make([]float64, len(h.Counts))
	for i := range out {
		out[i] = (h.Edges[i] + h.Edges[i+1]) / 2
	}
	return out
}

// WriteHistogramPNG draws a histogram of values to path.
func WriteHistogramPNG(path, title string, values []float64, bins int) error {
	h, err := NewHistogram(values, bins)
	if err != nil {
		return fmt.Errorf("%s: %w", title, err)
	}

	p := plot.New()
	p.Title.Text = title
	if h.Skipped > 0 {
		p.Title.Text = fmt.Sprintf("%s (%d non-finite skipped)", title, h.Skipped)
	}
	p.X.Label.Text = title
	p.Y.Label.Text = "Points"

	hist, err := plotter.NewHist(plotter.Values(finiteValues(values)), len(h.Counts))
	if err != nil {
		return fmt.Errorf("histogram %s: %w", title, err)
	}
	p.Add(hist)

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// WriteHistograms writes one PNG per named feature of pc into dir and
// returns the written paths. Features with no finite values are skipped.
func WriteHistograms(dir string, pc *pointcloud.PointCloud, names []string, bins int) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create plot directory: %w", err)
	}
	var written []string
	for _, name := range names {
		data, err := pc.Data(name)
		if err != nil {
			return written, err
		}
		path := filepath.Join(dir, FileName(name)+".png")
		if err := WriteHistogramPNG(path, name, data, bins); err != nil {
			if errors.Is(err, ErrNoData) {
				monitoring.Diagf("skipping histogram of %s: no finite values", name)
				continue
			}
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func finiteValues(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

// FileName maps a feature name to a portable file name, replacing
// characters such as '<' in band ratio names.
func FileName(feature string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, feature)
}
