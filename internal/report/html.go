package report

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/pointfeatures/internal/pointcloud"
)

// maxScatterPoints caps the points drawn in the plan-view chart.
const maxScatterPoints = 20000

var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// WriteHTML renders one histogram bar chart per named feature, plus a
// plan view of the target points colored by the first feature, as a
// single HTML page.
func WriteHTML(w io.Writer, title string, pc *pointcloud.PointCloud, names []string, bins int) error {
	if len(names) == 0 {
		return fmt.Errorf("no features to render")
	}

	page := components.NewPage()
	page.PageTitle = title

	scatter, err := planView(pc, names[0])
	if err != nil {
		return err
	}
	if scatter != nil {
		page.AddCharts(scatter)
	}

	for _, name := range names {
		data, err := pc.Data(name)
		if err != nil {
			return err
		}
		h, err := NewHistogram(data, bins)
		if errors.Is(err, ErrNoData) {
			continue
		}
		if err != nil {
			return err
		}
		page.AddCharts(histogramBar(name, h))
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	return nil
}

func histogramBar(name string, h *Histogram) *charts.Bar {
	x := make([]string, len(h.Counts))
	y := make([]opts.BarData, len(h.Counts))
	for i, c := range h.Centers() {
		x[i] = strconv.FormatFloat(c, 'g', 4, 64)
		y[i] = opts.BarData{Value: h.Counts[i]}
	}

	subtitle := fmt.Sprintf("bins=%d", len(h.Counts))
	if h.Skipped > 0 {
		subtitle += fmt.Sprintf(" non-finite=%d", h.Skipped)
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: name, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: name, NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Points"}),
	)
	bar.SetXAxis(x).AddSeries(name, y)
	return bar
}

// planView scatters x/y colored by feature. It returns nil when the
// feature has no finite values.
func planView(pc *pointcloud.PointCloud, feature string) (*charts.Scatter, error) {
	values, err := pc.Data(feature)
	if err != nil {
		return nil, err
	}
	finite := finiteValues(values)
	if len(finite) == 0 {
		return nil, nil
	}
	x, err := pc.Data(pointcloud.X)
	if err != nil {
		return nil, err
	}
	y, err := pc.Data(pointcloud.Y)
	if err != nil {
		return nil, err
	}

	stride := 1
	if len(finite) > maxScatterPoints {
		stride = len(finite)/maxScatterPoints + 1
	}
	data := make([]opts.ScatterData, 0, len(finite)/stride+1)
	seen := 0
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if seen%stride == 0 {
			data = append(data, opts.ScatterData{Value: []interface{}{x[i], y[i], v}})
		}
		seen++
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: feature, Subtitle: fmt.Sprintf("points=%d stride=%d", len(data), stride)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Dimension:  "2",
			Min:        float32(floats.Min(finite)),
			Max:        float32(floats.Max(finite)),
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)
	scatter.AddSeries(feature, data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))
	return scatter, nil
}
