package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/pointfeatures/internal/config"
	"github.com/banshee-data/pointfeatures/internal/features"
	"github.com/banshee-data/pointfeatures/internal/fsutil"
	"github.com/banshee-data/pointfeatures/internal/monitoring"
	"github.com/banshee-data/pointfeatures/internal/neighborhood"
	"github.com/banshee-data/pointfeatures/internal/pointcloud"
	"github.com/banshee-data/pointfeatures/internal/report"
	"github.com/banshee-data/pointfeatures/internal/storage/sqlite"
)

type computeOptions struct {
	input         string
	targets       string
	neighborhoods string
	output        string
	configPath    string
	features      string
	volumeType    string
	radius        float64
	workers       int
	dbPath        string
	plotDir       string
	htmlPath      string
	bins          int
	diag          bool
	trace         bool
}

func runCompute(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("compute", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var o computeOptions
	fs.StringVar(&o.input, "input", "", "Source point cloud JSON (required)")
	fs.StringVar(&o.targets, "targets", "", "Target point cloud JSON (default: the source cloud)")
	fs.StringVar(&o.neighborhoods, "neighborhoods", "", "Neighbor index lists JSON, one list per target point (default: whole cloud)")
	fs.StringVar(&o.output, "output", "", "Output point cloud JSON (required)")
	fs.StringVar(&o.configPath, "config", "", "Extraction config JSON")
	fs.StringVar(&o.features, "features", "", "Comma-separated feature names (default: config, else every computable feature)")
	fs.StringVar(&o.volumeType, "volume", "", "Neighborhood volume: sphere, \"infinite cylinder\" or cell")
	fs.Float64Var(&o.radius, "radius", 0, "Volume radius, or side length for cells")
	fs.IntVar(&o.workers, "workers", 0, "Extractors run concurrently")
	fs.StringVar(&o.dbPath, "db", "", "SQLite database to record the run in")
	fs.StringVar(&o.plotDir, "plot-dir", "", "Directory for per-feature histogram PNGs")
	fs.StringVar(&o.htmlPath, "html", "", "HTML report path")
	fs.IntVar(&o.bins, "bins", report.DefaultBins, "Histogram bins")
	fs.BoolVar(&o.diag, "diag", false, "Log per-run diagnostics")
	fs.BoolVar(&o.trace, "trace", false, "Log per-extractor timings")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if o.input == "" || o.output == "" {
		return fmt.Errorf("-input and -output are required")
	}
	setupLogging(stderr, o.diag, o.trace)

	cfg, err := loadConfig(o, fs)
	if err != nil {
		return err
	}
	return compute(o, cfg, fsutil.OSFileSystem{}, stdout)
}

// loadConfig reads -config when given and applies explicitly set flags on
// top of it.
func loadConfig(o computeOptions, fs *flag.FlagSet) (*config.ExtractionConfig, error) {
	cfg := &config.ExtractionConfig{}
	if o.configPath != "" {
		loaded, err := config.LoadExtractionConfig(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "volume":
			cfg.VolumeType = &o.volumeType
		case "radius":
			cfg.Radius = &o.radius
		case "workers":
			cfg.Workers = &o.workers
		case "features":
			cfg.Features = splitNames(o.features)
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func compute(o computeOptions, cfg *config.ExtractionConfig, fsys fsutil.FileSystem, stdout io.Writer) error {
	src, err := pointcloud.Load(fsys, o.input)
	if err != nil {
		return err
	}
	vol, err := cfg.Volume()
	if err != nil {
		return err
	}

	var nbs [][]int
	if o.neighborhoods != "" {
		if nbs, err = neighborhood.Load(fsys, o.neighborhoods); err != nil {
			return err
		}
	} else {
		nbs = neighborhood.All(src.Len())
	}

	var target *pointcloud.PointCloud
	switch {
	case o.targets != "":
		if target, err = pointcloud.Load(fsys, o.targets); err != nil {
			return err
		}
	case o.neighborhoods == "":
		if target, err = centroid(src); err != nil {
			return err
		}
	default:
		target = src.Copy()
	}
	if len(nbs) != target.Len() {
		return fmt.Errorf("%d neighborhoods for %d target points", len(nbs), target.Len())
	}
	targetIndices := make([]int, len(nbs))
	for i := range targetIndices {
		targetIndices[i] = i
	}

	reg, err := features.NewRegistryFromConfigs(features.DefaultConfigs(features.DefaultParams{
		LayerThickness: cfg.GetEntropyLayerThickness(),
		GroundClasses:  cfg.GetGroundClasses(),
	}))
	if err != nil {
		return err
	}
	names := cfg.Features
	if len(names) == 0 {
		names = computableNames(reg, src, vol)
		if len(names) == 0 {
			return fmt.Errorf("no feature can be computed from the attributes of %s", o.input)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeout := cfg.GetTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	monitoring.Opsf("computing %d features for %d targets from %d source points (%s, %g)",
		len(names), target.Len(), src.Len(), vol.Type(), cfg.GetRadius())
	if err := features.Compute(ctx, reg, src, nbs, target, targetIndices, vol, names,
		features.Options{Workers: cfg.GetWorkers()}); err != nil {
		return err
	}
	if err := pointcloud.Save(fsys, o.output, target); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %d features for %d targets to %s\n", len(names), target.Len(), o.output)

	if o.dbPath != "" {
		runID, err := recordRun(o, cfg, target, names)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "recorded run %s in %s\n", runID, o.dbPath)
	}
	if o.plotDir != "" {
		written, err := report.WriteHistograms(o.plotDir, target, names, o.bins)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "wrote %d histograms to %s\n", len(written), o.plotDir)
	}
	if o.htmlPath != "" {
		if err := writeHTML(o.htmlPath, target, names, o.bins); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "wrote report to %s\n", o.htmlPath)
	}
	return nil
}

// computableNames lists every registered feature whose extractor can run
// on src with vol.
func computableNames(reg *features.Registry, src *pointcloud.PointCloud, vol neighborhood.Volume) []string {
	var names []string
	for _, e := range reg.Extractors() {
		missing := ""
		for _, req := range e.Requires() {
			if !src.Has(req) {
				missing = req
				break
			}
		}
		if missing == "" && e.Kind() == features.KindEchoRatio && vol.Type() != neighborhood.TypeInfiniteCylinder {
			missing = "an infinite cylinder volume"
		}
		if missing != "" {
			monitoring.Diagf("skipping %v features: source lacks %s", e.Kind(), missing)
			continue
		}
		names = append(names, e.Provides()...)
	}
	return names
}

// centroid builds a one-point target at the mean position of src.
func centroid(src *pointcloud.PointCloud) (*pointcloud.PointCloud, error) {
	var mean [3]float64
	for k, name := range []string{pointcloud.X, pointcloud.Y, pointcloud.Z} {
		data, err := src.Data(name)
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("%w: empty source cloud", pointcloud.ErrInvalidInput)
		}
		mean[k] = stat.Mean(data, nil)
	}
	return pointcloud.New([]float64{mean[0]}, []float64{mean[1]}, []float64{mean[2]})
}

func recordRun(o computeOptions, cfg *config.ExtractionConfig, target *pointcloud.PointCloud, names []string) (string, error) {
	db, err := sqlite.Open(o.dbPath)
	if err != nil {
		return "", err
	}
	defer db.Close()

	values := make(map[string][]float64, len(names))
	for _, name := range names {
		data, err := target.Data(name)
		if err != nil {
			return "", err
		}
		values[name] = data
	}
	provenance, err := json.Marshal(target.Provenance)
	if err != nil {
		return "", fmt.Errorf("marshal provenance: %w", err)
	}
	run := &sqlite.FeatureRun{
		SourcePath:     o.input,
		TargetPath:     o.output,
		VolumeType:     cfg.GetVolumeType(),
		VolumeSize:     cfg.GetRadius(),
		TargetCount:    target.Len(),
		Features:       names,
		ProvenanceJSON: provenance,
	}
	if err := sqlite.NewFeatureRunStore(db).Insert(run, values); err != nil {
		return "", err
	}
	return run.RunID, nil
}

func writeHTML(path string, target *pointcloud.PointCloud, names []string, bins int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := report.WriteHTML(f, "pointfeatures", target, names, bins); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func splitNames(s string) []string {
	var names []string
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
