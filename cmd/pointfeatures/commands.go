package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/pointfeatures/internal/config"
	"github.com/banshee-data/pointfeatures/internal/features"
	"github.com/banshee-data/pointfeatures/internal/filter"
	"github.com/banshee-data/pointfeatures/internal/fsutil"
	"github.com/banshee-data/pointfeatures/internal/pointcloud"
	"github.com/banshee-data/pointfeatures/internal/storage/sqlite"
)

func runSelect(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("select", flag.ContinueOnError)
	fs.SetOutput(stderr)
	input := fs.String("input", "", "Input point cloud JSON (required)")
	output := fs.String("output", "", "Output point cloud JSON (required)")
	attr := fs.String("attr", "", "Attribute to select on (required)")
	below := fs.String("below", "", "Keep points strictly below this value (accepts -Inf/+Inf)")
	above := fs.String("above", "", "Keep points strictly above this value (accepts -Inf/+Inf)")
	equal := fs.String("equal", "", "Keep points equal to one of these comma-separated values")
	diag := fs.Bool("diag", false, "Log selection diagnostics")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if *input == "" || *output == "" || *attr == "" {
		return fmt.Errorf("-input, -output and -attr are required")
	}
	setupLogging(stderr, *diag, false)

	set := 0
	for _, s := range []string{*below, *above, *equal} {
		if s != "" {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("exactly one of -below, -above or -equal is required")
	}

	fsys := fsutil.OSFileSystem{}
	pc, err := pointcloud.Load(fsys, *input)
	if err != nil {
		return err
	}

	var out *pointcloud.PointCloud
	switch {
	case *below != "":
		v, perr := strconv.ParseFloat(*below, 64)
		if perr != nil {
			return fmt.Errorf("invalid -below %q: %w", *below, perr)
		}
		out, err = filter.SelectBelow(pc, *attr, v)
	case *above != "":
		v, perr := strconv.ParseFloat(*above, 64)
		if perr != nil {
			return fmt.Errorf("invalid -above %q: %w", *above, perr)
		}
		out, err = filter.SelectAbove(pc, *attr, v)
	default:
		var values []float64
		for _, s := range splitNames(*equal) {
			v, perr := strconv.ParseFloat(s, 64)
			if perr != nil {
				return fmt.Errorf("invalid -equal value %q: %w", s, perr)
			}
			values = append(values, v)
		}
		out, err = filter.SelectEqual(pc, *attr, values...)
	}
	if err != nil {
		return err
	}
	if err := pointcloud.Save(fsys, *output, out); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "kept %d of %d points, wrote %s\n", out.Len(), pc.Len(), *output)
	return nil
}

func runList(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Extraction config JSON")
	kinds := fs.Bool("kinds", false, "Group names by extractor kind")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg := &config.ExtractionConfig{}
	if *configPath != "" {
		loaded, err := config.LoadExtractionConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	reg, err := features.NewRegistryFromConfigs(features.DefaultConfigs(features.DefaultParams{
		LayerThickness: cfg.GetEntropyLayerThickness(),
		GroundClasses:  cfg.GetGroundClasses(),
	}))
	if err != nil {
		return err
	}

	if !*kinds {
		for _, name := range reg.Names() {
			fmt.Fprintln(stdout, name)
		}
		return nil
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tREQUIRES\tPROVIDES")
	for _, e := range reg.Extractors() {
		requires := strings.Join(e.Requires(), ",")
		if requires == "" {
			requires = "-"
		}
		fmt.Fprintf(tw, "%v\t%s\t%s\n", e.Kind(), requires, strings.Join(e.Provides(), ","))
	}
	return tw.Flush()
}

func runRuns(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dbPath := fs.String("db", "", "SQLite database (required)")
	limit := fs.Int("limit", 20, "Most recent runs to list (0 for all)")
	show := fs.String("show", "", "Run ID to show")
	feature := fs.String("feature", "", "With -show, print this feature's values")
	remove := fs.String("delete", "", "Run ID to delete")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if *dbPath == "" {
		return fmt.Errorf("-db is required")
	}
	if *feature != "" && *show == "" {
		return fmt.Errorf("-feature requires -show")
	}

	db, err := sqlite.Open(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	store := sqlite.NewFeatureRunStore(db)

	switch {
	case *remove != "":
		if err := store.Delete(*remove); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "deleted run %s\n", *remove)
		return nil
	case *show != "" && *feature != "":
		values, err := store.Values(*show, *feature)
		if err != nil {
			return err
		}
		for i, v := range values {
			fmt.Fprintf(stdout, "%d\t%s\n", i, strconv.FormatFloat(v, 'g', -1, 64))
		}
		return nil
	case *show != "":
		run, err := store.Get(*show)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "run:      %s\n", run.RunID)
		fmt.Fprintf(stdout, "created:  %s\n", formatCreated(run.CreatedAt))
		fmt.Fprintf(stdout, "source:   %s\n", run.SourcePath)
		fmt.Fprintf(stdout, "target:   %s\n", run.TargetPath)
		fmt.Fprintf(stdout, "volume:   %s (%g)\n", run.VolumeType, run.VolumeSize)
		fmt.Fprintf(stdout, "targets:  %d\n", run.TargetCount)
		fmt.Fprintf(stdout, "features: %s\n", strings.Join(run.Features, ", "))
		return nil
	}

	runs, err := store.List(*limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(stdout, "no runs recorded")
		return nil
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tCREATED\tVOLUME\tTARGETS\tFEATURES\tSOURCE")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s %g\t%d\t%d\t%s\n", run.RunID, formatCreated(run.CreatedAt),
			run.VolumeType, run.VolumeSize, run.TargetCount, len(run.Features), run.SourcePath)
	}
	return tw.Flush()
}

func formatCreated(unixNanos int64) string {
	return time.Unix(0, unixNanos).UTC().Format(time.RFC3339)
}
