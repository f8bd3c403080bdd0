package features

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/banshee-data/pointfeatures/internal/monitoring"
	"github.com/banshee-data/pointfeatures/internal/neighborhood"
	"github.com/banshee-data/pointfeatures/internal/pointcloud"
)

// ComputeModule is the provenance module name recorded by Compute.
const ComputeModule = "features.Compute"

// Options tunes Compute.
type Options struct {
	// Workers bounds the number of extractors run concurrently. Values
	// below 2 run extractors one after another.
	Workers int
}

// Compute evaluates the named features for every target point and writes
// them as attributes of target. Every feature provided by a selected
// extractor is written, including co-derived names that were not
// requested. Target points outside targetIndices keep their existing
// value, or NaN for attributes created here. The source is never modified.
//
// All requirements are checked before any extractor runs; a missing
// attribute fails the whole call with ErrMissingRequirement and leaves
// target untouched.
func Compute(ctx context.Context, reg *Registry, src *pointcloud.PointCloud, neighborhoods [][]int,
	target *pointcloud.PointCloud, targetIndices []int, vol neighborhood.Volume, names []string, opts Options) error {
	if reg == nil {
		return fmt.Errorf("%w: nil registry", ErrInvalidInput)
	}
	if err := src.Validate(); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if err := target.Validate(); err != nil {
		return fmt.Errorf("target: %w", err)
	}
	if len(names) == 0 {
		return fmt.Errorf("%w: no features requested", ErrInvalidInput)
	}
	if len(targetIndices) != len(neighborhoods) {
		return fmt.Errorf("%w: %d target indices for %d neighborhoods",
			ErrInvalidInput, len(targetIndices), len(neighborhoods))
	}
	for _, ti := range targetIndices {
		if ti < 0 || ti >= target.Len() {
			return fmt.Errorf("%w: target index %d out of range [0, %d)", ErrInvalidInput, ti, target.Len())
		}
	}
	if err := neighborhood.Validate(neighborhoods, src.Len()); err != nil {
		return err
	}

	selected, err := selectExtractors(reg, names)
	if err != nil {
		return err
	}
	if err := checkRequirements(src, selected); err != nil {
		return err
	}

	start := time.Now()
	results, err := runExtractors(ctx, selected, src, neighborhoods, target, targetIndices, vol, opts.Workers)
	if err != nil {
		return err
	}

	written := 0
	for j, e := range selected {
		for k, name := range e.Provides() {
			if err := writeFeature(target, name, targetIndices, results[j][k]); err != nil {
				return err
			}
			written++
		}
	}

	params := map[string]interface{}{"features": append([]string(nil), names...)}
	if vol != nil {
		params["volume"] = vol.Type()
	}
	if err := pointcloud.AddMetadata(target, ComputeModule, params); err != nil {
		return err
	}
	monitoring.Diagf("computed %d features from %d extractors for %d targets in %v",
		written, len(selected), len(targetIndices), time.Since(start))
	return nil
}

// selectExtractors resolves names to distinct extractors in first-seen
// order.
func selectExtractors(reg *Registry, names []string) ([]Extractor, error) {
	var selected []Extractor
	seen := make(map[Extractor]bool)
	for _, name := range names {
		e, err := reg.Lookup(name)
		if err != nil {
			return nil, err
		}
		if seen[e] {
			continue
		}
		seen[e] = true
		selected = append(selected, e)
	}
	return selected, nil
}

func checkRequirements(src *pointcloud.PointCloud, selected []Extractor) error {
	var missing []string
	reported := make(map[string]bool)
	for _, e := range selected {
		for _, req := range e.Requires() {
			if src.Has(req) || reported[req] {
				continue
			}
			reported[req] = true
			missing = append(missing, fmt.Sprintf("%s (needed by %v)", req, e.Kind()))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingRequirement, strings.Join(missing, ", "))
	}
	return nil
}

func runExtractors(ctx context.Context, selected []Extractor, src *pointcloud.PointCloud, neighborhoods [][]int,
	target *pointcloud.PointCloud, targetIndices []int, vol neighborhood.Volume, workers int) ([][][]float64, error) {
	results := make([][][]float64, len(selected))
	errs := make([]error, len(selected))

	run := func(j int) {
		if err := ctx.Err(); err != nil {
			errs[j] = err
			return
		}
		e := selected[j]
		t0 := time.Now()
		out, err := e.Extract(src, neighborhoods, target, targetIndices, vol)
		if err != nil {
			errs[j] = fmt.Errorf("%v extractor: %w", e.Kind(), err)
			return
		}
		if len(out) != len(e.Provides()) {
			errs[j] = fmt.Errorf("%v extractor returned %d outputs, provides %d", e.Kind(), len(out), len(e.Provides()))
			return
		}
		results[j] = out
		monitoring.Tracef("%v extractor (%s) took %v", e.Kind(), strings.Join(e.Provides(), ","), time.Since(t0))
	}

	if workers < 2 {
		for j := range selected {
			run(j)
			if errs[j] != nil {
				return nil, errs[j]
			}
		}
		return results, nil
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for j := range selected {
		wg.Add(1)
		sem <- struct{}{}
		go func(j int) {
			defer wg.Done()
			defer func() { <-sem }()
			run(j)
		}(j)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// writeFeature stores values at targetIndices of the named attribute,
// creating a NaN-filled attribute when the target lacks it.
func writeFeature(target *pointcloud.PointCloud, name string, targetIndices []int, values []float64) error {
	if len(values) != len(targetIndices) {
		return fmt.Errorf("feature %q has %d values for %d targets", name, len(values), len(targetIndices))
	}
	data, err := target.Data(name)
	if err != nil {
		data = make([]float64, target.Len())
		for i := range data {
			data[i] = math.NaN()
		}
		if err := target.SetAttribute(name, pointcloud.TypeDouble, data); err != nil {
			return err
		}
	}
	for i, ti := range targetIndices {
		data[ti] = values[i]
	}
	return nil
}
