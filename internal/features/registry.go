package features

import (
	"fmt"
	"sort"

	"github.com/banshee-data/pointfeatures/internal/pointcloud"
)

// Registry maps each feature name to the one extractor providing it.
// A Registry is immutable after construction and safe for concurrent use.
type Registry struct {
	byName     map[string]Extractor
	extractors []Extractor
}

// NewRegistry indexes the extractors by every name they provide. It fails
// with ErrDuplicateFeature when a name is provided more than once.
func NewRegistry(extractors ...Extractor) (*Registry, error) {
	r := &Registry{
		byName:     make(map[string]Extractor),
		extractors: make([]Extractor, 0, len(extractors)),
	}
	for _, e := range extractors {
		if e == nil {
			return nil, fmt.Errorf("%w: nil extractor", ErrInvalidInput)
		}
		for _, name := range e.Provides() {
			if prev, exists := r.byName[name]; exists {
				return nil, fmt.Errorf("%w: %q provided by both %v and %v extractors",
					ErrDuplicateFeature, name, prev.Kind(), e.Kind())
			}
			r.byName[name] = e
		}
		r.extractors = append(r.extractors, e)
	}
	return r, nil
}

// NewRegistryFromConfigs builds each config with New and indexes the result.
func NewRegistryFromConfigs(configs []Config) (*Registry, error) {
	extractors := make([]Extractor, 0, len(configs))
	for i, cfg := range configs {
		e, err := New(cfg)
		if err != nil {
			return nil, fmt.Errorf("extractor %d (%v): %w", i, cfg.Kind, err)
		}
		extractors = append(extractors, e)
	}
	return NewRegistry(extractors...)
}

// Lookup returns the extractor providing name.
func (r *Registry) Lookup(name string) (Extractor, error) {
	e, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFeature, name)
	}
	return e, nil
}

// Names returns every registered feature name in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Extractors returns the registered extractors in registration order.
func (r *Registry) Extractors() []Extractor {
	return append([]Extractor(nil), r.extractors...)
}

// DefaultParams tunes the parameterized default extractors. Zero values
// select the package defaults.
type DefaultParams struct {
	LayerThickness float64
	GroundClasses  []int
}

// DefaultConfigs lists the standard feature set: geometric features,
// statistics of z, normalized height and intensity, four normalized-height
// bands, and every integer percentile of z and normalized height.
func DefaultConfigs(p DefaultParams) []Config {
	nh := pointcloud.NormalizedHeight
	configs := []Config{
		{Kind: KindPointDensity},
		{Kind: KindEchoRatio},
		{Kind: KindEigenValues},
		{Kind: KindEntropy, LayerThickness: p.LayerThickness},
		{Kind: KindEntropy, DataKey: nh, LayerThickness: p.LayerThickness},
		{Kind: KindPulsePenetration, GroundClasses: p.GroundClasses},
		{Kind: KindSigmaZ},
		{Kind: KindMedian},
		{Kind: KindMedian, DataKey: nh},
		{Kind: KindVariance},
		{Kind: KindVariance, DataKey: nh},
		{Kind: KindMeanStdCoeff},
		{Kind: KindMeanStdCoeff, DataKey: nh},
		{Kind: KindMeanStdCoeff, DataKey: pointcloud.Intensity},
		{Kind: KindSkew},
		{Kind: KindSkew, DataKey: nh},
		{Kind: KindKurtosis},
		{Kind: KindKurtosis, DataKey: nh},
		{Kind: KindRange},
		{Kind: KindRange, DataKey: nh},
		{Kind: KindRange, DataKey: pointcloud.Intensity},
		{Kind: KindDensityAbsoluteMean},
		{Kind: KindDensityAbsoluteMean, DataKey: nh},
		{Kind: KindBandRatio, DataKey: nh, Upper: bound(1)},
		{Kind: KindBandRatio, DataKey: nh, Lower: bound(1), Upper: bound(2)},
		{Kind: KindBandRatio, DataKey: nh, Lower: bound(2), Upper: bound(3)},
		{Kind: KindBandRatio, DataKey: nh, Lower: bound(3)},
	}
	for _, key := range []string{pointcloud.Z, nh} {
		for pct := 1; pct <= 100; pct++ {
			configs = append(configs, Config{Kind: KindPercentile, DataKey: key, Percentile: pct})
		}
	}
	return configs
}

// DefaultRegistry builds the registry of DefaultConfigs with default
// parameters.
func DefaultRegistry() (*Registry, error) {
	return NewRegistryFromConfigs(DefaultConfigs(DefaultParams{}))
}

func bound(v float64) *float64 { return &v }
