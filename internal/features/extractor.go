package features

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/pointfeatures/internal/neighborhood"
	"github.com/banshee-data/pointfeatures/internal/pointcloud"
)

var (
	// ErrInvalidInput is wrapped by argument and configuration validation
	// failures of individual extractors.
	ErrInvalidInput = pointcloud.ErrInvalidInput

	// ErrDuplicateFeature reports two extractors providing the same name.
	ErrDuplicateFeature = errors.New("duplicate feature name")

	// ErrUnknownFeature reports a lookup of a name no extractor provides.
	ErrUnknownFeature = errors.New("unknown feature")

	// ErrMissingRequirement reports a source cloud lacking an attribute an
	// extractor requires.
	ErrMissingRequirement = errors.New("missing required attribute")
)

// Kind enumerates the extractor variants.
type Kind int

const (
	KindPointDensity Kind = iota
	KindEchoRatio
	KindEigenValues
	KindEntropy
	KindPercentile
	KindPulsePenetration
	KindSigmaZ
	KindMedian
	KindVariance
	KindMeanStdCoeff
	KindSkew
	KindKurtosis
	KindRange
	KindDensityAbsoluteMean
	KindBandRatio
)

var kindNames = map[Kind]string{
	KindPointDensity:        "point_density",
	KindEchoRatio:           "echo_ratio",
	KindEigenValues:         "eigenvalues",
	KindEntropy:             "entropy",
	KindPercentile:          "percentile",
	KindPulsePenetration:    "pulse_penetration",
	KindSigmaZ:              "sigma_z",
	KindMedian:              "median",
	KindVariance:            "variance",
	KindMeanStdCoeff:        "mean_std_coeff",
	KindSkew:                "skew",
	KindKurtosis:            "kurtosis",
	KindRange:               "range",
	KindDensityAbsoluteMean: "density_absolute_mean",
	KindBandRatio:           "band_ratio",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Extractor is the uniform contract of every feature extractor.
type Extractor interface {
	// Kind identifies the variant.
	Kind() Kind

	// Requires lists the source attributes that must exist before Extract.
	Requires() []string

	// Provides lists the feature names Extract returns, in return order.
	Provides() []string

	// Extract computes the provided features for every target point.
	// neighborhoods[i] holds the source indices around target point
	// targetIndices[i]. The result has one slice per provided name, each
	// with one value per target point.
	Extract(src *pointcloud.PointCloud, neighborhoods [][]int, target *pointcloud.PointCloud,
		targetIndices []int, vol neighborhood.Volume) ([][]float64, error)
}

// Config selects and parameterizes one extractor variant.
type Config struct {
	Kind Kind

	// DataKey is the attribute reduced by single-attribute statistics.
	// Empty means z.
	DataKey string

	// Percentile is the integer percentile in [1, 100] for KindPercentile.
	Percentile int

	// Lower and Upper bound a KindBandRatio band; nil leaves that side open.
	Lower, Upper *float64

	// LayerThickness is the histogram bin width of KindEntropy.
	LayerThickness float64

	// ZMin and ZMax fix the histogram range of KindEntropy; nil uses the
	// neighborhood's own extent.
	ZMin, ZMax *float64

	// GroundClasses are the classification codes KindPulsePenetration
	// counts as ground.
	GroundClasses []int
}

// Default parameters.
const (
	DefaultLayerThickness = 0.5
	DefaultGroundClass    = 2
)

// New builds the extractor described by cfg.
func New(cfg Config) (Extractor, error) {
	key := cfg.DataKey
	if key == "" {
		key = pointcloud.Z
	}
	switch cfg.Kind {
	case KindPointDensity:
		return &pointDensity{}, nil
	case KindEchoRatio:
		return &echoRatio{}, nil
	case KindEigenValues:
		return &eigenValues{}, nil
	case KindSigmaZ:
		return &sigmaZ{}, nil
	case KindEntropy:
		return newEntropy(key, cfg)
	case KindPercentile:
		return newPercentile(key, cfg.Percentile)
	case KindPulsePenetration:
		return newPulsePenetration(cfg.GroundClasses), nil
	case KindMedian:
		return newMedian(key), nil
	case KindVariance:
		return newVariance(key), nil
	case KindMeanStdCoeff:
		return newMeanStdCoeff(key), nil
	case KindSkew:
		return newSkew(key), nil
	case KindKurtosis:
		return newKurtosis(key), nil
	case KindRange:
		return newRange(key), nil
	case KindDensityAbsoluteMean:
		return newDensityAbsoluteMean(key), nil
	case KindBandRatio:
		return newBandRatio(key, cfg.Lower, cfg.Upper)
	default:
		return nil, fmt.Errorf("%w: unknown extractor kind %v", ErrInvalidInput, cfg.Kind)
	}
}

// checkArgs validates the arguments shared by every Extract call.
func checkArgs(src *pointcloud.PointCloud, neighborhoods [][]int, targetIndices []int) error {
	if src == nil {
		return fmt.Errorf("%w: nil source point cloud", ErrInvalidInput)
	}
	if len(neighborhoods) == 0 {
		return fmt.Errorf("%w: no neighborhoods", ErrInvalidInput)
	}
	if len(targetIndices) != len(neighborhoods) {
		return fmt.Errorf("%w: %d target indices for %d neighborhoods",
			ErrInvalidInput, len(targetIndices), len(neighborhoods))
	}
	return nil
}

// nanOutputs allocates count slices of n NaN values.
func nanOutputs(count, n int) [][]float64 {
	out := make([][]float64, count)
	for k := range out {
		out[k] = make([]float64, n)
		for i := range out[k] {
			out[k][i] = math.NaN()
		}
	}
	return out
}
