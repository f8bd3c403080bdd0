package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/banshee-data/pointfeatures/internal/fsutil"
	"github.com/banshee-data/pointfeatures/internal/neighborhood"
)

// DefaultConfigPath is the path to the canonical extraction defaults file.
const DefaultConfigPath = "config/extraction.defaults.json"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// ExtractionConfig holds the tunable parameters of a feature extraction
// run. Pointer fields distinguish "unset" from zero; the Get* methods
// supply defaults for unset fields so partial configs are safe.
type ExtractionConfig struct {
	// Neighborhood volume
	VolumeType *string  `json:"volume_type,omitempty"` // "sphere", "infinite cylinder" or "cell"
	Radius     *float64 `json:"radius,omitempty"`      // radius, or side length for cells

	// Feature selection; empty means every registered feature
	Features []string `json:"features,omitempty"`

	// Extractor params
	EntropyLayerThickness *float64 `json:"entropy_layer_thickness,omitempty"`
	GroundClasses         []int    `json:"ground_classes,omitempty"`

	// Execution
	Workers *int    `json:"workers,omitempty"`
	Timeout *string `json:"timeout,omitempty"` // duration string like "10m"; empty disables
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// LoadExtractionConfig loads an ExtractionConfig from a JSON file on disk.
func LoadExtractionConfig(path string) (*ExtractionConfig, error) {
	return LoadExtractionConfigFS(fsutil.OSFileSystem{}, path)
}

// LoadExtractionConfigFS loads an ExtractionConfig through fsys. The file
// must have a .json extension and be under 1MB.
func LoadExtractionConfigFS(fsys fsutil.FileSystem, path string) (*ExtractionConfig, error) {
	if ext := filepath.Ext(filepath.Clean(path)); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}
	cfg := &ExtractionConfig{}
	if err := fsutil.ReadJSON(fsys, path, maxFileSize, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the current directory
// or one of its parents. Panics if the file cannot be loaded, intended for
// test setup.
func MustLoadDefaultConfig() *ExtractionConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadExtractionConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the values that are set.
func (c *ExtractionConfig) Validate() error {
	if c.VolumeType != nil {
		switch *c.VolumeType {
		case neighborhood.TypeSphere, neighborhood.TypeInfiniteCylinder, neighborhood.TypeCell:
		default:
			return fmt.Errorf("unknown volume_type %q", *c.VolumeType)
		}
	}
	if c.Radius != nil && !(*c.Radius > 0) {
		return fmt.Errorf("radius must be positive, got %f", *c.Radius)
	}
	if c.EntropyLayerThickness != nil && !(*c.EntropyLayerThickness > 0) {
		return fmt.Errorf("entropy_layer_thickness must be positive, got %f", *c.EntropyLayerThickness)
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	if c.Timeout != nil && *c.Timeout != "" {
		d, err := time.ParseDuration(*c.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout '%s': %w", *c.Timeout, err)
		}
		if d < 0 {
			return fmt.Errorf("timeout must be non-negative, got %s", *c.Timeout)
		}
	}
	seen := make(map[string]bool, len(c.Features))
	for _, name := range c.Features {
		if name == "" {
			return fmt.Errorf("features must not contain empty names")
		}
		if seen[name] {
			return fmt.Errorf("feature %q listed twice", name)
		}
		seen[name] = true
	}
	return nil
}

// GetVolumeType returns the volume_type value or the default.
func (c *ExtractionConfig) GetVolumeType() string {
	if c.VolumeType == nil {
		return neighborhood.TypeInfiniteCylinder
	}
	return *c.VolumeType
}

// GetRadius returns the radius value or the default.
func (c *ExtractionConfig) GetRadius() float64 {
	if c.Radius == nil {
		return 1.0
	}
	return *c.Radius
}

// Volume builds the configured neighborhood volume.
func (c *ExtractionConfig) Volume() (neighborhood.Volume, error) {
	return neighborhood.NewVolume(c.GetVolumeType(), c.GetRadius())
}

// GetEntropyLayerThickness returns the entropy_layer_thickness value or the default.
func (c *ExtractionConfig) GetEntropyLayerThickness() float64 {
	if c.EntropyLayerThickness == nil {
		return 0.5
	}
	return *c.EntropyLayerThickness
}

// GetGroundClasses returns the ground_classes value or the default.
func (c *ExtractionConfig) GetGroundClasses() []int {
	if len(c.GroundClasses) == 0 {
		return []int{2}
	}
	return append([]int(nil), c.GroundClasses...)
}

// GetWorkers returns the workers value or the default.
func (c *ExtractionConfig) GetWorkers() int {
	if c.Workers == nil {
		return 1
	}
	return *c.Workers
}

// GetTimeout parses and returns the Timeout as a time.Duration. Zero
// means no timeout.
func (c *ExtractionConfig) GetTimeout() time.Duration {
	if c.Timeout == nil || *c.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(*c.Timeout)
	if err != nil {
		return 0 // default on parse error
	}
	return d
}
