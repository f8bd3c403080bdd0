package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/pointfeatures/internal/fsutil"
	"github.com/banshee-data/pointfeatures/internal/neighborhood"
)

func TestDefaultsFile(t *testing.T) {
	cfg := MustLoadDefaultConfig()

	if cfg.GetVolumeType() != neighborhood.TypeInfiniteCylinder {
		t.Errorf("GetVolumeType() = %q, want %q", cfg.GetVolumeType(), neighborhood.TypeInfiniteCylinder)
	}
	if cfg.GetRadius() != 1.0 {
		t.Errorf("GetRadius() = %f, want 1.0", cfg.GetRadius())
	}
	if cfg.GetEntropyLayerThickness() != 0.5 {
		t.Errorf("GetEntropyLayerThickness() = %f, want 0.5", cfg.GetEntropyLayerThickness())
	}
	if got := cfg.GetGroundClasses(); len(got) != 1 || got[0] != 2 {
		t.Errorf("GetGroundClasses() = %v, want [2]", got)
	}
	if cfg.GetWorkers() != 1 {
		t.Errorf("GetWorkers() = %d, want 1", cfg.GetWorkers())
	}
	if cfg.GetTimeout() != 0 {
		t.Errorf("GetTimeout() = %v, want 0", cfg.GetTimeout())
	}
}

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := &ExtractionConfig{}
	defaults := MustLoadDefaultConfig()

	if cfg.GetVolumeType() != defaults.GetVolumeType() {
		t.Errorf("GetVolumeType() = %q, defaults file has %q", cfg.GetVolumeType(), defaults.GetVolumeType())
	}
	if cfg.GetRadius() != defaults.GetRadius() {
		t.Errorf("GetRadius() = %f, defaults file has %f", cfg.GetRadius(), defaults.GetRadius())
	}
	if cfg.GetEntropyLayerThickness() != defaults.GetEntropyLayerThickness() {
		t.Errorf("GetEntropyLayerThickness() = %f, defaults file has %f",
			cfg.GetEntropyLayerThickness(), defaults.GetEntropyLayerThickness())
	}
	if cfg.GetWorkers() != defaults.GetWorkers() {
		t.Errorf("GetWorkers() = %d, defaults file has %d", cfg.GetWorkers(), defaults.GetWorkers())
	}

	vol, err := cfg.Volume()
	if err != nil {
		t.Fatalf("Volume() error: %v", err)
	}
	if c, ok := vol.(neighborhood.InfiniteCylinder); !ok || c.Radius != 1.0 {
		t.Errorf("Volume() = %#v, want InfiniteCylinder{Radius: 1}", vol)
	}
}

func TestLoadExtractionConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "run.json")

	testJSON := `{
  "volume_type": "sphere",
  "radius": 2.5,
  "features": ["mean_z", "perc_95_z"],
  "ground_classes": [2, 9],
  "workers": 4,
  "timeout": "90s"
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadExtractionConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.GetVolumeType() != neighborhood.TypeSphere {
		t.Errorf("Expected sphere volume, got %q", cfg.GetVolumeType())
	}
	if cfg.GetRadius() != 2.5 {
		t.Errorf("Expected radius 2.5, got %f", cfg.GetRadius())
	}
	if len(cfg.Features) != 2 || cfg.Features[1] != "perc_95_z" {
		t.Errorf("Unexpected features %v", cfg.Features)
	}
	if got := cfg.GetGroundClasses(); len(got) != 2 || got[1] != 9 {
		t.Errorf("Unexpected ground classes %v", got)
	}
	if cfg.GetWorkers() != 4 {
		t.Errorf("Expected 4 workers, got %d", cfg.GetWorkers())
	}
	if cfg.GetTimeout() != 90*time.Second {
		t.Errorf("Expected 90s timeout, got %v", cfg.GetTimeout())
	}
	// Unset field keeps its default.
	if cfg.GetEntropyLayerThickness() != 0.5 {
		t.Errorf("Expected default layer thickness, got %f", cfg.GetEntropyLayerThickness())
	}
}

func TestLoadExtractionConfigFS_Errors(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	if err := fsys.WriteFile("bad.json", []byte(`{"radius": "wide"`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := fsys.WriteFile("invalid.json", []byte(`{"radius": -1}`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := fsys.WriteFile("huge.json", []byte(strings.Repeat(" ", maxFileSize+1)), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path    string
		wantMsg string
	}{
		{"config.yaml", ".json extension"},
		{"missing.json", "failed to stat"},
		{"bad.json", "failed to parse"},
		{"invalid.json", "invalid configuration"},
		{"huge.json", "too large"},
	}
	for _, tt := range tests {
		_, err := LoadExtractionConfigFS(fsys, tt.path)
		if err == nil {
			t.Errorf("%s: expected error, got nil", tt.path)
			continue
		}
		if !strings.Contains(err.Error(), tt.wantMsg) {
			t.Errorf("%s: error %q does not mention %q", tt.path, err, tt.wantMsg)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *ExtractionConfig
		wantErr bool
	}{
		{"empty config is valid", &ExtractionConfig{}, false},
		{"cell volume", &ExtractionConfig{VolumeType: ptrString(neighborhood.TypeCell), Radius: ptrFloat64(10)}, false},
		{"unknown volume", &ExtractionConfig{VolumeType: ptrString("cube")}, true},
		{"zero radius", &ExtractionConfig{Radius: ptrFloat64(0)}, true},
		{"zero layer thickness", &ExtractionConfig{EntropyLayerThickness: ptrFloat64(0)}, true},
		{"zero workers", &ExtractionConfig{Workers: ptrInt(0)}, true},
		{"bad timeout", &ExtractionConfig{Timeout: ptrString("soon")}, true},
		{"negative timeout", &ExtractionConfig{Timeout: ptrString("-1s")}, true},
		{"empty timeout", &ExtractionConfig{Timeout: ptrString("")}, false},
		{"duplicate feature", &ExtractionConfig{Features: []string{"mean_z", "mean_z"}}, true},
		{"empty feature", &ExtractionConfig{Features: []string{""}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
