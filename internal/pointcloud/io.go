package pointcloud

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/banshee-data/pointfeatures/internal/fsutil"
)

type attributeJSON struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// MarshalJSON encodes the attribute as {"type": ..., "data": ...} with NaN
// written as null and infinities as the strings "Infinity" and "-Infinity".
func (a Attribute) MarshalJSON() ([]byte, error) {
	var data interface{}
	if a.Scalar {
		data = encodeValue(math.NaN())
		if len(a.Data) > 0 {
			data = encodeValue(a.Data[0])
		}
	} else {
		vals := make([]interface{}, len(a.Data))
		for i, v := range a.Data {
			vals[i] = encodeValue(v)
		}
		data = vals
	}
	return json.Marshal(struct {
		Type string      `json:"type"`
		Data interface{} `json:"data"`
	}{Type: a.Type, Data: data})
}

// UnmarshalJSON accepts either an array or a single value as data.
func (a *Attribute) UnmarshalJSON(b []byte) error {
	var in attributeJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	a.Type = in.Type
	raw := bytes.TrimSpace(in.Data)
	if len(raw) > 0 && raw[0] == '[' {
		var vals []json.RawMessage
		if err := json.Unmarshal(raw, &vals); err != nil {
			return fmt.Errorf("decode attribute data: %w", err)
		}
		a.Data = make([]float64, len(vals))
		for i, v := range vals {
			f, err := decodeValue(v)
			if err != nil {
				return fmt.Errorf("decode attribute data[%d]: %w", i, err)
			}
			a.Data[i] = f
		}
		a.Scalar = false
		return nil
	}

	f, err := decodeValue(raw)
	if err != nil {
		return fmt.Errorf("decode attribute data: %w", err)
	}
	a.Data = []float64{f}
	a.Scalar = true
	return nil
}

func encodeValue(v float64) interface{} {
	switch {
	case math.IsNaN(v):
		return nil
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	default:
		return v
	}
}

// decodeValue reads a number, null (NaN) or one of the strings
// "Infinity", "-Infinity" and "NaN".
func decodeValue(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return math.NaN(), nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		switch s {
		case "Infinity", "+Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		case "NaN":
			return math.NaN(), nil
		}
		return 0, fmt.Errorf("%w: unexpected value %q", ErrInvalidInput, s)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, err
	}
	return f, nil
}

// Unmarshal decodes and validates a point cloud from its JSON form.
func Unmarshal(b []byte) (*PointCloud, error) {
	pc := &PointCloud{}
	if err := json.Unmarshal(b, pc); err != nil {
		return nil, fmt.Errorf("failed to parse point cloud JSON: %w", err)
	}
	if pc.Cloud == nil {
		pc.Cloud = map[string]*Attribute{}
	}
	if pc.Provenance == nil {
		pc.Provenance = []ProvenanceRecord{}
	}
	if err := pc.Validate(); err != nil {
		return nil, err
	}
	return pc, nil
}

// Load reads a point cloud from a JSON file.
func Load(fsys fsutil.FileSystem, path string) (*PointCloud, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read point cloud: %w", err)
	}
	return Unmarshal(data)
}

// Save writes the point cloud to a JSON file.
func Save(fsys fsutil.FileSystem, path string, pc *PointCloud) error {
	if err := pc.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(pc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode point cloud: %w", err)
	}
	if err := fsys.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write point cloud: %w", err)
	}
	return nil
}
