package pointcloud

import (
	"errors"
	"fmt"
	"sort"
)

// Section keys of the JSON wire format.
const (
	KeyPoints     = "points"
	KeyCloud      = "pointcloud"
	KeyProvenance = "provenance"
)

// Well-known attribute names.
const (
	X                 = "x"
	Y                 = "y"
	Z                 = "z"
	Intensity         = "intensity"
	NormalizedHeight  = "normalized_height"
	RawClassification = "raw_classification"
	ReturnNumber      = "return"
)

// Attribute type tags.
const (
	TypeFloat  = "float"
	TypeDouble = "double"
	TypeInt    = "int"
)

var (
	// ErrInvalidInput is wrapped by every input validation failure.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownAttribute indicates a lookup of an attribute that has not
	// been computed.
	ErrUnknownAttribute = fmt.Errorf("%w: unknown attribute", ErrInvalidInput)
)

// Attribute is a typed array of values. Under PointCloud.Points it holds
// one value per point; under PointCloud.Cloud it may be a scalar.
type Attribute struct {
	Type string
	Data []float64

	// Scalar marks cloud-level attributes holding a single value that is
	// serialised as a JSON number rather than an array.
	Scalar bool
}

// Clone returns a deep copy of the attribute, or nil for a nil attribute.
func (a *Attribute) Clone() *Attribute {
	if a == nil {
		return nil
	}
	return &Attribute{
		Type:   a.Type,
		Data:   append([]float64(nil), a.Data...),
		Scalar: a.Scalar,
	}
}

// PointCloud is the point cloud data model.
type PointCloud struct {
	Points     map[string]*Attribute `json:"points"`
	Cloud      map[string]*Attribute `json:"pointcloud"`
	Provenance []ProvenanceRecord    `json:"provenance"`
}

// New creates a point cloud holding only x, y and z. The input slices
// are copied.
func New(x, y, z []float64) (*PointCloud, error) {
	if len(x) != len(y) || len(x) != len(z) {
		return nil, fmt.Errorf("%w: coordinate lengths differ (x=%d y=%d z=%d)",
			ErrInvalidInput, len(x), len(y), len(z))
	}
	return &PointCloud{
		Points: map[string]*Attribute{
			X: {Type: TypeFloat, Data: append([]float64(nil), x...)},
			Y: {Type: TypeFloat, Data: append([]float64(nil), y...)},
			Z: {Type: TypeFloat, Data: append([]float64(nil), z...)},
		},
		Cloud:      map[string]*Attribute{},
		Provenance: []ProvenanceRecord{},
	}, nil
}

// Len returns the number of points.
func (pc *PointCloud) Len() int {
	if pc == nil {
		return 0
	}
	if a, ok := pc.Points[X]; ok {
		return len(a.Data)
	}
	for _, a := range pc.Points {
		return len(a.Data)
	}
	return 0
}

// Has reports whether the named per-point attribute is present.
func (pc *PointCloud) Has(name string) bool {
	if pc == nil {
		return false
	}
	_, ok := pc.Points[name]
	return ok
}

// Attribute returns the named per-point attribute.
func (pc *PointCloud) Attribute(name string) (*Attribute, error) {
	if pc == nil {
		return nil, fmt.Errorf("%w: nil point cloud", ErrInvalidInput)
	}
	a, ok := pc.Points[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownAttribute, name)
	}
	return a, nil
}

// Data returns the values of the named per-point attribute. The returned
// slice aliases the cloud's storage.
func (pc *PointCloud) Data(name string) ([]float64, error) {
	a, err := pc.Attribute(name)
	if err != nil {
		return nil, err
	}
	return a.Data, nil
}

// Names returns the per-point attribute names in sorted order.
func (pc *PointCloud) Names() []string {
	names := make([]string, 0, len(pc.Points))
	for n := range pc.Points {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SetAttribute adds or replaces a per-point attribute. data is stored
// without copying and must hold one value per point.
func (pc *PointCloud) SetAttribute(name, typ string, data []float64) error {
	if pc == nil {
		return fmt.Errorf("%w: nil point cloud", ErrInvalidInput)
	}
	if name == "" {
		return fmt.Errorf("%w: empty attribute name", ErrInvalidInput)
	}
	if len(pc.Points) > 0 && len(data) != pc.Len() {
		return fmt.Errorf("%w: attribute %q has %d values, point cloud has %d points",
			ErrInvalidInput, name, len(data), pc.Len())
	}
	if pc.Points == nil {
		pc.Points = make(map[string]*Attribute)
	}
	if typ == "" {
		typ = TypeFloat
	}
	pc.Points[name] = &Attribute{Type: typ, Data: data}
	return nil
}

// Point returns the coordinates of point i.
func (pc *PointCloud) Point(i int) (x, y, z float64) {
	return pc.Points[X].Data[i], pc.Points[Y].Data[i], pc.Points[Z].Data[i]
}

// Values returns the value of each named attribute for point i.
func (pc *PointCloud) Values(names []string, i int) ([]float64, error) {
	if i < 0 || i >= pc.Len() {
		return nil, fmt.Errorf("%w: point index %d out of range [0,%d)", ErrInvalidInput, i, pc.Len())
	}
	out := make([]float64, len(names))
	for k, name := range names {
		data, err := pc.Data(name)
		if err != nil {
			return nil, err
		}
		out[k] = data[i]
	}
	return out, nil
}

// Validate checks the structural invariants of the cloud: x, y and z are
// present and every per-point attribute has the same length.
func (pc *PointCloud) Validate() error {
	if pc == nil {
		return fmt.Errorf("%w: nil point cloud", ErrInvalidInput)
	}
	for _, name := range pc.Names() {
		if pc.Points[name] == nil {
			return fmt.Errorf("%w: attribute %q is null", ErrInvalidInput, name)
		}
	}
	for name, a := range pc.Cloud {
		if a == nil {
			return fmt.Errorf("%w: cloud attribute %q is null", ErrInvalidInput, name)
		}
	}
	for _, k := range []string{X, Y, Z} {
		if !pc.Has(k) {
			return fmt.Errorf("%w: missing mandatory attribute %q", ErrInvalidInput, k)
		}
	}
	n := pc.Len()
	for _, name := range pc.Names() {
		if got := len(pc.Points[name].Data); got != n {
			return fmt.Errorf("%w: attribute %q has %d values, want %d", ErrInvalidInput, name, got, n)
		}
	}
	return nil
}

// Copy returns a deep copy of the cloud.
func (pc *PointCloud) Copy() *PointCloud {
	out, _ := pc.CopyMasked(nil)
	return out
}

// CopyMasked returns a deep copy that keeps only the points whose entry in
// keep is true. A nil keep copies every point. Cloud-level metadata and the
// provenance trail are copied unchanged.
func (pc *PointCloud) CopyMasked(keep []bool) (*PointCloud, error) {
	if err := pc.Validate(); err != nil {
		return nil, err
	}
	if keep != nil && len(keep) != pc.Len() {
		return nil, fmt.Errorf("%w: mask has %d entries, point cloud has %d points",
			ErrInvalidInput, len(keep), pc.Len())
	}

	out := &PointCloud{
		Points:     make(map[string]*Attribute, len(pc.Points)),
		Cloud:      make(map[string]*Attribute, len(pc.Cloud)),
		Provenance: make([]ProvenanceRecord, 0, len(pc.Provenance)),
	}
	for name, a := range pc.Points {
		if keep == nil {
			out.Points[name] = a.Clone()
			continue
		}
		data := make([]float64, 0, len(a.Data))
		for i, v := range a.Data {
			if keep[i] {
				data = append(data, v)
			}
		}
		out.Points[name] = &Attribute{Type: a.Type, Data: data}
	}
	for name, a := range pc.Cloud {
		out.Cloud[name] = a.Clone()
	}
	for _, rec := range pc.Provenance {
		out.Provenance = append(out.Provenance, rec.clone())
	}
	return out, nil
}
