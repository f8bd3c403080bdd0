package neighborhood

import (
	"fmt"
	"math"
)

// Volume type names as accepted by NewVolume.
const (
	TypeSphere           = "sphere"
	TypeInfiniteCylinder = "infinite cylinder"
	TypeCell             = "cell"
)

// Volume describes the region a neighborhood was collected from.
// Unbounded volumes report +Inf from Volume; density-style features fall
// back to BaseArea for them.
type Volume interface {
	Type() string
	Volume() float64
	BaseArea() float64
}

// Sphere is a ball of the given radius around the target point.
type Sphere struct {
	Radius float64
}

func (Sphere) Type() string { return TypeSphere }

func (s Sphere) Volume() float64 { return 4.0 / 3.0 * math.Pi * s.Radius * s.Radius * s.Radius }

// BaseArea is the area of the sphere's great circle.
func (s Sphere) BaseArea() float64 { return math.Pi * s.Radius * s.Radius }

// InfiniteCylinder is a vertical cylinder of unbounded height.
type InfiniteCylinder struct {
	Radius float64
}

func (InfiniteCylinder) Type() string { return TypeInfiniteCylinder }

func (InfiniteCylinder) Volume() float64 { return math.Inf(1) }

func (c InfiniteCylinder) BaseArea() float64 { return math.Pi * c.Radius * c.Radius }

// Cell is a vertical square column of unbounded height.
type Cell struct {
	SideLength float64
}

func (Cell) Type() string { return TypeCell }

func (Cell) Volume() float64 { return math.Inf(1) }

func (c Cell) BaseArea() float64 { return c.SideLength * c.SideLength }

// NewVolume builds a volume from its type name and size (radius or side
// length).
func NewVolume(typ string, size float64) (Volume, error) {
	if !(size > 0) {
		return nil, fmt.Errorf("%w: volume size must be positive, got %v", ErrInvalidInput, size)
	}
	switch typ {
	case TypeSphere:
		return Sphere{Radius: size}, nil
	case TypeInfiniteCylinder:
		return InfiniteCylinder{Radius: size}, nil
	case TypeCell:
		return Cell{SideLength: size}, nil
	default:
		return nil, fmt.Errorf("%w: unknown volume type %q", ErrInvalidInput, typ)
	}
}
