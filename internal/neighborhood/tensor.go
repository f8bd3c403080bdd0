package neighborhood

// Tensor is a dense (N, C, L) array of float64 values paired with an
// equal-shape invalid mask. Storage is row-major: target, channel, slot.
type Tensor struct {
	data    []float64
	invalid []bool
	lengths []int
	n, c, l int
}

func newTensor(n, c, l int) *Tensor {
	size := n * c * l
	t := &Tensor{
		data:    make([]float64, size),
		invalid: make([]bool, size),
		lengths: make([]int, n),
		n:       n,
		c:       c,
		l:       l,
	}
	for i := range t.invalid {
		t.invalid[i] = true
	}
	return t
}

// Shape returns the number of targets, channels and slots.
func (t *Tensor) Shape() (n, c, l int) {
	return t.n, t.c, t.l
}

func (t *Tensor) offset(i, c, k int) int {
	return (i*t.c+c)*t.l + k
}

// At returns the raw cell value. Padded cells read as 0.
func (t *Tensor) At(i, c, k int) float64 {
	return t.data[t.offset(i, c, k)]
}

// Invalid reports whether the cell is padding.
func (t *Tensor) Invalid(i, c, k int) bool {
	return t.invalid[t.offset(i, c, k)]
}

// Len returns the neighborhood size of target i, i.e. the number of valid
// slots in each of its channels.
func (t *Tensor) Len(i int) int {
	return t.lengths[i]
}

// Valid returns a copy of the unmasked values of channel c for target i in
// neighbor order. An empty neighborhood yields an empty slice.
func (t *Tensor) Valid(i, c int) []float64 {
	out := make([]float64, 0, t.lengths[i])
	base := t.offset(i, c, 0)
	for k := 0; k < t.l; k++ {
		if !t.invalid[base+k] {
			out = append(out, t.data[base+k])
		}
	}
	return out
}

// Data returns the backing value array. Callers must not modify it.
func (t *Tensor) Data() []float64 {
	return t.data
}

// Mask returns the backing invalid mask. Callers must not modify it.
func (t *Tensor) Mask() []bool {
	return t.invalid
}
