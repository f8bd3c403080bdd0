package features

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// FitPlane fits z = c0 + c1*x + c2*y by least squares and returns the
// coefficients with the residual sum of squares. At least three points are
// needed; degenerate layouts (all points on one line) return NaN.
func FitPlane(x, y, z []float64) (coeffs [3]float64, rss float64, err error) {
	n := len(x)
	if len(y) != n || len(z) != n {
		return coeffs, 0, fmt.Errorf("%w: coordinate lengths %d, %d, %d", ErrInvalidInput, len(x), len(y), len(z))
	}
	nan := [3]float64{math.NaN(), math.NaN(), math.NaN()}
	if n < 3 {
		return nan, math.NaN(), nil
	}

	a := mat.NewDense(n, 3, nil)
	for i := 0; i < n; i++ {
		a.Set(i, 0, 1)
		a.Set(i, 1, x[i])
		a.Set(i, 2, y[i])
	}
	b := mat.NewVecDense(n, append([]float64(nil), z...))

	var c mat.VecDense
	if err := c.SolveVec(a, b); err != nil {
		return nan, math.NaN(), nil
	}
	for k := 0; k < 3; k++ {
		coeffs[k] = c.AtVec(k)
	}
	for i := 0; i < n; i++ {
		r := z[i] - (coeffs[0] + coeffs[1]*x[i] + coeffs[2]*y[i])
		rss += r * r
	}
	return coeffs, rss, nil
}

// FitPlaneSVD returns the unit normal of the best-fit plane through the
// points, oriented with a non-negative z component.
func FitPlaneSVD(x, y, z []float64) ([3]float64, error) {
	normal, _, err := principalAxes(x, y, z)
	return normal, err
}

// principalAxes centers the points and decomposes them with a thin SVD.
// It returns the direction of least variance (the plane normal, z >= 0)
// and the covariance eigenvalues in descending order.
func principalAxes(x, y, z []float64) (normal [3]float64, eigenvalues [3]float64, err error) {
	n := len(x)
	if len(y) != n || len(z) != n {
		return normal, eigenvalues, fmt.Errorf("%w: coordinate lengths %d, %d, %d",
			ErrInvalidInput, len(x), len(y), len(z))
	}
	for k := 0; k < 3; k++ {
		normal[k] = math.NaN()
		eigenvalues[k] = math.NaN()
	}
	if n < 3 {
		return normal, eigenvalues, nil
	}

	mx, my, mz := stat.Mean(x, nil), stat.Mean(y, nil), stat.Mean(z, nil)
	a := mat.NewDense(n, 3, nil)
	for i := 0; i < n; i++ {
		a.Set(i, 0, x[i]-mx)
		a.Set(i, 1, y[i]-my)
		a.Set(i, 2, z[i]-mz)
	}

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return normal, eigenvalues, nil
	}
	values := svd.Values(nil)
	var v mat.Dense
	svd.VTo(&v)

	for k := 0; k < 3; k++ {
		eigenvalues[k] = values[k] * values[k] / float64(n-1)
		normal[k] = v.At(k, 2)
	}
	if math.Signbit(normal[2]) {
		for k := range normal {
			normal[k] = -normal[k]
		}
	}
	return normal, eigenvalues, nil
}
