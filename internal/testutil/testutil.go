// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"math"
	"testing"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertNaN fails the test unless v is NaN.
func AssertNaN(t testing.TB, v float64) {
	t.Helper()
	if !math.IsNaN(v) {
		t.Errorf("got %v, want NaN", v)
	}
}

// AssertAllNaN fails the test unless every value is NaN.
func AssertAllNaN(t testing.TB, vs []float64) {
	t.Helper()
	for i, v := range vs {
		if !math.IsNaN(v) {
			t.Errorf("value[%d] = %v, want NaN", i, v)
		}
	}
}

// FloatsNear reports whether a and b have equal length and agree within tol.
// NaN is considered equal to NaN.
func FloatsNear(a, b []float64, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			if math.IsNaN(a[i]) != math.IsNaN(b[i]) {
				return false
			}
			continue
		}
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}

// AssertFloatsNear fails the test unless got and want agree within tol,
// treating NaN as equal to NaN.
func AssertFloatsNear(t testing.TB, got, want []float64, tol float64) {
	t.Helper()
	if !FloatsNear(got, want, tol) {
		t.Errorf("got %v, want %v (tol %g)", got, want, tol)
	}
}
