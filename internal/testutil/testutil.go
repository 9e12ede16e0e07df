// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/banshee-data/radiotrack/internal/locate"
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

// AssertErrorIs fails the test unless errors.Is(err, target).
func AssertErrorIs(t testing.TB, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("error = %v, want %v", err, target)
	}
}

// AssertPointNear fails the test if got is farther than tol from want.
func AssertPointNear(t testing.TB, got, want locate.Point, tol float64) {
	t.Helper()
	if d := got.DistanceTo(want); d > tol || math.IsNaN(d) {
		t.Errorf("point = (%.3f, %.3f), want (%.3f, %.3f) within %.3f (off by %.3f)",
			got.X, got.Y, want.X, want.Y, tol, d)
	}
}

// ApproxFloats compares floats with an absolute margin in cmp.Diff calls.
func ApproxFloats(margin float64) cmp.Option {
	return cmpopts.EquateApprox(0, margin)
}

// AssertDiff fails the test with a readable diff when want and got differ.
func AssertDiff(t testing.TB, want, got interface{}, opts ...cmp.Option) {
	t.Helper()
	if diff := cmp.Diff(want, got, opts...); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
