// Package testutil provides shared test infrastructure for the harvest
// simulator: float comparison and on-disk irradiance fixtures used across
// sim/, sim/workload/ and cmd/ test packages.
package testutil

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// SoDaFixtureHeaderLines is the header length written by WriteSoDaFixture.
const SoDaFixtureHeaderLines = 32

// WriteSoDaFixture writes a SoDa-style export holding one row per entry of
// ghi into a temp directory and returns its path.
func WriteSoDaFixture(t *testing.T, ghi []int) string {
	t.Helper()
	var b strings.Builder
	for i := 0; i < SoDaFixtureHeaderLines; i++ {
		fmt.Fprintf(&b, "# header line %d\n", i+1)
	}
	for h, v := range ghi {
		fmt.Fprintf(&b, "2005-01-%02d;%02d:00;%d;0;0\n", h/24+1, h%24, v)
	}
	path := filepath.Join(t.TempDir(), "soda.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write irradiance fixture: %v", err)
	}
	return path
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
