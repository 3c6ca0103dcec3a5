package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sim "github.com/inference-sim/harvest-sim/sim"
	"github.com/inference-sim/harvest-sim/sim/recorder"
)

func smallScenario() Scenario {
	sc := DefaultScenario()
	sc.Window = WindowSpec{StartHour: 0, EndHour: 48}
	sc.Irradiance.Constant = 200
	return sc
}

func TestRunScenario_PrintsMetrics(t *testing.T) {
	// GIVEN a two-day scenario under constant irradiance
	sc := smallScenario()
	sc.Output.TraceLevel = "decisions"

	// WHEN it runs
	var buf bytes.Buffer
	require.NoError(t, runScenario(sc, &buf))

	// THEN metrics and the trace summary are printed
	out := buf.String()
	assert.Contains(t, out, "=== Simulation Metrics ===")
	assert.Contains(t, out, "Simulated Days       : 2")
	assert.Contains(t, out, "=== Decision Trace ===")
}

func TestRunScenario_WritesDatabase(t *testing.T) {
	sc := smallScenario()
	sc.Episodes = 2
	sc.Output.Database = filepath.Join(t.TempDir(), "runs.sqlite3")

	var buf bytes.Buffer
	require.NoError(t, runScenario(sc, &buf))

	info, err := os.Stat(sc.Output.Database)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	rec, err := recorder.New(sc.Output.Database)
	require.NoError(t, err)
	defer rec.Close()
	var runs int
	require.NoError(t, rec.QueryRow("SELECT COUNT(*) FROM runs").Scan(&runs))
	assert.Equal(t, 2, runs)
}

func TestRunScenario_EvaluationEpisodesAreIdentical(t *testing.T) {
	sc := smallScenario()
	sc.Policy = "random"

	var a, b bytes.Buffer
	require.NoError(t, runScenario(sc, &a))
	require.NoError(t, runScenario(sc, &b))
	assert.Equal(t, a.String(), b.String())
}

func TestRunScenario_InvalidInputs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Scenario)
	}{
		{"unknown policy", func(sc *Scenario) { sc.Policy = "greedy" }},
		{"unknown trace level", func(sc *Scenario) { sc.Output.TraceLevel = "verbose" }},
		{"zero episodes", func(sc *Scenario) { sc.Episodes = 0 }},
		{"no cores", func(sc *Scenario) { sc.Environment.CoreCount = 0 }},
		{"no irradiance", func(sc *Scenario) { sc.Irradiance.Constant = 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sc := smallScenario()
			tc.mutate(&sc)
			err := runScenario(sc, &bytes.Buffer{})
			assert.ErrorIs(t, err, sim.ErrConfig)
		})
	}
}

func TestRunScenario_ReadsIrradianceFile(t *testing.T) {
	// GIVEN a SoDa export covering one day: dark nights, bright noon
	var b bytes.Buffer
	for i := 0; i < 32; i++ {
		b.WriteString("# header\n")
	}
	for h := 0; h < 24; h++ {
		ghi := 0
		if h >= 6 && h < 18 {
			ghi = 600
		}
		fmt.Fprintf(&b, "2005-01-01;%02d:00;%d;0;0\n", h, ghi)
	}
	path := filepath.Join(t.TempDir(), "soda.csv")
	require.NoError(t, os.WriteFile(path, b.Bytes(), 0o644))

	sc := DefaultScenario()
	sc.Window = WindowSpec{StartHour: 0, EndHour: 24}
	sc.Irradiance.File = path

	// WHEN the scenario runs
	var out bytes.Buffer
	require.NoError(t, runScenario(sc, &out))

	// THEN the dark morning forces low-power rejections
	assert.Contains(t, out.String(), "Simulated Days       : 1")
	assert.NotContains(t, out.String(), "Rejected (low power) : 0\n")
}
