package cmd

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	sim "github.com/inference-sim/harvest-sim/sim"
	"github.com/inference-sim/harvest-sim/sim/workload"
)

// EnvironmentSpec mirrors sim.EnvConfig in a scenario file.
type EnvironmentSpec struct {
	Kappa           float64   `yaml:"kappa"`
	Complexity      float64   `yaml:"complexity"`
	AvgDataSize     float64   `yaml:"avg_data_size"`
	DataSizeSpread  float64   `yaml:"data_size_spread"`
	BatteryCapacity float64   `yaml:"battery_capacity"`
	CoreCount       int       `yaml:"core_count"`
	Frequencies     []float64 `yaml:"frequencies"`
	ArrivalRate     float64   `yaml:"arrival_rate"`
	PanelSize       float64   `yaml:"panel_size"`
	Tradeoff        float64   `yaml:"tradeoff"`
	Seed            int64     `yaml:"seed"`
	EvalSeed        int64     `yaml:"eval_seed"`
}

// WindowSpec is the simulated window in hours.
type WindowSpec struct {
	StartHour int `yaml:"start_hour"`
	EndHour   int `yaml:"end_hour"`
}

// IrradianceSpec selects the energy profile. File wins over Constant.
type IrradianceSpec struct {
	File        string  `yaml:"file"`
	HeaderLines int     `yaml:"header_lines"`
	Constant    float64 `yaml:"constant"`
}

// OutputSpec configures persistence, metrics and tracing.
type OutputSpec struct {
	Database    string `yaml:"database"`
	MetricsAddr string `yaml:"metrics_addr"`
	TraceLevel  string `yaml:"trace_level"`
}

// Scenario represents a full scenario YAML file.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type Scenario struct {
	Environment EnvironmentSpec `yaml:"environment"`
	Window      WindowSpec      `yaml:"window"`
	Policy      string          `yaml:"policy"`
	Training    bool            `yaml:"training"`
	Episodes    int             `yaml:"episodes"`
	Irradiance  IrradianceSpec  `yaml:"irradiance"`
	Output      OutputSpec      `yaml:"output"`
}

// DefaultScenario evaluates best-fit over 300 days of the reference node.
func DefaultScenario() Scenario {
	env := sim.DefaultEnvConfig()
	return Scenario{
		Environment: EnvironmentSpec{
			Kappa:           env.Kappa,
			Complexity:      env.Complexity,
			AvgDataSize:     env.AvgDataSize,
			DataSizeSpread:  env.DataSizeSpread,
			BatteryCapacity: env.BatteryCapacity,
			CoreCount:       env.CoreCount,
			Frequencies:     env.Frequencies,
			ArrivalRate:     env.ArrivalRate,
			PanelSize:       env.PanelSize,
			Tradeoff:        env.Tradeoff,
			Seed:            env.Seed,
			EvalSeed:        env.EvalSeed,
		},
		Window:     WindowSpec{StartHour: 0, EndHour: 300 * 24},
		Policy:     "best-fit",
		Episodes:   1,
		Irradiance: IrradianceSpec{HeaderLines: workload.SoDaHeaderLines},
		Output:     OutputSpec{TraceLevel: "none"},
	}
}

// LoadScenario parses a scenario file on top of DefaultScenario.
// Uses strict field checking: typos must cause errors.
func LoadScenario(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("read scenario file: %w", err)
	}
	sc := DefaultScenario()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return Scenario{}, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	return sc, nil
}

// EnvConfig converts the environment section.
func (sc Scenario) EnvConfig() sim.EnvConfig {
	e := sc.Environment
	return sim.EnvConfig{
		Kappa:           e.Kappa,
		Complexity:      e.Complexity,
		AvgDataSize:     e.AvgDataSize,
		DataSizeSpread:  e.DataSizeSpread,
		BatteryCapacity: e.BatteryCapacity,
		CoreCount:       e.CoreCount,
		Frequencies:     append([]float64(nil), e.Frequencies...),
		ArrivalRate:     e.ArrivalRate,
		PanelSize:       e.PanelSize,
		Tradeoff:        e.Tradeoff,
		Seed:            e.Seed,
		EvalSeed:        e.EvalSeed,
	}
}

// SimWindow converts the window section.
func (sc Scenario) SimWindow() sim.Window {
	return sim.Window{StartHour: sc.Window.StartHour, EndHour: sc.Window.EndHour}
}

// LoadIrradiance returns the hourly profile covering the scenario window.
func (sc Scenario) LoadIrradiance() ([]float64, error) {
	switch {
	case sc.Irradiance.File != "":
		return workload.ReadSoDaIrradiance(sc.Irradiance.File, sc.Irradiance.HeaderLines)
	case sc.Irradiance.Constant > 0:
		return workload.ConstantProfile(sc.Window.EndHour, sc.Irradiance.Constant), nil
	default:
		return nil, fmt.Errorf("%w: no irradiance file or constant irradiance configured", sim.ErrConfig)
	}
}
