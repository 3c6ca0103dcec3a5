package sim

import (
	"fmt"
	"math"
)

// EnvConfig groups the physical constants of the edge node and its workload.
// Frequencies are in Hz, data sizes in bits, energy in battery units and time
// in simulated hours.
type EnvConfig struct {
	Kappa           float64   // effective switched capacitance of a core
	Complexity      float64   // CPU cycles per bit of request payload
	AvgDataSize     float64   // mean request payload (bits)
	DataSizeSpread  float64   // payload is uniform in [AvgDataSize-spread, AvgDataSize+spread]
	BatteryCapacity float64   // upper bound on battery charge
	CoreCount       int       // number of identical CPU cores
	Frequencies     []float64 // selectable clock tiers, strictly ascending
	ArrivalRate     float64   // Poisson request rate (requests per hour)
	PanelSize       float64   // solar panel area; energy rate = 3600 * PanelSize * irradiance
	Tradeoff        float64   // latency weight in the acceptance reward
	Seed            int64     // seed of the training stream
	EvalSeed        int64     // fixed seed applied on every evaluation reset
}

// DefaultEnvConfig returns the reference node: 12 cores, three tiers at
// 2/3/4 GHz and 20 MB average payloads.
func DefaultEnvConfig() EnvConfig {
	return EnvConfig{
		Kappa:           1e-28,
		Complexity:      20000,
		AvgDataSize:     20 * 8 * 1e6,
		DataSizeSpread:  10 * 8 * 1e6,
		BatteryCapacity: 1e6,
		CoreCount:       12,
		Frequencies:     []float64{2e9, 3e9, 4e9},
		ArrivalRate:     100,
		PanelSize:       0.5,
		Tradeoff:        0.5,
		Seed:            42,
		EvalSeed:        0,
	}
}

// TierCount returns the number of selectable frequency tiers.
func (c EnvConfig) TierCount() int {
	return len(c.Frequencies)
}

// DataSizeRange returns the bounds of the uniform payload distribution.
func (c EnvConfig) DataSizeRange() (low, high float64) {
	return c.AvgDataSize - c.DataSizeSpread, c.AvgDataSize + c.DataSizeSpread
}

// Validate checks every field that the kernel relies on.
func (c EnvConfig) Validate() error {
	if len(c.Frequencies) == 0 {
		return fmt.Errorf("%w: frequency tier set is empty", ErrConfig)
	}
	for i, f := range c.Frequencies {
		if !(f > 0) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: frequency tier %d must be positive and finite, got %v", ErrConfig, i, f)
		}
		if i > 0 && f <= c.Frequencies[i-1] {
			return fmt.Errorf("%w: frequency tiers must be strictly ascending, got %v", ErrConfig, c.Frequencies)
		}
	}
	if !(c.ArrivalRate > 0) || math.IsInf(c.ArrivalRate, 0) {
		return fmt.Errorf("%w: arrival rate must be positive, got %v", ErrConfig, c.ArrivalRate)
	}
	if c.CoreCount <= 0 {
		return fmt.Errorf("%w: core count must be positive, got %d", ErrConfig, c.CoreCount)
	}
	if !(c.BatteryCapacity > 0) {
		return fmt.Errorf("%w: battery capacity must be positive, got %v", ErrConfig, c.BatteryCapacity)
	}
	if !(c.Complexity > 0) {
		return fmt.Errorf("%w: complexity must be positive, got %v", ErrConfig, c.Complexity)
	}
	if !(c.Kappa >= 0) {
		return fmt.Errorf("%w: kappa must be non-negative, got %v", ErrConfig, c.Kappa)
	}
	if !(c.AvgDataSize > 0) {
		return fmt.Errorf("%w: average data size must be positive, got %v", ErrConfig, c.AvgDataSize)
	}
	if c.DataSizeSpread < 0 || c.DataSizeSpread > c.AvgDataSize {
		return fmt.Errorf("%w: data size spread must be in [0, %v], got %v", ErrConfig, c.AvgDataSize, c.DataSizeSpread)
	}
	if c.PanelSize < 0 {
		return fmt.Errorf("%w: panel size must be non-negative, got %v", ErrConfig, c.PanelSize)
	}
	return nil
}

// Window is the half-open simulated interval [StartHour, EndHour).
type Window struct {
	StartHour int
	EndHour   int
}

// Days returns the number of whole days covered by the window.
func (w Window) Days() int {
	return (w.EndHour - w.StartHour) / 24
}

func (w Window) validate(irradiance []float64) error {
	if w.StartHour < 0 {
		return fmt.Errorf("%w: window start must be non-negative, got %d", ErrConfig, w.StartHour)
	}
	if w.EndHour <= w.StartHour {
		return fmt.Errorf("%w: window end %d must be after start %d", ErrConfig, w.EndHour, w.StartHour)
	}
	if len(irradiance) < w.EndHour {
		return fmt.Errorf("%w: energy profile has %d hourly samples, window needs %d",
			ErrConfig, len(irradiance), w.EndHour)
	}
	return nil
}
