package sim

import (
	"fmt"

	"github.com/inference-sim/harvest-sim/sim/workload"
)

// EnergyRate converts an irradiance sample into a harvesting rate.
func EnergyRate(panelSize, irradiance float64) float64 {
	return 3600 * panelSize * irradiance
}

// ScheduleEnergyProfile pushes one EnergyRateChangeEvent per hour boundary of
// the window. irradiance is indexed by absolute hour, so it must hold at
// least w.EndHour samples.
func ScheduleEnergyProfile(q *EventQueue, w Window, panelSize float64, irradiance []float64) error {
	if len(irradiance) < w.EndHour {
		return fmt.Errorf("%w: energy profile has %d hourly samples, window needs %d",
			ErrConfig, len(irradiance), w.EndHour)
	}
	for h := w.StartHour; h < w.EndHour; h++ {
		q.Push(NewEnergyRateChangeEvent(float64(h), EnergyRate(panelSize, irradiance[h])))
	}
	return nil
}

// ScheduleArrivals draws a fresh Poisson arrival stream over the window and
// pushes one RequestArrivalEvent per arrival.
func ScheduleArrivals(q *EventQueue, w Window, cfg EnvConfig, rng *PartitionedRNG) (int, error) {
	low, high := cfg.DataSizeRange()
	gaps := workload.NewPoissonSampler(cfg.ArrivalRate, rng.ForSubsystem(SubsystemArrival))
	sizes := workload.NewUniformSizeSampler(low, high, rng.ForSubsystem(SubsystemDataSize))
	arrivals, err := workload.GenerateArrivals(float64(w.StartHour), float64(w.EndHour), gaps, sizes)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	for _, a := range arrivals {
		q.Push(NewRequestArrivalEvent(a.Time, a.DataSize))
	}
	return len(arrivals), nil
}
