package sim

import "fmt"

// Observation is what a decision policy sees at a decision point.
// Its vector layout is fixed:
//
//	[hour_of_day, battery, reservation, running_count[0..tiers), pending_size]
type Observation struct {
	HourOfDay    float64
	Battery      float64
	Reservation  float64
	RunningCount []int
	DataSize     float64
}

// Running returns the total number of in-flight tasks.
func (o Observation) Running() int {
	total := 0
	for _, n := range o.RunningCount {
		total += n
	}
	return total
}

// Vector flattens the observation in its fixed layout.
func (o Observation) Vector() []float64 {
	v := make([]float64, 0, 4+len(o.RunningCount))
	v = append(v, o.HourOfDay, o.Battery, o.Reservation)
	for _, n := range o.RunningCount {
		v = append(v, float64(n))
	}
	return append(v, o.DataSize)
}

// ObservationFromVector rebuilds an Observation from its flat layout.
func ObservationFromVector(v []float64, tiers int) (Observation, error) {
	if tiers <= 0 || len(v) != 4+tiers {
		return Observation{}, fmt.Errorf("observation vector has %d entries, want %d", len(v), 4+tiers)
	}
	running := make([]int, tiers)
	for i := range running {
		running[i] = int(v[3+i])
	}
	return Observation{
		HourOfDay:    v[0],
		Battery:      v[1],
		Reservation:  v[2],
		RunningCount: running,
		DataSize:     v[3+tiers],
	}, nil
}
