package sim

import (
	"fmt"
	"math"
)

// PendingRequest is the arrival awaiting a decision.
type PendingRequest struct {
	ArrivalTime float64
	DataSize    float64
}

// DayRecord accumulates the statistics of one simulated day.
type DayRecord struct {
	TotalRequests      int
	RejectLowPower     int
	RejectHighLatency  int
	RejectConservation int
	TotalLatency       float64 // sum of processing times of accepted requests (hours)
	Reward             float64
}

func (d *DayRecord) countRejection(cause RejectionCause) {
	switch cause {
	case CauseLowPower:
		d.RejectLowPower++
	case CauseHighLatency:
		d.RejectHighLatency++
	case CauseConservation:
		d.RejectConservation++
	}
}

// State is the mutable world of one simulation run. It is mutated only by
// the event loop and Step.
type State struct {
	Clock       float64 // simulated hours, non-decreasing
	Battery     float64 // in [0, BatteryCapacity]
	Reservation float64 // energy committed to running tasks but not yet drawn
	EnergyRate  float64 // current harvesting rate

	// CoreFrequency[i] is 0 for an idle core, otherwise the tier it runs at.
	CoreFrequency []float64
	// RunningCount[t] is the number of in-flight tasks at tier t.
	RunningCount []int

	Days    []DayRecord
	Pending *PendingRequest
}

func newState(cfg EnvConfig, w Window) State {
	return State{
		Clock:         float64(w.StartHour),
		CoreFrequency: make([]float64, cfg.CoreCount),
		RunningCount:  make([]int, cfg.TierCount()),
		Days:          make([]DayRecord, (w.EndHour-w.StartHour+23)/24),
	}
}

// Running returns the total number of in-flight tasks.
func (st *State) Running() int {
	total := 0
	for _, n := range st.RunningCount {
		total += n
	}
	return total
}

// BusyCores returns the number of cores with a non-zero frequency.
func (st *State) BusyCores() int {
	busy := 0
	for _, f := range st.CoreFrequency {
		if f != 0 {
			busy++
		}
	}
	return busy
}

// firstIdleCore returns the lowest-indexed idle core, or -1.
func (st *State) firstIdleCore() int {
	for i, f := range st.CoreFrequency {
		if f == 0 {
			return i
		}
	}
	return -1
}

// day returns the record for day index d, growing Days as needed.
func (st *State) day(d int) *DayRecord {
	for len(st.Days) <= d {
		st.Days = append(st.Days, DayRecord{})
	}
	return &st.Days[d]
}

// dayIndex returns floor((clock - start) / 24).
func dayIndex(clock float64, startHour int) int {
	return int(math.Floor((clock - float64(startHour)) / 24))
}

// checkInvariants verifies the state after a transition.
func (st *State) checkInvariants(cfg EnvConfig, prevClock float64) error {
	if st.Battery < 0 || st.Battery > cfg.BatteryCapacity || math.IsNaN(st.Battery) {
		return fmt.Errorf("%w: battery charge %v outside [0, %v]", ErrConsistency, st.Battery, cfg.BatteryCapacity)
	}
	if st.Reservation < 0 || math.IsNaN(st.Reservation) {
		return fmt.Errorf("%w: negative reservation %v", ErrConsistency, st.Reservation)
	}
	if st.Clock < prevClock {
		return fmt.Errorf("%w: clock moved backwards from %v to %v", ErrConsistency, prevClock, st.Clock)
	}
	for t, n := range st.RunningCount {
		if n < 0 {
			return fmt.Errorf("%w: running count of tier %d is %d", ErrConsistency, t, n)
		}
	}
	if running, busy := st.Running(), st.BusyCores(); running != busy || running > cfg.CoreCount {
		return fmt.Errorf("%w: %d running tasks on %d busy cores (of %d)", ErrConsistency, running, busy, cfg.CoreCount)
	}
	for i, f := range st.CoreFrequency {
		if f != 0 && cfg.tierOf(f) < 0 {
			return fmt.Errorf("%w: core %d runs at unknown frequency %v", ErrConsistency, i, f)
		}
	}
	if st.Pending == nil {
		return fmt.Errorf("%w: no request pending after transition", ErrConsistency)
	}
	return nil
}
