// Tracks per-day statistics of a simulation run: requests, rejection causes,
// processing latency and reward.

package sim

import (
	"fmt"
	"io"
)

// DailyStats exposes the per-day statistics as one array per metric, all
// indexed by day = floor((clock - start) / 24).
type DailyStats struct {
	TotalRequests      []int
	RejectLowPower     []int
	RejectHighLatency  []int
	RejectConservation []int
	TotalLatency       []float64
	Reward             []float64
}

// DailyStats copies the per-day records of the current run.
func (sim *Simulator) DailyStats() DailyStats {
	return newDailyStats(sim.State.Days)
}

func newDailyStats(days []DayRecord) DailyStats {
	n := len(days)
	d := DailyStats{
		TotalRequests:      make([]int, n),
		RejectLowPower:     make([]int, n),
		RejectHighLatency:  make([]int, n),
		RejectConservation: make([]int, n),
		TotalLatency:       make([]float64, n),
		Reward:             make([]float64, n),
	}
	for i, r := range days {
		d.TotalRequests[i] = r.TotalRequests
		d.RejectLowPower[i] = r.RejectLowPower
		d.RejectHighLatency[i] = r.RejectHighLatency
		d.RejectConservation[i] = r.RejectConservation
		d.TotalLatency[i] = r.TotalLatency
		d.Reward[i] = r.Reward
	}
	return d
}

// Days returns the number of recorded days.
func (d DailyStats) Days() int {
	return len(d.TotalRequests)
}

// Totals sums every metric over all days.
func (d DailyStats) Totals() DayRecord {
	var t DayRecord
	for i := range d.TotalRequests {
		t.TotalRequests += d.TotalRequests[i]
		t.RejectLowPower += d.RejectLowPower[i]
		t.RejectHighLatency += d.RejectHighLatency[i]
		t.RejectConservation += d.RejectConservation[i]
		t.TotalLatency += d.TotalLatency[i]
		t.Reward += d.Reward[i]
	}
	return t
}

// Accepted returns the number of accepted requests over all days.
func (d DailyStats) Accepted() int {
	t := d.Totals()
	return t.TotalRequests - t.RejectLowPower - t.RejectHighLatency - t.RejectConservation
}

// MeanDailyReward averages Reward over the recorded days.
func (d DailyStats) MeanDailyReward() float64 {
	if d.Days() == 0 {
		return 0
	}
	return d.Totals().Reward / float64(d.Days())
}

// Print displays aggregated statistics at the end of the simulation.
func (d DailyStats) Print(w io.Writer) {
	t := d.Totals()
	fmt.Fprintln(w, "=== Simulation Metrics ===")
	fmt.Fprintf(w, "Simulated Days       : %d\n", d.Days())
	fmt.Fprintf(w, "Total Requests       : %d\n", t.TotalRequests)
	fmt.Fprintf(w, "Accepted Requests    : %d\n", d.Accepted())
	if t.TotalRequests > 0 {
		fmt.Fprintf(w, "Accept Ratio         : %.4f\n", float64(d.Accepted())/float64(t.TotalRequests))
	}
	fmt.Fprintf(w, "Rejected (low power) : %d\n", t.RejectLowPower)
	fmt.Fprintf(w, "Rejected (latency)   : %d\n", t.RejectHighLatency)
	fmt.Fprintf(w, "Rejected (conserve)  : %d\n", t.RejectConservation)
	if accepted := d.Accepted(); accepted > 0 {
		fmt.Fprintf(w, "Average Latency      : %.4f h\n", t.TotalLatency/float64(accepted))
	}
	fmt.Fprintf(w, "Mean Daily Reward    : %.4f\n", d.MeanDailyReward())
}
