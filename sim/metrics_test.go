package sim

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleDays() []DayRecord {
	return []DayRecord{
		{TotalRequests: 10, RejectLowPower: 2, RejectHighLatency: 1, RejectConservation: 1, TotalLatency: 3, Reward: 4.5},
		{TotalRequests: 6, RejectLowPower: 0, RejectHighLatency: 0, RejectConservation: 2, TotalLatency: 1, Reward: 1.5},
	}
}

func TestDailyStats_Aggregates(t *testing.T) {
	d := newDailyStats(sampleDays())

	assert.Equal(t, 2, d.Days())
	assert.Equal(t, []int{10, 6}, d.TotalRequests)
	assert.Equal(t, []int{2, 0}, d.RejectLowPower)
	assert.Equal(t, []float64{4.5, 1.5}, d.Reward)

	totals := d.Totals()
	assert.Equal(t, 16, totals.TotalRequests)
	assert.Equal(t, 6, totals.RejectLowPower+totals.RejectHighLatency+totals.RejectConservation)
	assert.Equal(t, 10, d.Accepted())
	assert.Equal(t, 3.0, d.MeanDailyReward())
}

func TestDailyStats_Empty(t *testing.T) {
	d := newDailyStats(nil)
	assert.Zero(t, d.Days())
	assert.Zero(t, d.MeanDailyReward())
	assert.Zero(t, d.Accepted())
}

func TestDailyStats_IsACopy(t *testing.T) {
	days := sampleDays()
	d := newDailyStats(days)
	days[0].TotalRequests = 99
	assert.Equal(t, 10, d.TotalRequests[0])
}

func TestDailyStats_Print(t *testing.T) {
	var buf bytes.Buffer
	newDailyStats(sampleDays()).Print(&buf)
	out := buf.String()

	assert.Contains(t, out, "=== Simulation Metrics ===")
	assert.Contains(t, out, "Simulated Days       : 2")
	assert.Contains(t, out, "Total Requests       : 16")
	assert.Contains(t, out, "Accepted Requests    : 10")
	assert.Contains(t, out, "Average Latency      : 0.4000 h")
	assert.Contains(t, out, "Mean Daily Reward    : 3.0000")
}
