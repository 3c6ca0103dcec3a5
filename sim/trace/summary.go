package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalDecisions    int
	AcceptedCount     int
	RejectedCount     int
	MeanReward        float64
	RejectionsByCause map[string]int  // cause → count
	TierDistribution  map[float64]int // frequency → accepted count
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		RejectionsByCause: make(map[string]int),
		TierDistribution:  make(map[float64]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalDecisions = len(st.Decisions)
	totalReward := 0.0
	for _, d := range st.Decisions {
		totalReward += d.Reward
		if d.Accepted() {
			summary.AcceptedCount++
			summary.TierDistribution[d.Frequency]++
		} else {
			summary.RejectedCount++
			summary.RejectionsByCause[d.Cause]++
		}
	}
	if summary.TotalDecisions > 0 {
		summary.MeanReward = totalReward / float64(summary.TotalDecisions)
	}
	return summary
}
