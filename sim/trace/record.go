// Package trace provides decision-trace recording for offloading policy analysis.
// This package has no dependencies on sim/; it stores pure data types.
package trace

// DecisionRecord captures a single accept/reject decision at a decision point.
type DecisionRecord struct {
	Clock     float64 // simulated hours at the decision point
	DataSize  float64 // payload of the decided request (bits)
	Action    int     // 0 = reject, otherwise 1-based tier
	Frequency float64 // chosen clock frequency; 0 on reject
	Reward    float64
	Cause     string // rejection cause; empty when accepted
}

// Accepted reports whether the request was assigned to a core.
func (r DecisionRecord) Accepted() bool {
	return r.Action != 0
}
