package sim

import "math"

// RejectionCause classifies why a request was rejected. It feeds statistics
// only and never changes control flow.
type RejectionCause int

const (
	CauseNone RejectionCause = iota
	// CauseLowPower: even the slowest tier would overdraw battery plus reservation.
	CauseLowPower
	// CauseHighLatency: every core is busy.
	CauseHighLatency
	// CauseConservation: some tier was admissible but the policy rejected anyway.
	CauseConservation
)

func (c RejectionCause) String() string {
	switch c {
	case CauseLowPower:
		return "low-power"
	case CauseHighLatency:
		return "high-latency"
	case CauseConservation:
		return "conservation"
	default:
		return ""
	}
}

// ActionReject is always admissible.
const ActionReject = 0

// reservedEnergy is the energy a task of dataSize bits draws over its whole
// run at frequency f. The cubic power term and the processing time are kept
// in this exact evaluation order; reservation and admission must agree bit
// for bit.
func (c EnvConfig) reservedEnergy(f, dataSize float64) float64 {
	return c.Kappa * math.Pow(f, 3) * dataSize * c.Complexity / f
}

// corePower is the instantaneous draw of one core at frequency f, per hour.
func (c EnvConfig) corePower(f float64) float64 {
	return c.Kappa * math.Pow(f, 3) * 3600
}

// processTime is the hours a task of dataSize bits runs at frequency f.
func (c EnvConfig) processTime(f, dataSize float64) float64 {
	return dataSize * c.Complexity / (f * 3600)
}

// tierOf returns the tier index of frequency f, or -1.
func (c EnvConfig) tierOf(f float64) int {
	for i, tier := range c.Frequencies {
		if tier == f {
			return i
		}
	}
	return -1
}

// InvalidActions returns, in ascending order, the tier actions (1..tiers)
// that would overdraw the battery or find no idle core.
func (c EnvConfig) InvalidActions(obs Observation) []int {
	invalid := make([]int, 0, len(c.Frequencies))
	full := obs.Running() >= c.CoreCount
	for i, f := range c.Frequencies {
		if full || obs.Reservation+c.reservedEnergy(f, obs.DataSize) > obs.Battery {
			invalid = append(invalid, i+1)
		}
	}
	return invalid
}

// PossibleActions returns {0} ∪ ({1..tiers} \ InvalidActions), ascending.
func (c EnvConfig) PossibleActions(obs Observation) []int {
	invalid := c.InvalidActions(obs)
	possible := make([]int, 0, len(c.Frequencies)+1)
	possible = append(possible, ActionReject)
	next := 0
	for a := 1; a <= len(c.Frequencies); a++ {
		if next < len(invalid) && invalid[next] == a {
			next++
			continue
		}
		possible = append(possible, a)
	}
	return possible
}

// IsPossible reports whether action is admissible for obs.
func (c EnvConfig) IsPossible(obs Observation, action int) bool {
	for _, a := range c.PossibleActions(obs) {
		if a == action {
			return true
		}
	}
	return false
}

// ClassifyRejection attributes a reject decision to exactly one cause.
// Precedence: low-power, then high-latency, then conservation.
func (c EnvConfig) ClassifyRejection(obs Observation) RejectionCause {
	least := c.Frequencies[0]
	for _, f := range c.Frequencies[1:] {
		least = math.Min(least, f)
	}
	leastReserved := c.Kappa * math.Pow(least, 3) * (obs.DataSize * c.Complexity / least)
	if obs.Reservation+leastReserved > obs.Battery {
		return CauseLowPower
	}
	if obs.Running() >= c.CoreCount {
		return CauseHighLatency
	}
	return CauseConservation
}
