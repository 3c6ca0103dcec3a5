// Package policy provides greedy decision drivers for the offloading kernel.
// Learned agents live outside this repository and plug in through sim.Policy.
package policy

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/inference-sim/harvest-sim/sim"
)

// Policy names accepted by NewPolicy.
const (
	NameBestFit   = "best-fit"
	NameWorstFit  = "worst-fit"
	NameRandom    = "random"
	NameRejectAll = "reject-all"
)

// ValidPolicies lists the accepted policy names.
var ValidPolicies = []string{NameBestFit, NameWorstFit, NameRandom, NameRejectAll}

// IsValidPolicy returns true if name is a recognized policy.
func IsValidPolicy(name string) bool {
	return slices.Contains(ValidPolicies, name)
}

// BestFit accepts at the fastest admissible tier, minimizing latency.
type BestFit struct{}

func (BestFit) Act(_ sim.Observation, possible []int) int {
	return possible[len(possible)-1]
}

// WorstFit accepts at the slowest admissible tier, minimizing energy.
type WorstFit struct{}

func (WorstFit) Act(_ sim.Observation, possible []int) int {
	if len(possible) > 1 {
		return possible[1]
	}
	return sim.ActionReject
}

// Random picks uniformly among the admissible actions, reject included.
type Random struct {
	rng *rand.Rand
}

// NewRandom creates a Random policy drawing from rng.
func NewRandom(rng *rand.Rand) *Random {
	return &Random{rng: rng}
}

func (r *Random) Act(_ sim.Observation, possible []int) int {
	return possible[r.rng.IntN(len(possible))]
}

// RejectAll rejects every request.
type RejectAll struct{}

func (RejectAll) Act(sim.Observation, []int) int {
	return sim.ActionReject
}

// NewPolicy creates a policy by name. rng is only used by "random".
// Panics on unrecognized names.
func NewPolicy(name string, rng *rand.Rand) sim.Policy {
	switch name {
	case NameBestFit:
		return BestFit{}
	case NameWorstFit:
		return WorstFit{}
	case NameRandom:
		return NewRandom(rng)
	case NameRejectAll:
		return RejectAll{}
	default:
		panic(fmt.Sprintf("unknown policy %q; valid policies: %v", name, ValidPolicies))
	}
}
