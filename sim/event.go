package sim

import "github.com/sirupsen/logrus"

// EventKind tags the variant carried by an Event.
type EventKind int

const (
	KindRequestArrival EventKind = iota
	KindEnergyRateChange
	KindTaskCompletion
)

func (k EventKind) String() string {
	switch k {
	case KindRequestArrival:
		return "request-arrival"
	case KindEnergyRateChange:
		return "energy-rate-change"
	case KindTaskCompletion:
		return "task-completion"
	default:
		return "unknown"
	}
}

// Event defines the interface for all simulation events.
// Each event has a Timestamp (in simulated hours) and an Execute method that
// applies its side effect after the battery has been advanced to Timestamp.
type Event interface {
	Timestamp() float64
	Kind() EventKind
	Execute(*Simulator)
}

// RequestArrivalEvent is a compute request reaching the node. Executing it
// pauses the simulation until the caller decides on the request.
type RequestArrivalEvent struct {
	time     float64
	DataSize float64 // payload in bits
}

// NewRequestArrivalEvent creates a RequestArrivalEvent at time t.
func NewRequestArrivalEvent(t, dataSize float64) *RequestArrivalEvent {
	return &RequestArrivalEvent{time: t, DataSize: dataSize}
}

func (e *RequestArrivalEvent) Timestamp() float64 { return e.time }
func (e *RequestArrivalEvent) Kind() EventKind     { return KindRequestArrival }

// Execute marks the request as pending.
func (e *RequestArrivalEvent) Execute(sim *Simulator) {
	logrus.Tracef("<< Arrival: %.0f bits at %.6fh", e.DataSize, e.time)
	sim.State.Pending = &PendingRequest{ArrivalTime: e.time, DataSize: e.DataSize}
}

// EnergyRateChangeEvent replaces the harvesting rate at an hour boundary.
type EnergyRateChangeEvent struct {
	time float64
	Rate float64 // energy units per hour
}

// NewEnergyRateChangeEvent creates an EnergyRateChangeEvent at time t.
func NewEnergyRateChangeEvent(t, rate float64) *EnergyRateChangeEvent {
	return &EnergyRateChangeEvent{time: t, Rate: rate}
}

func (e *EnergyRateChangeEvent) Timestamp() float64 { return e.time }
func (e *EnergyRateChangeEvent) Kind() EventKind     { return KindEnergyRateChange }

func (e *EnergyRateChangeEvent) Execute(sim *Simulator) {
	logrus.Tracef("<< EnergyRateChange: %.3f at %.6fh", e.Rate, e.time)
	sim.State.EnergyRate = e.Rate
}

// TaskCompletionEvent frees a core once an accepted task finishes.
type TaskCompletionEvent struct {
	time float64
	Core int // index into State.CoreFrequency
	Tier int // zero-based frequency tier the task ran at
}

// NewTaskCompletionEvent creates a TaskCompletionEvent at time t.
func NewTaskCompletionEvent(t float64, core, tier int) *TaskCompletionEvent {
	return &TaskCompletionEvent{time: t, Core: core, Tier: tier}
}

func (e *TaskCompletionEvent) Timestamp() float64 { return e.time }
func (e *TaskCompletionEvent) Kind() EventKind     { return KindTaskCompletion }

func (e *TaskCompletionEvent) Execute(sim *Simulator) {
	logrus.Tracef("<< TaskCompletion: core %d tier %d at %.6fh", e.Core, e.Tier, e.time)
	sim.State.CoreFrequency[e.Core] = 0
	sim.State.RunningCount[e.Tier]--
}
