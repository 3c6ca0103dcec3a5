// Package sim provides the discrete-event simulation kernel of an
// energy-harvesting edge node that admits compute requests and runs them on
// one of several cores at a selectable clock frequency.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - event.go: Event variants (RequestArrival, EnergyRateChange, TaskCompletion)
//   - queue.go: EventQueue ordered by (timestamp, push sequence)
//   - simulator.go: Reset, the event loop (advance) and Step
//   - admission.go: energy and capacity admission checks, rejection causes
//
// # Control Flow
//
// Reset schedules a Poisson arrival stream and hourly energy rate changes,
// then drains the queue until the first request arrival is pending. Each
// Step validates the action against PossibleActions, books reward, latency
// and reservation, schedules the task completion and drains the queue to the
// next arrival. Battery charge and reservation advance over every popped event.
//
// The kernel is single-threaded and deterministic: the same seed, window,
// energy profile and decision sequence reproduce the same trajectory.
//
// # Sub-packages
//   - sim/workload/: arrival sampling and irradiance loading
//   - sim/policy/: greedy decision drivers
//   - sim/trace/: decision trace recording
//   - sim/recorder/: SQLite persistence of per-day statistics
//   - sim/telemetry/: Prometheus collectors fed by StepObserver
package sim
