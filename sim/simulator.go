// sim/simulator.go
package sim

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/harvest-sim/sim/trace"
)

// ResetOptions selects the window and energy profile of a new run.
type ResetOptions struct {
	Training   bool      // false re-seeds the RNG with EnvConfig.EvalSeed
	Window     Window    // half-open [StartHour, EndHour)
	Irradiance []float64 // one sample per absolute hour, at least EndHour long
}

// StepOutcome describes one completed Step, as delivered to observers.
type StepOutcome struct {
	DecisionClock float64
	DataSize      float64
	Action        int
	Frequency     float64
	Reward        float64
	Cause         RejectionCause
	Terminal      bool
	State         *State // post-step state; read-only for observers
}

// StepObserver is notified after every successful Step.
type StepObserver interface {
	ObserveStep(outcome StepOutcome)
}

// Simulator is the core object that holds simulation time, system state, and the event loop.
type Simulator struct {
	Config EnvConfig
	Window Window
	State  State
	// EventQueue has all pending events: arrivals, energy rate changes and task completions
	EventQueue *EventQueue
	RNG        *PartitionedRNG
	// Trace collects per-decision records when enabled; nil disables tracing.
	Trace *trace.SimulationTrace

	observers []StepObserver
	started   bool
	terminal  bool
}

// NewSimulator validates cfg and creates a simulator seeded with cfg.Seed.
// Reset must be called before the first Step.
func NewSimulator(cfg EnvConfig) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Frequencies = append([]float64(nil), cfg.Frequencies...)
	return &Simulator{
		Config:     cfg,
		EventQueue: NewEventQueue(),
		RNG:        NewPartitionedRNG(NewSimulationKey(cfg.Seed)),
	}, nil
}

// AddObserver registers o to receive every StepOutcome.
func (sim *Simulator) AddObserver(o StepObserver) {
	sim.observers = append(sim.observers, o)
}

// Schedule pushes an event into the simulator's EventQueue.
func (sim *Simulator) Schedule(ev Event) {
	sim.EventQueue.Push(ev)
}

// Reset discards the current run, builds fresh arrival and energy streams
// over opts.Window and advances to the first decision point.
func (sim *Simulator) Reset(opts ResetOptions) (Observation, error) {
	if err := opts.Window.validate(opts.Irradiance); err != nil {
		return Observation{}, err
	}
	if !opts.Training {
		sim.RNG = NewPartitionedRNG(NewSimulationKey(sim.Config.EvalSeed))
	}
	sim.begin(opts.Window)

	n, err := ScheduleArrivals(sim.EventQueue, opts.Window, sim.Config, sim.RNG)
	if err != nil {
		return Observation{}, err
	}
	if err := ScheduleEnergyProfile(sim.EventQueue, opts.Window, sim.Config.PanelSize, opts.Irradiance); err != nil {
		return Observation{}, err
	}
	logrus.Debugf("reset: window [%d, %d), %d arrivals, training=%v",
		opts.Window.StartHour, opts.Window.EndHour, n, opts.Training)

	if err := sim.advance(); err != nil {
		return Observation{}, err
	}
	if err := sim.State.checkInvariants(sim.Config, float64(opts.Window.StartHour)); err != nil {
		return Observation{}, err
	}
	sim.started = true
	sim.terminal = sim.State.Clock > float64(opts.Window.EndHour)
	return sim.observation(), nil
}

// begin zeroes the state and event queue for window w.
func (sim *Simulator) begin(w Window) {
	sim.Window = w
	sim.State = newState(sim.Config, w)
	sim.EventQueue = NewEventQueue()
	sim.terminal = false
	if sim.Trace != nil {
		sim.Trace.Reset()
	}
}

// powerDraw is the instantaneous draw of all busy cores.
func (sim *Simulator) powerDraw() float64 {
	power := 0.0
	for _, f := range sim.State.CoreFrequency {
		if f != 0 {
			power += sim.Config.corePower(f)
		}
	}
	return power
}

// advance drains the event queue until a request arrival becomes pending.
// Battery, reservation and clock advance across every popped event.
func (sim *Simulator) advance() error {
	for {
		ev, err := sim.EventQueue.PopMin()
		if err != nil {
			return fmt.Errorf("%w: no request arrival after %.6fh: %w", ErrConsistency, sim.State.Clock, err)
		}
		now := ev.Timestamp()
		dt := now - sim.State.Clock
		if dt < 0 {
			return fmt.Errorf("%w: %s event at %v precedes clock %v", ErrConsistency, ev.Kind(), now, sim.State.Clock)
		}

		drawn := sim.powerDraw() * dt
		sim.State.Battery = math.Max(sim.State.Battery-drawn, 0)
		sim.State.Battery = math.Min(sim.State.Battery+sim.State.EnergyRate*dt, sim.Config.BatteryCapacity)
		// reservation is released at the rate energy is actually drawn
		sim.State.Reservation = math.Max(sim.State.Reservation-drawn, 0)
		sim.State.Clock = now

		ev.Execute(sim)
		if ev.Kind() == KindRequestArrival {
			return nil
		}
	}
}

// Step applies action to the pending request and advances to the next
// decision point. It returns the next observation, the reward of the action
// and whether the clock has passed the window end.
func (sim *Simulator) Step(action int) (Observation, float64, bool, error) {
	if !sim.started || sim.State.Pending == nil {
		return Observation{}, 0, false, fmt.Errorf("%w: step called with no pending request", ErrContract)
	}
	if sim.terminal {
		return Observation{}, 0, true, fmt.Errorf("%w: step called after window end at %.6fh", ErrContract, sim.State.Clock)
	}
	obs := sim.observation()
	if !sim.Config.IsPossible(obs, action) {
		return Observation{}, 0, false, fmt.Errorf("%w: action %d not in possible actions %v",
			ErrContract, action, sim.Config.PossibleActions(obs))
	}

	decisionClock := sim.State.Clock
	dataSize := sim.State.Pending.DataSize
	day := sim.State.day(dayIndex(decisionClock, sim.Window.StartHour))
	day.TotalRequests++

	var reward, freq float64
	cause := CauseNone
	if action == ActionReject {
		cause = sim.Config.ClassifyRejection(obs)
		day.countRejection(cause)
	} else {
		tier := action - 1
		freq = sim.Config.Frequencies[tier]
		processTime := sim.Config.processTime(freq, dataSize)
		reward = 1 - sim.Config.Tradeoff*processTime

		day.TotalLatency += processTime
		sim.State.Reservation += sim.Config.reservedEnergy(freq, dataSize)
		sim.State.RunningCount[tier]++
		core := sim.State.firstIdleCore()
		if core < 0 {
			return Observation{}, 0, false, fmt.Errorf("%w: admitted tier %d but no idle core", ErrConsistency, action)
		}
		sim.State.CoreFrequency[core] = freq
		sim.Schedule(NewTaskCompletionEvent(decisionClock+processTime, core, tier))
	}
	day.Reward += reward

	sim.State.Pending = nil
	if err := sim.advance(); err != nil {
		return Observation{}, reward, false, err
	}
	if err := sim.State.checkInvariants(sim.Config, decisionClock); err != nil {
		return Observation{}, reward, false, err
	}
	sim.terminal = sim.State.Clock > float64(sim.Window.EndHour)
	if sim.terminal {
		logrus.Debugf("window [%d, %d) ended at %.6fh", sim.Window.StartHour, sim.Window.EndHour, sim.State.Clock)
	}

	sim.notify(StepOutcome{
		DecisionClock: decisionClock,
		DataSize:      dataSize,
		Action:        action,
		Frequency:     freq,
		Reward:        reward,
		Cause:         cause,
		Terminal:      sim.terminal,
		State:         &sim.State,
	})
	return sim.observation(), reward, sim.terminal, nil
}

func (sim *Simulator) notify(out StepOutcome) {
	if sim.Trace.Enabled() {
		sim.Trace.RecordDecision(trace.DecisionRecord{
			Clock:     out.DecisionClock,
			DataSize:  out.DataSize,
			Action:    out.Action,
			Frequency: out.Frequency,
			Reward:    out.Reward,
			Cause:     out.Cause.String(),
		})
	}
	for _, o := range sim.observers {
		o.ObserveStep(out)
	}
}

// Terminal reports whether the clock has passed the window end.
func (sim *Simulator) Terminal() bool {
	return sim.terminal
}

// PossibleActions returns the admissible actions for the pending request,
// or nil when no request is pending.
func (sim *Simulator) PossibleActions() []int {
	if sim.State.Pending == nil {
		return nil
	}
	return sim.Config.PossibleActions(sim.observation())
}

// Observation returns the current decision-point observation.
func (sim *Simulator) Observation() Observation {
	return sim.observation()
}

func (sim *Simulator) observation() Observation {
	obs := Observation{
		HourOfDay:    math.Mod(sim.State.Clock, 24),
		Battery:      sim.State.Battery,
		Reservation:  sim.State.Reservation,
		RunningCount: append([]int(nil), sim.State.RunningCount...),
	}
	if sim.State.Pending != nil {
		obs.DataSize = sim.State.Pending.DataSize
	}
	return obs
}
