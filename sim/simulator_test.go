package sim

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/harvest-sim/sim/internal/testutil"
	"github.com/inference-sim/harvest-sim/sim/trace"
)

// policyFunc adapts a function to Policy.
type policyFunc func(obs Observation, possible []int) int

func (f policyFunc) Act(obs Observation, possible []int) int { return f(obs, possible) }

var (
	fastestTier      = policyFunc(func(_ Observation, possible []int) int { return possible[len(possible)-1] })
	rejectEverything = policyFunc(func(Observation, []int) int { return ActionReject })
)

// startManual builds a simulator over w with a hand-placed arrival stream of
// 160 Mbit requests and no energy events, then advances to the first arrival.
func startManual(t *testing.T, cfg EnvConfig, w Window, battery float64, arrivals ...float64) *Simulator {
	t.Helper()
	s, err := NewSimulator(cfg)
	require.NoError(t, err)
	s.begin(w)
	s.State.Battery = battery
	for _, at := range arrivals {
		s.Schedule(NewRequestArrivalEvent(at, 160e6))
	}
	require.NoError(t, s.advance())
	s.started = true
	return s
}

func twoDayOptions(irradiance float64) ResetOptions {
	return ResetOptions{
		Window:     Window{StartHour: 0, EndHour: 48},
		Irradiance: testConstantProfile(48, irradiance),
	}
}

func testConstantProfile(hours int, v float64) []float64 {
	p := make([]float64, hours)
	for i := range p {
		p[i] = v
	}
	return p
}

type recordingObserver struct {
	outcomes []StepOutcome
}

func (r *recordingObserver) ObserveStep(o StepOutcome) { r.outcomes = append(r.outcomes, o) }

func TestSimulator_SingleCoreBusy_SecondRequestRejectedForLatency(t *testing.T) {
	// GIVEN one core at 2 GHz, full battery and arrivals at 0, 0.1 and 1.0 h
	cfg := singleTierConfig()
	s := startManual(t, cfg, Window{StartHour: 0, EndHour: 2}, 1e6, 0, 0.1, 1.0, 2.5)
	require.Equal(t, []int{0, 1}, s.PossibleActions())

	// WHEN the first request is accepted at 2 GHz
	_, reward, terminal, err := s.Step(1)
	require.NoError(t, err)
	assert.False(t, terminal)
	assert.InDelta(t, 1-0.5*4.0/9.0, reward, 1e-12)

	// THEN at the second arrival the core is busy and only reject is possible
	assert.Equal(t, 0.1, s.State.Clock)
	assert.Equal(t, []int{1}, s.State.RunningCount)
	assert.InDelta(t, 1280-288, s.State.Reservation, 1e-6)
	assert.InDelta(t, 1e6-288, s.State.Battery, 1e-6)
	assert.Equal(t, []int{0}, s.PossibleActions())

	// WHEN it is rejected
	_, reward, _, err = s.Step(ActionReject)
	require.NoError(t, err)
	assert.Zero(t, reward)

	// THEN it is counted as high-latency and the task completes at 4/9 h
	day := s.State.Days[0]
	assert.Equal(t, 2, day.TotalRequests)
	assert.Equal(t, 1, day.RejectHighLatency)
	assert.Zero(t, day.RejectLowPower+day.RejectConservation)
	assert.InDelta(t, 4.0/9.0, day.TotalLatency, 1e-12)

	assert.Equal(t, 1.0, s.State.Clock)
	assert.Equal(t, []int{0}, s.State.RunningCount)
	assert.Equal(t, []float64{0}, s.State.CoreFrequency)
	assert.InDelta(t, 0, s.State.Reservation, 1e-6)
	assert.InDelta(t, 1e6-1280, s.State.Battery, 1e-6)
	assert.Equal(t, []int{0, 1}, s.PossibleActions())

	// WHEN the third request is accepted, the next arrival lies past the window
	_, _, terminal, err = s.Step(1)
	require.NoError(t, err)
	assert.True(t, terminal)
	assert.True(t, s.Terminal())

	_, _, _, err = s.Step(ActionReject)
	assert.ErrorIs(t, err, ErrContract)
}

func TestSimulator_AcceptedTaskRunsOnLowestIdleCore(t *testing.T) {
	cfg := DefaultEnvConfig()
	cfg.CoreCount = 3
	s := startManual(t, cfg, Window{StartHour: 0, EndHour: 1}, 1e6, 0, 0.01, 0.02, 1.5)

	_, _, _, err := s.Step(3)
	require.NoError(t, err)
	_, _, _, err = s.Step(1)
	require.NoError(t, err)

	assert.Equal(t, []float64{4e9, 2e9, 0}, s.State.CoreFrequency)
	assert.Equal(t, []int{1, 0, 1}, s.State.RunningCount)
	assert.Equal(t, 2, s.Observation().Running())
}

func TestSimulator_LowBattery_RejectedForLowPower(t *testing.T) {
	cfg := singleTierConfig()
	s := startManual(t, cfg, Window{StartHour: 0, EndHour: 1}, 100, 0.5, 2)

	assert.Equal(t, []int{0}, s.PossibleActions())
	_, _, _, err := s.Step(ActionReject)
	require.NoError(t, err)
	assert.Equal(t, 1, s.State.Days[0].RejectLowPower)
}

func TestSimulator_DayIndex(t *testing.T) {
	assert.Equal(t, 1, dayIndex(47.5, 0))
	assert.Equal(t, 0, dayIndex(47.5, 24))
	assert.Equal(t, 1, dayIndex(24, 0))
	assert.Equal(t, 0, dayIndex(23.999, 0))

	// GIVEN a decision at 47.5 h in a window starting at 0
	s := startManual(t, singleTierConfig(), Window{StartHour: 0, EndHour: 48}, 1e6, 47.5, 49)

	// WHEN it is rejected
	_, _, _, err := s.Step(ActionReject)
	require.NoError(t, err)

	// THEN it lands on day 1
	assert.Equal(t, 0, s.State.Days[0].TotalRequests)
	assert.Equal(t, 1, s.State.Days[1].TotalRequests)
	assert.Equal(t, 1, s.State.Days[1].RejectConservation)
}

func TestState_DayGrowsOnDemand(t *testing.T) {
	st := newState(singleTierConfig(), Window{StartHour: 0, EndHour: 24})
	require.Len(t, st.Days, 1)
	st.day(3).TotalRequests++
	assert.Len(t, st.Days, 4)
	assert.Equal(t, 1, st.Days[3].TotalRequests)
}

func TestSimulator_Step_ContractViolations(t *testing.T) {
	t.Run("before reset", func(t *testing.T) {
		s, err := NewSimulator(DefaultEnvConfig())
		require.NoError(t, err)
		_, _, _, err = s.Step(ActionReject)
		assert.ErrorIs(t, err, ErrContract)
		assert.Nil(t, s.PossibleActions())
	})

	t.Run("action outside possible set", func(t *testing.T) {
		s := startManual(t, singleTierConfig(), Window{StartHour: 0, EndHour: 1}, 100, 0.5, 2)
		before := s.State.Clock
		for _, action := range []int{1, 2, -1} {
			_, _, _, err := s.Step(action)
			assert.ErrorIs(t, err, ErrContract, "action %d", action)
		}
		assert.Equal(t, before, s.State.Clock)
		assert.Zero(t, s.State.Days[0].TotalRequests)
	})

	t.Run("after terminal", func(t *testing.T) {
		s := startManual(t, singleTierConfig(), Window{StartHour: 0, EndHour: 1}, 1e6, 0.5, 2)
		_, _, terminal, err := s.Step(ActionReject)
		require.NoError(t, err)
		require.True(t, terminal)
		_, _, _, err = s.Step(ActionReject)
		assert.ErrorIs(t, err, ErrContract)
	})
}

func TestSimulator_ConfigErrors(t *testing.T) {
	cfg := DefaultEnvConfig()
	cfg.ArrivalRate = 0
	_, err := NewSimulator(cfg)
	assert.ErrorIs(t, err, ErrConfig)

	cfg = DefaultEnvConfig()
	cfg.Frequencies = []float64{}
	_, err = NewSimulator(cfg)
	assert.ErrorIs(t, err, ErrConfig)

	s, err := NewSimulator(DefaultEnvConfig())
	require.NoError(t, err)
	_, err = s.Reset(ResetOptions{Window: Window{StartHour: 0, EndHour: 48}, Irradiance: make([]float64, 47)})
	assert.ErrorIs(t, err, ErrConfig)
	_, err = s.Reset(ResetOptions{Window: Window{StartHour: 10, EndHour: 10}, Irradiance: make([]float64, 48)})
	assert.ErrorIs(t, err, ErrConfig)
}

func TestNewSimulator_CopiesFrequencies(t *testing.T) {
	cfg := DefaultEnvConfig()
	s, err := NewSimulator(cfg)
	require.NoError(t, err)
	cfg.Frequencies[0] = 1
	assert.Equal(t, 2e9, s.Config.Frequencies[0])
}

func TestSimulator_Reset_FirstObservation(t *testing.T) {
	s, err := NewSimulator(DefaultEnvConfig())
	require.NoError(t, err)

	obs, err := s.Reset(twoDayOptions(200))
	require.NoError(t, err)

	require.NotNil(t, s.State.Pending)
	assert.False(t, s.Terminal())
	assert.Greater(t, s.State.Clock, 0.0)
	assert.Equal(t, math.Mod(s.State.Clock, 24), obs.HourOfDay)
	assert.Equal(t, s.State.Pending.DataSize, obs.DataSize)
	low, high := s.Config.DataSizeRange()
	assert.GreaterOrEqual(t, obs.DataSize, low)
	assert.LessOrEqual(t, obs.DataSize, high)
	assert.Equal(t, []int{0, 0, 0}, obs.RunningCount)
	assert.Equal(t, EnergyRate(0.5, 200), s.State.EnergyRate)
	assert.Len(t, s.State.Days, 2)
}

func TestSimulator_RandomRuns_HoldEnergyAndCapacityBounds(t *testing.T) {
	// GIVEN a small battery and a weak panel so that both the cap and the
	// low-power region are reached
	cfg := DefaultEnvConfig()
	cfg.CoreCount = 4
	cfg.BatteryCapacity = 20000
	cfg.PanelSize = 0.01
	irr := make([]float64, 72)
	for h := range irr {
		irr[h] = float64((h % 24) * 40)
	}

	for seed := uint64(1); seed <= 3; seed++ {
		s, err := NewSimulator(cfg)
		require.NoError(t, err)
		r := rand.New(rand.NewPCG(seed, seed))
		_, err = s.Reset(ResetOptions{Training: true, Window: Window{StartHour: 0, EndHour: 72}, Irradiance: irr})
		require.NoError(t, err)

		for !s.Terminal() {
			possible := s.PossibleActions()
			_, _, _, err := s.Step(possible[r.IntN(len(possible))])
			require.NoError(t, err)

			st := s.State
			require.GreaterOrEqual(t, st.Battery, 0.0)
			require.LessOrEqual(t, st.Battery, cfg.BatteryCapacity)
			require.GreaterOrEqual(t, st.Reservation, 0.0)
			require.LessOrEqual(t, st.Running(), cfg.CoreCount)
			require.Equal(t, st.Running(), st.BusyCores())
			if !s.Terminal() {
				require.Equal(t, EnergyRate(cfg.PanelSize, irr[int(st.Clock)]), st.EnergyRate)
			}
		}
	}
}

func TestSimulator_EvaluationResets_AreDeterministic(t *testing.T) {
	// GIVEN two simulators with the same configuration
	a, err := NewSimulator(DefaultEnvConfig())
	require.NoError(t, err)
	b, err := NewSimulator(DefaultEnvConfig())
	require.NoError(t, err)

	// WHEN each runs an evaluation episode with the same decisions
	ra, err := RunEpisode(a, fastestTier, twoDayOptions(150))
	require.NoError(t, err)
	rb, err := RunEpisode(b, fastestTier, twoDayOptions(150))
	require.NoError(t, err)

	// THEN the trajectories are identical
	assert.Equal(t, ra, rb)
	assert.Equal(t, a.State, b.State)

	// AND a second evaluation reset on the same simulator repeats it
	ra2, err := RunEpisode(a, fastestTier, twoDayOptions(150))
	require.NoError(t, err)
	assert.Equal(t, ra, ra2)
}

func TestSimulator_TrainingResets_ContinueTheStream(t *testing.T) {
	s, err := NewSimulator(DefaultEnvConfig())
	require.NoError(t, err)
	opts := twoDayOptions(150)
	opts.Training = true

	first, err := RunEpisode(s, fastestTier, opts)
	require.NoError(t, err)
	second, err := RunEpisode(s, fastestTier, opts)
	require.NoError(t, err)
	assert.NotEqual(t, first.Stats, second.Stats)
}

func TestRunEpisode_EveryRejectionHasExactlyOneCause(t *testing.T) {
	cfg := DefaultEnvConfig()
	cfg.CoreCount = 2
	cfg.PanelSize = 0.05

	for _, p := range []Policy{fastestTier, rejectEverything} {
		s, err := NewSimulator(cfg)
		require.NoError(t, err)
		res, err := RunEpisode(s, p, twoDayOptions(300))
		require.NoError(t, err)

		totals := res.Stats.Totals()
		rejected := totals.RejectLowPower + totals.RejectHighLatency + totals.RejectConservation
		assert.Equal(t, res.Decisions, totals.TotalRequests)
		assert.Equal(t, totals.TotalRequests, rejected+res.Accepted)
		assert.Equal(t, res.Accepted, res.Stats.Accepted())
	}
}

func TestRunEpisode_RejectEverything_EarnsNothing(t *testing.T) {
	s, err := NewSimulator(DefaultEnvConfig())
	require.NoError(t, err)
	res, err := RunEpisode(s, rejectEverything, twoDayOptions(200))
	require.NoError(t, err)

	assert.Zero(t, res.Accepted)
	assert.Zero(t, res.MeanDailyReward)
	assert.Zero(t, res.Stats.Totals().RejectHighLatency)
	assert.Greater(t, res.Decisions, 0)
	testutil.AssertFloat64Equal(t, "requests per day", 100*24, float64(res.Decisions)/2, 0.15)
}

func TestSimulator_ObserversAndTraceSeeEveryStep(t *testing.T) {
	s, err := NewSimulator(DefaultEnvConfig())
	require.NoError(t, err)
	obs := &recordingObserver{}
	s.AddObserver(obs)
	s.Trace = trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions})

	res, err := RunEpisode(s, fastestTier, twoDayOptions(200))
	require.NoError(t, err)

	require.Len(t, obs.outcomes, res.Decisions)
	require.Len(t, s.Trace.Decisions, res.Decisions)
	assert.True(t, obs.outcomes[len(obs.outcomes)-1].Terminal)
	for i, o := range obs.outcomes {
		rec := s.Trace.Decisions[i]
		assert.Equal(t, o.DecisionClock, rec.Clock)
		assert.Equal(t, o.Action, rec.Action)
		assert.Equal(t, o.Cause.String(), rec.Cause)
		if o.Action == ActionReject {
			assert.NotEqual(t, CauseNone, o.Cause)
			assert.Zero(t, o.Reward)
		} else {
			assert.Equal(t, s.Config.Frequencies[o.Action-1], o.Frequency)
		}
	}
}
