package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Policy chooses an action at a decision point. possible is the ascending
// set of admissible actions; implementations must return one of them.
type Policy interface {
	Act(obs Observation, possible []int) int
}

// EpisodeResult summarizes one reset-to-terminal run.
type EpisodeResult struct {
	Decisions       int
	Accepted        int
	MeanDailyReward float64
	Stats           DailyStats
}

// RunEpisode resets sim with opts and steps it with p until the window ends.
func RunEpisode(sim *Simulator, p Policy, opts ResetOptions) (EpisodeResult, error) {
	obs, err := sim.Reset(opts)
	if err != nil {
		return EpisodeResult{}, err
	}
	var res EpisodeResult
	for !sim.Terminal() {
		action := p.Act(obs, sim.Config.PossibleActions(obs))
		if action != ActionReject {
			res.Accepted++
		}
		var terminal bool
		obs, _, terminal, err = sim.Step(action)
		if err != nil {
			return res, fmt.Errorf("decision %d at %.6fh: %w", res.Decisions, sim.State.Clock, err)
		}
		res.Decisions++
		if terminal {
			break
		}
	}
	res.Stats = sim.DailyStats()
	res.MeanDailyReward = res.Stats.MeanDailyReward()
	logrus.Infof("episode finished: %d decisions, %d accepted, mean daily reward %.4f",
		res.Decisions, res.Accepted, res.MeanDailyReward)
	return res, nil
}
