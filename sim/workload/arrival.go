package workload

import (
	"fmt"
	"math/rand/v2"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat/distuv"
)

// Arrival is a single generated compute request.
type Arrival struct {
	Time     float64 // simulated hours
	DataSize float64 // payload in bits
}

// ArrivalSampler generates inter-arrival gaps.
type ArrivalSampler interface {
	// SampleGap returns the next inter-arrival gap in hours.
	SampleGap() float64
}

// PoissonSampler draws exponentially-distributed gaps (CV=1).
type PoissonSampler struct {
	dist distuv.Exponential
}

// NewPoissonSampler creates a sampler for the given rate (requests per hour).
func NewPoissonSampler(ratePerHour float64, src rand.Source) *PoissonSampler {
	return &PoissonSampler{dist: distuv.Exponential{Rate: ratePerHour, Src: src}}
}

func (s *PoissonSampler) SampleGap() float64 {
	return s.dist.Rand()
}

// SizeSampler draws request payload sizes.
type SizeSampler interface {
	SampleSize() float64
}

// UniformSizeSampler draws payloads uniformly from [low, high].
type UniformSizeSampler struct {
	dist distuv.Uniform
}

// NewUniformSizeSampler creates a sampler over [low, high].
func NewUniformSizeSampler(low, high float64, src rand.Source) *UniformSizeSampler {
	return &UniformSizeSampler{dist: distuv.Uniform{Min: low, Max: high, Src: src}}
}

func (s *UniformSizeSampler) SampleSize() float64 {
	return s.dist.Rand()
}

// GenerateArrivals accumulates gaps from start until the running time meets
// or exceeds end. The arrival that crosses end is kept: it is the request the
// simulation pauses on when the window closes. Each payload is drawn
// independently of its arrival time.
func GenerateArrivals(start, end float64, gaps ArrivalSampler, sizes SizeSampler) ([]Arrival, error) {
	if gaps == nil || sizes == nil {
		return nil, fmt.Errorf("arrival and size samplers must not be nil")
	}
	if end <= start {
		return nil, fmt.Errorf("arrival window [%v, %v) is empty", start, end)
	}
	arrivals := make([]Arrival, 0)
	t := start
	for t < end {
		gap := gaps.SampleGap()
		if !(gap >= 0) {
			return nil, fmt.Errorf("sampler produced invalid gap %v", gap)
		}
		t += gap
		arrivals = append(arrivals, Arrival{Time: t, DataSize: sizes.SampleSize()})
	}
	logrus.Debugf("generated %d arrivals over [%v, %v)", len(arrivals), start, end)
	return arrivals, nil
}
