// Package statistics summarizes per-model score samples.
package statistics

import (
	"math"
	"math/rand/v2"
	"slices"
)

// ConfidenceInterval is a bootstrap percentile interval around a sample mean.
type ConfidenceInterval struct {
	Lower           float64 `json:"lower"`
	Upper           float64 `json:"upper"`
	Mean            float64 `json:"mean"`
	ConfidenceLevel float64 `json:"confidence_level"`
	NumBootstraps   int     `json:"num_bootstraps"`
	N               int     `json:"n"`
}

// DefaultBootstrapIterations is the number of bootstrap resamples.
const DefaultBootstrapIterations = 10000

// BootstrapCI computes a percentile bootstrap interval for the mean of
// samples. With fewer than two samples the interval collapses to the mean.
func BootstrapCI(samples []float64, confidenceLevel float64) ConfidenceInterval {
	return BootstrapCIWithSeed(samples, confidenceLevel, rand.Uint64()) // #nosec G404
}

// BootstrapCIWithSeed is BootstrapCI with a fixed seed.
func BootstrapCIWithSeed(samples []float64, confidenceLevel float64, seed uint64) ConfidenceInterval {
	n := len(samples)
	m := Mean(samples)
	if n < 2 {
		return ConfidenceInterval{Lower: m, Upper: m, Mean: m, ConfidenceLevel: confidenceLevel, N: n}
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) // #nosec G404
	iters := DefaultBootstrapIterations

	means := make([]float64, iters)
	for i := range means {
		sum := 0.0
		for range n {
			sum += samples[rng.IntN(n)]
		}
		means[i] = sum / float64(n)
	}
	slices.Sort(means)

	alpha := 1.0 - confidenceLevel
	lo := int(math.Floor(alpha / 2.0 * float64(iters)))
	hi := min(int(math.Floor((1.0-alpha/2.0)*float64(iters))), iters-1)

	return ConfidenceInterval{
		Lower:           means[lo],
		Upper:           means[hi],
		Mean:            m,
		ConfidenceLevel: confidenceLevel,
		NumBootstraps:   iters,
		N:               n,
	}
}

// Mean returns the arithmetic mean of values, or 0 for none.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
