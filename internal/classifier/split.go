package classifier

import (
	"math"
	"math/rand/v2"
)

// Split shuffles samples with a fixed seed and holds out ceil(n*testSize) of
// them for evaluation. The same seed always yields the same partition. The
// training part keeps at least one sample whenever len(samples) >= 2.
func Split(samples []Sample, testSize float64, seed uint64) (train, test []Sample) {
	n := len(samples)
	if n == 0 {
		return nil, nil
	}

	nTest := int(math.Ceil(float64(n) * testSize))
	if nTest < 0 {
		nTest = 0
	}
	if nTest >= n {
		nTest = n - 1
	}

	perm := append([]Sample(nil), samples...)
	rng := rand.New(rand.NewPCG(seed, 0))
	rng.Shuffle(n, func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })

	return perm[nTest:], perm[:nTest]
}
