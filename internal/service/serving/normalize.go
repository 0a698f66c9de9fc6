package serving

import (
	"math"

	"github.com/modelplane/modelplane/internal/domain"
)

// driftEpsilon is the threshold below which rounding drift is ignored.
// Downstream validation checks sums with an epsilon of 0.01, so any larger
// residue must be folded back in.
const driftEpsilon = 0.001

// Normalize redistributes weights so they sum to exactly targetTotal at
// two-decimal precision. Entries with negative or non-finite weights are
// dropped. When the remaining weights sum to zero the total is split evenly.
// Rounding drift is absorbed by the last entry in input order, which makes the
// result deterministic for a given ordering.
func Normalize(weights []domain.TrafficWeight, targetTotal float64) []domain.TrafficWeight {
	filtered := make([]domain.TrafficWeight, 0, len(weights))
	sum := 0.0
	for _, w := range weights {
		if w.Weight < 0 || math.IsNaN(w.Weight) || math.IsInf(w.Weight, 0) {
			continue
		}
		filtered = append(filtered, w)
		sum += w.Weight
	}
	if len(filtered) == 0 {
		return []domain.TrafficWeight{}
	}

	out := make([]domain.TrafficWeight, len(filtered))
	rounded := 0.0
	for i, w := range filtered {
		var share float64
		if sum <= 0 {
			share = round2(targetTotal / float64(len(filtered)))
		} else {
			share = round2(w.Weight / sum * targetTotal)
		}
		out[i] = domain.TrafficWeight{RevisionID: w.RevisionID, Weight: share}
		rounded += share
	}

	if diff := round2(targetTotal - rounded); math.Abs(diff) > driftEpsilon {
		last := len(out) - 1
		out[last].Weight = round2(out[last].Weight + diff)
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
