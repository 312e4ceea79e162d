package oracle

import (
	"sort"

	"github.com/shopspring/decimal"
)

// sample is one accepted rate and the stake behind it.
type sample struct {
	rate   decimal.Decimal
	weight uint64
}

var two = decimal.NewFromInt(2)

// weightedMedian returns the rate at which cumulative stake reaches half of the
// total. Landing exactly on the half averages the rate with the next one. With
// no stake at all every sample counts once.
func weightedMedian(samples []sample) decimal.Decimal {
	n := len(samples)
	if n == 0 {
		return decimal.Zero
	}
	if n == 1 {
		return samples[0].rate
	}

	sorted := make([]sample, n)
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].rate.LessThan(sorted[j].rate)
	})

	var total uint64
	for _, s := range sorted {
		total += s.weight
	}
	if total == 0 {
		for i := range sorted {
			sorted[i].weight = 1
		}
		total = uint64(n)
	}

	// Compare 2*cumulative against total to stay in integers.
	var cumulative uint64
	for i, s := range sorted {
		cumulative += s.weight
		if 2*cumulative >= total {
			if 2*cumulative == total && i+1 < n {
				return s.rate.Add(sorted[i+1].rate).Div(two)
			}
			return s.rate
		}
	}

	return sorted[n/2].rate
}
