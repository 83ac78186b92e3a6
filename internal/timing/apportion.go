package timing

import (
	"math/bits"
	"slices"
	"time"
)

// Apportion splits total into len(weights) parts proportional to weights
// using the largest-remainder method. The parts sum to total exactly. Zero
// total weight splits evenly. Negative weights count as zero.
func Apportion(total time.Duration, weights []int64) []time.Duration {
	n := len(weights)
	if n == 0 {
		return nil
	}
	if total <= 0 {
		return make([]time.Duration, n)
	}
	w := make([]uint64, n)
	var sum uint64
	for i, v := range weights {
		if v > 0 {
			w[i] = uint64(v)
			sum += w[i]
		}
	}
	if sum == 0 {
		for i := range w {
			w[i] = 1
		}
		sum = uint64(n)
	}

	parts := make([]time.Duration, n)
	remainders := make([]uint64, n)
	var assigned uint64
	for i := range w {
		// total*w[i] can exceed 64 bits; w[i] <= sum keeps the quotient in range.
		hi, lo := bits.Mul64(uint64(total), w[i])
		q, r := bits.Div64(hi, lo, sum)
		parts[i] = time.Duration(q)
		remainders[i] = r
		assigned += q
	}

	left := uint64(total) - assigned
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case remainders[a] > remainders[b]:
			return -1
		case remainders[a] < remainders[b]:
			return 1
		}
		return 0
	})
	for k := 0; left > 0; k = (k + 1) % n {
		parts[order[k]]++
		left--
	}
	return parts
}
