package suggest

import (
	"math"
	"slices"
)

const step = 500

// Fallback derives three amounts from the mean of the history: the mean
// rounded to the nearest 500 and the next two 500 steps. A base already in
// Previous moves up one step, and a triple identical to Previous shifts by
// 250 so the user never sees the same set twice.
//
//	history [480 510 495] -> [500 1000 1500]
func Fallback(req Request) []float64 {
	base := math.Round(mean(req.History)/step) * step
	if base <= 0 {
		base = step
	}
	if contains(req.Previous, base) {
		base += step
	}

	out := make([]float64, 0, 3)
	for _, v := range []float64{base, base + step, base + 2*step} {
		if v > 0 {
			out = append(out, v)
		}
	}
	if len(req.Previous) > 0 && SameSet(out, req.Previous) {
		for i := range out {
			out[i] += step / 2
		}
	}
	return out
}

// SameSet reports whether a and b hold the same values ignoring order.
func SameSet(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	as, bs := slices.Clone(a), slices.Clone(b)
	slices.Sort(as)
	slices.Sort(bs)
	return slices.Equal(as, bs)
}

// mean ignores non-finite values; no usable values gives 0.
func mean(xs []float64) float64 {
	var sum float64
	n := 0
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			continue
		}
		sum += x
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func contains(xs []float64, v float64) bool {
	return slices.Contains(xs, v)
}
