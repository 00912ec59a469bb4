package indicator

import "math"

// CrossAbove reports whether a moved above b on the last point:
// a <= b on the previous point and a > b now.
func CrossAbove(a, b []float64) bool {
	prevA, prevB, curA, curB, ok := lastTwo(a, b)
	if !ok {
		return false
	}

	return prevA <= prevB && curA > curB
}

// CrossBelow reports whether a moved below b on the last point.
func CrossBelow(a, b []float64) bool {
	prevA, prevB, curA, curB, ok := lastTwo(a, b)
	if !ok {
		return false
	}

	return prevA >= prevB && curA < curB
}

func lastTwo(a, b []float64) (prevA, prevB, curA, curB float64, ok bool) {
	if len(a) < 2 || len(b) < 2 {
		return 0, 0, 0, 0, false
	}

	prevA, curA = a[len(a)-2], a[len(a)-1]
	prevB, curB = b[len(b)-2], b[len(b)-1]

	for _, v := range []float64{prevA, prevB, curA, curB} {
		if math.IsNaN(v) {
			return 0, 0, 0, 0, false
		}
	}

	return prevA, prevB, curA, curB, true
}
