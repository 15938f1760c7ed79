package metrics

import "math"

// DemandTerm is one physical connection of a back-calculated entity,
// aligned by timestep.
type DemandTerm struct {
	Delivery []float64
	Shortage []float64
	Fraction []float64 // allocation fraction, 0..1
}

// backCalculateStep returns (delivery + shortage) / fraction.
// ok is false when the fraction is 0 or any input is missing.
func backCalculateStep(delivery, shortage, fraction float64) (float64, bool) {
	if math.IsNaN(delivery) || math.IsNaN(shortage) || math.IsNaN(fraction) {
		return 0, false
	}
	if fraction == 0 {
		return 0, false
	}
	return (delivery + shortage) / fraction, true
}

// BackCalculateDemand computes implied demand per timestep as
// Σ (delivery_i + shortage_i) / fraction_i over all terms. A timestep where
// any term is undefined is reported as NaN so downstream reducers drop it;
// infinities never escape.
func BackCalculateDemand(terms []DemandTerm) []float64 {
	if len(terms) == 0 {
		return nil
	}

	n := len(terms[0].Delivery)
	for _, term := range terms {
		n = minLen(n, len(term.Delivery), len(term.Shortage), len(term.Fraction))
	}

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		total := 0.0
		defined := true
		for _, term := range terms {
			d, ok := backCalculateStep(term.Delivery[i], term.Shortage[i], term.Fraction[i])
			if !ok {
				defined = false
				break
			}
			total += d
		}
		if !defined || math.IsInf(total, 0) {
			out[i] = math.NaN()
			continue
		}
		out[i] = total
	}
	return out
}

func minLen(n int, others ...int) int {
	for _, o := range others {
		if o < n {
			n = o
		}
	}
	return n
}
