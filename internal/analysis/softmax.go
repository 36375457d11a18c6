package analysis

import "math"

// softmax maps raw classifier logits to a probability distribution:
// p_i = exp(s_i) / sum_j exp(s_j). The maximum logit is subtracted first
// for numeric stability; the result is unchanged.
func softmax(logits []float64) []float64 {
	if len(logits) == 0 {
		return nil
	}

	max := logits[0]
	for _, v := range logits[1:] {
		if v > max {
			max = v
		}
	}

	probs := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		probs[i] = math.Exp(v - max)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}

	return probs
}
