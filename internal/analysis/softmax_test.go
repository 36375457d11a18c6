package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSoftmaxSumsToOne(t *testing.T) {
	tests := []struct {
		name   string
		logits []float64
	}{
		{"typical", []float64{1.2, -0.3, 0.5}},
		{"all equal", []float64{2, 2, 2}},
		{"large values", []float64{1000, 999, 998}},
		{"large negatives", []float64{-1000, -1001, -1002}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probs := softmax(tt.logits)
			require.Len(t, probs, len(tt.logits))

			var sum float64
			for _, p := range probs {
				assert.GreaterOrEqual(t, p, 0.0)
				assert.False(t, math.IsNaN(p))
				sum += p
			}
			assert.InDelta(t, 1.0, sum, 1e-9)
		})
	}
}

func TestSoftmaxPreservesOrder(t *testing.T) {
	probs := softmax([]float64{-2, 3, 0.5})

	assert.Greater(t, probs[1], probs[2])
	assert.Greater(t, probs[2], probs[0])
}

func TestSoftmaxUniformOnEqualLogits(t *testing.T) {
	probs := softmax([]float64{5, 5, 5})

	for _, p := range probs {
		assert.InDelta(t, 1.0/3, p, 1e-9)
	}
}

func TestSoftmaxEmpty(t *testing.T) {
	assert.Nil(t, softmax(nil))
}
