package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigmoid(t *testing.T) {
	assert.Equal(t, 0.5, Sigmoid(0))
	for x := -30.0; x <= 30; x += 0.25 {
		s := Sigmoid(x)
		require.Greater(t, s, 0.0, "x=%v", x)
		require.Less(t, s, 1.0, "x=%v", x)
	}
	assert.InDelta(t, 0.25, SigmoidDerivative(0), 1e-15)
	assert.InDelta(t, SigmoidDerivative(2), SigmoidDerivative(-2), 1e-15)
}
