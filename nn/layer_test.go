package nn

import (
	"math"
	"testing"

	"sigmanet/parallel"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// newTestLayer builds a 2->2 layer with weights [[1,2],[2,1]] and biases [1,2].
func newTestLayer(t *testing.T) *Layer {
	t.Helper()
	l, err := NewLayer(2, 2)
	require.NoError(t, err)
	require.NoError(t, l.SetParameters([]float64{1, 2, 2, 1}, []float64{1, 2}))
	return l
}

func TestLayer_ForwardKnownValues(t *testing.T) {
	l := newTestLayer(t)

	rec, err := l.Forward([]float64{2, 2})
	require.NoError(t, err)

	assert.Equal(t, []float64{7, 8}, rec.Weighted)
	assert.InDelta(t, 0.99909, rec.Activations[0], 1e-5)
	assert.InDelta(t, 0.99966, rec.Activations[1], 1e-5)
	assert.Equal(t, []float64{2, 2}, rec.Inputs)
}

func TestLayer_ForwardDeterministic(t *testing.T) {
	l, err := NewLayer(50, 200, WithSource(rand.NewSource(7)))
	require.NoError(t, err)

	x := make([]float64, 50)
	for i := range x {
		x[i] = math.Sin(float64(i))
	}

	first, err := l.Forward(x)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := l.Forward(x)
		require.NoError(t, err)
		require.Equal(t, first.Activations, again.Activations)
		require.Equal(t, first.Weighted, again.Weighted)
	}
}

func TestLayer_ForwardParallelMatchesSequential(t *testing.T) {
	par, err := NewLayer(30, 300, WithSource(rand.NewSource(3)), WithParallel(parallel.Config{Workers: 8, Grain: 1}))
	require.NoError(t, err)
	seq, err := NewLayer(30, 300, WithSource(rand.NewSource(3)), WithParallel(parallel.Sequential()))
	require.NoError(t, err)

	x := make([]float64, 30)
	for i := range x {
		x[i] = float64(i%7) - 3
	}
	a, err := par.Forward(x)
	require.NoError(t, err)
	b, err := seq.Forward(x)
	require.NoError(t, err)
	require.Equal(t, b.Activations, a.Activations)
}

func TestLayer_ForwardShapeMismatch(t *testing.T) {
	l := newTestLayer(t)
	_, err := l.Forward([]float64{1, 2, 3})
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestNewLayer_InvalidWidth(t *testing.T) {
	for _, dims := range [][2]int{{0, 3}, {3, 0}, {-1, 2}} {
		_, err := NewLayer(dims[0], dims[1])
		assert.ErrorIs(t, err, ErrInvalidWidth, "dims %v", dims)
	}
}

func TestNewLayer_Initialization(t *testing.T) {
	in, out := 16, 9
	l, err := NewLayer(in, out, WithSource(rand.NewSource(11)))
	require.NoError(t, err)

	assert.Equal(t, in, l.InputWidth())
	assert.Equal(t, out, l.OutputWidth())
	r, c := l.W.Dims()
	assert.Equal(t, in, r)
	assert.Equal(t, out, c)

	limit := 1 / math.Sqrt(float64(in))
	nonZero := 0
	for i := 0; i < in; i++ {
		for j := 0; j < out; j++ {
			w := l.W.At(i, j)
			require.LessOrEqual(t, math.Abs(w), limit)
			if w != 0 {
				nonZero++
			}
		}
	}
	assert.Greater(t, nonZero, 0)

	for j := 0; j < out; j++ {
		assert.Zero(t, l.B.AtVec(j))
	}

	gw, gb := l.Gradients()
	assert.True(t, mat.Equal(gw, mat.NewDense(in, out, nil)))
	assert.True(t, mat.Equal(gb, mat.NewVecDense(out, nil)))
}

func TestNewLayer_SeededInitIsReproducible(t *testing.T) {
	a, err := NewLayer(5, 4, WithSource(rand.NewSource(99)))
	require.NoError(t, err)
	b, err := NewLayer(5, 4, WithSource(rand.NewSource(99)))
	require.NoError(t, err)
	assert.True(t, mat.Equal(a.W, b.W))
}

func TestLayer_Parameters(t *testing.T) {
	l := newTestLayer(t)
	w, b := l.Parameters()
	assert.Equal(t, []float64{1, 2, 2, 1}, w)
	assert.Equal(t, []float64{1, 2}, b)

	// copies, not views
	w[0] = 100
	assert.Equal(t, 1.0, l.W.At(0, 0))

	require.ErrorIs(t, l.SetParameters([]float64{1}, []float64{1, 2}), ErrShapeMismatch)
	require.ErrorIs(t, l.SetParameters([]float64{1, 2, 3, 4}, []float64{1}), ErrShapeMismatch)
	assert.Equal(t, "Sigmoid_2_2", l.Tag())
}

func TestLayer_OutputNodeValues(t *testing.T) {
	l := newTestLayer(t)
	rec, err := l.Forward([]float64{2, 2})
	require.NoError(t, err)

	expected := []float64{0, 1}
	nv, err := l.OutputNodeValues(rec, expected)
	require.NoError(t, err)

	want := make([]float64, 2)
	for j := range want {
		s := Sigmoid(rec.Weighted[j])
		want[j] = s * (1 - s) * (2*s - expected[j])
	}
	if diff := cmp.Diff(want, nv, cmpopts.EquateApprox(0, 1e-15)); diff != "" {
		t.Errorf("node values mismatch (-want +got):\n%s", diff)
	}

	_, err = l.OutputNodeValues(rec, []float64{1})
	require.ErrorIs(t, err, ErrShapeMismatch)
	_, err = l.OutputNodeValues(nil, expected)
	require.Error(t, err)
}

func TestLayer_HiddenNodeValues(t *testing.T) {
	hidden, err := NewLayer(2, 3)
	require.NoError(t, err)
	require.NoError(t, hidden.SetParameters([]float64{0.1, -0.2, 0.3, 0.4, 0.5, -0.6}, []float64{0.1, 0, -0.1}))
	next, err := NewLayer(3, 2)
	require.NoError(t, err)
	require.NoError(t, next.SetParameters([]float64{1, -1, 0.5, 2, -0.25, 0.75}, []float64{0, 0}))

	rec, err := hidden.Forward([]float64{1, -2})
	require.NoError(t, err)

	nextValues := []float64{0.3, -0.7}
	nv, err := hidden.HiddenNodeValues(rec, next, nextValues)
	require.NoError(t, err)

	for k := 0; k < 3; k++ {
		sum := 0.0
		for j := 0; j < 2; j++ {
			sum += next.W.At(k, j) * nextValues[j]
		}
		assert.InDelta(t, sum*SigmoidDerivative(rec.Weighted[k]), nv[k], 1e-15, "node %d", k)
	}

	_, err = hidden.HiddenNodeValues(rec, next, []float64{1})
	require.ErrorIs(t, err, ErrShapeMismatch)
	_, err = hidden.HiddenNodeValues(rec, hidden, []float64{1, 2, 3})
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestLayer_UpdateApplyClearGradients(t *testing.T) {
	l := newTestLayer(t)
	rec, err := l.Forward([]float64{2, 3})
	require.NoError(t, err)

	nv := []float64{0.5, -1}
	require.NoError(t, l.UpdateGradients(rec, nv))
	require.NoError(t, l.UpdateGradients(rec, nv))

	gw, gb := l.Gradients()
	for i, x := range []float64{2, 3} {
		for j, v := range nv {
			assert.InDelta(t, 2*x*v, gw.At(i, j), 1e-15)
		}
	}
	assert.Equal(t, 1.0, gb.AtVec(0))
	assert.Equal(t, -2.0, gb.AtVec(1))

	l.ApplyGradients(0.1)
	w, b := l.Parameters()
	assert.InDeltaSlice(t, []float64{1 - 0.1*2, 2 + 0.1*4, 2 - 0.1*3, 1 + 0.1*6}, w, 1e-12)
	assert.InDeltaSlice(t, []float64{1 - 0.1, 2 + 0.2}, b, 1e-12)

	l.ClearGradients()
	gw, gb = l.Gradients()
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			assert.Zero(t, gw.At(i, j))
		}
		assert.Zero(t, gb.AtVec(i))
	}

	require.ErrorIs(t, l.UpdateGradients(rec, []float64{1}), ErrShapeMismatch)
}
