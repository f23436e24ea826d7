package nn

import (
	"fmt"
	"math"

	"sigmanet/parallel"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Layer is a fully-connected sigmoid layer.
//
// W has one row per input node and one column per output node, so W.At(i, j)
// is the contribution of input i to output j. B holds one bias per output node.
type Layer struct {
	W *mat.Dense
	B *mat.VecDense

	in, out int
	grads   *Gradients
	par     parallel.Config
}

// Gradients accumulates weight and bias gradients over a batch.
type Gradients struct {
	W *mat.Dense
	B *mat.VecDense
}

func newGradients(in, out int) *Gradients {
	return &Gradients{
		W: mat.NewDense(in, out, nil),
		B: mat.NewVecDense(out, nil),
	}
}

// Zero resets every entry to zero.
func (g *Gradients) Zero() {
	g.W.Zero()
	g.B.Zero()
}

// Add folds o into g.
func (g *Gradients) Add(o *Gradients) {
	g.W.Add(g.W, o.W)
	g.B.AddVec(g.B, o.B)
}

// Record is what one forward pass through a layer leaves behind for the
// backward pass over the same sample.
type Record struct {
	// Inputs is the slice passed to Forward. It must stay unmodified until
	// the backward pass is done with the record.
	Inputs      []float64
	Weighted    []float64
	Activations []float64
}

// NewLayer allocates a layer with fan-in scaled random weights and zero biases.
func NewLayer(inputWidth, outputWidth int, opts ...Option) (*Layer, error) {
	return newLayer(inputWidth, outputWidth, buildOptions(opts))
}

func newLayer(in, out int, o options) (*Layer, error) {
	if in < 1 || out < 1 {
		return nil, errors.Wrapf(ErrInvalidWidth, "layer %dx%d", in, out)
	}
	return &Layer{
		W:     mat.NewDense(in, out, randomWeights(in*out, in, o)),
		B:     mat.NewVecDense(out, nil),
		in:    in,
		out:   out,
		grads: newGradients(in, out),
		par:   o.par,
	}, nil
}

// randomWeights draws size values from U[-1, 1]/sqrt(fanIn).
func randomWeights(size, fanIn int, o options) []float64 {
	limit := 1 / math.Sqrt(float64(fanIn))
	dist := distuv.Uniform{
		Min: -limit,
		Max: limit,
		Src: o.src,
	}

	data := make([]float64, size)
	for i := range data {
		data[i] = dist.Rand()
	}
	return data
}

func (l *Layer) InputWidth() int  { return l.in }
func (l *Layer) OutputWidth() int { return l.out }

// Tag names the layer by kind and shape.
func (l *Layer) Tag() string {
	return fmt.Sprintf("Sigmoid_%d_%d", l.in, l.out)
}

// Gradients returns read-only views of the accumulated gradients.
func (l *Layer) Gradients() (mat.Matrix, mat.Vector) {
	return l.grads.W, l.grads.B
}

// Parameters returns copies of the weights (row-major, inputs by outputs)
// and biases.
func (l *Layer) Parameters() (weights, biases []float64) {
	weights = make([]float64, 0, l.in*l.out)
	for i := 0; i < l.in; i++ {
		weights = append(weights, l.W.RawRowView(i)...)
	}
	biases = make([]float64, l.out)
	copy(biases, l.B.RawVector().Data)
	return weights, biases
}

// SetParameters overwrites the weights (row-major, inputs by outputs) and biases.
func (l *Layer) SetParameters(weights, biases []float64) error {
	if len(weights) != l.in*l.out {
		return shapeError("weights", len(weights), l.in*l.out)
	}
	if len(biases) != l.out {
		return shapeError("biases", len(biases), l.out)
	}
	for i := 0; i < l.in; i++ {
		l.W.SetRow(i, weights[i*l.out:(i+1)*l.out])
	}
	for j, b := range biases {
		l.B.SetVec(j, b)
	}
	return nil
}

// Forward computes the activations of every output node for inputs.
// Output nodes are spread over workers, each worker writing only its own
// nodes; W and inputs are shared read-only.
func (l *Layer) Forward(inputs []float64) (*Record, error) {
	if len(inputs) != l.in {
		return nil, shapeError("inputs", len(inputs), l.in)
	}
	rec := &Record{
		Inputs:      inputs,
		Weighted:    make([]float64, l.out),
		Activations: make([]float64, l.out),
	}

	w := l.W.RawMatrix()
	parallel.For(l.out, func(j int) {
		sum := l.B.AtVec(j)
		for i, x := range inputs {
			sum += x * w.Data[i*w.Stride+j]
		}
		rec.Weighted[j] = sum
		rec.Activations[j] = Sigmoid(sum)
	}, l.par)

	return rec, nil
}

// OutputNodeValues computes the error signal of an output layer.
func (l *Layer) OutputNodeValues(rec *Record, expected []float64) ([]float64, error) {
	if err := l.checkRecord(rec); err != nil {
		return nil, err
	}
	if len(expected) != l.out {
		return nil, shapeError("expected outputs", len(expected), l.out)
	}

	nodeValues := make([]float64, l.out)
	for j := range nodeValues {
		nodeValues[j] = SigmoidDerivative(rec.Weighted[j]) * CostDerivative(rec.Activations[j], expected[j])
	}
	return nodeValues, nil
}

// HiddenNodeValues computes the error signal of a hidden layer from the
// layer after it: next.W times nextNodeValues, scaled by this layer's
// sigmoid slope. next is only read.
func (l *Layer) HiddenNodeValues(rec *Record, next *Layer, nextNodeValues []float64) ([]float64, error) {
	if err := l.checkRecord(rec); err != nil {
		return nil, err
	}
	if next.in != l.out {
		return nil, shapeError("next layer inputs", next.in, l.out)
	}
	if len(nextNodeValues) != next.out {
		return nil, shapeError("next node values", len(nextNodeValues), next.out)
	}

	var back mat.VecDense
	back.MulVec(next.W, mat.NewVecDense(next.out, nextNodeValues))

	nodeValues := make([]float64, l.out)
	for k := range nodeValues {
		nodeValues[k] = back.AtVec(k) * SigmoidDerivative(rec.Weighted[k])
	}
	return nodeValues, nil
}

// UpdateGradients adds the gradients of one sample to the layer's accumulators.
func (l *Layer) UpdateGradients(rec *Record, nodeValues []float64) error {
	return l.accumulate(l.grads, rec, nodeValues)
}

func (l *Layer) accumulate(g *Gradients, rec *Record, nodeValues []float64) error {
	if err := l.checkRecord(rec); err != nil {
		return err
	}
	if len(nodeValues) != l.out {
		return shapeError("node values", len(nodeValues), l.out)
	}

	nv := mat.NewVecDense(l.out, nodeValues)
	g.W.RankOne(g.W, 1, mat.NewVecDense(l.in, rec.Inputs), nv)
	g.B.AddVec(g.B, nv)
	return nil
}

// ApplyGradients steps the parameters against the accumulated gradients.
// The rate is used as given; callers average over the batch through it.
func (l *Layer) ApplyGradients(learnRate float64) {
	var step mat.Dense
	step.Scale(-learnRate, l.grads.W)
	l.W.Add(l.W, &step)
	l.B.AddScaledVec(l.B, -learnRate, l.grads.B)
}

// ClearGradients zeroes the accumulators.
func (l *Layer) ClearGradients() {
	l.grads.Zero()
}

func (l *Layer) checkRecord(rec *Record) error {
	if rec == nil {
		return errors.New("no forward record")
	}
	if len(rec.Inputs) != l.in {
		return shapeError("record inputs", len(rec.Inputs), l.in)
	}
	if len(rec.Weighted) != l.out || len(rec.Activations) != l.out {
		return shapeError("record outputs", len(rec.Weighted), l.out)
	}
	return nil
}
