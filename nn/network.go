// Package nn implements a feedforward network of fully-connected sigmoid
// layers trained by mini-batch gradient descent.
package nn

import (
	"runtime"

	"sigmanet/parallel"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// DataPoint is one training or evaluation sample.
type DataPoint struct {
	Inputs          []float64
	ExpectedOutputs []float64
}

// Network chains layers so that each layer's outputs feed the next one.
type Network struct {
	layers []*Layer
}

// NewNetwork builds len(widths)-1 layers, layer k mapping widths[k] nodes
// onto widths[k+1].
func NewNetwork(widths []int, opts ...Option) (*Network, error) {
	if len(widths) < 2 {
		return nil, errors.Wrapf(ErrTooFewLayers, "got %d", len(widths))
	}
	o := buildOptions(opts)

	layers := make([]*Layer, len(widths)-1)
	for k := range layers {
		l, err := newLayer(widths[k], widths[k+1], o)
		if err != nil {
			return nil, errors.Wrapf(err, "layer %d", k)
		}
		layers[k] = l
	}
	return &Network{layers: layers}, nil
}

// Layers returns the layers from input to output.
func (n *Network) Layers() []*Layer {
	return n.layers
}

// Architecture returns the node count of every layer boundary.
func (n *Network) Architecture() []int {
	widths := make([]int, 0, len(n.layers)+1)
	widths = append(widths, n.layers[0].in)
	for _, l := range n.layers {
		widths = append(widths, l.out)
	}
	return widths
}

func (n *Network) lastIndex() int {
	return len(n.layers) - 1
}

// Forward runs inputs through every layer and returns the final activations.
func (n *Network) Forward(inputs []float64) ([]float64, error) {
	recs, err := n.forward(inputs)
	if err != nil {
		return nil, err
	}
	return recs[n.lastIndex()].Activations, nil
}

func (n *Network) forward(inputs []float64) ([]*Record, error) {
	recs := make([]*Record, len(n.layers))
	for k, l := range n.layers {
		rec, err := l.Forward(inputs)
		if err != nil {
			return nil, errors.Wrapf(err, "layer %d", k)
		}
		recs[k] = rec
		inputs = rec.Activations
	}
	return recs, nil
}

// Classify returns the index of the largest output. Ties go to the lowest index.
func (n *Network) Classify(inputs []float64) (int, error) {
	outputs, err := n.Forward(inputs)
	if err != nil {
		return 0, err
	}
	return floats.MaxIdx(outputs), nil
}

// Cost is the summed squared error of the network on p.
func (n *Network) Cost(p DataPoint) (float64, error) {
	outputs, err := n.Forward(p.Inputs)
	if err != nil {
		return 0, err
	}
	if len(p.ExpectedOutputs) != len(outputs) {
		return 0, shapeError("expected outputs", len(p.ExpectedOutputs), len(outputs))
	}
	return LayerCost(outputs, p.ExpectedOutputs), nil
}

// BatchCost is the mean Cost over points.
func (n *Network) BatchCost(points []DataPoint) (float64, error) {
	if len(points) == 0 {
		return 0, ErrEmptyBatch
	}
	total := 0.0
	for i, p := range points {
		c, err := n.Cost(p)
		if err != nil {
			return 0, errors.Wrapf(err, "data point %d", i)
		}
		total += c
	}
	return total / float64(len(points)), nil
}

// Train runs one gradient descent step over batch. Gradients of every point
// are summed, applied with learnRate/len(batch), then cleared.
func (n *Network) Train(batch []DataPoint, learnRate float64) error {
	if len(batch) == 0 {
		return ErrEmptyBatch
	}

	sink := n.accumulators()
	for i, p := range batch {
		if err := n.backpropagate(p, sink); err != nil {
			n.clearGradients()
			return errors.Wrapf(err, "data point %d", i)
		}
	}

	n.applyGradients(learnRate / float64(len(batch)))
	return nil
}

// TrainConcurrent is Train with the batch split across workers. Every worker
// sums into its own gradient shard; shards are merged once all workers are
// done. Results match Train up to floating point summation order.
// workers < 1 means one per CPU.
func (n *Network) TrainConcurrent(batch []DataPoint, learnRate float64, workers int) error {
	if len(batch) == 0 {
		return ErrEmptyBatch
	}
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(batch))
	chunk := (len(batch) + workers - 1) / workers
	workers = (len(batch) + chunk - 1) / chunk

	shards := make([][]*Gradients, workers)
	errs := make([]error, workers)
	parallel.For(workers, func(w int) {
		shards[w] = n.newShard()
		end := min((w+1)*chunk, len(batch))
		for i := w * chunk; i < end; i++ {
			if err := n.backpropagate(batch[i], shards[w]); err != nil {
				errs[w] = errors.Wrapf(err, "data point %d", i)
				return
			}
		}
	}, parallel.Each(workers))

	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	for _, shard := range shards {
		for k, g := range shard {
			n.layers[k].grads.Add(g)
		}
	}
	n.applyGradients(learnRate / float64(len(batch)))
	return nil
}

// UpdateAllGradients backpropagates one sample, adding its gradients to
// every layer's accumulators.
func (n *Network) UpdateAllGradients(p DataPoint) error {
	return n.backpropagate(p, n.accumulators())
}

// backpropagate adds the gradients of p into sink, one entry per layer.
// Layers are walked from the output back, each hidden layer reading the
// weights and node values of the layer after it.
func (n *Network) backpropagate(p DataPoint, sink []*Gradients) error {
	recs, err := n.forward(p.Inputs)
	if err != nil {
		return err
	}

	last := n.lastIndex()
	out := n.layers[last]
	nodeValues, err := out.OutputNodeValues(recs[last], p.ExpectedOutputs)
	if err != nil {
		return errors.Wrapf(err, "layer %d", last)
	}
	if err := out.accumulate(sink[last], recs[last], nodeValues); err != nil {
		return errors.Wrapf(err, "layer %d", last)
	}

	for k := last - 1; k >= 0; k-- {
		l := n.layers[k]
		nodeValues, err = l.HiddenNodeValues(recs[k], n.layers[k+1], nodeValues)
		if err != nil {
			return errors.Wrapf(err, "layer %d", k)
		}
		if err := l.accumulate(sink[k], recs[k], nodeValues); err != nil {
			return errors.Wrapf(err, "layer %d", k)
		}
	}
	return nil
}

// LearnSlow was a finite-difference trainer. It is kept only so callers get
// an explicit error instead of a silent fallback.
func (n *Network) LearnSlow(points []DataPoint, learnRate float64) error {
	return ErrSlowTrainerUnsupported
}

func (n *Network) accumulators() []*Gradients {
	sink := make([]*Gradients, len(n.layers))
	for k, l := range n.layers {
		sink[k] = l.grads
	}
	return sink
}

func (n *Network) newShard() []*Gradients {
	shard := make([]*Gradients, len(n.layers))
	for k, l := range n.layers {
		shard[k] = newGradients(l.in, l.out)
	}
	return shard
}

// applyGradients updates and then clears every layer. Layers are independent
// here and are handled in parallel.
func (n *Network) applyGradients(rate float64) {
	parallel.For(len(n.layers), func(k int) {
		n.layers[k].ApplyGradients(rate)
		n.layers[k].ClearGradients()
	}, parallel.Each(len(n.layers)))
}

func (n *Network) clearGradients() {
	for _, l := range n.layers {
		l.ClearGradients()
	}
}
