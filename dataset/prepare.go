package dataset

import (
	"math"

	"sigmanet/nn"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
)

// Batches splits points into consecutive batches of batchSize; the last one
// may be shorter. The batches share the backing array of points.
func Batches(points []nn.DataPoint, batchSize int) [][]nn.DataPoint {
	if batchSize < 1 || len(points) == 0 {
		return nil
	}
	numBatches := (len(points) + batchSize - 1) / batchSize
	batches := make([][]nn.DataPoint, numBatches)

	for i := range batches {
		start := i * batchSize
		end := min(start+batchSize, len(points))
		batches[i] = points[start:end]
	}
	return batches
}

// Shuffle permutes points in place.
func Shuffle(points []nn.DataPoint, src rand.Source) {
	rand.New(src).Shuffle(len(points), func(i, j int) {
		points[i], points[j] = points[j], points[i]
	})
}

// Stats returns the per-input mean and sample standard deviation. Every
// point must have as many inputs as the first one.
func Stats(points []nn.DataPoint) (mean, std []float64, err error) {
	if len(points) == 0 {
		return nil, nil, nil
	}
	width := len(points[0].Inputs)
	for n, p := range points {
		if len(p.Inputs) != width {
			return nil, nil, errors.Wrapf(nn.ErrShapeMismatch, "data point %d: %d inputs, want %d", n, len(p.Inputs), width)
		}
	}
	mean = make([]float64, width)
	std = make([]float64, width)

	column := make([]float64, len(points))
	for i := 0; i < width; i++ {
		for n, p := range points {
			column[n] = p.Inputs[i]
		}
		mean[i], std[i] = stat.MeanStdDev(column, nil)
	}
	return mean, std, nil
}

// Normalize returns copies of points with every input shifted by mean and
// scaled by std. Inputs with no usable spread are only shifted.
func Normalize(points []nn.DataPoint, mean, std []float64) ([]nn.DataPoint, error) {
	normalized := make([]nn.DataPoint, len(points))
	for n, p := range points {
		inputs, err := Standardize(p.Inputs, mean, std)
		if err != nil {
			return nil, errors.Wrapf(err, "data point %d", n)
		}
		normalized[n] = nn.DataPoint{
			Inputs:          inputs,
			ExpectedOutputs: p.ExpectedOutputs,
		}
	}
	return normalized, nil
}

// Standardize returns (x - mean) / std for one input vector.
func Standardize(x, mean, std []float64) ([]float64, error) {
	if len(mean) != len(x) || len(std) != len(x) {
		return nil, errors.Wrapf(nn.ErrShapeMismatch, "%d inputs, stats for %d/%d", len(x), len(mean), len(std))
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v - mean[i]
		if s := std[i]; s > 0 && !math.IsInf(s, 0) {
			out[i] /= s
		}
	}
	return out, nil
}

// XOR is the four-point exclusive-or problem as two classes: output 0 for
// equal inputs, output 1 for differing ones.
func XOR() []nn.DataPoint {
	return []nn.DataPoint{
		{Inputs: []float64{0, 0}, ExpectedOutputs: []float64{1, 0}},
		{Inputs: []float64{0, 1}, ExpectedOutputs: []float64{0, 1}},
		{Inputs: []float64{1, 0}, ExpectedOutputs: []float64{0, 1}},
		{Inputs: []float64{1, 1}, ExpectedOutputs: []float64{1, 0}},
	}
}
