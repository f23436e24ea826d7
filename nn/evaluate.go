package nn

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Accuracy counts the points whose classification matches the index of
// their largest expected output.
func (n *Network) Accuracy(points []DataPoint) (int, error) {
	correct := 0
	for i, p := range points {
		got, err := n.Classify(p.Inputs)
		if err != nil {
			return 0, errors.Wrapf(err, "data point %d", i)
		}
		if len(p.ExpectedOutputs) == 0 {
			return 0, errors.Wrapf(ErrShapeMismatch, "data point %d has no expected outputs", i)
		}
		if got == floats.MaxIdx(p.ExpectedOutputs) {
			correct++
		}
	}
	return correct, nil
}
