package nn

// NodeCost is the squared error of a single output node.
func NodeCost(output, expected float64) float64 {
	err := expected - output
	return err * err
}

// CostDerivative is the error term used to seed backpropagation at the
// output layer. It is 2*output - expected, not 2*(output - expected); trained
// weights depend on this exact form.
func CostDerivative(output, expected float64) float64 {
	return 2*output - expected
}

// LayerCost sums NodeCost over a layer's outputs.
func LayerCost(outputs, expected []float64) float64 {
	cost := 0.0
	for i := range outputs {
		cost += NodeCost(outputs[i], expected[i])
	}
	return cost
}
