package utils

import (
	"encoding/json"
	"os"

	"sigmanet/dataset"
	"sigmanet/nn"

	"github.com/pkg/errors"
)

// WeightsVersion is written into every weights file.
const WeightsVersion = "1.0"

// WeightData represents serializable weight data for a layer
type WeightData struct {
	Name  string    `json:"name"`
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// LayerWeight contains weights and bias for a layer
type LayerWeight struct {
	Weight *WeightData `json:"weight"`
	Bias   *WeightData `json:"bias"`
}

// ModelWeights represents all parameters of a network, layers ordered from
// input to output. Mean and Std are set when the network was trained on
// standardised inputs and must be applied to every input before Forward.
type ModelWeights struct {
	Version      string        `json:"version"`
	Architecture []int         `json:"architecture"`
	Layers       []LayerWeight `json:"layers"`
	Mean         []float64     `json:"mean,omitempty"`
	Std          []float64     `json:"std,omitempty"`
}

// FromNetwork copies the parameters of net.
func FromNetwork(net *nn.Network) *ModelWeights {
	mw := &ModelWeights{
		Version:      WeightsVersion,
		Architecture: net.Architecture(),
		Layers:       make([]LayerWeight, 0, len(net.Layers())),
	}
	for _, l := range net.Layers() {
		w, b := l.Parameters()
		mw.Layers = append(mw.Layers, LayerWeight{
			Weight: &WeightData{Name: l.Tag() + "_weight", Shape: []int{l.InputWidth(), l.OutputWidth()}, Data: w},
			Bias:   &WeightData{Name: l.Tag() + "_bias", Shape: []int{l.OutputWidth()}, Data: b},
		})
	}
	return mw
}

// Network rebuilds a network holding these parameters.
func (mw *ModelWeights) Network(opts ...nn.Option) (*nn.Network, error) {
	net, err := nn.NewNetwork(mw.Architecture, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "building network")
	}
	if mw.Standardized() && (len(mw.Mean) != mw.Architecture[0] || len(mw.Std) != mw.Architecture[0]) {
		return nil, errors.Errorf("input stats hold %d/%d values, architecture %v needs %d",
			len(mw.Mean), len(mw.Std), mw.Architecture, mw.Architecture[0])
	}
	layers := net.Layers()
	if len(mw.Layers) != len(layers) {
		return nil, errors.Errorf("weights hold %d layers, architecture %v needs %d", len(mw.Layers), mw.Architecture, len(layers))
	}
	for i, lw := range mw.Layers {
		if lw.Weight == nil || lw.Bias == nil {
			return nil, errors.Errorf("layer %d: missing weight or bias", i)
		}
		if err := layers[i].SetParameters(lw.Weight.Data, lw.Bias.Data); err != nil {
			return nil, errors.Wrapf(err, "layer %d", i)
		}
	}
	return net, nil
}

// Standardized reports whether inputs must be standardised before Forward.
func (mw *ModelWeights) Standardized() bool {
	return mw.Mean != nil || mw.Std != nil
}

// PrepareInputs applies the stored standardisation to one input vector.
func (mw *ModelWeights) PrepareInputs(inputs []float64) ([]float64, error) {
	if !mw.Standardized() {
		return inputs, nil
	}
	return dataset.Standardize(inputs, mw.Mean, mw.Std)
}

// PreparePoints applies the stored standardisation to the inputs of points.
func (mw *ModelWeights) PreparePoints(points []nn.DataPoint) ([]nn.DataPoint, error) {
	if !mw.Standardized() {
		return points, nil
	}
	return dataset.Normalize(points, mw.Mean, mw.Std)
}

// SaveWeights saves model weights to a JSON file
func SaveWeights(filepath string, weights *ModelWeights) error {
	data, err := json.MarshalIndent(weights, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal weights")
	}
	return os.WriteFile(filepath, data, 0644)
}

// LoadWeights loads model weights from a JSON file
func LoadWeights(filepath string) (*ModelWeights, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read weights file")
	}
	var weights ModelWeights
	if err := json.Unmarshal(data, &weights); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal weights")
	}
	return &weights, nil
}
