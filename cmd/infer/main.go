// sigmanet-infer: inference using saved weights
//
// Usage:
//
//	sigmanet-infer --weights=weights.json --data=test.csv --labeled
//	sigmanet-infer --weights=weights.json --input="0.5 0.1"
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"sigmanet/dataset"
	"sigmanet/nn"
	"sigmanet/utils"

	"github.com/pkg/errors"
)

var (
	weightsFile = flag.String("weights", "", "Weights JSON file")
	dataFile    = flag.String("data", "", "CSV file to evaluate")
	labeled     = flag.Bool("labeled", false, "CSV rows are label,inputs...")
	inputVector = flag.String("input", "", "Single space-separated input vector")
	verbose     = flag.Bool("verbose", true, "Verbose output")
	topK        = flag.Int("topk", 3, "Top predictions to show")
)

func main() {
	flag.Parse()
	utils.Verbose = *verbose

	if *weightsFile == "" {
		fmt.Fprintln(os.Stderr, "Error: --weights is required")
		os.Exit(2)
	}

	weights, err := utils.LoadWeights(*weightsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading weights: %v\n", err)
		os.Exit(1)
	}
	net, err := weights.Network()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building network: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d layers %v\n", len(net.Layers()), net.Architecture())
	if weights.Standardized() {
		fmt.Println("Inputs are standardised with the stored mean/std")
	}

	switch {
	case *inputVector != "":
		err = predictOne(net, weights, *inputVector)
	case *dataFile != "":
		err = evaluate(net, weights, *dataFile)
	default:
		err = errors.New("one of --input or --data is required")
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func predictOne(net *nn.Network, weights *utils.ModelWeights, s string) error {
	fields := strings.Fields(s)
	inputs := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return errors.Wrapf(err, "input %d", i)
		}
		inputs[i] = v
	}
	inputs, err := weights.PrepareInputs(inputs)
	if err != nil {
		return err
	}

	start := time.Now()
	outputs, err := net.Forward(inputs)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	order := make([]int, len(outputs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return outputs[order[a]] > outputs[order[b]] })

	fmt.Printf("\nTop predictions (%.1fµs):\n", utils.DurationUS(elapsed))
	for rank, idx := range order {
		if rank >= *topK {
			break
		}
		fmt.Printf("  %d. class %d: %.6f\n", rank+1, idx, outputs[idx])
	}
	return nil
}

func evaluate(net *nn.Network, weights *utils.ModelWeights, path string) error {
	arch := net.Architecture()
	stats := &utils.TimingStats{}
	totalStart := time.Now()

	start := time.Now()
	points, err := dataset.ReadFile(path, arch[0], arch[len(arch)-1], *labeled)
	if err != nil {
		return err
	}
	if len(points) == 0 {
		return errors.Errorf("no samples in %s", path)
	}
	if points, err = weights.PreparePoints(points); err != nil {
		return err
	}
	stats.DataLoadingTime = time.Since(start)

	start = time.Now()
	cost, err := net.BatchCost(points)
	if err != nil {
		return err
	}
	correct, err := net.Accuracy(points)
	if err != nil {
		return err
	}
	stats.EvalTime = time.Since(start)
	stats.TotalTime = time.Since(totalStart)

	fmt.Printf("\nSamples:  %d\n", len(points))
	fmt.Printf("Cost:     %.6f\n", cost)
	fmt.Printf("Accuracy: %.2f%% (%d/%d)\n", 100*float64(correct)/float64(len(points)), correct, len(points))
	utils.PrintTimingStats(stats, 0)
	return nil
}
