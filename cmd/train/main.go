// sigmanet-train: mini-batch trainer for sigmoid networks
//
// Usage:
//
//	sigmanet-train --arch="2 4 2" --epochs=2000 --lr=1.0
//	sigmanet-train --config=train.yaml --output=weights.json
//
// Without --data the network learns XOR.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"sigmanet/dataset"
	"sigmanet/nn"
	"sigmanet/utils"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
)

var (
	configFile   = flag.String("config", "", "YAML config file; flags below override it")
	arch         = flag.String("arch", "", "Layer widths, e.g. \"784 128 10\"")
	dataFile     = flag.String("data", "", "CSV training data (default: XOR)")
	labeled      = flag.Bool("labeled", false, "CSV rows are label,inputs... instead of inputs...,outputs...")
	normalize    = flag.Bool("normalize", false, "Standardize inputs")
	epochs       = flag.Int("epochs", 0, "Number of training epochs")
	batchSize    = flag.Int("batch", 0, "Mini-batch size")
	learningRate = flag.Float64("lr", 0, "Learning rate")
	seed         = flag.Uint64("seed", 0, "Random seed")
	workers      = flag.Int("workers", 0, "Goroutines per batch (1 = sequential)")
	reportEvery  = flag.Int("report", 100, "Print the cost every n epochs")
	verbose      = flag.Bool("verbose", true, "Verbose output")
	outputFile   = flag.String("output", "", "Output weights file (JSON)")
)

func main() {
	flag.Parse()
	utils.Verbose = *verbose

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Configuration:\n")
	fmt.Printf("  Architecture:  %v\n", cfg.Architecture)
	fmt.Printf("  Epochs:        %d\n", cfg.Epochs)
	fmt.Printf("  Batch size:    %d\n", cfg.BatchSize)
	fmt.Printf("  Learning Rate: %.4f\n", cfg.LearningRate)
	fmt.Printf("  Workers:       %d\n", cfg.Workers)
	fmt.Println()

	stats := &utils.TimingStats{}
	totalStart := time.Now()

	start := time.Now()
	points, mean, std, err := loadData(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading data: %v\n", err)
		os.Exit(1)
	}
	stats.DataLoadingTime = time.Since(start)
	fmt.Printf("Loaded %d samples\n", len(points))

	start = time.Now()
	src := rand.NewSource(cfg.Seed)
	net, err := nn.NewNetwork(cfg.Architecture, nn.WithSource(src))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building network: %v\n", err)
		os.Exit(1)
	}
	stats.ModelInitTime = time.Since(start)

	fmt.Println("\nStarting training...")
	steps := 0
	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		dataset.Shuffle(points, src)

		start = time.Now()
		for _, batch := range dataset.Batches(points, cfg.BatchSize) {
			if err := trainStep(net, batch, cfg); err != nil {
				fmt.Fprintf(os.Stderr, "Error in epoch %d: %v\n", epoch, err)
				os.Exit(1)
			}
			steps++
		}
		stats.TrainTime += time.Since(start)

		if (*reportEvery > 0 && epoch%*reportEvery == 0) || epoch == cfg.Epochs {
			start = time.Now()
			cost, err := net.BatchCost(points)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error evaluating: %v\n", err)
				os.Exit(1)
			}
			stats.EvalTime += time.Since(start)
			fmt.Printf("Epoch %d/%d | Cost: %.6f\n", epoch, cfg.Epochs, cost)
		}
	}

	start = time.Now()
	correct, err := net.Accuracy(points)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error evaluating: %v\n", err)
		os.Exit(1)
	}
	stats.EvalTime += time.Since(start)
	stats.TotalTime = time.Since(totalStart)

	fmt.Printf("\nTraining complete! Accuracy: %.2f%% (%d/%d)\n",
		100*float64(correct)/float64(len(points)), correct, len(points))
	if steps > 0 {
		fmt.Printf("Average step: %.1fµs\n", utils.DurationUS(stats.TrainTime)/float64(steps))
	}
	utils.PrintTimingStats(stats, steps)

	if cfg.WeightsOut != "" {
		fmt.Printf("\nSaving weights to %s...\n", cfg.WeightsOut)
		weights := utils.FromNetwork(net)
		weights.Mean, weights.Std = mean, std
		if err := utils.SaveWeights(cfg.WeightsOut, weights); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Done!")
	}
}

// loadConfig starts from the defaults or the YAML file and applies any flags
// that were set.
func loadConfig() (utils.Config, error) {
	cfg := utils.DefaultConfig()
	if *configFile != "" {
		var err error
		if cfg, err = utils.LoadConfig(*configFile); err != nil {
			return cfg, err
		}
	}

	var err error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "arch":
			var a []int
			if a, err = utils.ParseArchitecture(*arch); err == nil {
				cfg.Architecture = a
			}
		case "data":
			cfg.DataPath = *dataFile
		case "labeled":
			cfg.Labeled = *labeled
		case "normalize":
			cfg.Normalize = *normalize
		case "epochs":
			cfg.Epochs = *epochs
		case "batch":
			cfg.BatchSize = *batchSize
		case "lr":
			cfg.LearningRate = *learningRate
		case "seed":
			cfg.Seed = *seed
		case "workers":
			cfg.Workers = *workers
		case "output":
			cfg.WeightsOut = *outputFile
		}
	})
	if err != nil {
		return cfg, err
	}
	return cfg, utils.ValidateConfig(&cfg)
}

// loadData returns the training points and, with cfg.Normalize, the input
// mean and std they were standardised with.
func loadData(cfg utils.Config) (points []nn.DataPoint, mean, std []float64, err error) {
	if cfg.DataPath == "" {
		points = dataset.XOR()
	} else {
		in, out := cfg.Architecture[0], cfg.Architecture[len(cfg.Architecture)-1]
		points, err = dataset.ReadFile(cfg.DataPath, in, out, cfg.Labeled)
		if err != nil {
			return nil, nil, nil, err
		}
		if len(points) == 0 {
			return nil, nil, nil, errors.Errorf("no samples in %s", cfg.DataPath)
		}
	}
	if !cfg.Normalize {
		return points, nil, nil, nil
	}
	if mean, std, err = dataset.Stats(points); err != nil {
		return nil, nil, nil, err
	}
	if points, err = dataset.Normalize(points, mean, std); err != nil {
		return nil, nil, nil, err
	}
	return points, mean, std, nil
}

func trainStep(net *nn.Network, batch []nn.DataPoint, cfg utils.Config) error {
	if cfg.Workers > 1 {
		return net.TrainConcurrent(batch, cfg.LearningRate, cfg.Workers)
	}
	return net.Train(batch, cfg.LearningRate)
}
