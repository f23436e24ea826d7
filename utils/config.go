package utils

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds training configuration
type Config struct {
	Architecture []int   `yaml:"architecture"`
	DataPath     string  `yaml:"data"`
	Labeled      bool    `yaml:"labeled"`
	Normalize    bool    `yaml:"normalize"`
	BatchSize    int     `yaml:"batch_size"`
	Epochs       int     `yaml:"epochs"`
	LearningRate float64 `yaml:"learning_rate"`
	Seed         uint64  `yaml:"seed"`
	Workers      int     `yaml:"workers"`
	WeightsOut   string  `yaml:"weights_out"`
}

// DefaultConfig trains a 2-4-2 network on XOR.
func DefaultConfig() Config {
	return Config{
		Architecture: []int{2, 4, 2},
		BatchSize:    4,
		Epochs:       1000,
		LearningRate: 1.0,
		Seed:         42,
		Workers:      1,
	}
}

// LoadConfig reads a YAML file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "reading config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing config %s", path)
	}
	return cfg, nil
}

// ParseArchitecture parses architecture string into slice of integers
func ParseArchitecture(archStr string) ([]int, error) {
	archParts := strings.Fields(archStr)
	arch := make([]int, len(archParts))
	for i, s := range archParts {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, errors.Wrapf(err, "layer width %d", i)
		}
		arch[i] = n
	}
	return arch, nil
}

// ValidateConfig validates training configuration
func ValidateConfig(config *Config) error {
	if len(config.Architecture) < 2 {
		return errors.New("architecture must have at least 2 layers (input and output)")
	}

	for i, w := range config.Architecture {
		if w < 1 {
			return errors.Errorf("layer %d width must be positive, got %d", i, w)
		}
	}

	if config.BatchSize <= 0 {
		return errors.New("batch size must be positive")
	}

	if config.Epochs <= 0 {
		return errors.New("epochs must be positive")
	}

	if config.LearningRate <= 0 {
		return errors.New("learning rate must be positive")
	}

	return nil
}
