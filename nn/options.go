package nn

import (
	"sigmanet/parallel"

	"golang.org/x/exp/rand"
)

type options struct {
	src rand.Source
	par parallel.Config
}

// Option configures layer and network construction.
type Option func(*options)

// WithSource draws initial weights from src instead of the global generator.
//
// Example:
//
//	net, err := nn.NewNetwork([]int{2, 3, 1}, nn.WithSource(rand.NewSource(42)))
func WithSource(src rand.Source) Option {
	return func(o *options) {
		o.src = src
	}
}

// WithParallel sets how a layer fans out its per-node work.
func WithParallel(cfg parallel.Config) Option {
	return func(o *options) {
		o.par = cfg
	}
}

func buildOptions(opts []Option) options {
	o := options{par: parallel.DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
