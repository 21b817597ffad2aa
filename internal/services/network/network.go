package network

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

var (
	ErrInvalidArchitecture = errors.New("invalid architecture")
	ErrInputSize           = errors.New("input size mismatch")
	ErrNonFinite           = errors.New("non-finite loss")
)

const (
	DefaultLearningRate = 0.01

	adamBeta1   = 0.9
	adamBeta2   = 0.999
	adamEpsilon = 1e-8

	bnMomentum = 0.9
	bnEpsilon  = 1e-5
)

// LayerSpec describes one layer. In an architecture the first entry only sets the input width.
type LayerSpec struct {
	Size       int        `yaml:"size" json:"size"`
	Activation Activation `yaml:"activation" json:"activation"`
	BatchNorm  bool       `yaml:"batch_norm" json:"batch_norm,omitempty"`
	Dropout    float64    `yaml:"dropout" json:"dropout,omitempty"`
}

// ProgressFunc is invoked every N epochs during training.
type ProgressFunc func(epoch, epochs int, loss float64)

type Option func(*Network)

// WithSeed makes weight init and dropout masks reproducible.
func WithSeed(seed uint64) Option {
	return func(n *Network) { n.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// WithRand injects the random source.
func WithRand(r *rand.Rand) Option {
	return func(n *Network) {
		if r != nil {
			n.rng = r
		}
	}
}

func WithLearningRate(lr float64) Option {
	return func(n *Network) {
		if lr > 0 {
			n.lr = lr
		}
	}
}

// WithProgress reports the loss every `every` epochs and on the final epoch.
func WithProgress(fn ProgressFunc, every int) Option {
	return func(n *Network) {
		n.progress = fn
		n.progressEvery = max(every, 1)
	}
}

// unit is one neuron with its parameters and Adam moments.
type unit struct {
	weights []float64
	bias    float64

	mW, vW []float64
	mB, vB float64

	runMean, runVar float64
}

type layer struct {
	spec  LayerSpec
	units []*unit
}

// Network is a fully connected feed-forward network. It is not safe for concurrent training.
type Network struct {
	inputSize int
	layers    []*layer
	lr        float64
	step      int

	rng           *rand.Rand
	progress      ProgressFunc
	progressEvery int
}

// New builds and initializes a network for the given architecture.
func New(arch []LayerSpec, opts ...Option) (*Network, error) {
	if err := ValidateArchitecture(arch); err != nil {
		return nil, err
	}
	n := &Network{
		inputSize: arch[0].Size,
		lr:        DefaultLearningRate,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.rng == nil {
		n.rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
	}

	prev := arch[0].Size
	for _, spec := range arch[1:] {
		l := &layer{spec: spec, units: make([]*unit, spec.Size)}
		scale := math.Sqrt(2/float64(prev+spec.Size)) * 2
		if spec.Activation.heInit() {
			scale = math.Sqrt(2/float64(prev)) * 2
		}
		for i := range l.units {
			u := &unit{
				weights: make([]float64, prev),
				mW:      make([]float64, prev),
				vW:      make([]float64, prev),
				runVar:  1,
			}
			for j := range u.weights {
				u.weights[j] = (n.rng.Float64() - 0.5) * scale
			}
			l.units[i] = u
		}
		n.layers = append(n.layers, l)
		prev = spec.Size
	}
	return n, nil
}

// ValidateArchitecture checks widths, activations and dropout rates.
func ValidateArchitecture(arch []LayerSpec) error {
	if len(arch) < 2 {
		return fmt.Errorf("%w: need an input and at least one layer, got %d entries", ErrInvalidArchitecture, len(arch))
	}
	for i, s := range arch {
		if s.Size < 1 {
			return fmt.Errorf("%w: layer %d has size %d", ErrInvalidArchitecture, i, s.Size)
		}
		if _, ok := activationNames[s.Activation]; !ok {
			return fmt.Errorf("%w: layer %d has unknown activation %d", ErrInvalidArchitecture, i, int(s.Activation))
		}
		if s.Dropout < 0 || s.Dropout >= 1 {
			return fmt.Errorf("%w: layer %d dropout %.3f outside [0,1)", ErrInvalidArchitecture, i, s.Dropout)
		}
	}
	return nil
}

func (n *Network) InputSize() int { return n.inputSize }

func (n *Network) OutputSize() int { return len(n.layers[len(n.layers)-1].units) }

// Steps is the number of optimizer updates applied so far.
func (n *Network) Steps() int { return n.step }

// Architecture returns the spec the network was built from.
func (n *Network) Architecture() []LayerSpec {
	out := make([]LayerSpec, 0, len(n.layers)+1)
	out = append(out, LayerSpec{Size: n.inputSize})
	for _, l := range n.layers {
		out = append(out, l.spec)
	}
	return out
}

// Predict runs an inference pass: no dropout, batch-norm running statistics as-is.
func (n *Network) Predict(input []float64) ([]float64, error) {
	if len(input) != n.inputSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInputSize, len(input), n.inputSize)
	}
	x := input
	for _, l := range n.layers {
		out := make([]float64, len(l.units))
		for i, u := range l.units {
			z := u.bias
			for j, w := range u.weights {
				z += w * x[j]
			}
			if l.spec.BatchNorm {
				z = (z - u.runMean) / math.Sqrt(u.runVar+bnEpsilon)
			}
			out[i] = l.spec.Activation.Apply(z)
		}
		x = out
	}
	return x, nil
}
