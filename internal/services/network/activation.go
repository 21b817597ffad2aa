package network

import (
	"fmt"
	"math"
	"strings"
)

// Activation is the closed set of unit transfer functions.
type Activation int

const (
	Sigmoid Activation = iota
	ReLU
	LeakyReLU
	Tanh
	ELU
	Linear
)

const (
	leakySlope   = 0.01
	sigmoidClamp = 500
)

var activationNames = map[Activation]string{
	Sigmoid:   "sigmoid",
	ReLU:      "relu",
	LeakyReLU: "leakyRelu",
	Tanh:      "tanh",
	ELU:       "elu",
	Linear:    "linear",
}

func (a Activation) String() string {
	if s, ok := activationNames[a]; ok {
		return s
	}
	return fmt.Sprintf("Activation(%d)", int(a))
}

// ParseActivation accepts the canonical names case-insensitively ("leaky_relu" too).
func ParseActivation(s string) (Activation, error) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", ""))
	for a, name := range activationNames {
		if strings.ToLower(name) == key {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown activation %q", s)
}

func (a Activation) MarshalText() ([]byte, error) {
	if _, ok := activationNames[a]; !ok {
		return nil, fmt.Errorf("unknown activation %d", int(a))
	}
	return []byte(a.String()), nil
}

func (a *Activation) UnmarshalText(b []byte) error {
	v, err := ParseActivation(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Apply is the forward transfer.
func (a Activation) Apply(x float64) float64 {
	switch a {
	case Sigmoid:
		x = math.Max(-sigmoidClamp, math.Min(sigmoidClamp, x))
		return 1 / (1 + math.Exp(-x))
	case ReLU:
		return math.Max(0, x)
	case LeakyReLU:
		if x > 0 {
			return x
		}
		return leakySlope * x
	case Tanh:
		return math.Tanh(x)
	case ELU:
		if x >= 0 {
			return x
		}
		return math.Exp(x) - 1
	default:
		return x
	}
}

// Derivative is expressed in terms of the activation output y.
func (a Activation) Derivative(y float64) float64 {
	switch a {
	case Sigmoid:
		return y * (1 - y)
	case ReLU:
		if y > 0 {
			return 1
		}
		return 0
	case LeakyReLU:
		if y > 0 {
			return 1
		}
		return leakySlope
	case Tanh:
		return 1 - y*y
	case ELU:
		if y >= 0 {
			return 1
		}
		return y + 1
	default:
		return 1
	}
}

// heInit reports whether the activation uses He rather than Xavier initialization.
func (a Activation) heInit() bool {
	return a == ReLU || a == LeakyReLU || a == ELU
}
