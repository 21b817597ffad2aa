package network

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallArch() []LayerSpec {
	return []LayerSpec{
		{Size: 2},
		{Size: 4, Activation: Tanh},
		{Size: 1, Activation: Sigmoid},
	}
}

func TestActivationApply(t *testing.T) {
	assert.Equal(t, 0.5, Sigmoid.Apply(0))
	assert.Equal(t, 1.0, Sigmoid.Apply(1e6))
	assert.False(t, math.IsNaN(Sigmoid.Apply(-1e6)))
	assert.Equal(t, 0.0, ReLU.Apply(-2))
	assert.Equal(t, 3.0, ReLU.Apply(3))
	assert.InDelta(t, -0.02, LeakyReLU.Apply(-2), 1e-12)
	assert.InDelta(t, math.Tanh(0.3), Tanh.Apply(0.3), 1e-12)
	assert.InDelta(t, math.Exp(-1)-1, ELU.Apply(-1), 1e-12)
	assert.Equal(t, -7.0, Linear.Apply(-7))
}

func TestActivationDerivativeMatchesNumeric(t *testing.T) {
	const h = 1e-6
	for _, a := range []Activation{Sigmoid, ReLU, LeakyReLU, Tanh, ELU, Linear} {
		for _, x := range []float64{-1.3, -0.4, 0.7, 2.1} {
			numeric := (a.Apply(x+h) - a.Apply(x-h)) / (2 * h)
			assert.InDelta(t, numeric, a.Derivative(a.Apply(x)), 1e-5, "%s at %v", a, x)
		}
	}
}

func TestParseActivation(t *testing.T) {
	for _, a := range []Activation{Sigmoid, ReLU, LeakyReLU, Tanh, ELU, Linear} {
		got, err := ParseActivation(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
	got, err := ParseActivation("leaky_relu")
	require.NoError(t, err)
	assert.Equal(t, LeakyReLU, got)

	var a Activation
	require.NoError(t, a.UnmarshalText([]byte("ELU")))
	assert.Equal(t, ELU, a)

	_, err = ParseActivation("softmax")
	assert.Error(t, err)
}

func TestNewValidatesArchitecture(t *testing.T) {
	cases := [][]LayerSpec{
		nil,
		{{Size: 3}},
		{{Size: 3}, {Size: 0, Activation: ReLU}},
		{{Size: 3}, {Size: 2, Activation: Activation(42)}},
		{{Size: 3}, {Size: 2, Activation: ReLU, Dropout: 1}},
		{{Size: 3}, {Size: 2, Activation: ReLU, Dropout: -0.1}},
	}
	for _, arch := range cases {
		_, err := New(arch, WithSeed(1))
		assert.ErrorIs(t, err, ErrInvalidArchitecture)
	}
}

func TestNewShapes(t *testing.T) {
	n, err := New([]LayerSpec{{Size: 16}, {Size: 8, Activation: ReLU}, {Size: 1, Activation: Sigmoid}}, WithSeed(7))
	require.NoError(t, err)
	assert.Equal(t, 16, n.InputSize())
	assert.Equal(t, 1, n.OutputSize())
	require.Len(t, n.layers, 2)
	for _, u := range n.layers[0].units {
		assert.Len(t, u.weights, 16)
		assert.Equal(t, 0.0, u.bias)
		// He bound for 16 inputs: 0.5*sqrt(2/16)*2
		for _, w := range u.weights {
			assert.LessOrEqual(t, math.Abs(w), math.Sqrt(2.0/16))
		}
	}
	for _, u := range n.layers[1].units {
		assert.Len(t, u.weights, 8)
	}
	assert.Len(t, n.Architecture(), 3)
}

func TestSeedIsReproducible(t *testing.T) {
	a, err := New(smallArch(), WithSeed(99))
	require.NoError(t, err)
	b, err := New(smallArch(), WithSeed(99))
	require.NoError(t, err)

	outA, err := a.Predict([]float64{0.3, 0.8})
	require.NoError(t, err)
	outB, err := b.Predict([]float64{0.3, 0.8})
	require.NoError(t, err)
	assert.Equal(t, outA, outB)
}

func TestPredictIsPure(t *testing.T) {
	n, err := New([]LayerSpec{
		{Size: 3},
		{Size: 5, Activation: ReLU, BatchNorm: true, Dropout: 0.3},
		{Size: 1, Activation: Sigmoid},
	}, WithSeed(3))
	require.NoError(t, err)

	in := []float64{0.1, 0.5, 0.9}
	first, err := n.Predict(in)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := n.Predict(in)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, []float64{0.1, 0.5, 0.9}, in)

	_, err = n.Predict([]float64{1})
	assert.ErrorIs(t, err, ErrInputSize)
}

// The analytic gradient uses (y-t), i.e. the derivative of half the squared error.
func TestBackwardMatchesFiniteDifference(t *testing.T) {
	n, err := New(smallArch(), WithSeed(5))
	require.NoError(t, err)

	in := []float64{0.4, -0.7}
	target := []float64{0.9}
	halfSq := func() float64 {
		out, err := n.Predict(in)
		require.NoError(t, err)
		d := out[0] - target[0]
		return 0.5 * d * d
	}

	passes := make([]pass, len(n.layers))
	gs := make([]grads, len(n.layers))
	for li, l := range n.layers {
		size := len(l.units)
		passes[li] = pass{z: make([]float64, size), y: make([]float64, size), scale: make([]float64, size), out: make([]float64, size)}
		gs[li] = grads{w: make([][]float64, size), b: make([]float64, size), zSum: make([]float64, size), zSq: make([]float64, size)}
		for i, u := range l.units {
			gs[li].w[i] = make([]float64, len(u.weights))
		}
	}
	n.forwardTrain(in, passes)
	n.backward(target, passes, gs)

	const h = 1e-6
	for li, l := range n.layers {
		for i, u := range l.units {
			for j := range u.weights {
				orig := u.weights[j]
				u.weights[j] = orig + h
				plus := halfSq()
				u.weights[j] = orig - h
				minus := halfSq()
				u.weights[j] = orig
				assert.InDelta(t, (plus-minus)/(2*h), gs[li].w[i][j], 1e-6)
			}
			orig := u.bias
			u.bias = orig + h
			plus := halfSq()
			u.bias = orig - h
			minus := halfSq()
			u.bias = orig
			assert.InDelta(t, (plus-minus)/(2*h), gs[li].b[i], 1e-6)
		}
	}
}

func linearExamples() []Example {
	var out []Example
	for i := 0; i < 20; i++ {
		a := float64(i) / 19
		b := float64((i*7)%20) / 19
		out = append(out, Example{Input: []float64{a, b}, Target: []float64{0.2 + 0.3*a + 0.3*b}})
	}
	return out
}

func TestTrainReducesError(t *testing.T) {
	n, err := New(smallArch(), WithSeed(11), WithLearningRate(0.05))
	require.NoError(t, err)
	ctx := context.Background()

	first, err := n.Train(ctx, linearExamples(), 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Epochs)

	res, err := n.Train(ctx, linearExamples(), 400, 0)
	require.NoError(t, err)
	assert.Equal(t, 400, res.Epochs)
	assert.Less(t, res.Error, first.Error)
	assert.Less(t, res.Error, 0.01)
	assert.Equal(t, 401, n.Steps())
}

func TestTrainWithBatchNormAndDropout(t *testing.T) {
	n, err := New([]LayerSpec{
		{Size: 2},
		{Size: 8, Activation: ReLU, BatchNorm: true, Dropout: 0.1},
		{Size: 4, Activation: Tanh, BatchNorm: true},
		{Size: 1, Activation: Sigmoid},
	}, WithSeed(21))
	require.NoError(t, err)

	res, err := n.Train(context.Background(), linearExamples(), 300, 0)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(res.Error))
	assert.Less(t, res.Error, 0.05)

	moved := false
	for _, u := range n.layers[0].units {
		if u.runMean != 0 || u.runVar != 1 {
			moved = true
		}
	}
	assert.True(t, moved)

	out, err := n.Predict([]float64{0.5, 0.5})
	require.NoError(t, err)
	assert.Greater(t, out[0], 0.0)
	assert.Less(t, out[0], 1.0)
}

func TestTrainStopsAtThreshold(t *testing.T) {
	n, err := New(smallArch(), WithSeed(1))
	require.NoError(t, err)

	var calls []int
	n.progress = func(epoch, epochs int, loss float64) { calls = append(calls, epoch) }
	n.progressEvery = 10

	res, err := n.Train(context.Background(), linearExamples(), 1000, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Epochs)
	assert.Equal(t, []int{1}, calls)
}

func TestTrainProgress(t *testing.T) {
	var epochs []int
	n, err := New(smallArch(), WithSeed(1), WithProgress(func(epoch, total int, loss float64) {
		epochs = append(epochs, epoch)
		assert.Equal(t, 25, total)
	}, 10))
	require.NoError(t, err)

	_, err = n.Train(context.Background(), linearExamples(), 25, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{10, 20, 25}, epochs)
}

func TestTrainHonorsContext(t *testing.T) {
	n, err := New(smallArch(), WithSeed(1))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = n.Train(ctx, linearExamples(), 10, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, n.Steps())
}

func TestTrainRejectsBadExamples(t *testing.T) {
	n, err := New(smallArch(), WithSeed(1))
	require.NoError(t, err)

	_, err = n.Train(context.Background(), nil, 10, 0)
	assert.ErrorIs(t, err, ErrInputSize)

	_, err = n.Train(context.Background(), []Example{{Input: []float64{1}, Target: []float64{1}}}, 10, 0)
	assert.ErrorIs(t, err, ErrInputSize)
}

func TestTrainNonFinite(t *testing.T) {
	n, err := New([]LayerSpec{{Size: 1}, {Size: 1, Activation: Linear}}, WithSeed(1))
	require.NoError(t, err)

	_, err = n.Train(context.Background(), []Example{{Input: []float64{1}, Target: []float64{math.NaN()}}}, 5, 0)
	assert.ErrorIs(t, err, ErrNonFinite)
}
