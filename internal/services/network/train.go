package network

import (
	"context"
	"fmt"
	"math"
)

// Example is one supervised sample.
type Example struct {
	Input  []float64
	Target []float64
}

// TrainResult records how a training run ended.
type TrainResult struct {
	Error  float64
	Epochs int
}

// pass holds the per-layer buffers of one training forward pass.
type pass struct {
	input []float64
	z     []float64
	y     []float64
	scale []float64 // dropout factor: 0 when dropped, 1/(1-p) when kept
	out   []float64
}

type grads struct {
	w [][]float64
	b []float64

	zSum, zSq []float64
}

// Train runs full-batch gradient descent with Adam. Every epoch averages the gradients of
// all examples into a single update. It stops once the mean squared error drops below
// threshold, the epochs run out or ctx is done.
func (n *Network) Train(ctx context.Context, examples []Example, epochs int, threshold float64) (TrainResult, error) {
	var res TrainResult
	if len(examples) == 0 {
		return res, fmt.Errorf("%w: no training examples", ErrInputSize)
	}
	for i, ex := range examples {
		if len(ex.Input) != n.inputSize || len(ex.Target) != n.OutputSize() {
			return res, fmt.Errorf("%w: example %d has %d inputs and %d targets",
				ErrInputSize, i, len(ex.Input), len(ex.Target))
		}
	}

	passes := make([]pass, len(n.layers))
	gs := make([]grads, len(n.layers))
	for li, l := range n.layers {
		size := len(l.units)
		passes[li] = pass{
			z:     make([]float64, size),
			y:     make([]float64, size),
			scale: make([]float64, size),
			out:   make([]float64, size),
		}
		g := grads{
			w:    make([][]float64, size),
			b:    make([]float64, size),
			zSum: make([]float64, size),
			zSq:  make([]float64, size),
		}
		for i, u := range l.units {
			g.w[i] = make([]float64, len(u.weights))
		}
		gs[li] = g
	}

	for epoch := 0; epoch < epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		for li := range gs {
			gs[li].reset()
		}

		var loss float64
		for _, ex := range examples {
			n.forwardTrain(ex.Input, passes)
			loss += n.backward(ex.Target, passes, gs)
		}
		loss /= float64(len(examples) * n.OutputSize())
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			return res, fmt.Errorf("%w at epoch %d", ErrNonFinite, epoch+1)
		}

		n.apply(gs, float64(len(examples)))
		res = TrainResult{Error: loss, Epochs: epoch + 1}

		done := loss < threshold || epoch == epochs-1
		if n.progress != nil && (done || (epoch+1)%n.progressEvery == 0) {
			n.progress(epoch+1, epochs, loss)
		}
		if loss < threshold {
			break
		}
	}
	return res, nil
}

func (g *grads) reset() {
	for i := range g.w {
		clear(g.w[i])
	}
	clear(g.b)
	clear(g.zSum)
	clear(g.zSq)
}

func (n *Network) forwardTrain(input []float64, passes []pass) {
	x := input
	for li, l := range n.layers {
		p := &passes[li]
		p.input = x
		for i, u := range l.units {
			z := u.bias
			for j, w := range u.weights {
				z += w * x[j]
			}
			p.z[i] = z
			if l.spec.BatchNorm {
				z = (z - u.runMean) / math.Sqrt(u.runVar+bnEpsilon)
			}
			p.y[i] = l.spec.Activation.Apply(z)

			p.scale[i] = 1
			if l.spec.Dropout > 0 {
				if n.rng.Float64() < l.spec.Dropout {
					p.scale[i] = 0
				} else {
					p.scale[i] = 1 / (1 - l.spec.Dropout)
				}
			}
			p.out[i] = p.y[i] * p.scale[i]
		}
		x = p.out
	}
}

// backward accumulates gradients for one example and returns its summed squared error.
func (n *Network) backward(target []float64, passes []pass, gs []grads) float64 {
	last := passes[len(passes)-1]
	var sq float64
	upstream := make([]float64, len(last.out))
	for i, y := range last.out {
		d := y - target[i]
		sq += d * d
		upstream[i] = d
	}

	for li := len(n.layers) - 1; li >= 0; li-- {
		l := n.layers[li]
		p := passes[li]
		g := &gs[li]

		var down []float64
		if li > 0 {
			down = make([]float64, len(p.input))
		}
		for i, u := range l.units {
			g.zSum[i] += p.z[i]
			g.zSq[i] += p.z[i] * p.z[i]
			if p.scale[i] == 0 {
				continue
			}
			delta := upstream[i] * p.scale[i] * l.spec.Activation.Derivative(p.y[i])
			if l.spec.BatchNorm {
				delta /= math.Sqrt(u.runVar + bnEpsilon)
			}
			for j, x := range p.input {
				g.w[i][j] += delta * x
				if down != nil {
					down[j] += delta * u.weights[j]
				}
			}
			g.b[i] += delta
		}
		upstream = down
	}
	return sq
}

// apply performs one Adam step with the averaged gradients and refreshes batch-norm statistics.
func (n *Network) apply(gs []grads, count float64) {
	n.step++
	c1 := 1 - math.Pow(adamBeta1, float64(n.step))
	c2 := 1 - math.Pow(adamBeta2, float64(n.step))
	update := func(param, m, v *float64, grad float64) {
		*m = adamBeta1**m + (1-adamBeta1)*grad
		*v = adamBeta2**v + (1-adamBeta2)*grad*grad
		*param -= n.lr * (*m / c1) / (math.Sqrt(*v/c2) + adamEpsilon)
	}

	for li, l := range n.layers {
		g := gs[li]
		for i, u := range l.units {
			for j := range u.weights {
				update(&u.weights[j], &u.mW[j], &u.vW[j], g.w[i][j]/count)
			}
			update(&u.bias, &u.mB, &u.vB, g.b[i]/count)

			if l.spec.BatchNorm {
				mean := g.zSum[i] / count
				variance := math.Max(0, g.zSq[i]/count-mean*mean)
				u.runMean = bnMomentum*u.runMean + (1-bnMomentum)*mean
				u.runVar = bnMomentum*u.runVar + (1-bnMomentum)*variance
			}
		}
	}
}
