package models

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/wonny/finsight/internal/dataset"
	"github.com/wonny/finsight/internal/modelconfig"
)

const (
	lstmBatch    = 32
	lstmClipNorm = 1.0
	adamBeta1    = 0.9
	adamBeta2    = 0.999
	adamEps      = 1e-8
)

// LSTM is a single-layer recurrent network with a linear head.
// It learns y[t] from the window y[t-T..t-1] and predicts every window of the input,
// so the first T positions of the output are undefined.
// Training is deterministic for a given seed.
type LSTM struct {
	cfg modelconfig.LSTM
}

// NewLSTM creates the adapter
func NewLSTM(cfg modelconfig.LSTM) *LSTM {
	return &LSTM{cfg: cfg}
}

// Forecast trains on the target column and returns per-window predictions.
// Cancellation is checked between epochs.
func (l *LSTM) Forecast(ctx context.Context, f *dataset.Frame, target string) (*dataset.Series, error) {
	y, err := definedColumn(f, target)
	if err != nil {
		return nil, err
	}
	steps := l.cfg.Timesteps
	if len(y) <= steps {
		return nil, fmt.Errorf("%w: lstm needs more than %d rows, got %d", ErrInsufficientData, steps, len(y))
	}

	net := newLSTMNet(l.cfg.Hidden, l.cfg.Seed)
	windows := len(y) - steps
	order := make([]int, windows)
	for i := range order {
		order[i] = i
	}
	shuffle := rand.New(rand.NewPCG(l.cfg.Seed, l.cfg.Seed^0x9e3779b97f4a7c15))

	for epoch := 0; epoch < l.cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		shuffle.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		for b := 0; b < windows; b += lstmBatch {
			end := min(b+lstmBatch, windows)
			net.zeroGrad()
			for _, w := range order[b:end] {
				net.backward(y[w:w+steps], y[w+steps])
			}
			net.step(l.cfg.LearningRate, float64(end-b))
		}
	}

	out := nanSlice(len(y))
	for w := 0; w < windows; w++ {
		out[w+steps] = net.forward(y[w : w+steps]).pred
	}
	return dataset.NewSeries(target, f.Dates(), out), nil
}

// lstmNet stores every parameter in one flat slice so the optimizer can treat them uniformly.
// Layout: wx[4H] | wh[4H*H] | b[4H] | wy[H] | by[1], gates ordered i, f, g, o.
type lstmNet struct {
	h                   int
	params, grads, m, v []float64
	wx, wh, b, wy, by   int // offsets
	t                   int // optimizer step
}

func newLSTMNet(hidden int, seed uint64) *lstmNet {
	n := &lstmNet{h: hidden}
	n.wx = 0
	n.wh = n.wx + 4*hidden
	n.b = n.wh + 4*hidden*hidden
	n.wy = n.b + 4*hidden
	n.by = n.wy + hidden
	size := n.by + 1

	n.params = make([]float64, size)
	n.grads = make([]float64, size)
	n.m = make([]float64, size)
	n.v = make([]float64, size)

	rng := rand.New(rand.NewPCG(seed, seed+1))
	scale := 1 / math.Sqrt(float64(hidden))
	for i := range n.params {
		n.params[i] = (rng.Float64()*2 - 1) * scale
	}
	for j := 0; j < 4*hidden; j++ {
		n.params[n.b+j] = 0
	}
	for j := hidden; j < 2*hidden; j++ {
		n.params[n.b+j] = 1 // forget gate bias
	}
	return n
}

type lstmTrace struct {
	xs               []float64
	i, f, g, o, c, h [][]float64 // per step; c and h hold T+1 states starting at zero
	pred             float64
}

func (n *lstmNet) forward(xs []float64) *lstmTrace {
	H := n.h
	T := len(xs)
	tr := &lstmTrace{
		xs: xs,
		i:  make([][]float64, T),
		f:  make([][]float64, T),
		g:  make([][]float64, T),
		o:  make([][]float64, T),
		c:  make([][]float64, T+1),
		h:  make([][]float64, T+1),
	}
	tr.c[0] = make([]float64, H)
	tr.h[0] = make([]float64, H)

	p := n.params
	for t, x := range xs {
		hPrev, cPrev := tr.h[t], tr.c[t]
		ig, fg, gg, og := make([]float64, H), make([]float64, H), make([]float64, H), make([]float64, H)
		c, h := make([]float64, H), make([]float64, H)

		for gate := 0; gate < 4; gate++ {
			for j := 0; j < H; j++ {
				row := gate*H + j
				z := p[n.wx+row]*x + p[n.b+row]
				base := n.wh + row*H
				for k := 0; k < H; k++ {
					z += p[base+k] * hPrev[k]
				}
				switch gate {
				case 0:
					ig[j] = sigmoid(z)
				case 1:
					fg[j] = sigmoid(z)
				case 2:
					gg[j] = math.Tanh(z)
				case 3:
					og[j] = sigmoid(z)
				}
			}
		}
		for j := 0; j < H; j++ {
			c[j] = fg[j]*cPrev[j] + ig[j]*gg[j]
			h[j] = og[j] * math.Tanh(c[j])
		}
		tr.i[t], tr.f[t], tr.g[t], tr.o[t] = ig, fg, gg, og
		tr.c[t+1], tr.h[t+1] = c, h
	}

	pred := p[n.by]
	for j := 0; j < H; j++ {
		pred += p[n.wy+j] * tr.h[T][j]
	}
	tr.pred = pred
	return tr
}

// backward accumulates the squared-error gradient of one window into grads
func (n *lstmNet) backward(xs []float64, target float64) {
	H := n.h
	T := len(xs)
	tr := n.forward(xs)
	p, g := n.params, n.grads

	dy := tr.pred - target
	g[n.by] += dy
	dh := make([]float64, H)
	for j := 0; j < H; j++ {
		g[n.wy+j] += dy * tr.h[T][j]
		dh[j] = dy * p[n.wy+j]
	}
	dc := make([]float64, H)
	dz := make([]float64, 4*H)

	for t := T - 1; t >= 0; t-- {
		ig, fg, gg, og := tr.i[t], tr.f[t], tr.g[t], tr.o[t]
		c, cPrev, hPrev := tr.c[t+1], tr.c[t], tr.h[t]

		for j := 0; j < H; j++ {
			tc := math.Tanh(c[j])
			do := dh[j] * tc
			dc[j] += dh[j] * og[j] * (1 - tc*tc)

			dz[j] = dc[j] * gg[j] * ig[j] * (1 - ig[j])
			dz[H+j] = dc[j] * cPrev[j] * fg[j] * (1 - fg[j])
			dz[2*H+j] = dc[j] * ig[j] * (1 - gg[j]*gg[j])
			dz[3*H+j] = do * og[j] * (1 - og[j])

			dc[j] *= fg[j]
		}

		next := make([]float64, H)
		for row := 0; row < 4*H; row++ {
			d := dz[row]
			if d == 0 {
				continue
			}
			g[n.wx+row] += d * xs[t]
			g[n.b+row] += d
			base := n.wh + row*H
			for k := 0; k < H; k++ {
				g[base+k] += d * hPrev[k]
				next[k] += d * p[base+k]
			}
		}
		dh = next
	}
}

func (n *lstmNet) zeroGrad() {
	for i := range n.grads {
		n.grads[i] = 0
	}
}

// step applies one Adam update with the batch-averaged, norm-clipped gradient
func (n *lstmNet) step(lr, batch float64) {
	norm := 0.0
	for i := range n.grads {
		n.grads[i] /= batch
		norm += n.grads[i] * n.grads[i]
	}
	norm = math.Sqrt(norm)
	clip := 1.0
	if norm > lstmClipNorm {
		clip = lstmClipNorm / norm
	}

	n.t++
	c1 := 1 - math.Pow(adamBeta1, float64(n.t))
	c2 := 1 - math.Pow(adamBeta2, float64(n.t))
	for i := range n.params {
		gr := n.grads[i] * clip
		n.m[i] = adamBeta1*n.m[i] + (1-adamBeta1)*gr
		n.v[i] = adamBeta2*n.v[i] + (1-adamBeta2)*gr*gr
		n.params[i] -= lr * (n.m[i] / c1) / (math.Sqrt(n.v[i]/c2) + adamEps)
	}
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
