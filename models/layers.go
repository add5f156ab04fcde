package models

import (
	"math"
	"math/rand/v2"

	"github.com/aouyang1/go-sensorcast/floatsunrolled"
	"gonum.org/v1/gonum/mat"
)

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// glorotUniform draws a rows x cols matrix in row order from U(-limit, limit) where
// limit = sqrt(6 / (fanIn + fanOut))
func glorotUniform(rows, cols int, rng *rand.Rand) []float64 {
	limit := math.Sqrt(6.0 / float64(rows+cols))
	w := make([]float64, rows*cols)
	for i := range w {
		w[i] = (2*rng.Float64() - 1) * limit
	}
	return w
}

// lstmLayer is a single long short-term memory layer. Gate pre-activations are stacked in the
// order input, forget, cell, output.
type lstmLayer struct {
	in     int
	hidden int
	wx     *param // 4*hidden x in
	wh     *param // 4*hidden x hidden
	b      *param // 4*hidden
}

func newLSTMLayer(in, hidden int, rng *rand.Rand) *lstmLayer {
	b := make([]float64, 4*hidden)
	// unit forget bias
	for j := hidden; j < 2*hidden; j++ {
		b[j] = 1.0
	}
	return &lstmLayer{
		in:     in,
		hidden: hidden,
		wx:     newParam(glorotUniform(4*hidden, in, rng)),
		wh:     newParam(glorotUniform(4*hidden, hidden, rng)),
		b:      newParam(b),
	}
}

type lstmCache struct {
	x     []float64
	hPrev []float64
	cPrev []float64
	i     []float64
	f     []float64
	g     []float64
	o     []float64
	c     []float64
	tanhC []float64
	h     []float64
}

func (l *lstmLayer) params() []*param {
	return []*param{l.wx, l.wh, l.b}
}

// forward runs the layer over the sequence from a zero state and returns the per step caches.
// The hidden output of step t is caches[t].h.
func (l *lstmLayer) forward(xs [][]float64) []*lstmCache {
	hd := l.hidden
	wx := mat.NewDense(4*hd, l.in, l.wx.w)
	wh := mat.NewDense(4*hd, hd, l.wh.w)
	bias := l.b.w

	h := make([]float64, hd)
	c := make([]float64, hd)
	z := mat.NewVecDense(4*hd, nil)
	zh := mat.NewVecDense(4*hd, nil)

	caches := make([]*lstmCache, 0, len(xs))
	for _, x := range xs {
		z.MulVec(wx, mat.NewVecDense(l.in, x))
		zh.MulVec(wh, mat.NewVecDense(hd, h))
		z.AddVec(z, zh)
		zr := z.RawVector().Data

		st := &lstmCache{
			x:     x,
			hPrev: h,
			cPrev: c,
			i:     make([]float64, hd),
			f:     make([]float64, hd),
			g:     make([]float64, hd),
			o:     make([]float64, hd),
			c:     make([]float64, hd),
			tanhC: make([]float64, hd),
			h:     make([]float64, hd),
		}
		for j := 0; j < hd; j++ {
			st.i[j] = sigmoid(zr[j] + bias[j])
			st.f[j] = sigmoid(zr[hd+j] + bias[hd+j])
			st.g[j] = math.Tanh(zr[2*hd+j] + bias[2*hd+j])
			st.o[j] = sigmoid(zr[3*hd+j] + bias[3*hd+j])
			st.c[j] = st.f[j]*c[j] + st.i[j]*st.g[j]
			st.tanhC[j] = math.Tanh(st.c[j])
			st.h[j] = st.o[j] * st.tanhC[j]
		}
		caches = append(caches, st)
		h, c = st.h, st.c
	}
	return caches
}

// backward accumulates parameter gradients through time given the loss gradient with respect
// to every hidden output. A nil entry in dhs is treated as zero. The gradient with respect to
// every input is returned.
func (l *lstmLayer) backward(caches []*lstmCache, dhs [][]float64) [][]float64 {
	hd := l.hidden
	wx := mat.NewDense(4*hd, l.in, l.wx.w)
	wh := mat.NewDense(4*hd, hd, l.wh.w)
	gwx := mat.NewDense(4*hd, l.in, l.wx.grad)
	gwh := mat.NewDense(4*hd, hd, l.wh.grad)
	gb := l.b.grad

	dz := make([]float64, 4*hd)
	dzVec := mat.NewVecDense(4*hd, dz)
	dhNext := make([]float64, hd)
	dcNext := make([]float64, hd)

	dxs := make([][]float64, len(caches))
	for t := len(caches) - 1; t >= 0; t-- {
		st := caches[t]
		for j := 0; j < hd; j++ {
			dh := dhNext[j]
			if dhs[t] != nil {
				dh += dhs[t][j]
			}
			do := dh * st.tanhC[j]
			dc := dcNext[j] + dh*st.o[j]*(1-st.tanhC[j]*st.tanhC[j])
			di := dc * st.g[j]
			dg := dc * st.i[j]
			df := dc * st.cPrev[j]
			dcNext[j] = dc * st.f[j]

			dz[j] = di * st.i[j] * (1 - st.i[j])
			dz[hd+j] = df * st.f[j] * (1 - st.f[j])
			dz[2*hd+j] = dg * (1 - st.g[j]*st.g[j])
			dz[3*hd+j] = do * st.o[j] * (1 - st.o[j])
		}
		floatsunrolled.Add(gb, dz)
		gwx.RankOne(gwx, 1, dzVec, mat.NewVecDense(l.in, st.x))
		gwh.RankOne(gwh, 1, dzVec, mat.NewVecDense(hd, st.hPrev))

		dx := mat.NewVecDense(l.in, nil)
		dx.MulVec(wx.T(), dzVec)
		dxs[t] = dx.RawVector().Data

		dhPrev := mat.NewVecDense(hd, nil)
		dhPrev.MulVec(wh.T(), dzVec)
		dhNext = dhPrev.RawVector().Data
	}
	return dxs
}

// denseLayer is a fully connected layer with an optional relu activation
type denseLayer struct {
	in   int
	out  int
	relu bool
	w    *param // out x in
	b    *param // out
}

func newDenseLayer(in, out int, relu bool, rng *rand.Rand) *denseLayer {
	return &denseLayer{
		in:   in,
		out:  out,
		relu: relu,
		w:    newParam(glorotUniform(out, in, rng)),
		b:    newParam(make([]float64, out)),
	}
}

func (d *denseLayer) params() []*param {
	return []*param{d.w, d.b}
}

// forward returns the pre-activation and activation outputs
func (d *denseLayer) forward(x []float64) ([]float64, []float64) {
	w := mat.NewDense(d.out, d.in, d.w.w)
	z := mat.NewVecDense(d.out, nil)
	z.MulVec(w, mat.NewVecDense(d.in, x))

	pre := floatsunrolled.Add(z.RawVector().Data, d.b.w)
	act := make([]float64, d.out)
	for j := range pre {
		act[j] = pre[j]
		if d.relu && act[j] < 0 {
			act[j] = 0
		}
	}
	return pre, act
}

// backward accumulates gradients given the loss gradient with respect to the activation
// outputs and returns the gradient with respect to the input.
func (d *denseLayer) backward(x, pre, dAct []float64) []float64 {
	dz := make([]float64, d.out)
	for j, g := range dAct {
		if d.relu && pre[j] <= 0 {
			continue
		}
		dz[j] = g
		d.b.grad[j] += g
	}
	dzVec := mat.NewVecDense(d.out, dz)

	gw := mat.NewDense(d.out, d.in, d.w.grad)
	gw.RankOne(gw, 1, dzVec, mat.NewVecDense(d.in, x))

	w := mat.NewDense(d.out, d.in, d.w.w)
	dx := mat.NewVecDense(d.in, nil)
	dx.MulVec(w.T(), dzVec)
	return dx.RawVector().Data
}

// network stacks two recurrent layers, a relu dense layer and a linear scalar output
type network struct {
	lstm1  *lstmLayer
	lstm2  *lstmLayer
	hidden *denseLayer
	output *denseLayer
}

func newNetwork(opt *RecurrentOptions, rng *rand.Rand) *network {
	return &network{
		lstm1:  newLSTMLayer(1, opt.Hidden1, rng),
		lstm2:  newLSTMLayer(opt.Hidden1, opt.Hidden2, rng),
		hidden: newDenseLayer(opt.Hidden2, opt.Dense, true, rng),
		output: newDenseLayer(opt.Dense, 1, false, rng),
	}
}

func (n *network) params() []*param {
	var ps []*param
	ps = append(ps, n.lstm1.params()...)
	ps = append(ps, n.lstm2.params()...)
	ps = append(ps, n.hidden.params()...)
	ps = append(ps, n.output.params()...)
	return ps
}

func (n *network) zeroGrad() {
	for _, p := range n.params() {
		p.zeroGrad()
	}
}

type trace struct {
	c1  []*lstmCache
	c2  []*lstmCache
	h2  []float64
	pre []float64
	act []float64
}

func (n *network) forward(window []float64) (float64, *trace) {
	xs := make([][]float64, len(window))
	for t, v := range window {
		xs[t] = []float64{v}
	}
	tr := &trace{}
	tr.c1 = n.lstm1.forward(xs)

	hs := make([][]float64, len(tr.c1))
	for t, st := range tr.c1 {
		hs[t] = st.h
	}
	tr.c2 = n.lstm2.forward(hs)
	tr.h2 = tr.c2[len(tr.c2)-1].h

	tr.pre, tr.act = n.hidden.forward(tr.h2)
	_, out := n.output.forward(tr.act)
	return out[0], tr
}

// backward accumulates the gradients of a single sample given dOut, the loss gradient with
// respect to the network output
func (n *network) backward(tr *trace, dOut float64) {
	dAct := n.output.backward(tr.act, nil, []float64{dOut})
	dh2 := n.hidden.backward(tr.h2, tr.pre, dAct)

	dhs2 := make([][]float64, len(tr.c2))
	dhs2[len(dhs2)-1] = dh2
	dhs1 := n.lstm2.backward(tr.c2, dhs2)
	n.lstm1.backward(tr.c1, dhs1)
}
