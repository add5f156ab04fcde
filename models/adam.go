package models

import (
	"math"

	"github.com/aouyang1/go-sensorcast/floatsunrolled"
)

// param is a trainable tensor stored flat in row order along with its gradient and the adam
// moment estimates.
type param struct {
	w    []float64
	grad []float64
	m    []float64
	v    []float64
}

func newParam(w []float64) *param {
	return &param{
		w:    w,
		grad: make([]float64, len(w)),
		m:    make([]float64, len(w)),
		v:    make([]float64, len(w)),
	}
}

func (p *param) zeroGrad() {
	clear(p.grad)
}

// adam implements the adaptive moment estimation optimizer
type adam struct {
	lr    float64
	beta1 float64
	beta2 float64
	eps   float64
	t     int
}

func newAdam(lr float64) *adam {
	return &adam{
		lr:    lr,
		beta1: 0.9,
		beta2: 0.999,
		eps:   1e-7,
	}
}

func (a *adam) step(params []*param) {
	a.t++
	c1 := 1 - math.Pow(a.beta1, float64(a.t))
	c2 := 1 - math.Pow(a.beta2, float64(a.t))
	for _, p := range params {
		for i, g := range p.grad {
			p.m[i] = a.beta1*p.m[i] + (1-a.beta1)*g
			p.v[i] = a.beta2*p.v[i] + (1-a.beta2)*g*g
			mHat := p.m[i] / c1
			vHat := p.v[i] / c2
			p.w[i] -= a.lr * mHat / (math.Sqrt(vHat) + a.eps)
		}
	}
}

// clipGradNorm rescales all gradients when their global L2 norm exceeds maxNorm and returns
// the norm before clipping.
func clipGradNorm(params []*param, maxNorm float64) float64 {
	var sq float64
	for _, p := range params {
		sq += floatsunrolled.Dot(p.grad, p.grad)
	}
	norm := math.Sqrt(sq)
	if maxNorm <= 0 || norm <= maxNorm {
		return norm
	}
	scale := maxNorm / norm
	for _, p := range params {
		floatsunrolled.ScaleTo(p.grad, scale, p.grad)
	}
	return norm
}
