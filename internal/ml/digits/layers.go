package digits

import (
	"math"
	"math/rand"
)

// Shape is a height × width × channels activation volume stored in HWC order.
type Shape struct {
	H int `json:"h"`
	W int `json:"w"`
	C int `json:"c"`
}

// Size is the number of values in the volume.
func (s Shape) Size() int { return s.H * s.W * s.C }

// Layer kinds.
const (
	KindConv2D    = "conv2d"
	KindMaxPool2D = "maxpool2d"
	KindFlatten   = "flatten"
	KindDense     = "dense"
	KindDropout   = "dropout"
)

// Activations.
const (
	ActivationNone    = ""
	ActivationReLU    = "relu"
	ActivationSoftmax = "softmax"
)

// LayerSpec declares one layer of a sequential network.
type LayerSpec struct {
	Kind       string  `json:"kind"`
	Filters    int     `json:"filters,omitempty"`
	Kernel     int     `json:"kernel,omitempty"`
	Pool       int     `json:"pool,omitempty"`
	Units      int     `json:"units,omitempty"`
	Rate       float64 `json:"rate,omitempty"`
	Activation string  `json:"activation,omitempty"`
}

type param struct {
	value []float64
	grad  []float64
}

func newParam(n int) *param {
	return &param{value: make([]float64, n), grad: make([]float64, n)}
}

func (p *param) share() *param {
	return &param{value: p.value, grad: make([]float64, len(p.value))}
}

// glorot fills p with Glorot-uniform values.
func (p *param) glorot(fanIn, fanOut int, rng *rand.Rand) {
	limit := math.Sqrt(6 / float64(fanIn+fanOut))
	for i := range p.value {
		p.value[i] = (rng.Float64()*2 - 1) * limit
	}
}

// layer caches its last input and output, so a layer value serves one
// goroutine. replica shares weights but not caches or gradients.
type layer interface {
	spec() LayerSpec
	outShape() Shape
	forward(x []float64, train bool, rng *rand.Rand) []float64
	backward(dy []float64) []float64
	params() []*param
	replica() layer
}

type conv2D struct {
	in, out Shape
	k       int
	relu    bool
	w, b    *param
	x, y    []float64
	dx      []float64
}

func newConv2D(in Shape, filters, k int, relu bool) *conv2D {
	out := Shape{H: in.H - k + 1, W: in.W - k + 1, C: filters}
	return &conv2D{
		in:   in,
		out:  out,
		k:    k,
		relu: relu,
		w:    newParam(filters * k * k * in.C),
		b:    newParam(filters),
		y:    make([]float64, out.Size()),
		dx:   make([]float64, in.Size()),
	}
}

func (l *conv2D) spec() LayerSpec {
	s := LayerSpec{Kind: KindConv2D, Filters: l.out.C, Kernel: l.k}
	if l.relu {
		s.Activation = ActivationReLU
	}
	return s
}

func (l *conv2D) outShape() Shape  { return l.out }
func (l *conv2D) params() []*param { return []*param{l.w, l.b} }

func (l *conv2D) replica() layer {
	r := newConv2D(l.in, l.out.C, l.k, l.relu)
	r.w, r.b = l.w.share(), l.b.share()
	return r
}

func (l *conv2D) forward(x []float64, _ bool, _ *rand.Rand) []float64 {
	l.x = x
	span := l.k * l.in.C
	kernel := l.k * span
	w, b := l.w.value, l.b.value

	for oy := 0; oy < l.out.H; oy++ {
		for ox := 0; ox < l.out.W; ox++ {
			o := (oy*l.out.W + ox) * l.out.C
			for f := 0; f < l.out.C; f++ {
				sum := b[f]
				wf := w[f*kernel : (f+1)*kernel]
				for ky := 0; ky < l.k; ky++ {
					xs := x[((oy+ky)*l.in.W+ox)*l.in.C:]
					ws := wf[ky*span:]
					for t := 0; t < span; t++ {
						sum += xs[t] * ws[t]
					}
				}
				if l.relu && sum < 0 {
					sum = 0
				}
				l.y[o+f] = sum
			}
		}
	}
	return l.y
}

func (l *conv2D) backward(dy []float64) []float64 {
	clear(l.dx)
	span := l.k * l.in.C
	kernel := l.k * span
	w, gw, gb := l.w.value, l.w.grad, l.b.grad

	for oy := 0; oy < l.out.H; oy++ {
		for ox := 0; ox < l.out.W; ox++ {
			o := (oy*l.out.W + ox) * l.out.C
			for f := 0; f < l.out.C; f++ {
				g := dy[o+f]
				if g == 0 || (l.relu && l.y[o+f] <= 0) {
					continue
				}
				gb[f] += g
				for ky := 0; ky < l.k; ky++ {
					base := ((oy+ky)*l.in.W + ox) * l.in.C
					wo := f*kernel + ky*span
					for t := 0; t < span; t++ {
						gw[wo+t] += g * l.x[base+t]
						l.dx[base+t] += g * w[wo+t]
					}
				}
			}
		}
	}
	return l.dx
}

type maxPool2D struct {
	in, out Shape
	size    int
	y       []float64
	arg     []int
	dx      []float64
}

func newMaxPool2D(in Shape, size int) *maxPool2D {
	out := Shape{H: in.H / size, W: in.W / size, C: in.C}
	return &maxPool2D{
		in:   in,
		out:  out,
		size: size,
		y:    make([]float64, out.Size()),
		arg:  make([]int, out.Size()),
		dx:   make([]float64, in.Size()),
	}
}

func (l *maxPool2D) spec() LayerSpec  { return LayerSpec{Kind: KindMaxPool2D, Pool: l.size} }
func (l *maxPool2D) outShape() Shape  { return l.out }
func (l *maxPool2D) params() []*param { return nil }
func (l *maxPool2D) replica() layer   { return newMaxPool2D(l.in, l.size) }

func (l *maxPool2D) forward(x []float64, _ bool, _ *rand.Rand) []float64 {
	for oy := 0; oy < l.out.H; oy++ {
		for ox := 0; ox < l.out.W; ox++ {
			for c := 0; c < l.out.C; c++ {
				best, bestIdx := math.Inf(-1), 0
				for dy := 0; dy < l.size; dy++ {
					for dx := 0; dx < l.size; dx++ {
						i := ((oy*l.size+dy)*l.in.W+ox*l.size+dx)*l.in.C + c
						if x[i] > best {
							best, bestIdx = x[i], i
						}
					}
				}
				o := (oy*l.out.W+ox)*l.out.C + c
				l.y[o], l.arg[o] = best, bestIdx
			}
		}
	}
	return l.y
}

func (l *maxPool2D) backward(dy []float64) []float64 {
	clear(l.dx)
	for o, i := range l.arg {
		l.dx[i] += dy[o]
	}
	return l.dx
}

type flatten struct{ out Shape }

func (l *flatten) spec() LayerSpec                 { return LayerSpec{Kind: KindFlatten} }
func (l *flatten) outShape() Shape                 { return l.out }
func (l *flatten) params() []*param                { return nil }
func (l *flatten) replica() layer                  { return &flatten{out: l.out} }
func (l *flatten) backward(dy []float64) []float64 { return dy }

func (l *flatten) forward(x []float64, _ bool, _ *rand.Rand) []float64 {
	return x
}

// dense is a fully connected layer. With softmax activation, backward takes
// the cross-entropy gradient with respect to the logits.
type dense struct {
	in, units  int
	activation string
	w, b       *param
	x, y       []float64
	g, dx      []float64
}

func newDense(in, units int, activation string) *dense {
	return &dense{
		in:         in,
		units:      units,
		activation: activation,
		w:          newParam(in * units),
		b:          newParam(units),
		y:          make([]float64, units),
		g:          make([]float64, units),
		dx:         make([]float64, in),
	}
}

func (l *dense) spec() LayerSpec {
	return LayerSpec{Kind: KindDense, Units: l.units, Activation: l.activation}
}

func (l *dense) outShape() Shape  { return Shape{H: 1, W: 1, C: l.units} }
func (l *dense) params() []*param { return []*param{l.w, l.b} }

func (l *dense) replica() layer {
	r := newDense(l.in, l.units, l.activation)
	r.w, r.b = l.w.share(), l.b.share()
	return r
}

func (l *dense) forward(x []float64, _ bool, _ *rand.Rand) []float64 {
	l.x = x
	w, b := l.w.value, l.b.value
	for j := 0; j < l.units; j++ {
		sum := b[j]
		row := w[j*l.in : (j+1)*l.in]
		for i, v := range x {
			sum += row[i] * v
		}
		l.y[j] = sum
	}

	switch l.activation {
	case ActivationReLU:
		for j, v := range l.y {
			if v < 0 {
				l.y[j] = 0
			}
		}
	case ActivationSoftmax:
		softmax(l.y)
	}
	return l.y
}

func (l *dense) backward(dy []float64) []float64 {
	copy(l.g, dy)
	if l.activation == ActivationReLU {
		for j, v := range l.y {
			if v <= 0 {
				l.g[j] = 0
			}
		}
	}

	clear(l.dx)
	w, gw, gb := l.w.value, l.w.grad, l.b.grad
	for j, g := range l.g {
		if g == 0 {
			continue
		}
		gb[j] += g
		row := w[j*l.in : (j+1)*l.in]
		grow := gw[j*l.in : (j+1)*l.in]
		for i, v := range l.x {
			grow[i] += g * v
			l.dx[i] += g * row[i]
		}
	}
	return l.dx
}

func softmax(z []float64) {
	peak := math.Inf(-1)
	for _, v := range z {
		peak = math.Max(peak, v)
	}
	sum := 0.0
	for i, v := range z {
		z[i] = math.Exp(v - peak)
		sum += z[i]
	}
	for i := range z {
		z[i] /= sum
	}
}

// dropout zeroes inputs with probability rate during training and scales
// survivors by 1/(1-rate). It is the identity at inference.
type dropout struct {
	shape   Shape
	rate    float64
	mask    []float64
	y, dx   []float64
	trained bool
}

func newDropout(shape Shape, rate float64) *dropout {
	return &dropout{
		shape: shape,
		rate:  rate,
		mask:  make([]float64, shape.Size()),
		y:     make([]float64, shape.Size()),
		dx:    make([]float64, shape.Size()),
	}
}

func (l *dropout) spec() LayerSpec  { return LayerSpec{Kind: KindDropout, Rate: l.rate} }
func (l *dropout) outShape() Shape  { return l.shape }
func (l *dropout) params() []*param { return nil }
func (l *dropout) replica() layer   { return newDropout(l.shape, l.rate) }

func (l *dropout) forward(x []float64, train bool, rng *rand.Rand) []float64 {
	l.trained = train && l.rate > 0
	if !l.trained {
		return x
	}
	keep := 1 / (1 - l.rate)
	for i, v := range x {
		if rng.Float64() < l.rate {
			l.mask[i] = 0
		} else {
			l.mask[i] = keep
		}
		l.y[i] = v * l.mask[i]
	}
	return l.y
}

func (l *dropout) backward(dy []float64) []float64 {
	if !l.trained {
		return dy
	}
	for i, g := range dy {
		l.dx[i] = g * l.mask[i]
	}
	return l.dx
}
