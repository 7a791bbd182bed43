package digits

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
)

const (
	// ImageSize is the side length of an input image.
	ImageSize = 28
	// Classes is the number of digits.
	Classes = 10
)

// ErrConfig is returned for layer stacks that cannot be built.
var ErrConfig = errors.New("invalid network configuration")

// MNISTLayers is the digit classifier: two conv/pool stages, a 128-unit
// hidden layer with dropout and a softmax over the ten digits.
var MNISTLayers = []LayerSpec{
	{Kind: KindConv2D, Filters: 32, Kernel: 3, Activation: ActivationReLU},
	{Kind: KindMaxPool2D, Pool: 2},
	{Kind: KindConv2D, Filters: 64, Kernel: 3, Activation: ActivationReLU},
	{Kind: KindMaxPool2D, Pool: 2},
	{Kind: KindFlatten},
	{Kind: KindDense, Units: 128, Activation: ActivationReLU},
	{Kind: KindDropout, Rate: 0.5},
	{Kind: KindDense, Units: Classes, Activation: ActivationSoftmax},
}

// Network is a sequential stack of layers. Its methods are not safe for
// concurrent use; Train and Evaluate fan out over private replicas.
type Network struct {
	Input  Shape
	layers []layer
}

// NewCNN builds MNISTLayers over 28×28 grayscale input.
func NewCNN(seed int64) (*Network, error) {
	return Build(Shape{H: ImageSize, W: ImageSize, C: 1}, MNISTLayers, seed)
}

// Build creates a network with Glorot-initialised weights.
func Build(input Shape, specs []LayerSpec, seed int64) (*Network, error) {
	if input.Size() <= 0 {
		return nil, fmt.Errorf("%w: empty input shape %+v", ErrConfig, input)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: no layers", ErrConfig)
	}

	rng := rand.New(rand.NewSource(seed))
	n := &Network{Input: input}
	shape := input
	for i, s := range specs {
		l, err := newLayer(shape, s, rng)
		if err != nil {
			return nil, fmt.Errorf("layer %d (%s): %w", i, s.Kind, err)
		}
		n.layers = append(n.layers, l)
		shape = l.outShape()
	}
	return n, nil
}

func newLayer(in Shape, s LayerSpec, rng *rand.Rand) (layer, error) {
	switch s.Kind {
	case KindConv2D:
		if s.Filters <= 0 || s.Kernel <= 0 || s.Kernel > in.H || s.Kernel > in.W {
			return nil, fmt.Errorf("%w: conv2d needs filters > 0 and a kernel within %dx%d", ErrConfig, in.H, in.W)
		}
		if s.Activation != ActivationNone && s.Activation != ActivationReLU {
			return nil, fmt.Errorf("%w: conv2d activation %q", ErrConfig, s.Activation)
		}
		l := newConv2D(in, s.Filters, s.Kernel, s.Activation == ActivationReLU)
		l.w.glorot(s.Kernel*s.Kernel*in.C, s.Kernel*s.Kernel*s.Filters, rng)
		return l, nil
	case KindMaxPool2D:
		if s.Pool <= 0 || in.H/s.Pool == 0 || in.W/s.Pool == 0 {
			return nil, fmt.Errorf("%w: pool size %d for %dx%d input", ErrConfig, s.Pool, in.H, in.W)
		}
		return newMaxPool2D(in, s.Pool), nil
	case KindFlatten:
		return &flatten{out: Shape{H: 1, W: 1, C: in.Size()}}, nil
	case KindDense:
		if s.Units <= 0 {
			return nil, fmt.Errorf("%w: dense needs units > 0", ErrConfig)
		}
		switch s.Activation {
		case ActivationNone, ActivationReLU, ActivationSoftmax:
		default:
			return nil, fmt.Errorf("%w: dense activation %q", ErrConfig, s.Activation)
		}
		l := newDense(in.Size(), s.Units, s.Activation)
		l.w.glorot(in.Size(), s.Units, rng)
		return l, nil
	case KindDropout:
		if s.Rate < 0 || s.Rate >= 1 {
			return nil, fmt.Errorf("%w: dropout rate %v", ErrConfig, s.Rate)
		}
		return newDropout(in, s.Rate), nil
	default:
		return nil, fmt.Errorf("%w: unknown layer kind %q", ErrConfig, s.Kind)
	}
}

// Specs returns the layer declarations.
func (n *Network) Specs() []LayerSpec {
	out := make([]LayerSpec, len(n.layers))
	for i, l := range n.layers {
		out[i] = l.spec()
	}
	return out
}

// Shapes returns each layer's output shape.
func (n *Network) Shapes() []Shape {
	out := make([]Shape, len(n.layers))
	for i, l := range n.layers {
		out[i] = l.outShape()
	}
	return out
}

// ParamCount is the number of trainable weights.
func (n *Network) ParamCount() int {
	total := 0
	for _, p := range n.params() {
		total += len(p.value)
	}
	return total
}

func (n *Network) params() []*param {
	var out []*param
	for _, l := range n.layers {
		out = append(out, l.params()...)
	}
	return out
}

func (n *Network) replica() *Network {
	r := &Network{Input: n.Input, layers: make([]layer, len(n.layers))}
	for i, l := range n.layers {
		r.layers[i] = l.replica()
	}
	return r
}

func (n *Network) forward(x []float64, train bool, rng *rand.Rand) []float64 {
	for _, l := range n.layers {
		x = l.forward(x, train, rng)
	}
	return x
}

func (n *Network) backward(dy []float64) {
	for i := len(n.layers) - 1; i >= 0; i-- {
		dy = n.layers[i].backward(dy)
	}
}

func (n *Network) outputsSoftmax() bool {
	if len(n.layers) == 0 {
		return false
	}
	s := n.layers[len(n.layers)-1].spec()
	return s.Kind == KindDense && s.Activation == ActivationSoftmax
}

// Probabilities runs inference on one input of Input.Size() values.
func (n *Network) Probabilities(x []float64) ([]float64, error) {
	if len(x) != n.Input.Size() {
		return nil, fmt.Errorf("%w: input has %d values, want %d", ErrConfig, len(x), n.Input.Size())
	}
	return append([]float64(nil), n.forward(x, false, nil)...), nil
}

// Predict returns the most probable class and the class probabilities.
func (n *Network) Predict(x []float64) (int, []float64, error) {
	probs, err := n.Probabilities(x)
	if err != nil {
		return 0, nil, err
	}
	return argmax(probs), probs, nil
}

func argmax(v []float64) int {
	best := 0
	for i := range v {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

type savedLayer struct {
	LayerSpec
	Params [][]float64 `json:"params,omitempty"`
}

type savedNetwork struct {
	Input  Shape        `json:"input"`
	Layers []savedLayer `json:"layers"`
}

// Save writes the architecture and weights as JSON.
func (n *Network) Save(path string) error {
	saved := savedNetwork{Input: n.Input}
	for _, l := range n.layers {
		sl := savedLayer{LayerSpec: l.spec()}
		for _, p := range l.params() {
			sl.Params = append(sl.Params, p.value)
		}
		saved.Layers = append(saved.Layers, sl)
	}
	data, err := json.Marshal(saved)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads a network written by Save.
func Load(path string) (*Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var saved savedNetwork
	if err := json.Unmarshal(data, &saved); err != nil {
		return nil, fmt.Errorf("failed to decode network: %w", err)
	}

	specs := make([]LayerSpec, len(saved.Layers))
	for i, sl := range saved.Layers {
		specs[i] = sl.LayerSpec
	}
	n, err := Build(saved.Input, specs, 0)
	if err != nil {
		return nil, err
	}
	for i, l := range n.layers {
		params := l.params()
		if len(params) != len(saved.Layers[i].Params) {
			return nil, fmt.Errorf("%w: layer %d has %d parameter sets, want %d", ErrConfig, i, len(saved.Layers[i].Params), len(params))
		}
		for j, p := range params {
			if len(p.value) != len(saved.Layers[i].Params[j]) {
				return nil, fmt.Errorf("%w: layer %d parameter %d has %d values, want %d", ErrConfig, i, j, len(saved.Layers[i].Params[j]), len(p.value))
			}
			copy(p.value, saved.Layers[i].Params[j])
		}
	}
	return n, nil
}
