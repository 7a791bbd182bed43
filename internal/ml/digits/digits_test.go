package digits

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idxBytes(dims []int, data []byte) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, idxUnsignedByte, byte(len(dims))})
	for _, d := range dims {
		_ = binary.Write(&buf, binary.BigEndian, uint32(d))
	}
	buf.Write(data)
	return buf.Bytes()
}

func TestReadIDX(t *testing.T) {
	dims, data, err := ReadIDX(bytes.NewReader(idxBytes([]int{2, 3}, []byte{1, 2, 3, 4, 5, 6})))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, dims)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, data)

	tests := []struct {
		name string
		data []byte
	}{
		{"short", []byte{0, 0}},
		{"float type", []byte{0, 0, 0x0D, 1, 0, 0, 0, 1, 0}},
		{"truncated body", idxBytes([]int{4}, []byte{1, 2})},
		{"zero dimension", idxBytes([]int{4_000_000_000, 0, 28}, nil)},
		{"too many elements", idxBytes([]int{4_000_000_000, 28, 28}, nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ReadIDX(bytes.NewReader(tt.data))
			assert.ErrorIs(t, err, ErrFormat)
		})
	}
}

func TestLoadImagesAndLabels(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "images.idx")
	require.NoError(t, os.WriteFile(imgPath, idxBytes([]int{2, 2, 2}, []byte{0, 255, 51, 102, 255, 0, 0, 0}), 0o644))

	images, shape, err := LoadImages(imgPath)
	require.NoError(t, err)
	assert.Equal(t, Shape{H: 2, W: 2, C: 1}, shape)
	require.Len(t, images, 2)
	assert.InDeltaSlice(t, []float64{0, 1, 0.2, 0.4}, images[0], 1e-12)

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	_, err = zw.Write(idxBytes([]int{3}, []byte{7, 0, 9}))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	labelPath := filepath.Join(dir, "labels.idx.gz")
	require.NoError(t, os.WriteFile(labelPath, gz.Bytes(), 0o644))

	labels, err := LoadLabels(labelPath)
	require.NoError(t, err)
	assert.Equal(t, []int{7, 0, 9}, labels)

	_, err = LoadLabels(imgPath)
	assert.ErrorIs(t, err, ErrFormat, "image file is not a label file")
	_, _, err = LoadImages(labelPath)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestNewCNN_Shapes(t *testing.T) {
	n, err := NewCNN(1)
	require.NoError(t, err)

	assert.Equal(t, []Shape{
		{26, 26, 32},
		{13, 13, 32},
		{11, 11, 64},
		{5, 5, 64},
		{1, 1, 1600},
		{1, 1, 128},
		{1, 1, 128},
		{1, 1, 10},
	}, n.Shapes())
	assert.Equal(t, 225034, n.ParamCount())
	assert.Equal(t, MNISTLayers, n.Specs())

	digit, probs, err := n.Predict(make([]float64, ImageSize*ImageSize))
	require.NoError(t, err)
	assert.True(t, digit >= 0 && digit < Classes)
	sum := 0.0
	for _, p := range probs {
		sum += p
	}
	assert.InDelta(t, 1, sum, 1e-9)

	_, _, err = n.Predict(make([]float64, 5))
	assert.ErrorIs(t, err, ErrConfig)
}

func TestBuild_Errors(t *testing.T) {
	in := Shape{H: 4, W: 4, C: 1}
	tests := []struct {
		name  string
		specs []LayerSpec
	}{
		{"no layers", nil},
		{"kernel too big", []LayerSpec{{Kind: KindConv2D, Filters: 2, Kernel: 5}}},
		{"bad activation", []LayerSpec{{Kind: KindDense, Units: 2, Activation: "tanh"}}},
		{"pool too big", []LayerSpec{{Kind: KindMaxPool2D, Pool: 8}}},
		{"dropout rate", []LayerSpec{{Kind: KindDropout, Rate: 1}}},
		{"unknown", []LayerSpec{{Kind: "lstm"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(in, tt.specs, 1)
			assert.ErrorIs(t, err, ErrConfig)
		})
	}
}

func TestGradients_MatchNumeric(t *testing.T) {
	n, err := Build(Shape{H: 5, W: 5, C: 2}, []LayerSpec{
		{Kind: KindConv2D, Filters: 3, Kernel: 2},
		{Kind: KindMaxPool2D, Pool: 2},
		{Kind: KindFlatten},
		{Kind: KindDense, Units: 4, Activation: ActivationReLU},
		{Kind: KindDense, Units: 3, Activation: ActivationSoftmax},
	}, 3)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(9))
	x := make([]float64, n.Input.Size())
	for i := range x {
		x[i] = rng.Float64()
	}
	// Keep the hidden ReLUs away from zero so the numeric derivative is smooth.
	hidden := n.layers[3].(*dense)
	for i := range hidden.b.value {
		hidden.b.value[i] = 1
	}
	const label = 2

	loss := func() float64 { return crossEntropy(n.forward(x, false, nil), label) }

	probs := n.forward(x, true, nil)
	dy := append([]float64(nil), probs...)
	dy[label]--
	n.backward(dy)

	const h = 1e-6
	for k, p := range n.params() {
		for i := 0; i < len(p.value); i += 3 {
			orig := p.value[i]
			p.value[i] = orig + h
			plus := loss()
			p.value[i] = orig - h
			minus := loss()
			p.value[i] = orig

			numeric := (plus - minus) / (2 * h)
			assert.InDelta(t, numeric, p.grad[i], 1e-5, "param set %d index %d", k, i)
		}
	}
}

func TestDropout(t *testing.T) {
	l := newDropout(Shape{H: 1, W: 1, C: 1000}, 0.5)
	x := make([]float64, 1000)
	for i := range x {
		x[i] = 1
	}

	assert.Equal(t, x, l.forward(x, false, nil), "identity at inference")

	y := l.forward(x, true, rand.New(rand.NewSource(1)))
	zeros := 0
	for _, v := range y {
		if v == 0 {
			zeros++
		} else {
			assert.Equal(t, 2.0, v)
		}
	}
	assert.InDelta(t, 500, zeros, 60)

	dx := l.backward(x)
	for i := range dx {
		assert.Equal(t, y[i], dx[i])
	}
}

// stripes builds 6×6 images with a bright left half (class 0) or right half (class 1).
func stripes(n int, seed int64) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]int, n)
	for i := range X {
		y[i] = i % 2
		img := make([]float64, 36)
		for r := 0; r < 6; r++ {
			for c := 0; c < 6; c++ {
				v := rng.Float64() * 0.2
				if (c < 3) == (y[i] == 0) {
					v += 0.8
				}
				img[r*6+c] = v
			}
		}
		X[i] = img
	}
	return X, y
}

func tinyNet(t *testing.T) *Network {
	t.Helper()
	n, err := Build(Shape{H: 6, W: 6, C: 1}, []LayerSpec{
		{Kind: KindConv2D, Filters: 4, Kernel: 3, Activation: ActivationReLU},
		{Kind: KindMaxPool2D, Pool: 2},
		{Kind: KindFlatten},
		{Kind: KindDense, Units: 8, Activation: ActivationReLU},
		{Kind: KindDropout, Rate: 0.2},
		{Kind: KindDense, Units: 2, Activation: ActivationSoftmax},
	}, 5)
	require.NoError(t, err)
	return n
}

func TestTrain_LearnsStripes(t *testing.T) {
	X, y := stripes(200, 1)
	valX, valY := stripes(60, 2)
	n := tinyNet(t)

	var epochs []EpochStats
	err := n.Train(context.Background(), X, y, valX, valY,
		TrainConfig{Epochs: 8, BatchSize: 16, LearningRate: 0.01, Seed: 3, Workers: 3},
		func(s EpochStats) { epochs = append(epochs, s) })
	require.NoError(t, err)

	require.Len(t, epochs, 8)
	last := epochs[len(epochs)-1]
	assert.Less(t, last.Loss, epochs[0].Loss)
	assert.GreaterOrEqual(t, last.ValAccuracy, 0.95)

	loss, acc, err := n.Evaluate(context.Background(), valX, valY, 2)
	require.NoError(t, err)
	assert.InDelta(t, last.ValLoss, loss, 1e-9)
	assert.InDelta(t, last.ValAccuracy, acc, 1e-9)
}

func TestTrain_Errors(t *testing.T) {
	n := tinyNet(t)
	X, y := stripes(4, 1)

	err := n.Train(context.Background(), X, y[:2], nil, nil, TrainConfig{}, nil)
	assert.ErrorIs(t, err, ErrConfig)

	err = n.Train(context.Background(), X, []int{0, 1, 5, 0}, nil, nil, TrainConfig{}, nil)
	assert.ErrorIs(t, err, ErrConfig)

	noSoftmax, err := Build(Shape{H: 1, W: 1, C: 2}, []LayerSpec{{Kind: KindDense, Units: 2}}, 1)
	require.NoError(t, err)
	err = noSoftmax.Train(context.Background(), [][]float64{{1, 2}}, []int{0}, nil, nil, TrainConfig{}, nil)
	assert.ErrorIs(t, err, ErrConfig)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = n.Train(ctx, X, y, nil, nil, TrainConfig{Epochs: 1}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

// cancelAfter reports context.Canceled once Err has been called more than n times.
type cancelAfter struct {
	context.Context
	mu sync.Mutex
	n  int
}

func (c *cancelAfter) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n--
	if c.n < 0 {
		return context.Canceled
	}
	return nil
}

func TestTrain_CancelledMidBatch(t *testing.T) {
	n := tinyNet(t)
	X, y := stripes(8, 1)

	ctx := &cancelAfter{Context: context.Background(), n: 1}
	err := n.Train(ctx, X, y, nil, nil, TrainConfig{Epochs: 1, BatchSize: 8, Workers: 2}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSaveLoad(t *testing.T) {
	n := tinyNet(t)
	X, _ := stripes(3, 4)
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, n.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, n.Specs(), loaded.Specs())
	for _, x := range X {
		want, err := n.Probabilities(x)
		require.NoError(t, err)
		got, err := loaded.Probabilities(x)
		require.NoError(t, err)
		assert.InDeltaSlice(t, want, got, 1e-12)
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"input":{"h":2,"w":2,"c":1},"layers":[{"kind":"flatten"},{"kind":"dense","units":2,"params":[[1]]}]}`), 0o644))
	_, err = Load(bad)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestPrepareImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 56, 56))
	for y := 0; y < 56; y++ {
		for x := 0; x < 56; x++ {
			c := color.RGBA{R: 255, G: 255, B: 255, A: 255}
			if x >= 20 && x < 36 && y >= 20 && y < 36 {
				c = color.RGBA{A: 255}
			}
			img.Set(x, y, c)
		}
	}

	out := PrepareImage(img)
	require.Len(t, out, ImageSize*ImageSize)
	assert.InDelta(t, 0, out[0], 1e-9, "white background becomes 0")
	assert.InDelta(t, 1, out[14*ImageSize+14], 1e-9, "black ink becomes 1")
	for _, v := range out {
		assert.False(t, math.IsNaN(v))
		assert.True(t, v >= 0 && v <= 1)
	}

	path := filepath.Join(t.TempDir(), "digit.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	decoded, err := LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, out, PrepareImage(decoded))

	_, err = LoadImage(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}
