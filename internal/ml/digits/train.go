package digits

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// TrainConfig controls Train. Zero values take the defaults noted.
type TrainConfig struct {
	Epochs       int     // default 5
	BatchSize    int     // default 128
	LearningRate float64 // Adam step size, default 0.001
	Seed         int64
	Workers      int // default GOMAXPROCS
}

func (c *TrainConfig) normalize() {
	if c.Epochs <= 0 {
		c.Epochs = 5
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 128
	}
	if c.LearningRate <= 0 {
		c.LearningRate = 0.001
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	c.Workers = min(c.Workers, c.BatchSize)
}

// EpochStats summarises one training epoch.
type EpochStats struct {
	Epoch       int
	Loss        float64
	Accuracy    float64
	ValLoss     float64
	ValAccuracy float64
}

type adam struct {
	lr, beta1, beta2, eps float64
	t                     int
	m, v                  [][]float64
}

func newAdam(params []*param, lr float64) *adam {
	a := &adam{lr: lr, beta1: 0.9, beta2: 0.999, eps: 1e-7}
	for _, p := range params {
		a.m = append(a.m, make([]float64, len(p.value)))
		a.v = append(a.v, make([]float64, len(p.value)))
	}
	return a
}

func (a *adam) step(params []*param) {
	a.t++
	c1 := 1 - math.Pow(a.beta1, float64(a.t))
	c2 := 1 - math.Pow(a.beta2, float64(a.t))
	for k, p := range params {
		m, v := a.m[k], a.v[k]
		for i, g := range p.grad {
			m[i] = a.beta1*m[i] + (1-a.beta1)*g
			v[i] = a.beta2*v[i] + (1-a.beta2)*g*g
			p.value[i] -= a.lr * (m[i] / c1) / (math.Sqrt(v[i]/c2) + a.eps)
		}
	}
}

func crossEntropy(probs []float64, label int) float64 {
	return -math.Log(math.Max(probs[label], 1e-12))
}

func checkData(n *Network, X [][]float64, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("%w: %d images and %d labels", ErrConfig, len(X), len(y))
	}
	classes := n.layers[len(n.layers)-1].outShape().Size()
	for i, x := range X {
		if len(x) != n.Input.Size() {
			return fmt.Errorf("%w: image %d has %d values, want %d", ErrConfig, i, len(x), n.Input.Size())
		}
		if y[i] < 0 || y[i] >= classes {
			return fmt.Errorf("%w: label %d outside 0..%d", ErrConfig, y[i], classes-1)
		}
	}
	return nil
}

type batchTotals struct {
	loss    float64
	correct int
}

// Train minimises categorical cross-entropy with Adam. Each batch is split
// across worker replicas whose gradients are summed before the update.
// onEpoch, if set, receives validation scores after every epoch.
func (n *Network) Train(ctx context.Context, X [][]float64, y []int, valX [][]float64, valY []int, cfg TrainConfig, onEpoch func(EpochStats)) error {
	if !n.outputsSoftmax() {
		return fmt.Errorf("%w: last layer must be a softmax dense layer", ErrConfig)
	}
	if err := checkData(n, X, y); err != nil {
		return err
	}
	if len(valX) > 0 {
		if err := checkData(n, valX, valY); err != nil {
			return fmt.Errorf("validation: %w", err)
		}
	}
	cfg.normalize()

	rng := rand.New(rand.NewSource(cfg.Seed))
	params := n.params()
	opt := newAdam(params, cfg.LearningRate)

	replicas := make([]*Network, cfg.Workers)
	rngs := make([]*rand.Rand, cfg.Workers)
	repParams := make([][]*param, cfg.Workers)
	for w := range replicas {
		replicas[w] = n.replica()
		rngs[w] = rand.New(rand.NewSource(rng.Int63()))
		repParams[w] = replicas[w].params()
	}
	totals := make([]batchTotals, cfg.Workers)

	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		order := rng.Perm(len(X))
		var epochLoss float64
		var epochCorrect int

		for start := 0; start < len(order); start += cfg.BatchSize {
			if err := ctx.Err(); err != nil {
				return err
			}
			batch := order[start:min(start+cfg.BatchSize, len(order))]
			chunk := (len(batch) + cfg.Workers - 1) / cfg.Workers

			var g errgroup.Group
			for w := 0; w < cfg.Workers && w*chunk < len(batch); w++ {
				part := batch[w*chunk : min((w+1)*chunk, len(batch))]
				g.Go(func() error {
					rep, t := replicas[w], &totals[w]
					*t = batchTotals{}
					dy := make([]float64, Classes)
					for _, i := range part {
						if err := ctx.Err(); err != nil {
							return err
						}
						probs := rep.forward(X[i], true, rngs[w])
						t.loss += crossEntropy(probs, y[i])
						if argmax(probs) == y[i] {
							t.correct++
						}
						dy = append(dy[:0], probs...)
						dy[y[i]]--
						rep.backward(dy)
					}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			scale := 1 / float64(len(batch))
			for k, p := range params {
				for w := range replicas {
					rg := repParams[w][k].grad
					for i, v := range rg {
						p.grad[i] += v
					}
					clear(rg)
				}
				for i := range p.grad {
					p.grad[i] *= scale
				}
			}
			opt.step(params)
			for _, p := range params {
				clear(p.grad)
			}

			for w := range totals {
				epochLoss += totals[w].loss
				epochCorrect += totals[w].correct
				totals[w] = batchTotals{}
			}
		}

		stats := EpochStats{
			Epoch:    epoch,
			Loss:     epochLoss / float64(len(X)),
			Accuracy: float64(epochCorrect) / float64(len(X)),
		}
		if len(valX) > 0 {
			loss, acc, err := n.evaluate(ctx, replicas, valX, valY)
			if err != nil {
				return err
			}
			stats.ValLoss, stats.ValAccuracy = loss, acc
		}
		if onEpoch != nil {
			onEpoch(stats)
		}
	}
	return nil
}

// Evaluate returns mean cross-entropy and accuracy over X.
func (n *Network) Evaluate(ctx context.Context, X [][]float64, y []int, workers int) (float64, float64, error) {
	if err := checkData(n, X, y); err != nil {
		return 0, 0, err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	replicas := make([]*Network, min(workers, len(X)))
	for w := range replicas {
		replicas[w] = n.replica()
	}
	return n.evaluate(ctx, replicas, X, y)
}

func (n *Network) evaluate(ctx context.Context, replicas []*Network, X [][]float64, y []int) (float64, float64, error) {
	totals := make([]batchTotals, len(replicas))
	chunk := (len(X) + len(replicas) - 1) / len(replicas)

	g, gCtx := errgroup.WithContext(ctx)
	for w := range replicas {
		if w*chunk >= len(X) {
			break
		}
		lo, hi := w*chunk, min((w+1)*chunk, len(X))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if i%256 == 0 {
					if err := gCtx.Err(); err != nil {
						return err
					}
				}
				probs := replicas[w].forward(X[i], false, nil)
				totals[w].loss += crossEntropy(probs, y[i])
				if argmax(probs) == y[i] {
					totals[w].correct++
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}

	var loss float64
	var correct int
	for _, t := range totals {
		loss += t.loss
		correct += t.correct
	}
	return loss / float64(len(X)), float64(correct) / float64(len(X)), nil
}
