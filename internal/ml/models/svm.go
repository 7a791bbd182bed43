package models

import (
	"math"
	"math/rand"
)

// LinearSVM is a hinge-loss linear classifier trained with Pegasos
// stochastic sub-gradient steps. Probabilities come from a sigmoid fitted to
// the training decision values (Platt scaling).
type LinearSVM struct {
	C       float64   `json:"c"`
	Epochs  int       `json:"epochs"`
	Seed    int64     `json:"seed"`
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
	PlattA  float64   `json:"platt_a"`
	PlattB  float64   `json:"platt_b"`
}

// NewLinearSVM returns a model with C=1.
func NewLinearSVM(seed int64) *LinearSVM {
	return &LinearSVM{C: 1, Epochs: 50, Seed: seed}
}

// Name implements Classifier.
func (m *LinearSVM) Name() string { return "SVM" }

// Fit implements Classifier.
func (m *LinearSVM) Fit(X [][]float64, y []int) error {
	cols, err := checkFit(X, y)
	if err != nil {
		return err
	}
	if m.C <= 0 {
		m.C = 1
	}
	if m.Epochs <= 0 {
		m.Epochs = 50
	}

	n := len(X)
	lambda := 1 / (m.C * float64(n))
	radius := 1 / math.Sqrt(lambda)
	rng := rand.New(rand.NewSource(m.Seed))

	// The bias rides along as a final weight on a constant feature.
	w := make([]float64, cols+1)
	t := 0
	for epoch := 0; epoch < m.Epochs; epoch++ {
		for _, i := range rng.Perm(n) {
			t++
			eta := 1 / (lambda * float64(t))
			label := float64(2*y[i] - 1)
			margin := label * (dot(w[:cols], X[i]) + w[cols])

			shrink := 1 - eta*lambda
			for j := range w {
				w[j] *= shrink
			}
			if margin < 1 {
				for j, v := range X[i] {
					w[j] += eta * label * v
				}
				w[cols] += eta * label
			}

			norm := math.Sqrt(dot(w, w))
			if norm > radius {
				for j := range w {
					w[j] *= radius / norm
				}
			}
		}
	}

	m.Weights, m.Bias = w[:cols], w[cols]
	m.PlattA, m.PlattB = plattScale(m.decisions(X), y)
	return nil
}

func (m *LinearSVM) decisions(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = dot(m.Weights, row) + m.Bias
	}
	return out
}

func (m *LinearSVM) featureCount() int { return len(m.Weights) }

// PredictProba implements Classifier.
func (m *LinearSVM) PredictProba(X [][]float64) []float64 {
	out := make([]float64, len(X))
	if m.Weights == nil {
		for i := range out {
			out[i] = 0.5
		}
		return out
	}
	for i, f := range m.decisions(X) {
		out[i] = sigmoid(-(m.PlattA*f + m.PlattB))
	}
	return out
}

// plattScale fits P(y=1|f) = 1/(1+exp(A*f+B)) by Newton's method on
// smoothed targets.
func plattScale(f []float64, y []int) (float64, float64) {
	var pos, neg float64
	for _, v := range y {
		if v == 1 {
			pos++
		} else {
			neg++
		}
	}
	hiTarget := (pos + 1) / (pos + 2)
	loTarget := 1 / (neg + 2)
	target := make([]float64, len(y))
	for i, v := range y {
		if v == 1 {
			target[i] = hiTarget
		} else {
			target[i] = loTarget
		}
	}

	loss := func(a, b float64) float64 {
		l := 0.0
		for i, fi := range f {
			p := sigmoid(-(a*fi + b))
			l -= target[i]*math.Log(math.Max(p, 1e-300)) + (1-target[i])*math.Log(math.Max(1-p, 1e-300))
		}
		return l
	}

	a, b := 0.0, math.Log((neg+1)/(pos+1))
	current := loss(a, b)
	const ridge = 1e-12
	for iter := 0; iter < 100; iter++ {
		var ga, gb, haa, hab, hbb float64
		for i, fi := range f {
			p := sigmoid(-(a*fi + b))
			d := target[i] - p
			ga += d * fi
			gb += d
			h := p * (1 - p)
			haa += h * fi * fi
			hab += h * fi
			hbb += h
		}
		if math.Abs(ga) < 1e-10 && math.Abs(gb) < 1e-10 {
			break
		}
		haa += ridge
		hbb += ridge
		det := haa*hbb - hab*hab
		if det <= 0 {
			break
		}
		da := -(hbb*ga - hab*gb) / det
		db := -(haa*gb - hab*ga) / det

		step := 1.0
		for ; step > 1e-10; step /= 2 {
			next := loss(a+step*da, b+step*db)
			if next < current+1e-4*step*(ga*da+gb*db) {
				a, b, current = a+step*da, b+step*db, next
				break
			}
		}
		if step <= 1e-10 {
			break
		}
	}
	return a, b
}
