package dataset

import "math/rand"

// CreditFeatures are the columns produced by GenerateCredit.
var CreditFeatures = []string{
	"age",
	"income",
	"debts",
	"loan_amount",
	"credit_history_length",
	"previous_defaults",
	"payment_history",
	"debt_to_income",
	"on_time_ratio",
}

// CreditTarget is the label column of the credit dataset.
const CreditTarget = "creditworthy"

// GenerateCredit builds n synthetic applicants. An applicant is creditworthy
// when income exceeds 40000, debt-to-income is under 0.4, there are fewer
// than two previous defaults and more than 70% of payments were on time.
func GenerateCredit(n int, seed int64) *Dataset {
	rng := rand.New(rand.NewSource(seed))
	between := func(lo, hi int) float64 { return float64(lo + rng.Intn(hi-lo)) }

	ds := &Dataset{
		FeatureNames: append([]string(nil), CreditFeatures...),
		Target:       CreditTarget,
		X:            make([][]float64, n),
		Y:            make([]int, n),
	}
	for i := 0; i < n; i++ {
		age := between(18, 70)
		income := between(20000, 150000)
		debts := between(0, 80000)
		loan := between(1000, 50000)
		history := between(1, 30)
		defaults := between(0, 5)
		payments := between(50, 100)
		dti := debts / (income + 1)
		onTime := payments / 100

		ds.X[i] = []float64{age, income, debts, loan, history, defaults, payments, dti, onTime}
		if income > 40000 && dti < 0.4 && defaults < 2 && onTime > 0.7 {
			ds.Y[i] = 1
		}
	}
	return ds
}
