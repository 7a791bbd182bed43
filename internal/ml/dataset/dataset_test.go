package dataset

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	data := "a,target,b\n1,0,2.5\n3,1,4\n"
	ds, err := ReadCSV(strings.NewReader(data), "target")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, ds.FeatureNames)
	assert.Equal(t, [][]float64{{1, 2.5}, {3, 4}}, ds.X)
	assert.Equal(t, []int{0, 1}, ds.Y)
	require.NoError(t, ds.Validate())
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"missing target", "a,b\n1,2\n", `target column "target" not found`},
		{"non numeric", "a,target\nx,1\n", `line 2 column "a"`},
		{"fractional label", "a,target\n1,0.5\n", "not an integer"},
		{"empty", "", "failed to read header"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.data), "target")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSaveAndLoadCSV(t *testing.T) {
	ds := GenerateCredit(20, 7)
	path := filepath.Join(t.TempDir(), "credit.csv")
	require.NoError(t, ds.SaveCSV(path))

	loaded, err := LoadCSV(path, CreditTarget)
	require.NoError(t, err)
	assert.Equal(t, ds.FeatureNames, loaded.FeatureNames)
	assert.Equal(t, ds.Y, loaded.Y)
	assert.InDeltaSlice(t, ds.X[3], loaded.X[3], 1e-12)

	_, err = LoadCSV(filepath.Join(t.TempDir(), "missing.csv"), CreditTarget)
	assert.Error(t, err)
}

func TestWriteCSV_ShapeError(t *testing.T) {
	ds := &Dataset{FeatureNames: []string{"a"}, Target: "y", X: [][]float64{{1, 2}}, Y: []int{1}}
	err := ds.WriteCSV(&bytes.Buffer{})
	assert.ErrorIs(t, err, ErrShape)
}

func TestGenerateCredit(t *testing.T) {
	ds := GenerateCredit(500, 42)
	require.NoError(t, ds.Validate())
	assert.Equal(t, 500, ds.Len())
	assert.Equal(t, CreditFeatures, ds.FeatureNames)

	for i, row := range ds.X {
		age, income, debts, defaults, payments := row[0], row[1], row[2], row[5], row[6]
		assert.True(t, age >= 18 && age < 70)
		assert.True(t, income >= 20000 && income < 150000)
		assert.True(t, debts >= 0 && debts < 80000)
		assert.True(t, payments >= 50 && payments < 100)
		assert.InDelta(t, debts/(income+1), row[7], 1e-12)

		want := 0
		if income > 40000 && row[7] < 0.4 && defaults < 2 && row[8] > 0.7 {
			want = 1
		}
		assert.Equal(t, want, ds.Y[i])
	}

	again := GenerateCredit(500, 42)
	assert.Equal(t, ds.X, again.X, "same seed gives same data")
}

func TestGenerateDiagnostic(t *testing.T) {
	ds := GenerateDiagnostic(42)
	require.NoError(t, ds.Validate())

	assert.Equal(t, DiagnosticMalignant+DiagnosticBenign, ds.Len())
	assert.Equal(t, 30, ds.NumFeatures())
	assert.Equal(t, "mean radius", ds.FeatureNames[0])
	assert.Equal(t, DiagnosticTarget, ds.Target)
	assert.Equal(t, []ClassCount{{Label: 1, Count: DiagnosticBenign}, {Label: 0, Count: DiagnosticMalignant}}, ds.ClassCounts())

	var malignant, benign float64
	for i, row := range ds.X {
		for _, v := range row {
			assert.GreaterOrEqual(t, v, 0.0)
		}
		if ds.Y[i] == 0 {
			malignant += row[0]
		} else {
			benign += row[0]
		}
	}
	assert.Greater(t, malignant/DiagnosticMalignant, benign/DiagnosticBenign, "malignant tumours are larger on average")

	assert.Equal(t, ds.X, GenerateDiagnostic(42).X)
}

func TestClassCounts(t *testing.T) {
	ds := &Dataset{Y: []int{0, 1, 1, 2, 1, 0}}
	assert.Equal(t, []ClassCount{{1, 3}, {0, 2}, {2, 1}}, ds.ClassCounts())
}

func TestTrainTestSplit_Stratified(t *testing.T) {
	ds := GenerateCredit(500, 42)
	train, test, err := TrainTestSplit(ds, 0.2, 42, true)
	require.NoError(t, err)
	assert.Equal(t, 500, train.Len()+test.Len())

	ratio := func(d *Dataset) float64 {
		pos := 0
		for _, y := range d.Y {
			pos += y
		}
		return float64(pos) / float64(d.Len())
	}
	assert.InDelta(t, ratio(ds), ratio(test), 0.01)
	assert.InDelta(t, ratio(ds), ratio(train), 0.01)

	train2, test2, err := TrainTestSplit(ds, 0.2, 42, true)
	require.NoError(t, err)
	assert.Equal(t, test.X, test2.X)
	assert.Equal(t, train.Y, train2.Y)
}

func TestTrainTestSplit_Plain(t *testing.T) {
	ds := GenerateCredit(10, 1)
	train, test, err := TrainTestSplit(ds, 0.25, 3, false)
	require.NoError(t, err)
	assert.Equal(t, 3, test.Len())
	assert.Equal(t, 7, train.Len())
}

func TestTrainTestSplit_Errors(t *testing.T) {
	ds := GenerateCredit(10, 1)
	_, _, err := TrainTestSplit(ds, 1.5, 1, true)
	assert.Error(t, err)

	one := ds.Subset([]int{0})
	_, _, err = TrainTestSplit(one, 0.5, 1, false)
	assert.ErrorIs(t, err, ErrShape)
}

func TestStandardScaler(t *testing.T) {
	X := [][]float64{{1, 5}, {3, 5}, {5, 5}}
	var s StandardScaler

	_, err := s.Transform(X)
	assert.ErrorIs(t, err, ErrNotFitted)

	out, err := s.FitTransform(X)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 5}, s.Mean)
	assert.InDelta(t, math.Sqrt(8.0/3), s.Scale[0], 1e-12)
	assert.Equal(t, 1.0, s.Scale[1], "constant column keeps unit scale")
	assert.InDelta(t, 0, out[1][0], 1e-12)
	assert.InDelta(t, 0, out[2][1], 1e-12)

	_, err = s.Transform([][]float64{{1}})
	assert.ErrorIs(t, err, ErrShape)

	path := filepath.Join(t.TempDir(), "scaler.json")
	require.NoError(t, s.Save(path))
	loaded, err := LoadScaler(path)
	require.NoError(t, err)
	assert.Equal(t, s.Mean, loaded.Mean)
	assert.Equal(t, s.Scale, loaded.Scale)
}
