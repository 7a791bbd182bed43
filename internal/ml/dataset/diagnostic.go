package dataset

import "math/rand"

// Row counts of the Wisconsin diagnostic breast cancer dataset.
const (
	DiagnosticMalignant = 212
	DiagnosticBenign    = 357
)

// DiagnosticTarget is the label column of GenerateDiagnostic's dataset.
const DiagnosticTarget = "target"

type featureStats struct {
	name                     string
	malignantMean, malignant float64
	benignMean, benign       float64
}

// diagnosticStats are approximate per-class means and standard deviations of
// the 30 Wisconsin diagnostic features.
var diagnosticStats = []featureStats{
	{"mean radius", 17.46, 3.20, 12.15, 1.78},
	{"mean texture", 21.60, 3.78, 17.91, 4.00},
	{"mean perimeter", 115.37, 21.85, 78.08, 11.81},
	{"mean area", 978.38, 367.94, 462.79, 134.29},
	{"mean smoothness", 0.1029, 0.0126, 0.0925, 0.0134},
	{"mean compactness", 0.1452, 0.0540, 0.0801, 0.0337},
	{"mean concavity", 0.1608, 0.0750, 0.0461, 0.0434},
	{"mean concave points", 0.0880, 0.0344, 0.0257, 0.0159},
	{"mean symmetry", 0.1929, 0.0276, 0.1742, 0.0248},
	{"mean fractal dimension", 0.0627, 0.0076, 0.0629, 0.0067},
	{"radius error", 0.609, 0.345, 0.284, 0.113},
	{"texture error", 1.211, 0.483, 1.220, 0.589},
	{"perimeter error", 4.324, 2.569, 2.000, 0.771},
	{"area error", 72.67, 61.36, 21.14, 8.84},
	{"smoothness error", 0.00678, 0.00289, 0.00720, 0.00306},
	{"compactness error", 0.0323, 0.0184, 0.0214, 0.0164},
	{"concavity error", 0.0418, 0.0216, 0.0260, 0.0329},
	{"concave points error", 0.0151, 0.0055, 0.00986, 0.00571},
	{"symmetry error", 0.0205, 0.0101, 0.0206, 0.0070},
	{"fractal dimension error", 0.00406, 0.00204, 0.00364, 0.00294},
	{"worst radius", 21.13, 4.28, 13.38, 1.98},
	{"worst texture", 29.32, 5.43, 23.52, 5.49},
	{"worst perimeter", 141.37, 29.46, 87.01, 13.53},
	{"worst area", 1422.3, 597.97, 558.9, 163.6},
	{"worst smoothness", 0.1448, 0.0219, 0.1250, 0.0200},
	{"worst compactness", 0.3748, 0.1703, 0.1827, 0.0926},
	{"worst concavity", 0.4506, 0.1813, 0.1662, 0.1404},
	{"worst concave points", 0.1822, 0.0462, 0.0744, 0.0358},
	{"worst symmetry", 0.3235, 0.0746, 0.2702, 0.0417},
	{"worst fractal dimension", 0.0915, 0.0216, 0.0794, 0.0138},
}

// DiagnosticFeatures are the column names produced by GenerateDiagnostic.
func DiagnosticFeatures() []string {
	names := make([]string, len(diagnosticStats))
	for i, s := range diagnosticStats {
		names[i] = s.name
	}
	return names
}

// GenerateDiagnostic builds a synthetic stand-in for the Wisconsin diagnostic
// dataset: 212 malignant (label 0) and 357 benign (label 1) rows whose 30
// features are drawn from per-class normal distributions and clipped at zero.
func GenerateDiagnostic(seed int64) *Dataset {
	rng := rand.New(rand.NewSource(seed))
	n := DiagnosticMalignant + DiagnosticBenign

	ds := &Dataset{
		FeatureNames: DiagnosticFeatures(),
		Target:       DiagnosticTarget,
		X:            make([][]float64, n),
		Y:            make([]int, n),
	}
	for i := DiagnosticMalignant; i < n; i++ {
		ds.Y[i] = 1
	}
	rng.Shuffle(n, func(i, j int) { ds.Y[i], ds.Y[j] = ds.Y[j], ds.Y[i] })

	for i := range ds.X {
		row := make([]float64, len(diagnosticStats))
		for j, s := range diagnosticStats {
			mean, sd := s.malignantMean, s.malignant
			if ds.Y[i] == 1 {
				mean, sd = s.benignMean, s.benign
			}
			row[j] = max(0, mean+rng.NormFloat64()*sd)
		}
		ds.X[i] = row
	}
	return ds
}
