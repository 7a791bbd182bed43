package dataset

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// TrainTestSplit shuffles rows with seed and holds out testSize of them.
// With stratify set, each class contributes the same fraction to the test set.
func TrainTestSplit(ds *Dataset, testSize float64, seed int64, stratify bool) (*Dataset, *Dataset, error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("test size must be in (0, 1), got %v", testSize)
	}
	if err := ds.Validate(); err != nil {
		return nil, nil, err
	}
	if ds.Len() < 2 {
		return nil, nil, fmt.Errorf("%w: need at least 2 rows to split", ErrShape)
	}

	rng := rand.New(rand.NewSource(seed))
	var trainIdx, testIdx []int

	if stratify {
		byClass := make(map[int][]int)
		for i, y := range ds.Y {
			byClass[y] = append(byClass[y], i)
		}
		labels := make([]int, 0, len(byClass))
		for label := range byClass {
			labels = append(labels, label)
		}
		sort.Ints(labels)

		for _, label := range labels {
			idx := byClass[label]
			rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
			n := int(math.Round(float64(len(idx)) * testSize))
			testIdx = append(testIdx, idx[:n]...)
			trainIdx = append(trainIdx, idx[n:]...)
		}
		rng.Shuffle(len(testIdx), func(i, j int) { testIdx[i], testIdx[j] = testIdx[j], testIdx[i] })
		rng.Shuffle(len(trainIdx), func(i, j int) { trainIdx[i], trainIdx[j] = trainIdx[j], trainIdx[i] })
	} else {
		perm := rng.Perm(ds.Len())
		n := int(math.Ceil(float64(ds.Len()) * testSize))
		testIdx, trainIdx = perm[:n], perm[n:]
	}

	if len(trainIdx) == 0 || len(testIdx) == 0 {
		return nil, nil, fmt.Errorf("%w: split of %d rows left an empty side", ErrShape, ds.Len())
	}
	return ds.Subset(trainIdx), ds.Subset(testIdx), nil
}
