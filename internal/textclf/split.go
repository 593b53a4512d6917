package textclf

import (
	"math"
	"math/rand"
)

// TrainTestSplit shuffles indices with seed and holds out ceil(n*testRatio)
// rows, at least one, for testing.
func TrainTestSplit(n int, testRatio float64, seed int64) (train, test []int) {
	if n == 0 {
		return nil, nil
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	nTest := int(math.Ceil(float64(n)*testRatio - 1e-9))
	if nTest < 1 {
		nTest = 1
	}
	if nTest >= n {
		nTest = n - 1
	}
	return perm[nTest:], perm[:nTest]
}

// KFold partitions a shuffled 0..n-1 into k folds and returns, per fold,
// the train and validation indices.
func KFold(n, k int, seed int64) (trains, vals [][]int) {
	if k < 2 || n < k {
		return nil, nil
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	start := 0
	for f := 0; f < k; f++ {
		size := n / k
		if f < n%k {
			size++
		}
		val := perm[start : start+size]
		train := make([]int, 0, n-size)
		train = append(train, perm[:start]...)
		train = append(train, perm[start+size:]...)
		trains = append(trains, train)
		vals = append(vals, val)
		start += size
	}
	return trains, vals
}

func pick(src []string, idx []int) []string {
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = src[j]
	}
	return out
}
