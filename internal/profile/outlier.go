package profile

import (
	"math"
	"math/rand"
	"sort"
)

// OutlierOptions configures the isolation forest used for numeric outliers.
type OutlierOptions struct {
	// Contamination is the expected share of anomalous rows, in (0, 0.5].
	Contamination float64
	// Trees is the number of isolation trees.
	Trees int
	// SampleSize is the number of rows drawn per tree; 0 means min(256, rows).
	SampleSize int
	// Seed makes tree construction reproducible.
	Seed int64
}

// DefaultOutlierOptions returns the detector defaults.
func DefaultOutlierOptions() OutlierOptions {
	return OutlierOptions{Contamination: 0.05, Trees: 100, Seed: 42}
}

// DetectOutliers flags rows whose numeric feature vector isolates unusually
// fast. Missing numeric cells are imputed with 0 for this computation only.
// With fewer than ~20 rows the scores carry little statistical meaning, but
// the detector still runs.
func DetectOutliers(f *Frame, opt OutlierOptions) []int {
	cols := f.ColumnsOf(KindNumeric)
	if len(cols) == 0 || f.NumRows == 0 {
		return nil
	}
	x := make([][]float64, f.NumRows)
	for i := range x {
		x[i] = make([]float64, len(cols))
		for k, j := range cols {
			if v, ok := f.Data[j][i].(float64); ok {
				x[i][k] = v
			}
		}
	}
	scores := isolationScores(x, opt)
	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)
	threshold := quantile(sorted, contamination(opt))
	var out []int
	for i, s := range scores {
		if s < threshold {
			out = append(out, i)
		}
	}
	return out
}

func contamination(opt OutlierOptions) float64 {
	c := opt.Contamination
	if c <= 0 || math.IsNaN(c) {
		return DefaultOutlierOptions().Contamination
	}
	if c > 0.5 {
		return 0.5
	}
	return c
}

type iNode struct {
	left, right *iNode
	feature     int
	split       float64
	size        int
}

func (n *iNode) leaf() bool { return n.left == nil }

// isolationScores fits a forest on x and returns one score per row; lower
// means more anomalous. Scores lie in [-1, 0).
func isolationScores(x [][]float64, opt OutlierOptions) []float64 {
	n := len(x)
	trees := opt.Trees
	if trees <= 0 {
		trees = DefaultOutlierOptions().Trees
	}
	psi := opt.SampleSize
	if psi <= 0 || psi > n {
		psi = min(256, n)
	}
	maxDepth := int(math.Ceil(math.Log2(float64(max(psi, 2)))))
	rng := rand.New(rand.NewSource(opt.Seed))

	forest := make([]*iNode, trees)
	for t := range forest {
		sample := rng.Perm(n)[:psi]
		forest[t] = growTree(x, sample, 0, maxDepth, rng)
	}

	norm := avgPathLength(psi)
	scores := make([]float64, n)
	for i, row := range x {
		var depth float64
		for _, tree := range forest {
			depth += pathLength(tree, row)
		}
		depth /= float64(trees)
		if norm == 0 {
			scores[i] = -0.5
			continue
		}
		scores[i] = -math.Pow(2, -depth/norm)
	}
	return scores
}

func growTree(x [][]float64, idx []int, depth, maxDepth int, rng *rand.Rand) *iNode {
	if depth >= maxDepth || len(idx) <= 1 {
		return &iNode{size: len(idx)}
	}
	for _, q := range rng.Perm(len(x[0])) {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, i := range idx {
			lo = math.Min(lo, x[i][q])
			hi = math.Max(hi, x[i][q])
		}
		if hi <= lo {
			continue
		}
		split := lo + rng.Float64()*(hi-lo)
		var left, right []int
		for _, i := range idx {
			if x[i][q] < split {
				left = append(left, i)
			} else {
				right = append(right, i)
			}
		}
		return &iNode{
			feature: q,
			split:   split,
			left:    growTree(x, left, depth+1, maxDepth, rng),
			right:   growTree(x, right, depth+1, maxDepth, rng),
		}
	}
	// every feature is constant on this subset
	return &iNode{size: len(idx)}
}

func pathLength(n *iNode, row []float64) float64 {
	depth := 0.0
	for !n.leaf() {
		if row[n.feature] < n.split {
			n = n.left
		} else {
			n = n.right
		}
		depth++
	}
	return depth + avgPathLength(n.size)
}

// avgPathLength is the expected path length of an unsuccessful BST search over n points.
func avgPathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	const eulerGamma = 0.5772156649015329
	fn := float64(n)
	return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
}

// quantile interpolates linearly between the closest ranks of sorted.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi || sorted[lo] == sorted[hi] {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
