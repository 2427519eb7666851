package taste

import (
	"math/rand/v2"
	"sort"
)

// ForestParams configures the bagged regression-tree ensemble.
type ForestParams struct {
	Trees    int
	MaxDepth int
	MinSplit int
	MinLeaf  int
	Seed     uint64
}

// DefaultForestParams returns the parameters used for per-member models.
func DefaultForestParams() ForestParams {
	return ForestParams{Trees: 100, MaxDepth: 10, MinSplit: 3, MinLeaf: 2, Seed: 42}
}

// Forest is a random forest of CART regression trees. Each tree is grown on
// a bootstrap sample and predictions are averaged.
type Forest struct {
	trees []*treeNode
}

type treeNode struct {
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
	value     float64
}

func (n *treeNode) leaf() bool { return n.left == nil }

// TrainForest fits a forest on rows X with targets y. Training is
// deterministic for a given seed.
func TrainForest(X [][]float64, y []float64, p ForestParams) *Forest {
	if len(X) == 0 || len(X) != len(y) {
		return nil
	}
	if p.Trees <= 0 {
		p.Trees = 1
	}
	if p.MinLeaf < 1 {
		p.MinLeaf = 1
	}
	if p.MinSplit < 2*p.MinLeaf {
		p.MinSplit = 2 * p.MinLeaf
	}
	rng := rand.New(rand.NewPCG(p.Seed, p.Seed^0x9e3779b97f4a7c15))

	f := &Forest{trees: make([]*treeNode, 0, p.Trees)}
	b := treeBuilder{X: X, y: y, p: p}
	for i := 0; i < p.Trees; i++ {
		sample := make([]int, len(X))
		for j := range sample {
			sample[j] = rng.IntN(len(X))
		}
		f.trees = append(f.trees, b.grow(sample, 0))
	}
	return f
}

// Predict averages the tree outputs for x.
func (f *Forest) Predict(x []float64) float64 {
	if f == nil || len(f.trees) == 0 {
		return 0
	}
	var sum float64
	for _, t := range f.trees {
		n := t
		for !n.leaf() {
			if n.feature < len(x) && x[n.feature] <= n.threshold {
				n = n.left
			} else {
				n = n.right
			}
		}
		sum += n.value
	}
	return sum / float64(len(f.trees))
}

type treeBuilder struct {
	X [][]float64
	y []float64
	p ForestParams
}

func (b treeBuilder) grow(idx []int, depth int) *treeNode {
	var sum float64
	for _, i := range idx {
		sum += b.y[i]
	}
	node := &treeNode{value: sum / float64(len(idx))}
	if depth >= b.p.MaxDepth || len(idx) < b.p.MinSplit || b.pure(idx) {
		return node
	}

	feature, threshold, ok := b.bestSplit(idx)
	if !ok {
		return node
	}
	var left, right []int
	for _, i := range idx {
		if b.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	node.feature = feature
	node.threshold = threshold
	node.left = b.grow(left, depth+1)
	node.right = b.grow(right, depth+1)
	return node
}

func (b treeBuilder) pure(idx []int) bool {
	for _, i := range idx[1:] {
		if b.y[i] != b.y[idx[0]] {
			return false
		}
	}
	return true
}

// bestSplit finds the feature and threshold minimizing the summed squared
// error of both children, honoring MinLeaf on each side.
func (b treeBuilder) bestSplit(idx []int) (int, float64, bool) {
	n := len(idx)
	var total, totalSq float64
	for _, i := range idx {
		total += b.y[i]
		totalSq += b.y[i] * b.y[i]
	}
	bestErr := totalSq - total*total/float64(n)
	bestFeature, bestThreshold, found := -1, 0.0, false

	sorted := make([]int, n)
	for f := 0; f < len(b.X[idx[0]]); f++ {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(i, j int) bool { return b.X[sorted[i]][f] < b.X[sorted[j]][f] })

		var left, leftSq float64
		for k := 1; k < n; k++ {
			yv := b.y[sorted[k-1]]
			left += yv
			leftSq += yv * yv
			if k < b.p.MinLeaf || n-k < b.p.MinLeaf {
				continue
			}
			lo, hi := b.X[sorted[k-1]][f], b.X[sorted[k]][f]
			if lo == hi {
				continue
			}
			right, rightSq := total-left, totalSq-leftSq
			err := (leftSq - left*left/float64(k)) + (rightSq - right*right/float64(n-k))
			if err < bestErr-1e-12 {
				bestErr, bestFeature, bestThreshold, found = err, f, (lo+hi)/2, true
			}
		}
	}
	return bestFeature, bestThreshold, found
}
