package classifier

import (
	"math/rand/v2"
	"slices"
)

// sample is one labelled training row.
type sample struct {
	x [NumFeatures]float64
	y int
}

// node is a binary decision tree node. Leaves carry a label; inner nodes
// send x[feature] <= threshold to the left.
type node struct {
	leaf      bool
	label     int
	feature   int
	threshold float64
	left      *node
	right     *node
}

func (n *node) predict(x [NumFeatures]float64) int {
	for !n.leaf {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.label
}

func (n *node) depth() int {
	if n.leaf {
		return 0
	}
	return 1 + max(n.left.depth(), n.right.depth())
}

func (n *node) leaves() int {
	if n.leaf {
		return 1
	}
	return n.left.leaves() + n.right.leaves()
}

// treeBuilder grows a CART tree using Gini impurity.
// Candidate features are visited in an order drawn from rng, so ties
// between equally good splits are broken reproducibly for a given seed.
type treeBuilder struct {
	maxDepth        int
	minSamplesSplit int
	rng             *rand.Rand
}

func (b *treeBuilder) build(samples []sample, depth int) *node {
	counts := classCounts(samples)
	n := &node{leaf: true, label: majority(counts)}

	if depth >= b.maxDepth || len(samples) < b.minSamplesSplit || counts[0] == 0 || counts[1] == 0 {
		return n
	}

	feature, threshold, ok := b.bestSplit(samples, counts)
	if !ok {
		return n
	}

	var left, right []sample
	for _, s := range samples {
		if s.x[feature] <= threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}

	n.leaf = false
	n.feature = feature
	n.threshold = threshold
	n.left = b.build(left, depth+1)
	n.right = b.build(right, depth+1)
	return n
}

// bestSplit returns the split with the lowest weighted Gini impurity.
// ok is false when no split improves on the parent.
func (b *treeBuilder) bestSplit(samples []sample, counts [2]int) (feature int, threshold float64, ok bool) {
	total := len(samples)
	bestImpurity := gini(counts, total)

	sorted := make([]sample, total)
	for _, f := range b.rng.Perm(NumFeatures) {
		copy(sorted, samples)
		slices.SortStableFunc(sorted, func(a, c sample) int {
			switch {
			case a.x[f] < c.x[f]:
				return -1
			case a.x[f] > c.x[f]:
				return 1
			}
			return 0
		})

		var leftCounts [2]int
		for i := 0; i < total-1; i++ {
			leftCounts[sorted[i].y]++
			if sorted[i].x[f] == sorted[i+1].x[f] {
				continue
			}

			nLeft := i + 1
			nRight := total - nLeft
			rightCounts := [2]int{counts[0] - leftCounts[0], counts[1] - leftCounts[1]}
			impurity := (float64(nLeft)*gini(leftCounts, nLeft) + float64(nRight)*gini(rightCounts, nRight)) / float64(total)

			if impurity < bestImpurity-1e-12 {
				bestImpurity = impurity
				feature = f
				threshold = (sorted[i].x[f] + sorted[i+1].x[f]) / 2
				ok = true
			}
		}
	}

	return feature, threshold, ok
}

func classCounts(samples []sample) [2]int {
	var c [2]int
	for _, s := range samples {
		c[s.y]++
	}
	return c
}

// majority returns the most frequent label; ties go to LabelNotEco.
func majority(counts [2]int) int {
	if counts[LabelEco] > counts[LabelNotEco] {
		return LabelEco
	}
	return LabelNotEco
}

func gini(counts [2]int, n int) float64 {
	if n == 0 {
		return 0
	}
	p0 := float64(counts[0]) / float64(n)
	p1 := float64(counts[1]) / float64(n)
	return 1 - p0*p0 - p1*p1
}
