package ensemble

import (
	"fmt"
	"math/rand"
	"sort"
)

// Node is one node of a flattened tree. Leaves have Left == -1.
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Value     float64 `json:"v"`
}

// Tree is a binary regression tree stored as a node slice rooted at index 0.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Predict walks the tree for row and returns the leaf value.
func (t *Tree) Predict(row []float64) float64 {
	if len(t.Nodes) == 0 {
		return 0
	}
	i := 0
	for {
		n := t.Nodes[i]
		if n.Left < 0 {
			return n.Value
		}
		if row[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Validate checks that every internal node splits on one of numFeatures
// columns and that children come after their parent, so Predict always
// terminates within bounds.
func (t *Tree) Validate(numFeatures int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("%w: no nodes", ErrMalformedTree)
	}
	for i, n := range t.Nodes {
		if n.Left < 0 {
			continue
		}
		if n.Feature < 0 || n.Feature >= numFeatures {
			return fmt.Errorf("%w: node %d splits on feature %d of %d", ErrMalformedTree, i, n.Feature, numFeatures)
		}
		for _, c := range [2]int{n.Left, n.Right} {
			if c <= i || c >= len(t.Nodes) {
				return fmt.Errorf("%w: node %d has child %d outside (%d, %d)", ErrMalformedTree, i, c, i, len(t.Nodes))
			}
		}
	}
	return nil
}

func validateTrees(kind string, trees []Tree, numFeatures int) error {
	if numFeatures <= 0 {
		return fmt.Errorf("%w: %s has %d features", ErrMalformedTree, kind, numFeatures)
	}
	for i := range trees {
		if err := trees[i].Validate(numFeatures); err != nil {
			return fmt.Errorf("%s tree %d: %w", kind, i, err)
		}
	}
	return nil
}

// Depth returns the number of edges on the longest root-to-leaf path.
func (t *Tree) Depth() int {
	var walk func(i int) int
	walk = func(i int) int {
		n := t.Nodes[i]
		if n.Left < 0 {
			return 0
		}
		return 1 + max(walk(n.Left), walk(n.Right))
	}
	if len(t.Nodes) == 0 {
		return 0
	}
	return walk(0)
}

// treeBuilder grows a tree minimising the squared error of y. For 0/1
// targets this selects the same splits as the Gini criterion.
type treeBuilder struct {
	X           [][]float64
	y           []float64
	maxDepth    int
	minSplit    int
	maxFeatures int
	rng         *rand.Rand
	leafValue   func(idx []int) float64
	nodes       []Node
}

func (b *treeBuilder) build(idx []int) Tree {
	b.nodes = b.nodes[:0]
	b.grow(idx, 0)
	nodes := make([]Node, len(b.nodes))
	copy(nodes, b.nodes)
	return Tree{Nodes: nodes}
}

func (b *treeBuilder) grow(idx []int, depth int) int {
	at := len(b.nodes)
	b.nodes = append(b.nodes, Node{Left: -1, Right: -1})

	stop := len(idx) < b.minSplit || (b.maxDepth > 0 && depth >= b.maxDepth) || sse(b.y, idx) == 0
	if !stop {
		if f, thr, ok := b.bestSplit(idx); ok {
			var left, right []int
			for _, i := range idx {
				if b.X[i][f] <= thr {
					left = append(left, i)
				} else {
					right = append(right, i)
				}
			}
			l := b.grow(left, depth+1)
			r := b.grow(right, depth+1)
			b.nodes[at] = Node{Feature: f, Threshold: thr, Left: l, Right: r}
			return at
		}
	}
	b.nodes[at].Value = b.leafValue(idx)
	return at
}

func (b *treeBuilder) bestSplit(idx []int) (feature int, threshold float64, ok bool) {
	width := len(b.X[idx[0]])
	candidates := b.rng.Perm(width)
	if b.maxFeatures > 0 && b.maxFeatures < width {
		candidates = candidates[:b.maxFeatures]
	}

	n := float64(len(idx))
	var total, totalSq float64
	for _, i := range idx {
		total += b.y[i]
		totalSq += b.y[i] * b.y[i]
	}
	best := totalSq - total*total/n

	sorted := make([]int, len(idx))
	for _, f := range candidates {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, c int) bool { return b.X[sorted[a]][f] < b.X[sorted[c]][f] })

		var sumL, sqL float64
		for k := 0; k < len(sorted)-1; k++ {
			v := b.y[sorted[k]]
			sumL += v
			sqL += v * v
			cur, next := b.X[sorted[k]][f], b.X[sorted[k+1]][f]
			if cur == next {
				continue
			}
			nL := float64(k + 1)
			nR := n - nL
			sumR := total - sumL
			sqR := totalSq - sqL
			cost := (sqL - sumL*sumL/nL) + (sqR - sumR*sumR/nR)
			if cost < best-1e-12 {
				best = cost
				feature = f
				threshold = cur + (next-cur)/2
				if threshold >= next {
					threshold = cur
				}
				ok = true
			}
		}
	}
	return feature, threshold, ok
}

func sse(y []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	var sum, sq float64
	for _, i := range idx {
		sum += y[i]
		sq += y[i] * y[i]
	}
	v := sq - sum*sum/float64(len(idx))
	if v < 1e-12 {
		return 0
	}
	return v
}

func meanOf(y []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	var s float64
	for _, i := range idx {
		s += y[i]
	}
	return s / float64(len(idx))
}
