// Package gbdt implements a small gradient-boosted decision tree classifier
// for binary targets. Training minimizes logistic loss: each round fits a
// depth-limited regression tree to the gradient residuals and assigns leaf
// weights with a single Newton step. Split search is exact and greedy over
// sorted feature values, so training is fully deterministic: repeated fits
// on the same input produce identical models.
package gbdt

import (
	"fmt"
	"math"
	"sort"
)

const (
	// L2 regularization on leaf weights, matching the common library default.
	lambda = 1.0
	// Probability clamp so the initial log-odds stay finite on one-class data.
	probEps = 1e-6
)

// Config holds the classifier's training parameters.
type Config struct {
	Rounds       int     // Number of boosting rounds (trees)
	MaxDepth     int     // Maximum tree depth
	LearningRate float64 // Shrinkage applied to each tree's contribution
}

// Classifier is a trained gradient-boosted tree model.
type Classifier struct {
	cfg   Config
	base  float64 // Initial log-odds of the positive class
	trees []*node
}

// node is one tree node; leaves carry the weight, internal nodes the split.
type node struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *node
	right     *node
}

// Train fits a classifier on the feature matrix against binary labels.
// Every row must have the same number of features and labels must be 0 or 1.
func Train(features [][]float64, labels []int, cfg Config) (*Classifier, error) {
	if cfg.Rounds <= 0 || cfg.MaxDepth <= 0 {
		return nil, fmt.Errorf("rounds and max depth must be positive, got %d and %d", cfg.Rounds, cfg.MaxDepth)
	}
	if cfg.LearningRate <= 0 || cfg.LearningRate > 1 {
		return nil, fmt.Errorf("learning rate must be in (0, 1], got %f", cfg.LearningRate)
	}
	if len(features) == 0 || len(features) != len(labels) {
		return nil, fmt.Errorf("feature rows (%d) and labels (%d) must be non-empty and equal", len(features), len(labels))
	}
	numFeatures := len(features[0])
	var positives int
	for i, row := range features {
		if len(row) != numFeatures {
			return nil, fmt.Errorf("feature row %d has %d values, expected %d", i, len(row), numFeatures)
		}
		switch labels[i] {
		case 0:
		case 1:
			positives++
		default:
			return nil, fmt.Errorf("label at row %d must be 0 or 1, got %d", i, labels[i])
		}
	}

	p := clampProb(float64(positives) / float64(len(labels)))
	c := &Classifier{
		cfg:   cfg,
		base:  math.Log(p / (1 - p)),
		trees: make([]*node, 0, cfg.Rounds),
	}

	// Raw scores per sample, updated as trees are added.
	scores := make([]float64, len(labels))
	for i := range scores {
		scores[i] = c.base
	}

	grad := make([]float64, len(labels))
	hess := make([]float64, len(labels))
	idx := make([]int, len(labels))
	for i := range idx {
		idx[i] = i
	}

	for round := 0; round < cfg.Rounds; round++ {
		for i := range labels {
			pi := sigmoid(scores[i])
			grad[i] = float64(labels[i]) - pi
			hess[i] = pi * (1 - pi)
		}

		tree := buildNode(features, grad, hess, idx, cfg.MaxDepth)
		c.trees = append(c.trees, tree)

		for i := range scores {
			scores[i] += cfg.LearningRate * evaluate(tree, features[i])
		}
	}

	return c, nil
}

// buildNode recursively grows a regression tree over the sample indices.
func buildNode(features [][]float64, grad, hess []float64, idx []int, depth int) *node {
	var sumG, sumH float64
	for _, i := range idx {
		sumG += grad[i]
		sumH += hess[i]
	}
	leafValue := sumG / (sumH + lambda)

	if depth == 0 || len(idx) < 2 {
		return &node{leaf: true, value: leafValue}
	}

	feature, threshold, gain := bestSplit(features, grad, hess, idx, sumG, sumH)
	if gain <= 0 {
		return &node{leaf: true, value: leafValue}
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if features[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	return &node{
		feature:   feature,
		threshold: threshold,
		left:      buildNode(features, grad, hess, left, depth-1),
		right:     buildNode(features, grad, hess, right, depth-1),
	}
}

// bestSplit scans every feature for the split maximizing the gain
//
//	G_L²/(H_L+λ) + G_R²/(H_R+λ) − G²/(H+λ)
//
// over sorted feature values. Ties resolve to the first candidate found, so
// the search order (feature index, then value order) fixes the result.
func bestSplit(features [][]float64, grad, hess []float64, idx []int, sumG, sumH float64) (int, float64, float64) {
	bestFeature := -1
	bestThreshold := 0.0
	bestGain := 0.0
	parentScore := sumG * sumG / (sumH + lambda)

	order := make([]int, len(idx))
	for f := 0; f < len(features[idx[0]]); f++ {
		copy(order, idx)
		sort.SliceStable(order, func(a, b int) bool {
			return features[order[a]][f] < features[order[b]][f]
		})

		var leftG, leftH float64
		for k := 0; k < len(order)-1; k++ {
			i := order[k]
			leftG += grad[i]
			leftH += hess[i]

			// No valid threshold between equal values
			if features[order[k]][f] == features[order[k+1]][f] {
				continue
			}

			rightG := sumG - leftG
			rightH := sumH - leftH
			gain := leftG*leftG/(leftH+lambda) + rightG*rightG/(rightH+lambda) - parentScore
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				// Midpoint threshold between adjacent distinct values
				bestThreshold = (features[order[k]][f] + features[order[k+1]][f]) / 2
			}
		}
	}

	return bestFeature, bestThreshold, bestGain
}

// evaluate walks a tree and returns the leaf weight for a feature vector.
func evaluate(n *node, row []float64) float64 {
	for !n.leaf {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

// PredictProba returns the probability of the positive class for one row.
func (c *Classifier) PredictProba(row []float64) float64 {
	score := c.base
	for _, tree := range c.trees {
		score += c.cfg.LearningRate * evaluate(tree, row)
	}
	return sigmoid(score)
}

// Predict returns the predicted class (0 or 1) for one row.
func (c *Classifier) Predict(row []float64) int {
	if c.PredictProba(row) >= 0.5 {
		return 1
	}
	return 0
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func clampProb(p float64) float64 {
	if p < probEps {
		return probEps
	}
	if p > 1-probEps {
		return 1 - probEps
	}
	return p
}
