package gbm

import (
	"sort"
)

// Split is one level of an oblivious tree.
type Split struct {
	FeatureIndex int     `json:"float_feature_index" codec:"float_feature_index"`
	Border       float64 `json:"border" codec:"border"`
}

// ObliviousTree applies Splits[i] to set bit i of the leaf index.
type ObliviousTree struct {
	Splits      []Split   `json:"splits" codec:"splits"`
	LeafValues  []float64 `json:"leaf_values" codec:"leaf_values"`
	LeafWeights []float64 `json:"leaf_weights" codec:"leaf_weights"`
}

func (t *ObliviousTree) leafIndex(row []float64) int {
	idx := 0
	for level, s := range t.Splits {
		if row[s.FeatureIndex] > s.Border {
			idx |= 1 << level
		}
	}
	return idx
}

func (t *ObliviousTree) value(row []float64) float64 {
	return t.LeafValues[t.leafIndex(row)]
}

// growTree fits one tree to the negative gradients, choosing at each level the
// split that maximizes the regularized gradient score over all leaves.
func growTree(X [][]float64, grad, hess []float64, borders [][]float64, p Params) ObliviousTree {
	leaf := make([]int, len(X))
	var splits []Split

	for level := 0; level < p.Depth; level++ {
		best := Split{FeatureIndex: -1}
		bestScore := -1.0
		nLeaves := 1 << (level + 1)
		sumG := make([]float64, nLeaves)
		count := make([]float64, nLeaves)

		for f, fb := range borders {
			for _, b := range fb {
				for i := range sumG {
					sumG[i], count[i] = 0, 0
				}
				for i, row := range X {
					idx := leaf[i]
					if row[f] > b {
						idx |= 1 << level
					}
					sumG[idx] += grad[i]
					count[idx]++
				}
				score := 0.0
				for i := range sumG {
					if count[i] > 0 {
						score += sumG[i] * sumG[i] / (count[i] + p.L2Reg)
					}
				}
				if score > bestScore {
					bestScore = score
					best = Split{FeatureIndex: f, Border: b}
				}
			}
		}
		if best.FeatureIndex < 0 {
			break
		}

		splits = append(splits, best)
		for i, row := range X {
			if row[best.FeatureIndex] > best.Border {
				leaf[i] |= 1 << level
			}
		}
	}

	nLeaves := 1 << len(splits)
	sumG := make([]float64, nLeaves)
	sumH := make([]float64, nLeaves)
	weights := make([]float64, nLeaves)
	for i := range X {
		sumG[leaf[i]] += grad[i]
		sumH[leaf[i]] += hess[i]
		weights[leaf[i]]++
	}
	values := make([]float64, nLeaves)
	for i := range values {
		if weights[i] > 0 {
			values[i] = p.LearningRate * sumG[i] / (sumH[i] + p.L2Reg)
		}
	}

	return ObliviousTree{Splits: splits, LeafValues: values, LeafWeights: weights}
}

// quantileBorders returns up to maxBorders midpoints between distinct values
// of feature f, spread over the value quantiles.
func quantileBorders(X [][]float64, f, maxBorders int) []float64 {
	values := make([]float64, len(X))
	for i, row := range X {
		values[i] = row[f]
	}
	sort.Float64s(values)

	distinct := values[:0:0]
	for i, v := range values {
		if i == 0 || v != values[i-1] {
			distinct = append(distinct, v)
		}
	}
	if len(distinct) < 2 {
		return nil
	}

	mids := make([]float64, len(distinct)-1)
	for i := range mids {
		mids[i] = (distinct[i] + distinct[i+1]) / 2
	}
	if len(mids) <= maxBorders {
		return mids
	}

	out := make([]float64, 0, maxBorders)
	step := float64(len(mids)) / float64(maxBorders)
	for i := 0; i < maxBorders; i++ {
		b := mids[int(float64(i)*step)]
		if len(out) == 0 || out[len(out)-1] != b {
			out = append(out, b)
		}
	}
	return out
}
