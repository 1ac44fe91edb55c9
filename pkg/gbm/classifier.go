package gbm

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrNotFitted       = errors.New("gbm: classifier is not fitted")
	ErrEmptyDataset    = errors.New("gbm: empty dataset")
	ErrRaggedDataset   = errors.New("gbm: rows have different feature counts")
	ErrLabelMismatch   = errors.New("gbm: number of labels does not match number of rows")
	ErrNonBinaryLabel  = errors.New("gbm: labels must be 0 or 1")
	ErrFeatureMismatch = errors.New("gbm: feature count does not match the fitted model")
	ErrUnknownFormat   = errors.New("gbm: unknown model format")
	ErrInvalidModel    = errors.New("gbm: invalid model document")
)

const (
	defaultIterations   = 100
	defaultDepth        = 4
	defaultLearningRate = 0.1
	defaultBorderCount  = 32
	defaultL2Reg        = 3.0

	maxDepth = 16
)

// Params holds the training hyper-parameters.
type Params struct {
	Iterations   int
	Depth        int
	LearningRate float64
	BorderCount  int
	L2Reg        float64
}

// Option configures a Classifier.
type Option func(*Params)

func WithIterations(n int) Option {
	return func(p *Params) { p.Iterations = n }
}

func WithDepth(d int) Option {
	return func(p *Params) { p.Depth = d }
}

func WithLearningRate(lr float64) Option {
	return func(p *Params) { p.LearningRate = lr }
}

func WithBorderCount(n int) Option {
	return func(p *Params) { p.BorderCount = n }
}

func WithL2Reg(l2 float64) Option {
	return func(p *Params) { p.L2Reg = l2 }
}

// Classifier is a binary logloss gradient-boosting model.
// The zero value is not usable; create one with NewClassifier.
type Classifier struct {
	params       Params
	featureCount int
	borders      [][]float64
	bias         float64
	trees        []ObliviousTree
}

func NewClassifier(opts ...Option) *Classifier {
	p := Params{
		Iterations:   defaultIterations,
		Depth:        defaultDepth,
		LearningRate: defaultLearningRate,
		BorderCount:  defaultBorderCount,
		L2Reg:        defaultL2Reg,
	}
	for _, opt := range opts {
		opt(&p)
	}
	if p.Iterations <= 0 {
		p.Iterations = defaultIterations
	}
	if p.Depth <= 0 {
		p.Depth = defaultDepth
	}
	if p.Depth > maxDepth {
		p.Depth = maxDepth
	}
	if p.LearningRate <= 0 {
		p.LearningRate = defaultLearningRate
	}
	if p.BorderCount <= 0 {
		p.BorderCount = defaultBorderCount
	}
	if p.L2Reg < 0 {
		p.L2Reg = 0
	}
	return &Classifier{params: p}
}

func (c *Classifier) Params() Params { return c.params }

// IsFitted reports whether the classifier holds a trained or loaded model.
func (c *Classifier) IsFitted() bool { return c.featureCount > 0 }

func (c *Classifier) FeatureCount() int { return c.featureCount }

func (c *Classifier) TreeCount() int { return len(c.trees) }

// Fit trains the model on X with binary labels y, replacing any previous model.
func (c *Classifier) Fit(X [][]float64, y []float64) error {
	nFeatures, err := validateMatrix(X)
	if err != nil {
		return err
	}
	if len(y) != len(X) {
		return ErrLabelMismatch
	}
	positives := 0.0
	for i, label := range y {
		if label != 0 && label != 1 {
			return fmt.Errorf("%w: row %d has label %v", ErrNonBinaryLabel, i, label)
		}
		positives += label
	}

	borders := make([][]float64, nFeatures)
	for f := 0; f < nFeatures; f++ {
		borders[f] = quantileBorders(X, f, c.params.BorderCount)
	}

	bias := logit(positives / float64(len(y)))
	raw := make([]float64, len(X))
	for i := range raw {
		raw[i] = bias
	}

	grad := make([]float64, len(X))
	hess := make([]float64, len(X))
	trees := make([]ObliviousTree, 0, c.params.Iterations)
	for it := 0; it < c.params.Iterations; it++ {
		for i := range raw {
			p := sigmoid(raw[i])
			grad[i] = y[i] - p
			hess[i] = p * (1 - p)
		}
		tree := growTree(X, grad, hess, borders, c.params)
		for i, row := range X {
			raw[i] += tree.value(row)
		}
		trees = append(trees, tree)
	}

	c.featureCount = nFeatures
	c.borders = borders
	c.bias = bias
	c.trees = trees
	return nil
}

// PredictRaw returns the log-odds for every row.
func (c *Classifier) PredictRaw(X [][]float64) ([]float64, error) {
	if !c.IsFitted() {
		return nil, ErrNotFitted
	}
	for i, row := range X {
		if len(row) != c.featureCount {
			return nil, fmt.Errorf("%w: row %d has %d features, want %d", ErrFeatureMismatch, i, len(row), c.featureCount)
		}
	}

	out := make([]float64, len(X))
	for i, row := range X {
		v := c.bias
		for t := range c.trees {
			v += c.trees[t].value(row)
		}
		out[i] = v
	}
	return out, nil
}

// PredictProba returns the probability of the positive class for every row.
func (c *Classifier) PredictProba(X [][]float64) ([]float64, error) {
	raw, err := c.PredictRaw(X)
	if err != nil {
		return nil, err
	}
	for i := range raw {
		raw[i] = sigmoid(raw[i])
	}
	return raw, nil
}

// Predict returns class labels (0 or 1).
func (c *Classifier) Predict(X [][]float64) ([]int, error) {
	raw, err := c.PredictRaw(X)
	if err != nil {
		return nil, err
	}
	labels := make([]int, len(raw))
	for i, v := range raw {
		if v > 0 {
			labels[i] = 1
		}
	}
	return labels, nil
}

func validateMatrix(X [][]float64) (int, error) {
	if len(X) == 0 || len(X[0]) == 0 {
		return 0, ErrEmptyDataset
	}
	n := len(X[0])
	for i, row := range X {
		if len(row) != n {
			return 0, fmt.Errorf("%w: row %d", ErrRaggedDataset, i)
		}
	}
	return n, nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func logit(p float64) float64 {
	const eps = 1e-6
	p = math.Min(math.Max(p, eps), 1-eps)
	return math.Log(p / (1 - p))
}
