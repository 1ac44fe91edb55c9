package gbm

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/ugorji/go/codec"
)

const (
	FormatJSON = "json"
	FormatCBM  = "cbm"

	modelVersion = 1
)

type modelInfo struct {
	Version      int     `json:"version" codec:"version"`
	Loss         string  `json:"loss_function" codec:"loss_function"`
	Iterations   int     `json:"iterations" codec:"iterations"`
	Depth        int     `json:"depth" codec:"depth"`
	LearningRate float64 `json:"learning_rate" codec:"learning_rate"`
	BorderCount  int     `json:"border_count" codec:"border_count"`
	L2Reg        float64 `json:"l2_leaf_reg" codec:"l2_leaf_reg"`
}

type floatFeature struct {
	FeatureIndex int       `json:"feature_index" codec:"feature_index"`
	Borders      []float64 `json:"borders" codec:"borders"`
}

type featuresInfo struct {
	FloatFeatures []floatFeature `json:"float_features" codec:"float_features"`
}

type modelDocument struct {
	ModelInfo    modelInfo       `json:"model_info" codec:"model_info"`
	FeaturesInfo featuresInfo    `json:"features_info" codec:"features_info"`
	Trees        []ObliviousTree `json:"oblivious_trees" codec:"oblivious_trees"`
	Scale        float64         `json:"scale" codec:"scale"`
	Bias         float64         `json:"bias" codec:"bias"`
}

// SaveModel writes the fitted model to path in the given format.
func (c *Classifier) SaveModel(path, format string) error {
	if !c.IsFitted() {
		return ErrNotFitted
	}
	data, err := encode(c.document(), format)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadModel replaces the classifier state with the model stored at path.
func (c *Classifier) LoadModel(path, format string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var doc modelDocument
	if err := decode(data, format, &doc); err != nil {
		return err
	}
	if err := doc.validate(); err != nil {
		return err
	}

	c.params = Params{
		Iterations:   doc.ModelInfo.Iterations,
		Depth:        doc.ModelInfo.Depth,
		LearningRate: doc.ModelInfo.LearningRate,
		BorderCount:  doc.ModelInfo.BorderCount,
		L2Reg:        doc.ModelInfo.L2Reg,
	}
	c.featureCount = len(doc.FeaturesInfo.FloatFeatures)
	c.borders = make([][]float64, c.featureCount)
	for _, ff := range doc.FeaturesInfo.FloatFeatures {
		c.borders[ff.FeatureIndex] = ff.Borders
	}
	c.bias = doc.Bias
	c.trees = doc.Trees
	if doc.Scale != 1 {
		for t := range c.trees {
			for i := range c.trees[t].LeafValues {
				c.trees[t].LeafValues[i] *= doc.Scale
			}
		}
	}
	return nil
}

func (c *Classifier) document() modelDocument {
	features := make([]floatFeature, c.featureCount)
	for f := range features {
		features[f] = floatFeature{FeatureIndex: f, Borders: c.borders[f]}
	}
	return modelDocument{
		ModelInfo: modelInfo{
			Version:      modelVersion,
			Loss:         "Logloss",
			Iterations:   c.params.Iterations,
			Depth:        c.params.Depth,
			LearningRate: c.params.LearningRate,
			BorderCount:  c.params.BorderCount,
			L2Reg:        c.params.L2Reg,
		},
		FeaturesInfo: featuresInfo{FloatFeatures: features},
		Trees:        c.trees,
		Scale:        1,
		Bias:         c.bias,
	}
}

func (d *modelDocument) validate() error {
	n := len(d.FeaturesInfo.FloatFeatures)
	if n == 0 {
		return fmt.Errorf("%w: no features", ErrInvalidModel)
	}
	seen := make([]bool, n)
	for _, ff := range d.FeaturesInfo.FloatFeatures {
		if ff.FeatureIndex < 0 || ff.FeatureIndex >= n || seen[ff.FeatureIndex] {
			return fmt.Errorf("%w: bad feature index %d", ErrInvalidModel, ff.FeatureIndex)
		}
		seen[ff.FeatureIndex] = true
	}
	for i, t := range d.Trees {
		if len(t.Splits) > maxDepth {
			return fmt.Errorf("%w: tree %d is deeper than %d", ErrInvalidModel, i, maxDepth)
		}
		if len(t.LeafValues) != 1<<len(t.Splits) {
			return fmt.Errorf("%w: tree %d has %d leaves for %d splits", ErrInvalidModel, i, len(t.LeafValues), len(t.Splits))
		}
		for _, s := range t.Splits {
			if s.FeatureIndex < 0 || s.FeatureIndex >= n {
				return fmt.Errorf("%w: tree %d splits on feature %d", ErrInvalidModel, i, s.FeatureIndex)
			}
		}
	}
	if d.Scale == 0 {
		d.Scale = 1
	}
	return nil
}

func encode(doc modelDocument, format string) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(doc, "", "  ")
	case FormatCBM:
		var out []byte
		if err := codec.NewEncoderBytes(&out, msgpackHandle()).Encode(doc); err != nil {
			return nil, fmt.Errorf("encode cbm: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func decode(data []byte, format string, doc *modelDocument) error {
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, doc); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidModel, err)
		}
	case FormatCBM:
		if err := codec.NewDecoderBytes(data, msgpackHandle()).Decode(doc); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidModel, err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return nil
}

func msgpackHandle() *codec.MsgpackHandle {
	h := &codec.MsgpackHandle{}
	h.WriteExt = true
	return h
}
