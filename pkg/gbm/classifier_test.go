package gbm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// separableDataset labels a 2D grid by x0 + x1 > 1 and adds a constant column.
func separableDataset() ([][]float64, []float64) {
	var X [][]float64
	var y []float64
	for i := 0; i <= 10; i++ {
		for j := 0; j <= 10; j++ {
			a, b := float64(i)/10, float64(j)/10
			X = append(X, []float64{a, b, 7})
			if a+b > 1 {
				y = append(y, 1)
			} else {
				y = append(y, 0)
			}
		}
	}
	return X, y
}

func fitted(t *testing.T) (*Classifier, [][]float64, []float64) {
	t.Helper()
	X, y := separableDataset()
	clf := NewClassifier(WithIterations(40), WithDepth(3), WithLearningRate(0.3))
	require.NoError(t, clf.Fit(X, y))
	return clf, X, y
}

func TestClassifier_Fit(t *testing.T) {
	clf, X, y := fitted(t)

	assert.True(t, clf.IsFitted())
	assert.Equal(t, 3, clf.FeatureCount())
	assert.Equal(t, 40, clf.TreeCount())

	labels, err := clf.Predict(X)
	require.NoError(t, err)
	correct := 0
	for i := range labels {
		if float64(labels[i]) == y[i] {
			correct++
		}
	}
	assert.Greater(t, float64(correct)/float64(len(y)), 0.9)

	proba, err := clf.PredictProba([][]float64{{0, 0, 7}, {1, 1, 7}})
	require.NoError(t, err)
	assert.Less(t, proba[0], 0.5)
	assert.Greater(t, proba[1], 0.5)
}

func TestClassifier_ConstantFeatureIsNeverSplit(t *testing.T) {
	clf, _, _ := fitted(t)
	for _, tree := range clf.trees {
		for _, s := range tree.Splits {
			assert.NotEqual(t, 2, s.FeatureIndex)
		}
	}
}

func TestClassifier_FitValidation(t *testing.T) {
	clf := NewClassifier()

	assert.ErrorIs(t, clf.Fit(nil, nil), ErrEmptyDataset)
	assert.ErrorIs(t, clf.Fit([][]float64{{1, 2}, {1}}, []float64{0, 1}), ErrRaggedDataset)
	assert.ErrorIs(t, clf.Fit([][]float64{{1}, {2}}, []float64{0}), ErrLabelMismatch)
	assert.ErrorIs(t, clf.Fit([][]float64{{1}, {2}}, []float64{0, 2}), ErrNonBinaryLabel)
	assert.False(t, clf.IsFitted())
}

func TestClassifier_PredictErrors(t *testing.T) {
	_, err := NewClassifier().Predict([][]float64{{1}})
	assert.ErrorIs(t, err, ErrNotFitted)

	clf, _, _ := fitted(t)
	_, err = clf.Predict([][]float64{{1, 2}})
	assert.ErrorIs(t, err, ErrFeatureMismatch)
}

func TestClassifier_SaveLoad(t *testing.T) {
	for _, format := range []string{FormatJSON, FormatCBM} {
		t.Run(format, func(t *testing.T) {
			clf, X, _ := fitted(t)
			path := filepath.Join(t.TempDir(), "model."+format)
			require.NoError(t, clf.SaveModel(path, format))

			restored := NewClassifier()
			require.NoError(t, restored.LoadModel(path, format))

			want, err := clf.PredictProba(X)
			require.NoError(t, err)
			got, err := restored.PredictProba(X)
			require.NoError(t, err)
			assert.InDeltaSlice(t, want, got, 1e-12)
			assert.Equal(t, clf.Params(), restored.Params())
		})
	}
}

func TestClassifier_SaveErrors(t *testing.T) {
	dir := t.TempDir()

	err := NewClassifier().SaveModel(filepath.Join(dir, "m.json"), FormatJSON)
	assert.ErrorIs(t, err, ErrNotFitted)

	clf, _, _ := fitted(t)
	err = clf.SaveModel(filepath.Join(dir, "m.onnx"), "onnx")
	assert.ErrorIs(t, err, ErrUnknownFormat)
	_, statErr := os.Stat(filepath.Join(dir, "m.onnx"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestClassifier_LoadErrors(t *testing.T) {
	dir := t.TempDir()

	err := NewClassifier().LoadModel(filepath.Join(dir, "missing.json"), FormatJSON)
	assert.True(t, os.IsNotExist(err))

	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte("{not json"), 0o644))
	assert.ErrorIs(t, NewClassifier().LoadModel(garbage, FormatJSON), ErrInvalidModel)

	badLeaves := filepath.Join(dir, "bad.json")
	doc := `{"features_info":{"float_features":[{"feature_index":0,"borders":[0.5]}]},
		"oblivious_trees":[{"splits":[{"float_feature_index":0,"border":0.5}],"leaf_values":[1]}]}`
	require.NoError(t, os.WriteFile(badLeaves, []byte(doc), 0o644))
	assert.ErrorIs(t, NewClassifier().LoadModel(badLeaves, FormatJSON), ErrInvalidModel)
}

func TestQuantileBorders(t *testing.T) {
	X := [][]float64{{1}, {2}, {2}, {3}}
	assert.Equal(t, []float64{1.5, 2.5}, quantileBorders(X, 0, 10))
	assert.Len(t, quantileBorders(X, 0, 1), 1)
	assert.Nil(t, quantileBorders([][]float64{{4}, {4}}, 0, 10))
}
