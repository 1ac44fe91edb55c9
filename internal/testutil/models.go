package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"bento-registry/pkg/gbm"
)

// TrainingRows is a small linearly separable dataset: label 1 when x0 > 0.5.
var TrainingRows = [][]float64{
	{0.1, 1.0}, {0.2, 0.8}, {0.3, 0.9}, {0.4, 0.1},
	{0.6, 0.2}, {0.7, 0.9}, {0.8, 0.3}, {0.9, 0.5},
}

var TrainingLabels = []float64{0, 0, 0, 0, 1, 1, 1, 1}

func FitClassifier(t *testing.T) *gbm.Classifier {
	t.Helper()
	clf := gbm.NewClassifier(gbm.WithIterations(20), gbm.WithDepth(2), gbm.WithLearningRate(0.5))
	require.NoError(t, clf.Fit(TrainingRows, TrainingLabels))
	return clf
}

// ModelFile returns the bytes of a fitted classifier saved in format.
func ModelFile(t *testing.T, format string) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload."+format)
	require.NoError(t, FitClassifier(t).SaveModel(path, format))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}
