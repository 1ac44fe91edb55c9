package artifact_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bento-registry/internal/adapters/secondary/gbmlib"
	"bento-registry/internal/artifact"
	"bento-registry/internal/core/domain"
	"bento-registry/pkg/gbm"
)

func catboostRegistry() *artifact.Registry {
	r := artifact.NewRegistry()
	r.Register(gbmlib.New())
	return r
}

func trainedClassifier(t *testing.T) (*gbm.Classifier, [][]float64) {
	t.Helper()
	X := [][]float64{
		{0.1, 1.0}, {0.2, 0.8}, {0.3, 0.9}, {0.4, 0.1},
		{0.6, 0.2}, {0.7, 0.9}, {0.8, 0.3}, {0.9, 0.5},
	}
	y := []float64{0, 0, 0, 0, 1, 1, 1, 1}
	clf := gbm.NewClassifier(gbm.WithIterations(20), gbm.WithDepth(2), gbm.WithLearningRate(0.5))
	require.NoError(t, clf.Fit(X, y))
	return clf, X
}

func TestClassifierArtifact_PackGetIdentity(t *testing.T) {
	a := artifact.NewClassifierArtifact("model", artifact.WithRegistry(catboostRegistry()))
	assert.Nil(t, a.Get())

	clf, _ := trainedClassifier(t)
	packed, err := a.Pack(clf)
	require.NoError(t, err)

	assert.Same(t, a, packed)
	assert.Same(t, clf, a.Get())
}

func TestClassifierArtifact_PackReplacesModel(t *testing.T) {
	a := artifact.NewClassifierArtifact("model", artifact.WithRegistry(catboostRegistry()))
	first := gbm.NewClassifier()
	second := gbm.NewClassifier()

	_, err := a.Pack(first)
	require.NoError(t, err)
	_, err = a.Pack(second)
	require.NoError(t, err)

	assert.Same(t, second, a.Get())
}

func TestClassifierArtifact_PackWrongTypeKeepsPrevious(t *testing.T) {
	a := artifact.NewClassifierArtifact("model", artifact.WithRegistry(catboostRegistry()))
	clf, _ := trainedClassifier(t)
	_, err := a.Pack(clf)
	require.NoError(t, err)

	for _, bad := range []any{nil, "model", 3.14, gbm.Classifier{}, (*gbm.Classifier)(nil)} {
		packed, err := a.Pack(bad)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		assert.Nil(t, packed)
		assert.Same(t, clf, a.Get())
	}
}

func TestClassifierArtifact_SaveLoadRoundTrip(t *testing.T) {
	for _, ext := range []string{".json", ".cbm"} {
		t.Run(ext, func(t *testing.T) {
			reg := catboostRegistry()
			dir := t.TempDir()
			clf, X := trainedClassifier(t)

			saver := artifact.NewClassifierArtifact("model", artifact.WithRegistry(reg), artifact.WithModelExtension(ext))
			_, err := saver.Pack(clf)
			require.NoError(t, err)
			require.NoError(t, saver.Save(dir))
			assert.FileExists(t, filepath.Join(dir, "model"+ext))

			loader := artifact.NewClassifierArtifact("model", artifact.WithRegistry(reg), artifact.WithModelExtension(ext))
			loaded, err := loader.Load(dir)
			require.NoError(t, err)
			assert.Same(t, loader, loaded)

			restored, ok := loader.Get().(*gbm.Classifier)
			require.True(t, ok)
			assert.NotSame(t, clf, restored)

			want, err := clf.Predict(X)
			require.NoError(t, err)
			got, err := restored.Predict(X)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestClassifierArtifact_MissingDependency(t *testing.T) {
	dir := t.TempDir()
	a := artifact.NewClassifierArtifact("model", artifact.WithRegistry(artifact.NewRegistry()))
	clf, _ := trainedClassifier(t)

	_, err := a.Pack(clf)
	assert.ErrorIs(t, err, domain.ErrMissingDependency)
	assert.Nil(t, a.Get())

	_, err = a.Load(dir)
	assert.ErrorIs(t, err, domain.ErrMissingDependency)

	err = a.Save(dir)
	assert.ErrorIs(t, err, domain.ErrMissingDependency)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClassifierArtifact_PathDeterminism(t *testing.T) {
	a := artifact.NewClassifierArtifact("model")
	b := artifact.NewClassifierArtifact("model")
	base := filepath.Join("bundles", "svc", "v1")

	assert.Equal(t, filepath.Join(base, "model.json"), a.ModelFilePath(base))
	assert.Equal(t, a.ModelFilePath(base), b.ModelFilePath(base))

	c := artifact.NewClassifierArtifact("clf", artifact.WithModelExtension("cbm"))
	assert.Equal(t, ".cbm", c.Extension())
	assert.Equal(t, filepath.Join(base, "clf.cbm"), c.ModelFilePath(base))
}

func TestClassifierArtifact_SaveWithoutModel(t *testing.T) {
	dir := t.TempDir()
	a := artifact.NewClassifierArtifact("model", artifact.WithRegistry(catboostRegistry()))

	assert.ErrorIs(t, a.Save(dir), domain.ErrInvalidArgument)
	assert.NoFileExists(t, a.ModelFilePath(dir))
}

func TestClassifierArtifact_LibraryErrorsPassThrough(t *testing.T) {
	reg := catboostRegistry()
	dir := t.TempDir()

	_, err := artifact.NewClassifierArtifact("model", artifact.WithRegistry(reg)).Load(dir)
	assert.True(t, os.IsNotExist(err))

	a := artifact.NewClassifierArtifact("model", artifact.WithRegistry(reg))
	_, err = a.Pack(gbm.NewClassifier())
	require.NoError(t, err)
	assert.ErrorIs(t, a.Save(dir), gbm.ErrNotFitted)
}

func TestClassifierArtifact_SetDependencies(t *testing.T) {
	env := domain.NewServiceEnv()
	artifact.NewClassifierArtifact("a", artifact.WithRegistry(catboostRegistry())).SetDependencies(env)
	artifact.NewClassifierArtifact("b", artifact.WithRegistry(artifact.NewRegistry())).SetDependencies(env)

	assert.Equal(t, []string{"catboost"}, env.Packages())
}
