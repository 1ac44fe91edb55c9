package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bento-registry/internal/adapters/secondary/gbmlib"
	"bento-registry/internal/artifact"
	"bento-registry/internal/config"
	"bento-registry/internal/core/domain"
	"bento-registry/internal/core/ports/output"
	"bento-registry/internal/testutil"
	"bento-registry/pkg/gbm"
)

func newTestService(t *testing.T, kserve ports.KServeClient) (*BundleService, *testutil.MockBundleRepo, string) {
	t.Helper()
	repo := new(testutil.MockBundleRepo)
	reg := artifact.NewRegistry()
	reg.Register(gbmlib.New())
	root := t.TempDir()
	svc := NewBundleService(repo, kserve, reg, config.BundleConfig{
		RootDir:          root,
		StorageURIPrefix: "pvc://bento-bundles",
	})
	return svc, repo, root
}

// createBundle runs Create with a repo that echoes the stored record back.
func createBundle(t *testing.T, svc *BundleService, repo *testutil.MockBundleRepo, projectID uuid.UUID) *domain.Bundle {
	t.Helper()
	var stored *domain.Bundle
	repo.On("GetByNameVersion", mock.Anything, projectID, "iris", "v1").Return(nil, domain.ErrBundleNotFound).Once()
	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Bundle")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*domain.Bundle) }).
		Return(nil).Once()
	repo.On("GetByID", mock.Anything, projectID, mock.AnythingOfType("uuid.UUID")).
		Return(func(_ context.Context, _ uuid.UUID, _ uuid.UUID) *domain.Bundle { return stored }, nil)

	b, err := svc.Create(context.Background(), projectID, CreateBundleInput{
		Name:    "iris",
		Version: "v1",
		Model:   testutil.ModelFile(t, gbm.FormatJSON),
	})
	require.NoError(t, err)
	return b
}

func TestBundleService_Create(t *testing.T) {
	svc, repo, root := newTestService(t, nil)
	projectID := uuid.New()

	b := createBundle(t, svc, repo, projectID)

	assert.Equal(t, "iris", b.Name)
	assert.Equal(t, "v1", b.Version)
	assert.Equal(t, projectID, b.ProjectID)
	assert.Equal(t, filepath.Join(root, projectID.String(), "iris", "v1"), b.Path)
	assert.Equal(t, []string{"catboost"}, b.Dependencies)
	assert.Equal(t, []domain.BundleArtifact{{Name: "model", Type: "catboost-classifier", File: "model.json"}}, b.Artifacts)
	assert.NotNil(t, b.Labels)
	assert.FileExists(t, filepath.Join(b.Path, "artifacts", "model.json"))
	assert.FileExists(t, filepath.Join(b.Path, "bundle.yml"))
	repo.AssertExpectations(t)
}

func TestBundleService_CreateValidation(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()
	projectID := uuid.New()

	_, err := svc.Create(ctx, projectID, CreateBundleInput{Name: " ", Model: []byte("{}")})
	assert.ErrorIs(t, err, domain.ErrInvalidBundleName)

	_, err = svc.Create(ctx, projectID, CreateBundleInput{Name: "iris"})
	assert.ErrorIs(t, err, domain.ErrEmptyModelFile)

	_, err = svc.Create(ctx, projectID, CreateBundleInput{Name: "iris", Model: []byte("not a model")})
	assert.ErrorIs(t, err, domain.ErrInvalidModelFile)

	_, err = svc.Create(ctx, projectID, CreateBundleInput{Name: "iris", ArtifactName: "../x", Model: []byte("{}")})
	assert.ErrorIs(t, err, domain.ErrInvalidArtifactName)
}

func TestBundleService_CreateRejectsTraversal(t *testing.T) {
	tests := []struct {
		name     string
		input    CreateBundleInput
		expected error
	}{
		{name: "parent name", input: CreateBundleInput{Name: "..", Version: "x"}, expected: domain.ErrInvalidBundleName},
		{name: "dot name", input: CreateBundleInput{Name: ".", Version: "x"}, expected: domain.ErrInvalidBundleName},
		{name: "nested name", input: CreateBundleInput{Name: "../x", Version: "v1"}, expected: domain.ErrInvalidBundleName},
		{name: "traversal version", input: CreateBundleInput{Name: "iris", Version: "../../../escaped"}, expected: domain.ErrInvalidBundleVersion},
		{name: "parent version", input: CreateBundleInput{Name: "iris", Version: ".."}, expected: domain.ErrInvalidBundleVersion},
		{name: "parent artifact", input: CreateBundleInput{Name: "iris", Version: "v1", ArtifactName: ".."}, expected: domain.ErrInvalidArtifactName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, root := newTestService(t, nil)
			tt.input.Model = testutil.ModelFile(t, gbm.FormatJSON)

			_, err := svc.Create(context.Background(), uuid.New(), tt.input)
			assert.ErrorIs(t, err, tt.expected)

			entries, err := os.ReadDir(root)
			require.NoError(t, err)
			assert.Empty(t, entries)
			escaped, err := os.ReadDir(filepath.Dir(root))
			require.NoError(t, err)
			for _, e := range escaped {
				assert.NotEqual(t, "escaped", e.Name())
				assert.NotEqual(t, "x", e.Name())
			}
			repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestBundleService_CreateMissingLibrary(t *testing.T) {
	repo := new(testutil.MockBundleRepo)
	root := t.TempDir()
	svc := NewBundleService(repo, nil, artifact.NewRegistry(), config.BundleConfig{RootDir: root})

	_, err := svc.Create(context.Background(), uuid.New(), CreateBundleInput{
		Name:  "iris",
		Model: testutil.ModelFile(t, gbm.FormatJSON),
	})
	assert.ErrorIs(t, err, domain.ErrMissingDependency)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestBundleService_CreateConflict(t *testing.T) {
	svc, repo, _ := newTestService(t, nil)
	projectID := uuid.New()
	repo.On("GetByNameVersion", mock.Anything, projectID, "iris", "v1").Return(&domain.Bundle{ID: uuid.New()}, nil)

	_, err := svc.Create(context.Background(), projectID, CreateBundleInput{
		Name: "iris", Version: "v1", Model: testutil.ModelFile(t, gbm.FormatJSON),
	})
	assert.ErrorIs(t, err, domain.ErrBundleVersionConflict)
}

func TestBundleService_CreateRepoFailureRemovesDir(t *testing.T) {
	svc, repo, root := newTestService(t, nil)
	projectID := uuid.New()
	repo.On("GetByNameVersion", mock.Anything, projectID, "iris", "v1").Return(nil, domain.ErrBundleNotFound)
	repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))

	_, err := svc.Create(context.Background(), projectID, CreateBundleInput{
		Name: "iris", Version: "v1", Model: testutil.ModelFile(t, gbm.FormatJSON),
	})
	assert.Error(t, err)
	assert.NoDirExists(t, filepath.Join(root, projectID.String(), "iris", "v1"))
}

func TestBundleService_List(t *testing.T) {
	svc, repo, _ := newTestService(t, nil)
	projectID := uuid.New()
	bundles := []*domain.Bundle{{ID: uuid.New(), Name: "iris"}}
	repo.On("List", mock.Anything, ports.BundleListFilter{ProjectID: projectID, Limit: 100}).Return(bundles, 1, nil)

	result, total, err := svc.List(context.Background(), projectID, ports.BundleListFilter{Limit: 500})
	assert.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, result, 1)
}

func TestPageLimit(t *testing.T) {
	assert.Equal(t, 20, PageLimit(0))
	assert.Equal(t, 20, PageLimit(-5))
	assert.Equal(t, 7, PageLimit(7))
	assert.Equal(t, 100, PageLimit(100))
	assert.Equal(t, 100, PageLimit(500))
}

func TestBundleService_PredictFromCache(t *testing.T) {
	svc, repo, _ := newTestService(t, nil)
	projectID := uuid.New()
	b := createBundle(t, svc, repo, projectID)

	pred, err := svc.Predict(context.Background(), projectID, b.ID, "", [][]float64{{0.1, 0.5}, {0.9, 0.5}})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, pred.Labels)
	assert.Len(t, pred.Probabilities, 2)
}

func TestBundleService_PredictLoadsFromDisk(t *testing.T) {
	svc, repo, root := newTestService(t, nil)
	projectID := uuid.New()
	b := createBundle(t, svc, repo, projectID)

	// A fresh service has nothing cached and must load the bundle directory.
	fresh := NewBundleService(repo, nil, svc.registry, config.BundleConfig{RootDir: root})
	pred, err := fresh.Predict(context.Background(), projectID, b.ID, "model", testutil.TrainingRows)
	require.NoError(t, err)

	want, err := testutil.FitClassifier(t).Predict(testutil.TrainingRows)
	require.NoError(t, err)
	assert.Equal(t, want, pred.Labels)
}

func TestBundleService_PredictConcurrentColdLoad(t *testing.T) {
	svc, repo, root := newTestService(t, nil)
	projectID := uuid.New()
	b := createBundle(t, svc, repo, projectID)

	fresh := NewBundleService(repo, nil, svc.registry, config.BundleConfig{RootDir: root})
	want, err := testutil.FitClassifier(t).Predict(testutil.TrainingRows)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pred, err := fresh.Predict(context.Background(), projectID, b.ID, "model", testutil.TrainingRows)
			if err == nil && !assert.ObjectsAreEqual(want, pred.Labels) {
				err = errors.New("unexpected labels")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	first, ok := fresh.cached(b.ID)
	require.True(t, ok)
	again, err := fresh.load(b)
	require.NoError(t, err)
	assert.Same(t, first, again)
}

func TestBundleService_PredictErrors(t *testing.T) {
	svc, repo, _ := newTestService(t, nil)
	projectID := uuid.New()
	ctx := context.Background()
	b := createBundle(t, svc, repo, projectID)

	_, err := svc.Predict(ctx, projectID, b.ID, "", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInstances)

	_, err = svc.Predict(ctx, projectID, b.ID, "", [][]float64{{1, 2, 3}})
	assert.ErrorIs(t, err, domain.ErrInvalidInstances)

	_, err = svc.Predict(ctx, projectID, b.ID, "other", [][]float64{{1, 2}})
	assert.ErrorIs(t, err, domain.ErrArtifactNotFound)

	other, otherRepo, _ := newTestService(t, nil)
	missing := uuid.New()
	otherRepo.On("GetByID", mock.Anything, projectID, missing).Return(nil, domain.ErrBundleNotFound)
	_, err = other.Predict(ctx, projectID, missing, "", [][]float64{{1, 2}})
	assert.ErrorIs(t, err, domain.ErrBundleNotFound)
}

func TestBundleService_Delete(t *testing.T) {
	svc, repo, _ := newTestService(t, nil)
	projectID := uuid.New()
	b := createBundle(t, svc, repo, projectID)
	repo.On("Delete", mock.Anything, projectID, b.ID).Return(nil)

	require.NoError(t, svc.Delete(context.Background(), projectID, b.ID))
	assert.NoDirExists(t, b.Path)
}

func TestBundleService_DeleteOutsideRoot(t *testing.T) {
	svc, repo, root := newTestService(t, nil)
	projectID := uuid.New()
	id := uuid.New()
	outside := filepath.Join(filepath.Dir(root), "keep-"+id.String())
	require.NoError(t, os.MkdirAll(outside, 0o755))
	t.Cleanup(func() { os.RemoveAll(outside) })

	repo.On("GetByID", mock.Anything, projectID, id).
		Return(&domain.Bundle{ID: id, Name: "iris", Version: "v1", Path: outside}, nil)

	err := svc.Delete(context.Background(), projectID, id)
	assert.Error(t, err)
	assert.DirExists(t, outside)
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}

func TestBundleService_Deploy(t *testing.T) {
	kserve := new(testutil.MockKServeClient)
	svc, repo, root := newTestService(t, kserve)
	projectID := uuid.New()
	id := uuid.New()
	record := &domain.Bundle{
		ID: id, Name: "iris", Version: "v1", CreatedAt: time.Now(),
		Path: filepath.Join(root, projectID.String(), "iris", "v1"),
	}
	wantURI := "pvc://bento-bundles/" + projectID.String() + "/iris/v1"

	kserve.On("IsAvailable").Return(true)
	repo.On("GetByID", mock.Anything, projectID, id).Return(record, nil)
	kserve.On("Deploy", mock.Anything, "serving", record, wantURI).
		Return(&ports.KServeDeployment{Name: "iris-v1", Namespace: "serving"}, nil)

	dep, err := svc.Deploy(context.Background(), projectID, id, "serving")
	require.NoError(t, err)
	assert.Equal(t, "iris-v1", dep.Name)
	kserve.AssertExpectations(t)
}

func TestBundleService_DeployErrors(t *testing.T) {
	ctx := context.Background()

	svc, _, _ := newTestService(t, nil)
	_, err := svc.Deploy(ctx, uuid.New(), uuid.New(), "")
	assert.ErrorIs(t, err, domain.ErrKServeNotAvailable)
	_, err = svc.DeploymentStatus(ctx, "", "iris-v1")
	assert.ErrorIs(t, err, domain.ErrKServeNotAvailable)
	assert.ErrorIs(t, svc.Undeploy(ctx, "", "iris-v1"), domain.ErrKServeNotAvailable)

	kserve := new(testutil.MockKServeClient)
	svc, repo, root := newTestService(t, kserve)
	projectID := uuid.New()
	id := uuid.New()
	kserve.On("IsAvailable").Return(true)

	outside := &domain.Bundle{ID: id, Name: "iris", Version: "v1", Path: filepath.Join(filepath.Dir(root), "elsewhere")}
	repo.On("GetByID", mock.Anything, projectID, id).Return(outside, nil).Once()
	_, err = svc.Deploy(ctx, projectID, id, "")
	assert.ErrorIs(t, err, domain.ErrDeploymentFailed)

	inside := &domain.Bundle{ID: id, Name: "iris", Version: "v1", Path: filepath.Join(root, "p", "iris", "v1")}
	repo.On("GetByID", mock.Anything, projectID, id).Return(inside, nil).Once()
	kserve.On("Deploy", mock.Anything, "", inside, mock.Anything).Return(nil, errors.New("forbidden"))
	_, err = svc.Deploy(ctx, projectID, id, "")
	assert.ErrorIs(t, err, domain.ErrDeploymentFailed)
}

func TestBundleService_Libraries(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	assert.Equal(t, []string{"catboost"}, svc.Libraries())
}
