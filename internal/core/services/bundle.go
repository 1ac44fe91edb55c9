package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"bento-registry/internal/artifact"
	"bento-registry/internal/bundle"
	"bento-registry/internal/config"
	"bento-registry/internal/core/domain"
	"bento-registry/internal/core/ports/output"
)

const (
	defaultArtifactName = "model"
	defaultPageLimit    = 20
	maxPageLimit        = 100
)

type CreateBundleInput struct {
	Name         string
	Version      string
	ArtifactName string
	Model        []byte
	Labels       map[string]string
}

type Prediction struct {
	Labels        []int
	Probabilities []float64
}

type BundleService struct {
	repo     ports.BundleRepository
	kserve   ports.KServeClient
	registry *artifact.Registry
	cfg      config.BundleConfig

	mu     sync.RWMutex
	loaded map[uuid.UUID]*bundle.Service
	loads  singleflight.Group
}

func NewBundleService(repo ports.BundleRepository, kserveClient ports.KServeClient, registry *artifact.Registry, cfg config.BundleConfig) *BundleService {
	if cfg.ModelExtension == "" {
		cfg.ModelExtension = artifact.DefaultModelExtension
	}
	if cfg.Library == "" {
		cfg.Library = artifact.DefaultLibrary
	}
	return &BundleService{
		repo:     repo,
		kserve:   kserveClient,
		registry: registry,
		cfg:      cfg,
		loaded:   make(map[uuid.UUID]*bundle.Service),
	}
}

// Libraries lists the model libraries linked into this process.
func (s *BundleService) Libraries() []string {
	return s.registry.Names()
}

// Create loads the uploaded model file through a classifier artifact, saves
// it as a new bundle version and records the bundle.
func (s *BundleService) Create(ctx context.Context, projectID uuid.UUID, in CreateBundleInput) (*domain.Bundle, error) {
	if err := bundle.ValidateName(in.Name); err != nil {
		return nil, err
	}
	if err := bundle.ValidateVersion(in.Version); err != nil {
		return nil, err
	}
	if len(in.Model) == 0 {
		return nil, domain.ErrEmptyModelFile
	}
	if in.ArtifactName == "" {
		in.ArtifactName = defaultArtifactName
	}

	art := s.newArtifact(in.ArtifactName)
	if err := s.loadUpload(art, in.Model); err != nil {
		return nil, err
	}

	svc, err := bundle.NewService(in.Name, in.Version, art)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByNameVersion(ctx, projectID, svc.Name(), svc.Version()); err == nil {
		return nil, domain.ErrBundleVersionConflict
	} else if !errors.Is(err, domain.ErrBundleNotFound) {
		return nil, err
	}

	dir, err := svc.Save(s.projectRoot(projectID))
	if err != nil {
		return nil, err
	}

	labels := in.Labels
	if labels == nil {
		labels = make(map[string]string)
	}

	now := time.Now()
	record := &domain.Bundle{
		ID:           uuid.New(),
		CreatedAt:    now,
		UpdatedAt:    now,
		ProjectID:    projectID,
		Name:         svc.Name(),
		Version:      svc.Version(),
		Path:         dir,
		Dependencies: svc.Env().Packages(),
		Labels:       labels,
	}
	for _, a := range svc.Artifacts() {
		record.Artifacts = append(record.Artifacts, domain.BundleArtifact{Name: a.Name(), Type: a.Type(), File: a.FileName()})
	}

	if err := s.repo.Create(ctx, record); err != nil {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			log.WithError(rmErr).WithField("path", dir).Warn("remove orphaned bundle dir failed")
		}
		return nil, err
	}

	s.mu.Lock()
	s.loaded[record.ID] = svc
	s.mu.Unlock()

	log.WithFields(log.Fields{
		"bundle_id": record.ID,
		"bundle":    record.Tag(),
		"path":      dir,
	}).Info("bundle saved")

	return s.repo.GetByID(ctx, projectID, record.ID)
}

func (s *BundleService) Get(ctx context.Context, projectID uuid.UUID, id uuid.UUID) (*domain.Bundle, error) {
	return s.repo.GetByID(ctx, projectID, id)
}

func (s *BundleService) List(ctx context.Context, projectID uuid.UUID, filter ports.BundleListFilter) ([]*domain.Bundle, int, error) {
	filter.Limit = PageLimit(filter.Limit)
	filter.ProjectID = projectID
	return s.repo.List(ctx, filter)
}

// PageLimit is the page size List actually uses for a requested limit.
func PageLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultPageLimit
	case limit > maxPageLimit:
		return maxPageLimit
	}
	return limit
}

// Delete removes the bundle record and its directory. A record whose path is
// outside the bundle root is left untouched.
func (s *BundleService) Delete(ctx context.Context, projectID uuid.UUID, id uuid.UUID) error {
	record, err := s.repo.GetByID(ctx, projectID, id)
	if err != nil {
		return err
	}
	if !bundle.Contains(s.projectRoot(projectID), record.Path) {
		return fmt.Errorf("bundle %s: path %s is outside the bundle root", record.Tag(), record.Path)
	}
	if err := s.repo.Delete(ctx, projectID, id); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.loaded, id)
	s.mu.Unlock()

	if err := os.RemoveAll(record.Path); err != nil {
		return fmt.Errorf("remove bundle dir: %w", err)
	}
	return nil
}

// Predict runs the named classifier artifact of a bundle on rows. An empty
// artifact name selects the bundle's first artifact.
func (s *BundleService) Predict(ctx context.Context, projectID uuid.UUID, id uuid.UUID, artifactName string, rows [][]float64) (*Prediction, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: at least one instance is required", domain.ErrInvalidInstances)
	}

	record, err := s.repo.GetByID(ctx, projectID, id)
	if err != nil {
		return nil, err
	}
	svc, err := s.load(record)
	if err != nil {
		return nil, err
	}

	if artifactName == "" {
		if len(record.Artifacts) == 0 {
			return nil, domain.ErrArtifactNotFound
		}
		artifactName = record.Artifacts[0].Name
	}
	a, err := svc.Artifact(artifactName)
	if err != nil {
		return nil, err
	}
	clf, ok := a.Get().(ports.Classifier)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrArtifactNotPredictor, artifactName)
	}

	labels, err := clf.Predict(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInstances, err)
	}
	probs, err := clf.PredictProba(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInstances, err)
	}
	return &Prediction{Labels: labels, Probabilities: probs}, nil
}

// Deploy creates a KServe InferenceService serving the bundle directory.
func (s *BundleService) Deploy(ctx context.Context, projectID uuid.UUID, id uuid.UUID, namespace string) (*ports.KServeDeployment, error) {
	if s.kserve == nil || !s.kserve.IsAvailable() {
		return nil, domain.ErrKServeNotAvailable
	}

	record, err := s.repo.GetByID(ctx, projectID, id)
	if err != nil {
		return nil, err
	}

	uri, err := s.storageURI(record)
	if err != nil {
		return nil, err
	}

	deployment, err := s.kserve.Deploy(ctx, namespace, record, uri)
	if err != nil {
		log.WithError(err).WithField("bundle", record.Tag()).Error("kserve deploy failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrDeploymentFailed, err)
	}

	log.WithFields(log.Fields{
		"bundle":    record.Tag(),
		"isvc":      deployment.Name,
		"namespace": deployment.Namespace,
	}).Info("bundle deployed")

	return deployment, nil
}

func (s *BundleService) DeploymentStatus(ctx context.Context, namespace, name string) (*ports.KServeStatus, error) {
	if s.kserve == nil || !s.kserve.IsAvailable() {
		return nil, domain.ErrKServeNotAvailable
	}
	return s.kserve.GetStatus(ctx, namespace, name)
}

func (s *BundleService) Undeploy(ctx context.Context, namespace, name string) error {
	if s.kserve == nil || !s.kserve.IsAvailable() {
		return domain.ErrKServeNotAvailable
	}
	return s.kserve.Undeploy(ctx, namespace, name)
}

func (s *BundleService) newArtifact(name string) *artifact.ClassifierArtifact {
	return artifact.NewClassifierArtifact(name,
		artifact.WithModelExtension(s.cfg.ModelExtension),
		artifact.WithLibrary(s.cfg.Library),
		artifact.WithRegistry(s.registry),
	)
}

// loadUpload stages the uploaded bytes at the artifact's file path in a
// scratch directory and loads them through the artifact.
func (s *BundleService) loadUpload(art *artifact.ClassifierArtifact, model []byte) error {
	if err := bundle.ValidateArtifactName(art.Name()); err != nil {
		return err
	}

	tmp, err := os.MkdirTemp("", "bundle-upload-*")
	if err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	if err := os.WriteFile(art.ModelFilePath(tmp), model, 0o600); err != nil {
		return fmt.Errorf("stage model file: %w", err)
	}
	if _, err := art.Load(tmp); err != nil {
		if errors.Is(err, domain.ErrMissingDependency) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidModelFile, err)
	}
	return nil
}

// load returns the cached bundle or reads it from disk. Concurrent cold loads
// of one bundle share a single read; the cache lock is never held during it.
func (s *BundleService) load(record *domain.Bundle) (*bundle.Service, error) {
	if svc, ok := s.cached(record.ID); ok {
		return svc, nil
	}

	v, err, _ := s.loads.Do(record.ID.String(), func() (interface{}, error) {
		if svc, ok := s.cached(record.ID); ok {
			return svc, nil
		}
		svc, err := s.loadFromDisk(record)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.loaded[record.ID] = svc
		s.mu.Unlock()
		return svc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*bundle.Service), nil
}

func (s *BundleService) cached(id uuid.UUID) (*bundle.Service, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	svc, ok := s.loaded[id]
	return svc, ok
}

func (s *BundleService) loadFromDisk(record *domain.Bundle) (*bundle.Service, error) {
	artifacts := make([]bundle.Artifact, 0, len(record.Artifacts))
	for _, ba := range record.Artifacts {
		ext := filepath.Ext(ba.File)
		artifacts = append(artifacts, artifact.NewClassifierArtifact(ba.Name,
			artifact.WithModelExtension(ext),
			artifact.WithLibrary(strings.TrimSuffix(ba.Type, "-classifier")),
			artifact.WithRegistry(s.registry),
		))
	}

	svc, err := bundle.Load(record.Path, artifacts...)
	if err != nil {
		return nil, err
	}
	log.WithField("bundle", record.Tag()).Debug("bundle loaded from disk")
	return svc, nil
}

func (s *BundleService) projectRoot(projectID uuid.UUID) string {
	return filepath.Join(s.cfg.RootDir, projectID.String())
}

func (s *BundleService) storageURI(record *domain.Bundle) (string, error) {
	rel, err := filepath.Rel(s.cfg.RootDir, record.Path)
	if err != nil || !bundle.Contains(s.cfg.RootDir, record.Path) {
		return "", fmt.Errorf("%w: bundle %s is outside the bundle root", domain.ErrDeploymentFailed, record.Tag())
	}
	if s.cfg.StorageURIPrefix == "" {
		return "file://" + record.Path, nil
	}
	return strings.TrimSuffix(s.cfg.StorageURIPrefix, "/") + "/" + path.Clean(filepath.ToSlash(rel)), nil
}
