// Package bundle assembles artifacts into a versioned service bundle and
// saves or restores it as a directory:
//
//	<root>/<name>/<version>/
//	    bundle.yml
//	    requirements.txt
//	    artifacts/<artifact files>
package bundle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"bento-registry/internal/core/domain"
)

// Service is a named, versioned set of artifacts plus the environment they
// declare.
type Service struct {
	name      string
	version   string
	createdAt time.Time
	artifacts []Artifact
	index     map[string]Artifact
	env       *domain.ServiceEnv
}

// Bundle names, versions and artifact names become path elements, so they
// are limited to a single safe segment.
var segmentPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

func validSegment(s string) bool {
	return len(s) <= 128 && segmentPattern.MatchString(s)
}

// ValidateName reports whether name can be used as a bundle name.
func ValidateName(name string) error {
	if !validSegment(name) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidBundleName, name)
	}
	return nil
}

// ValidateVersion reports whether version can be used as a bundle version.
// The empty version is valid and means "generate one".
func ValidateVersion(version string) error {
	if version != "" && !validSegment(version) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidBundleVersion, version)
	}
	return nil
}

// ValidateArtifactName reports whether name can be used as an artifact name.
func ValidateArtifactName(name string) error {
	if !validSegment(name) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidArtifactName, name)
	}
	return nil
}

// NewService builds a service from artifacts with unique names. An empty
// version is replaced by NewVersion().
func NewService(name, version string, artifacts ...Artifact) (*Service, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := ValidateVersion(version); err != nil {
		return nil, err
	}
	if version == "" {
		version = NewVersion()
	}

	s := &Service{
		name:      name,
		version:   version,
		createdAt: time.Now().UTC(),
		index:     make(map[string]Artifact, len(artifacts)),
		env:       domain.NewServiceEnv(),
	}
	for _, a := range artifacts {
		if err := ValidateArtifactName(a.Name()); err != nil {
			return nil, err
		}
		if _, dup := s.index[a.Name()]; dup {
			return nil, fmt.Errorf("%w: %q", domain.ErrDuplicateArtifact, a.Name())
		}
		s.index[a.Name()] = a
		s.artifacts = append(s.artifacts, a)
		a.SetDependencies(s.env)
	}
	return s, nil
}

// NewVersion returns a sortable version string: UTC timestamp plus a short
// random suffix.
func NewVersion() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return time.Now().UTC().Format("20060102150405") + "_" + suffix
}

func (s *Service) Name() string { return s.name }

func (s *Service) Version() string { return s.version }

func (s *Service) Env() *domain.ServiceEnv { return s.env }

func (s *Service) Artifacts() []Artifact {
	out := make([]Artifact, len(s.artifacts))
	copy(out, s.artifacts)
	return out
}

func (s *Service) Artifact(name string) (Artifact, error) {
	a, ok := s.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrArtifactNotFound, name)
	}
	return a, nil
}

// Pack binds model to the named artifact.
func (s *Service) Pack(name string, model any) error {
	a, err := s.Artifact(name)
	if err != nil {
		return err
	}
	return a.PackModel(model)
}

// Dir returns the directory Save writes to under root.
func (s *Service) Dir(root string) string {
	return filepath.Join(root, s.name, s.version)
}

// Save writes the bundle under root and returns its directory. A partially
// written bundle is removed on failure.
func (s *Service) Save(root string) (dir string, err error) {
	dir = s.Dir(root)
	if !Contains(root, dir) {
		return "", fmt.Errorf("%w: %s escapes %s", domain.ErrInvalidBundleName, dir, root)
	}
	if _, statErr := os.Stat(dir); statErr == nil {
		return "", fmt.Errorf("%w: %s:%s", domain.ErrBundleVersionConflict, s.name, s.version)
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return "", fmt.Errorf("stat bundle dir: %w", statErr)
	}

	artifactsDir := filepath.Join(dir, ArtifactsDir)
	if err := os.MkdirAll(artifactsDir, 0o755); err != nil {
		return "", fmt.Errorf("create bundle dir: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.RemoveAll(dir)
		}
	}()

	m := &Manifest{
		ManifestVersion: manifestVersion,
		Name:            s.name,
		Version:         s.version,
		CreatedAt:       s.createdAt,
		Env:             ManifestEnv{Packages: s.env.Packages()},
	}
	for _, a := range s.artifacts {
		if err := a.Save(artifactsDir); err != nil {
			return "", fmt.Errorf("save artifact %q: %w", a.Name(), err)
		}
		m.Artifacts = append(m.Artifacts, ManifestArtifact{Name: a.Name(), Type: a.Type(), File: a.FileName()})
	}

	if err := writeManifest(dir, m); err != nil {
		return "", err
	}
	if err := writeRequirements(dir, m.Env.Packages); err != nil {
		return "", err
	}
	return dir, nil
}

// Load restores a bundle saved by Save. Every artifact listed in the
// manifest must be supplied, and every supplied artifact must be listed.
func Load(dir string, artifacts ...Artifact) (*Service, error) {
	m, err := ReadManifest(dir)
	if err != nil {
		return nil, err
	}

	s, err := NewService(m.Name, m.Version, artifacts...)
	if err != nil {
		return nil, err
	}
	s.createdAt = m.CreatedAt

	for _, ma := range m.Artifacts {
		if _, ok := s.index[ma.Name]; !ok {
			return nil, fmt.Errorf("%w: bundle artifact %q was not provided", domain.ErrArtifactNotFound, ma.Name)
		}
	}

	artifactsDir := filepath.Join(dir, ArtifactsDir)
	for _, a := range s.artifacts {
		ma, ok := m.artifact(a.Name())
		if !ok {
			return nil, fmt.Errorf("%w: %q is not part of bundle %s:%s", domain.ErrArtifactNotFound, a.Name(), m.Name, m.Version)
		}
		if ma.Type != "" && ma.Type != a.Type() {
			return nil, fmt.Errorf("%w: artifact %q has type %s, want %s", domain.ErrInvalidManifest, a.Name(), ma.Type, a.Type())
		}
		if ma.File != "" && ma.File != a.FileName() {
			return nil, fmt.Errorf("%w: artifact %q was saved as %s, not %s", domain.ErrInvalidManifest, a.Name(), ma.File, a.FileName())
		}
		if err := a.LoadFrom(artifactsDir); err != nil {
			return nil, fmt.Errorf("load artifact %q: %w", a.Name(), err)
		}
	}
	return s, nil
}

// Contains reports whether path lies strictly inside root.
func Contains(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

func writeRequirements(dir string, packages []string) error {
	var b strings.Builder
	for _, p := range packages {
		b.WriteString(p)
		b.WriteByte('\n')
	}
	return os.WriteFile(filepath.Join(dir, RequirementsFile), []byte(b.String()), 0o644)
}
