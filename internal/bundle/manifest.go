package bundle

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"bento-registry/internal/core/domain"
)

const (
	ManifestFile     = "bundle.yml"
	RequirementsFile = "requirements.txt"
	ArtifactsDir     = "artifacts"

	manifestVersion = 1
)

type Manifest struct {
	ManifestVersion int                `yaml:"manifest_version"`
	Name            string             `yaml:"name"`
	Version         string             `yaml:"version"`
	CreatedAt       time.Time          `yaml:"created_at"`
	Artifacts       []ManifestArtifact `yaml:"artifacts"`
	Env             ManifestEnv        `yaml:"env"`
}

type ManifestArtifact struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
	File string `yaml:"file"`
}

type ManifestEnv struct {
	Packages []string `yaml:"packages"`
}

func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidManifest, err)
	}
	if m.Name == "" || m.Version == "" {
		return nil, fmt.Errorf("%w: name and version are required", domain.ErrInvalidManifest)
	}
	return &m, nil
}

func writeManifest(dir string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, ManifestFile), data, 0o644)
}

func (m *Manifest) artifact(name string) (ManifestArtifact, bool) {
	for _, a := range m.Artifacts {
		if a.Name == name {
			return a, true
		}
	}
	return ManifestArtifact{}, false
}
