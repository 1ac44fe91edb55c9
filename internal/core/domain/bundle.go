package domain

import (
	"time"

	"github.com/google/uuid"
)

// Bundle is one saved version of a packaged service: a directory holding the
// artifacts, the manifest and the declared dependencies.
type Bundle struct {
	ID           uuid.UUID         `json:"id"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	ProjectID    uuid.UUID         `json:"project_id"`
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Path         string            `json:"path"`
	Artifacts    []BundleArtifact  `json:"artifacts"`
	Dependencies []string          `json:"dependencies"`
	Labels       map[string]string `json:"labels"`
}

type BundleArtifact struct {
	Name string `json:"name"`
	Type string `json:"type"`
	File string `json:"file"`
}

// Tag is the "name:version" reference used in logs and deployment labels.
func (b *Bundle) Tag() string {
	return b.Name + ":" + b.Version
}
