package dto

import (
	"time"

	"github.com/google/uuid"

	"bento-registry/internal/core/domain"
	"bento-registry/internal/core/ports/output"
)

type BundleArtifactDTO struct {
	Name string `json:"name"`
	Type string `json:"type"`
	File string `json:"file"`
}

type BundleResponse struct {
	ID           uuid.UUID           `json:"id"`
	CreatedAt    string              `json:"created_at"`
	UpdatedAt    string              `json:"updated_at"`
	ProjectID    uuid.UUID           `json:"project_id"`
	Name         string              `json:"name"`
	Version      string              `json:"version"`
	Tag          string              `json:"tag"`
	Path         string              `json:"path"`
	Artifacts    []BundleArtifactDTO `json:"artifacts"`
	Dependencies []string            `json:"dependencies"`
	Labels       map[string]string   `json:"labels"`
}

type ListBundlesResponse struct {
	Items      []BundleResponse `json:"items"`
	Total      int              `json:"total"`
	PageSize   int              `json:"page_size"`
	NextOffset int              `json:"next_offset"`
}

type PredictRequest struct {
	Artifact  string      `json:"artifact"`
	Instances [][]float64 `json:"instances" binding:"required"`
}

type PredictResponse struct {
	Predictions   []int     `json:"predictions"`
	Probabilities []float64 `json:"probabilities"`
}

type DeployRequest struct {
	Namespace string `json:"namespace"`
}

type DeploymentResponse struct {
	Name       string `json:"name"`
	Namespace  string `json:"namespace"`
	ExternalID string `json:"external_id,omitempty"`
	URL        string `json:"url,omitempty"`
}

type DeploymentStatusResponse struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	URL       string `json:"url,omitempty"`
	Ready     bool   `json:"ready"`
	Error     string `json:"error,omitempty"`
}

type LibrariesResponse struct {
	Libraries []string `json:"libraries"`
}

func ToBundleResponse(b *domain.Bundle) BundleResponse {
	artifacts := make([]BundleArtifactDTO, 0, len(b.Artifacts))
	for _, a := range b.Artifacts {
		artifacts = append(artifacts, BundleArtifactDTO{Name: a.Name, Type: a.Type, File: a.File})
	}
	deps := b.Dependencies
	if deps == nil {
		deps = []string{}
	}
	labels := b.Labels
	if labels == nil {
		labels = map[string]string{}
	}
	return BundleResponse{
		ID:           b.ID,
		CreatedAt:    b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    b.UpdatedAt.Format(time.RFC3339),
		ProjectID:    b.ProjectID,
		Name:         b.Name,
		Version:      b.Version,
		Tag:          b.Tag(),
		Path:         b.Path,
		Artifacts:    artifacts,
		Dependencies: deps,
		Labels:       labels,
	}
}

func ToDeploymentResponse(d *ports.KServeDeployment) DeploymentResponse {
	return DeploymentResponse{
		Name:       d.Name,
		Namespace:  d.Namespace,
		ExternalID: d.ExternalID,
		URL:        d.URL,
	}
}
