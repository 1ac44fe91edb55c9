package ports

import (
	"context"

	"bento-registry/internal/core/domain"
)

// KServeDeployment represents the result of a KServe deployment
type KServeDeployment struct {
	Name       string // InferenceService name
	Namespace  string
	ExternalID string // K8s resource UID
	URL        string // Inference endpoint URL (if ready)
}

// KServeStatus represents the status of a KServe InferenceService
type KServeStatus struct {
	URL   string
	Ready bool
	Error string
}

// KServeClient defines the contract for KServe/K8s operations
type KServeClient interface {
	// Deploy creates an InferenceService CR serving the bundle from storageURI
	Deploy(ctx context.Context, namespace string, bundle *domain.Bundle, storageURI string) (*KServeDeployment, error)

	// Undeploy deletes the KServe InferenceService CR from Kubernetes
	Undeploy(ctx context.Context, namespace, name string) error

	// GetStatus retrieves current deployment status from Kubernetes
	GetStatus(ctx context.Context, namespace, name string) (*KServeStatus, error)

	// IsAvailable checks if KServe integration is enabled and configured
	IsAvailable() bool
}
