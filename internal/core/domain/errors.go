package domain

import "errors"

// ============================================================================
// Artifact Errors
// ============================================================================

var (
	ErrMissingDependency = errors.New("missing dependency")
	ErrInvalidArgument   = errors.New("invalid argument")
)

// ============================================================================
// Bundle Errors
// ============================================================================

// Not found errors
var (
	ErrBundleNotFound   = errors.New("bundle not found")
	ErrArtifactNotFound = errors.New("artifact not found")
)

// Conflict errors
var (
	ErrBundleVersionConflict = errors.New("bundle with this name and version already exists")
	ErrDuplicateArtifact     = errors.New("artifact with this name is already declared")
)

// Validation errors
var (
	ErrMissingProjectID     = errors.New("project ID is required (Project-ID header)")
	ErrInvalidBundleName    = errors.New("bundle name must match [A-Za-z0-9][A-Za-z0-9._-]*")
	ErrInvalidBundleVersion = errors.New("bundle version must match [A-Za-z0-9][A-Za-z0-9._-]*")
	ErrInvalidArtifactName  = errors.New("artifact name must match [A-Za-z0-9][A-Za-z0-9._-]*")
	ErrEmptyModelFile       = errors.New("model file is required")
	ErrInvalidModelFile     = errors.New("model file could not be loaded")
	ErrInvalidInstances     = errors.New("invalid prediction instances")
	ErrArtifactNotPredictor = errors.New("artifact does not hold a classifier")
	ErrInvalidManifest      = errors.New("invalid bundle manifest")
)

// ============================================================================
// Deployment Errors
// ============================================================================

var (
	ErrKServeNotAvailable = errors.New("kserve integration is not available")
	ErrDeploymentFailed   = errors.New("bundle deployment failed")
)
