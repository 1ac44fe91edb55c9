package handlers

import (
	"errors"
	"net/http"

	"bento-registry/internal/core/domain"

	"github.com/gin-gonic/gin"
)

func mapDomainError(c *gin.Context, err error) {
	switch {
	// Not found errors
	case errors.Is(err, domain.ErrBundleNotFound),
		errors.Is(err, domain.ErrArtifactNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	// Conflict errors
	case errors.Is(err, domain.ErrBundleVersionConflict),
		errors.Is(err, domain.ErrDuplicateArtifact):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	// Bad request / validation errors
	case errors.Is(err, domain.ErrMissingProjectID),
		errors.Is(err, domain.ErrInvalidBundleName),
		errors.Is(err, domain.ErrInvalidBundleVersion),
		errors.Is(err, domain.ErrInvalidArtifactName),
		errors.Is(err, domain.ErrEmptyModelFile),
		errors.Is(err, domain.ErrInvalidModelFile),
		errors.Is(err, domain.ErrInvalidInstances),
		errors.Is(err, domain.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	// Unprocessable: the bundle exists but cannot serve the request
	case errors.Is(err, domain.ErrArtifactNotPredictor),
		errors.Is(err, domain.ErrInvalidManifest):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})

	// Service unavailable errors
	case errors.Is(err, domain.ErrMissingDependency),
		errors.Is(err, domain.ErrKServeNotAvailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})

	case errors.Is(err, domain.ErrDeploymentFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
