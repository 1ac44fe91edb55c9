package handlers

import (
	"bento-registry/internal/core/services"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	bundleSvc     *services.BundleService
	maxUploadSize int64
}

func New(bundleSvc *services.BundleService, maxUploadSize int64) *Handler {
	return &Handler{
		bundleSvc:     bundleSvc,
		maxUploadSize: maxUploadSize,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	// Bundles
	r.GET("/bundles", h.ListBundles)
	r.GET("/bundles/:id", h.GetBundle)
	r.POST("/bundles", h.CreateBundle)
	r.DELETE("/bundles/:id", h.DeleteBundle)

	// Inference
	r.POST("/bundles/:id/predict", h.Predict)

	// Deploy Actions
	r.POST("/bundles/:id/deploy", h.DeployBundle)
	r.GET("/deployments/:name", h.GetDeploymentStatus)
	r.DELETE("/deployments/:name", h.UndeployBundle)

	// Model libraries
	r.GET("/libraries", h.ListLibraries)
}
