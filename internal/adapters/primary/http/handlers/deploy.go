package handlers

import (
	"net/http"

	"bento-registry/internal/adapters/primary/http/dto"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) DeployBundle(c *gin.Context) {
	projectID, id, ok := bundleParams(c)
	if !ok {
		return
	}

	var req dto.DeployRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	deployment, err := h.bundleSvc.Deploy(c.Request.Context(), projectID, id, req.Namespace)
	if err != nil {
		log.WithError(err).Error("deploy bundle failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToDeploymentResponse(deployment))
}

func (h *Handler) GetDeploymentStatus(c *gin.Context) {
	name := c.Param("name")
	namespace := c.Query("namespace")

	status, err := h.bundleSvc.DeploymentStatus(c.Request.Context(), namespace, name)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.DeploymentStatusResponse{
		Name:      name,
		Namespace: namespace,
		URL:       status.URL,
		Ready:     status.Ready,
		Error:     status.Error,
	})
}

func (h *Handler) UndeployBundle(c *gin.Context) {
	if err := h.bundleSvc.Undeploy(c.Request.Context(), c.Query("namespace"), c.Param("name")); err != nil {
		log.WithError(err).Error("undeploy bundle failed")
		mapDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
