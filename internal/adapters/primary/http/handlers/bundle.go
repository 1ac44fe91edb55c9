package handlers

import (
	"io"
	"net/http"
	"strconv"

	"bento-registry/internal/adapters/primary/http/dto"
	"bento-registry/internal/core/domain"
	"bento-registry/internal/core/ports/output"
	"bento-registry/internal/core/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) ListBundles(c *gin.Context) {
	projectID, err := getProjectID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrMissingProjectID.Error()})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	filter := ports.BundleListFilter{
		Name:   c.Query("name"),
		SortBy: c.Query("sort_by"),
		Order:  c.Query("order"),
		Limit:  limit,
		Offset: offset,
	}

	bundles, total, err := h.bundleSvc.List(c.Request.Context(), projectID, filter)
	if err != nil {
		log.WithError(err).Error("list bundles failed")
		mapDomainError(c, err)
		return
	}

	items := make([]dto.BundleResponse, 0, len(bundles))
	for _, b := range bundles {
		items = append(items, dto.ToBundleResponse(b))
	}

	c.JSON(http.StatusOK, dto.ListBundlesResponse{
		Items:      items,
		Total:      total,
		PageSize:   services.PageLimit(limit),
		NextOffset: offset + len(items),
	})
}

func (h *Handler) GetBundle(c *gin.Context) {
	projectID, id, ok := bundleParams(c)
	if !ok {
		return
	}

	b, err := h.bundleSvc.Get(c.Request.Context(), projectID, id)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToBundleResponse(b))
}

func (h *Handler) CreateBundle(c *gin.Context) {
	projectID, err := getProjectID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrMissingProjectID.Error()})
		return
	}

	fileHeader, err := c.FormFile("model")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrEmptyModelFile.Error()})
		return
	}
	if h.maxUploadSize > 0 && fileHeader.Size > h.maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "model file exceeds upload limit"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	model, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b, err := h.bundleSvc.Create(c.Request.Context(), projectID, services.CreateBundleInput{
		Name:         c.PostForm("name"),
		Version:      c.PostForm("version"),
		ArtifactName: c.PostForm("artifact"),
		Model:        model,
		Labels:       c.PostFormMap("labels"),
	})
	if err != nil {
		log.WithError(err).Error("create bundle failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToBundleResponse(b))
}

func (h *Handler) DeleteBundle(c *gin.Context) {
	projectID, id, ok := bundleParams(c)
	if !ok {
		return
	}

	if err := h.bundleSvc.Delete(c.Request.Context(), projectID, id); err != nil {
		log.WithError(err).Error("delete bundle failed")
		mapDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) Predict(c *gin.Context) {
	projectID, id, ok := bundleParams(c)
	if !ok {
		return
	}

	var req dto.PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pred, err := h.bundleSvc.Predict(c.Request.Context(), projectID, id, req.Artifact, req.Instances)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.PredictResponse{
		Predictions:   pred.Labels,
		Probabilities: pred.Probabilities,
	})
}

func (h *Handler) ListLibraries(c *gin.Context) {
	c.JSON(http.StatusOK, dto.LibrariesResponse{Libraries: h.bundleSvc.Libraries()})
}

func getProjectID(c *gin.Context) (uuid.UUID, error) {
	header := c.GetHeader("Project-ID")
	if header == "" {
		return uuid.Nil, domain.ErrMissingProjectID
	}
	return uuid.Parse(header)
}

// bundleParams reads the project header and :id param, writing a 400 when
// either is invalid.
func bundleParams(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	projectID, err := getProjectID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrMissingProjectID.Error()})
		return uuid.Nil, uuid.Nil, false
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bundle id"})
		return uuid.Nil, uuid.Nil, false
	}
	return projectID, id, true
}
