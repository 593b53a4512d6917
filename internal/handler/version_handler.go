package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/reframe/internal/pkg/response"
	"github.com/xxxsen/reframe/internal/service"
)

type VersionHandler struct {
	registry *service.RegistryService
}

func NewVersionHandler(registry *service.RegistryService) *VersionHandler {
	return &VersionHandler{registry: registry}
}

func (h *VersionHandler) List(c *gin.Context) {
	versions, err := h.registry.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"versions": versions})
}

func (h *VersionHandler) Latest(c *gin.Context) {
	latest, err := h.registry.LatestVersion(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"version": latest})
}

func (h *VersionHandler) Get(c *gin.Context) {
	versionNumber, err := strconv.Atoi(c.Param("version"))
	if err != nil || versionNumber <= 0 {
		response.Error(c, http.StatusBadRequest, "invalid version")
		return
	}
	version, err := h.registry.Get(c.Request.Context(), versionNumber)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, version)
}
