package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/reframe/internal/model"
	"github.com/xxxsen/reframe/internal/pkg/response"
	"github.com/xxxsen/reframe/internal/service"
)

type ModelHandler struct {
	classifier *service.ClassifierService
}

func NewModelHandler(classifier *service.ClassifierService) *ModelHandler {
	return &ModelHandler{classifier: classifier}
}

func (h *ModelHandler) Info(c *gin.Context) {
	info, err := h.classifier.Info()
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, info)
}

func (h *ModelHandler) Reload(c *gin.Context) {
	if err := h.classifier.Reload(c.Request.Context()); err != nil {
		handleError(c, err)
		return
	}
	h.Info(c)
}

func (h *ModelHandler) Distortions(c *gin.Context) {
	response.Success(c, gin.H{
		"distortions":   model.Distortions,
		"no_distortion": model.NoDistortion,
	})
}

func (h *ModelHandler) Health(c *gin.Context) {
	response.Success(c, gin.H{
		"status":       "ok",
		"model_loaded": h.classifier.Loaded(),
	})
}
