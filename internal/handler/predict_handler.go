package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/reframe/internal/pkg/response"
	"github.com/xxxsen/reframe/internal/service"
)

type PredictHandler struct {
	classifier *service.ClassifierService
}

func NewPredictHandler(classifier *service.ClassifierService) *PredictHandler {
	return &PredictHandler{classifier: classifier}
}

type predictRequest struct {
	Text string `json:"text"`
}

func (h *PredictHandler) Predict(c *gin.Context) {
	var req predictRequest
	if !bindJSON(c, &req) {
		return
	}
	results, err := h.classifier.Predict(c.Request.Context(), req.Text)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"results": results})
}
