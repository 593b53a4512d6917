package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/reframe/internal/pkg/response"
	"github.com/xxxsen/reframe/internal/service"
)

type FeedbackHandler struct {
	feedback *service.FeedbackService
}

func NewFeedbackHandler(feedback *service.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback}
}

type feedbackRequest struct {
	Text                string   `json:"text"`
	PredictedDistortion *string  `json:"predicted_distortion"`
	UserCorrection      *string  `json:"user_correction"`
	IsAccepted          *bool    `json:"is_accepted"`
	Confidence          *float64 `json:"confidence"`
}

func (h *FeedbackHandler) Create(c *gin.Context) {
	var req feedbackRequest
	if !bindJSON(c, &req) {
		return
	}
	id, err := h.feedback.Record(c.Request.Context(), service.FeedbackInput{
		Text:           req.Text,
		PredictedLabel: req.PredictedDistortion,
		UserCorrection: req.UserCorrection,
		IsAccepted:     req.IsAccepted,
		Confidence:     req.Confidence,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"feedback_id": id})
}

func (h *FeedbackHandler) List(c *gin.Context) {
	limit, _ := strconv.ParseUint(c.DefaultQuery("limit", "50"), 10, 32)
	offset, _ := strconv.ParseUint(c.DefaultQuery("offset", "0"), 10, 32)
	items, err := h.feedback.List(c.Request.Context(), uint(limit), uint(offset))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"items": items})
}

func (h *FeedbackHandler) Stats(c *gin.Context) {
	stats, err := h.feedback.Stats(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, stats)
}
