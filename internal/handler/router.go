package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/reframe/internal/middleware"
	"github.com/xxxsen/reframe/internal/pkg/secret"
)

type RouterDeps struct {
	Predict   *PredictHandler
	Feedback  *FeedbackHandler
	Versions  *VersionHandler
	Model     *ModelHandler
	APIKey    *secret.Verifier
	RateLimit time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.Use(middleware.RequestID())
	limited := middleware.RateLimit(deps.RateLimit)
	keyed := middleware.APIKey(deps.APIKey)

	api.POST("/predict", limited, deps.Predict.Predict)
	api.POST("/feedback", limited, keyed, deps.Feedback.Create)
	api.GET("/feedback", keyed, deps.Feedback.List)
	api.GET("/feedback/stats", deps.Feedback.Stats)

	api.GET("/versions", deps.Versions.List)
	api.GET("/versions/latest", deps.Versions.Latest)
	api.GET("/versions/:version", deps.Versions.Get)

	api.GET("/model", deps.Model.Info)
	api.POST("/model/reload", keyed, deps.Model.Reload)
	api.GET("/distortions", deps.Model.Distortions)
	api.GET("/health", deps.Model.Health)
}
