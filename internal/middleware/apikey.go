package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/reframe/internal/pkg/response"
	"github.com/xxxsen/reframe/internal/pkg/secret"
)

const APIKeyHeader = "X-API-Key"

// APIKey gates a route on the shared secret. A verifier with no key
// configured lets every request through.
func APIKey(verifier *secret.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if verifier.Verify(c.GetHeader(APIKeyHeader)) {
			c.Next()
			return
		}
		logutil.GetLogger(c.Request.Context()).Warn("api key rejected",
			zap.String("ip", c.ClientIP()),
			zap.String("path", c.Request.URL.Path),
		)
		response.Error(c, http.StatusUnauthorized, "invalid or missing api key")
	}
}
