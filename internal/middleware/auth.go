package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const AdminSecretHeader = "x-admin-secret"

// AdminAuth guards the /__/ system endpoints with a shared secret. With no
// secret configured the endpoints are closed entirely.
func AdminAuth(secret string, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			c.Abort()
			return
		}

		provided := c.GetHeader(AdminSecretHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			logger.WithField("path", c.Request.URL.Path).Warn("Rejected admin request")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		c.Next()
	}
}
