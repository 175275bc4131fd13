package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Logger routes gin's per-request line through the shared logrus instance,
// one structured entry per completed request.
func Logger(logger *logrus.Logger) gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		entry := logger.WithFields(logrus.Fields{
			"status":       param.StatusCode,
			"duration_ms":  float64(param.Latency.Microseconds()) / 1000.0,
			"remote_ip":    param.ClientIP,
			"method":       param.Method,
			"route":        param.Path,
			"user_agent":   param.Request.UserAgent(),
			"completed_at": param.TimeStamp.Format(time.RFC3339),
		})
		if param.ErrorMessage != "" {
			entry = entry.WithField("error", param.ErrorMessage)
		}
		if param.StatusCode >= http.StatusInternalServerError {
			entry.Error("Request failed")
		} else {
			entry.Info("Request completed")
		}

		return ""
	})
}

// Recovery logs the recovered value with request context and answers with
// the API's standard error envelope.
func Recovery(logger *logrus.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.WithFields(logrus.Fields{
			"panic":     recovered,
			"method":    c.Request.Method,
			"route":     c.Request.URL.Path,
			"remote_ip": c.ClientIP(),
		}).Error("Recovered from panic")

		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Unexpected server error",
			},
		})
	})
}
