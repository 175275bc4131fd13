package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCapturedLogger() (*logrus.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := logrus.New()
	logger.SetOutput(buf)
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)
	return logger, buf
}

func TestLogger_EmitsStructuredRequestEntry(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, buf := newCapturedLogger()

	router := gin.New()
	router.Use(Logger(logger))
	router.GET("/feed", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	req, _ := http.NewRequest("GET", "/feed", nil)
	req.Header.Set("User-Agent", "sonder-test")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	line := buf.String()
	require.NotEmpty(t, line)
	assert.Contains(t, line, `"msg":"Request completed"`)
	assert.Contains(t, line, `"status":200`)
	assert.Contains(t, line, `"method":"GET"`)
	assert.Contains(t, line, `"route":"/feed"`)
	assert.Contains(t, line, `"duration_ms"`)
	assert.Contains(t, line, `"remote_ip"`)
	assert.Contains(t, line, `"user_agent":"sonder-test"`)
}

func TestLogger_ServerErrorLogsAtErrorLevel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, buf := newCapturedLogger()

	router := gin.New()
	router.Use(Logger(logger))
	router.GET("/broken", func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{})
	})

	req, _ := http.NewRequest("GET", "/broken", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	line := buf.String()
	assert.Contains(t, line, `"msg":"Request failed"`)
	assert.Contains(t, line, `"level":"error"`)
	assert.Contains(t, line, `"status":500`)
}

func TestRecovery_AnswersWithErrorEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, buf := newCapturedLogger()

	router := gin.New()
	router.Use(Recovery(logger))
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	req, _ := http.NewRequest("GET", "/panic", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
	assert.Contains(t, w.Body.String(), "Unexpected server error")

	line := buf.String()
	assert.Contains(t, line, `"msg":"Recovered from panic"`)
	assert.Contains(t, line, `"panic":"boom"`)
	assert.Contains(t, line, `"route":"/panic"`)
}
