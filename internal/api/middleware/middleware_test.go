package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiCall struct {
	endpoint string
	status   int
}

type recordingAPI struct {
	calls []apiCall
}

func (r *recordingAPI) RecordAPIRequest(_ context.Context, endpoint string, statusCode int, _ time.Duration) {
	r.calls = append(r.calls, apiCall{endpoint: endpoint, status: statusCode})
}

func TestRequestTracking(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := &recordingAPI{}

	r := gin.New()
	r.Use(RequestTracking(rec))
	r.GET("/runs/:id", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/runs/1", nil))
	assert.Equal(t, w.Header().Get("X-Request-ID"), w.Body.String())
	assert.NotEmpty(t, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/runs/2", nil)
	req.Header.Set("X-Request-ID", "abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Body.String())

	require.Len(t, rec.calls, 2)
	assert.Equal(t, apiCall{endpoint: "/runs/:id", status: http.StatusOK}, rec.calls[0])
}

func TestRecoverWithSentry(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RecoverWithSentry(), NoAuth())
	r.GET("/panic", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Internal server error")
}

func TestGatewayAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/me", GatewayAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("user_id"), "role": c.GetString("user_role")})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("X-User-ID", "user-7")
	req.Header.Set("X-User-Role", "member")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"user-7","role":"member"}`, w.Body.String())
}
