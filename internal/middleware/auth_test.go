package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/melody-api/internal/config"
)

const testSecret = "test-secret"

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	cfg := &config.Config{JWTSecret: testSecret}
	r.GET("/me", JWTAuth(cfg), func(c *gin.Context) {
		id, _ := GetCurrentUserID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id, "role": c.GetString("user_role")})
	})
	r.DELETE("/admin", JWTAuth(cfg), AdminRequired(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func doRequest(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	r := newAuthRouter()

	token, err := IssueToken(testSecret, "user-1", "member", time.Hour)
	require.NoError(t, err)

	w := doRequest(r, http.MethodGet, "/me", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"user-1","role":"member"}`, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, doRequest(r, http.MethodGet, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, doRequest(r, http.MethodGet, "/me", "garbage").Code)

	wrongKey, err := IssueToken("other-secret", "user-1", "member", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, doRequest(r, http.MethodGet, "/me", wrongKey).Code)

	expired, err := IssueToken(testSecret, "user-1", "member", -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, doRequest(r, http.MethodGet, "/me", expired).Code)
}

func TestJWTAuthCookie(t *testing.T) {
	r := newAuthRouter()
	token, err := IssueToken(testSecret, "user-2", "", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: tokenCookie, Value: token})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminRequired(t *testing.T) {
	r := newAuthRouter()

	member, err := IssueToken(testSecret, "user-1", "member", time.Hour)
	require.NoError(t, err)
	admin, err := IssueToken(testSecret, "root", "admin", time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, doRequest(r, http.MethodDelete, "/admin", member).Code)
	assert.Equal(t, http.StatusNoContent, doRequest(r, http.MethodDelete, "/admin", admin).Code)
}

func TestParseTokenWithoutSecret(t *testing.T) {
	_, err := ParseToken("", "anything")
	assert.Error(t, err)
}
