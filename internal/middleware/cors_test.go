package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func runCORS(t *testing.T, allowlist []string, method, origin string) (*httptest.ResponseRecorder, *gin.Context) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, "/api/v1/retrieve", nil)
	if origin != "" {
		c.Request.Header.Set("Origin", origin)
	}
	CORS(allowlist)(c)
	return rec, c
}

func TestCORSAllowAll(t *testing.T) {
	rec, c := runCORS(t, nil, http.MethodPost, "https://desk.example.com")
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	require.False(t, c.IsAborted())
}

func TestCORSAllowlist(t *testing.T) {
	allow := []string{" https://desk.example.com/ "}
	rec, _ := runCORS(t, allow, http.MethodPost, "https://desk.example.com")
	require.Equal(t, "https://desk.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "Origin", rec.Header().Get("Vary"))

	rec, _ = runCORS(t, allow, http.MethodPost, "https://evil.example.com")
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflight(t *testing.T) {
	rec, c := runCORS(t, nil, http.MethodOptions, "https://desk.example.com")
	require.True(t, c.IsAborted())
	require.Equal(t, http.StatusNoContent, rec.Code)
}
