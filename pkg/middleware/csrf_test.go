package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func csrfEngine() *gin.Engine {
	g := gin.New()
	g.Use(CSRFMiddleware(testSecret))
	g.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	g.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	return g
}

func TestCSRFToken_RoundTrip(t *testing.T) {
	tok, err := NewCSRFToken(testSecret)
	require.NoError(t, err)
	require.True(t, ValidCSRFToken(testSecret, tok))
	require.False(t, ValidCSRFToken("other", tok))
	require.False(t, ValidCSRFToken(testSecret, "nodot"))
	require.False(t, ValidCSRFToken(testSecret, tok+"x"))
}

func TestCSRFMiddleware(t *testing.T) {
	g := csrfEngine()
	tok, err := NewCSRFToken(testSecret)
	require.NoError(t, err)

	// safe methods pass without a token
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Equal(t, http.StatusOK, rw.Code)

	rw = httptest.NewRecorder()
	g.ServeHTTP(rw, httptest.NewRequest(http.MethodPost, "/x", nil))
	require.Equal(t, 419, rw.Code)

	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set(CSRFHeader, tok)
	rw = httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	require.Equal(t, http.StatusOK, rw.Code)

	// cookie and header must agree when both are sent
	other, _ := NewCSRFToken(testSecret)
	req = httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set(CSRFHeader, tok)
	req.AddCookie(&http.Cookie{Name: CSRFCookie, Value: other})
	rw = httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	require.Equal(t, 419, rw.Code)
}
