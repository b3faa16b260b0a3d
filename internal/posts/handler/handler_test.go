package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aiot-hub/aiot/backend/go-client/internal/models"
	"github.com/aiot-hub/aiot/backend/go-client/internal/posts/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func serve(g *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	g.ServeHTTP(w, req)
	return w
}

func TestPostHandler_CRUD(t *testing.T) {
	gin.SetMode(gin.TestMode)
	g := gin.New()
	svc := service.NewMemoryService()
	RegisterPublicRoutes(g, svc)
	RegisterAdminRoutes(g, svc)

	// create
	w := serve(g, http.MethodPost, "/admin/posts", `{"title":"Hello IoT","content":"<p>hi</p>"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var cr struct{ Data models.Post }
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cr))
	id := cr.Data.ID
	require.NotEmpty(t, id)
	require.Equal(t, "hello-iot", cr.Data.Slug)

	// drafts are not public
	w = serve(g, http.MethodGet, "/posts/hello-iot", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	// publish
	w = serve(g, http.MethodPut, "/admin/posts/"+id, `{"title":"Hello IoT","status":"published"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(g, http.MethodGet, "/posts/hello-iot", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(g, http.MethodGet, "/posts?page=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct{ Data []models.Post }
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)

	// get
	w = serve(g, http.MethodGet, "/admin/posts/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)

	// delete
	w = serve(g, http.MethodDelete, "/admin/posts/"+id, "")
	require.Equal(t, http.StatusNoContent, w.Code)
	w = serve(g, http.MethodDelete, "/admin/posts/"+id, "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestPostHandler_Validation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	g := gin.New()
	RegisterAdminRoutes(g, service.NewMemoryService())

	w := serve(g, http.MethodPost, "/admin/posts", `{"content":"no title"}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.JSONEq(t, `{"message":"The title field is required."}`, w.Body.String())
}
