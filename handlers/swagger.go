package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type apiRoute struct {
	method, path, summary string
	// responses maps status codes to descriptions; 200 is assumed when empty
	responses map[string]string
}

// apiRoutes documents the devserver surface. Paths are relative to /api
// except /health and /ready.
var apiRoutes = []apiRoute{
	{"get", "/csrf-cookie", "Issue CSRF token cookie", map[string]string{"200": "csrf_token"}},
	{"post", "/auth/login", "Email and password login", map[string]string{"200": "token and user", "401": "invalid credentials"}},
	{"post", "/auth/google", "Sign in with a Google ID token", map[string]string{"200": "access_token and user", "401": "invalid credential"}},
	{"post", "/auth/register", "Create an account", map[string]string{"201": "token and user", "422": "validation error"}},
	{"post", "/auth/forgot-password", "Request a password reset", nil},
	{"post", "/auth/reset-password", "Reset password with token", map[string]string{"200": "message", "422": "invalid token"}},
	{"get", "/me", "Current user", map[string]string{"200": "user", "401": "unauthenticated"}},
	{"post", "/me/onboarding", "Complete onboarding", nil},
	{"get", "/posts", "Published posts", nil},
	{"get", "/posts/{slug}", "Published post by slug", map[string]string{"200": "post", "404": "not found"}},
	{"get", "/admin/posts", "All posts", nil},
	{"post", "/admin/posts", "Create post", map[string]string{"201": "post", "422": "validation error"}},
	{"get", "/admin/posts/{id}", "Post by id", nil},
	{"put", "/admin/posts/{id}", "Update post", nil},
	{"delete", "/admin/posts/{id}", "Delete post", map[string]string{"204": "deleted"}},
	{"get", "/admin/users", "List users", nil},
	{"put", "/admin/users/{id}/role", "Change user role", map[string]string{"200": "user", "403": "forbidden"}},
	{"delete", "/admin/users/{id}", "Delete user", map[string]string{"204": "deleted"}},
	{"post", "/admin/upload", "Upload image (multipart field image)", map[string]string{"201": "url", "413": "too large"}},
	{"get", "/learning-paths", "Learning paths", nil},
	{"get", "/learning-paths/{id}", "Learning path with questions", nil},
	{"get", "/threads", "Threads", nil},
	{"post", "/threads", "Create thread", map[string]string{"201": "thread"}},
	{"get", "/threads/{id}", "Thread with replies", nil},
	{"post", "/threads/{id}/replies", "Reply to thread", map[string]string{"201": "reply"}},
	{"post", "/subscribe", "Newsletter signup", nil},
	{"get", "/health", "Liveness check", nil},
	{"get", "/ready", "Readiness check", map[string]string{"200": "ready", "503": "not ready"}},
}

func openAPIDoc(routes []apiRoute) []byte {
	paths := map[string]map[string]interface{}{}
	for _, rt := range routes {
		resp := map[string]interface{}{}
		for code, desc := range rt.responses {
			resp[code] = map[string]string{"description": desc}
		}
		if len(resp) == 0 {
			resp["200"] = map[string]string{"description": "OK"}
		}
		op := map[string]interface{}{"summary": rt.summary, "responses": resp}
		if strings.Contains(rt.path, "{") {
			op["parameters"] = pathParams(rt.path)
		}
		if paths[rt.path] == nil {
			paths[rt.path] = map[string]interface{}{}
		}
		paths[rt.path][rt.method] = op
	}
	doc, _ := json.Marshal(map[string]interface{}{
		"openapi": "3.0.0",
		"info":    map[string]string{"title": "aiot-devserver", "version": "v0.1.0"},
		"servers": []map[string]string{{"url": "/api"}},
		"paths":   paths,
	})
	return doc
}

func pathParams(path string) []map[string]interface{} {
	var out []map[string]interface{}
	for _, seg := range strings.Split(path, "/") {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			out = append(out, map[string]interface{}{
				"name": strings.Trim(seg, "{}"), "in": "path", "required": true,
				"schema": map[string]string{"type": "string"},
			})
		}
	}
	return out
}

// RegisterSwagger serves the OpenAPI document at /swagger/doc.json and a
// Swagger UI page that loads it at /swagger/index.html.
func RegisterSwagger(r gin.IRoutes) {
	doc := openAPIDoc(apiRoutes)
	r.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", doc)
	})
	r.GET("/swagger/index.html", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(swaggerUI))
	})
}

const swaggerUI = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>aiot-devserver API</title>
<link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
<script>SwaggerUIBundle({ url: "/swagger/doc.json", dom_id: "#swagger-ui", deepLinking: true });</script>
</body>
</html>`
