package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/aiot-hub/aiot/backend/go-client/internal/models"
	"github.com/aiot-hub/aiot/backend/go-client/internal/posts"
	"github.com/aiot-hub/aiot/backend/go-client/internal/posts/service"
	"github.com/aiot-hub/aiot/backend/go-client/pkg/middleware"
	"github.com/gin-gonic/gin"
)

// RegisterPublicRoutes mounts GET /posts and GET /posts/:slug.
func RegisterPublicRoutes(r gin.IRoutes, svc *service.Service) {
	r.GET("/posts", func(c *gin.Context) {
		list, err := svc.Published(c.Request.Context(), filter(c))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": list})
	})

	r.GET("/posts/:slug", func(c *gin.Context) {
		p, err := svc.BySlug(c.Request.Context(), c.Param("slug"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": p})
	})
}

// RegisterAdminRoutes mounts the /admin/posts CRUD routes. The group is
// expected to carry auth and role middleware.
func RegisterAdminRoutes(r gin.IRoutes, svc *service.Service) {
	r.GET("/admin/posts", func(c *gin.Context) {
		list, err := svc.List(c.Request.Context(), filter(c))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": list})
	})

	r.POST("/admin/posts", func(c *gin.Context) {
		var in models.PostInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
			return
		}
		var author int64
		if cl, ok := middleware.Claims(c); ok {
			author = cl.UserID
		}
		p, err := svc.Create(c.Request.Context(), author, in)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": p})
	})

	r.GET("/admin/posts/:id", func(c *gin.Context) {
		p, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": p})
	})

	r.PUT("/admin/posts/:id", func(c *gin.Context) {
		var in models.PostInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
			return
		}
		p, err := svc.Update(c.Request.Context(), c.Param("id"), in)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": p})
	})

	r.DELETE("/admin/posts/:id", func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
			fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}

func filter(c *gin.Context) posts.Filter {
	page, _ := strconv.Atoi(c.Query("page"))
	return posts.Filter{Page: page, Status: c.Query("status"), Search: c.Query("search")}
}

func fail(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": verr.Message})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server Error"})
	}
}
