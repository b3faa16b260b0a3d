package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/aiot-hub/aiot/backend/go-client/internal/imaging"
	"github.com/aiot-hub/aiot/backend/go-client/internal/media"
	"github.com/aiot-hub/aiot/backend/go-client/internal/models"
	"github.com/aiot-hub/aiot/backend/go-client/internal/resets"
	"github.com/aiot-hub/aiot/backend/go-client/internal/users"
	"github.com/aiot-hub/aiot/backend/go-client/pkg/logger"
	"github.com/aiot-hub/aiot/backend/go-client/pkg/middleware"
	"github.com/gin-gonic/gin"
)

// MaxUploadBytes caps a single image upload.
const MaxUploadBytes = 5 << 20

// AdminHandler serves user management and image uploads.
type AdminHandler struct {
	usersSvc    *users.Service
	revocations resets.Revocations
	uploader    media.Uploader
}

func NewAdminHandler(u *users.Service, rev resets.Revocations, up media.Uploader) *AdminHandler {
	return &AdminHandler{usersSvc: u, revocations: rev, uploader: up}
}

// Register mounts the admin routes; r must carry auth and admin role middleware.
func (h *AdminHandler) Register(r gin.IRoutes) {
	r.GET("/admin/users", h.ListUsers)
	r.PUT("/admin/users/:id/role", h.UpdateRole)
	r.DELETE("/admin/users/:id", h.DeleteUser)
	r.POST("/admin/upload", h.Upload)
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	list, err := h.usersSvc.List(c.Request.Context())
	if err != nil {
		logger.Errorf("list users: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server Error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

// UpdateRole changes a user's role. Only a super admin may grant or revoke
// super_admin, and the user's existing tokens are revoked so the new role
// takes effect on next sign-in.
func (h *AdminHandler) UpdateRole(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	var req struct {
		Role models.Role `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
		return
	}
	cl, _ := middleware.Claims(c)
	ctx := c.Request.Context()
	target, err := h.usersSvc.Get(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if (req.Role == models.RoleSuperAdmin || target.Role == models.RoleSuperAdmin) && cl.Role != models.RoleSuperAdmin {
		c.JSON(http.StatusForbidden, gin.H{"message": "Forbidden."})
		return
	}
	u, err := h.usersSvc.SetRole(ctx, id, req.Role)
	if err != nil {
		h.fail(c, err)
		return
	}
	if h.revocations != nil {
		if err := h.revocations.Revoke(ctx, id, time.Now()); err != nil {
			logger.Errorf("revoke tokens for user %d: %v", id, err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"data": u})
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	if cl, _ := middleware.Claims(c); cl.UserID == id {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "You cannot delete your own account."})
		return
	}
	if err := h.usersSvc.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Upload accepts multipart field "image" and answers {"url": ...}.
func (h *AdminHandler) Upload(c *gin.Context) {
	if h.uploader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "Uploads are not configured."})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes+1<<20)
	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "The image field is required."})
		return
	}
	if fh.Size > MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"message": "The image must not be greater than 5120 kilobytes."})
		return
	}
	src, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "The image failed to upload."})
		return
	}
	defer src.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, src); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "The image failed to upload."})
		return
	}
	mime := http.DetectContentType(buf.Bytes())
	if mime != imaging.MimeJPEG && mime != imaging.MimePNG && mime != "image/gif" && mime != "image/webp" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "The image must be an image."})
		return
	}
	url, err := h.uploader.Upload(c.Request.Context(), &imaging.File{Name: fh.Filename, MimeType: mime, Data: buf.Bytes()})
	if err != nil {
		logger.Errorf("upload %s: %v", fh.Filename, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server Error"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}

func userID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found."})
		return 0, false
	}
	return id, true
}

func (h *AdminHandler) fail(c *gin.Context, err error) {
	var verr *users.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": verr.Message})
	case errors.Is(err, users.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found."})
	default:
		logger.Errorf("admin handler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server Error"})
	}
}
