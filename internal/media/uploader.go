// Package media uploads compressed images either through the platform API
// or straight to object storage.
package media

import (
	"bytes"
	"context"
	"errors"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aiot-hub/aiot/backend/go-client/internal/apiclient"
	"github.com/aiot-hub/aiot/backend/go-client/internal/imaging"
	"github.com/google/uuid"
)

// UploadPath is the API endpoint for image uploads.
const UploadPath = "/admin/upload"

var ErrNoURL = errors.New("upload response has no url")

type Uploader interface {
	Upload(ctx context.Context, f *imaging.File) (string, error)
}

// APIUploader posts the image as multipart field "image".
type APIUploader struct {
	client *apiclient.Client
}

func NewAPIUploader(c *apiclient.Client) *APIUploader {
	return &APIUploader{client: c}
}

type uploadResponse struct {
	URL  string `json:"url"`
	Path string `json:"path"`
}

func (u *APIUploader) Upload(ctx context.Context, f *imaging.File) (string, error) {
	mp := apiclient.NewMultipart()
	if err := mp.File("image", f.Name, f.MimeType, bytes.NewReader(f.Data)); err != nil {
		return "", err
	}
	var resp uploadResponse
	if err := u.client.PostMultipart(ctx, UploadPath, mp, &resp); err != nil {
		return "", err
	}
	if resp.URL != "" {
		return resp.URL, nil
	}
	if resp.Path != "" {
		return resp.Path, nil
	}
	return "", ErrNoURL
}

// ObjectKey builds "<prefix>/2006/01/<uuid><ext>" so names never collide.
func ObjectKey(prefix, name string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(name))
	return path.Join(prefix, now.UTC().Format("2006/01"), uuid.NewString()+ext)
}
