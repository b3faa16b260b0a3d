package media

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aiot-hub/aiot/backend/go-client/internal/imaging"
)

// DiskUploader writes uploads below Dir and returns "/uploads/<key>" paths,
// which the content formatter later turns into absolute URLs.
type DiskUploader struct {
	Dir string
	now func() time.Time
}

func NewDiskUploader(dir string) *DiskUploader {
	return &DiskUploader{Dir: dir, now: time.Now}
}

func (d *DiskUploader) Upload(ctx context.Context, f *imaging.File) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := ObjectKey("", f.Name, d.now())
	dst := filepath.Join(d.Dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(dst, f.Data, 0o644); err != nil {
		return "", err
	}
	return path.Join("/uploads", key), nil
}
