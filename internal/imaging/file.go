package imaging

import (
	"net/http"
	"os"
	"path/filepath"
)

// ReadFile loads path into a File, sniffing its content type.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &File{Name: filepath.Base(path), MimeType: http.DetectContentType(data), Data: data}, nil
}

// WriteFile stores f under dir and returns the written path.
func WriteFile(dir string, f *File) (string, error) {
	p := filepath.Join(dir, f.Name)
	if err := os.WriteFile(p, f.Data, 0o644); err != nil {
		return "", err
	}
	return p, nil
}
