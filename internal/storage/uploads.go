package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"storerate/internal/apperrors"
)

// URLPrefix is the public path under which uploaded images are served.
const URLPrefix = "/uploads/"

var allowedImages = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageStore writes uploaded store images to a local directory.
type ImageStore struct {
	dir      string
	maxBytes int64
}

// NewImageStore creates dir if needed.
func NewImageStore(dir string, maxBytes int64) (*ImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir %s: %w", dir, err)
	}
	return &ImageStore{dir: dir, maxBytes: maxBytes}, nil
}

func (s *ImageStore) Dir() string { return s.dir }

// Save validates the upload by size and sniffed content type and stores it
// under a random name. It returns the public URL of the file.
func (s *ImageStore) Save(fh *multipart.FileHeader) (string, error) {
	if fh.Size > s.maxBytes {
		return "", apperrors.NewValidation("Image is too large", map[string]string{
			"image": fmt.Sprintf("Image must be at most %d MB", s.maxBytes/(1024*1024)),
		})
	}

	src, err := fh.Open()
	if err != nil {
		return "", apperrors.NewInternal("", fmt.Errorf("failed to open upload: %w", err))
	}
	defer src.Close()

	mtype, err := mimetype.DetectReader(src)
	if err != nil {
		return "", apperrors.NewInternal("", fmt.Errorf("failed to detect upload type: %w", err))
	}
	ext, ok := allowedImages[strings.SplitN(mtype.String(), ";", 2)[0]]
	if !ok {
		return "", apperrors.NewValidation("Unsupported image type", map[string]string{
			"image": "Only image files (jpeg, png, gif, webp) are allowed",
		})
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", apperrors.NewInternal("", fmt.Errorf("failed to rewind upload: %w", err))
	}

	name := uuid.NewString() + ext
	dst, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", apperrors.NewInternal("", fmt.Errorf("failed to create image file: %w", err))
	}
	// fh.Size is client supplied.
	written, err := io.Copy(dst, io.LimitReader(src, s.maxBytes+1))
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil || written > s.maxBytes {
		os.Remove(filepath.Join(s.dir, name))
		if err != nil {
			return "", apperrors.NewInternal("", fmt.Errorf("failed to write image file: %w", err))
		}
		return "", apperrors.NewValidation("Image is too large", map[string]string{
			"image": fmt.Sprintf("Image must be at most %d MB", s.maxBytes/(1024*1024)),
		})
	}
	return URLPrefix + name, nil
}

// Remove deletes a previously saved image given its public URL. Unknown URLs are ignored.
func (s *ImageStore) Remove(url string) error {
	if !strings.HasPrefix(url, URLPrefix) {
		return nil
	}
	name := path.Base(url)
	if name == "." || name == "/" {
		return nil
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove image %s: %w", name, err)
	}
	return nil
}
