package file

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"slices"
	"strings"
)

// Storage persists objects under slash-separated keys.
type Storage interface {
	// Put stores data under key and returns the public URL.
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// Config selects and configures the avatar storage backend.
type Config struct {
	Driver   string `env:"AVATAR_STORAGE" envDefault:"local"` // local or s3
	LocalDir string `env:"AVATAR_LOCAL_DIR" envDefault:"./tmp/avatars"`
	LocalURL string `env:"AVATAR_LOCAL_URL" envDefault:"/avatars/"`
	MaxBytes int64  `env:"AVATAR_MAX_BYTES" envDefault:"2097152"`
	S3       S3Config
}

// New returns the backend selected by cfg.Driver.
func New(ctx context.Context, cfg Config, opts ...S3Option) (Storage, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalStorage(cfg.LocalDir, cfg.LocalURL)
	case "s3":
		return NewS3Storage(ctx, cfg.S3, opts...)
	default:
		return nil, fmt.Errorf("%w: unknown driver %q", ErrInvalidConfig, cfg.Driver)
	}
}

// ImageMIMETypes are the avatar formats accepted by browsers everywhere.
var ImageMIMETypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ReadLimited reads r fully, failing with ErrFileTooLarge once more than
// maxBytes are seen.
func ReadLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("file: read: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, maxBytes)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	return data, nil
}

// DetectMIMEType sniffs the content type of data.
func DetectMIMEType(data []byte) string {
	ct := http.DetectContentType(data)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return ct
}

// ValidateMIMEType sniffs data and returns its type when it is one of allowed.
func ValidateMIMEType(data []byte, allowed ...string) (string, error) {
	ct := DetectMIMEType(data)
	if !slices.Contains(allowed, ct) {
		return "", fmt.Errorf("%w: %s", ErrMIMETypeNotAllowed, ct)
	}
	return ct, nil
}

// Extension returns the canonical extension for a MIME type, or "".
func Extension(mimeType string) string {
	return extensions[mimeType]
}

// cleanKey normalises key and rejects traversal and absolute paths.
func cleanKey(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" || slices.Contains(strings.Split(key, "/"), "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, key)
	}
	return path.Clean(key), nil
}

func joinURL(base, key string) string {
	if base != "" && !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + key
}

func reader(data []byte) io.ReadSeeker { return bytes.NewReader(data) }
