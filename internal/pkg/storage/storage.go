package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
)

var (
	ErrInvalidPath   = errors.New("invalid file path")
	ErrFileNotFound  = errors.New("file not found")
	ErrFileTooLarge  = errors.New("file is too large")
	ErrFileExtension = errors.New("file extension is not allowed")
)

type FileStorage interface {
	// Upload stores a file and returns its storage key
	Upload(ctx context.Context, file io.Reader, path string, contentType string) (string, error)

	// Open returns the stored file for streaming back to an authorised client
	Open(ctx context.Context, path string) (io.ReadSeekCloser, error)

	Exists(ctx context.Context, path string) (bool, error)
}

type UploadOptions struct {
	MaxSize     int64
	AllowedExts []string
}

// AttachmentUploadOptions limits leave attachments to documents and photos up to 5 MB.
var AttachmentUploadOptions = UploadOptions{
	MaxSize:     5 << 20,
	AllowedExts: []string{".pdf", ".jpg", ".jpeg", ".png"},
}

func (o UploadOptions) Check(fileName string, size int64) error {
	if o.MaxSize > 0 && size > o.MaxSize {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrFileTooLarge, size, o.MaxSize)
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	if len(o.AllowedExts) > 0 && !slices.Contains(o.AllowedExts, ext) {
		return fmt.Errorf("%w: %q", ErrFileExtension, ext)
	}
	return nil
}
