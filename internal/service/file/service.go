package file

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cmlabs-hris/leave-approval-backend/internal/pkg/storage"
	"github.com/google/uuid"
)

// UploadedFile is what a client passes back in a leave request's attachments list.
type UploadedFile struct {
	FilePath string `json:"file_path"`
	FileName string `json:"file_name"`
}

type FileService interface {
	UploadLeaveAttachment(ctx context.Context, userID string, file io.Reader, filename string, size int64) (UploadedFile, error)
}

type fileServiceImpl struct {
	storage storage.FileStorage
	options storage.UploadOptions
	now     func() time.Time
}

func NewFileService(fs storage.FileStorage) FileService {
	return &fileServiceImpl{
		storage: fs,
		options: storage.AttachmentUploadOptions,
		now:     time.Now,
	}
}

var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// UploadLeaveAttachment stores the file under leave/<userID>/ with a unique name.
func (s *fileServiceImpl) UploadLeaveAttachment(ctx context.Context, userID string, file io.Reader, filename string, size int64) (UploadedFile, error) {
	if err := s.options.Check(filename, size); err != nil {
		return UploadedFile{}, err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	newFilename := fmt.Sprintf("%s-%d%s", uuid.New().String(), s.now().Unix(), ext)
	key := path.Join("leave", userID, newFilename)

	contentType, ok := contentTypes[ext]
	if !ok {
		contentType = "application/octet-stream"
	}

	uploadedPath, err := s.storage.Upload(ctx, io.LimitReader(file, size+1), key, contentType)
	if err != nil {
		return UploadedFile{}, fmt.Errorf("failed to upload leave attachment: %w", err)
	}

	return UploadedFile{
		FilePath: uploadedPath,
		FileName: filepath.Base(filename),
	}, nil
}
