package utils

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const (
	// MaxFileSize is 5MB in bytes
	MaxFileSize = 5 * 1024 * 1024
	// AllowedMediaType is the family of accepted content types
	AllowedMediaType = "image/"
)

// imageExtensions maps every accepted image type to the extension it is stored
// and served under
var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageExtension returns the file extension for an accepted content type, or ""
func ImageExtension(contentType string) string {
	return imageExtensions[contentType]
}

// ImageContentType returns the content type a stored image is served with
func ImageContentType(filename string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	for contentType, known := range imageExtensions {
		if known == ext {
			return contentType, true
		}
	}
	return "", false
}

// FileUploadError represents a file upload validation error
type FileUploadError struct {
	Code    string
	Message string
}

func (e *FileUploadError) Error() string {
	return e.Message
}

func invalidFormat() *FileUploadError {
	return &FileUploadError{
		Code:    "INVALID_FILE_FORMAT",
		Message: "Only image files are allowed",
	}
}

// ValidateImageFile checks the size first, then sniffs the content. It returns
// the detected content type of an accepted image; only png, jpeg, gif and webp
// are accepted.
func ValidateImageFile(fileHeader *multipart.FileHeader) (string, error) {
	if fileHeader.Size > MaxFileSize {
		return "", &FileUploadError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("File size exceeds maximum allowed size of %d MB", MaxFileSize/(1024*1024)),
		}
	}

	declared := fileHeader.Header.Get("Content-Type")
	if declared != "" && declared != "application/octet-stream" && !strings.HasPrefix(declared, AllowedMediaType) {
		return "", invalidFormat()
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	detected, err := mimetype.DetectReader(file)
	if err != nil {
		return "", fmt.Errorf("failed to inspect uploaded file: %w", err)
	}
	if ImageExtension(detected.String()) == "" {
		return "", invalidFormat()
	}

	return detected.String(), nil
}

// SaveUploadedFile saves the uploaded file to the local filesystem, named after
// its detected content type. Returns the generated file name inside uploadDir
func SaveUploadedFile(fileHeader *multipart.FileHeader, uploadDir, contentType string) (filename string, err error) {
	ext := ImageExtension(contentType)
	if ext == "" {
		return "", invalidFormat()
	}
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	filename = uuid.NewString() + ext
	fullPath := filepath.Join(uploadDir, filename)

	src, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer func() {
		if closeErr := dst.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close destination file: %w", closeErr)
		}
	}()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return filename, nil
}

// GetImageURL returns the URL path for accessing the uploaded image
func GetImageURL(filename string) string {
	if filename == "" {
		return ""
	}
	return fmt.Sprintf("/api/v1/uploads/%s", filename)
}

// SafeUploadPath resolves a requested file name inside uploadDir, rejecting
// anything that would escape it
func SafeUploadPath(uploadDir, filename string) (string, bool) {
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return "", false
	}
	return filepath.Join(uploadDir, filename), true
}
