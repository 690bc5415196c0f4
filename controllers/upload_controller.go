package controllers

import (
	"net/http"
	"os"
	"strings"

	"github.com/fasttech-foods/backoffice-api/utils"
	"github.com/gin-gonic/gin"
)

// UploadController serves product images stored on the local disk
type UploadController struct {
	dir string
}

// NewUploadController serves files from dir
func NewUploadController(dir string) *UploadController {
	return &UploadController{dir: dir}
}

// GetUploadedImage handles GET /api/v1/uploads/:filename - serves uploaded product images
func (ctl *UploadController) GetUploadedImage(c *gin.Context) {
	filename := c.Param("filename")

	if filename == "" {
		respondFailure(c, http.StatusBadRequest, "INVALID_REQUEST", "Filename is required")
		return
	}

	// Security: Prevent directory traversal attacks
	filePath, ok := utils.SafeUploadPath(ctl.dir, filename)
	if !ok || strings.Contains(filename, "\\") {
		respondFailure(c, http.StatusBadRequest, "INVALID_FILENAME", "Invalid filename")
		return
	}

	contentType, ok := utils.ImageContentType(filename)
	if !ok {
		respondFailure(c, http.StatusBadRequest, "INVALID_FILE_TYPE", "Only image files are supported")
		return
	}

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		respondFailure(c, http.StatusNotFound, "FILE_NOT_FOUND", "Image not found")
		return
	}

	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "public, max-age=86400") // Cache for 24 hours
	c.File(filePath)
}
