package main

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nossocofre/cofre_backend/utils"
)

const maxLogoSizeBytes int64 = 5 * 1024 * 1024

var logoMimeTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// uploadLogoHandler stores an account or vault logo in GCS and returns the
// public URL. The caller saves the URL onto the entity in a second request,
// so an orphaned object is the worst a failed flow can leave behind.
func uploadLogoHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, ok := requireUser(c)
		if !ok {
			return
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		if fileHeader.Size > maxLogoSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 5MB limit"})
			return
		}

		contentType := fileHeader.Header.Get("Content-Type")
		ext, supported := logoMimeTypes[contentType]
		if !supported {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported image type"})
			return
		}
		if got := strings.ToLower(filepath.Ext(fileHeader.Filename)); got != "" && got != ext && !(got == ".jpeg" && ext == ".jpg") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file extension does not match content type"})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			replyError(c, err)
			return
		}
		defer file.Close()

		objectName := fmt.Sprintf("logos/%s/%d-%s%s", userId, time.Now().UTC().Unix(), uuid.NewString(), ext)
		url, err := utils.UploadToGCS(c.Request.Context(), objectName, contentType, file)
		if err != nil {
			replyError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"url": url, "objectKey": objectName})
	}
}

// deleteLogoHandler removes a previously uploaded logo object, typically
// after the caller replaced it. Callers may only delete objects under their
// own logos/ prefix.
func deleteLogoHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, ok := requireUser(c)
		if !ok {
			return
		}
		objectKey := c.Query("objectKey")
		if !strings.HasPrefix(objectKey, "logos/"+userId+"/") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid object key"})
			return
		}
		if err := utils.DeleteFromGCS(c.Request.Context(), objectKey); err != nil {
			replyError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
