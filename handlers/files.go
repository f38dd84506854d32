package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/docuvault/docuvault/internal/document"
	"github.com/docuvault/docuvault/internal/storage"
	"github.com/docuvault/docuvault/pkg/logger"
	"github.com/docuvault/docuvault/pkg/metrics"
)

const defaultMime = "application/octet-stream"

// FileHandler exposes the blob store over HTTP: range-aware download plus
// upload, metadata and delete admin operations.
type FileHandler struct {
	store *storage.Service
}

// RegisterFileRoutes wires the file endpoints onto the engine.
func RegisterFileRoutes(r *gin.Engine, store *storage.Service) {
	h := &FileHandler{store: store}
	r.GET("/files/:id", h.ServeFile)
	r.HEAD("/files/:id", h.ServeFile)
	r.POST("/files", h.UploadBase64)
	r.POST("/files/stream", h.UploadStream)
	r.GET("/files/:id/metadata", h.FileMetadata)
	r.DELETE("/files/:id", h.DeleteFile)
}

// ServeFile streams a stored blob, honoring an optional Range header. HEAD
// answers from the catalog without opening the content stream.
func (h *FileHandler) ServeFile(c *gin.Context) {
	id, ok := fileID(c)
	if !ok {
		return
	}
	meta, err := h.store.FileMetadata(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	err = h.store.RangeFileResponse(c.Request.Context(), c.Writer, c.Request.Method,
		c.GetHeader("Range"), id, metadataMime(meta))
	if err != nil {
		logger.Errorf("serve file %s: %v", id.Hex(), err)
		metrics.FilesServed.WithLabelValues("error").Inc()
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "file read failed"})
		return
	}
	metrics.FilesServed.WithLabelValues("ok").Inc()
}

// UploadBase64 accepts {filename, base64, metadata} and stores the decoded
// payload as a stream.
func (h *FileHandler) UploadBase64(c *gin.Context) {
	var req struct {
		Filename string         `json:"filename" binding:"required"`
		Base64   string         `json:"base64" binding:"required"`
		Metadata map[string]any `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := h.store.UploadBase64File(req.Filename, req.Base64, bson.M(req.Metadata))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id.Hex()})
}

// UploadStream accepts a multipart upload with app/tag/user fields and stores
// the file part with the fixed metadata shape.
func (h *FileHandler) UploadStream(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file part"})
		return
	}
	src, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer src.Close()
	mime := fh.Header.Get("Content-Type")
	if mime == "" {
		mime = defaultMime
	}
	id, err := h.store.UploadFile(fh.Filename, src, mime,
		c.PostForm("app"), c.PostForm("tag"), c.PostForm("user"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id.Hex()})
}

// FileMetadata returns the catalog record without touching content.
func (h *FileHandler) FileMetadata(c *gin.Context) {
	id, ok := fileID(c)
	if !ok {
		return
	}
	meta, err := h.store.FileMetadata(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, meta)
}

// DeleteFile tombstones the catalog record, then removes the content.
func (h *FileHandler) DeleteFile(c *gin.Context) {
	id, ok := fileID(c)
	if !ok {
		return
	}
	if err := h.store.DeleteFile(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// fileID parses the :id path param; malformed hex never reaches the store.
func fileID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := document.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return primitive.NilObjectID, false
	}
	return id, true
}

// metadataMime digs the stored mime type out of the catalog record.
func metadataMime(meta map[string]any) string {
	switch m := meta["metadata"].(type) {
	case bson.D:
		for _, e := range m {
			if e.Key == "mime" {
				if s, ok := e.Value.(string); ok {
					return s
				}
			}
		}
	case bson.M:
		if s, ok := m["mime"].(string); ok {
			return s
		}
	case map[string]any:
		if s, ok := m["mime"].(string); ok {
			return s
		}
	}
	if s, ok := meta["contentType"].(string); ok {
		return s
	}
	return defaultMime
}
