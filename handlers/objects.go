package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docuvault/docuvault/pkg/logger"
	"github.com/docuvault/docuvault/pkg/metrics"
)

// ObjectStore is the surface the object routes need from an S3-compatible
// backend.
type ObjectStore interface {
	Upload(ctx context.Context, key string, src io.Reader, size int64, contentType string) error
	RangeObjectResponse(ctx context.Context, w http.ResponseWriter, method, rangeHeader, key, mimeType string) error
	Delete(ctx context.Context, key string) error
}

// ObjectHandler serves blobs kept outside the document store, with the same
// range contract as the file routes.
type ObjectHandler struct {
	store ObjectStore
}

// RegisterObjectRoutes wires the object endpoints onto the engine.
func RegisterObjectRoutes(r *gin.Engine, store ObjectStore) {
	h := &ObjectHandler{store: store}
	r.GET("/objects/:key", h.ServeObject)
	r.HEAD("/objects/:key", h.ServeObject)
	r.PUT("/objects/:key", h.PutObject)
	r.DELETE("/objects/:key", h.DeleteObject)
}

func (h *ObjectHandler) ServeObject(c *gin.Context) {
	key := c.Param("key")
	mime := c.Query("mime")
	if mime == "" {
		mime = defaultMime
	}
	err := h.store.RangeObjectResponse(c.Request.Context(), c.Writer, c.Request.Method,
		c.GetHeader("Range"), key, mime)
	if err != nil {
		logger.Errorf("serve object %s: %v", key, err)
		metrics.FilesServed.WithLabelValues("error").Inc()
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	metrics.FilesServed.WithLabelValues("ok").Inc()
}

// PutObject streams the request body into the store under the path key.
func (h *ObjectHandler) PutObject(c *gin.Context) {
	key := c.Param("key")
	if c.Request.ContentLength < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content length required"})
		return
	}
	mime := c.ContentType()
	if mime == "" {
		mime = defaultMime
	}
	err := h.store.Upload(c.Request.Context(), key, c.Request.Body, c.Request.ContentLength, mime)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"key": key})
}

func (h *ObjectHandler) DeleteObject(c *gin.Context) {
	if err := h.store.Delete(c.Request.Context(), c.Param("key")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
