package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func newFileRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// a nil service is safe here because every route under test rejects the
	// request before touching the store
	RegisterFileRoutes(r, nil)
	return r
}

func TestServeFileMalformedIDIs404(t *testing.T) {
	r := newFileRouter()

	for _, id := range []string{"xyz", "507f1f77bcf86cd79943901", "507f1f77bcf86cd79943901g"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/files/"+id, nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code, "id %q", id)
	}
}

func TestMetadataAndDeleteMalformedIDIs404(t *testing.T) {
	r := newFileRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/files/not-hex/metadata", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodDelete, "/files/not-hex", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadBase64RejectsBadBody(t *testing.T) {
	r := newFileRouter()

	for _, body := range []string{"{}", `{"filename":"a.txt"}`, `{"base64":"QQ=="}`} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/files", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %q", body)
	}
}

func TestUploadStreamRequiresFilePart(t *testing.T) {
	r := newFileRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/files/stream", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetadataMime(t *testing.T) {
	tests := []struct {
		name string
		meta map[string]any
		want string
	}{
		{
			name: "ordered document shape",
			meta: map[string]any{"metadata": bson.D{{Key: "app", Value: "x"}, {Key: "mime", Value: "video/mp4"}}},
			want: "video/mp4",
		},
		{
			name: "map shape",
			meta: map[string]any{"metadata": bson.M{"mime": "image/png"}},
			want: "image/png",
		},
		{
			name: "plain map shape",
			meta: map[string]any{"metadata": map[string]any{"mime": "text/plain"}},
			want: "text/plain",
		},
		{
			name: "contentType fallback",
			meta: map[string]any{"contentType": "application/pdf"},
			want: "application/pdf",
		},
		{
			name: "no mime anywhere",
			meta: map[string]any{"metadata": bson.M{"app": "x"}},
			want: "application/octet-stream",
		},
		{
			name: "non-string mime ignored",
			meta: map[string]any{"metadata": bson.M{"mime": 42}},
			want: "application/octet-stream",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, metadataMime(tt.meta))
		})
	}
}
