package submit

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MimeLyc/chameleon-localizer/internal/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFile(t *testing.T) *media.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("fake-mp4-bytes"), 0o600))
	return &media.File{Name: "clip.mp4", ContentType: media.TypeMP4, Size: 14, Path: path}
}

func TestClient_Submit_SendsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/jobs", r.URL.Path)

		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "hi", r.FormValue("targetLang"))

		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "clip.mp4", hdr.Filename)
		assert.Equal(t, "fake-mp4-bytes", string(data))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"job-123"}`))
	}))
	defer srv.Close()

	id, err := NewClient(srv.URL+"/", time.Second).Submit(context.Background(), testFile(t), "hi")
	require.NoError(t, err)
	assert.Equal(t, "job-123", id)
}

func TestClient_Submit_ResponseIDVariants(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "jobId", body: `{"jobId":"abc"}`, want: "abc"},
		{name: "numeric id", body: `{"id":42}`, want: "42"},
		{name: "no id", body: `{"status":"queued"}`, want: PendingID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			id, err := NewClient(srv.URL, time.Second).Submit(context.Background(), testFile(t), "hi")
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestClient_Submit_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Submit(context.Background(), testFile(t), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer bad.Close()
	_, err = NewClient(bad.URL, time.Second).Submit(context.Background(), testFile(t), "hi")
	require.Error(t, err)

	// nothing listening
	closed := httptest.NewServer(http.NotFoundHandler())
	addr := closed.URL
	closed.Close()
	_, err = NewClient(addr, time.Second).Submit(context.Background(), testFile(t), "hi")
	require.Error(t, err)
}
