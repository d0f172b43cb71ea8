package media

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const (
	TypeMP4       = "video/mp4"
	TypeQuickTime = "video/quicktime"

	DefaultMaxBytes int64 = 500 * 1024 * 1024
)

// File is the handle a job carries for the uploaded clip.
type File struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Path        string `json:"path"`
}

func (f *File) Open() (io.ReadCloser, error) {
	if f == nil || f.Path == "" {
		return nil, fmt.Errorf("file has no backing path")
	}
	return os.Open(f.Path)
}

// URI is a playable file:// reference to the clip.
func (f *File) URI() string {
	p := f.Path
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(p)}).String()
}

// Accepted reports whether the clip is MP4 or QuickTime, judged by the
// declared type first and the extension second.
func Accepted(name, contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct == TypeMP4 || ct == TypeQuickTime {
		return true
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp4", ".mov":
		return true
	default:
		return false
	}
}

// Check applies the upload filter: accepted container and size limit.
func Check(name, contentType string, size, maxBytes int64) error {
	if !Accepted(name, contentType) {
		return fmt.Errorf("only MP4 or MOV files are allowed")
	}
	if maxBytes > 0 && size > maxBytes {
		return fmt.Errorf("file exceeds the %d MB limit", maxBytes/(1024*1024))
	}
	return nil
}
