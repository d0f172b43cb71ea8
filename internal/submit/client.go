// Package submit posts a localization job to the optional backend API.
package submit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MimeLyc/chameleon-localizer/internal/media"
)

// PendingID is used when the backend accepts a job without naming it.
const PendingID = "pending"

// Submitter hands a job to a backend and returns its identifier.
type Submitter interface {
	Submit(ctx context.Context, file *media.File, targetLang string) (string, error)
}

// Client talks to `POST {base}/jobs`. It makes exactly one attempt.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type submitResponse struct {
	ID    any `json:"id"`
	JobID any `json:"jobId"`
}

func (c *Client) Submit(ctx context.Context, file *media.File, targetLang string) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	body, contentType := multipartBody(src, file, targetLang)
	defer body.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/jobs", body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if os.IsTimeout(err) {
			return "", fmt.Errorf("request timed out: %w", err)
		}
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return "", fmt.Errorf("backend responded with %d", resp.StatusCode)
	}

	var parsed submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	for _, v := range []any{parsed.ID, parsed.JobID} {
		if id := idString(v); id != "" {
			return id, nil
		}
	}
	return PendingID, nil
}

// multipartBody streams the form so large clips are never buffered.
func multipartBody(src io.Reader, file *media.File, targetLang string) (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeForm(mw, src, file, targetLang)
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()
	return pr, mw.FormDataContentType()
}

func writeForm(mw *multipart.Writer, src io.Reader, file *media.File, targetLang string) error {
	name := file.Name
	if name == "" {
		name = filepath.Base(file.Path)
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	ct := file.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	header.Set("Content-Type", ct)

	part, err := mw.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, src); err != nil {
		return err
	}
	return mw.WriteField("targetLang", targetLang)
}

func idString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(id)
	case float64:
		return fmt.Sprintf("%.0f", id)
	default:
		return fmt.Sprint(id)
	}
}
