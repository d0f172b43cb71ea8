package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MimeLyc/chameleon-localizer/internal/apperr"
	"github.com/MimeLyc/chameleon-localizer/internal/config"
	"github.com/MimeLyc/chameleon-localizer/internal/jobs"
	"github.com/MimeLyc/chameleon-localizer/internal/locale"
	"github.com/MimeLyc/chameleon-localizer/internal/media"
	"github.com/MimeLyc/chameleon-localizer/pkg/file"
	"github.com/MimeLyc/chameleon-localizer/pkg/icron"
)

const uploadPattern = "upload-*"

// multipartOverhead is the slack allowed on top of the clip size for the
// form boundaries and the targetLang field.
const multipartOverhead = 1 << 20

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.controller.Snapshot())
	case http.MethodPost:
		s.handleUpload(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.controller.Running() {
		writeError(w, http.StatusConflict, jobs.ErrJobAlreadyRunning.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("file exceeds the %d MB limit", s.maxUpload/(1024*1024)))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	src, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file selected")
		return
	}
	defer src.Close()

	contentType := header.Header.Get("Content-Type")
	if err := media.Check(header.Filename, contentType, header.Size, s.maxUpload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := s.saveUpload(src, header.Filename, contentType)
	if err != nil {
		s.logger.Error("Failed to store upload %s: %v", header.Filename, err)
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	snap, err := s.controller.Start(saved, r.FormValue("targetLang"))
	if err != nil {
		_ = os.Remove(saved.Path)
		switch {
		case errors.Is(err, jobs.ErrJobAlreadyRunning):
			writeError(w, http.StatusConflict, err.Error())
		case apperr.IsKind(err, apperr.KindValidation):
			writeError(w, http.StatusBadRequest, apperr.Message(err))
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	s.swapUpload(saved.Path)
	writeJSON(w, http.StatusAccepted, snap)
}

func (s *Server) saveUpload(src multipart.File, name, contentType string) (*media.File, error) {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, err
	}
	dst, err := os.CreateTemp(s.uploadDir, uploadPattern+strings.ToLower(filepath.Ext(name)))
	if err != nil {
		return nil, err
	}
	n, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst.Name())
		return nil, err
	}
	return &media.File{
		Name:        filepath.Base(name),
		ContentType: contentType,
		Size:        n,
		Path:        dst.Name(),
	}, nil
}

// swapUpload remembers the clip of the current job and removes the one it
// replaces. The completed clip stays on disk because the artifact may point
// at it.
func (s *Server) swapUpload(next string) {
	s.mu.Lock()
	prev := s.upload
	s.upload = next
	s.mu.Unlock()

	if prev != "" && prev != next {
		if err := os.Remove(prev); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("Failed to remove previous upload %s: %v", prev, err)
		}
	}
}

// PruneUploads removes clips written before cutoff, keeping the one the
// current job uses. It returns how many files were removed.
func (s *Server) PruneUploads(cutoff time.Time) (int, error) {
	stale, err := file.FindOlderThan(s.uploadDir, uploadPattern, cutoff)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	current := s.upload
	s.mu.Unlock()

	removed := 0
	for _, path := range stale {
		if path == current {
			continue
		}
		if err := os.Remove(path); err != nil {
			if !os.IsNotExist(err) {
				s.logger.Warn("Failed to remove stale upload %s: %v", path, err)
			}
			continue
		}
		removed++
	}
	return removed, nil
}

func (s *Server) handleCurrentJob(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.controller.Snapshot())
	case http.MethodDelete:
		s.cancel(w)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.cancel(w)
}

func (s *Server) cancel(w http.ResponseWriter) {
	s.controller.Cancel()
	s.swapUpload("")
	writeJSON(w, http.StatusOK, s.controller.Snapshot())
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, locale.Languages())
}

type healthResponse struct {
	OK        bool               `json:"ok"`
	Running   bool               `json:"running"`
	Status    string             `json:"status"`
	Heartbeat *icron.TriggerInfo `json:"heartbeat,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	snap := s.controller.Snapshot()
	resp := healthResponse{
		OK:      true,
		Running: snap.Running,
		Status:  snap.Status,
	}
	if s.heartbeatCron != "" {
		info, err := icron.GetTriggerInfo(s.heartbeatCron, time.Now())
		if err != nil {
			s.logger.Warn("Heartbeat schedule unavailable: %v", err)
		} else {
			resp.Heartbeat = info
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		writeError(w, http.StatusNotImplemented, "settings store is not configured")
		return
	}

	switch r.Method {
	case http.MethodGet:
		settings, err := s.settings.GetRuntimeSettings()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, settings)
	case http.MethodPut:
		var req config.RuntimeSettings
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if err := req.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if s.controller.Running() {
			writeError(w, http.StatusConflict, jobs.ErrJobAlreadyRunning.Error())
			return
		}
		prev, err := s.settings.GetRuntimeSettings()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		saved, err := s.settings.UpdateRuntimeSettings(req)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if s.apply != nil {
			if err := s.apply(saved); err != nil {
				// the store must keep describing what the controller runs
				if _, rbErr := s.settings.UpdateRuntimeSettings(prev); rbErr != nil {
					s.logger.Error("Failed to restore runtime settings: %v", rbErr)
				}
				code := http.StatusInternalServerError
				if errors.Is(err, jobs.ErrJobAlreadyRunning) {
					code = http.StatusConflict
				}
				writeError(w, code, err.Error())
				return
			}
		}
		writeJSON(w, http.StatusOK, saved)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}
