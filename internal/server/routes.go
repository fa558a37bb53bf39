package server

import (
	"encoding/json"
	"errors"
	"image/jpeg"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lazypower/culler/internal/engine"
	"github.com/lazypower/culler/internal/similarity"
)

const (
	defaultThumbnailSize = 320
	maxThumbnailSize     = 2048
)

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Groups())
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	advanced, err := s.session.Advance()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"advanced": advanced})
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	if err := s.session.ToggleCheck(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSetCheck(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Checked *bool `json:"checked"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Checked == nil {
		writeJSONError(w, http.StatusBadRequest, "checked required")
		return
	}
	if err := s.session.SetCheck(chi.URLParam(r, "id"), *req.Checked); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	size := defaultThumbnailSize
	if v := r.URL.Query().Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxThumbnailSize {
			writeJSONError(w, http.StatusBadRequest, "size must be between 1 and 2048")
			return
		}
		size = n
	}

	img, err := s.bitmaps.Bitmap(r.Context(), chi.URLParam(r, "id"), size)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if err := jpeg.Encode(w, img, &jpeg.Options{Quality: 85}); err != nil {
		s.logger.Warn("encode thumbnail", zap.Error(err))
	}
}

func (s *Server) handleBucket(w http.ResponseWriter, r *http.Request) {
	ids := s.session.Bucket()
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"assets": ids, "count": len(ids)})
}

func (s *Server) handleDeleteBucket(w http.ResponseWriter, r *http.Request) {
	n, err := s.session.DeleteBucket(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

func (s *Server) handleSetWindow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Minutes int `json:"minutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := s.session.SetWindowMinutes(req.Minutes); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleSetTuning(w http.ResponseWriter, r *http.Request) {
	t := similarity.DefaultTuning()
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := t.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.session.SetTuning(t)
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleSetPreset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Preset string `json:"preset"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	p, err := similarity.ParsePreset(req.Preset)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.session.SetPreset(p)
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleListRetention(w http.ResponseWriter, r *http.Request) {
	recs, err := s.db.ListRetained()
	if err != nil {
		s.writeError(w, err)
		return
	}
	if recs == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleGetRetention(w http.ResponseWriter, r *http.Request) {
	rec, err := s.db.GetRetained(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if rec == nil {
		writeJSONError(w, http.StatusNotFound, "not retained")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleResetRetention(w http.ResponseWriter, r *http.Request) {
	if err := s.session.ResetRetention(); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	var failed *engine.ChangesFailedError
	switch {
	case errors.As(err, &failed):
		return http.StatusBadGateway
	case errors.Is(err, engine.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, engine.ErrEmptyBucket):
		return http.StatusConflict
	case errors.Is(err, engine.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, engine.ErrUnknownAsset):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrInvalidWindow):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Int("status", code), zap.Error(err))
	}
	writeJSONError(w, code, err.Error())
}

func writeJSONError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
