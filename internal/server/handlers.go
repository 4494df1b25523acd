package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/claude/wodocr/internal/ingest"
	"github.com/claude/wodocr/internal/models"
	"github.com/claude/wodocr/internal/ocr"
)

const (
	maxTextBytes  = 1 << 20
	maxImageBytes = 10 << 20
)

// wodRequest is the JSON body of the wod endpoints. /parse and /scan read
// Text; /match reads Parsed.
type wodRequest struct {
	Text   string            `json:"text"`
	Parsed *models.ParsedWod `json:"parsed,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"movements":      len(snap.Movements),
		"catalog_source": snap.Source,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	req, err := readWodRequest(w, r)
	if err != nil {
		writeRequestError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ingest.Parse(req.Text))
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	req, err := readWodRequest(w, r)
	if err != nil {
		writeRequestError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ingest.Process(req.Text))
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	req, err := readWodRequest(w, r)
	if err != nil {
		writeRequestError(w, err)
		return
	}
	if req.Parsed == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "parsed is required"})
		return
	}
	writeJSON(w, http.StatusOK, s.ingest.Match(*req.Parsed))
}

func (s *Server) handleOCR(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
	file, hdr, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "image file required: " + err.Error()})
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reading image: " + err.Error()})
		return
	}

	result, err := s.ingest.ProcessImage(r.Context(), hdr.Filename, image)
	switch {
	case errors.Is(err, ingest.ErrOCRDisabled):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	case errors.Is(err, ocr.ErrNoText):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case err != nil:
		s.log.Error("ocr scan error", "file", hdr.Filename, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) handleMovements(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()
	if q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q"))); q != "" {
		filtered := []models.Movement{}
		for _, m := range snap.Movements {
			if strings.Contains(strings.ToLower(m.Name), q) {
				filtered = append(filtered, m)
			}
		}
		snap.Movements = filtered
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if strings.TrimSpace(name) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name parameter required"})
		return
	}
	res := s.ingest.Resolve(name)
	writeJSON(w, http.StatusOK, map[string]any{
		"resolution": res,
		"accepted":   res.MovementID != nil && res.Confidence >= s.ingest.Threshold(),
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Refresh(r.Context())
	if err != nil {
		s.log.Error("catalog refresh error", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":     err.Error(),
			"movements": len(snap.Movements),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"source":     snap.Source,
		"movements":  len(snap.Movements),
		"fetched_at": snap.FetchedAt,
	})
}

// readWodRequest accepts either a JSON wodRequest or a text/plain body.
// Bodies over maxTextBytes fail with *http.MaxBytesError.
func readWodRequest(w http.ResponseWriter, r *http.Request) (wodRequest, error) {
	var req wodRequest
	body := http.MaxBytesReader(w, r.Body, maxTextBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "text/plain" {
		data, err := io.ReadAll(body)
		if err != nil {
			return req, fmt.Errorf("reading body: %w", err)
		}
		req.Text = string(data)
		return req, nil
	}

	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return req, fmt.Errorf("invalid JSON: %w", err)
	}
	return req, nil
}

func writeRequestError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		status = http.StatusRequestEntityTooLarge
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
