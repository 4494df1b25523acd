package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/claude/wodocr/internal/catalog"
	"github.com/claude/wodocr/internal/ingest"
	"github.com/claude/wodocr/internal/matcher"
	"github.com/claude/wodocr/internal/models"
	"github.com/claude/wodocr/internal/ocr"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

var testMovements = catalog.StaticSource{
	{ID: 1, Name: "Wall Ball"},
	{ID: 2, Name: "Pull-Up"},
	{ID: 3, Name: "Row"},
	{ID: 4, Name: "Burpee"},
}

type fakeOCR struct {
	text string
	err  error
}

func (f fakeOCR) Recognize(context.Context, string, []byte) (string, error) {
	return f.text, f.err
}

func newTestServer(t *testing.T, rec ingest.Recognizer) *Server {
	t.Helper()
	store := catalog.NewStore(testMovements, nil, discard)
	if _, err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	provider := ingest.NewProvider(store, matcher.New(matcher.DefaultAliases(), matcher.DefaultThreshold), rec, discard)
	return New(provider, store, "test-key", discard)
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return v
}

// TestHandleParseJSON verifies the parse endpoint returns the tree without matching.
func TestHandleParseJSON(t *testing.T) {
	s := newTestServer(t, nil)
	body := `{"text":"AMRAP 20 min\n10 Wall Balls\n5 Pull-ups"}`
	rec := do(s, httptest.NewRequest(http.MethodPost, "/api/v1/wod/parse", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	res := decode[ingest.Result](t, rec)
	if res.Blocks != 1 || res.Movements != 2 {
		t.Errorf("blocks/movements = %d/%d, want 1/2", res.Blocks, res.Movements)
	}
	if res.Parsed.Blocks[0].BlockType != models.BlockAMRAP {
		t.Errorf("block_type = %q", res.Parsed.Blocks[0].BlockType)
	}
	if res.Matched != nil {
		t.Error("parse returned a matched tree")
	}
}

// TestHandleScanPlainText verifies text/plain bodies are parsed and matched.
func TestHandleScanPlainText(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/wod/scan", strings.NewReader("FOR TIME\nA) 500m Row\nB) 20 Burpees\nC) 10 Zercher Carry"))
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	rec := do(s, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	res := decode[ingest.Result](t, rec)
	if res.Matched == nil {
		t.Fatal("missing matched tree")
	}
	b := res.Matched.Blocks[0]
	if b.Pattern != models.PatternAB || len(b.Scenarios) != 3 {
		t.Errorf("pattern = %q scenarios = %d", b.Pattern, len(b.Scenarios))
	}
	if id := b.Scenarios[0].Movements[0].MovementID; id == nil || *id != 3 {
		t.Errorf("row id = %v, want 3", id)
	}
	if res.Unmatched != 1 || len(res.Warnings) != 1 {
		t.Errorf("unmatched = %d warnings = %v", res.Unmatched, res.Warnings)
	}
}

// TestHandleMatch verifies an edited tree can be matched directly.
func TestHandleMatch(t *testing.T) {
	s := newTestServer(t, nil)
	body := `{"parsed":{"blocks":[{"id":"x","block_type":"emom","scenarios":[{"code":"A","movements":[{"name_raw":"burpees"}]}]}]}}`
	rec := do(s, httptest.NewRequest(http.MethodPost, "/api/v1/wod/match", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	res := decode[ingest.Result](t, rec)
	if id := res.Matched.Blocks[0].Scenarios[0].Movements[0].MovementID; id == nil || *id != 4 {
		t.Errorf("burpees id = %v, want 4", id)
	}

	rec = do(s, httptest.NewRequest(http.MethodPost, "/api/v1/wod/match", strings.NewReader(`{"text":"x"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing parsed: status = %d, want 400", rec.Code)
	}
}

// TestHandleParseBadJSON verifies malformed bodies are rejected.
func TestHandleParseBadJSON(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(s, httptest.NewRequest(http.MethodPost, "/api/v1/wod/parse", strings.NewReader(`{"text":`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// TestHandleScanBodyTooLarge verifies oversized bodies are rejected rather
// than truncated and parsed.
func TestHandleScanBodyTooLarge(t *testing.T) {
	s := newTestServer(t, nil)
	text := "FOR TIME\n" + strings.Repeat("10 Burpees\n", maxTextBytes/11+1)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/wod/scan", strings.NewReader(text))
	req.Header.Set("Content-Type", "text/plain")
	if rec := do(s, req); rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("text/plain: status = %d, want 413", rec.Code)
	}

	body, _ := json.Marshal(map[string]string{"text": text})
	rec := do(s, httptest.NewRequest(http.MethodPost, "/api/v1/wod/parse", bytes.NewReader(body)))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("json: status = %d, want 413", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/wod/scan", strings.NewReader("FOR TIME\n10 Burpees"))
	req.Header.Set("Content-Type", "text/plain")
	if rec := do(s, req); rec.Code != http.StatusOK {
		t.Errorf("small body: status = %d, want 200", rec.Code)
	}
}

func imageRequest(t *testing.T, key string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "board.jpg")
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("jpeg"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/wod/ocr", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	return req
}

// TestHandleOCR verifies image upload through OCR, parse and match.
func TestHandleOCR(t *testing.T) {
	s := newTestServer(t, fakeOCR{text: "EMOM 10\n15 Wall Balls"})
	rec := do(s, imageRequest(t, "test-key"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	res := decode[ingest.Result](t, rec)
	if res.Text != "EMOM 10\n15 Wall Balls" {
		t.Errorf("text = %q", res.Text)
	}
	if res.Unmatched != 0 {
		t.Errorf("unmatched = %d, want 0", res.Unmatched)
	}
}

// TestHandleOCRErrors maps pipeline errors to status codes.
func TestHandleOCRErrors(t *testing.T) {
	tests := []struct {
		name string
		rec  ingest.Recognizer
		want int
	}{
		{"disabled", nil, http.StatusServiceUnavailable},
		{"no text", fakeOCR{err: ocr.ErrNoText}, http.StatusUnprocessableEntity},
		{"upstream", fakeOCR{err: errors.New("timeout")}, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(newTestServer(t, tt.rec), imageRequest(t, "test-key"))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

// TestHandleOCRRequiresKey verifies the OCR endpoint is behind API key auth.
func TestHandleOCRRequiresKey(t *testing.T) {
	s := newTestServer(t, fakeOCR{text: "x"})
	if rec := do(s, imageRequest(t, "")); rec.Code != http.StatusUnauthorized {
		t.Errorf("no key: status = %d, want 401", rec.Code)
	}
	if rec := do(s, imageRequest(t, "wrong")); rec.Code != http.StatusForbidden {
		t.Errorf("wrong key: status = %d, want 403", rec.Code)
	}
}

// TestHandleMovements verifies listing and name filtering.
func TestHandleMovements(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/v1/movements", nil))
	snap := decode[models.CatalogSnapshot](t, rec)
	if len(snap.Movements) != 4 || snap.Source != "static" {
		t.Errorf("snapshot = %s/%d", snap.Source, len(snap.Movements))
	}

	rec = do(s, httptest.NewRequest(http.MethodGet, "/api/v1/movements?q=ball", nil))
	snap = decode[models.CatalogSnapshot](t, rec)
	if len(snap.Movements) != 1 || snap.Movements[0].ID != 1 {
		t.Errorf("filtered = %+v", snap.Movements)
	}
}

// TestHandleResolve verifies single-name resolution and threshold acceptance.
func TestHandleResolve(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/v1/movements/resolve?name=pull+ups", nil))
	got := decode[struct {
		Resolution matcher.Resolution `json:"resolution"`
		Accepted   bool               `json:"accepted"`
	}](t, rec)
	if !got.Accepted || got.Resolution.MovementID == nil || *got.Resolution.MovementID != 2 {
		t.Errorf("resolve = %+v", got)
	}

	rec = do(s, httptest.NewRequest(http.MethodGet, "/api/v1/movements/resolve", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing name: status = %d, want 400", rec.Code)
	}
}

// TestHandleRefresh verifies the authenticated catalog refresh.
func TestHandleRefresh(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/movements/refresh", nil)
	req.Header.Set("Authorization", "Bearer test-key")
	rec := do(s, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	got := decode[map[string]any](t, rec)
	if got["movements"] != float64(4) {
		t.Errorf("movements = %v, want 4", got["movements"])
	}
}

// TestHandleHealth verifies the health endpoint reports the catalog size.
func TestHandleHealth(t *testing.T) {
	rec := do(newTestServer(t, nil), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	got := decode[map[string]any](t, rec)
	if got["status"] != "ok" || got["movements"] != float64(4) {
		t.Errorf("health = %v", got)
	}
}

// TestHandleMeDefault verifies the /api/v1/me endpoint returns the dev user
// identity when no Tailscale middleware is active.
func TestHandleMeDefault(t *testing.T) {
	rec := do(newTestServer(t, nil), httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	info := decode[UserInfo](t, rec)
	if info.Login != "local" {
		t.Errorf("login = %q, want %q", info.Login, "local")
	}
}

// TestMountMCP verifies the MCP transport is reachable only with the API key.
func TestMountMCP(t *testing.T) {
	s := newTestServer(t, nil)
	s.MountMCP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	if rec := do(s, httptest.NewRequest(http.MethodPost, "/mcp", nil)); rec.Code != http.StatusUnauthorized {
		t.Errorf("no key: status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("X-API-Key", "test-key")
	if rec := do(s, req); rec.Code != http.StatusAccepted {
		t.Errorf("with key: status = %d, want 202", rec.Code)
	}
}
