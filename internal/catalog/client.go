package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/claude/wodocr/internal/models"
)

const maxAttempts = 3

// HTTPSource fetches the catalog from the backend's GET /movements endpoint.
type HTTPSource struct {
	baseURL    string
	token      string
	httpClient *http.Client
	backoff    time.Duration
}

// NewHTTPSource creates a source for the given backend base URL. token is
// sent as a bearer token when non-empty.
func NewHTTPSource(baseURL, token string) *HTTPSource {
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		backoff: time.Second,
	}
}

func (s *HTTPSource) Name() string { return "api" }

// Fetch retrieves all movements. Transport errors and 5xx responses are
// retried up to 3 times with exponential backoff; other statuses fail at once.
func (s *HTTPSource) Fetch(ctx context.Context) ([]models.Movement, error) {
	var lastErr error
	for attempt := range maxAttempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.backoff << uint(attempt-1)):
			}
		}

		movements, retry, err := s.fetchOnce(ctx)
		if err == nil {
			return movements, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("after %d attempts: %w", maxAttempts, lastErr)
}

func (s *HTTPSource) fetchOnce(ctx context.Context) ([]models.Movement, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/movements", nil)
	if err != nil {
		return nil, false, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("fetching movements: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("reading movements response: %w", err)
	}
	if resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("movements request failed (status %d): %s", resp.StatusCode, body)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("movements request failed (status %d): %s", resp.StatusCode, body)
	}

	movements, err := decodeMovements(body)
	if err != nil {
		return nil, false, err
	}
	if len(movements) == 0 {
		return nil, false, ErrEmptyCatalog
	}
	return movements, false, nil
}

// decodeMovements accepts either a bare JSON array or an object wrapping it
// under "movements" or "data".
func decodeMovements(body []byte) ([]models.Movement, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var movements []models.Movement
		if err := json.Unmarshal(trimmed, &movements); err != nil {
			return nil, fmt.Errorf("decoding movements: %w", err)
		}
		return movements, nil
	}

	var wrapped struct {
		Movements []models.Movement `json:"movements"`
		Data      []models.Movement `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("decoding movements: %w", err)
	}
	if wrapped.Movements != nil {
		return wrapped.Movements, nil
	}
	return wrapped.Data, nil
}
