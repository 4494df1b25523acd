package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/claude/wodocr/internal/ingest"
)

// remoteClient sends workouts to a running wodocr server.
type remoteClient struct {
	serverURL  string
	apiKey     string
	httpClient *http.Client
	backoff    time.Duration
}

func newRemoteClient(serverURL, apiKey string) *remoteClient {
	return &remoteClient{
		serverURL:  strings.TrimRight(serverURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		backoff:    time.Second,
	}
}

func (c *remoteClient) postText(ctx context.Context, path, text string) (*ingest.Result, error) {
	return c.post(ctx, path, "text/plain; charset=utf-8", []byte(text))
}

func (c *remoteClient) postImage(ctx context.Context, filename string, image []byte) (*ingest.Result, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return nil, fmt.Errorf("building upload: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("building upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("building upload: %w", err)
	}
	return c.post(ctx, "/api/v1/wod/ocr", mw.FormDataContentType(), buf.Bytes())
}

// post retries up to 3 times with exponential backoff on transport errors
// and 5xx responses.
func (c *remoteClient) post(ctx context.Context, path, contentType string, body []byte) (*ingest.Result, error) {
	var lastErr error
	for attempt := range 3 {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff << uint(attempt-1)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		res, retry, err := c.postOnce(ctx, path, contentType, body)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !retry {
			break
		}
	}
	return nil, lastErr
}

func (c *remoteClient) postOnce(ctx context.Context, path, contentType string, body []byte) (*ingest.Result, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("sending to %s: %w", c.serverURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, resp.StatusCode >= 500, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var res ingest.Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, false, fmt.Errorf("decoding response: %w", err)
	}
	return &res, false, nil
}
