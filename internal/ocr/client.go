// Package ocr talks to an external OCR service that turns a whiteboard photo
// into plain text.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const maxAttempts = 3

// ErrNoText is returned when the service recognised no text in the image.
var ErrNoText = errors.New("no text recognised in image")

// Client posts images to the OCR service. Requests are rate limited and
// retried with exponential backoff on transport errors and 5xx responses.
type Client struct {
	url        string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	backoff    time.Duration
}

// NewClient creates a client. rps <= 0 disables rate limiting.
func NewClient(url, apiKey string, rps float64, timeout time.Duration) *Client {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		url:        url,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, 1),
		backoff:    time.Second,
	}
}

type response struct {
	Text  string `json:"text"`
	Error string `json:"error"`
}

// Recognize sends the image as multipart field "image" and returns the
// recognised text.
func (c *Client) Recognize(ctx context.Context, filename string, image []byte) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("empty image")
	}
	body, contentType, err := multipartBody(filename, image)
	if err != nil {
		return "", err
	}

	var lastErr error
	for attempt := range maxAttempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.backoff << uint(attempt-1)):
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("waiting for rate limiter: %w", err)
		}

		text, retry, err := c.recognizeOnce(ctx, body, contentType)
		if err == nil {
			return text, nil
		}
		if !retry {
			return "", err
		}
		lastErr = err
	}
	return "", fmt.Errorf("after %d attempts: %w", maxAttempts, lastErr)
}

func (c *Client) recognizeOnce(ctx context.Context, body []byte, contentType string) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", ctx.Err() == nil, fmt.Errorf("calling ocr service: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("reading ocr response: %w", err)
	}
	if resp.StatusCode >= 500 {
		return "", true, fmt.Errorf("ocr request failed (status %d): %s", resp.StatusCode, data)
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("ocr request failed (status %d): %s", resp.StatusCode, data)
	}

	var r response
	if err := json.Unmarshal(data, &r); err != nil {
		return "", false, fmt.Errorf("decoding ocr response: %w", err)
	}
	if r.Error != "" {
		return "", false, fmt.Errorf("ocr service: %s", r.Error)
	}
	if strings.TrimSpace(r.Text) == "" {
		return "", false, ErrNoText
	}
	return r.Text, false, nil
}

func multipartBody(filename string, image []byte) ([]byte, string, error) {
	if filename == "" {
		filename = "wod.jpg"
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return nil, "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", fmt.Errorf("writing image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}
