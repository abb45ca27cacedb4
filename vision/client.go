package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Client talks to the external vision analyzer service over HTTP. The
// analyzer owns all pixel-level model work (detection, encoding, emotion,
// scene); this service only consumes its structured output.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an analyzer client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// AnalyzeFile uploads the image at path to the analyzer and returns its
// structured analysis.
func (c *Client) AnalyzeFile(ctx context.Context, path string) (*Analysis, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	return c.Analyze(ctx, filepath.Base(path), file)
}

// Analyze uploads image bytes to the analyzer's /analyze endpoint as a
// multipart form and decodes the response.
func (c *Client) Analyze(ctx context.Context, fileName string, image io.Reader) (*Analysis, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("image", fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to build analyzer request: %w", err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, fmt.Errorf("failed to buffer image %s: %w", fileName, err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize analyzer request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create analyzer request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analyzer request for %s failed: %w", fileName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("analyzer returned %d for %s: %s", resp.StatusCode, fileName, msg)
	}

	var analysis Analysis
	if err := json.NewDecoder(resp.Body).Decode(&analysis); err != nil {
		return nil, fmt.Errorf("failed to decode analyzer response for %s: %w", fileName, err)
	}
	return &analysis, nil
}

// Healthy pings the analyzer's health endpoint.
func (c *Client) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("analyzer unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("analyzer health returned %d", resp.StatusCode)
	}
	return nil
}
