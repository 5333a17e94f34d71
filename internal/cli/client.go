package cli

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
	"strings"
	"time"

	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/internal/server"
)

// Client calls a running docqa server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the server at baseURL, e.g. "http://localhost:8080".
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// APIError is a non-2xx server response.
type APIError struct {
	Status  int
	Signal  string
	Message string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Signal
	}
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, msg)
}

// UploadResult is the server's per-file upload report.
type UploadResult struct {
	Signal   string         `json:"signal"`
	Uploaded []UploadedFile `json:"uploaded_files_details"`
	Rejected []UploadedFile `json:"rejected_files"`
}

// UploadedFile describes one accepted or rejected file.
type UploadedFile struct {
	OriginalName string `json:"original_filename"`
	StoredName   string `json:"asset_name_stored,omitempty"`
	AssetID      int64  `json:"asset_db_id,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Upload sends local files to a project.
func (c *Client) Upload(ctx context.Context, project int64, paths []string) (*UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range paths {
		if err := addFile(mw, p); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	var out UploadResult
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/data/upload/%d", project), mw.FormDataContentType(), &buf, &out)
	return &out, err
}

func addFile(mw *multipart.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	fw, err := mw.CreateFormFile("files", filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(fw, f)
	return err
}

// Process chunks the project's assets.
func (c *Client) Process(ctx context.Context, project int64, req models.ProcessRequest) (*models.ProcessResult, error) {
	var out models.ProcessResult
	err := c.postJSON(ctx, fmt.Sprintf("/api/v1/data/process/%d", project), req, &out)
	return &out, err
}

// Push indexes the project's chunks.
func (c *Client) Push(ctx context.Context, project int64, reset bool) (*models.PushResult, error) {
	var out models.PushResult
	err := c.postJSON(ctx, fmt.Sprintf("/api/v1/nlp/index/push/%d", project), models.PushRequest{DoReset: reset}, &out)
	return &out, err
}

// Search returns raw nearest chunks.
func (c *Client) Search(ctx context.Context, project int64, q models.SearchQuery) ([]models.RetrievedChunk, error) {
	var out struct {
		Results []models.RetrievedChunk `json:"results"`
	}
	err := c.postJSON(ctx, fmt.Sprintf("/api/v1/nlp/index/search/%d", project), q, &out)
	return out.Results, err
}

// Ask runs the answer pipeline.
func (c *Client) Ask(ctx context.Context, project int64, q models.SearchQuery) (*models.Answer, error) {
	var out models.Answer
	err := c.postJSON(ctx, fmt.Sprintf("/api/v1/nlp/index/answer/%d", project), q, &out)
	return &out, err
}

// Assets lists the project's uploaded assets.
func (c *Client) Assets(ctx context.Context, project int64) ([]models.Asset, error) {
	var out struct {
		Assets []models.Asset `json:"assets"`
	}
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/data/assets/%d", project), "", nil, &out)
	return out.Assets, err
}

// DeleteAsset removes an asset with its chunks, vectors, and tables.
func (c *Client) DeleteAsset(ctx context.Context, project, asset int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/data/assets/%d/%d", project, asset), "", nil, nil)
}

// Status returns server statistics.
func (c *Client) Status(ctx context.Context) (*server.StatusResponse, error) {
	var out server.StatusResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/status", "", nil, &out)
	return &out, err
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, "application/json", bytes.NewReader(body), out)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed (is the server running at %s?): %w", c.baseURL, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var e struct {
			Signal string `json:"signal"`
			Error  string `json:"error"`
		}
		if json.Unmarshal(data, &e) == nil {
			apiErr.Signal, apiErr.Message = e.Signal, e.Error
		}
		// Decode anyway: some failures carry partial results.
		if out != nil {
			_ = json.Unmarshal(data, out)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
