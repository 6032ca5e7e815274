package conversation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"brainoutai/internal/models"
)

// ChatResponse is the success payload shared by all completion endpoints.
type ChatResponse struct {
	Response       string `json:"response"`
	Timestamp      string `json:"timestamp"`
	FilesProcessed int    `json:"filesProcessed,omitempty"`
}

// Backend is the HTTP surface the orchestrator talks to.
type Backend interface {
	Chat(ctx context.Context, message string) (*ChatResponse, error)
	ChatWithFiles(ctx context.Context, message string, files []models.FileRef) (*ChatResponse, error)
	MakeHarder(ctx context.Context, originalQuestion, originalResponse string) (*ChatResponse, error)
}

// Client implements Backend against a running BrainOutAI server.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 2 * time.Minute},
	}
}

func (c *Client) Chat(ctx context.Context, message string) (*ChatResponse, error) {
	return c.postJSON(ctx, "/api/chat", map[string]string{"message": message})
}

func (c *Client) MakeHarder(ctx context.Context, originalQuestion, originalResponse string) (*ChatResponse, error) {
	return c.postJSON(ctx, "/api/make-harder", map[string]string{
		"originalQuestion": originalQuestion,
		"originalResponse": originalResponse,
	})
}

func (c *Client) ChatWithFiles(ctx context.Context, message string, files []models.FileRef) (*ChatResponse, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("message", message); err != nil {
		return nil, fmt.Errorf("write message field: %w", err)
	}
	if err := writer.WriteField("fileCount", strconv.Itoa(len(files))); err != nil {
		return nil, fmt.Errorf("write fileCount field: %w", err)
	}
	for i, ref := range files {
		part, err := writer.CreateFormFile(fmt.Sprintf("file%d", i), ref.Name)
		if err != nil {
			return nil, fmt.Errorf("create file part: %w", err)
		}
		f, err := os.Open(ref.Path)
		if err != nil {
			return nil, fmt.Errorf("open attachment %s: %w", ref.Name, err)
		}
		_, err = io.Copy(part, f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("copy attachment %s: %w", ref.Name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat-with-files", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.do(req)
}

// Health checks the server's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload interface{}) (*ChatResponse, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*ChatResponse, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error   string `json:"error"`
			Details string `json:"details"`
		}
		if decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("server returned %d", resp.StatusCode)
	}
	var out ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out.Response == "" {
		return nil, fmt.Errorf("malformed response body")
	}
	return &out, nil
}
