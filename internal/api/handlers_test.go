package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"brainoutai/internal/worker"
)

type mockCompleter struct {
	mu      sync.Mutex
	prompts []string
	err     error
}

func (m *mockCompleter) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	err := m.err
	m.mu.Unlock()
	if err != nil {
		return "", err
	}
	return "mock completion", nil
}

func (m *mockCompleter) lastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

func newTestHandler(t *testing.T) (*gin.Engine, *mockCompleter, *Handler) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	completer := &mockCompleter{}
	pool := worker.NewPool(worker.Config{MinWorkers: 1, MaxWorkers: 2, QueueSize: 4})
	handler := NewHandler(completer, pool, nil, 0, nil, t.TempDir())

	router := gin.New()
	handler.RegisterRoutes(router)
	return router, completer, handler
}

func doJSONRequest(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, data []byte, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode json: %v", err)
	}
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("unexpected status %d, body: %s", rec.Code, rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	router, _, _ := newTestHandler(t)
	rec := doJSONRequest(t, router, http.MethodGet, "/api/health", nil)
	assertStatus(t, rec, http.StatusOK)

	var body struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	decodeJSON(t, rec.Body.Bytes(), &body)
	if body.Status != "OK" || body.Message != "BrainOutAI server is running" {
		t.Fatalf("unexpected health body: %+v", body)
	}
}

func TestChatSuccess(t *testing.T) {
	router, completer, _ := newTestHandler(t)

	rec := doJSONRequest(t, router, http.MethodPost, "/api/chat", map[string]string{
		"message": "What's 1 + 1?",
	})
	assertStatus(t, rec, http.StatusOK)

	var body struct {
		Response  string `json:"response"`
		Timestamp string `json:"timestamp"`
	}
	decodeJSON(t, rec.Body.Bytes(), &body)
	if body.Response != "mock completion" {
		t.Fatalf("response = %q", body.Response)
	}
	if body.Timestamp == "" {
		t.Fatalf("missing timestamp")
	}
	if !strings.Contains(completer.lastPrompt(), `User Question: "What's 1 + 1?"`) {
		t.Fatalf("prompt missing question: %s", completer.lastPrompt())
	}
}

func TestChatMissingMessage(t *testing.T) {
	router, completer, _ := newTestHandler(t)

	for _, body := range []interface{}{nil, map[string]string{"message": ""}} {
		rec := doJSONRequest(t, router, http.MethodPost, "/api/chat", body)
		assertStatus(t, rec, http.StatusBadRequest)
		if !strings.Contains(rec.Body.String(), "Message is required") {
			t.Fatalf("unexpected error body: %s", rec.Body.String())
		}
	}
	if len(completer.prompts) != 0 {
		t.Fatalf("completer called for invalid request")
	}
}

func TestChatUpstreamFailure(t *testing.T) {
	router, completer, _ := newTestHandler(t)
	completer.err = fmt.Errorf("provider timeout")

	rec := doJSONRequest(t, router, http.MethodPost, "/api/chat", map[string]string{
		"message": "hello",
	})
	assertStatus(t, rec, http.StatusInternalServerError)

	var body struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	decodeJSON(t, rec.Body.Bytes(), &body)
	if body.Error != "Failed to generate response" {
		t.Fatalf("error = %q", body.Error)
	}
	if !strings.Contains(body.Details, "provider timeout") {
		t.Fatalf("details = %q", body.Details)
	}
}

func TestChatSaturatedDispatcher(t *testing.T) {
	router, _, handler := newTestHandler(t)

	// Fill the dispatch queue with stuck jobs so the next request cannot be
	// accepted. The dispatcher keeps draining briefly while workers spin up,
	// so saturate in rounds until the queue stays full.
	release := make(chan struct{})
	defer close(release)
	saturate := func() {
		for i := 0; i < 64; i++ {
			if err := handler.pool.Submit(func() { <-release }); err != nil {
				return
			}
		}
		t.Fatalf("dispatch queue never saturated")
	}
	for i := 0; i < 3; i++ {
		saturate()
		time.Sleep(20 * time.Millisecond)
	}

	rec := doJSONRequest(t, router, http.MethodPost, "/api/chat", map[string]string{
		"message": "hello",
	})
	assertStatus(t, rec, http.StatusServiceUnavailable)
	if !strings.Contains(rec.Body.String(), "busy") {
		t.Fatalf("unexpected busy body: %s", rec.Body.String())
	}
}

func TestMakeHarderValidation(t *testing.T) {
	router, _, _ := newTestHandler(t)

	cases := []map[string]string{
		{},
		{"originalQuestion": "q"},
		{"originalResponse": "a"},
	}
	for _, body := range cases {
		rec := doJSONRequest(t, router, http.MethodPost, "/api/make-harder", body)
		assertStatus(t, rec, http.StatusBadRequest)
		if !strings.Contains(rec.Body.String(), "Original question and response are required") {
			t.Fatalf("unexpected error body: %s", rec.Body.String())
		}
	}
}

func TestMakeHarderSuccess(t *testing.T) {
	router, completer, _ := newTestHandler(t)

	rec := doJSONRequest(t, router, http.MethodPost, "/api/make-harder", map[string]string{
		"originalQuestion": "What is water?",
		"originalResponse": "H2O, elaborately.",
	})
	assertStatus(t, rec, http.StatusOK)
	prompt := completer.lastPrompt()
	if !strings.Contains(prompt, `Original Question: "What is water?"`) {
		t.Fatalf("prompt missing original question: %s", prompt)
	}
	if !strings.Contains(prompt, `Original Response: "H2O, elaborately."`) {
		t.Fatalf("prompt missing original response: %s", prompt)
	}
}

func doMultipartRequest(t *testing.T, router *gin.Engine, message string, files map[string][]byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if message != "" {
		if err := writer.WriteField("message", message); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	i := 0
	for name, content := range files {
		part, err := writer.CreateFormFile(fmt.Sprintf("file%d", i), name)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("write part: %v", err)
		}
		i++
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/chat-with-files", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestChatWithFiles(t *testing.T) {
	router, completer, _ := newTestHandler(t)

	rec := doMultipartRequest(t, router, "what is this", map[string][]byte{
		"notes.txt": []byte("some notes"),
	})
	assertStatus(t, rec, http.StatusOK)

	var body struct {
		Response       string `json:"response"`
		FilesProcessed int    `json:"filesProcessed"`
	}
	decodeJSON(t, rec.Body.Bytes(), &body)
	if body.FilesProcessed != 1 {
		t.Fatalf("filesProcessed = %d", body.FilesProcessed)
	}
	prompt := completer.lastPrompt()
	if !strings.Contains(prompt, "notes.txt") {
		t.Fatalf("prompt missing file metadata: %s", prompt)
	}
	if !strings.Contains(prompt, "The user has uploaded 1 file(s):") {
		t.Fatalf("prompt missing upload header: %s", prompt)
	}
}

func TestChatWithFilesMessageOnly(t *testing.T) {
	router, _, _ := newTestHandler(t)

	rec := doMultipartRequest(t, router, "no files here", nil)
	assertStatus(t, rec, http.StatusOK)

	var body struct {
		FilesProcessed int `json:"filesProcessed"`
	}
	decodeJSON(t, rec.Body.Bytes(), &body)
	if body.FilesProcessed != 0 {
		t.Fatalf("filesProcessed = %d", body.FilesProcessed)
	}
}

func TestChatWithFilesNeitherPresent(t *testing.T) {
	router, _, _ := newTestHandler(t)

	rec := doMultipartRequest(t, router, "", nil)
	assertStatus(t, rec, http.StatusBadRequest)
	if !strings.Contains(rec.Body.String(), "Message or files are required") {
		t.Fatalf("unexpected error body: %s", rec.Body.String())
	}
}

func TestChatWithFilesOversizedPayload(t *testing.T) {
	router, completer, _ := newTestHandler(t)

	rec := doMultipartRequest(t, router, "big one", map[string][]byte{
		"huge.bin": bytes.Repeat([]byte("x"), maxUploadBytes+1),
	})
	assertStatus(t, rec, http.StatusRequestEntityTooLarge)
	if len(completer.prompts) != 0 {
		t.Fatalf("completer called for oversized payload")
	}
}
