package conversation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"brainoutai/internal/models"
)

func TestClientChat(t *testing.T) {
	var gotPath, gotMessage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var body struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		gotMessage = body.Message
		json.NewEncoder(w).Encode(map[string]string{
			"response":  "overly complicated",
			"timestamp": "2024-01-01T00:00:00.000Z",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	resp, err := client.Chat(context.Background(), "What's 2 + 2?")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if gotPath != "/api/chat" {
		t.Fatalf("path = %s", gotPath)
	}
	if gotMessage != "What's 2 + 2?" {
		t.Fatalf("message = %q", gotMessage)
	}
	if resp.Response != "overly complicated" || resp.Timestamp == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestClientMakeHarder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/make-harder" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body struct {
			OriginalQuestion string `json:"originalQuestion"`
			OriginalResponse string `json:"originalResponse"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.OriginalQuestion != "q" || body.OriginalResponse != "a" {
			t.Errorf("payload = %+v", body)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"response":  "even harder",
			"timestamp": "2024-01-01T00:00:00.000Z",
		})
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL).MakeHarder(context.Background(), "q", "a")
	if err != nil {
		t.Fatalf("make harder: %v", err)
	}
	if resp.Response != "even harder" {
		t.Fatalf("response = %q", resp.Response)
	}
}

func TestClientChatWithFilesMultipart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("hello files"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if got := r.FormValue("message"); got != "summarize" {
			t.Errorf("message field = %q", got)
		}
		if got := r.FormValue("fileCount"); got != "1" {
			t.Errorf("fileCount field = %q", got)
		}
		f, header, err := r.FormFile("file0")
		if err != nil {
			t.Errorf("file0 part: %v", err)
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		defer f.Close()
		if header.Filename != "notes.txt" {
			t.Errorf("filename = %q", header.Filename)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"response":       "file analysis",
			"timestamp":      "2024-01-01T00:00:00.000Z",
			"filesProcessed": 1,
		})
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL).ChatWithFiles(context.Background(), "summarize", []models.FileRef{
		{Name: "notes.txt", MimeType: "text/plain", Size: 11, Path: path},
	})
	if err != nil {
		t.Fatalf("chat with files: %v", err)
	}
	if resp.FilesProcessed != 1 {
		t.Fatalf("filesProcessed = %d", resp.FilesProcessed)
	}
}

func TestClientSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{
			"error":   "Failed to generate response",
			"details": "provider timeout",
		})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Chat(context.Background(), "hi")
	if err == nil {
		t.Fatalf("expected error from 500 response")
	}
}

func TestClientHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "OK"})
	}))
	defer srv.Close()

	if err := NewClient(srv.URL).Health(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
	if err := NewClient(srv.URL + "/missing").Health(context.Background()); err == nil {
		t.Fatalf("expected health failure for bad path")
	}
}
