package prompt

import (
	"strings"
	"testing"
)

func TestChatEmbedsQuestion(t *testing.T) {
	got := Chat("What's 1 + 1?")
	if !strings.HasPrefix(got, GrandPrompt) {
		t.Fatalf("prompt does not start with the grand template")
	}
	if !strings.Contains(got, `User Question: "What's 1 + 1?"`) {
		t.Fatalf("question not embedded: %s", got)
	}
}

func TestHarderEmbedsBothSides(t *testing.T) {
	got := Harder("Why is the sky blue?", "Rayleigh scattering, obviously.")
	if !strings.Contains(got, `Original Question: "Why is the sky blue?"`) {
		t.Fatalf("missing original question: %s", got)
	}
	if !strings.Contains(got, `Original Response: "Rayleigh scattering, obviously."`) {
		t.Fatalf("missing original response: %s", got)
	}
}

func TestChatWithFilesMetadataLines(t *testing.T) {
	files := []FileInfo{
		{Name: "notes.txt", Mime: "text/plain", Size: 2048},
		{Name: "data.csv", Mime: "text/csv", Size: 512, Excerpt: "a,b,c"},
	}
	got := ChatWithFiles("summarize", files)

	if !strings.Contains(got, "The user has uploaded 2 file(s):") {
		t.Fatalf("missing upload header: %s", got)
	}
	if !strings.Contains(got, "- File 1: notes.txt (text/plain, 2KB)") {
		t.Fatalf("missing first file line: %s", got)
	}
	if !strings.Contains(got, "- File 2: data.csv (text/csv, 1KB)") {
		t.Fatalf("missing second file line: %s", got)
	}
	if !strings.Contains(got, "Content of data.csv:\na,b,c") {
		t.Fatalf("missing excerpt block: %s", got)
	}
	if strings.Contains(got, "Content of notes.txt") {
		t.Fatalf("unexpected excerpt block for file without excerpt")
	}
}

func TestChatWithFilesDefaultsQuestion(t *testing.T) {
	got := ChatWithFiles("", []FileInfo{{Name: "a.txt", Mime: "text/plain", Size: 10}})
	if !strings.Contains(got, `User Question: "Please analyze these files"`) {
		t.Fatalf("default question not applied: %s", got)
	}
}
