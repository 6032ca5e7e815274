// Package ingest extracts text excerpts from uploaded files so prompts can
// reference their content.
package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/document/loader/file"
	"github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/components/document/parser"
)

const ExcerptLimit = 2000 // characters per file

// Loader reads uploaded documents from disk and returns a bounded excerpt.
type Loader struct {
	loader *file.FileLoader
}

func NewLoader(ctx context.Context) (*Loader, error) {
	parserExt, err := parser.NewExtParser(ctx, &parser.ExtParserConfig{
		FallbackParser: parser.TextParser{},
	})
	if err != nil {
		return nil, fmt.Errorf("init file parser: %w", err)
	}
	fl, err := file.NewFileLoader(ctx, &file.FileLoaderConfig{
		UseNameAsID: true,
		Parser:      parserExt,
	})
	if err != nil {
		return nil, fmt.Errorf("init file loader: %w", err)
	}
	return &Loader{loader: fl}, nil
}

// Excerpt loads the file at path and returns up to ExcerptLimit characters of
// its text content. Binary or unreadable files yield an empty excerpt, not an
// error: the caller falls back to metadata-only prompting.
func (l *Loader) Excerpt(ctx context.Context, path string) (string, error) {
	docs, err := l.loader.Load(ctx, document.Source{URI: path})
	if err != nil {
		return "", fmt.Errorf("load file: %w", err)
	}
	var builder strings.Builder
	for _, doc := range docs {
		content := strings.TrimSpace(doc.Content)
		if content == "" {
			continue
		}
		builder.WriteString(content)
		builder.WriteString("\n\n")
	}
	text := strings.TrimSpace(builder.String())
	if !isMostlyText(text) {
		return "", nil
	}
	runes := []rune(text)
	if len(runes) > ExcerptLimit {
		runes = runes[:ExcerptLimit]
	}
	return string(runes), nil
}

// isMostlyText guards against feeding raw binary through the prompt when the
// fallback text parser accepted a non-text file.
func isMostlyText(s string) bool {
	if s == "" {
		return false
	}
	printable := 0
	for _, r := range s {
		if r == '\n' || r == '\t' || r == '\r' || r >= 0x20 {
			printable++
		}
	}
	return printable*10 >= len([]rune(s))*9
}
