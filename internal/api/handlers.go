package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"brainoutai/internal/ingest"
	"brainoutai/internal/prompt"
	"brainoutai/internal/redis"
	"brainoutai/internal/service/ai"
	"brainoutai/internal/worker"
)

const maxUploadBytes = 10 << 20 // 10 MiB total request payload

// isoTimestamp matches the wire format the client expects.
const isoTimestamp = "2006-01-02T15:04:05.000Z"

// Handler wires HTTP routes to the completion service.
type Handler struct {
	completer ai.Completer
	pool      *worker.Pool
	cache     *redis.Client // nil when redis is not configured
	cacheTTL  time.Duration
	ingest    *ingest.Loader // nil when upload parsing is unavailable
	uploadDir string
}

// NewHandler constructs a Handler instance.
func NewHandler(completer ai.Completer, pool *worker.Pool, cache *redis.Client, cacheTTL time.Duration, loader *ingest.Loader, uploadDir string) *Handler {
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Minute
	}
	if uploadDir == "" {
		uploadDir = os.TempDir()
	}
	return &Handler{
		completer: completer,
		pool:      pool,
		cache:     cache,
		cacheTTL:  cacheTTL,
		ingest:    loader,
		uploadDir: uploadDir,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.Use(limitBodySize(maxUploadBytes))
	api.POST("/chat", h.chat)
	api.POST("/make-harder", h.makeHarder)
	api.POST("/chat-with-files", h.chatWithFiles)
	api.GET("/health", h.health)
}

// limitBodySize rejects oversized payloads before any handler logic runs.
func limitBodySize(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "OK",
		"message": "BrainOutAI server is running",
	})
}

type chatRequest struct {
	Message string `json:"message"`
}

func (h *Handler) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message is required"})
		return
	}

	text, err := h.generate(c.Request.Context(), prompt.Chat(req.Message))
	if err != nil {
		h.completionError(c, "Failed to generate response", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"response":  text,
		"timestamp": time.Now().UTC().Format(isoTimestamp),
	})
}

type makeHarderRequest struct {
	OriginalQuestion string `json:"originalQuestion"`
	OriginalResponse string `json:"originalResponse"`
}

func (h *Handler) makeHarder(c *gin.Context) {
	var req makeHarderRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.OriginalQuestion == "" || req.OriginalResponse == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Original question and response are required"})
		return
	}

	text, err := h.generate(c.Request.Context(), prompt.Harder(req.OriginalQuestion, req.OriginalResponse))
	if err != nil {
		h.completionError(c, "Failed to generate harder response", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"response":  text,
		"timestamp": time.Now().UTC().Format(isoTimestamp),
	})
}

func (h *Handler) chatWithFiles(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}

	message := c.PostForm("message")
	var parts []*multipart.FileHeader
	if form := c.Request.MultipartForm; form != nil {
		for _, headers := range form.File {
			parts = append(parts, headers...)
		}
	}
	if message == "" && len(parts) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message or files are required"})
		return
	}

	files, cleanup, err := h.spoolUploads(c, parts)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer cleanup()

	text, err := h.generate(c.Request.Context(), prompt.ChatWithFiles(message, files))
	if err != nil {
		h.completionError(c, "Failed to generate response with files", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"response":       text,
		"timestamp":      time.Now().UTC().Format(isoTimestamp),
		"filesProcessed": len(parts),
	})
}

// spoolUploads writes the uploaded parts to a per-request temp directory and
// describes them for the prompt composer. The returned cleanup removes the
// directory; it is safe to call even when an error is returned.
func (h *Handler) spoolUploads(c *gin.Context, parts []*multipart.FileHeader) ([]prompt.FileInfo, func(), error) {
	if len(parts) == 0 {
		return nil, func() {}, nil
	}
	dir, err := os.MkdirTemp(h.uploadDir, "brainout-upload-*")
	if err != nil {
		return nil, func() {}, fmt.Errorf("create upload directory: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Printf("remove upload dir %s: %v", dir, err)
		}
	}

	files := make([]prompt.FileInfo, 0, len(parts))
	for i, part := range parts {
		name := filepath.Base(part.Filename)
		if name == "" || name == "." {
			name = fmt.Sprintf("file-%d", i)
		}
		dest := filepath.Join(dir, fmt.Sprintf("%d-%s", i, name))
		if err := c.SaveUploadedFile(part, dest); err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("save uploaded file %s: %w", name, err)
		}
		info := prompt.FileInfo{
			Name: name,
			Mime: part.Header.Get("Content-Type"),
			Size: part.Size,
		}
		if info.Mime == "" {
			info.Mime = "application/octet-stream"
		}
		if h.ingest != nil {
			excerpt, err := h.ingest.Excerpt(c.Request.Context(), dest)
			if err != nil {
				log.Printf("excerpt %s: %v", name, err)
			} else {
				info.Excerpt = excerpt
			}
		}
		files = append(files, info)
	}
	return files, cleanup, nil
}

// generate runs one completion through the dispatch pool, consulting the
// response cache first when one is configured.
func (h *Handler) generate(ctx context.Context, fullPrompt string) (string, error) {
	cacheKey := completionCacheKey(fullPrompt)
	if h.cache != nil {
		cached, err := h.cache.Get(ctx, cacheKey)
		if err == nil {
			return cached, nil
		}
		if err != redis.ErrCacheMiss {
			log.Printf("completion cache get failed: %v", err)
		}
	}

	type completion struct {
		text string
		err  error
	}
	resultCh := make(chan completion, 1)
	err := h.pool.Submit(func() {
		text, err := h.completer.Generate(ctx, fullPrompt)
		resultCh <- completion{text: text, err: err}
	})
	if err != nil {
		return "", err
	}

	select {
	case res := <-resultCh:
		if res.err != nil {
			return "", res.err
		}
		if h.cache != nil {
			if err := h.cache.Set(ctx, cacheKey, res.text, h.cacheTTL); err != nil {
				log.Printf("completion cache set failed: %v", err)
			}
		}
		return res.text, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (h *Handler) completionError(c *gin.Context, message string, err error) {
	if errors.Is(err, worker.ErrDispatcherBusy) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "server is busy, please retry"})
		return
	}
	log.Printf("%s: %v", message, err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}

func completionCacheKey(fullPrompt string) string {
	sum := sha256.Sum256([]byte(fullPrompt))
	return "completion:" + hex.EncodeToString(sum[:])
}
