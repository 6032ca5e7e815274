// Package recording captures audio from an acquired input device so a clip
// can be attached to a chat turn.
package recording

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"brainoutai/internal/models"
)

var (
	// ErrDeviceAccessDenied means the device refused access. The recorder
	// stays in the not-recording state.
	ErrDeviceAccessDenied = errors.New("audio device access denied")
	// ErrAlreadyRecording is returned by Start while a capture is running.
	ErrAlreadyRecording = errors.New("recording already in progress")
	// ErrNotRecording is returned by Stop when no capture is running.
	ErrNotRecording = errors.New("no recording in progress")
)

// Stream is a live audio source. Close releases the underlying device;
// reads fail after Close.
type Stream interface {
	io.Reader
	Close() error
	MimeType() string
}

// Device acquires an exclusive audio stream. Implementations map a
// permission refusal to ErrDeviceAccessDenied.
type Device interface {
	Acquire(ctx context.Context) (Stream, error)
}

// Clip is a finished capture.
type Clip struct {
	MimeType string
	Data     []byte
}

// SaveTo writes the clip into dir and returns a FileRef for attaching it to
// a message.
func (c *Clip) SaveTo(dir string) (models.FileRef, error) {
	name := fmt.Sprintf("recording_%d%s", time.Now().UnixMilli(), extensionFor(c.MimeType))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, c.Data, 0o644); err != nil {
		return models.FileRef{}, fmt.Errorf("write clip: %w", err)
	}
	return models.FileRef{
		Name:     name,
		MimeType: c.MimeType,
		Size:     int64(len(c.Data)),
		Path:     path,
	}, nil
}

func extensionFor(mime string) string {
	switch mime {
	case "audio/ogg":
		return ".ogg"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	default:
		return ".webm"
	}
}

// Recorder drives one capture at a time. The acquired stream is released on
// every exit path: normal stop, teardown via Close, and acquisition failure.
type Recorder struct {
	device Device

	mu      sync.Mutex
	stream  Stream
	buf     *bytes.Buffer
	done    chan struct{}
	readErr error
}

func NewRecorder(device Device) *Recorder {
	return &Recorder{device: device}
}

// Recording reports whether a capture is in progress.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stream != nil
}

// Start acquires the device and begins buffering audio. On acquisition
// failure no stream is held and the recorder remains not-recording.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.stream != nil {
		r.mu.Unlock()
		return ErrAlreadyRecording
	}
	r.mu.Unlock()

	stream, err := r.device.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire audio device: %w", err)
	}

	r.mu.Lock()
	if r.stream != nil {
		// Lost the race with another Start; release the extra stream.
		r.mu.Unlock()
		stream.Close()
		return ErrAlreadyRecording
	}
	r.stream = stream
	r.buf = &bytes.Buffer{}
	r.done = make(chan struct{})
	r.readErr = nil
	buf, done := r.buf, r.done
	r.mu.Unlock()

	go func() {
		defer close(done)
		_, err := io.Copy(buf, stream)
		r.mu.Lock()
		r.readErr = err
		r.mu.Unlock()
	}()
	return nil
}

// Stop releases the device and returns the buffered clip.
func (r *Recorder) Stop() (*Clip, error) {
	r.mu.Lock()
	stream, done := r.stream, r.done
	r.mu.Unlock()
	if stream == nil {
		return nil, ErrNotRecording
	}

	// Closing the stream unblocks the copy goroutine.
	closeErr := stream.Close()
	<-done

	r.mu.Lock()
	clip := &Clip{MimeType: stream.MimeType(), Data: r.buf.Bytes()}
	readErr := r.readErr
	r.stream, r.buf, r.done, r.readErr = nil, nil, nil, nil
	r.mu.Unlock()

	if readErr != nil && !errors.Is(readErr, io.EOF) && !errors.Is(readErr, os.ErrClosed) {
		return nil, fmt.Errorf("read audio stream: %w", readErr)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("release audio device: %w", closeErr)
	}
	return clip, nil
}

// Close releases the device if a capture is running and discards any
// buffered audio.
func (r *Recorder) Close() error {
	r.mu.Lock()
	stream, done := r.stream, r.done
	r.stream, r.buf, r.done, r.readErr = nil, nil, nil, nil
	r.mu.Unlock()
	if stream == nil {
		return nil
	}
	err := stream.Close()
	<-done
	return err
}
