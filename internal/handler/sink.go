package handler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"mec/internal/services"
)

// Sink receives the N-Triples payload of one event.
type Sink interface {
	Append(ctx context.Context, adapter string, payload []byte) error
}

// FileSink appends payloads to one N-Triples file.
type FileSink struct {
	path string
	mu   sync.Mutex
}

// NewFileSink creates the parent directory of path.
func NewFileSink(path string) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create graph directory: %w", err)
	}
	return &FileSink{path: path}, nil
}

// Append writes the payload in one call so concurrent writers never interleave lines.
func (s *FileSink) Append(_ context.Context, _ string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return services.Wrap(services.ErrTransient, "handler", "open graph file", s.path, err)
	}
	if _, err := f.Write(payload); err != nil {
		_ = f.Close()
		return services.Wrap(services.ErrTransient, "handler", "append graph file", s.path, err)
	}
	if err := f.Close(); err != nil {
		return services.Wrap(services.ErrTransient, "handler", "close graph file", s.path, err)
	}
	return nil
}

// RawPublisher sends bytes to an arbitrary subject.
type RawPublisher interface {
	PublishRaw(ctx context.Context, subject string, data []byte) error
}

// SubjectSink publishes payloads to <subject>.<adapter>.
type SubjectSink struct {
	publisher RawPublisher
	subject   string
}

func NewSubjectSink(publisher RawPublisher, subject string) *SubjectSink {
	return &SubjectSink{publisher: publisher, subject: subject}
}

func (s *SubjectSink) Append(ctx context.Context, adapter string, payload []byte) error {
	subject := s.subject
	if adapter != "" {
		subject += "." + adapter
	}
	return s.publisher.PublishRaw(ctx, subject, payload)
}
