package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const wordPlaceholder = "{word}"

// FileSink appends events as JSON lines. When the path contains "{word}"
// each word gets its own file, opened on its first event.
type FileSink struct {
	pattern string
	mu      sync.Mutex
	files   map[string]*jsonlFile
	closed  bool
}

type jsonlFile struct {
	file   *os.File
	writer *bufio.Writer
}

func NewFileSink(pattern string) (*FileSink, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, errors.New("file path is empty")
	}
	s := &FileSink{pattern: pattern, files: map[string]*jsonlFile{}}
	if !s.perWord() {
		if _, err := s.open(pattern); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *FileSink) Name() string { return "file_jsonl:" + s.pattern }

func (s *FileSink) perWord() bool { return strings.Contains(s.pattern, wordPlaceholder) }

// PathFor returns the file events for word are appended to.
func (s *FileSink) PathFor(word string) string {
	return strings.ReplaceAll(s.pattern, wordPlaceholder, word)
}

func (s *FileSink) open(path string) (*jsonlFile, error) {
	if f, ok := s.files[path]; ok {
		return f, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	jf := &jsonlFile{file: f, writer: bufio.NewWriter(f)}
	s.files[path] = jf
	return jf, nil
}

func (s *FileSink) Deliver(_ context.Context, ev *Event) error {
	if ev == nil {
		return nil
	}
	if s.perWord() && ev.Word == "" {
		return errors.New("event has no word")
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("file sink closed")
	}
	jf, err := s.open(s.PathFor(ev.Word))
	if err != nil {
		return err
	}
	if _, err := jf.writer.Write(data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return jf.writer.Flush()
}

func (s *FileSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	var errs []error
	for path, jf := range s.files {
		if err := jf.writer.Flush(); err != nil {
			errs = append(errs, err)
		}
		if err := jf.file.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(s.files, path)
	}
	return errors.Join(errs...)
}
