package material

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	logx "github.com/DeclanJeon/autostory-sub001/pkg/logx"
)

// Source supplies the candidate pool and records which items were consumed.
// RSS fetching and the saved-material UI live outside this module; the core
// only reads the pool they maintain.
type Source interface {
	Pool(ctx context.Context) ([]Candidate, error)
	MarkProcessed(ctx context.Context, identity string) error
}

// FileSource is a JSON-file-backed Source. The surrounding application (RSS
// collector, save-link UI) writes the file; we read it and flip statuses.
//
// File layout:
//
//	{ "materials": [ {candidate}, ... ] }
type FileSource struct {
	path string
	log  logx.Logger

	mu sync.Mutex
}

func NewFileSource(path string, log logx.Logger) (*FileSource, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("materials path is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &FileSource{path: path, log: log}, nil
}

type materialsFile struct {
	Materials []Candidate `json:"materials"`
}

func (s *FileSource) Pool(ctx context.Context) ([]Candidate, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.readLocked()
	if err != nil {
		return nil, err
	}
	return f.Materials, nil
}

func (s *FileSource) MarkProcessed(ctx context.Context, identity string) error {
	_ = ctx
	if strings.TrimSpace(identity) == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.readLocked()
	if err != nil {
		return err
	}
	changed := false
	for i := range f.Materials {
		if f.Materials[i].Identity() == identity {
			if f.Materials[i].Status != StatusProcessed {
				f.Materials[i].Status = StatusProcessed
				changed = true
			}
		}
	}
	if !changed {
		return nil
	}
	return s.writeLocked(f)
}

func (s *FileSource) readLocked() (*materialsFile, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &materialsFile{}, nil
	}
	if err != nil {
		return nil, err
	}
	var f materialsFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *FileSource) writeLocked(f *materialsFile) error {
	b, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
