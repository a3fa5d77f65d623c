package storage

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"strings"
	"sync"
)

type BlobStorage interface {
	Save(path string, data io.Reader) error
	Get(path string) (io.ReadCloser, error)
	Delete(path string) error
	DeletePrefix(prefix string) int
	Exists(path string) bool
	List(prefix string) []string
	Size() int64
}

// memoryStorage keeps blobs in process memory only; nothing outlives the process.
type memoryStorage struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	size  int64
}

func NewMemoryStorage() BlobStorage {
	return &memoryStorage{blobs: make(map[string][]byte)}
}

func (s *memoryStorage) Save(path string, data io.Reader) error {
	content, err := io.ReadAll(data)
	if err != nil {
		return fmt.Errorf("reading blob %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.blobs[path]; ok {
		s.size -= int64(len(old))
	}
	s.blobs[path] = content
	s.size += int64(len(content))
	return nil
}

func (s *memoryStorage) Get(path string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	content, ok := s.blobs[path]
	if !ok {
		return nil, &fs.PathError{Op: "get", Path: path, Err: fs.ErrNotExist}
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (s *memoryStorage) Delete(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	content, ok := s.blobs[path]
	if !ok {
		return &fs.PathError{Op: "delete", Path: path, Err: fs.ErrNotExist}
	}
	s.size -= int64(len(content))
	delete(s.blobs, path)
	return nil
}

// DeletePrefix removes every blob under prefix and reports how many were dropped.
func (s *memoryStorage) DeletePrefix(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for path, content := range s.blobs {
		if strings.HasPrefix(path, prefix) {
			s.size -= int64(len(content))
			delete(s.blobs, path)
			removed++
		}
	}
	return removed
}

func (s *memoryStorage) Exists(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.blobs[path]
	return ok
}

func (s *memoryStorage) List(prefix string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var paths []string
	for path := range s.blobs {
		if strings.HasPrefix(path, prefix) {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths
}

// Size is the total number of bytes held.
func (s *memoryStorage) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}
