package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kirillkom/document-classifier/internal/core/domain"
)

// Storage maps containers to directories under basePath and object keys to
// files inside them.
type Storage struct {
	basePath string
}

func New(basePath string) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/storage"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Storage{basePath: basePath}, nil
}

// Path resolves a container and decoded key to a file path, refusing keys
// that escape the container directory.
func (s *Storage) Path(container, key string) (string, error) {
	if strings.TrimSpace(container) == "" || strings.ContainsAny(container, `/\`) || container == "." || container == ".." {
		return "", domain.WrapError(domain.ErrInvalidInput, "resolve path", fmt.Errorf("invalid container %q", container))
	}
	root := filepath.Join(s.basePath, container)
	path := filepath.Join(root, filepath.FromSlash(key))
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", domain.WrapError(domain.ErrInvalidInput, "resolve path", fmt.Errorf("key %q escapes container", key))
	}
	return path, nil
}

func (s *Storage) Save(_ context.Context, container, key string, data io.Reader) error {
	path, err := s.Path(container, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

func (s *Storage) Open(_ context.Context, container, key string) (io.ReadCloser, error) {
	path, err := s.Path(container, key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "open file", err)
		}
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}
