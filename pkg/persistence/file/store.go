package file

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// store keeps one JSON document per entity in root/dir.
type store[T any] struct {
	dir string
	mu  *sync.Mutex
}

func newStore[T any](root, dir string, mu *sync.Mutex) *store[T] {
	return &store[T]{dir: path.Join(root, dir), mu: mu}
}

func (s *store[T]) path(id string) (string, bool) {
	// IDs come from request paths; only accept plain UUIDs so they cannot escape the directory.
	if uuid.Validate(id) != nil {
		return "", false
	}

	return filepath.Clean(path.Join(s.dir, id+".json")), true
}

// get returns nil, nil when the document does not exist.
func (s *store[T]) get(id string) (*T, error) {
	filePath, ok := s.path(id)
	if !ok {
		return nil, nil
	}

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read %s: %w", filePath, err)
	}

	var entity T

	err = json.Unmarshal(body, &entity)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", filePath, err)
	}

	return &entity, nil
}

func (s *store[T]) all() ([]*T, error) {
	files, err := fs.Glob(os.DirFS(s.dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.dir, err)
	}

	entities := make([]*T, 0, len(files))

	for _, file := range files {
		entity, err := s.get(strings.TrimSuffix(file, ".json"))
		if err != nil {
			return nil, err
		}

		if entity != nil {
			entities = append(entities, entity)
		}
	}

	return entities, nil
}

// put writes the document through a temporary file and a rename so readers never see partial JSON.
func (s *store[T]) put(id string, entity *T) error {
	filePath, ok := s.path(id)
	if !ok {
		return fmt.Errorf("invalid id %q", id)
	}

	err := os.MkdirAll(s.dir, 0750)
	if err != nil {
		return fmt.Errorf("failed to create %s directory: %w", s.dir, err)
	}

	data, err := json.MarshalIndent(entity, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", id, err)
	}

	// Each writer gets its own temporary file so concurrent saves of one document resolve to the last rename.
	tmp, err := os.CreateTemp(s.dir, id+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file for %s: %w", id, err)
	}

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Close()
	} else {
		_ = tmp.Close()
	}

	if err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}

	err = os.Rename(tmp.Name(), filePath)
	if err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to rename %s: %w", tmp.Name(), err)
	}

	return nil
}

// remove reports whether a document was deleted.
func (s *store[T]) remove(id string) (bool, error) {
	filePath, ok := s.path(id)
	if !ok {
		return false, nil
	}

	err := os.Remove(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to delete %s: %w", filePath, err)
	}

	return true, nil
}

func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate ID: %w", err)
	}

	return id.String(), nil
}
