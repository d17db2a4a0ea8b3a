package plan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotFound reports that a source has no workout with the requested id.
var ErrNotFound = errors.New("workout not found")

// Source provides workout definitions to the runtime.
type Source interface {
	GetWorkout(ctx context.Context, id string) (*Workout, error)
}

// FileSource reads workout definitions from a directory of YAML files,
// one workout per <id>.yaml file.
type FileSource struct {
	dir string
}

// NewFileSource creates a FileSource rooted at dir. The directory is read
// lazily, so it may be created after construction.
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

// GetWorkout loads and validates <dir>/<id>.yaml. Returns ErrNotFound when
// no such file exists.
func (s *FileSource) GetWorkout(ctx context.Context, id string) (*Workout, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, id+".yaml"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("workout %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading workout %q: %w", id, err)
	}

	var w Workout
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("parsing workout %q: %w", id, err)
	}
	if w.ID == "" {
		w.ID = id
	}
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("invalid workout %q: %w", id, err)
	}
	return &w, nil
}

// ListWorkouts returns the ids of every workout file in the directory,
// sorted. A missing directory yields an empty list.
func (s *FileSource) ListWorkouts(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing workouts: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".yaml") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".yaml"))
	}
	sort.Strings(ids)
	return ids, nil
}
