package pipeline

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

// Workspace is the temp directory owned by exactly one run.
// Every file a stage creates lives inside it or is tracked explicitly.
type Workspace struct {
	dir string

	mu      sync.Mutex
	files   []string
	cleaned bool
}

// NewWorkspace creates a fresh run directory under root
func NewWorkspace(root, runID string) (*Workspace, error) {
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	dir, err := os.MkdirTemp(root, "run_"+runID+"_")
	if err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

// Dir is the run directory
func (w *Workspace) Dir() string { return w.dir }

// Track registers a file for deletion at cleanup
func (w *Workspace) Track(path string) {
	if path == "" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.files = append(w.files, path)
}

// Cleanup deletes every tracked file and the run directory.
// Absent paths are not errors and a second call is a no-op.
func (w *Workspace) Cleanup() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cleaned {
		return nil
	}
	w.cleaned = true

	var errs []error
	for _, f := range w.files {
		if err := os.Remove(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	w.files = nil
	if err := os.RemoveAll(w.dir); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
