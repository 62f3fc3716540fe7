package staging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"partmix/internal/services"
)

const (
	workspacePrefix = "batch-"
	lockFileName    = ".lock"
)

// ErrWorkspaceBusy indicates another process holds the workspace lock.
var ErrWorkspaceBusy = errors.New("workspace locked by another process")

// Workspace is a batch's private directory under the scratch root. The
// engine contexts of the batch create their scratch directories inside it.
type Workspace struct {
	dir  string
	lock *flock.Flock
}

// Open creates and locks the workspace for batchID.
func Open(scratchRoot, batchID string) (*Workspace, error) {
	scratchRoot = strings.TrimSpace(scratchRoot)
	if scratchRoot == "" {
		return nil, services.Wrap(services.ErrConfiguration, "staging", "open workspace", "scratch directory required", nil)
	}
	batchID = strings.TrimSpace(batchID)
	if batchID == "" || filepath.Base(batchID) != batchID {
		return nil, services.Wrap(services.ErrValidation, "staging", "open workspace", fmt.Sprintf("invalid batch id %q", batchID), nil)
	}

	dir := filepath.Join(scratchRoot, workspacePrefix+batchID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	lock := flock.New(filepath.Join(dir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock workspace: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", dir, ErrWorkspaceBusy)
	}
	return &Workspace{dir: dir, lock: lock}, nil
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string { return w.dir }

// Close removes the workspace and releases its lock.
func (w *Workspace) Close() error {
	if w == nil || w.lock == nil {
		return nil
	}
	removeErr := os.RemoveAll(w.dir)
	unlockErr := w.lock.Unlock()
	w.lock = nil
	if removeErr != nil {
		return fmt.Errorf("remove workspace: %w", removeErr)
	}
	if unlockErr != nil {
		return fmt.Errorf("unlock workspace: %w", unlockErr)
	}
	return nil
}

// inUse reports whether a live process holds the workspace lock.
func inUse(dir string) bool {
	lockPath := filepath.Join(dir, lockFileName)
	if _, err := os.Stat(lockPath); err != nil {
		return false
	}
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil || !locked {
		return true
	}
	_ = lock.Unlock()
	return false
}
