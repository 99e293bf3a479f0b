// Package backup snapshots target files before mutation. Backups are
// the sole recovery mechanism if an apply later proves wrong, so they
// are never pruned by this tool.
package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Ref identifies one completed snapshot.
type Ref struct {
	ID           string    `json:"id"`
	OriginalPath string    `json:"original_path"`
	BackupPath   string    `json:"backup_path"`
	CreatedAt    time.Time `json:"created_at"`
}

// Manager writes snapshots into a dedicated directory.
type Manager struct {
	dir string
}

// NewManager returns a manager writing under dir (created on demand).
func NewManager(dir string) *Manager {
	return &Manager{dir: dir}
}

// Dir returns the backup directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Snapshot copies the current bytes of path into the backup directory
// before any destructive operation. Once Snapshot returns the copy is
// durably on disk; callers must not interleave writes before it does.
func (m *Manager) Snapshot(path string) (Ref, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- target resolved and policy-checked upstream
	if err != nil {
		return Ref{}, fmt.Errorf("failed to read %s for backup: %w", path, err)
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return Ref{}, fmt.Errorf("failed to create backup directory: %w", err)
	}

	now := time.Now()
	name := fmt.Sprintf("%s.%s.bak", filepath.Base(path), now.Format("20060102-150405"))
	dest := filepath.Join(m.dir, name)
	for n := 1; ; n++ {
		if _, err := os.Stat(dest); os.IsNotExist(err) {
			break
		}
		dest = filepath.Join(m.dir, fmt.Sprintf("%s.%s-%d.bak", filepath.Base(path), now.Format("20060102-150405"), n))
	}

	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return Ref{}, fmt.Errorf("failed to write backup %s: %w", dest, err)
	}

	return Ref{
		ID:           uuid.NewString(),
		OriginalPath: path,
		BackupPath:   dest,
		CreatedAt:    now,
	}, nil
}
