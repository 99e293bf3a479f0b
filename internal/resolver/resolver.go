// Package resolver maps logical configuration names to absolute paths
// under a discovered project root.
package resolver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/loamhq/ctxtidy/pkg/safeio"
)

// Logical target names. These are the only names dispatch accepts;
// everything else is an unknown target.
const (
	TargetIgnore   = "ignore"
	TargetSettings = "settings"
)

// Relative locations of the configuration surfaces under the root.
const (
	IgnoreFileName   = ".ctxignore"
	SettingsFileName = ".ctx/settings.json"
)

var (
	// ErrUnknownTarget means the logical name is not one this tool manages.
	ErrUnknownTarget = errors.New("unknown target")
	// ErrNoRoot means no project marker was found walking upward.
	ErrNoRoot = errors.New("no project root found")
	// ErrOutsideRoot means resolution would escape the project root.
	ErrOutsideRoot = errors.New("target resolves outside project root")
)

// Target is a logical configuration name resolved to a concrete file.
// Resolved fresh per verb invocation; never cached across runs.
type Target struct {
	LogicalName  string
	AbsolutePath string
	// RelPath is slash-separated and relative to the root; policy
	// immutability is evaluated against it.
	RelPath string
	Exists  bool
}

// rootMarkers identify a project root, checked in order.
var rootMarkers = []string{".ctx", ".ctxignore", ".git"}

// DiscoverRoot walks upward from start looking for a project marker.
func DiscoverRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		for _, marker := range rootMarkers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNoRoot
		}
		dir = parent
	}
}

// Resolve maps a logical name to a Target under root. Resolution that
// would land outside the root fails closed.
func Resolve(logical, root string) (Target, error) {
	var rel string
	switch logical {
	case TargetIgnore:
		rel = IgnoreFileName
	case TargetSettings:
		rel = SettingsFileName
	default:
		return Target{}, fmt.Errorf("%w: %q", ErrUnknownTarget, logical)
	}

	abs := filepath.Join(root, filepath.FromSlash(rel))
	contained, err := safeio.Contains(root, abs)
	if err != nil {
		return Target{}, err
	}
	if !contained {
		return Target{}, fmt.Errorf("%w: %s", ErrOutsideRoot, abs)
	}

	exists := false
	if st, err := os.Stat(abs); err == nil && !st.IsDir() {
		exists = true
	}

	return Target{
		LogicalName:  logical,
		AbsolutePath: abs,
		RelPath:      rel,
		Exists:       exists,
	}, nil
}

// Names returns the logical targets this tool manages.
func Names() []string {
	return []string{TargetIgnore, TargetSettings}
}
