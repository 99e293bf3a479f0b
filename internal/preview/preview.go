// Package preview renders unified diffs between current file content
// and a candidate new state, without writing anything.
package preview

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
)

// Unified renders a unified diff between old and new bytes. An empty
// string means the candidate is identical to the current content.
func Unified(path string, oldContent, newContent []byte) (string, error) {
	if string(oldContent) == string(newContent) {
		return "", nil
	}
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(oldContent)),
		B:        difflib.SplitLines(string(newContent)),
		FromFile: path,
		ToFile:   path + " (proposed)",
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("failed to render diff for %s: %w", path, err)
	}
	return text, nil
}
