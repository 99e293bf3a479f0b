// Package suggest consumes the external suggestion feed: candidate
// paths/patterns with token costs produced by the analysis tooling.
// The feed is untrusted input. Candidates only ever become verb
// arguments, validated here and again by the full dispatch pipeline;
// nothing in a feed can bypass policy.
package suggest

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/loamhq/ctxtidy/internal/policy"
	"github.com/loamhq/ctxtidy/pkg/safeio"
)

// Candidate is one suggested ignore entry with its measured cost.
type Candidate struct {
	Path    string `json:"path"`
	Pattern string `json:"pattern,omitempty"`
	Tokens  int    `json:"tokens"`
}

// Implied returns the ignore pattern this candidate proposes: the
// explicit pattern when given, otherwise the path itself.
func (c Candidate) Implied() string {
	if c.Pattern != "" {
		return c.Pattern
	}
	return c.Path
}

// Feed is the suggestion document.
type Feed struct {
	Candidates []Candidate `json:"candidates"`
}

// Load reads a suggestion feed from disk.
func Load(path string) (*Feed, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied feed path
	if err != nil {
		return nil, fmt.Errorf("failed to read suggestion feed: %w", err)
	}
	var feed Feed
	if err := json.Unmarshal(data, &feed); err != nil {
		return nil, fmt.Errorf("suggestion feed is not valid JSON: %w", err)
	}
	return &feed, nil
}

// Rejection explains why a candidate was dropped.
type Rejection struct {
	Candidate Candidate
	Reason    string
}

// Filter keeps candidates worth acting on: cost at or above the token
// threshold, a sane pattern, and a path not protected by policy.
func Filter(feed *Feed, threshold int, pol *policy.Store) (selected []Candidate, rejected []Rejection) {
	for _, c := range feed.Candidates {
		implied := strings.TrimSpace(c.Implied())
		if implied == "" {
			rejected = append(rejected, Rejection{c, "empty pattern"})
			continue
		}
		if c.Tokens < threshold {
			rejected = append(rejected, Rejection{c, fmt.Sprintf("below token threshold (%d < %d)", c.Tokens, threshold)})
			continue
		}
		if c.Path != "" {
			if _, err := safeio.CleanUserPath(c.Path); err != nil {
				rejected = append(rejected, Rejection{c, "path rejected: " + err.Error()})
				continue
			}
			if pol != nil && pol.IsImmutable(c.Path) {
				rejected = append(rejected, Rejection{c, "path is immutable by policy"})
				continue
			}
		}
		selected = append(selected, c)
	}
	return selected, rejected
}

// Patterns extracts the implied patterns of the given candidates.
func Patterns(candidates []Candidate) []string {
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.Implied())
	}
	return out
}
