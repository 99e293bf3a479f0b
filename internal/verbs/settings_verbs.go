package verbs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/loamhq/ctxtidy/internal/gate"
	"github.com/loamhq/ctxtidy/internal/resolver"
	"github.com/loamhq/ctxtidy/internal/settings"
)

// Settings verbs are critical across the board: they rewrite the
// surface that decides what the assisting system may read or do.

func init() {
	MustRegister(&pruneAlwaysIncludeVerb{})
	MustRegister(&dedupeAutoIncludeVerb{})
	MustRegister(&appendDenyVerb{})
}

// pruneAlwaysIncludeVerb drops context.alwaysInclude entries whose
// files no longer exist under the project root.
type pruneAlwaysIncludeVerb struct{}

func (v *pruneAlwaysIncludeVerb) Name() string       { return "prune-always-include" }
func (v *pruneAlwaysIncludeVerb) TargetName() string { return resolver.TargetSettings }
func (v *pruneAlwaysIncludeVerb) Risk() gate.Risk    { return gate.RiskCritical }
func (v *pruneAlwaysIncludeVerb) Describe() string {
	return "Drop alwaysInclude entries whose files no longer exist"
}

func (v *pruneAlwaysIncludeVerb) Preview(current []byte, args Args) (*PendingChange, error) {
	doc, kept, missing, err := v.split(current, args)
	if err != nil {
		return nil, err
	}
	newContent, err := doc.WithAlwaysInclude(kept).Render()
	if err != nil {
		return nil, err
	}
	return &PendingChange{
		Verb:       v.Name(),
		TargetName: v.TargetName(),
		Risk:       v.Risk(),
		NewContent: newContent,
		Summary:    fmt.Sprintf("prune %d missing alwaysInclude entry(ies)", len(missing)),
		Details: map[string]interface{}{
			"missing": missing,
			"count":   len(missing),
		},
	}, nil
}

func (v *pruneAlwaysIncludeVerb) Apply(current []byte, args Args) ([]byte, error) {
	doc, kept, _, err := v.split(current, args)
	if err != nil {
		return nil, err
	}
	return doc.WithAlwaysInclude(kept).Render()
}

func (v *pruneAlwaysIncludeVerb) split(current []byte, args Args) (*settings.Document, []string, []string, error) {
	doc, err := settings.Parse(current)
	if err != nil {
		return nil, nil, nil, &ValidationError{Target: v.TargetName(), Err: err}
	}
	kept := []string{}
	missing := []string{}
	for _, entry := range doc.AlwaysInclude() {
		path := filepath.Join(args.Root, filepath.FromSlash(entry))
		if _, err := os.Stat(path); err == nil {
			kept = append(kept, entry)
		} else {
			missing = append(missing, entry)
		}
	}
	return doc, kept, missing, nil
}

// dedupeAutoIncludeVerb deduplicates context.autoIncludePatterns
// preserving first-occurrence order.
type dedupeAutoIncludeVerb struct{}

func (v *dedupeAutoIncludeVerb) Name() string       { return "dedupe-auto-include" }
func (v *dedupeAutoIncludeVerb) TargetName() string { return resolver.TargetSettings }
func (v *dedupeAutoIncludeVerb) Risk() gate.Risk    { return gate.RiskCritical }
func (v *dedupeAutoIncludeVerb) Describe() string {
	return "Deduplicate autoIncludePatterns preserving order"
}

func (v *dedupeAutoIncludeVerb) Preview(current []byte, args Args) (*PendingChange, error) {
	newContent, removed, err := v.transform(current)
	if err != nil {
		return nil, err
	}
	return &PendingChange{
		Verb:       v.Name(),
		TargetName: v.TargetName(),
		Risk:       v.Risk(),
		NewContent: newContent,
		Summary:    fmt.Sprintf("remove %d duplicate autoIncludePatterns entry(ies)", removed),
		Details:    map[string]interface{}{"removed": removed},
	}, nil
}

func (v *dedupeAutoIncludeVerb) Apply(current []byte, _ Args) ([]byte, error) {
	newContent, _, err := v.transform(current)
	return newContent, err
}

func (v *dedupeAutoIncludeVerb) transform(current []byte) ([]byte, int, error) {
	doc, err := settings.Parse(current)
	if err != nil {
		return nil, 0, &ValidationError{Target: v.TargetName(), Err: err}
	}
	seen := make(map[string]bool)
	deduped := []string{}
	for _, p := range doc.AutoIncludePatterns() {
		if seen[p] {
			continue
		}
		seen[p] = true
		deduped = append(deduped, p)
	}
	removed := len(doc.AutoIncludePatterns()) - len(deduped)
	newContent, err := doc.WithAutoIncludePatterns(deduped).Render()
	return newContent, removed, err
}

// appendDenyVerb appends patterns to permissions.deny, skipping ones
// already present.
type appendDenyVerb struct{}

func (v *appendDenyVerb) Name() string       { return "append-deny" }
func (v *appendDenyVerb) TargetName() string { return resolver.TargetSettings }
func (v *appendDenyVerb) Risk() gate.Risk    { return gate.RiskCritical }
func (v *appendDenyVerb) Describe() string {
	return "Append patterns to permissions.deny"
}

func (v *appendDenyVerb) Preview(current []byte, args Args) (*PendingChange, error) {
	newContent, added, err := v.transform(current, args)
	if err != nil {
		return nil, err
	}
	return &PendingChange{
		Verb:       v.Name(),
		TargetName: v.TargetName(),
		Risk:       v.Risk(),
		NewContent: newContent,
		Summary:    fmt.Sprintf("append %d deny pattern(s)", len(added)),
		Details:    map[string]interface{}{"added": added},
	}, nil
}

func (v *appendDenyVerb) Apply(current []byte, args Args) ([]byte, error) {
	newContent, _, err := v.transform(current, args)
	return newContent, err
}

func (v *appendDenyVerb) transform(current []byte, args Args) ([]byte, []string, error) {
	doc, err := settings.Parse(current)
	if err != nil {
		return nil, nil, &ValidationError{Target: v.TargetName(), Err: err}
	}
	deny := doc.Deny()
	existing := make(map[string]bool, len(deny))
	for _, p := range deny {
		existing[p] = true
	}
	added := []string{}
	for _, p := range args.Patterns {
		p = strings.TrimSpace(p)
		if p == "" || existing[p] {
			continue
		}
		existing[p] = true
		deny = append(deny, p)
		added = append(added, p)
	}
	newContent, err := doc.WithDeny(deny).Render()
	return newContent, added, err
}
