package verbs

import (
	"fmt"
	"strings"

	"github.com/loamhq/ctxtidy/internal/gate"
	"github.com/loamhq/ctxtidy/internal/ignorefile"
	"github.com/loamhq/ctxtidy/internal/resolver"
)

func init() {
	MustRegister(&dedupeVerb{})
	MustRegister(&appendVerb{})
}

// dedupeVerb removes duplicate pattern lines from the ignore file.
// Duplicates carry no meaning; they are a defect to fix.
type dedupeVerb struct{}

func (v *dedupeVerb) Name() string       { return "dedupe" }
func (v *dedupeVerb) TargetName() string { return resolver.TargetIgnore }
func (v *dedupeVerb) Risk() gate.Risk    { return gate.RiskNormal }
func (v *dedupeVerb) Describe() string {
	return "Remove duplicate ignore patterns, keeping the first occurrence"
}

func (v *dedupeVerb) Preview(current []byte, _ Args) (*PendingChange, error) {
	f := ignorefile.Parse(current)
	deduped := f.Deduplicate()
	removed := len(f.Patterns()) - len(deduped.Patterns())
	return &PendingChange{
		Verb:       v.Name(),
		TargetName: v.TargetName(),
		Risk:       v.Risk(),
		NewContent: deduped.Render(),
		Summary:    fmt.Sprintf("remove %d duplicate pattern(s)", removed),
		Details:    map[string]interface{}{"removed": removed},
	}, nil
}

func (v *dedupeVerb) Apply(current []byte, _ Args) ([]byte, error) {
	return ignorefile.Parse(current).Deduplicate().Render(), nil
}

// appendVerb appends candidate patterns that are neither present
// verbatim nor already covered by an existing pattern.
type appendVerb struct{}

func (v *appendVerb) Name() string       { return "append" }
func (v *appendVerb) TargetName() string { return resolver.TargetIgnore }
func (v *appendVerb) Risk() gate.Risk    { return gate.RiskNormal }
func (v *appendVerb) Describe() string {
	return "Append candidate patterns not already present or covered"
}

func (v *appendVerb) Preview(current []byte, args Args) (*PendingChange, error) {
	f := ignorefile.Parse(current)
	added, skipped := selectNewPatterns(f, args.Patterns)
	return &PendingChange{
		Verb:       v.Name(),
		TargetName: v.TargetName(),
		Risk:       v.Risk(),
		NewContent: f.Append(added).Render(),
		Summary:    fmt.Sprintf("append %d pattern(s), skip %d already covered", len(added), len(skipped)),
		Details: map[string]interface{}{
			"added":   added,
			"skipped": skipped,
		},
	}, nil
}

func (v *appendVerb) Apply(current []byte, args Args) ([]byte, error) {
	f := ignorefile.Parse(current)
	added, _ := selectNewPatterns(f, args.Patterns)
	return f.Append(added).Render(), nil
}

// selectNewPatterns partitions candidates into genuinely new patterns
// and ones the file already handles. Wildcard-free candidates get a
// gitignore coverage check, so "build/out/" is skipped when "build/**"
// is already present.
func selectNewPatterns(f *ignorefile.File, candidates []string) (added, skipped []string) {
	existing := make(map[string]bool)
	for _, p := range f.Patterns() {
		existing[p] = true
	}
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if existing[c] {
			skipped = append(skipped, c)
			continue
		}
		if !strings.ContainsAny(c, "*?[") {
			isDir := strings.HasSuffix(c, "/")
			if f.Covers(strings.TrimSuffix(c, "/"), isDir) {
				skipped = append(skipped, c)
				continue
			}
		}
		existing[c] = true
		added = append(added, c)
	}
	return added, skipped
}
