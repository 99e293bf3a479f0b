// Package verbs defines the mutation verbs and the dispatch pipeline
// that wraps every one of them in the same safety protocol: policy
// check, preview, confirmation, backup, atomic write. Verbs differ
// only in the content transform they compute.
package verbs

import (
	"github.com/loamhq/ctxtidy/internal/gate"
)

// Args carries candidate arguments into a verb, typically patterns
// sourced from the suggestion feed. Untrusted input: the pipeline
// validates against policy regardless of where arguments came from.
type Args struct {
	Patterns []string
	// Root is the resolved project root; verbs that check file
	// existence resolve entries against it.
	Root string
}

// PendingChange is the ephemeral product of a preview: the candidate
// new content plus diagnostic data. Never persisted; consumed by the
// confirmation gate and the writer within a single invocation.
type PendingChange struct {
	Verb       string
	TargetName string
	Risk       gate.Risk
	NewContent []byte
	// Summary is a one-line human description of the intended change.
	Summary string
	// Details carries verb-specific diagnostics, e.g. which entries
	// would be pruned.
	Details map[string]interface{}
}

// Verb is the two-capability interface every mutation implements.
// Both methods are pure content transforms: Preview must never touch
// disk, and Apply computes bytes for the writer without doing I/O
// itself.
type Verb interface {
	// Name is the verb identity; unique per target.
	Name() string
	// TargetName is the logical target this verb operates on.
	TargetName() string
	// Risk classifies the confirmation protocol the verb needs.
	Risk() gate.Risk
	// Describe is a short human summary for action listings.
	Describe() string
	// Preview computes the candidate change from current content.
	Preview(current []byte, args Args) (*PendingChange, error)
	// Apply computes the new content to write. For a well-behaved verb
	// this equals the previewed content for the same inputs.
	Apply(current []byte, args Args) ([]byte, error)
}

// ActionID is the stable "target:verb" identifier used for
// non-interactive selection.
func ActionID(v Verb) string {
	return v.TargetName() + ":" + v.Name()
}
