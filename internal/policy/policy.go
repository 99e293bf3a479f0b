// Package policy loads and evaluates the authorization document that
// governs every mutation: which targets are editable, with which
// verbs, and which paths are immutable.
//
// Policy absence is not "permit all". A missing, malformed, or
// unknown-version document aborts the whole run.
package policy

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/xeipuuv/gojsonschema"
)

// SchemaVersion is the only policy document version this build understands.
const SchemaVersion = 1

// DefaultFileName is where the policy document lives under the project root.
const DefaultFileName = ".ctx/policy.json"

// ErrInvalid is the sentinel for any policy load failure.
var ErrInvalid = errors.New("policy invalid")

// InvalidError carries context about why a policy document was rejected.
type InvalidError struct {
	Path   string
	Reason string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("policy %s: %s", e.Path, e.Reason)
}

func (e *InvalidError) Unwrap() error {
	return ErrInvalid
}

// Document is the on-disk policy structure.
type Document struct {
	SchemaVersion int                 `json:"schemaVersion"`
	Immutable     []string            `json:"immutable"`
	Editable      map[string][]string `json:"editable"`
	Exceptions    []string            `json:"exceptions,omitempty"`
}

// documentSchema validates shape before any semantic checks run, so a
// malformed document fails with a precise reason instead of a zero value.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["schemaVersion", "immutable", "editable"],
  "additionalProperties": false,
  "properties": {
    "schemaVersion": {"type": "integer", "minimum": 1},
    "immutable": {
      "type": "array",
      "items": {"type": "string", "minLength": 1}
    },
    "editable": {
      "type": "object",
      "additionalProperties": {
        "type": "array",
        "items": {"type": "string", "minLength": 1}
      }
    },
    "exceptions": {
      "type": "array",
      "items": {"type": "string", "pattern": "^!.+"}
    }
  }
}`

// Store answers authorization questions for one run. Immutable after Load.
type Store struct {
	doc Document
}

// Load reads and validates the policy document at path.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied policy path
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &InvalidError{Path: path, Reason: "policy file does not exist"}
		}
		return nil, &InvalidError{Path: path, Reason: err.Error()}
	}
	return Parse(path, data)
}

// Parse validates raw policy bytes. Exposed separately so tests and the
// policy check command can validate without touching disk layout.
func Parse(path string, data []byte) (*Store, error) {
	schemaLoader := gojsonschema.NewStringLoader(documentSchema)
	docLoader := gojsonschema.NewBytesLoader(data)
	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return nil, &InvalidError{Path: path, Reason: fmt.Sprintf("not a JSON document: %v", err)}
	}
	if !result.Valid() {
		reasons := make([]string, 0, len(result.Errors()))
		for _, re := range result.Errors() {
			reasons = append(reasons, re.String())
		}
		return nil, &InvalidError{Path: path, Reason: strings.Join(reasons, "; ")}
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &InvalidError{Path: path, Reason: err.Error()}
	}
	if doc.SchemaVersion != SchemaVersion {
		return nil, &InvalidError{
			Path:   path,
			Reason: fmt.Sprintf("unknown schemaVersion %d (supported: %d)", doc.SchemaVersion, SchemaVersion),
		}
	}
	for _, pat := range append(append([]string{}, doc.Immutable...), trimmedExceptions(doc.Exceptions)...) {
		if !doublestar.ValidatePattern(pat) {
			return nil, &InvalidError{Path: path, Reason: fmt.Sprintf("bad glob pattern %q", pat)}
		}
	}

	return &Store{doc: doc}, nil
}

// IsImmutable reports whether relPath (slash-separated, relative to the
// project root) matches an immutable pattern. An exception pattern
// overrides the verdict for the single path it names.
func (s *Store) IsImmutable(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	matched := false
	for _, pat := range s.doc.Immutable {
		if ok, err := doublestar.Match(pat, relPath); err == nil && ok {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	for _, exc := range trimmedExceptions(s.doc.Exceptions) {
		if ok, err := doublestar.Match(exc, relPath); err == nil && ok {
			return false
		}
	}
	return true
}

// VerbsFor returns the verbs allowed for a logical target. Targets not
// listed get the empty set (default-deny).
func (s *Store) VerbsFor(target string) []string {
	return s.doc.Editable[target]
}

// Allows reports whether verb may run against target.
func (s *Store) Allows(target, verb string) bool {
	for _, v := range s.doc.Editable[target] {
		if v == verb {
			return true
		}
	}
	return false
}

func trimmedExceptions(exceptions []string) []string {
	out := make([]string, 0, len(exceptions))
	for _, e := range exceptions {
		out = append(out, strings.TrimPrefix(e, "!"))
	}
	return out
}

// Default returns a starter policy for ctxtidy policy init.
func Default() Document {
	return Document{
		SchemaVersion: SchemaVersion,
		Immutable:     []string{".ctx/agents/**", ".ctx/policy.json"},
		Editable: map[string][]string{
			"ignore":   {"dedupe", "append"},
			"settings": {"prune-always-include", "dedupe-auto-include", "append-deny"},
		},
	}
}
