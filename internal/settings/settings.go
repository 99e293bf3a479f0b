// Package settings parses and transforms the JSON settings target.
// Unknown keys survive every transform untouched; known keys are the
// context and permissions lists. All transforms are pure.
package settings

import (
	"encoding/json"
	"fmt"
)

// Known top-level sections and keys.
const (
	sectionContext     = "context"
	sectionPermissions = "permissions"

	keyAlwaysInclude       = "alwaysInclude"
	keyAutoIncludePatterns = "autoIncludePatterns"
	keyDeny                = "deny"
)

// Document is a parsed settings file.
type Document struct {
	root map[string]interface{}
}

// Parse decodes raw settings JSON.
func Parse(data []byte) (*Document, error) {
	var root map[string]interface{}
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("settings is not a JSON object: %w", err)
	}
	return &Document{root: root}, nil
}

// Render serializes with two-space indentation and a trailing newline.
func (d *Document) Render() ([]byte, error) {
	data, err := json.MarshalIndent(d.root, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal settings: %w", err)
	}
	return append(data, '\n'), nil
}

// AlwaysInclude returns context.alwaysInclude.
func (d *Document) AlwaysInclude() []string {
	return d.stringList(sectionContext, keyAlwaysInclude)
}

// AutoIncludePatterns returns context.autoIncludePatterns.
func (d *Document) AutoIncludePatterns() []string {
	return d.stringList(sectionContext, keyAutoIncludePatterns)
}

// Deny returns permissions.deny.
func (d *Document) Deny() []string {
	return d.stringList(sectionPermissions, keyDeny)
}

// WithAlwaysInclude returns a copy with context.alwaysInclude replaced.
func (d *Document) WithAlwaysInclude(list []string) *Document {
	return d.withList(sectionContext, keyAlwaysInclude, list)
}

// WithAutoIncludePatterns returns a copy with context.autoIncludePatterns replaced.
func (d *Document) WithAutoIncludePatterns(list []string) *Document {
	return d.withList(sectionContext, keyAutoIncludePatterns, list)
}

// WithDeny returns a copy with permissions.deny replaced.
func (d *Document) WithDeny(list []string) *Document {
	return d.withList(sectionPermissions, keyDeny, list)
}

func (d *Document) stringList(section, key string) []string {
	sec, ok := d.root[section].(map[string]interface{})
	if !ok {
		return nil
	}
	raw, ok := sec[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (d *Document) withList(section, key string, list []string) *Document {
	root := deepCopy(d.root)
	sec, ok := root[section].(map[string]interface{})
	if !ok {
		sec = map[string]interface{}{}
		root[section] = sec
	}
	vals := make([]interface{}, len(list))
	for i, s := range list {
		vals[i] = s
	}
	sec[key] = vals
	return &Document{root: root}
}

func deepCopy(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case map[string]interface{}:
			out[k] = deepCopy(t)
		case []interface{}:
			cp := make([]interface{}, len(t))
			copy(cp, t)
			out[k] = cp
		default:
			out[k] = v
		}
	}
	return out
}
