package verbs

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loamhq/ctxtidy/internal/backup"
	"github.com/loamhq/ctxtidy/internal/gate"
	"github.com/loamhq/ctxtidy/internal/policy"
	"github.com/loamhq/ctxtidy/internal/report"
	"github.com/loamhq/ctxtidy/internal/settings"
	"github.com/loamhq/ctxtidy/pkg/config"
)

const permissivePolicy = `{
  "schemaVersion": 1,
  "immutable": [".ctx/agents/**"],
  "editable": {
    "ignore": ["dedupe", "append", "spy"],
    "settings": ["prune-always-include", "dedupe-auto-include", "append-deny"]
  }
}`

type testEnv struct {
	root string
	rep  *report.Report
	out  *bytes.Buffer
}

func newTestEnv(t *testing.T, policyJSON string, cfg config.RunConfig, reg *Registry) (*Dispatcher, *testEnv) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".ctx"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".ctxignore"), []byte("node_modules/\nnode_modules/\ndist/\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".ctx", "settings.json"),
		[]byte(`{"context": {"alwaysInclude": ["a.txt", "missing.txt"]}, "permissions": {"deny": []}}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0o644))

	pol, err := policy.Parse("test.json", []byte(policyJSON))
	require.NoError(t, err)

	cfg.Root = root
	if reg == nil {
		reg = Default()
	}
	rep := report.New(root, cfg.DryRun)
	out := &bytes.Buffer{}
	g := gate.New(cfg, nil)
	d := NewDispatcher(cfg, pol, reg, g, backup.NewManager(filepath.Join(root, ".ctx", "backups")), rep, nil, out)
	return d, &testEnv{root: root, rep: rep, out: out}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

type spyVerb struct {
	previewCalls int
	applyCalls   int
}

func (s *spyVerb) Name() string       { return "spy" }
func (s *spyVerb) TargetName() string { return "ignore" }
func (s *spyVerb) Risk() gate.Risk    { return gate.RiskNormal }
func (s *spyVerb) Describe() string   { return "records invocations" }
func (s *spyVerb) Preview(current []byte, _ Args) (*PendingChange, error) {
	s.previewCalls++
	return &PendingChange{Verb: "spy", TargetName: "ignore", NewContent: append(current, 'x')}, nil
}
func (s *spyVerb) Apply(current []byte, _ Args) ([]byte, error) {
	s.applyCalls++
	return append(current, 'x'), nil
}

func TestImmutablePathNeverReachesVerbFunctions(t *testing.T) {
	lockdown := `{
	  "schemaVersion": 1,
	  "immutable": [".ctxignore"],
	  "editable": {"ignore": ["spy"]}
	}`
	spy := &spyVerb{}
	reg := NewRegistry()
	require.NoError(t, reg.Register(spy))

	d, env := newTestEnv(t, lockdown, config.RunConfig{AssumeYes: true}, reg)
	result := d.Dispatch("ignore", "spy", Args{})

	assert.Equal(t, report.OutcomeSkipped, result.Outcome)
	assert.Zero(t, spy.previewCalls, "preview must not run for immutable paths")
	assert.Zero(t, spy.applyCalls, "apply must not run for immutable paths")

	require.Len(t, env.rep.Findings, 1)
	assert.Equal(t, report.KindPolicyViolation, env.rep.Findings[0].Kind)

	_, err := os.Stat(filepath.Join(env.root, ".ctx", "backups"))
	assert.True(t, os.IsNotExist(err), "no backup may be created for a refused mutation")
}

func TestVerbNotAllowedByPolicy(t *testing.T) {
	denyAll := `{"schemaVersion": 1, "immutable": [], "editable": {}}`
	d, env := newTestEnv(t, denyAll, config.RunConfig{AssumeYes: true}, nil)

	result := d.Dispatch("ignore", "dedupe", Args{})

	assert.Equal(t, report.OutcomeSkipped, result.Outcome)
	assert.Contains(t, result.Error, "policy violation")
	require.Len(t, env.rep.Findings, 1)
	assert.Equal(t, report.KindPolicyViolation, env.rep.Findings[0].Kind)
	// Default-deny: the file is untouched.
	assert.Equal(t, "node_modules/\nnode_modules/\ndist/\n", readFile(t, filepath.Join(env.root, ".ctxignore")))
}

func TestDeclinedLeavesFileUntouchedButShowsDiff(t *testing.T) {
	// Non-interactive without --yes declines at the first gate.
	d, env := newTestEnv(t, permissivePolicy, config.RunConfig{NonInteractive: true}, nil)

	before := readFile(t, filepath.Join(env.root, ".ctxignore"))
	result := d.Dispatch("ignore", "dedupe", Args{})

	assert.Equal(t, report.OutcomeDeclined, result.Outcome)
	assert.Equal(t, before, readFile(t, filepath.Join(env.root, ".ctxignore")))
	assert.Contains(t, result.Diff, "-node_modules/", "operator must see what was not done")
	assert.Contains(t, env.out.String(), "-node_modules/")
}

func TestApplyWritesBackupAndNewContent(t *testing.T) {
	d, env := newTestEnv(t, permissivePolicy, config.RunConfig{AssumeYes: true}, nil)
	original := readFile(t, filepath.Join(env.root, ".ctxignore"))

	result := d.Dispatch("ignore", "dedupe", Args{})

	require.Equal(t, report.OutcomeApplied, result.Outcome, "error: %s", result.Error)
	assert.Equal(t, "node_modules/\ndist/\n", readFile(t, filepath.Join(env.root, ".ctxignore")))

	require.NotEmpty(t, result.BackupPath)
	assert.Equal(t, original, readFile(t, result.BackupPath), "backup must hold pre-mutation bytes")

	// Second application: nothing left to change.
	second := d.Dispatch("ignore", "dedupe", Args{})
	assert.Equal(t, report.OutcomeNoOp, second.Outcome)
	hasNoChange := false
	for _, f := range env.rep.Findings {
		if f.Kind == report.KindNoChange {
			hasNoChange = true
		}
	}
	assert.True(t, hasNoChange)
}

func TestDryRunStopsBeforeWriter(t *testing.T) {
	d, env := newTestEnv(t, permissivePolicy, config.RunConfig{AssumeYes: true, DryRun: true}, nil)
	before := readFile(t, filepath.Join(env.root, ".ctxignore"))

	result := d.Dispatch("ignore", "dedupe", Args{})

	assert.Equal(t, report.OutcomeDryRun, result.Outcome)
	assert.NotEmpty(t, result.Diff, "dry-run still reports what would have happened")
	assert.Equal(t, before, readFile(t, filepath.Join(env.root, ".ctxignore")))

	_, err := os.Stat(filepath.Join(env.root, ".ctx", "backups"))
	assert.True(t, os.IsNotExist(err), "dry-run must not create backups")
}

func TestCriticalVerbFailsClosedUnattended(t *testing.T) {
	// --yes alone is not enough for the settings surface.
	cfg := config.RunConfig{NonInteractive: true, AssumeYes: true}
	d, env := newTestEnv(t, permissivePolicy, cfg, nil)
	before := readFile(t, filepath.Join(env.root, ".ctx", "settings.json"))

	result := d.Dispatch("settings", "prune-always-include", Args{Root: env.root})

	assert.Equal(t, report.OutcomeDeclined, result.Outcome)
	assert.Equal(t, before, readFile(t, filepath.Join(env.root, ".ctx", "settings.json")))
}

func TestCriticalVerbWithExplicitOptIn(t *testing.T) {
	cfg := config.RunConfig{NonInteractive: true, AssumeYes: true, ApproveCritical: true}
	d, env := newTestEnv(t, permissivePolicy, cfg, nil)

	result := d.Dispatch("settings", "prune-always-include", Args{Root: env.root})

	require.Equal(t, report.OutcomeApplied, result.Outcome, "error: %s", result.Error)

	doc, err := settings.Parse([]byte(readFile(t, filepath.Join(env.root, ".ctx", "settings.json"))))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, doc.AlwaysInclude())

	// Backup holds the original two-element array.
	backupDoc, err := settings.Parse([]byte(readFile(t, result.BackupPath)))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "missing.txt"}, backupDoc.AlwaysInclude())
}

func TestMissingTargetIsBenignNoOp(t *testing.T) {
	d, env := newTestEnv(t, permissivePolicy, config.RunConfig{AssumeYes: true}, nil)
	require.NoError(t, os.Remove(filepath.Join(env.root, ".ctx", "settings.json")))

	result := d.Dispatch("settings", "dedupe-auto-include", Args{})

	assert.Equal(t, report.OutcomeNoOp, result.Outcome)
	assert.Empty(t, result.Error)
	require.Len(t, env.rep.Findings, 1)
	assert.Equal(t, report.KindTargetMissing, env.rep.Findings[0].Kind)
}

func TestUnknownVerbFails(t *testing.T) {
	d, _ := newTestEnv(t, permissivePolicy, config.RunConfig{AssumeYes: true}, nil)
	result := d.Dispatch("ignore", "vanish", Args{})
	assert.Equal(t, report.OutcomeFailed, result.Outcome)
	assert.Contains(t, result.Error, "no verb")
}

func TestValidationErrorLeavesOriginalUntouched(t *testing.T) {
	d, env := newTestEnv(t, permissivePolicy, config.RunConfig{AssumeYes: true, ApproveCritical: true}, nil)
	require.NoError(t, os.WriteFile(filepath.Join(env.root, ".ctx", "settings.json"), []byte("not json"), 0o644))

	result := d.Dispatch("settings", "dedupe-auto-include", Args{})

	assert.Equal(t, report.OutcomeFailed, result.Outcome)
	assert.Contains(t, result.Error, "untouched")
	assert.Equal(t, "not json", readFile(t, filepath.Join(env.root, ".ctx", "settings.json")))
}

func TestPreviewIsRepeatable(t *testing.T) {
	d, env := newTestEnv(t, permissivePolicy, config.RunConfig{NonInteractive: true}, nil)
	path := filepath.Join(env.root, ".ctxignore")
	before := readFile(t, path)

	for i := 0; i < 3; i++ {
		d.Dispatch("ignore", "dedupe", Args{})
		assert.Equal(t, before, readFile(t, path), "preview pass %d altered the file", i)
	}
}

func TestAppendFromSuggestionArgs(t *testing.T) {
	d, env := newTestEnv(t, permissivePolicy, config.RunConfig{AssumeYes: true}, nil)

	result := d.Dispatch("ignore", "append", Args{Patterns: []string{"coverage/", "dist/"}})

	require.Equal(t, report.OutcomeApplied, result.Outcome, "error: %s", result.Error)
	content := readFile(t, filepath.Join(env.root, ".ctxignore"))
	assert.True(t, strings.HasSuffix(content, "coverage/\n"))
	assert.Equal(t, 1, strings.Count(content, "coverage/"))
	// dist/ was already present and must not repeat.
	assert.Equal(t, 1, strings.Count(content, "dist/"))
}
