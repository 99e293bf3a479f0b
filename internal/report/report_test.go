package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loamhq/ctxtidy/pkg/exitcode"
)

func TestFinalizeExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Report)
		expected int
	}{
		{
			name:     "clean run",
			mutate:   func(r *Report) {},
			expected: exitcode.Success,
		},
		{
			name: "findings only",
			mutate: func(r *Report) {
				r.AddFinding(Finding{Kind: KindOverBudget, Message: "3 patterns over threshold"})
			},
			expected: exitcode.FindingsPresent,
		},
		{
			name: "policy error beats findings",
			mutate: func(r *Report) {
				r.AddFinding(Finding{Kind: KindOverBudget, Message: "x"})
				r.MarkPolicyError()
			},
			expected: exitcode.PolicyError,
		},
		{
			name: "runtime error beats everything",
			mutate: func(r *Report) {
				r.AddFinding(Finding{Kind: KindOverBudget, Message: "x"})
				r.MarkPolicyError()
				r.MarkRuntimeError()
			},
			expected: exitcode.RuntimeError,
		},
		{
			name: "failed mutation is a runtime error",
			mutate: func(r *Report) {
				r.AddMutation(MutationResult{Target: "ignore", Verb: "dedupe", Outcome: OutcomeFailed, Error: "disk full"})
				r.AddFinding(Finding{Kind: KindOverBudget, Message: "x"})
			},
			expected: exitcode.RuntimeError,
		},
		{
			name: "declined mutation is not an error",
			mutate: func(r *Report) {
				r.AddMutation(MutationResult{Target: "settings", Verb: "append-deny", Outcome: OutcomeDeclined})
			},
			expected: exitcode.Success,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New("/proj", false)
			tt.mutate(r)
			assert.Equal(t, tt.expected, r.Finalize())
			assert.Equal(t, tt.expected, r.ExitCode)
		})
	}
}

func TestRenderJSONRoundTrip(t *testing.T) {
	r := New("/proj", true)
	r.AddFinding(Finding{Kind: KindTargetMissing, Target: "settings", Message: "no settings file"})
	r.AddMutation(MutationResult{Target: "ignore", Verb: "dedupe", Outcome: OutcomeDryRun, Diff: "-dup\n"})
	r.Finalize()

	data, err := r.Render("json")
	require.NoError(t, err)

	var decoded Report
	require.NoError(t, json.Unmarshal(data, &decoded))

	if diff := cmp.Diff(*r, decoded, cmpopts.IgnoreUnexported(Report{}), cmpopts.EquateApproxTime(time.Second)); diff != "" {
		t.Errorf("report did not survive JSON round trip (-want +got):\n%s", diff)
	}
}

func TestRenderUnsupportedFormat(t *testing.T) {
	_, err := New("/proj", false).Render("toml")
	assert.Error(t, err)
}

func TestWriteFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.yaml")
	r := New("/proj", false)
	r.AddFinding(Finding{Kind: KindCandidate, Message: "dist/ candidate"})
	r.Finalize()

	require.NoError(t, r.WriteFile(path, "yaml"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "kind: candidate")
	assert.Contains(t, string(data), "exit_code: 3")
}
