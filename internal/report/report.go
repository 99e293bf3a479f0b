// Package report aggregates findings and mutation results for one run
// and serializes them for CI consumption.
package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/loamhq/ctxtidy/pkg/buildinfo"
	"github.com/loamhq/ctxtidy/pkg/exitcode"
	"github.com/loamhq/ctxtidy/pkg/safeio"
	"gopkg.in/yaml.v3"
)

// Finding is a non-mutating observation surfaced for operator or CI attention.
type Finding struct {
	Kind    string `json:"kind" yaml:"kind"`
	Target  string `json:"target,omitempty" yaml:"target,omitempty"`
	Verb    string `json:"verb,omitempty" yaml:"verb,omitempty"`
	Message string `json:"message" yaml:"message"`
}

// Finding kinds.
const (
	KindPolicyViolation = "policy-violation"
	KindTargetMissing   = "target-missing"
	KindOverBudget      = "over-budget"
	KindCandidate       = "candidate"
	KindNoChange        = "no-change"
)

// Outcome classifies how a verb invocation ended.
type Outcome string

const (
	OutcomeApplied  Outcome = "applied"
	OutcomeDryRun   Outcome = "dry-run"
	OutcomeDeclined Outcome = "declined"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeNoOp     Outcome = "no-op"
	OutcomeFailed   Outcome = "failed"
)

// MutationResult records one verb invocation.
type MutationResult struct {
	Target     string  `json:"target" yaml:"target"`
	Verb       string  `json:"verb" yaml:"verb"`
	Outcome    Outcome `json:"outcome" yaml:"outcome"`
	Diff       string  `json:"diff,omitempty" yaml:"diff,omitempty"`
	BackupPath string  `json:"backup_path,omitempty" yaml:"backup_path,omitempty"`
	Error      string  `json:"error,omitempty" yaml:"error,omitempty"`
}

// Metadata describes the run that produced a report.
type Metadata struct {
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	Tool        string    `json:"tool" yaml:"tool"`
	Version     string    `json:"version" yaml:"version"`
	Root        string    `json:"root" yaml:"root"`
	DryRun      bool      `json:"dry_run" yaml:"dry_run"`
}

// Report is created at run start, mutated throughout, serialized once.
type Report struct {
	Metadata  Metadata         `json:"metadata" yaml:"metadata"`
	Findings  []Finding        `json:"findings" yaml:"findings"`
	Mutations []MutationResult `json:"mutations" yaml:"mutations"`
	ExitCode  int              `json:"exit_code" yaml:"exit_code"`

	runtimeErr bool
	policyErr  bool
}

// New returns an empty report for a run rooted at root.
func New(root string, dryRun bool) *Report {
	return &Report{
		Metadata: Metadata{
			GeneratedAt: time.Now(),
			Tool:        "ctxtidy",
			Version:     buildinfo.Version(),
			Root:        root,
			DryRun:      dryRun,
		},
		Findings:  []Finding{},
		Mutations: []MutationResult{},
	}
}

// AddFinding appends a finding.
func (r *Report) AddFinding(f Finding) {
	r.Findings = append(r.Findings, f)
}

// AddMutation appends a mutation result. Failed mutations also count
// as runtime errors for exit-code purposes.
func (r *Report) AddMutation(m MutationResult) {
	r.Mutations = append(r.Mutations, m)
	if m.Outcome == OutcomeFailed {
		r.runtimeErr = true
	}
}

// MarkRuntimeError records an unexpected fault.
func (r *Report) MarkRuntimeError() {
	r.runtimeErr = true
}

// MarkPolicyError records a policy load/validation failure.
func (r *Report) MarkPolicyError() {
	r.policyErr = true
}

// Finalize computes the exit code under the fixed precedence contract
// and freezes it into the report.
func (r *Report) Finalize() int {
	r.ExitCode = exitcode.Resolve(r.runtimeErr, r.policyErr, len(r.Findings) > 0)
	return r.ExitCode
}

// Render serializes the report in the requested format ("json" or "yaml").
func (r *Report) Render(format string) ([]byte, error) {
	switch format {
	case "", "json":
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal report: %w", err)
		}
		return append(data, '\n'), nil
	case "yaml":
		data, err := yaml.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal report: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported report format %q", format)
	}
}

// WriteFile serializes the report to path atomically.
func (r *Report) WriteFile(path, format string) error {
	data, err := r.Render(format)
	if err != nil {
		return err
	}
	return safeio.WriteFileAtomic(path, data)
}
