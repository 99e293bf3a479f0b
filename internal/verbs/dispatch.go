package verbs

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/loamhq/ctxtidy/internal/audit"
	"github.com/loamhq/ctxtidy/internal/backup"
	"github.com/loamhq/ctxtidy/internal/gate"
	"github.com/loamhq/ctxtidy/internal/policy"
	"github.com/loamhq/ctxtidy/internal/preview"
	"github.com/loamhq/ctxtidy/internal/report"
	"github.com/loamhq/ctxtidy/internal/resolver"
	"github.com/loamhq/ctxtidy/pkg/config"
	"github.com/loamhq/ctxtidy/pkg/logger"
	"github.com/loamhq/ctxtidy/pkg/safeio"
)

// Dispatcher runs verbs through the uniform safety pipeline. Every
// verb, current and future, inherits the same sequence: resolve,
// policy check, immutability check, preview, confirm, backup, atomic
// write, report.
type Dispatcher struct {
	cfg      config.RunConfig
	policy   *policy.Store
	registry *Registry
	gate     *gate.Gate
	backups  *backup.Manager
	rep      *report.Report
	auditLog *audit.Log // nil disables the journal
	out      io.Writer
}

// NewDispatcher wires the pipeline for one run.
func NewDispatcher(cfg config.RunConfig, pol *policy.Store, reg *Registry, g *gate.Gate, backups *backup.Manager, rep *report.Report, auditLog *audit.Log, out io.Writer) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		policy:   pol,
		registry: reg,
		gate:     g,
		backups:  backups,
		rep:      rep,
		auditLog: auditLog,
		out:      out,
	}
}

// Dispatch runs one verb invocation end to end and records the result.
// Failures are scoped to this invocation; the caller may proceed to
// the next verb.
func (d *Dispatcher) Dispatch(targetName, verbName string, args Args) report.MutationResult {
	result := d.run(targetName, verbName, args)
	d.rep.AddMutation(result)
	if d.auditLog != nil {
		entry := audit.Entry{
			Target:     result.Target,
			Verb:       result.Verb,
			Outcome:    string(result.Outcome),
			BackupPath: result.BackupPath,
			Error:      result.Error,
		}
		if err := d.auditLog.Record(entry); err != nil {
			logger.Warn("failed to record audit entry", logger.Err(err))
		}
	}
	return result
}

func (d *Dispatcher) run(targetName, verbName string, args Args) report.MutationResult {
	result := report.MutationResult{Target: targetName, Verb: verbName}
	tx := gate.NewTransaction()

	verb, ok := d.registry.Get(targetName, verbName)
	if !ok {
		result.Outcome = report.OutcomeFailed
		result.Error = fmt.Sprintf("no verb %q registered for target %q", verbName, targetName)
		return result
	}

	target, err := resolver.Resolve(targetName, d.cfg.Root)
	if err != nil {
		result.Outcome = report.OutcomeFailed
		result.Error = err.Error()
		return result
	}

	// Missing target file is a benign no-op for every verb, uniformly.
	if !target.Exists {
		d.rep.AddFinding(report.Finding{
			Kind:    report.KindTargetMissing,
			Target:  targetName,
			Verb:    verbName,
			Message: fmt.Sprintf("%s does not exist; nothing to do", target.RelPath),
		})
		result.Outcome = report.OutcomeNoOp
		return result
	}

	// Policy gates come before either verb function runs.
	if !d.policy.Allows(targetName, verbName) {
		return d.violation(result, &PolicyViolationError{
			Target: targetName,
			Verb:   verbName,
			Reason: "verb not in the target's allow-list",
		})
	}
	// Immutability is evaluated on the resolved path, not the logical
	// name, so per-file exceptions work.
	if d.policy.IsImmutable(target.RelPath) {
		return d.violation(result, &PolicyViolationError{
			Target: targetName,
			Verb:   verbName,
			Path:   target.RelPath,
			Reason: fmt.Sprintf("path %s is immutable by policy", target.RelPath),
		})
	}

	current, err := safeio.ReadFileContained(d.cfg.Root, target.AbsolutePath)
	if err != nil {
		result.Outcome = report.OutcomeFailed
		result.Error = err.Error()
		return result
	}

	pending, err := verb.Preview(current, args)
	if err != nil {
		result.Outcome = report.OutcomeFailed
		result.Error = err.Error()
		if errors.Is(err, ErrValidation) {
			result.Error = fmt.Sprintf("%s; original file left untouched", result.Error)
		}
		return result
	}
	_ = tx.To(gate.StatePreviewed)

	diff, err := preview.Unified(target.RelPath, current, pending.NewContent)
	if err != nil {
		result.Outcome = report.OutcomeFailed
		result.Error = err.Error()
		return result
	}
	result.Diff = diff
	d.printPreview(target, pending, diff)

	if diff == "" {
		d.rep.AddFinding(report.Finding{
			Kind:    report.KindNoChange,
			Target:  targetName,
			Verb:    verbName,
			Message: fmt.Sprintf("%s already satisfies %s", target.RelPath, verbName),
		})
		result.Outcome = report.OutcomeNoOp
		return result
	}

	if err := d.gate.Approve(targetName, verbName, verb.Risk()); err != nil {
		if errors.Is(err, gate.ErrDeclined) {
			_ = tx.To(gate.StateDeclined)
			logger.Info("skipped by operator", logger.String("target", targetName), logger.String("verb", verbName))
			result.Outcome = report.OutcomeDeclined
			result.Error = err.Error()
			return result
		}
		result.Outcome = report.OutcomeFailed
		result.Error = err.Error()
		return result
	}
	_ = tx.To(gate.StateConfirmed)
	if verb.Risk() == gate.RiskCritical {
		_ = tx.To(gate.StateCriticalConfirmed)
	}

	auth, ok := d.cfg.Authorize()
	if !ok {
		// Dry-run: the writer is structurally unreachable from here.
		result.Outcome = report.OutcomeDryRun
		return result
	}

	newContent, err := verb.Apply(current, args)
	if err != nil {
		result.Outcome = report.OutcomeFailed
		result.Error = err.Error()
		return result
	}

	ref, err := d.write(auth, target, newContent)
	if err != nil {
		result.Outcome = report.OutcomeFailed
		result.Error = err.Error()
		if ref.BackupPath != "" {
			result.BackupPath = ref.BackupPath
			result.Error = fmt.Sprintf("%s (backup preserved at %s)", result.Error, ref.BackupPath)
		}
		return result
	}
	_ = tx.To(gate.StateApplied)

	result.Outcome = report.OutcomeApplied
	result.BackupPath = ref.BackupPath
	logger.Info("applied",
		logger.String("target", targetName),
		logger.String("verb", verbName),
		logger.String("backup", filepath.Base(ref.BackupPath)))
	return result
}

// write snapshots then replaces the target. Only reachable with a
// granted authorization; the zero token refuses.
func (d *Dispatcher) write(auth config.WriteAuthorization, target resolver.Target, newContent []byte) (backup.Ref, error) {
	if !auth.Granted() {
		return backup.Ref{}, errors.New("write attempted without authorization")
	}
	ref, err := d.backups.Snapshot(target.AbsolutePath)
	if err != nil {
		return backup.Ref{}, fmt.Errorf("backup failed, aborting before write: %w", err)
	}
	if err := safeio.WriteFileAtomic(target.AbsolutePath, newContent); err != nil {
		return ref, err
	}
	return ref, nil
}

// violation records a policy refusal as a finding and a skipped
// mutation. Neither verb function has run at this point, so there is
// no diff to show; the reason stands in for it.
func (d *Dispatcher) violation(result report.MutationResult, verr *PolicyViolationError) report.MutationResult {
	d.rep.AddFinding(report.Finding{
		Kind:    report.KindPolicyViolation,
		Target:  verr.Target,
		Verb:    verr.Verb,
		Message: verr.Reason,
	})
	fmt.Fprintf(d.out, "deny %s:%s: %s\n", verr.Target, verr.Verb, verr.Reason)
	result.Outcome = report.OutcomeSkipped
	result.Error = verr.Error()
	return result
}

func (d *Dispatcher) printPreview(target resolver.Target, pending *PendingChange, diff string) {
	fmt.Fprintf(d.out, "%s:%s: %s\n", pending.TargetName, pending.Verb, pending.Summary)
	if diff == "" {
		fmt.Fprintln(d.out, "(no change)")
		return
	}
	fmt.Fprint(d.out, diff)
}
