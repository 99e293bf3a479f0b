/*
Copyright © 2026 Loam <oss@loamhq.dev>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/loamhq/ctxtidy/internal/audit"
	"github.com/loamhq/ctxtidy/internal/backup"
	"github.com/loamhq/ctxtidy/internal/gate"
	"github.com/loamhq/ctxtidy/internal/policy"
	"github.com/loamhq/ctxtidy/internal/report"
	"github.com/loamhq/ctxtidy/internal/verbs"
	"github.com/loamhq/ctxtidy/pkg/config"
	"github.com/loamhq/ctxtidy/pkg/logger"
	"github.com/spf13/cobra"
)

var applyCmd = &cobra.Command{
	Use:   "apply [target verb | --select target:verb]",
	Short: "Run one mutation verb through the safety pipeline",
	Long: `Apply resolves the target, checks policy, previews the diff, asks for
confirmation, snapshots a backup, and atomically replaces the file.
Use --dry-run to stop after the preview.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runApply,
}

func init() {
	applyCmd.Flags().String("select", "", "Action id in target:verb form (non-interactive selection)")
	applyCmd.Flags().StringSlice("pattern", nil, "Candidate pattern for append-style verbs (repeatable)")
}

func runApply(cmd *cobra.Command, args []string) error {
	targetName, verbName, err := selectedAction(cmd, args)
	if err != nil {
		return err
	}

	cfg, toolCfg, err := buildRunConfig(cmd)
	if err != nil {
		return err
	}
	patterns, _ := cmd.Flags().GetStringSlice("pattern")

	rep := report.New(cfg.Root, cfg.DryRun)

	pol, err := policy.Load(cfg.PolicyPath)
	if err != nil {
		logger.Error("policy rejected", logger.Err(err))
		rep.MarkPolicyError()
		finishRun(rep, cfg)
		return nil
	}

	d := newDispatcher(cmd, cfg, toolCfg, pol, rep)

	// An interrupt arriving mid-verb is deferred until the in-flight
	// backup and write have settled; the dispatcher is never torn down
	// between snapshot and rename.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	defer signal.Stop(stop)

	d.Dispatch(targetName, verbName, verbs.Args{Root: cfg.Root, Patterns: patterns})

	select {
	case <-stop:
		logger.Warn("interrupted; completed mutation is backed up")
		rep.MarkRuntimeError()
	default:
	}

	finishRun(rep, cfg)
	return nil
}

// selectedAction accepts either positional "target verb" or --select target:verb.
func selectedAction(cmd *cobra.Command, args []string) (string, string, error) {
	sel, _ := cmd.Flags().GetString("select")
	switch {
	case sel != "" && len(args) > 0:
		return "", "", errors.New("use either positional target/verb or --select, not both")
	case sel != "":
		parts := strings.SplitN(sel, ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return "", "", fmt.Errorf("bad --select %q, want target:verb", sel)
		}
		return parts[0], parts[1], nil
	case len(args) == 2:
		return args[0], args[1], nil
	default:
		return "", "", errors.New("expected a target and a verb (see 'ctxtidy actions')")
	}
}

// newDispatcher wires the pipeline for one run, including the audit
// journal when enabled. Dry-run skips the journal: a rehearsal leaves
// no trace.
func newDispatcher(cmd *cobra.Command, cfg config.RunConfig, toolCfg *config.ToolConfig, pol *policy.Store, rep *report.Report) *verbs.Dispatcher {
	var prompter gate.Prompter
	if !cfg.NonInteractive {
		prompter = &gate.TerminalPrompter{In: cmd.InOrStdin(), Out: cmd.OutOrStdout()}
	}

	var auditLog *audit.Log
	if toolCfg.Audit.Enabled && !cfg.DryRun {
		auditLog = audit.Open(
			absUnderRoot(cfg.Root, toolCfg.Audit.Path),
			toolCfg.Audit.MaxSizeMB,
			toolCfg.Audit.MaxBackups,
		)
	}

	return verbs.NewDispatcher(
		cfg,
		pol,
		verbs.Default(),
		gate.New(cfg, prompter),
		backup.NewManager(absUnderRoot(cfg.Root, toolCfg.Backup.Dir)),
		rep,
		auditLog,
		cmd.OutOrStdout(),
	)
}

func absUnderRoot(root, rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(root, filepath.FromSlash(rel))
}
