/*
Copyright © 2026 Loam <oss@loamhq.dev>
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/loamhq/ctxtidy/internal/gate"
	"github.com/loamhq/ctxtidy/internal/policy"
	"github.com/loamhq/ctxtidy/internal/report"
	"github.com/loamhq/ctxtidy/internal/resolver"
	"github.com/loamhq/ctxtidy/pkg/buildinfo"
	"github.com/loamhq/ctxtidy/pkg/config"
	"github.com/loamhq/ctxtidy/pkg/exitcode"
	"github.com/loamhq/ctxtidy/pkg/logger"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"
)

// newRootCommand creates a fresh root command instance.
// This factory pattern allows tests to create isolated command trees without shared state.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ctxtidy",
		Short: "Policy-governed editor for assistant context configuration",
		Long: `Ctxtidy proposes, previews, confirms, backs up, and atomically applies
edits to the context configuration of an assistant workspace: the
.ctxignore pattern file and the .ctx/settings.json document. Every
mutation runs through the same pipeline: policy check, diff preview,
confirmation, backup, atomic write.

Examples:
   ctxtidy actions                          # List available actions
   ctxtidy apply ignore dedupe              # Remove duplicate ignore patterns
   ctxtidy optimize --suggestions feed.json # Evaluate analysis suggestions
   ctxtidy policy check                     # Validate the policy document`,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			initializeLogger(cmd)
		},
	}

	cmd.PersistentFlags().String("log-level", "info", "Set log level (debug|info|warn|error)")
	cmd.PersistentFlags().Bool("json-logs", false, "Output logs in JSON format")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	cmd.PersistentFlags().Bool("dry-run", false, "Preview changes without writing anything")
	cmd.PersistentFlags().BoolP("yes", "y", false, "Assume yes at the normal confirmation gate")
	cmd.PersistentFlags().Bool("approve-critical", false, "Explicitly approve critical (settings-surface) changes unattended")
	cmd.PersistentFlags().Bool("ci", false, "Non-interactive mode; requires --root and answers come from flags")
	cmd.PersistentFlags().String("root", "", "Project root (discovered upward from the working directory when omitted)")
	cmd.PersistentFlags().String("policy", "", "Policy document path (default: <root>/"+policy.DefaultFileName+")")
	cmd.PersistentFlags().String("report", "", "Write a machine-readable report to this path")
	cmd.PersistentFlags().String("report-format", "", "Report format: json or yaml (default from .ctxtidy.yaml)")

	cmd.Version = buildinfo.Version()
	cmd.SetVersionTemplate("ctxtidy {{.Version}}\n")

	return cmd
}

func registerSubcommands(cmd *cobra.Command) {
	cmd.AddCommand(actionsCmd)
	cmd.AddCommand(applyCmd)
	cmd.AddCommand(optimizeCmd)
	cmd.AddCommand(policyCmd)
	cmd.AddCommand(versionCmd)
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCommand()

// Execute runs the CLI. Subcommands that own a report exit through
// finishRun; anything else that errors is a plain runtime error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("Command execution failed", logger.Err(err))
		os.Exit(exitcode.RuntimeError)
	}
}

func init() {
	registerSubcommands(rootCmd)
}

func initializeLogger(cmd *cobra.Command) {
	logLevelStr, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("json-logs")
	noColor, _ := cmd.Flags().GetBool("no-color")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	logger.Initialize(logger.Config{
		Level:    logger.ParseLevel(logLevelStr),
		UseColor: !noColor,
		JSON:     jsonLogs,
		DryRun:   dryRun,
	})
}

// runFlags holds the raw persistent-flag values for one invocation.
type runFlags struct {
	dryRun          bool
	assumeYes       bool
	approveCritical bool
	ci              bool
	root            string
	policy          string
	report          string
	reportFormat    string
}

func readRunFlags(flags *pflag.FlagSet) runFlags {
	var rf runFlags
	rf.dryRun, _ = flags.GetBool("dry-run")
	rf.assumeYes, _ = flags.GetBool("yes")
	rf.approveCritical, _ = flags.GetBool("approve-critical")
	rf.ci, _ = flags.GetBool("ci")
	rf.root, _ = flags.GetString("root")
	rf.policy, _ = flags.GetString("policy")
	rf.report, _ = flags.GetString("report")
	rf.reportFormat, _ = flags.GetString("report-format")
	return rf
}

// buildRunConfig assembles the immutable per-run configuration from
// flags, root discovery, and the tool config file.
func buildRunConfig(cmd *cobra.Command) (config.RunConfig, *config.ToolConfig, error) {
	rf := readRunFlags(cmd.Flags())

	root, err := resolveRoot(cmd, rf.root, rf.ci, rf.assumeYes)
	if err != nil {
		return config.RunConfig{}, nil, err
	}

	toolCfg, err := config.LoadToolConfig(root)
	if err != nil {
		return config.RunConfig{}, nil, fmt.Errorf("failed to load tool config: %w", err)
	}

	if rf.policy == "" {
		rf.policy = filepath.Join(root, filepath.FromSlash(policy.DefaultFileName))
	}
	if rf.reportFormat == "" {
		rf.reportFormat = toolCfg.Report.Format
	}

	cfg := config.RunConfig{
		Root:            root,
		PolicyPath:      rf.policy,
		DryRun:          rf.dryRun,
		AssumeYes:       rf.assumeYes,
		ApproveCritical: rf.approveCritical,
		NonInteractive:  rf.ci,
		ReportPath:      rf.report,
		ReportFormat:    rf.reportFormat,
		StartedAt:       time.Now(),
	}
	return cfg, toolCfg, nil
}

// resolveRoot discovers the project root and, in interactive runs,
// confirms it with the operator. CI mode demands an explicit --root.
func resolveRoot(cmd *cobra.Command, rootFlag string, ci, assumeYes bool) (string, error) {
	if rootFlag != "" {
		abs, err := filepath.Abs(rootFlag)
		if err != nil {
			return "", fmt.Errorf("bad --root: %w", err)
		}
		if _, err := os.Stat(abs); err != nil {
			return "", fmt.Errorf("--root %s: %w", rootFlag, err)
		}
		return abs, nil
	}
	if ci {
		return "", fmt.Errorf("--ci requires an explicit --root")
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	root, err := resolver.DiscoverRoot(wd)
	if err != nil {
		return "", err
	}

	if !assumeYes {
		prompter := &gate.TerminalPrompter{In: cmd.InOrStdin(), Out: cmd.OutOrStdout()}
		ok, err := prompter.Confirm(fmt.Sprintf("Use project root %s?", root))
		if err != nil {
			return "", err
		}
		if !ok {
			return "", fmt.Errorf("project root not confirmed; pass --root explicitly")
		}
	}
	return root, nil
}

// finishRun freezes the report, writes it if requested, and exits with
// the contract code.
func finishRun(rep *report.Report, cfg config.RunConfig) {
	code := rep.Finalize()
	if cfg.ReportPath != "" {
		if err := rep.WriteFile(cfg.ReportPath, cfg.ReportFormat); err != nil {
			logger.Error("failed to write report", logger.Err(err))
			code = exitcode.RuntimeError
		}
	}
	logger.Debug("run complete", logger.Int("exit_code", code), logger.String("meaning", exitcode.String(code)))
	os.Exit(code)
}
