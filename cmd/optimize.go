/*
Copyright © 2026 Loam <oss@loamhq.dev>
*/
package cmd

import (
	"fmt"

	"github.com/loamhq/ctxtidy/internal/policy"
	"github.com/loamhq/ctxtidy/internal/report"
	"github.com/loamhq/ctxtidy/internal/resolver"
	"github.com/loamhq/ctxtidy/internal/suggest"
	"github.com/loamhq/ctxtidy/internal/verbs"
	"github.com/loamhq/ctxtidy/pkg/logger"
	"github.com/spf13/cobra"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Evaluate a suggestion feed against the budget and policy",
	Long: `Optimize consumes a suggestion feed (candidate paths/patterns with
token costs), keeps candidates at or above the budget threshold that
policy permits, and reports them as findings. With --apply the
surviving candidates are appended to the ignore target through the
full preview/confirm/backup pipeline.`,
	RunE: runOptimize,
}

func init() {
	optimizeCmd.Flags().String("suggestions", "", "Suggestion feed JSON path (required)")
	optimizeCmd.Flags().Int("budget", 0, "Token threshold; candidates below it are left alone (default from .ctxtidy.yaml)")
	optimizeCmd.Flags().Bool("apply", false, "Append surviving candidates to the ignore file")
	_ = optimizeCmd.MarkFlagRequired("suggestions")
}

func runOptimize(cmd *cobra.Command, _ []string) error {
	cfg, toolCfg, err := buildRunConfig(cmd)
	if err != nil {
		return err
	}
	feedPath, _ := cmd.Flags().GetString("suggestions")
	budget, _ := cmd.Flags().GetInt("budget")
	doApply, _ := cmd.Flags().GetBool("apply")
	if budget <= 0 {
		budget = toolCfg.Budget.TokenThreshold
	}
	cfg.Budget = budget

	rep := report.New(cfg.Root, cfg.DryRun)

	pol, err := policy.Load(cfg.PolicyPath)
	if err != nil {
		logger.Error("policy rejected", logger.Err(err))
		rep.MarkPolicyError()
		finishRun(rep, cfg)
		return nil
	}

	feed, err := suggest.Load(feedPath)
	if err != nil {
		logger.Error("suggestion feed rejected", logger.Err(err))
		rep.MarkRuntimeError()
		finishRun(rep, cfg)
		return nil
	}

	selected, rejected := suggest.Filter(feed, budget, pol)
	for _, r := range rejected {
		logger.Debug("candidate dropped",
			logger.String("path", r.Candidate.Path),
			logger.String("reason", r.Reason))
	}
	if len(selected) > 0 {
		rep.AddFinding(report.Finding{
			Kind:    report.KindOverBudget,
			Target:  resolver.TargetIgnore,
			Message: fmt.Sprintf("%d candidate pattern(s) at or above the %d-token threshold", len(selected), budget),
		})
	}
	for _, c := range selected {
		rep.AddFinding(report.Finding{
			Kind:    report.KindCandidate,
			Target:  resolver.TargetIgnore,
			Message: fmt.Sprintf("%s (%d tokens)", c.Implied(), c.Tokens),
		})
	}

	if doApply && len(selected) > 0 {
		d := newDispatcher(cmd, cfg, toolCfg, pol, rep)
		d.Dispatch(resolver.TargetIgnore, "append", verbs.Args{
			Root:     cfg.Root,
			Patterns: suggest.Patterns(selected),
		})
	}

	finishRun(rep, cfg)
	return nil
}
