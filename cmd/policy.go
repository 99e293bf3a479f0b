/*
Copyright © 2026 Loam <oss@loamhq.dev>
*/
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/loamhq/ctxtidy/internal/policy"
	"github.com/loamhq/ctxtidy/internal/report"
	"github.com/loamhq/ctxtidy/internal/resolver"
	"github.com/loamhq/ctxtidy/pkg/logger"
	"github.com/loamhq/ctxtidy/pkg/safeio"
	"github.com/spf13/cobra"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Bootstrap and validate the authorization policy",
}

var policyInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter policy document",
	Long: `Init writes a conservative starter policy: the ignore and settings
targets are editable with the built-in verbs, nothing is immutable
beyond the policy file itself. Refuses to overwrite an existing policy
unless --force is given.`,
	RunE: runPolicyInit,
}

var policyCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the policy document without mutating anything",
	RunE:  runPolicyCheck,
}

func init() {
	policyInitCmd.Flags().Bool("force", false, "Overwrite an existing policy document")
	policyCmd.AddCommand(policyInitCmd)
	policyCmd.AddCommand(policyCheckCmd)
}

func runPolicyInit(cmd *cobra.Command, _ []string) error {
	cfg, _, err := buildRunConfig(cmd)
	if errors.Is(err, resolver.ErrNoRoot) {
		// Bootstrapping: no marker exists yet, the working directory
		// becomes the root.
		wd, wderr := os.Getwd()
		if wderr != nil {
			return wderr
		}
		cfg.Root = wd
		cfg.PolicyPath = filepath.Join(wd, filepath.FromSlash(policy.DefaultFileName))
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		cfg.DryRun = dryRun
	} else if err != nil {
		return err
	}
	force, _ := cmd.Flags().GetBool("force")

	if _, err := os.Stat(cfg.PolicyPath); err == nil && !force {
		return fmt.Errorf("policy already exists at %s (use --force to overwrite)", cfg.PolicyPath)
	}

	data, err := json.MarshalIndent(policy.Default(), "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if cfg.DryRun {
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		logger.Info("dry-run: policy not written", logger.String("path", cfg.PolicyPath))
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.PolicyPath), 0o750); err != nil {
		return err
	}
	if err := safeio.WriteFileAtomic(cfg.PolicyPath, data); err != nil {
		return err
	}
	logger.Info("policy written", logger.String("path", cfg.PolicyPath))
	return nil
}

func runPolicyCheck(cmd *cobra.Command, _ []string) error {
	cfg, _, err := buildRunConfig(cmd)
	if err != nil {
		return err
	}

	rep := report.New(cfg.Root, cfg.DryRun)

	pol, err := policy.Load(cfg.PolicyPath)
	if err != nil {
		logger.Error("policy rejected", logger.Err(err))
		rep.MarkPolicyError()
		finishRun(rep, cfg)
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "policy OK: %s\n", cfg.PolicyPath)
	for _, target := range resolver.Names() {
		for _, verb := range pol.VerbsFor(target) {
			fmt.Fprintf(cmd.OutOrStdout(), "  allows %s:%s\n", target, verb)
		}
	}
	finishRun(rep, cfg)
	return nil
}
