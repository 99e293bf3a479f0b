// Package config holds the tool configuration loaded from
// .ctxtidy.yaml / environment, and the immutable RunConfig assembled
// once per invocation from parsed flags.
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// ToolConfig is operator-tunable behavior that rarely changes per run.
type ToolConfig struct {
	Backup BackupConfig `mapstructure:"backup"`
	Audit  AuditConfig  `mapstructure:"audit"`
	Report ReportConfig `mapstructure:"report"`
	Budget BudgetConfig `mapstructure:"budget"`
}

// BackupConfig controls where pre-mutation snapshots land.
type BackupConfig struct {
	Dir string `mapstructure:"dir"`
}

// AuditConfig controls the rotating mutation audit log.
type AuditConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// ReportConfig sets report serialization defaults.
type ReportConfig struct {
	Format string `mapstructure:"format"` // "json" or "yaml"
}

// BudgetConfig sets the default token threshold for the suggestion feed.
type BudgetConfig struct {
	TokenThreshold int `mapstructure:"token_threshold"`
}

var defaultConfig = ToolConfig{
	Backup: BackupConfig{Dir: ".ctx/backups"},
	Audit: AuditConfig{
		Enabled:    true,
		Path:       ".ctx/audit.log",
		MaxSizeMB:  5,
		MaxBackups: 3,
	},
	Report: ReportConfig{Format: "json"},
	Budget: BudgetConfig{TokenThreshold: 2000},
}

// LoadToolConfig reads .ctxtidy.yaml from the project root plus
// CTXTIDY_* environment overrides. A missing file yields defaults.
func LoadToolConfig(root string) (*ToolConfig, error) {
	v := viper.New()

	v.SetDefault("backup.dir", defaultConfig.Backup.Dir)
	v.SetDefault("audit.enabled", defaultConfig.Audit.Enabled)
	v.SetDefault("audit.path", defaultConfig.Audit.Path)
	v.SetDefault("audit.max_size_mb", defaultConfig.Audit.MaxSizeMB)
	v.SetDefault("audit.max_backups", defaultConfig.Audit.MaxBackups)
	v.SetDefault("report.format", defaultConfig.Report.Format)
	v.SetDefault("budget.token_threshold", defaultConfig.Budget.TokenThreshold)

	v.SetConfigName(".ctxtidy")
	v.SetConfigType("yaml")
	if root != "" {
		v.AddConfigPath(root)
	}
	v.SetEnvPrefix("CTXTIDY")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg ToolConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// RunConfig is built once from parsed arguments and passed by value to
// every component. There are no ambient mutable flags.
type RunConfig struct {
	Root            string // resolved project root (absolute)
	PolicyPath      string
	DryRun          bool
	AssumeYes       bool // loosen the normal confirmation gate
	ApproveCritical bool // explicit opt-in for unattended critical changes
	NonInteractive  bool // CI mode: prompts are impossible, answers come from flags
	Budget          int  // token threshold for the suggestion feed
	ReportPath      string
	ReportFormat    string
	StartedAt       time.Time
}

// WriteAuthorization gates the backup-and-write path. It can only be
// minted by a non-dry-run RunConfig, which makes "dry-run never
// touches the writer" a structural property rather than a flag check.
type WriteAuthorization struct {
	granted bool
}

// Granted reports whether this token authorizes writes.
func (w WriteAuthorization) Granted() bool {
	return w.granted
}

// Authorize mints a write token. Returns false in dry-run mode.
func (c RunConfig) Authorize() (WriteAuthorization, bool) {
	if c.DryRun {
		return WriteAuthorization{}, false
	}
	return WriteAuthorization{granted: true}, true
}
