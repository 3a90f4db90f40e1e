// Package config provides configuration loading for the application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/petrel-io/ledgermatch/internal/common"
	"github.com/petrel-io/ledgermatch/internal/engine"
	"github.com/petrel-io/ledgermatch/internal/feed"
)

// Config is the resolved application configuration.
type Config struct {
	DatabasePath string
	LogLevel     string
	LogFormat    string
	CompanyID    string
	Engine       engine.Config
	Plaid        feed.PlaidConfig
}

// Load resolves configuration from the viper instance bound by the CLI:
// config file, environment, then flags, in increasing precedence.
func Load() (*Config, error) {
	cfg := &Config{
		DatabasePath: ExpandPath(viper.GetString("database.path")),
		LogLevel:     viper.GetString("log.level"),
		LogFormat:    viper.GetString("log.format"),
		CompanyID:    viper.GetString("company_id"),
		Engine:       engine.DefaultConfig(),
		Plaid: feed.PlaidConfig{
			ClientID:    viper.GetString("plaid.client_id"),
			Secret:      viper.GetString("plaid.secret"),
			Environment: viper.GetString("plaid.environment"),
			AccessToken: viper.GetString("plaid.access_token"),
			CompanyID:   viper.GetString("company_id"),
		},
	}

	if cfg.DatabasePath == "" {
		return nil, fmt.Errorf("%w: database.path", common.ErrMissingConfig)
	}

	applyEngineOverrides(&cfg.Engine)
	if err := validateEngine(cfg.Engine); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEngineOverrides replaces engine defaults with any thresholds set in
// configuration.
func applyEngineOverrides(cfg *engine.Config) {
	overrides := map[string]*float64{
		"matching.exact_confidence":        &cfg.ExactConfidence,
		"matching.reference_confidence":    &cfg.ReferenceConfidence,
		"matching.rule_confidence":         &cfg.RuleConfidence,
		"matching.fuzzy_confidence":        &cfg.FuzzyConfidence,
		"matching.fuzzy_threshold":         &cfg.FuzzyThreshold,
		"matching.amount_tolerance":        &cfg.AmountTolerance,
		"matching.range_tolerance":         &cfg.RangeTolerance,
		"matching.auto_validate_threshold": &cfg.AutoValidateThreshold,
	}
	for key, target := range overrides {
		if viper.IsSet(key) {
			*target = viper.GetFloat64(key)
		}
	}
}

func validateEngine(cfg engine.Config) error {
	unit := map[string]float64{
		"matching.exact_confidence":        cfg.ExactConfidence,
		"matching.reference_confidence":    cfg.ReferenceConfidence,
		"matching.rule_confidence":         cfg.RuleConfidence,
		"matching.fuzzy_confidence":        cfg.FuzzyConfidence,
		"matching.fuzzy_threshold":         cfg.FuzzyThreshold,
		"matching.auto_validate_threshold": cfg.AutoValidateThreshold,
	}
	for key, value := range unit {
		if value < 0 || value > 1 {
			return fmt.Errorf("%w: %s must be between 0 and 1", common.ErrInvalidConfig, key)
		}
	}
	if cfg.AmountTolerance < 0 {
		return fmt.Errorf("%w: matching.amount_tolerance must not be negative", common.ErrInvalidConfig)
	}
	if cfg.RangeTolerance < 0 {
		return fmt.Errorf("%w: matching.range_tolerance must not be negative", common.ErrInvalidConfig)
	}
	return nil
}

// ExpandPath expands ~ and environment variables in a file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	return os.ExpandEnv(path)
}
