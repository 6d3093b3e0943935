// Package config provides configuration loading for the categorization core.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all tunable settings for the categorization core. Values come
// from the config file, LEDGERLING_* environment variables, and defaults, in
// that order of precedence.
type Config struct {
	DatabasePath              string
	LogLevel                  string
	LogFormat                 string
	OpenAIKey                 string
	OpenAIModel               string
	Rounding                  Rounding
	AutoApplyThreshold        float64
	SimilarityFloor           float64
	SuggestionConfidenceFloor float64
	RecurringTolerance        float64
	SplitToleranceCents       int64
}

// SetDefaults registers default values on the given viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "~/.local/share/ledgerling/ledgerling.db")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("categorization.auto_apply_threshold", 80.0)
	v.SetDefault("categorization.similarity_floor", 0.70)
	v.SetDefault("categorization.suggestion_confidence_floor", 70.0)
	v.SetDefault("categorization.recurring_tolerance", 0.20)
	v.SetDefault("categorization.split_tolerance_cents", 100)
	v.SetDefault("rounding.places", 0)
	v.SetDefault("rounding.mode", "half_up")
}

// FromViper builds a Config from a loaded viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	mode, err := ParseRoundingMode(v.GetString("rounding.mode"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabasePath:              ExpandPath(v.GetString("database.path")),
		LogLevel:                  v.GetString("logging.level"),
		LogFormat:                 v.GetString("logging.format"),
		OpenAIKey:                 v.GetString("openai.api_key"),
		OpenAIModel:               v.GetString("openai.model"),
		AutoApplyThreshold:        v.GetFloat64("categorization.auto_apply_threshold"),
		SimilarityFloor:           v.GetFloat64("categorization.similarity_floor"),
		SuggestionConfidenceFloor: v.GetFloat64("categorization.suggestion_confidence_floor"),
		RecurringTolerance:        v.GetFloat64("categorization.recurring_tolerance"),
		SplitToleranceCents:       v.GetInt64("categorization.split_tolerance_cents"),
		Rounding: Rounding{
			Places: int32(v.GetInt("rounding.places")),
			Mode:   mode,
		},
	}

	if cfg.AutoApplyThreshold < 0 || cfg.AutoApplyThreshold > 100 {
		return nil, fmt.Errorf("auto_apply_threshold must be between 0 and 100, got %.1f", cfg.AutoApplyThreshold)
	}
	if cfg.SimilarityFloor < 0 || cfg.SimilarityFloor > 1 {
		return nil, fmt.Errorf("similarity_floor must be between 0 and 1, got %.2f", cfg.SimilarityFloor)
	}
	if cfg.RecurringTolerance <= 0 || cfg.RecurringTolerance >= 1 {
		return nil, fmt.Errorf("recurring_tolerance must be between 0 and 1, got %.2f", cfg.RecurringTolerance)
	}

	return cfg, nil
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
