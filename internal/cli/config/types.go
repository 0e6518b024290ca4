// Package config provides configuration management for the LeapSheet CLI.
//
// Values come from, in increasing precedence: built-in defaults, a
// leapsheet.yaml file, LEAPSHEET_* environment variables and command-line
// flags.
package config

import (
	"time"

	"github.com/leapstack-labs/leapsheet/internal/llm"
	"github.com/leapstack-labs/leapsheet/pkg/instruction"
)

// Default configuration values.
const (
	DefaultStateFile   = ".leapsheet/state.db"
	DefaultOutput      = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultTemperature = 0.3
	DefaultMaxTokens   = llm.DefaultMaxTokens
	DefaultTimeout     = llm.DefaultTimeout
	DefaultMaxRetries  = llm.DefaultMaxRetries
	DefaultCooldown    = llm.DefaultCooldown
	DefaultBatchDelay  = llm.DefaultBatchDelay
	DefaultHistoryFile = ".leapsheet/shell_history"

	// APIKeyFallbackEnv is read when api_key is not configured anywhere else.
	APIKeyFallbackEnv = "SK"
)

// Config holds all CLI configuration options.
type Config struct {
	APIKey       string        `koanf:"api_key"`
	BaseURL      string        `koanf:"base_url"`
	Model        string        `koanf:"model"`
	VisionModels []string      `koanf:"vision_models"`
	Temperature  float64       `koanf:"temperature"`
	MaxTokens    int           `koanf:"max_tokens"`
	Timeout      time.Duration `koanf:"timeout"`
	MaxRetries   int           `koanf:"max_retries"`
	Cooldown     time.Duration `koanf:"cooldown"`
	BatchDelay   time.Duration `koanf:"batch_delay"`
	SystemPrompt string        `koanf:"system_prompt"`

	StatePath    string `koanf:"state_path"`
	History      bool   `koanf:"history"`
	HistoryFile  string `koanf:"history_file"`
	Verbose      bool   `koanf:"verbose"`
	OutputFormat string `koanf:"output"`
	LogFile      string `koanf:"log_file"`

	Parser ParserConfig `koanf:"parser"`

	// ProjectRoot is the directory holding the config file, or the CWD.
	ProjectRoot string `koanf:"-"`
}

// ParserConfig extends the built-in parser vocabulary. Entries are added to
// the defaults, never replacing them.
type ParserConfig struct {
	CopyMarkers   []string `koanf:"copy_markers"`
	WriteVerbs    []string `koanf:"write_verbs"`
	ClearKeywords []string `koanf:"clear_keywords"`
	ColumnWords   []string `koanf:"column_words"`
	Connectives   []string `koanf:"connectives"`
}

// Vocabulary returns the default parser vocabulary merged with the
// configured extensions.
func (p ParserConfig) Vocabulary() instruction.Vocabulary {
	return instruction.DefaultVocabulary().Merge(instruction.Vocabulary{
		CopyMarkers:   p.CopyMarkers,
		WriteVerbs:    p.WriteVerbs,
		ClearKeywords: p.ClearKeywords,
		ColumnWords:   p.ColumnWords,
		Connectives:   p.Connectives,
	})
}

// LLMConfig converts the connection settings for the model client.
func (c *Config) LLMConfig() llm.Config {
	return llm.Config{
		APIKey:       c.APIKey,
		BaseURL:      c.BaseURL,
		Model:        c.Model,
		VisionModels: c.VisionModels,
		Timeout:      c.Timeout,
		MaxRetries:   c.MaxRetries,
		Cooldown:     c.Cooldown,
		BatchDelay:   c.BatchDelay,
	}
}

// MissingAIKeys lists the connection keys that are not set.
func (c *Config) MissingAIKeys() []string {
	return c.LLMConfig().Missing()
}

// AIConfigured reports whether transform and AI generation can run.
func (c *Config) AIConfigured() bool {
	return len(c.MissingAIKeys()) == 0
}

// Redact masks all but the ends of a secret.
func Redact(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:3] + "****" + secret[len(secret)-4:]
}
