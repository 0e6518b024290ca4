package config

import (
	"errors"
	"fmt"
	"strings"
)

var validOutputs = []string{"auto", "text", "markdown", "json"}

// Validate checks value ranges. Missing AI keys are not an error: clear,
// copy and list generation work without a model.
func (c *Config) Validate() error {
	var errs []error
	if c.Temperature < 0 || c.Temperature > 2 {
		errs = append(errs, fmt.Errorf("temperature must be between 0 and 2, got %g", c.Temperature))
	}
	if c.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("max_tokens must be positive, got %d", c.MaxTokens))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max_retries must not be negative, got %d", c.MaxRetries))
	}
	if c.Cooldown < 0 {
		errs = append(errs, fmt.Errorf("cooldown must not be negative, got %s", c.Cooldown))
	}
	if c.BatchDelay < 0 {
		errs = append(errs, fmt.Errorf("batch_delay must not be negative, got %s", c.BatchDelay))
	}
	if c.OutputFormat != "" && !contains(validOutputs, strings.ToLower(c.OutputFormat)) {
		errs = append(errs, fmt.Errorf("output must be one of %s, got %q", strings.Join(validOutputs, ", "), c.OutputFormat))
	}
	if c.History && strings.TrimSpace(c.StatePath) == "" {
		errs = append(errs, errors.New("state_path is required when history is enabled"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w\nHint: check leapsheet.yaml and LEAPSHEET_* environment variables", err)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
