package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/leapsheet/internal/cli/config"
	"github.com/leapstack-labs/leapsheet/internal/cli/output"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(newConfigShowCommand(), newConfigPathCommand())
	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration (file, environment and flags) with the API key masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := NewCommandContextWithoutSession(cmd).Renderer
			settings := config.Effective()
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(settings)
			}
			data, err := yaml.Marshal(settings)
			if err != nil {
				return fmt.Errorf("failed to encode configuration: %w", err)
			}
			if r.EffectiveMode() == output.ModeMarkdown {
				r.Println("```yaml")
				r.Printf("%s", data)
				r.Println("```")
				return nil
			}
			r.Printf("%s", data)
			return nil
		},
	}
}

func newConfigPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := NewCommandContextWithoutSession(cmd).Renderer
			if used := config.GetConfigFileUsed(); used != "" {
				r.Println(used)
				return nil
			}
			r.Muted("No config file found (defaults, environment and flags only)")
			return nil
		},
	}
}
