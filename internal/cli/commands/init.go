package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapsheet/internal/cli/output"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var example bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a leapsheet.yaml in a directory",
		Long: `Create a starter leapsheet.yaml and a .gitignore that excludes the local
.leapsheet/ state directory.

Use --example to also write sample.csv and a commented configuration that
shows vision models, a custom system prompt and parser extensions.`,
		Example: `  # Initialize in current directory
  leapsheet init

  # Initialize with a sample spreadsheet
  leapsheet init --example

  # Force overwrite existing config
  leapsheet init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			cfg := getConfig()
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))
			return runInit(r, dir, example, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")
	cmd.Flags().BoolVar(&example, "example", false, "Also create sample.csv and an annotated configuration")

	return cmd
}

func runInit(r *output.Renderer, dir string, example, force bool) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	configPath := filepath.Join(dir, "leapsheet.yaml")
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("leapsheet.yaml already exists. Use --force to overwrite")
	}

	template := "minimal"
	if example {
		template = "example"
	}
	files, err := copyTemplate(template, dir, force)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}

	for _, f := range files {
		r.StatusLine(f, "success", "")
	}

	r.Println("")
	r.Success("LeapSheet initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Set api_key, base_url and model in leapsheet.yaml (or LEAPSHEET_API_KEY)")
	r.Println("  2. Run 'leapsheet ping' to check the model connection")
	if example {
		r.Println("  3. Try 'leapsheet run sample.csv \"uppercase column A\"'")
	} else {
		r.Println("  3. Run 'leapsheet run <file> \"<instruction>\"' on a spreadsheet")
	}
	return nil
}
