package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/leapsheet/internal/cli/config"
	"github.com/leapstack-labs/leapsheet/internal/cli/output"
	"github.com/leapstack-labs/leapsheet/internal/state"
)

// DoctorOptions holds options for the doctor command.
type DoctorOptions struct {
	Offline bool
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	opts := &DoctorOptions{}
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, history storage and model connectivity",
		Long: `Run a health check of the local setup:
- Configuration: config file, model connection keys, parser extensions
- Storage: whether the operation history database opens
- Model: whether the endpoint answers (skipped with --offline)

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  leapsheet doctor
  leapsheet doctor --offline -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Offline, "offline", false, "Skip the model connectivity check")

	return cmd
}

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	HealthChecks    []HealthCheck `json:"health_checks"`
	Score           int           `json:"score"`
	Recommendations []string      `json:"recommendations"`
}

// HealthCheck represents a single health check result.
type HealthCheck struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Group  string `json:"group"`
	Status string `json:"status"` // "pass", "warn", "error", "skip"
	Detail string `json:"detail,omitempty"`
	Advice string `json:"-"`
}

func runDoctor(cmd *cobra.Command, opts *DoctorOptions) error {
	cmdCtx := NewCommandContextWithoutSession(cmd)
	out := buildDoctorOutput(cmd.Context(), cmdCtx.Cfg, config.GetConfigFileUsed(), opts.Offline)

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		return renderDoctorMarkdown(r, out)
	default:
		return renderDoctorText(r, out)
	}
}

func buildDoctorOutput(ctx context.Context, cfg *config.Config, cfgFile string, offline bool) *DoctorOutput {
	if ctx == nil {
		ctx = context.Background()
	}
	var checks []HealthCheck

	file := HealthCheck{ID: "C01", Name: "Config file", Group: "configuration", Status: "pass", Detail: cfgFile}
	if cfgFile == "" {
		file.Status = "warn"
		file.Detail = "no leapsheet.yaml found"
		file.Advice = "Run 'leapsheet init' to create a starter leapsheet.yaml"
	}
	checks = append(checks, file)

	keys := HealthCheck{ID: "C02", Name: "Model connection keys", Group: "configuration", Status: "pass", Detail: cfg.Model}
	if missing := cfg.MissingAIKeys(); len(missing) > 0 {
		keys.Status = "warn"
		keys.Detail = "missing " + strings.Join(missing, ", ") + " (clear, copy and list generation still work)"
		keys.Advice = "Set api_key, base_url and model to enable translate/transform and AI generation"
	}
	checks = append(checks, keys)

	vocab := cfg.Parser.Vocabulary()
	checks = append(checks, HealthCheck{
		ID: "C03", Name: "Parser vocabulary", Group: "configuration", Status: "pass",
		Detail: fmt.Sprintf("%d write verbs, %d clear keywords", len(vocab.WriteVerbs), len(vocab.ClearKeywords)),
	})

	storage := HealthCheck{ID: "S01", Name: "Operation history", Group: "storage", Status: "pass", Detail: cfg.StatePath}
	if !cfg.History {
		storage.Status = "skip"
		storage.Detail = "disabled (history: false)"
	} else if store, err := state.OpenStore(cfg.StatePath, nil); err != nil {
		storage.Status = "error"
		storage.Detail = err.Error()
		storage.Advice = "Point state_path at a writable location or set history: false"
	} else {
		_ = store.Close()
	}
	checks = append(checks, storage)

	model := HealthCheck{ID: "M01", Name: "Model endpoint", Group: "model"}
	switch client, err := newClient(cfg, nil); {
	case offline:
		model.Status = "skip"
		model.Detail = "skipped (--offline)"
	case err != nil:
		model.Status = "skip"
		model.Detail = "not configured"
	default:
		ping := runPing(ctx, client, cfg.BaseURL, client.Model())
		if ping.OK {
			model.Status = "pass"
			model.Detail = fmt.Sprintf("%s answered in %dms", ping.Model, ping.LatencyMS)
		} else {
			model.Status = "error"
			model.Detail = ping.Error
			model.Advice = "Check base_url and api_key, then retry with 'leapsheet ping'"
		}
	}
	checks = append(checks, model)

	return &DoctorOutput{
		HealthChecks:    checks,
		Score:           calculateHealthScore(checks),
		Recommendations: generateRecommendations(checks),
	}
}

// calculateHealthScore computes a score from 0-100: warnings cost 10
// points, errors 25.
func calculateHealthScore(checks []HealthCheck) int {
	score := 100
	for _, check := range checks {
		switch check.Status {
		case "error":
			score -= 25
		case "warn":
			score -= 10
		}
	}
	return max(score, 0)
}

func generateRecommendations(checks []HealthCheck) []string {
	var recommendations []string
	for _, check := range checks {
		if check.Advice != "" && (check.Status == "warn" || check.Status == "error") {
			recommendations = append(recommendations, check.Advice)
		}
	}
	return recommendations
}

func statusLabel(status string) string {
	switch status {
	case "warn":
		return "WARN"
	case "error":
		return "ERROR"
	case "skip":
		return "SKIP"
	default:
		return "PASS"
	}
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) error {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header.Render("LeapSheet Health Report"))
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println("")
			r.Println(styles.Key.Render("   " + titleCaser.String(currentGroup)))
			r.Println(styles.Muted.Render("   " + strings.Repeat("-", 40)))
		}

		icon := styles.Success.Render(styles.IconOK())
		switch check.Status {
		case "warn":
			icon = styles.Warning.Render("!")
		case "error":
			icon = styles.Error.Render(styles.IconFail())
		case "skip":
			icon = styles.Muted.Render("-")
		}
		line := fmt.Sprintf("   %s %s: %s", icon, check.ID, check.Name)
		if check.Detail != "" {
			line += " " + styles.Muted.Render("("+check.Detail+")")
		}
		r.Println(line)
	}
	r.Println("")

	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	scoreStyle := styles.Success
	if out.Score < 90 {
		scoreStyle = styles.Warning
	}
	if out.Score < 60 {
		scoreStyle = styles.Error
	}
	r.Printf("   Health Score: %s\n", scoreStyle.Render(fmt.Sprintf("%d/100", out.Score)))
	r.Println("")

	if len(out.Recommendations) > 0 {
		r.Println(styles.Header.Render("Recommendations"))
		for i, rec := range out.Recommendations {
			r.Printf("   %d. %s\n", i+1, rec)
		}
		r.Println("")
	}
	return nil
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) error {
	r.Println("# LeapSheet Health Report")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println("")
			r.Println("## " + titleCaser.String(currentGroup))
			r.Println("")
		}
		r.Printf("- **[%s]** %s: %s", statusLabel(check.Status), check.ID, check.Name)
		if check.Detail != "" {
			r.Printf(" (%s)", check.Detail)
		}
		r.Println("")
	}
	r.Println("")

	r.Println("## Health Score")
	r.Println("")
	r.Printf("**%d/100**\n", out.Score)

	if len(out.Recommendations) > 0 {
		r.Println("")
		r.Println("## Recommendations")
		r.Println("")
		for i, rec := range out.Recommendations {
			r.Printf("%d. %s\n", i+1, rec)
		}
	}
	return nil
}
