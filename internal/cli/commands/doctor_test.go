package commands

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapsheet/internal/cli/config"
	"github.com/leapstack-labs/leapsheet/internal/cli/output"
	"github.com/leapstack-labs/leapsheet/internal/cli/testutil"
)

func TestCalculateHealthScore(t *testing.T) {
	tests := []struct {
		name   string
		checks []HealthCheck
		want   int
	}{
		{name: "no checks returns 100", checks: nil, want: 100},
		{
			name:   "pass and skip cost nothing",
			checks: []HealthCheck{{Status: "pass"}, {Status: "skip"}},
			want:   100,
		},
		{
			name:   "warnings reduce score",
			checks: []HealthCheck{{Status: "pass"}, {Status: "warn"}, {Status: "warn"}},
			want:   80,
		},
		{
			name:   "errors reduce score more",
			checks: []HealthCheck{{Status: "error"}, {Status: "warn"}},
			want:   65,
		},
		{
			name:   "floors at zero",
			checks: []HealthCheck{{Status: "error"}, {Status: "error"}, {Status: "error"}, {Status: "error"}, {Status: "error"}},
			want:   0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, calculateHealthScore(tt.checks))
		})
	}
}

func TestGenerateRecommendations(t *testing.T) {
	checks := []HealthCheck{
		{ID: "C01", Status: "warn", Advice: "create a config"},
		{ID: "C02", Status: "pass", Advice: "ignored"},
		{ID: "S01", Status: "error", Advice: "fix storage"},
		{ID: "M01", Status: "skip"},
	}
	assert.Equal(t, []string{"create a config", "fix storage"}, generateRecommendations(checks))
}

func offlineConfig(statePath string, history bool) *config.Config {
	cfg := getConfig()
	cfg.StatePath = statePath
	cfg.History = history
	return cfg
}

func TestBuildDoctorOutput_Offline(t *testing.T) {
	out := buildDoctorOutput(context.Background(), offlineConfig(":memory:", true), "", true)

	byID := map[string]HealthCheck{}
	for _, c := range out.HealthChecks {
		byID[c.ID] = c
	}
	require.Len(t, byID, 5)
	assert.Equal(t, "warn", byID["C01"].Status)
	assert.Equal(t, "warn", byID["C02"].Status)
	assert.Contains(t, byID["C02"].Detail, "api_key")
	assert.Equal(t, "pass", byID["C03"].Status)
	assert.Equal(t, "pass", byID["S01"].Status)
	assert.Equal(t, "skip", byID["M01"].Status)

	assert.Equal(t, 80, out.Score)
	assert.Len(t, out.Recommendations, 2)
}

func TestBuildDoctorOutput_HistoryDisabled(t *testing.T) {
	out := buildDoctorOutput(context.Background(), offlineConfig("", false), "/p/leapsheet.yaml", true)
	for _, c := range out.HealthChecks {
		if c.ID == "S01" {
			assert.Equal(t, "skip", c.Status)
		}
		if c.ID == "C01" {
			assert.Equal(t, "pass", c.Status)
			assert.Equal(t, "/p/leapsheet.yaml", c.Detail)
		}
	}
}

func TestRenderDoctor(t *testing.T) {
	out := &DoctorOutput{
		HealthChecks: []HealthCheck{
			{ID: "C01", Name: "Config file", Group: "configuration", Status: "warn", Detail: "no leapsheet.yaml found"},
			{ID: "S01", Name: "Operation history", Group: "storage", Status: "pass"},
		},
		Score:           90,
		Recommendations: []string{"Run 'leapsheet init'"},
	}

	t.Run("markdown", func(t *testing.T) {
		tr := testutil.NewTestRendererMarkdown()
		require.NoError(t, renderDoctorMarkdown(tr.Renderer, out))
		s := tr.Output()
		testutil.AssertValidMarkdown(t, s)
		assert.Contains(t, s, "## Configuration")
		assert.Contains(t, s, "## Storage")
		assert.Contains(t, s, "- **[WARN]** C01: Config file (no leapsheet.yaml found)")
		assert.Contains(t, s, "**90/100**")
		assert.Contains(t, s, "1. Run 'leapsheet init'")
	})

	t.Run("text", func(t *testing.T) {
		tr := testutil.NewTestRenderer(output.ModeText, false)
		require.NoError(t, renderDoctorText(tr.Renderer, out))
		s := tr.Output()
		assert.Contains(t, s, "LeapSheet Health Report")
		assert.Contains(t, s, "Configuration")
		assert.Contains(t, s, "Health Score: 90/100")
	})

	t.Run("json hides advice", func(t *testing.T) {
		data, err := json.Marshal(HealthCheck{ID: "C01", Advice: "secret sauce"})
		require.NoError(t, err)
		assert.NotContains(t, string(data), "secret sauce")
	})
}
