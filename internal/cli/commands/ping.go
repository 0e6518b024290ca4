package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapsheet/internal/cli/output"
	"github.com/leapstack-labs/leapsheet/internal/llm"
)

// PingOutput is the JSON output for the ping command.
type PingOutput struct {
	Endpoint  string   `json:"endpoint"`
	Model     string   `json:"model"`
	OK        bool     `json:"ok"`
	Reply     string   `json:"reply,omitempty"`
	Error     string   `json:"error,omitempty"`
	LatencyMS int64    `json:"latency_ms"`
	Models    []string `json:"models,omitempty"`
	ModelsErr string   `json:"models_error,omitempty"`
}

// pinger is the part of the model client the ping command uses.
type pinger interface {
	Ping(ctx context.Context) (string, error)
	ListModels(ctx context.Context) ([]string, error)
}

// NewPingCommand creates the ping command.
func NewPingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check the model endpoint and list the models it offers",
		Long: `Send a short test prompt to the configured model and, at the same time,
ask the endpoint for its model list. Useful to verify api_key, base_url and
model before running AI instructions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContextWithoutSession(cmd)
			client, err := newClient(cmdCtx.Cfg, cmdCtx.Logger)
			if err != nil {
				return notConfiguredError(err)
			}
			out := runPing(cmd.Context(), client, cmdCtx.Cfg.BaseURL, client.Model())
			if err := renderPing(cmdCtx.Renderer, out); err != nil {
				return err
			}
			if !out.OK {
				return ErrOperationFailed
			}
			return nil
		},
	}
}

func runPing(ctx context.Context, client pinger, endpoint, model string) PingOutput {
	if ctx == nil {
		ctx = context.Background()
	}
	out := PingOutput{Endpoint: endpoint, Model: model}

	// Failures are recorded in out; the group never cancels its siblings.
	var g errgroup.Group
	g.Go(func() error {
		start := time.Now()
		reply, err := client.Ping(ctx)
		out.LatencyMS = time.Since(start).Milliseconds()
		if err != nil {
			out.Error = err.Error()
			return nil
		}
		out.OK = true
		out.Reply = reply
		return nil
	})
	g.Go(func() error {
		models, err := client.ListModels(ctx)
		if err != nil {
			out.ModelsErr = err.Error()
			return nil
		}
		out.Models = models
		return nil
	})
	_ = g.Wait()
	return out
}

func renderPing(r *output.Renderer, out PingOutput) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}
	r.Header(2, "Model endpoint")
	r.KeyValue("Endpoint", out.Endpoint)
	r.KeyValue("Model", out.Model)
	if out.OK {
		r.Success(fmt.Sprintf("Connected in %dms: %s", out.LatencyMS, out.Reply))
	} else {
		r.Error("Connection failed: " + out.Error)
	}
	switch {
	case out.ModelsErr != "":
		r.Muted("Model list unavailable: " + out.ModelsErr)
	case len(out.Models) > 0:
		r.KeyValue("Available models", strings.Join(out.Models, ", "))
	}
	return nil
}

// notConfiguredError adds a hint to a missing-configuration error.
func notConfiguredError(err error) error {
	if errors.Is(err, llm.ErrNotConfigured) {
		return fmt.Errorf("%w\nHint: set them in leapsheet.yaml (see 'leapsheet init') or as LEAPSHEET_API_KEY, LEAPSHEET_BASE_URL and LEAPSHEET_MODEL", err)
	}
	return err
}
