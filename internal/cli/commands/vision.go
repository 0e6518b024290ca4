package commands

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapsheet/internal/cli/output"
	"github.com/leapstack-labs/leapsheet/internal/llm"
)

const (
	visionSystemPrompt  = "You are a visual assistant. Describe what the image shows concisely."
	defaultVisionPrompt = "Describe this image. If it shows a spreadsheet, name its columns " +
		"and summarise the data."
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// VisionOutput is the JSON output for the vision command.
type VisionOutput struct {
	Image       string `json:"image"`
	Model       string `json:"model,omitempty"`
	Description string `json:"description"`
}

// NewVisionCommand creates the vision command.
func NewVisionCommand() *cobra.Command {
	var (
		prompt string
		model  string
	)

	cmd := &cobra.Command{
		Use:   "vision <image.png>",
		Short: "Describe a PNG image with a vision-capable model",
		Long: `Send a PNG image to the model endpoint and print its description.

Without --model, image-capable models advertised by the endpoint are tried
first, then vision_models from the configuration, then the chat model. A
model that rejects image input is skipped.`,
		Example: `  leapsheet vision screenshot.png
  leapsheet vision chart.png --prompt "What trend does this chart show?"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContextWithoutSession(cmd)
			client, err := newClient(cmdCtx.Cfg, cmdCtx.Logger)
			if err != nil {
				return notConfiguredError(err)
			}

			png, err := readPNG(args[0])
			if err != nil {
				return err
			}

			text, err := client.DescribeImage(cmd.Context(), png, visionSystemPrompt, prompt, llm.Params{
				Temperature: float32(cmdCtx.Cfg.Temperature),
				MaxTokens:   cmdCtx.Cfg.MaxTokens,
				Model:       model,
			})
			if err != nil {
				return fmt.Errorf("image description failed: %w", err)
			}

			out := VisionOutput{Image: args[0], Model: model, Description: text}
			r := cmdCtx.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(out)
			}
			r.Println(strings.TrimSpace(text))
			return nil
		},
	}

	cmd.Flags().StringVarP(&prompt, "prompt", "p", defaultVisionPrompt, "Question to ask about the image")
	cmd.Flags().StringVar(&model, "vision-model", "", "Use this model only")

	return cmd
}

func readPNG(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if !bytes.HasPrefix(data, pngSignature) {
		return nil, fmt.Errorf("%s is not a PNG image", path)
	}
	return data, nil
}
