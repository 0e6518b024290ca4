package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// visionMarkers pick image-capable models out of a model listing.
var visionMarkers = []string{"vision", "vl", "multimodal", "image"}

// DescribeImage sends a PNG with a text prompt. Without p.Model it walks the
// vision candidates and moves to the next one only when a model rejects image
// input.
func (c *Client) DescribeImage(ctx context.Context, png []byte, system, prompt string, p Params) (string, error) {
	if len(png) == 0 {
		return "", errors.New("image is empty")
	}
	url := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
		{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: prompt},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
					URL:    url,
					Detail: openai.ImageURLDetailAuto,
				}},
			},
		},
	}

	candidates := []string{p.Model}
	if p.Model == "" {
		candidates = c.VisionCandidates(ctx)
	}

	var lastErr error
	for _, model := range candidates {
		params := p
		params.Model = model
		text, err := c.Call(ctx, messages, params)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !IsVisionUnsupported(err) {
			return "", err
		}
		c.logger.Info("model rejected image input, trying next candidate", "model", model, "error", err)
	}
	return "", fmt.Errorf("no vision-capable model among %s: %w", strings.Join(candidates, ", "), lastErr)
}

// VisionCandidates lists models to try for image input: discovered
// image-capable models first, then configured vision models, then the chat
// model. Discovery runs once per client; a failed listing is ignored.
func (c *Client) VisionCandidates(ctx context.Context) []string {
	c.discoverOnce.Do(func() {
		ids, err := c.ListModels(ctx)
		if err != nil {
			c.logger.Debug("model discovery failed", "error", err)
			return
		}
		for _, id := range ids {
			lowered := strings.ToLower(id)
			if containsAny(lowered, visionMarkers) {
				c.discovered = append(c.discovered, id)
			}
		}
	})

	var out []string
	seen := make(map[string]bool)
	for _, list := range [][]string{c.discovered, c.visionModels, {c.model}} {
		for _, m := range list {
			m = strings.TrimSpace(m)
			if m == "" || seen[m] {
				continue
			}
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}
