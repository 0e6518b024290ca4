// Package llm is the resilient client for OpenAI-compatible chat endpoints.
//
// Every call goes through the circuit breaker, then a bounded retry loop with
// exponential backoff. Batches run strictly in order and stop early when the
// endpoint reports overload.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Defaults applied when Config leaves a field zero.
const (
	DefaultTimeout    = 60 * time.Second
	DefaultMaxRetries = 4
	DefaultBatchDelay = 100 * time.Millisecond
	DefaultMaxTokens  = 500
	maxBackoff        = 18 * time.Second
	maxJitter         = 0.6
)

// ChatCompleter is the subset of the go-openai client used here.
// *openai.Client satisfies it.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	ListModels(ctx context.Context) (openai.ModelsList, error)
}

// Config holds connection settings.
type Config struct {
	APIKey       string
	BaseURL      string
	Model        string
	VisionModels []string
	Timeout      time.Duration
	// MaxRetries is the number of attempts after the first. Negative means
	// DefaultMaxRetries; zero disables retries.
	MaxRetries int
	Cooldown   time.Duration
	BatchDelay time.Duration
	Logger     *slog.Logger
}

// Missing lists the required settings that are empty.
func (c Config) Missing() []string {
	var missing []string
	if strings.TrimSpace(c.APIKey) == "" {
		missing = append(missing, "api_key")
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		missing = append(missing, "base_url")
	}
	if strings.TrimSpace(c.Model) == "" {
		missing = append(missing, "model")
	}
	return missing
}

// Params controls a single completion.
type Params struct {
	Temperature float32
	MaxTokens   int
	// Model overrides the client's default model.
	Model string
}

// Option customises a Client.
type Option func(*Client)

// WithTransport replaces the go-openai client, e.g. with a test double.
func WithTransport(api ChatCompleter) Option {
	return func(c *Client) { c.api = api }
}

// WithSleep replaces the backoff sleeper.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = fn }
}

// WithJitter replaces the jitter source. fn returns seconds in [0, 0.6).
func WithJitter(fn func() float64) Option {
	return func(c *Client) { c.jitter = fn }
}

// WithBreaker shares or replaces the circuit breaker.
func WithBreaker(b *Breaker) Option {
	return func(c *Client) { c.breaker = b }
}

// Client performs chat completions with retry, backoff and a circuit breaker.
// It is safe for concurrent use, but batches are sequential.
type Client struct {
	api          ChatCompleter
	model        string
	visionModels []string
	timeout      time.Duration
	maxRetries   int
	batchDelay   time.Duration
	breaker      *Breaker
	logger       *slog.Logger
	sleep        func(ctx context.Context, d time.Duration) error
	jitter       func() float64

	discoverOnce sync.Once
	discovered   []string
}

// New validates cfg and builds a client. It fails with ErrNotConfigured when
// api_key, base_url or model is missing.
func New(cfg Config, opts ...Option) (*Client, error) {
	if missing := cfg.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrNotConfigured, strings.Join(missing, ", "))
	}

	c := &Client{
		model:        strings.TrimSpace(cfg.Model),
		visionModels: cfg.VisionModels,
		timeout:      cfg.Timeout,
		maxRetries:   cfg.MaxRetries,
		batchDelay:   cfg.BatchDelay,
		logger:       cfg.Logger,
		sleep:        sleepContext,
		jitter:       func() float64 { return rand.Float64() * maxJitter },
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.maxRetries < 0 {
		c.maxRetries = DefaultMaxRetries
	}
	if c.batchDelay < 0 {
		c.batchDelay = DefaultBatchDelay
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}

	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		c.breaker = NewBreaker(cfg.Cooldown, nil)
	}
	if c.api == nil {
		oc := openai.DefaultConfig(cfg.APIKey)
		oc.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
		c.api = openai.NewClientWithConfig(oc)
	}
	return c, nil
}

// Model is the default chat model.
func (c *Client) Model() string { return c.model }

// Breaker exposes the client's circuit breaker.
func (c *Client) Breaker() *Breaker { return c.breaker }

// Call sends messages and returns the reply text.
func (c *Client) Call(ctx context.Context, messages []openai.ChatCompletionMessage, p Params) (string, error) {
	if err := c.breaker.Allow(); err != nil {
		return "", err
	}

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
	}
	if p.Model != "" {
		req.Model = p.Model
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = DefaultMaxTokens
	}

	attempts := c.maxRetries + 1
	var (
		lastErr error
		class   Class
		tried   int
	)
	for attempt := 0; attempt < attempts; attempt++ {
		tried = attempt + 1
		text, err := c.complete(ctx, req)
		if err == nil {
			c.logger.Debug("model call succeeded", "model", req.Model, "attempt", tried)
			return text, nil
		}
		if errors.Is(err, ErrEmptyResponse) {
			return "", err
		}

		lastErr = err
		class = Classify(err)
		c.logger.Warn("model call failed",
			"model", req.Model,
			"attempt", tried,
			"max", attempts,
			"class", class.String(),
			"error", err)

		if class == ClassPermanent || ctx.Err() != nil {
			break
		}
		if attempt < c.maxRetries {
			if serr := c.sleep(ctx, c.backoff(attempt, class)); serr != nil {
				break
			}
		}
	}

	if class == ClassConnection {
		c.breaker.Trip(lastErr.Error())
		c.logger.Warn("circuit breaker opened", "reason", lastErr.Error())
	}
	return "", &CallError{Class: class, Attempts: tried, Err: lastErr}
}

func (c *Client) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(callCtx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := extractText(resp.Choices[0].Message)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// extractText accepts both plain string content and multi-part content.
func extractText(msg openai.ChatCompletionMessage) string {
	if s := strings.TrimSpace(msg.Content); s != "" {
		return s
	}
	var parts []string
	for _, part := range msg.MultiContent {
		if s := strings.TrimSpace(part.Text); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// backoff is base*2^attempt plus jitter, capped at 18s. Overload uses the
// slowest base, connection failures the middle one.
func (c *Client) backoff(attempt int, class Class) time.Duration {
	return backoffDelay(attempt, class, c.jitter())
}

func backoffDelay(attempt int, class Class, jitter float64) time.Duration {
	base := 0.8
	switch class {
	case ClassOverload:
		base = 2.0
	case ClassConnection:
		base = 1.5
	}
	secs := base*math.Pow(2, float64(attempt)) + jitter
	d := time.Duration(secs * float64(time.Second))
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// GenerateText sends a system and a user prompt.
func (c *Client) GenerateText(ctx context.Context, system, user string, p Params) (string, error) {
	return c.Call(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
		{Role: openai.ChatMessageRoleUser, Content: user},
	}, p)
}

// CellTask is one cell handed to the model.
type CellTask struct {
	Row     int
	Column  string
	Content string
	// Context is appended to the prompt as "key: value" lines.
	Context map[string]string
}

// CellResult is the outcome for one CellTask. Value is set only on success.
type CellResult struct {
	Row     int
	Column  string
	Value   string
	Success bool
	Err     error
}

// CellPrompt renders the user prompt for a cell.
func CellPrompt(directive string, task CellTask) string {
	var b strings.Builder
	b.WriteString(directive)
	b.WriteString("\n\nCell content:\n")
	b.WriteString(task.Content)
	if len(task.Context) > 0 {
		b.WriteString("\n\nContext:\n")
		keys := make([]string, 0, len(task.Context))
		for k := range task.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", k, task.Context[k])
		}
	}
	return b.String()
}

// ProcessCell applies directive to one cell.
func (c *Client) ProcessCell(ctx context.Context, task CellTask, system, directive string, p Params) (string, error) {
	return c.GenerateText(ctx, system, CellPrompt(directive, task), p)
}

// CallBatch processes cells in order and returns one result per cell, in
// input order. progress, if set, is called with (done, total) after each
// cell. An overload failure fails every remaining cell with the same error
// without further calls; other failures do not stop the batch. The batch
// delay follows successful cells only.
func (c *Client) CallBatch(ctx context.Context, cells []CellTask, system, directive string, p Params, progress func(done, total int)) []CellResult {
	total := len(cells)
	results := make([]CellResult, 0, total)

	for i, task := range cells {
		value, err := c.ProcessCell(ctx, task, system, directive, p)
		res := CellResult{Row: task.Row, Column: task.Column}
		if err != nil {
			res.Err = err
		} else {
			res.Value = value
			res.Success = true
		}
		results = append(results, res)
		if progress != nil {
			progress(i+1, total)
		}

		if err != nil && (Classify(err) == ClassOverload || ctx.Err() != nil) {
			c.logger.Warn("batch stopped early", "done", i+1, "total", total, "error", err)
			for _, rest := range cells[i+1:] {
				results = append(results, CellResult{Row: rest.Row, Column: rest.Column, Err: err})
			}
			if progress != nil && i+1 < total {
				progress(total, total)
			}
			break
		}

		if err == nil && i < total-1 && c.batchDelay > 0 {
			if serr := c.sleep(ctx, c.batchDelay); serr != nil {
				c.logger.Debug("batch delay interrupted", "error", serr)
			}
		}
	}
	return results
}

// Ping sends a trivial prompt and returns the reply.
func (c *Client) Ping(ctx context.Context) (string, error) {
	return c.GenerateText(ctx,
		"You are a connectivity test assistant.",
		"Reply with: connection OK",
		Params{Temperature: 0, MaxTokens: 20})
}

// ListModels returns the model IDs the endpoint advertises, sorted.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	if err := c.breaker.Allow(); err != nil {
		return nil, err
	}
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	list, err := c.api.ListModels(callCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		if m.ID != "" {
			ids = append(ids, m.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
