// Package gemini implements ai.Provider on Google Gemini.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"google.golang.org/api/iterator"
	"google.golang.org/genai"

	"fernweh/pkg/config"
	"fernweh/pkg/tracker"
)

const defaultModel = "gemini-2.5-flash-lite"

// Client talks to the Gemini API. A client without an API key stays in
// a degraded state where every generation call fails; startup proceeds
// so the rest of the service keeps working.
type Client struct {
	genaiClient *genai.Client
	apiKey      string
	modelName   string
	tracker     *tracker.Tracker

	mu sync.RWMutex
}

// New creates a Gemini client.
func New(cfg config.LLMConfig, trk *tracker.Tracker) (*Client, error) {
	c := &Client{tracker: trk}
	if err := c.Configure(cfg); err != nil {
		return nil, err
	}
	return c, nil
}

// Configure (re)applies settings.
func (c *Client) Configure(cfg config.LLMConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.apiKey = cfg.Key
	c.modelName = cfg.Model
	if c.modelName == "" {
		c.modelName = defaultModel
	}

	if c.apiKey == "" {
		c.genaiClient = nil
		return nil
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: c.apiKey,
	})
	if err != nil {
		return fmt.Errorf("create genai client: %w", err)
	}
	c.genaiClient = client

	// Warn-only: a flaky API at startup must not block the service.
	// A truly invalid key or model fails on the first generation call.
	if err := c.validateModel(context.Background()); err != nil {
		slog.Warn("Gemini: model validation failed, proceeding", "error", err)
	}

	return nil
}

func (c *Client) client() (*genai.Client, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.genaiClient, c.modelName
}

// GenerateText sends a prompt and returns the text response.
func (c *Client) GenerateText(ctx context.Context, task, prompt string) (string, error) {
	client, model := c.client()
	if client == nil {
		return "", fmt.Errorf("gemini client not configured")
	}

	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), &genai.GenerateContentConfig{})
	if err != nil {
		c.trackFailure()
		return "", fmt.Errorf("generate text (%s): %w", task, err)
	}

	text, err := responseText(resp)
	if err != nil {
		c.trackFailure()
		return "", err
	}
	c.trackSuccess()
	return text, nil
}

// GenerateJSON sends a prompt and unmarshals the response into target.
func (c *Client) GenerateJSON(ctx context.Context, task, prompt string, target any) error {
	client, model := c.client()
	if client == nil {
		return fmt.Errorf("gemini client not configured")
	}

	cfg := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), cfg)
	if err != nil {
		c.trackFailure()
		return fmt.Errorf("generate json (%s): %w", task, err)
	}

	text, err := responseText(resp)
	if err != nil {
		c.trackFailure()
		return err
	}

	// Models still wrap JSON in markdown fences now and then, MIME type
	// notwithstanding
	cleaned := cleanJSONBlock(text)
	if err := json.Unmarshal([]byte(cleaned), target); err != nil {
		c.trackFailure()
		return fmt.Errorf("unmarshal response (%s): %w. Response: %s", task, err, cleaned)
	}

	c.trackSuccess()
	return nil
}

// HealthCheck verifies the key is present and the configured model is
// reachable with it.
func (c *Client) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	client, key, model := c.genaiClient, c.apiKey, c.modelName
	c.mu.RUnlock()

	if key == "" {
		return fmt.Errorf("gemini: no API key configured")
	}
	if client == nil {
		return fmt.Errorf("gemini: client not initialized")
	}
	if _, err := client.Models.Get(ctx, qualifyModel(model), nil); err != nil {
		return fmt.Errorf("gemini: model %s unavailable: %w", model, err)
	}
	return nil
}

// Close releases the API client.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.genaiClient = nil
}

func (c *Client) trackSuccess() {
	if c.tracker != nil {
		c.tracker.TrackAPISuccess("gemini")
	}
}

func (c *Client) trackFailure() {
	if c.tracker != nil {
		c.tracker.TrackAPIFailure("gemini")
	}
}

// validateModel checks that the configured model exists for this key,
// and on failure logs what is available.
func (c *Client) validateModel(ctx context.Context) error {
	_, err := c.genaiClient.Models.Get(ctx, qualifyModel(c.modelName), nil)
	if err == nil {
		slog.Debug("Gemini: model validated", "model", c.modelName)
		return nil
	}

	iter, listErr := c.genaiClient.Models.List(ctx, nil)
	if listErr != nil {
		return fmt.Errorf("model %s: %w", c.modelName, err)
	}

	var available []string
	for {
		m, nextErr := iter.Next(ctx)
		if nextErr == iterator.Done {
			break
		}
		if nextErr != nil {
			break
		}
		if strings.Contains(strings.ToLower(m.Name), "gemini") {
			available = append(available, m.Name)
		}
	}

	slog.Warn("Gemini: configured model not found", "model", c.modelName, "available", available)
	return fmt.Errorf("model %s not available for this key", c.modelName)
}

func qualifyModel(name string) string {
	if !strings.HasPrefix(name, "models/") {
		return "models/" + name
	}
	return name
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return sb.String(), nil
}

// cleanJSONBlock strips markdown code fences around a JSON payload.
func cleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)

	if idx := strings.Index(text, "```json"); idx >= 0 {
		text = text[idx+len("```json"):]
	} else if idx := strings.Index(text, "```"); idx >= 0 {
		text = text[idx+len("```"):]
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}

	return strings.TrimSpace(text)
}
