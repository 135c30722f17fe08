// Package ai calls the hosted language model that standardizes schedule
// headers and groups rows into NRM sections.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"nrm-schedules/internal/metrics"
)

const (
	apiVersion = "2023-06-01"

	// MaxResponseSize caps the body read from the model endpoint.
	MaxResponseSize = 10 * 1024 * 1024
)

var (
	ErrService  = errors.New("ai service error")
	ErrResponse = errors.New("ai response could not be understood")
)

type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	MaxTokens  int
	GroupBatch int
	Timeout    time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 8192
	}
	if cfg.GroupBatch <= 0 {
		cfg.GroupBatch = 200
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// complete sends one prompt and decodes the JSON object found in the reply into out.
func (c *Client) complete(ctx context.Context, operation, system, prompt string, out any) (err error) {
	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.AICallsTotal.WithLabelValues(operation, status).Inc()
		metrics.AICallDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}()

	body, err := json.Marshal(messagesRequest{
		Model:     c.cfg.Model,
		MaxTokens: c.cfg.MaxTokens,
		System:    system,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrService, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrService, err)
	}

	var parsed messagesResponse
	decodeErr := json.Unmarshal(raw, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(raw))
		if parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		return fmt.Errorf("%w: status %d: %s", ErrService, resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrResponse, decodeErr)
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	obj, ok := extractJSON(text.String())
	if !ok {
		return fmt.Errorf("%w: no JSON object in reply", ErrResponse)
	}
	if err := json.Unmarshal([]byte(obj), out); err != nil {
		return fmt.Errorf("%w: %v", ErrResponse, err)
	}
	return nil
}

// extractJSON returns the outermost {...} span of s, ignoring code fences and prose.
func extractJSON(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
