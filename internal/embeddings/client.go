// Package embeddings generates document vectors through an
// OpenAI-compatible embeddings endpoint, typically Docker Model Runner.
package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"unicode/utf8"
)

// dmrPath is the Docker Model Runner embeddings route on its engine socket.
const dmrPath = "/exp/vDD4.40/engines/llama.cpp/v1/embeddings"

// Config holds embeddings client configuration.
type Config struct {
	SocketPath string // Unix socket of Docker Model Runner
	URL        string // full endpoint URL; used instead of SocketPath when set
	Model      string // e.g. "ai/embeddinggemma"
}

// Client calls the embeddings API.
type Client struct {
	httpClient *http.Client
	endpoint   string
	model      string
}

// New creates an embeddings client.
func New(config Config) (*Client, error) {
	if config.SocketPath == "" && config.URL == "" {
		return nil, errors.New("socket path or URL is required")
	}
	if config.Model == "" {
		return nil, errors.New("model is required")
	}

	if config.URL != "" {
		return &Client{
			httpClient: &http.Client{},
			endpoint:   config.URL,
			model:      config.Model,
		}, nil
	}

	var dialer net.Dialer
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			return dialer.DialContext(ctx, "unix", config.SocketPath)
		},
	}

	return &Client{
		httpClient: &http.Client{Transport: transport},
		endpoint:   "http://localhost" + dmrPath,
		model:      config.Model,
	}, nil
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// MaxInputChars keeps input within the model context window
// (about 5000 tokens for embeddinggemma's 2048-token window at
// roughly four bytes per token, with margin).
const MaxInputChars = 8000

// Embed returns the vector for text. Longer text is cut at MaxInputChars
// bytes, on a rune boundary.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("empty input")
	}

	originalLen := len(text)
	text = truncate(text, MaxInputChars)
	slog.Debug("generating embedding", "original_len", originalLen, "truncated_len", len(text))

	body, err := json.Marshal(embeddingRequest{Model: c.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(respBody, &embResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if embResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", embResp.Error.Message)
	}
	if len(embResp.Data) == 0 {
		return nil, errors.New("no embedding returned")
	}

	return embResp.Data[0].Embedding, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// Dimensions returns the vector size of known models.
func Dimensions(model string) int {
	switch model {
	case "ai/snowflake-arctic-embed":
		return 1024
	case "ai/qwen3-embedding":
		return 2560
	default: // ai/embeddinggemma, ai/nomic-embed-text-v1.5
		return 768
	}
}
