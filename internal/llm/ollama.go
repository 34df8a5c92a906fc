package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/rafabd1/cmd-ai/internal/config"
	"github.com/rafabd1/cmd-ai/internal/types"
)

// NoResponse is returned when the server reply carries no message content.
const NoResponse = "No response"

// ErrUnsupportedProvider is returned for any configured type other than ollama.
var ErrUnsupportedProvider = errors.New("Only Ollama is supported currently.")

// Client sends a chat conversation and returns the assistant's text.
type Client interface {
	Chat(ctx context.Context, messages []types.Message) (string, error)
}

// ChatRequest is the body of POST {url}/chat.
type ChatRequest struct {
	Model    string          `json:"model"`
	Messages []types.Message `json:"messages"`
	Stream   bool            `json:"stream"`
}

type chatResponse struct {
	Message *struct {
		Role    string  `json:"role"`
		Content *string `json:"content"`
	} `json:"message"`
}

// NewClient returns the client for cfg.Type. Unknown providers get a client
// whose every call fails with ErrUnsupportedProvider.
func NewClient(cfg *config.Config, logger *zap.Logger) Client {
	if !strings.EqualFold(strings.TrimSpace(cfg.Type), config.DefaultType) {
		return unsupportedClient{}
	}
	return NewOllamaClient(cfg, logger)
}

type unsupportedClient struct{}

func (unsupportedClient) Chat(context.Context, []types.Message) (string, error) {
	return "", ErrUnsupportedProvider
}

// OllamaClient talks to a local Ollama server's chat endpoint.
type OllamaClient struct {
	baseURL string
	model   string
	http    *http.Client
	logger  *zap.Logger
}

// NewOllamaClient builds a client from the model, url and timeout settings.
func NewOllamaClient(cfg *config.Config, logger *zap.Logger) *OllamaClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OllamaClient{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.URL), "/"),
		model:   cfg.Model,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:          10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		logger: logger,
	}
}

// Chat posts the conversation and returns message.content from the reply.
func (c *OllamaClient) Chat(ctx context.Context, messages []types.Message) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("llm chat requires at least one message")
	}
	payload, err := json.Marshal(ChatRequest{Model: c.model, Messages: messages, Stream: false})
	if err != nil {
		return "", errors.Wrap(err, "marshal request")
	}

	endpoint := c.baseURL + "/chat"
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(err, "create request")
	}
	request.Header.Set("Content-Type", "application/json")

	started := time.Now()
	c.logger.Debug("llm request", zap.String("endpoint", endpoint), zap.String("model", c.model), zap.Int("messages", len(messages)))

	resp, err := c.http.Do(request)
	if err != nil {
		return "", &ConnectionError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return "", &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", errors.Wrap(err, "decode response")
	}
	c.logger.Debug("llm response", zap.Int("status", resp.StatusCode), zap.Duration("elapsed", time.Since(started)))

	if decoded.Message == nil || decoded.Message.Content == nil {
		return NoResponse, nil
	}
	return *decoded.Message.Content, nil
}

// HTTPError reports a non-200 status from the chat endpoint.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d - %s", e.StatusCode, e.Body)
}

// ConnectionError reports a transport failure reaching the chat endpoint.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return e.Err.Error()
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// FailureText renders a Chat error as the text shown in place of a reply.
// The result is still valid input for command extraction.
func FailureText(err error) string {
	if errors.Is(err, ErrUnsupportedProvider) {
		return ErrUnsupportedProvider.Error()
	}
	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		return "Connection error: " + connErr.Error()
	}
	return "Error: " + err.Error()
}
