package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafabd1/cmd-ai/internal/config"
	"github.com/rafabd1/cmd-ai/internal/types"
)

func testConfig(url string) *config.Config {
	cfg := config.Default()
	cfg.URL = url
	cfg.Model = "test-model"
	return cfg
}

func TestChatSendsRequestAndReadsContent(t *testing.T) {
	var got ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"model":"test-model","message":{"role":"assistant","content":"` + "```bash\\nls -la\\n```" + `"},"done":true}`))
	}))
	defer server.Close()

	client := NewOllamaClient(testConfig(server.URL+"/api/"), nil)
	msgs := []types.Message{
		{Role: types.RoleSystem, Content: "prefix"},
		{Role: types.RoleUser, Content: "list files"},
	}
	reply, err := client.Chat(context.Background(), msgs)
	require.NoError(t, err)

	assert.Equal(t, "```bash\nls -la\n```", reply)
	assert.Equal(t, "test-model", got.Model)
	assert.False(t, got.Stream)
	assert.Equal(t, msgs, got.Messages)
}

func TestChatMissingContent(t *testing.T) {
	cases := map[string]string{
		"no message": `{"done": true}`,
		"no content": `{"message": {"role": "assistant"}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer server.Close()

			reply, err := NewOllamaClient(testConfig(server.URL), nil).Chat(context.Background(), []types.Message{{Role: types.RoleUser, Content: "q"}})
			require.NoError(t, err)
			assert.Equal(t, NoResponse, reply)
		})
	}
}

func TestChatHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`model "phi4" not found`))
	}))
	defer server.Close()

	_, err := NewOllamaClient(testConfig(server.URL), nil).Chat(context.Background(), []types.Message{{Role: types.RoleUser, Content: "q"}})
	require.Error(t, err)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.Equal(t, `Error: HTTP 404 - model "phi4" not found`, FailureText(err))
}

func TestChatConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewOllamaClient(testConfig(url), nil).Chat(context.Background(), []types.Message{{Role: types.RoleUser, Content: "q"}})
	require.Error(t, err)

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.True(t, strings.HasPrefix(FailureText(err), "Connection error: "))
}

func TestChatHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewOllamaClient(testConfig(server.URL), nil).Chat(ctx, []types.Message{{Role: types.RoleUser, Content: "q"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestChatDecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	_, err := NewOllamaClient(testConfig(server.URL), nil).Chat(context.Background(), []types.Message{{Role: types.RoleUser, Content: "q"}})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(FailureText(err), "Error: decode response"))
}

func TestChatRequiresMessages(t *testing.T) {
	_, err := NewOllamaClient(testConfig("http://127.0.0.1:1"), nil).Chat(context.Background(), nil)
	assert.Error(t, err)
}

func TestNewClientProviders(t *testing.T) {
	cfg := config.Default()
	_, ok := NewClient(cfg, nil).(*OllamaClient)
	assert.True(t, ok)

	cfg.Type = "openai"
	client := NewClient(cfg, nil)
	_, err := client.Chat(context.Background(), []types.Message{{Role: types.RoleUser, Content: "q"}})
	assert.ErrorIs(t, err, ErrUnsupportedProvider)
	assert.Equal(t, "Only Ollama is supported currently.", FailureText(err))
}
