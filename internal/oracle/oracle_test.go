package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dvloznov/lifeos/internal/domain"
	"github.com/dvloznov/lifeos/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewOpenAI(Config{APIKey: "test-key", BaseURL: srv.URL + "/", Model: "test-model"})
	require.NoError(t, err)
	return c
}

func TestOpenAI_Generate(t *testing.T) {
	var got openAIRequest
	c := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"[{\"time\":\"9am\"}]"}}]}`))
	})

	out, err := c.Generate(context.Background(), pipeline.Prompt{System: "plan it", User: "gym at 9", JSON: true})
	require.NoError(t, err)
	assert.Equal(t, `[{"time":"9am"}]`, out)

	assert.Equal(t, "test-model", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, domain.RoleSystem, got.Messages[0].Role)
	assert.Equal(t, "plan it", got.Messages[0].Content)
	assert.Equal(t, domain.RoleUser, got.Messages[1].Role)
	assert.Equal(t, "gym at 9", got.Messages[1].Content)
	assert.Equal(t, "json_object", got.ResponseFormat["type"])
}

func TestOpenAI_Chat(t *testing.T) {
	var got openAIRequest
	c := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello"}}]}`))
	})

	out, err := c.Chat(context.Background(), []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: "be brief"},
		{Role: domain.RoleUser, Content: "hi"},
		{Role: domain.RoleAssistant, Content: "hey"},
		{Role: domain.RoleUser, Content: "how are you"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	assert.Len(t, got.Messages, 4)
	assert.Nil(t, got.ResponseFormat)
}

func TestOpenAI_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"api error message", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, "bad key"},
		{"no choices", http.StatusOK, `{"choices":[]}`, "no completion choices"},
		{"garbage", http.StatusBadGateway, `<html>`, "decode response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.Generate(context.Background(), pipeline.Prompt{User: "x"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOpenAI_ResponseTooLarge(t *testing.T) {
	body := `{"choices":[{"message":{"role":"assistant","content":"` + strings.Repeat("x", 256) + `"}}]}`
	c := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	})

	c.maxBytes = int64(len(body))
	out, err := c.Generate(context.Background(), pipeline.Prompt{User: "x"})
	require.NoError(t, err)
	assert.Len(t, out, 256)

	c.maxBytes = 64
	_, err = c.Generate(context.Background(), pipeline.Prompt{User: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 64 bytes")
}

func TestNewOpenAI_RequiresKey(t *testing.T) {
	_, err := NewOpenAI(Config{})
	assert.Error(t, err)
}

func TestNew_UnsupportedProvider(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: "carrier-pigeon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}

func TestNew_OpenAI(t *testing.T) {
	c, err := New(context.Background(), Config{Provider: "OpenAI", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, c.Provider())
	assert.Equal(t, defaultOpenAIModel, c.Model())
}

func TestToGeminiContents(t *testing.T) {
	system, contents := toGeminiContents([]domain.ChatMessage{
		{Role: domain.RoleSystem, Content: "rule one"},
		{Role: domain.RoleUser, Content: "hi"},
		{Role: domain.RoleAssistant, Content: "hello"},
		{Role: domain.RoleSystem, Content: "rule two"},
	})

	assert.Equal(t, "rule one\n\nrule two", system)
	require.Len(t, contents, 2)
	assert.Equal(t, roleUser, contents[0].Role)
	assert.Equal(t, "hi", contents[0].Parts[0].Text)
	assert.Equal(t, roleModel, contents[1].Role)
	assert.Equal(t, "hello", contents[1].Parts[0].Text)
}
