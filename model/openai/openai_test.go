package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/coopdesk/core"
	"github.com/hupe1980/coopdesk/model"
)

const toolCallResponse = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1,
  "model": "gpt-4o-mini",
  "choices": [{
    "index": 0,
    "finish_reason": "tool_calls",
    "message": {
      "role": "assistant",
      "content": null,
      "tool_calls": [{
        "id": "call_xyz",
        "type": "function",
        "function": {"name": "consultar_vivienda", "arguments": "{\"query\":\"subsidio\"}"}
      }]
    }
  }],
  "usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
}`

type chatRequest struct {
	Model    string           `json:"model"`
	Messages []map[string]any `json:"messages"`
	Tools    []map[string]any `json:"tools"`
}

func TestModel_Generate(t *testing.T) {
	var got chatRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(toolCallResponse))
	}))
	t.Cleanup(srv.Close)

	m := NewModel(func(o *Options) {
		o.APIKey = "test"
		o.BaseURL = srv.URL
	})

	call := core.FunctionCall{ID: "call_abc", Name: "to_vivienda", Arguments: `{"request":"subsidio"}`}

	req := model.Request{
		Instructions: "Eres el asistente de vivienda.",
		Contents: []core.Content{
			core.NewUserMessage("¿qué subsidios hay?").Content,
			core.NewFunctionCallMessage("primary", "", call).Content,
			core.NewToolResultMessage("enter_vivienda", call, "handoff", nil).Content,
		},
		Tools: []model.ToolDefinition{{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        "consultar_vivienda",
				Description: "Busca información de vivienda",
				Parameters:  map[string]any{"type": "object", "properties": map[string]any{"query": map[string]any{"type": "string"}}},
			},
		}},
	}

	resp, err := model.Generate(context.Background(), m, req)
	require.NoError(t, err)

	calls := core.Message{Content: resp.Content}.FunctionCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "call_xyz", calls[0].ID)
	assert.Equal(t, "consultar_vivienda", calls[0].Name)
	assert.JSONEq(t, `{"query":"subsidio"}`, calls[0].Arguments)
	assert.Equal(t, 15, resp.Usage.TotalTokens)

	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, "system", got.Messages[0]["role"])
	assert.Equal(t, "assistant", got.Messages[2]["role"])
	assert.Equal(t, "tool", got.Messages[3]["role"])
	assert.Equal(t, "call_abc", got.Messages[3]["tool_call_id"])
	require.Len(t, got.Tools, 1)
}

func TestModel_GenerateAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad request","type":"invalid_request_error"}}`))
	}))
	t.Cleanup(srv.Close)

	m := NewModel(func(o *Options) {
		o.APIKey = "test"
		o.BaseURL = srv.URL
	})

	_, err := model.Generate(context.Background(), m, model.Request{Contents: []core.Content{core.NewUserMessage("hola").Content}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai api error")
	assert.Equal(t, "openai", m.Info().Provider)
}
