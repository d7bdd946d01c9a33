package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAIClient_Chat(t *testing.T) {
	var gotAuth string
	var gotReq chatCompletionRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotReq)

		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-123",
			"model":   "llama-3.3-70b-versatile",
			"created": 1700000000,
			"choices": []map[string]any{
				{
					"index": 0,
					"message": map[string]any{
						"role":    "assistant",
						"content": "All done!",
					},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]any{
				"prompt_tokens":     10,
				"completion_tokens": 5,
				"total_tokens":      15,
			},
		})
	}))
	defer srv.Close()

	c := NewOpenAIClient(srv.URL, "test-key", nil)
	resp, err := c.Chat(context.Background(), "llama-3.3-70b-versatile", []Message{
		{Role: "user", Content: "hello"},
	}, nil)
	if err != nil {
		t.Fatalf("Chat error: %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("auth = %q, want Bearer test-key", gotAuth)
	}
	if gotReq.Temperature != DefaultTemperature {
		t.Errorf("temperature = %v, want %v", gotReq.Temperature, DefaultTemperature)
	}
	if gotReq.MaxTokens != DefaultMaxTokens {
		t.Errorf("max_tokens = %d, want %d", gotReq.MaxTokens, DefaultMaxTokens)
	}
	if gotReq.ToolChoice != "" {
		t.Errorf("tool_choice = %q, want empty without tools", gotReq.ToolChoice)
	}
	if resp.Message.Content != "All done!" {
		t.Errorf("content = %q, want %q", resp.Message.Content, "All done!")
	}
	if resp.FinishReason != "stop" {
		t.Errorf("finish_reason = %q, want stop", resp.FinishReason)
	}
	if resp.InputTokens != 10 || resp.OutputTokens != 5 {
		t.Errorf("tokens = %d/%d, want 10/5", resp.InputTokens, resp.OutputTokens)
	}
}

func TestOpenAIClient_Chat_ToolCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatCompletionRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.ToolChoice != "auto" {
			t.Errorf("tool_choice = %q, want auto", req.ToolChoice)
		}
		if len(req.Tools) != 1 {
			t.Errorf("tools len = %d, want 1", len(req.Tools))
		}

		json.NewEncoder(w).Encode(map[string]any{
			"model": "llama-3.3-70b-versatile",
			"choices": []map[string]any{
				{
					"message": map[string]any{
						"role":    "assistant",
						"content": "",
						"tool_calls": []map[string]any{
							{
								"id":   "call_abc",
								"type": "function",
								"function": map[string]any{
									"name":      "add_task",
									"arguments": `{"title":"Buy milk"}`,
								},
							},
						},
					},
					"finish_reason": "tool_calls",
				},
			},
		})
	}))
	defer srv.Close()

	c := NewOpenAIClient(srv.URL, "test-key", nil)
	tools := []map[string]any{
		{"type": "function", "function": map[string]any{"name": "add_task"}},
	}
	resp, err := c.Chat(context.Background(), "llama-3.3-70b-versatile", []Message{
		{Role: "user", Content: "add buy milk"},
	}, tools)
	if err != nil {
		t.Fatalf("Chat error: %v", err)
	}

	if len(resp.Message.ToolCalls) != 1 {
		t.Fatalf("tool calls = %d, want 1", len(resp.Message.ToolCalls))
	}
	tc := resp.Message.ToolCalls[0]
	if tc.ID != "call_abc" {
		t.Errorf("id = %q, want call_abc", tc.ID)
	}
	if tc.Function.Name != "add_task" {
		t.Errorf("name = %q, want add_task", tc.Function.Name)
	}
	// Arguments must survive as the raw JSON string
	if tc.Function.Arguments != `{"title":"Buy milk"}` {
		t.Errorf("arguments = %q, want raw JSON string", tc.Function.Arguments)
	}
}

func TestOpenAIClient_Chat_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(srv.URL, "bad-key", nil)
	_, err := c.Chat(context.Background(), "m", []Message{{Role: "user", Content: "hi"}}, nil)
	if err == nil {
		t.Fatal("expected error on 401")
	}
}

func TestOpenAIClient_Chat_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	c := NewOpenAIClient(srv.URL, "k", nil)
	_, err := c.Chat(context.Background(), "m", []Message{{Role: "user", Content: "hi"}}, nil)
	if err == nil {
		t.Fatal("expected error on empty choices")
	}
}

func TestOpenAIClient_Ping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("path = %q, want /models", r.URL.Path)
		}
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(srv.URL, "k", nil)
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping error: %v", err)
	}
}

func TestOpenAIClient_Ping_Unreachable(t *testing.T) {
	c := NewOpenAIClient("http://127.0.0.1:1", "k", nil)
	if err := c.Ping(context.Background()); err == nil {
		t.Error("expected error for unreachable endpoint")
	}
}
