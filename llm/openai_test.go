package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/use-agent/tablescout/models"
)

func TestSummarize(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "gpt-4o-mini-2024",
			"choices": [{"message": {"content": "  Gold rose 10%.  "}}],
			"usage": {"prompt_tokens": 100, "completion_tokens": 5, "total_tokens": 105}
		}`))
	}))
	defer srv.Close()

	sum, err := NewClient(srv.Client()).Summarize(context.Background(), "# gold report", Params{
		APIKey:   "sk-test",
		Model:    "gpt-4o-mini",
		BaseURL:  srv.URL + "/v1/",
		Language: "Korean",
	})
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if sum.Text != "Gold rose 10%." {
		t.Errorf("Text = %q", sum.Text)
	}
	if sum.Model != "gpt-4o-mini-2024" || sum.Usage.TotalTokens != 105 {
		t.Errorf("summary = %+v", sum)
	}
	if len(got.Messages) != 2 || got.Messages[1].Content != "# gold report" {
		t.Errorf("messages = %+v", got.Messages)
	}
	if !strings.Contains(got.Messages[0].Content, "Korean") {
		t.Errorf("system prompt does not name the language")
	}
}

func TestSummarize_ErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"auth", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, models.ErrCodeLLMAuthFailure},
		{"forbidden", http.StatusForbidden, `{}`, models.ErrCodeLLMAuthFailure},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`, models.ErrCodeLLMRateLimited},
		{"server", http.StatusBadGateway, `upstream`, models.ErrCodeLLMFailure},
		{"no choices", http.StatusOK, `{"choices":[]}`, models.ErrCodeLLMFailure},
		{"bad json", http.StatusOK, `{`, models.ErrCodeLLMFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(nil).Summarize(context.Background(), "x", Params{BaseURL: srv.URL})
			if !models.HasCode(err, tt.want) {
				t.Fatalf("Summarize() error = %v, want %s", err, tt.want)
			}
		})
	}
}

func TestClassifyLLMError_Message(t *testing.T) {
	err := classifyLLMError(http.StatusTooManyRequests, []byte(`{"error":{"message":"quota exceeded"}}`))
	if err.Message != "quota exceeded" {
		t.Errorf("Message = %q", err.Message)
	}
}
