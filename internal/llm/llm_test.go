package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeOllamaShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body["model"])
		assert.Equal(t, false, body["stream"])
		assert.Contains(t, body["prompt"], "Big Headline")

		json.NewEncoder(w).Encode(map[string]any{"response": " A short summary. "})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-model", srv.Client())
	got, err := c.Summarize(context.Background(), "Big Headline", "Article body text.")
	require.NoError(t, err)
	assert.Equal(t, "A short summary.", got)
}

func TestSummarizeErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-model", srv.Client())
	_, err := c.Summarize(context.Background(), "t", "c")
	assert.ErrorContains(t, err, "status=500")
}

func TestExtractText(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"ollama", `{"response":"hello"}`, "hello"},
		{"plain text field", `{"text":"hello"}`, "hello"},
		{"openai completions", `{"choices":[{"text":"hello"}]}`, "hello"},
		{"openai chat", `{"choices":[{"message":{"content":"hello"}}]}`, "hello"},
		{"not json", "raw body\n", "raw body"},
		{"unknown shape", `{"other":1}`, `{"other":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractText([]byte(tt.body)))
		})
	}
}
