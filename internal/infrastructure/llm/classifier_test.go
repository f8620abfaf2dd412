package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"PubMedCurator/internal/config"
)

func chatServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization header: %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": reply}},
			},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func testClient(endpoint string) *Client {
	return NewClient(config.LLMConfig{
		Endpoint:   endpoint,
		Model:      "gpt-4o-mini",
		APIKey:     "test-key",
		TimeoutSec: 5,
	})
}

func TestClassifyYes(t *testing.T) {
	t.Parallel()

	server := chatServer(t, "YES")
	c := NewClassifier(testClient(server.URL), "Is this about head and neck cancer?", 0, true)

	outcome, err := c.Classify(context.Background(), "Laryngeal carcinoma outcomes")
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if !outcome.Accepted || outcome.Defaulted {
		t.Fatalf("expected clean acceptance, got %+v", outcome)
	}
}

func TestClassifyNo(t *testing.T) {
	t.Parallel()

	server := chatServer(t, "no")
	c := NewClassifier(testClient(server.URL), "Is this relevant?", 0, true)

	outcome, err := c.Classify(context.Background(), "Unrelated paper")
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if outcome.Accepted {
		t.Fatalf("expected rejection, got %+v", outcome)
	}
}

func TestClassifyFailOpenOnTransportError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	c := NewClassifier(testClient(server.URL), "Is this relevant?", 0, true)

	outcome, err := c.Classify(context.Background(), "Anything")
	if err == nil {
		t.Fatal("expected a reported error for the defaulted outcome")
	}
	if !outcome.Accepted || !outcome.Defaulted {
		t.Fatalf("fail-open must default to acceptance, got %+v", outcome)
	}
}

func TestClassifyFailClosedPolicy(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	c := NewClassifier(testClient(server.URL), "Is this relevant?", 0, false)

	outcome, err := c.Classify(context.Background(), "Anything")
	if err == nil {
		t.Fatal("expected a reported error for the defaulted outcome")
	}
	if outcome.Accepted || !outcome.Defaulted {
		t.Fatalf("fail-closed must default to rejection, got %+v", outcome)
	}
}

func TestClassifyUnexpectedReplyIsDefaulted(t *testing.T) {
	t.Parallel()

	server := chatServer(t, "perhaps, hard to say")
	c := NewClassifier(testClient(server.URL), "Is this relevant?", 0, true)

	outcome, err := c.Classify(context.Background(), "Anything")
	if err == nil {
		t.Fatal("expected a reported error for the unparseable reply")
	}
	if !outcome.Accepted || !outcome.Defaulted {
		t.Fatalf("unparseable reply must apply the policy default, got %+v", outcome)
	}
}

func TestClassifyTruncatesPrompt(t *testing.T) {
	t.Parallel()

	var gotPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if len(payload.Messages) > 0 {
			gotPrompt = payload.Messages[0].Content
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "YES"}},
			},
		})
	}))
	t.Cleanup(server.Close)

	c := NewClassifier(testClient(server.URL), "Q", 50, true)

	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	if _, err := c.Classify(context.Background(), string(long)); err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if len(gotPrompt) > 200 {
		t.Fatalf("expected truncated paper text in prompt, got %d chars", len(gotPrompt))
	}
}

func TestTruncateKeepsRuneBoundaries(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("é", 10) // 2 bytes per rune

	for max := 1; max <= len(text); max++ {
		got := truncate(text, max)
		if len(got) > max {
			t.Fatalf("truncate(%d) returned %d bytes", max, len(got))
		}
		if !utf8.ValidString(got) {
			t.Fatalf("truncate(%d) split a rune: %q", max, got)
		}
	}

	if got := truncate("abc", 10); got != "abc" {
		t.Fatalf("short input must pass through, got %q", got)
	}
}
