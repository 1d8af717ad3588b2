package adjudication

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/octobees/leads-generator/resolver/internal/entity"
)

func TestParseVerdict(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		want    Verdict
		wantErr bool
	}{
		{
			name: "confirmed",
			raw:  `{"is_match": true, "confidence": 0.9, "reasoning": "same ABN holder", "factors": ["name", "domain"]}`,
			want: Verdict{Kind: KindConfirmed, Confidence: 0.9, Reasoning: "same ABN holder", Factors: []string{"name", "domain"}},
		},
		{
			name: "denied with key factors",
			raw:  `{"is_match": false, "confidence": 0.7, "reasoning": "different state", "key_factors": ["location"]}`,
			want: Verdict{Kind: KindDenied, Confidence: 0.7, Reasoning: "different state", Factors: []string{"location"}},
		},
		{
			name: "confidence clamped high",
			raw:  `{"is_match": true, "confidence": 7, "reasoning": "x"}`,
			want: Verdict{Kind: KindConfirmed, Confidence: 1, Reasoning: "x"},
		},
		{
			name: "confidence clamped low",
			raw:  `{"is_match": false, "confidence": -2.5, "reasoning": "x"}`,
			want: Verdict{Kind: KindDenied, Confidence: 0, Reasoning: "x"},
		},
		{
			name: "fenced reply",
			raw:  "Here you go:\n```json\n{\"is_match\": true, \"confidence\": 0.88, \"reasoning\": \"ok\"}\n```",
			want: Verdict{Kind: KindConfirmed, Confidence: 0.88, Reasoning: "ok"},
		},
		{name: "missing confidence", raw: `{"is_match": true, "reasoning": "x"}`, wantErr: true},
		{name: "missing is_match", raw: `{"confidence": 0.5, "reasoning": "x"}`, wantErr: true},
		{name: "missing reasoning", raw: `{"is_match": true, "confidence": 0.5}`, wantErr: true},
		{name: "wrong type", raw: `{"is_match": "yes", "confidence": 0.5, "reasoning": "x"}`, wantErr: true},
		{name: "truncated", raw: `{"is_match": true,`, wantErr: true},
		{name: "empty", raw: ``, wantErr: true},
		{name: "prose only", raw: `I think they match.`, wantErr: true},
	}

	for _, tc := range cases {
		got, err := ParseVerdict([]byte(tc.raw))
		if tc.wantErr {
			if !errors.Is(err, ErrMalformedResponse) {
				t.Fatalf("%s: expected ErrMalformedResponse, got %v", tc.name, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%s: got %+v, want %+v", tc.name, got, tc.want)
		}
	}
}

func TestLimiter_QueuesBeyondCapacity(t *testing.T) {
	limiter, err := NewLimiter(1, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	release, err := limiter.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		next, err := limiter.Acquire(context.Background())
		if err == nil {
			next()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatalf("second acquire should wait for capacity")
	case <-time.After(20 * time.Millisecond):
	}

	release()
	release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatalf("second acquire never proceeded")
	}
	if limiter.InFlight() != 0 {
		t.Fatalf("expected no in-flight calls, got %d", limiter.InFlight())
	}
}

func TestLimiter_CancelledWait(t *testing.T) {
	limiter, _ := NewLimiter(1, nil)
	release, _ := limiter.Acquire(context.Background())
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := limiter.Acquire(ctx); err == nil {
		t.Fatalf("expected acquire to fail once the context expires")
	}
	if _, err := NewLimiter(0, nil); err == nil {
		t.Fatalf("expected error for zero concurrency")
	}
}

func TestServiceReasoner_Reason(t *testing.T) {
	var captured Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/adjudicate" || r.Header.Get("X-Request-ID") != "req-1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{
			"is_match": true, "confidence": 0.91, "reasoning": "domain matches",
		}})
	}))
	defer server.Close()

	reasoner, err := NewServiceReasoner(server.Client(), server.URL+"/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req := NewRequest(entity.MatchCandidate{
		Crawl:     entity.CrawlRecord{URL: "https://acmetech.com.au", CompanyName: "Acme Tech", Content: strings.Repeat("a", 500)},
		Registry:  entity.RegistryRecord{ABN: "51824753556", LegalName: "Acme Technology Pty Ltd"},
		Composite: 0.72,
	})
	req.RequestID = "req-1"

	raw, err := reasoner.Reason(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	verdict, err := ParseVerdict(raw)
	if err != nil || verdict.Kind != KindConfirmed {
		t.Fatalf("unexpected verdict %+v err=%v", verdict, err)
	}
	if captured.Registry.ABN != "51824753556" || captured.Task == "" {
		t.Fatalf("request fields not forwarded: %+v", captured)
	}
	if len([]rune(captured.Crawl.Description)) != maxContentRunes {
		t.Fatalf("expected description truncated to %d runes, got %d", maxContentRunes, len([]rune(captured.Crawl.Description)))
	}
}

func TestServiceReasoner_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Request-ID") == "envelope" {
			json.NewEncoder(w).Encode(map[string]any{"error": "model overloaded"})
			return
		}
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]any{"error": "upstream down"})
	}))
	defer server.Close()

	reasoner, _ := NewServiceReasoner(server.Client(), server.URL)

	if _, err := reasoner.Reason(context.Background(), Request{RequestID: "status"}); err == nil || !strings.Contains(err.Error(), "upstream down") {
		t.Fatalf("expected status error, got %v", err)
	}
	if _, err := reasoner.Reason(context.Background(), Request{RequestID: "envelope"}); err == nil || !strings.Contains(err.Error(), "model overloaded") {
		t.Fatalf("expected envelope error, got %v", err)
	}
	if _, err := NewServiceReasoner(server.Client(), " "); err == nil {
		t.Fatalf("expected error for empty base url")
	}
}

func TestRequestPrompt(t *testing.T) {
	req := NewRequest(entity.MatchCandidate{
		Crawl:     entity.CrawlRecord{CompanyName: "Acme Tech"},
		Registry:  entity.RegistryRecord{ABN: "1", LegalName: "Acme Technology Pty Ltd", TradingNames: []string{"Acme", "AT"}},
		Composite: 0.7,
	})
	prompt := req.Prompt()
	for _, want := range []string{"Acme Tech", "Trading Names: Acme, AT", "Website URL: N/A", "0.700", `"is_match"`} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestNewAnthropicReasoner_RequiresKey(t *testing.T) {
	if _, err := NewAnthropicReasoner("", ""); err == nil {
		t.Fatalf("expected error without api key")
	}
	r, err := NewAnthropicReasoner("test-key", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.model != DefaultAnthropicModel {
		t.Fatalf("expected default model, got %s", r.model)
	}
}

func TestAnthropicReasoner_Reason(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" || r.Header.Get("X-Api-Key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":    "msg_1",
			"type":  "message",
			"role":  "assistant",
			"model": DefaultAnthropicModel,
			"content": []map[string]any{
				{"type": "text", "text": `{"is_match": false, "confidence": 0.6, "reasoning": "different industry"}`},
			},
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 10, "output_tokens": 20},
		})
	}))
	defer server.Close()

	reasoner, err := NewAnthropicReasoner("test-key", "", option.WithBaseURL(server.URL), option.WithHTTPClient(server.Client()), option.WithMaxRetries(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, err := reasoner.Reason(context.Background(), Request{Task: TaskFraming})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	verdict, err := ParseVerdict(raw)
	if err != nil || verdict.Kind != KindDenied {
		t.Fatalf("unexpected verdict %+v err=%v", verdict, err)
	}
}
