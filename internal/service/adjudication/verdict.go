package adjudication

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Kind tags the outcome of one reasoning call.
type Kind string

const (
	KindConfirmed  Kind = "confirmed"
	KindDenied     Kind = "denied"
	KindNoDecision Kind = "no_decision"
)

// Verdict is the validated answer of the reasoning service. Reason is set
// only for KindNoDecision.
type Verdict struct {
	Kind       Kind     `json:"kind"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning,omitempty"`
	Factors    []string `json:"factors,omitempty"`
	Reason     string   `json:"reason,omitempty"`
}

// NoDecision builds the verdict used for failed or invalid calls.
func NoDecision(reason string) Verdict {
	return Verdict{Kind: KindNoDecision, Reason: reason}
}

// ErrMalformedResponse wraps every schema violation found by ParseVerdict.
var ErrMalformedResponse = errors.New("malformed reasoning response")

type rawVerdict struct {
	IsMatch    *bool    `json:"is_match"`
	Confidence *float64 `json:"confidence"`
	Reasoning  *string  `json:"reasoning"`
	Factors    []string `json:"factors"`
	KeyFactors []string `json:"key_factors"`
}

// ParseVerdict validates a raw response document. is_match, confidence and
// reasoning are required; factors (or key_factors) is optional. Confidence is
// clamped to [0,1].
func ParseVerdict(raw []byte) (Verdict, error) {
	doc := extractJSON(raw)
	if len(doc) == 0 {
		return Verdict{}, fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}

	var parsed rawVerdict
	if err := json.Unmarshal(doc, &parsed); err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var missing []string
	if parsed.IsMatch == nil {
		missing = append(missing, "is_match")
	}
	if parsed.Confidence == nil {
		missing = append(missing, "confidence")
	}
	if parsed.Reasoning == nil {
		missing = append(missing, "reasoning")
	}
	if len(missing) > 0 {
		return Verdict{}, fmt.Errorf("%w: missing %s", ErrMalformedResponse, strings.Join(missing, ", "))
	}
	if math.IsNaN(*parsed.Confidence) {
		return Verdict{}, fmt.Errorf("%w: confidence is not a number", ErrMalformedResponse)
	}

	factors := parsed.Factors
	if len(factors) == 0 {
		factors = parsed.KeyFactors
	}

	kind := KindDenied
	if *parsed.IsMatch {
		kind = KindConfirmed
	}
	return Verdict{
		Kind:       kind,
		Confidence: clamp01(*parsed.Confidence),
		Reasoning:  strings.TrimSpace(*parsed.Reasoning),
		Factors:    factors,
	}, nil
}

// extractJSON strips surrounding prose and markdown fences from a model reply.
func extractJSON(raw []byte) []byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] == '{' {
		return trimmed
	}
	start := bytes.IndexByte(trimmed, '{')
	end := bytes.LastIndexByte(trimmed, '}')
	if start < 0 || end <= start {
		return trimmed
	}
	return trimmed[start : end+1]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
