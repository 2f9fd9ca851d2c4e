package aigrade

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Kind tells the grading service what sort of answer it is looking at.
type Kind string

const (
	KindShort Kind = "short"
	KindLong  Kind = "long"
	KindOther Kind = "other" // free text behind an MCQ "other" option
)

// Request is one grading call for one answered field.
type Request struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Rubric   string `json:"rubric,omitempty"`
	Kind     Kind   `json:"kind"`
}

// Evaluation is the adapter's fixed response contract.
type Evaluation struct {
	Marks  float64 `json:"marks"`
	Reason string  `json:"reason"`
	Tag    string  `json:"tag"`
}

// TagEngineError marks a grading call that failed and was recovered locally.
const TagEngineError = "ENGINE_ERROR"

// ErrorSentinel is the zero-mark evaluation recorded when a call fails.
// A single field's failure never aborts the submission.
func ErrorSentinel(reason string) Evaluation {
	return Evaluation{Marks: 0, Reason: reason, Tag: TagEngineError}
}

// Evaluator wraps the external text-evaluation service.
type Evaluator interface {
	Evaluate(ctx context.Context, req Request) (Evaluation, error)
}

// HTTPClient calls the grading service over an RPC-style JSON endpoint.
type HTTPClient struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// Evaluate posts the grading request and defensively parses the reply.
// Transport and server failures are retried once; the caller converts a
// final error into the sentinel.
func (c *HTTPClient) Evaluate(ctx context.Context, req Request) (Evaluation, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Evaluation{}, ctx.Err()
			case <-time.After(500 * time.Millisecond):
			}
		}
		ev, err := c.call(ctx, req)
		if err == nil {
			return ev, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return Evaluation{}, lastErr
}

func (c *HTTPClient) call(ctx context.Context, req Request) (Evaluation, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Evaluation{}, err
	}
	hr, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/evaluate", bytes.NewReader(body))
	if err != nil {
		return Evaluation{}, err
	}
	hr.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		hr.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.http.Do(hr)
	if err != nil {
		return Evaluation{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Evaluation{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Evaluation{}, fmt.Errorf("grading service: status %d", resp.StatusCode)
	}
	return ParseEvaluation(raw)
}

// wireEval tolerates both the canonical {marks, reason, tag} shape and the
// semantic-match variant {score, reason, tags}.
type wireEval struct {
	Marks  *float64 `json:"marks"`
	Score  *float64 `json:"score"`
	Reason string   `json:"reason"`
	Tag    string   `json:"tag"`
	Tags   []string `json:"tags"`
}

// ParseEvaluation decodes a grading reply. Models sometimes wrap the JSON in
// markdown fences; those are stripped before decoding. Any parse failure is
// an error for the caller to absorb, never a propagated panic.
func ParseEvaluation(raw []byte) (Evaluation, error) {
	s := strings.TrimSpace(string(raw))
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	var w wireEval
	if err := json.Unmarshal([]byte(s), &w); err != nil {
		return Evaluation{}, fmt.Errorf("grading reply: %w", err)
	}
	ev := Evaluation{Reason: w.Reason, Tag: w.Tag}
	switch {
	case w.Marks != nil:
		ev.Marks = *w.Marks
	case w.Score != nil:
		ev.Marks = *w.Score
	default:
		return Evaluation{}, errors.New("grading reply: no marks field")
	}
	if ev.Tag == "" && len(w.Tags) > 0 {
		ev.Tag = w.Tags[0]
	}
	return ev, nil
}
