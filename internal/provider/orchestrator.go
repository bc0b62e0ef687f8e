package provider

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

// ErrAllQuotaExhausted signals that every candidate failed with a quota or
// rate-limit error. Callers use it to short-circuit further generation
// attempts cheaply instead of re-walking the candidate chain.
var ErrAllQuotaExhausted = errors.New("all provider candidates quota exhausted")

// ErrNoCandidates signals an orchestrator constructed without candidates.
var ErrNoCandidates = errors.New("no provider candidates configured")

// OutcomeKind classifies the result of a single candidate invocation.
type OutcomeKind int

const (
	// Success indicates the candidate returned usable text.
	Success OutcomeKind = iota
	// QuotaExceeded indicates a rate-limit or quota failure; the next
	// candidate should be tried.
	QuotaExceeded
	// OtherError indicates any other failure; the next candidate should be
	// tried.
	OtherError
)

// String returns a human-readable representation of the outcome kind.
func (k OutcomeKind) String() string {
	switch k {
	case Success:
		return "success"
	case QuotaExceeded:
		return "quota_exceeded"
	case OtherError:
		return "other_error"
	default:
		return "unknown"
	}
}

// Outcome is the tagged result of invoking one candidate.
type Outcome struct {
	Kind OutcomeKind
	Text string
	Err  error
}

// GenerateFunc invokes a single provider/model pair.
type GenerateFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

// Candidate is one (provider, model) pair in the fallback chain.
type Candidate struct {
	// Provider names the backing service, e.g. "anthropic" or "bedrock".
	Provider string
	// Model is the model identifier passed to the provider.
	Model string
	// Generate invokes the candidate.
	Generate GenerateFunc
}

// Orchestrator tries candidates in fixed priority order and returns the
// first successful text. Ordering is deterministic across calls and a
// candidate is never retried within one Generate call.
type Orchestrator struct {
	candidates []Candidate
}

// NewOrchestrator creates an orchestrator over the given candidate chain.
func NewOrchestrator(candidates ...Candidate) *Orchestrator {
	return &Orchestrator{candidates: candidates}
}

// ClientCandidates builds the default candidate chain for a client: the
// balanced model first, then the lightweight fallback.
func ClientCandidates(client *Client, providerName string) []Candidate {
	models := []string{ModelSonnet, ModelHaiku}
	candidates := make([]Candidate, 0, len(models))
	for _, model := range models {
		m := model
		candidates = append(candidates, Candidate{
			Provider: providerName,
			Model:    m,
			Generate: func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
				return client.Generate(ctx, m, systemPrompt, userPrompt)
			},
		})
	}
	return candidates
}

// Candidates returns the configured candidate chain.
func (o *Orchestrator) Candidates() []Candidate {
	return o.candidates
}

// Generate walks the candidate chain in order, classifying each failure and
// short-circuiting on the first success. It returns ErrAllQuotaExhausted
// when every candidate hit a quota limit, and a wrapped error describing the
// failures otherwise.
func (o *Orchestrator) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if len(o.candidates) == 0 {
		return "", ErrNoCandidates
	}

	allQuota := true
	var failures []string

	for _, candidate := range o.candidates {
		outcome := o.invoke(ctx, candidate, systemPrompt, userPrompt)

		switch outcome.Kind {
		case Success:
			return outcome.Text, nil
		case QuotaExceeded:
			log.Printf("[provider] %s/%s quota exceeded, trying next candidate", candidate.Provider, candidate.Model)
			failures = append(failures, fmt.Sprintf("%s/%s: quota exceeded", candidate.Provider, candidate.Model))
		case OtherError:
			allQuota = false
			log.Printf("[provider] %s/%s failed: %v", candidate.Provider, candidate.Model, outcome.Err)
			failures = append(failures, fmt.Sprintf("%s/%s: %v", candidate.Provider, candidate.Model, outcome.Err))
		}
	}

	if allQuota {
		return "", ErrAllQuotaExhausted
	}
	return "", fmt.Errorf("all %d provider candidates failed: %s", len(o.candidates), strings.Join(failures, "; "))
}

// invoke runs one candidate and classifies the result.
func (o *Orchestrator) invoke(ctx context.Context, candidate Candidate, systemPrompt, userPrompt string) Outcome {
	text, err := candidate.Generate(ctx, systemPrompt, userPrompt)
	if err != nil {
		return Outcome{Kind: Classify(err), Err: err}
	}
	return Outcome{Kind: Success, Text: text}
}

// Quota signal substrings checked against error text, lowercase.
var quotaSignals = []string{
	"quota",
	"rate limit",
	"rate_limit",
	"429",
	"resource exhausted",
	"resource_exhausted",
	"too many requests",
	"overloaded",
}

// Classify maps an invocation error to its outcome kind.
func Classify(err error) OutcomeKind {
	if err == nil {
		return Success
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 429 || apiErr.StatusCode == 529 {
			return QuotaExceeded
		}
	}

	msg := strings.ToLower(err.Error())
	for _, signal := range quotaSignals {
		if strings.Contains(msg, signal) {
			return QuotaExceeded
		}
	}

	return OtherError
}
