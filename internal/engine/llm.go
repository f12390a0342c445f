package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/anatolykoptev/go-kit/llm"
	"golang.org/x/time/rate"
)

// CallOpts are per-call sampling settings.
type CallOpts struct {
	Temperature float64
	MaxTokens   int
}

// CompleterFunc sends one chat completion and returns the raw text.
type CompleterFunc func(ctx context.Context, system, prompt string, opts CallOpts) (string, error)

// Analyzer runs the LLM calls that turn a transcript into summaries and perfume data.
type Analyzer struct {
	complete CompleterFunc
	limiter  *rate.Limiter
	maxChars int
}

// NewAnalyzer builds an Analyzer backed by the go-kit LLM client.
func NewAnalyzer(cfg Config) *Analyzer {
	client := llm.NewClient(cfg.LLMAPIBase, cfg.LLMAPIKey, cfg.LLMModel,
		llm.WithFallbackKeys(cfg.LLMAPIKeyFallbacks),
		llm.WithMaxTokens(cfg.LLMMaxTokens),
		llm.WithTemperature(cfg.LLMTemperature),
		llm.WithHTTPClient(&http.Client{Timeout: 90 * time.Second}),
	)
	complete := func(ctx context.Context, system, prompt string, o CallOpts) (string, error) {
		return client.Complete(ctx, system, prompt,
			llm.WithChatTemperature(o.Temperature),
			llm.WithChatMaxTokens(o.MaxTokens),
		)
	}
	return NewAnalyzerWith(complete, cfg.LLMRequestsPerSec, cfg.MaxTranscriptChars)
}

// NewAnalyzerWith builds an Analyzer over any completion function.
// rps <= 0 disables throttling; maxChars <= 0 disables transcript truncation.
func NewAnalyzerWith(fn CompleterFunc, rps float64, maxChars int) *Analyzer {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Analyzer{complete: fn, limiter: rate.NewLimiter(limit, 1), maxChars: maxChars}
}

// stripFences removes markdown code fences from LLM output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func (a *Analyzer) call(ctx context.Context, system, prompt string, o CallOpts) (string, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return "", err
	}
	metrics.LLMCalls.Add(1)
	resp, err := a.complete(ctx, system, prompt, o)
	if err != nil {
		metrics.LLMErrors.Add(1)
		return "", err
	}
	return stripFences(resp), nil
}

func (a *Analyzer) clip(text string) string {
	if a.maxChars <= 0 {
		return text
	}
	return TruncateRunes(text, a.maxChars, "...")
}

// Summarize returns a Spanish summary that keeps the key ideas of text.
func (a *Analyzer) Summarize(ctx context.Context, text string) (string, error) {
	out, err := a.call(ctx, summarySystem, fmt.Sprintf(summaryPrompt, a.clip(text)), CallOpts{Temperature: 0.7, MaxTokens: 512})
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	if out == "" {
		return "", errors.New("summarize: empty response")
	}
	return out, nil
}

// rawParameter mirrors PerfumeParameter with loosely-typed ratings.
type rawParameter struct {
	PerfumeName string          `json:"perfume_name"`
	Brand       *string         `json:"brand"`
	Fragancia   json.RawMessage `json:"fragancia"`
	Duracion    json.RawMessage `json:"duracion"`
	Diseno      json.RawMessage `json:"diseno"`
	Calidad     json.RawMessage `json:"calidad"`
	Precio      json.RawMessage `json:"precio"`
}

// ExtractParameters identifies perfumes in text and rates them on five 0-10 axes.
func (a *Analyzer) ExtractParameters(ctx context.Context, text string) ([]PerfumeParameter, error) {
	raw, err := a.call(ctx, parametersSystem, fmt.Sprintf(parametersPrompt, a.clip(text)), CallOpts{Temperature: 0.3, MaxTokens: 1500})
	if err != nil {
		return nil, fmt.Errorf("parameters: %w", err)
	}
	items, err := decodePerfumeList[rawParameter](raw)
	if err != nil {
		return nil, fmt.Errorf("parameters: %w", err)
	}
	out := make([]PerfumeParameter, 0, len(items))
	for _, it := range items {
		name := strings.TrimSpace(it.PerfumeName)
		if name == "" {
			continue
		}
		p := PerfumeParameter{
			PerfumeName: name,
			Fragancia:   parseRating(it.Fragancia),
			Duracion:    parseRating(it.Duracion),
			Diseno:      parseRating(it.Diseno),
			Calidad:     parseRating(it.Calidad),
			Precio:      parseRating(it.Precio),
		}
		if it.Brand != nil {
			p.Brand = strings.TrimSpace(*it.Brand)
		}
		out = append(out, p)
	}
	return out, nil
}

// AnalyzePerfumes extracts brand, name, verdict and reason for each perfume in text.
func (a *Analyzer) AnalyzePerfumes(ctx context.Context, text string) ([]PerfumeReview, error) {
	raw, err := a.call(ctx, reviewsSystem, fmt.Sprintf(reviewsPrompt, a.clip(text)), CallOpts{Temperature: 0.3, MaxTokens: 1500})
	if err != nil {
		return nil, fmt.Errorf("reviews: %w", err)
	}
	items, err := decodePerfumeList[PerfumeReview](raw)
	if err != nil {
		return nil, fmt.Errorf("reviews: %w", err)
	}
	out := items[:0]
	for _, it := range items {
		if strings.TrimSpace(it.Name) == "" && strings.TrimSpace(it.Brand) == "" {
			continue
		}
		it.Rating = normalizeVerdict(it.Rating)
		out = append(out, it)
	}
	return out, nil
}

// Define returns a short professional definition of a perfumery term.
func (a *Analyzer) Define(ctx context.Context, term string) (Definition, error) {
	user := fmt.Sprintf(definePrompt, term)
	raw, err := a.call(ctx, defineSystem, user, CallOpts{Temperature: 0.7, MaxTokens: 200})
	if err != nil {
		return Definition{}, fmt.Errorf("define: %w", err)
	}
	def := TruncateAtLastPeriod(strings.TrimSpace(raw))
	if len([]rune(def)) < 10 {
		return Definition{}, fmt.Errorf("define: definition too short (%d chars)", len([]rune(def)))
	}
	return Definition{Term: term, Definition: def, PromptSystem: defineSystem, PromptUser: user}, nil
}

// Answer answers a question using only the given transcript.
func (a *Analyzer) Answer(ctx context.Context, transcript, question string) (Answer, error) {
	user := fmt.Sprintf(questionPrompt, a.clip(transcript), question)
	raw, err := a.call(ctx, questionSystem, user, CallOpts{Temperature: 0.7, MaxTokens: 300})
	if err != nil {
		return Answer{}, fmt.Errorf("answer: %w", err)
	}
	answer := strings.TrimSpace(raw)
	if len([]rune(answer)) < 10 {
		return Answer{}, fmt.Errorf("answer: response too short (%d chars)", len([]rune(answer)))
	}
	return Answer{Question: question, Answer: answer, PromptSystem: questionSystem, PromptUser: user}, nil
}

// decodePerfumeList accepts {"perfumes": [...]}, any single-array object, or a bare array.
func decodePerfumeList[T any](raw string) ([]T, error) {
	var list []T
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		return list, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, fmt.Errorf("decode %q: %w", TruncateRunes(raw, 120, "..."), err)
	}
	if v, ok := obj["perfumes"]; ok {
		if err := json.Unmarshal(v, &list); err != nil {
			return nil, fmt.Errorf("decode perfumes: %w", err)
		}
		return list, nil
	}
	for _, v := range obj {
		if err := json.Unmarshal(v, &list); err == nil {
			return list, nil
		}
	}
	return nil, nil
}

// parseRating reads a 0-10 rating from a number, numeric string or null.
// Out-of-range or unparseable values become nil.
func parseRating(raw json.RawMessage) *int {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return nil
	}
	n := int(math.Round(f))
	if n < 0 || n > 10 {
		return nil
	}
	return &n
}

func normalizeVerdict(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(s, "pos"):
		return "positiva"
	case strings.HasPrefix(s, "neg"):
		return "negativa"
	default:
		return "neutra"
	}
}
