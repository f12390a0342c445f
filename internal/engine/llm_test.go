package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCompleter returns a fixed response and records the last prompts.
type fakeCompleter struct {
	resp   string
	err    error
	calls  int
	system string
	prompt string
	opts   CallOpts
}

func (f *fakeCompleter) complete(_ context.Context, system, prompt string, o CallOpts) (string, error) {
	f.calls++
	f.system, f.prompt, f.opts = system, prompt, o
	return f.resp, f.err
}

func newFakeAnalyzer(resp string, err error) (*Analyzer, *fakeCompleter) {
	f := &fakeCompleter{resp: resp, err: err}
	return NewAnalyzerWith(f.complete, 0, 0), f
}

func TestStripFences(t *testing.T) {
	tests := []struct{ in, want string }{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n[1]\n```", "[1]"},
		{"  plain  ", "plain"},
	}
	for _, tt := range tests {
		if got := stripFences(tt.in); got != tt.want {
			t.Errorf("stripFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSummarize(t *testing.T) {
	a, f := newFakeAnalyzer("  Un resumen breve.  ", nil)
	got, err := a.Summarize(context.Background(), "texto largo")
	require.NoError(t, err)
	assert.Equal(t, "Un resumen breve.", got)
	assert.Equal(t, summarySystem, f.system)
	assert.Contains(t, f.prompt, "texto largo")
}

func TestSummarizeEmpty(t *testing.T) {
	a, _ := newFakeAnalyzer("   ", nil)
	_, err := a.Summarize(context.Background(), "x")
	require.Error(t, err)
}

func TestAnalyzerErrorCountsMetric(t *testing.T) {
	before := metrics.LLMErrors.Load()
	a, _ := newFakeAnalyzer("", errors.New("boom"))
	_, err := a.Summarize(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, before+1, metrics.LLMErrors.Load())
}

func TestAnalyzerClipsTranscript(t *testing.T) {
	f := &fakeCompleter{resp: "ok resumen"}
	a := NewAnalyzerWith(f.complete, 0, 5)
	_, err := a.Summarize(context.Background(), "abcdefghijkl")
	require.NoError(t, err)
	assert.NotContains(t, f.prompt, "abcdefghijkl")
}

func TestExtractParameters(t *testing.T) {
	resp := "```json\n" + `{"perfumes": [
		{"perfume_name": "Sauvage", "brand": "Dior", "fragancia": 8, "duracion": "7", "diseno": 9.4, "calidad": null, "precio": 15},
		{"perfume_name": "  ", "fragancia": 5},
		{"perfume_name": "Aventus", "brand": null}
	]}` + "\n```"
	a, _ := newFakeAnalyzer(resp, nil)

	got, err := a.ExtractParameters(context.Background(), "transcripción")
	require.NoError(t, err)
	require.Len(t, got, 2)

	p := got[0]
	assert.Equal(t, "Sauvage", p.PerfumeName)
	assert.Equal(t, "Dior", p.Brand)
	require.NotNil(t, p.Fragancia)
	assert.Equal(t, 8, *p.Fragancia)
	require.NotNil(t, p.Duracion)
	assert.Equal(t, 7, *p.Duracion)
	require.NotNil(t, p.Diseno)
	assert.Equal(t, 9, *p.Diseno)
	assert.Nil(t, p.Calidad)
	assert.Nil(t, p.Precio, "out-of-range rating must be dropped")

	assert.Equal(t, "Aventus", got[1].PerfumeName)
	assert.Empty(t, got[1].Brand)
	assert.Nil(t, got[1].Fragancia)
}

func TestExtractParametersBareArray(t *testing.T) {
	a, _ := newFakeAnalyzer(`[{"perfume_name": "Baccarat Rouge 540", "precio": 2}]`, nil)
	got, err := a.ExtractParameters(context.Background(), "t")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].Precio)
	assert.Equal(t, 2, *got[0].Precio)
}

func TestExtractParametersMalformed(t *testing.T) {
	a, _ := newFakeAnalyzer("no es json", nil)
	_, err := a.ExtractParameters(context.Background(), "t")
	require.Error(t, err)
}

func TestAnalyzePerfumes(t *testing.T) {
	resp := `{"perfumes": [
		{"brand": "Chanel", "name": "Bleu", "description": "cítrico", "rating": "Positiva", "reason": "dura mucho"},
		{"brand": "Zara", "name": "Vibrant Leather", "rating": "negative"},
		{"brand": "", "name": ""},
		{"brand": "Lattafa", "name": "Khamrah", "rating": "meh"}
	]}`
	a, _ := newFakeAnalyzer(resp, nil)
	got, err := a.AnalyzePerfumes(context.Background(), "t")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "positiva", got[0].Rating)
	assert.Equal(t, "negativa", got[1].Rating)
	assert.Equal(t, "neutra", got[2].Rating)
	assert.Equal(t, "dura mucho", got[0].Reason)
}

func TestDefine(t *testing.T) {
	a, f := newFakeAnalyzer("El almizcle es una nota de fondo animal. Se usa en", nil)
	got, err := a.Define(context.Background(), "almizcle")
	require.NoError(t, err)
	assert.Equal(t, "El almizcle es una nota de fondo animal.", got.Definition)
	assert.Equal(t, "almizcle", got.Term)
	assert.Equal(t, defineSystem, got.PromptSystem)
	assert.Equal(t, f.prompt, got.PromptUser)
}

func TestDefineTooShort(t *testing.T) {
	a, _ := newFakeAnalyzer("Nota.", nil)
	_, err := a.Define(context.Background(), "x")
	require.Error(t, err)
}

func TestAnswer(t *testing.T) {
	a, f := newFakeAnalyzer("Habla de tres perfumes de verano.", nil)
	got, err := a.Answer(context.Background(), "transcripción del video", "¿De qué habla?")
	require.NoError(t, err)
	assert.Equal(t, "Habla de tres perfumes de verano.", got.Answer)
	assert.True(t, strings.HasPrefix(f.prompt, "Transcripción: transcripción del video"))
	assert.Contains(t, f.prompt, "Pregunta: ¿De qué habla?")
}

func TestAnswerTooShort(t *testing.T) {
	a, _ := newFakeAnalyzer("Sí.", nil)
	_, err := a.Answer(context.Background(), "t", "q")
	require.Error(t, err)
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		raw  string
		want *int
	}{
		{"", nil},
		{"null", nil},
		{"0", intPtr(0)},
		{"10", intPtr(10)},
		{"11", nil},
		{"-1", nil},
		{`"6"`, intPtr(6)},
		{`"alto"`, nil},
		{"7.6", intPtr(8)},
	}
	for _, tt := range tests {
		got := parseRating([]byte(tt.raw))
		if tt.want == nil {
			assert.Nil(t, got, "raw %q", tt.raw)
			continue
		}
		if assert.NotNil(t, got, "raw %q", tt.raw) {
			assert.Equal(t, *tt.want, *got, "raw %q", tt.raw)
		}
	}
}

func intPtr(n int) *int { return &n }
