package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/tmc/langchaingo/llms"
)

// scriptedLLM replays canned responses in call order. The workflow is strictly
// sequential, so call order is deterministic.
type scriptedLLM struct {
	replies []llmReply
	calls   int
}

type llmReply struct {
	content string
	err     error
}

func (s *scriptedLLM) GenerateContent(_ context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	if s.calls >= len(s.replies) {
		return nil, fmt.Errorf("unexpected llm call %d", s.calls+1)
	}
	r := s.replies[s.calls]
	s.calls++
	if r.err != nil {
		return nil, r.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: r.content}},
	}, nil
}

func (s *scriptedLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := s.GenerateContent(ctx, nil)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

type fakeSearch struct {
	fn    func(query string, limit int) ([]SearchResult, error)
	calls int
}

func (f *fakeSearch) Search(_ context.Context, query string, limit int) ([]SearchResult, error) {
	f.calls++
	return f.fn(query, limit)
}

type fakeScraper struct {
	fn    func(url string) (*Page, error)
	calls int
}

func (f *fakeScraper) Scrape(_ context.Context, url string) (*Page, error) {
	f.calls++
	return f.fn(url)
}

func testConfig() Config {
	return Config{MaxTools: 5, MaxAttempts: 2, CallTimeout: 5 * time.Second}
}

const alpacaAnalysis = `{"name":"Alpaca","pricing":"Freemium","features":["Commission-free trading API"],"tech_stack":["REST","Python"],"integration_notes":"REST and streaming APIs"}`
const ibAnalysis = `{"name":"Interactive Brokers","pricing":"Paid","features":["Global markets"],"tech_stack":["Java"],"integration_notes":"TWS API"}`

func TestRunTradingScenario(t *testing.T) {
	search := &fakeSearch{fn: func(query string, limit int) ([]SearchResult, error) {
		if strings.Contains(query, "official site") {
			name := strings.TrimSuffix(query, " official site pricing")
			return []SearchResult{{Title: name, URL: "https://example.com/" + strings.ToLower(name)}}, nil
		}
		results := make([]SearchResult, 5)
		for i := range results {
			results[i] = SearchResult{
				Title:   fmt.Sprintf("Result %d", i),
				URL:     fmt.Sprintf("https://example.com/article-%d", i),
				Snippet: "comparison of trading APIs",
			}
		}
		return results, nil
	}}

	scraper := &fakeScraper{fn: func(url string) (*Page, error) {
		if strings.Contains(url, "tradier") {
			return nil, &ScrapeError{URL: url, Err: errors.New("timeout")}
		}
		return &Page{Markdown: "# Pricing\nCommission-free tier available."}, nil
	}}

	llm := &scriptedLLM{replies: []llmReply{
		{content: `{"tools":["Alpaca","Tradier","Interactive Brokers"]}`},
		{content: alpacaAnalysis},
		// Tradier analysis fails validation on both attempts.
		{content: `not json`},
		{content: `{"wrong":"shape"}`},
		{content: ibAnalysis},
		{content: "Comparing Alpaca, Tradier and Interactive Brokers for trading automation."},
	}}

	w := New(testConfig(), search, scraper, llm)
	state, err := w.Run(context.Background(), "best APIs for stock trading automation")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got, want := len(state.Analyses), 3; got != want {
		t.Fatalf("len(Analyses) = %d, want %d", got, want)
	}
	if got := state.Analyses["Tradier"].IntegrationNotes; got != "analysis unavailable" {
		t.Errorf("Tradier analysis = %q, want unavailable sentinel", got)
	}
	if got := state.Analyses["Alpaca"].Pricing; got != "Freemium" {
		t.Errorf("Alpaca pricing = %q, want Freemium", got)
	}
	if got := state.Analyses["Interactive Brokers"].Pricing; got != "Paid" {
		t.Errorf("Interactive Brokers pricing = %q, want Paid", got)
	}
	if state.CurrentIndex != 3 {
		t.Errorf("CurrentIndex = %d, want 3", state.CurrentIndex)
	}
	for _, name := range []string{"Alpaca", "Tradier", "Interactive Brokers"} {
		if !strings.Contains(state.FinalReport, name) {
			t.Errorf("FinalReport does not mention %q", name)
		}
	}
}

func TestRunZeroCandidates(t *testing.T) {
	search := &fakeSearch{fn: func(string, int) ([]SearchResult, error) {
		return nil, nil
	}}
	scraper := &fakeScraper{fn: func(string) (*Page, error) {
		return nil, errors.New("should not be called")
	}}
	llm := &scriptedLLM{replies: []llmReply{
		{content: `{"tools":[]}`},
		{content: "No tools matching the query were found."},
	}}

	w := New(testConfig(), search, scraper, llm)
	state, err := w.Run(context.Background(), "asdkjasldkj-nonsense-domain-xyz")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(state.CandidateTools) != 0 {
		t.Errorf("CandidateTools = %v, want empty", state.CandidateTools)
	}
	if scraper.calls != 0 {
		t.Errorf("scraper called %d times, want 0", scraper.calls)
	}
	if state.FinalReport == "" {
		t.Error("FinalReport is empty, want no-tools report")
	}
}

func TestRunExtractionFailureIsFatal(t *testing.T) {
	search := &fakeSearch{fn: func(string, int) ([]SearchResult, error) {
		return []SearchResult{{Title: "r", URL: "https://example.com", Snippet: "s"}}, nil
	}}
	scraper := &fakeScraper{fn: func(string) (*Page, error) {
		return nil, errors.New("should not be called")
	}}
	llm := &scriptedLLM{replies: []llmReply{
		{content: `malformed`},
		{content: `still malformed`},
	}}

	w := New(testConfig(), search, scraper, llm)
	state, err := w.Run(context.Background(), "anything")

	var extractionErr *ExtractionError
	if !errors.As(err, &extractionErr) {
		t.Fatalf("Run() error = %v, want ExtractionError", err)
	}
	if len(state.Analyses) != 0 {
		t.Errorf("Analyses = %v, want none", state.Analyses)
	}
	if search.calls != 1 {
		t.Errorf("search called %d times, want 1 (no loop iterations)", search.calls)
	}
}

func TestRunSearchFailureDuringExtractionIsFatal(t *testing.T) {
	search := &fakeSearch{fn: func(string, int) ([]SearchResult, error) {
		return nil, errors.New("quota exceeded")
	}}
	llm := &scriptedLLM{}

	w := New(testConfig(), search, &fakeScraper{fn: nil}, llm)
	_, err := w.Run(context.Background(), "anything")

	var extractionErr *ExtractionError
	if !errors.As(err, &extractionErr) {
		t.Fatalf("Run() error = %v, want ExtractionError", err)
	}
	var searchErr *SearchError
	if !errors.As(err, &searchErr) {
		t.Fatalf("Run() error = %v, want wrapped SearchError", err)
	}
	if llm.calls != 0 {
		t.Errorf("llm called %d times, want 0", llm.calls)
	}
}

func TestRunContainedScrapeFailure(t *testing.T) {
	search := &fakeSearch{fn: func(query string, limit int) ([]SearchResult, error) {
		return []SearchResult{{Title: "t", URL: "https://example.com/t", Snippet: "s"}}, nil
	}}
	scraper := &fakeScraper{fn: func(url string) (*Page, error) {
		return nil, &ScrapeError{URL: url, Err: errors.New("blocked")}
	}}
	llm := &scriptedLLM{replies: []llmReply{
		{content: `{"tools":["OnlyTool"]}`},
		{content: `{"name":"OnlyTool","pricing":"Unknown","features":[],"tech_stack":[],"integration_notes":"Unknown"}`},
		{content: "Report about OnlyTool."},
	}}

	w := New(testConfig(), search, scraper, llm)
	state, err := w.Run(context.Background(), "some query")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if state.CurrentIndex != 1 {
		t.Errorf("CurrentIndex = %d, want 1", state.CurrentIndex)
	}
	if _, ok := state.Analyses["OnlyTool"]; !ok {
		t.Error("missing analysis entry for OnlyTool")
	}
	if state.FinalReport == "" {
		t.Error("FinalReport is empty")
	}
}

func TestRunSynthesisFailureIsFatal(t *testing.T) {
	search := &fakeSearch{fn: func(string, int) ([]SearchResult, error) {
		return nil, nil
	}}
	llm := &scriptedLLM{replies: []llmReply{
		{content: `{"tools":[]}`},
		{err: errors.New("model overloaded")},
	}}

	w := New(testConfig(), search, &fakeScraper{fn: nil}, llm)
	state, err := w.Run(context.Background(), "anything")

	var synthesisErr *SynthesisError
	if !errors.As(err, &synthesisErr) {
		t.Fatalf("Run() error = %v, want SynthesisError", err)
	}
	if state.FinalReport != "" {
		t.Errorf("FinalReport = %q, want empty on failure", state.FinalReport)
	}
}

func TestRunCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := New(testConfig(),
		&fakeSearch{fn: func(string, int) ([]SearchResult, error) { return nil, nil }},
		&fakeScraper{fn: nil},
		&scriptedLLM{})

	_, err := w.Run(ctx, "anything")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
}

func TestRunPhaseSequence(t *testing.T) {
	search := &fakeSearch{fn: func(query string, limit int) ([]SearchResult, error) {
		return []SearchResult{{Title: "t", URL: "https://example.com/t"}}, nil
	}}
	scraper := &fakeScraper{fn: func(string) (*Page, error) {
		return &Page{Markdown: "content"}, nil
	}}
	llm := &scriptedLLM{replies: []llmReply{
		{content: `{"tools":["A","B"]}`},
		{content: `{"name":"A","pricing":"Free","features":[],"tech_stack":[],"integration_notes":""}`},
		{content: `{"name":"B","pricing":"Paid","features":[],"tech_stack":[],"integration_notes":""}`},
		{content: "report"},
	}}

	var phases []Phase
	w := New(testConfig(), search, scraper, llm)
	w.OnPhase = func(p Phase, _ State) { phases = append(phases, p) }

	if _, err := w.Run(context.Background(), "q"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []Phase{
		PhaseInit, PhaseExtracting,
		PhaseResearching, PhaseAnalyzing,
		PhaseResearching, PhaseAnalyzing,
		PhaseSynthesizing, PhaseDone,
	}
	if len(phases) != len(want) {
		t.Fatalf("phases = %v, want %v", phases, want)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Fatalf("phases[%d] = %v, want %v (full: %v)", i, phases[i], want[i], phases)
		}
	}
}

func TestDedupeNames(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		max   int
		want  []string
	}{
		{"Empty", nil, 5, []string{}},
		{"Trims and drops blanks", []string{" Alpaca ", "", "  "}, 5, []string{"Alpaca"}},
		{"Case-insensitive first wins", []string{"Alpaca", "alpaca", "ALPACA", "Tradier"}, 5, []string{"Alpaca", "Tradier"}},
		{"Caps at max", []string{"a", "b", "c", "d"}, 2, []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := dedupeNames(tt.input, tt.max)
			if len(got) != len(tt.want) {
				t.Fatalf("dedupeNames() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("dedupeNames()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
