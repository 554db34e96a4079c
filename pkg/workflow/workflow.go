// Package workflow drives a multi-step tool research run: extract candidate
// tools from web search results, research and analyze each one, and
// synthesize a comparative report. The run is an explicit phase machine with
// a single conditional branch (loop-continue vs loop-exit); all provider
// access goes through the narrow Search/Scrape/LLM interfaces so steps stay
// testable without the network.
package workflow

import (
	"context"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
)

// Phase identifies one state of the orchestration machine.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseExtracting
	PhaseResearching
	PhaseAnalyzing
	PhaseSynthesizing
	PhaseDone
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseExtracting:
		return "extracting"
	case PhaseResearching:
		return "researching"
	case PhaseAnalyzing:
		return "analyzing"
	case PhaseSynthesizing:
		return "synthesizing"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	}
	return "unknown"
}

// Workflow sequences the research steps over a shared State. One Workflow may
// serve many runs; each Run gets its own State.
type Workflow struct {
	cfg     Config
	search  SearchProvider
	scraper ScrapeProvider
	llm     llms.Model

	Logger *slog.Logger

	// OnPhase, when set, observes every phase transition with a snapshot of
	// the state. Used by the server to persist progress.
	OnPhase func(phase Phase, state State)
}

// New builds a workflow over the given providers.
func New(cfg Config, search SearchProvider, scraper ScrapeProvider, llm llms.Model) *Workflow {
	return &Workflow{
		cfg:     cfg.withDefaults(),
		search:  search,
		scraper: scraper,
		llm:     llm,
		Logger:  slog.Default(),
	}
}

// Run executes the full machine for one query and returns the terminal state.
// A nil error means the run reached done with FinalReport set; a non-nil
// error is an ExtractionError or SynthesisError (or ctx.Err on cancellation)
// and the returned state holds whatever was gathered before the failure.
//
// Termination is guaranteed: CurrentIndex strictly increases on every pass
// through the analyze phase and is bounded by len(CandidateTools).
func (w *Workflow) Run(ctx context.Context, query string) (*State, error) {
	state := NewState(query)
	phase := PhaseInit

	// content carries the scraped page text from the research phase into the
	// analyze phase for the same index; it is deliberately not part of State.
	var content string

	for {
		// Cancellation is observed at phase boundaries only.
		if err := ctx.Err(); err != nil {
			return state, err
		}
		w.notify(phase, state)

		switch phase {
		case PhaseInit:
			phase = PhaseExtracting

		case PhaseExtracting:
			if err := w.extractTools(ctx, state); err != nil {
				return w.fail(state, &ExtractionError{Err: err})
			}
			if len(state.CandidateTools) > 0 {
				phase = PhaseResearching
			} else {
				phase = PhaseSynthesizing
			}

		case PhaseResearching:
			content = w.researchTool(ctx, state)
			phase = PhaseAnalyzing

		case PhaseAnalyzing:
			w.analyzeTool(ctx, state, content)
			content = ""
			if state.CurrentIndex < len(state.CandidateTools) {
				phase = PhaseResearching
			} else {
				phase = PhaseSynthesizing
			}

		case PhaseSynthesizing:
			if err := w.synthesize(ctx, state); err != nil {
				return w.fail(state, err)
			}
			phase = PhaseDone

		case PhaseDone:
			return state, nil
		}
	}
}

func (w *Workflow) fail(state *State, err error) (*State, error) {
	w.Logger.Error("Run failed", "error", err)
	w.notify(PhaseFailed, state)
	return state, err
}

func (w *Workflow) notify(phase Phase, state *State) {
	if w.OnPhase != nil {
		w.OnPhase(phase, *state)
	}
}
