package workflow

import (
	"context"
	"time"
)

// SearchResult represents a single web search result.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Page is the scraped content of a single URL.
type Page struct {
	Markdown string         `json:"markdown"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SearchProvider returns up to limit results for a query. An empty slice is
// a valid result; errors are provider-side failures.
type SearchProvider interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// ScrapeProvider fetches one URL and returns its extracted text content.
type ScrapeProvider interface {
	Scrape(ctx context.Context, url string) (*Page, error)
}

// ToolAnalysis is the structured record produced for each candidate tool.
// Once stored under a tool name it is never overwritten.
type ToolAnalysis struct {
	Name             string   `json:"name"`
	Pricing          string   `json:"pricing"`
	Features         []string `json:"features"`
	TechStack        []string `json:"tech_stack"`
	IntegrationNotes string   `json:"integration_notes"`
}

// State is the shared record threaded through every step of one run.
// The orchestrator owns its lifetime; steps write only the fields they are
// responsible for.
type State struct {
	Query          string                  `json:"query"`
	CandidateTools []string                `json:"candidate_tools"`
	CurrentIndex   int                     `json:"current_index"`
	Analyses       map[string]ToolAnalysis `json:"analyses"`
	FinalReport    string                  `json:"final_report,omitempty"`
}

// NewState creates the initial state for a query.
func NewState(query string) *State {
	return &State{
		Query:    query,
		Analyses: make(map[string]ToolAnalysis),
	}
}

// Config holds the tunable knobs of a run.
type Config struct {
	// MaxTools caps how many candidate tools the extraction step may name.
	MaxTools int
	// MaxAttempts bounds structured-output generation, including the
	// corrective retry. 2 means one retry.
	MaxAttempts int
	// CallTimeout bounds every single provider call.
	CallTimeout time.Duration
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	return Config{
		MaxTools:    5,
		MaxAttempts: 2,
		CallTimeout: 30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxTools <= 0 {
		c.MaxTools = d.MaxTools
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = d.CallTimeout
	}
	return c
}

// unavailableAnalysis is the sentinel stored when analysis of a tool failed
// past its retry budget.
func unavailableAnalysis(name string) ToolAnalysis {
	return ToolAnalysis{
		Name:             name,
		Pricing:          "unknown",
		Features:         []string{},
		TechStack:        []string{},
		IntegrationNotes: "analysis unavailable",
	}
}
