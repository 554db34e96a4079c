package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
)

// maxContentRunes caps how much scraped page text is fed to the analysis call.
const maxContentRunes = 8000

// generateStructured runs one schema-constrained LLM call, validating the
// response against shape. Invalid responses are retried with a corrective
// prompt up to the configured attempt budget.
func (w *Workflow) generateStructured(ctx context.Context, system, user string, shape Shape) (map[string]any, error) {
	prompt := system + "\n\n# Response Format:\n" + shape.PromptBlock()
	var lastErr error

	for attempt := 1; attempt <= w.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			w.Logger.Warn("Retrying structured generation", "attempt", attempt, "last_error", lastErr)
			user += "\n\nYour previous response was rejected: " + lastErr.Error() +
				"\nReturn only a valid JSON object matching the schema."
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt-1) * time.Second):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, w.cfg.CallTimeout)
		resp, err := w.llm.GenerateContent(callCtx, []llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeSystem, prompt),
			llms.TextParts(llms.ChatMessageTypeHuman, user),
		}, llms.WithJSONMode())
		cancel()

		if err != nil {
			lastErr = &LLMError{Err: err}
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = &LLMError{Err: errors.New("no choices returned")}
			continue
		}

		obj := map[string]any{}
		if err := json.Unmarshal([]byte(resp.Choices[0].Content), &obj); err != nil {
			lastErr = &SchemaValidationError{Reason: "response is not a JSON object: " + err.Error()}
			continue
		}
		if err := shape.Validate(obj); err != nil {
			lastErr = err
			continue
		}
		return obj, nil
	}

	return nil, fmt.Errorf("after %d attempts: %w", w.cfg.MaxAttempts, lastErr)
}

// generateText runs one free-form LLM call with the configured timeout.
func (w *Workflow) generateText(ctx context.Context, system, user string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, w.cfg.CallTimeout)
	defer cancel()

	resp, err := w.llm.GenerateContent(callCtx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	})
	if err != nil {
		return "", &LLMError{Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &LLMError{Err: errors.New("no choices returned")}
	}
	return resp.Choices[0].Content, nil
}

// extractTools populates state.CandidateTools from one search plus one
// structured LLM call. Failures here are fatal to the run.
func (w *Workflow) extractTools(ctx context.Context, state *State) error {
	query := state.Query + " tools comparison best alternatives"
	w.Logger.Info("Searching for candidate tools", "query", query)

	searchCtx, cancel := context.WithTimeout(ctx, w.cfg.CallTimeout)
	results, err := w.search.Search(searchCtx, query, w.cfg.MaxTools)
	cancel()
	if err != nil {
		return &SearchError{Query: query, Err: err}
	}

	var sb strings.Builder
	for _, r := range results {
		fmt.Fprintf(&sb, "Title: %s\nURL: %s\n%s\n\n", r.Title, r.URL, r.Snippet)
	}
	if len(results) == 0 {
		w.Logger.Warn("Search returned no results, extracting from query alone")
	}

	obj, err := w.generateStructured(ctx, extractionSystem,
		extractionUser(state.Query, sb.String(), w.cfg.MaxTools), extractionShape)
	if err != nil {
		return err
	}

	names := stringListField(obj, "tools")
	state.CandidateTools = dedupeNames(names, w.cfg.MaxTools)
	state.CurrentIndex = 0

	w.Logger.Info("Extracted candidate tools", "tools", state.CandidateTools)
	return nil
}

// dedupeNames trims, deduplicates case-insensitively (first occurrence wins)
// and caps the candidate list.
func dedupeNames(names []string, max int) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
		if len(out) == max {
			break
		}
	}
	return out
}

// researchTool gathers page content for the current candidate. It never fails
// the run: any search or scrape problem degrades to empty content.
func (w *Workflow) researchTool(ctx context.Context, state *State) string {
	name := state.CandidateTools[state.CurrentIndex]
	query := name + " official site pricing"
	w.Logger.Info("Researching tool", "tool", name, "index", state.CurrentIndex)

	searchCtx, cancel := context.WithTimeout(ctx, w.cfg.CallTimeout)
	results, err := w.search.Search(searchCtx, query, 1)
	cancel()
	if err != nil {
		w.Logger.Warn("Tool search failed, continuing without content",
			"tool", name, "error", &SearchError{Query: query, Err: err})
		return ""
	}

	url := ""
	for _, r := range results {
		if r.URL != "" {
			url = r.URL
			break
		}
	}
	if url == "" {
		w.Logger.Warn("No usable URL found for tool", "tool", name)
		return ""
	}

	scrapeCtx, cancel := context.WithTimeout(ctx, w.cfg.CallTimeout)
	page, err := w.scraper.Scrape(scrapeCtx, url)
	cancel()
	if err != nil {
		w.Logger.Warn("Scrape failed, continuing without content",
			"tool", name, "url", url, "error", err)
		return ""
	}

	content := page.Markdown
	if runes := []rune(content); len(runes) > maxContentRunes {
		content = string(runes[:maxContentRunes])
	}
	return content
}

// analyzeTool turns page content into a ToolAnalysis. It always stores exactly
// one entry for the current candidate and advances the cursor, substituting
// the unavailable sentinel when generation fails past its retry budget.
func (w *Workflow) analyzeTool(ctx context.Context, state *State, content string) {
	name := state.CandidateTools[state.CurrentIndex]
	w.Logger.Info("Analyzing tool", "tool", name, "content_len", len(content))

	analysis := unavailableAnalysis(name)
	obj, err := w.generateStructured(ctx, analysisSystem, analysisUser(name, content), analysisShape)
	if err != nil {
		w.Logger.Warn("Analysis failed, storing unavailable record", "tool", name, "error", err)
	} else {
		analysis = ToolAnalysis{
			Name:             name,
			Pricing:          stringField(obj, "pricing"),
			Features:         stringListField(obj, "features"),
			TechStack:        stringListField(obj, "tech_stack"),
			IntegrationNotes: stringField(obj, "integration_notes"),
		}
	}

	// Keys are unique after dedupe; the check keeps existing entries from
	// ever being overwritten on a re-keyed run.
	if _, exists := state.Analyses[name]; !exists {
		state.Analyses[name] = analysis
	}
	state.CurrentIndex++
}

// synthesize produces the final comparative report. Failure here is fatal.
func (w *Workflow) synthesize(ctx context.Context, state *State) error {
	w.Logger.Info("Synthesizing report", "tools", len(state.Analyses))

	analysesJSON := ""
	if len(state.CandidateTools) > 0 {
		ordered := make([]ToolAnalysis, 0, len(state.CandidateTools))
		for _, name := range state.CandidateTools {
			ordered = append(ordered, state.Analyses[name])
		}
		data, err := json.MarshalIndent(ordered, "", "  ")
		if err != nil {
			return &SynthesisError{Err: err}
		}
		analysesJSON = string(data)
	}

	report, err := w.generateText(ctx, synthesisSystem, synthesisUser(state.Query, analysesJSON))
	if err != nil {
		return &SynthesisError{Err: err}
	}

	state.FinalReport = report
	return nil
}
