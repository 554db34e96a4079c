package workflow

import "fmt"

// SearchError reports a provider-side search failure (quota, network).
// An empty result set is not a SearchError.
type SearchError struct {
	Query string
	Err   error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search %q failed: %v", e.Query, e.Err)
}

func (e *SearchError) Unwrap() error { return e.Err }

// ScrapeError reports a blocked, unreachable or non-text scrape target.
type ScrapeError struct {
	URL string
	Err error
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("scrape %s failed: %v", e.URL, e.Err)
}

func (e *ScrapeError) Unwrap() error { return e.Err }

// LLMError reports a provider failure on a completion call.
type LLMError struct {
	Err error
}

func (e *LLMError) Error() string {
	return fmt.Sprintf("llm call failed: %v", e.Err)
}

func (e *LLMError) Unwrap() error { return e.Err }

// SchemaValidationError reports a structured LLM response that does not
// conform to the requested shape. Field is empty when the response as a
// whole could not be parsed.
type SchemaValidationError struct {
	Field  string
	Reason string
}

func (e *SchemaValidationError) Error() string {
	if e.Field == "" {
		return "schema validation failed: " + e.Reason
	}
	return fmt.Sprintf("schema validation failed: field %q: %s", e.Field, e.Reason)
}

// ExtractionError is fatal: without a candidate list no report can be produced.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("tool extraction failed: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// SynthesisError is fatal: the run has no meaningful output without the
// final comparison.
type SynthesisError struct {
	Err error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("report synthesis failed: %v", e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }
