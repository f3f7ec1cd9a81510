package report

import "fmt"

// PlanningError means the outline phase failed; no section work started.
type PlanningError struct {
	Err error
}

func (e *PlanningError) Error() string {
	return fmt.Sprintf("planning failed: %v", e.Err)
}

func (e *PlanningError) Unwrap() error { return e.Err }

// GenerationError means an LLM call failed or its structured output did
// not conform to the expected schema.
type GenerationError struct {
	Op  string // plan, queries, summary, compile
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation %s failed: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// SearchError means a web search call failed.
type SearchError struct {
	Provider string
	Query    string
	Err      error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search %s failed for %q: %v", e.Provider, e.Query, e.Err)
}

func (e *SearchError) Unwrap() error { return e.Err }

// SectionTaskError wraps any failure inside one section task with the
// section it belongs to.
type SectionTaskError struct {
	Section string
	Err     error
}

func (e *SectionTaskError) Error() string {
	return fmt.Sprintf("section %q failed: %v", e.Section, e.Err)
}

func (e *SectionTaskError) Unwrap() error { return e.Err }
