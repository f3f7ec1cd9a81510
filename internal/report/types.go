package report

import "time"

// RunState tracks where a single-shot run currently is. A run moves
// Planning -> Processing -> Compiling -> Done, or to Failed from any state.
type RunState string

const (
	StatePlanning   RunState = "planning"
	StateProcessing RunState = "processing"
	StateCompiling  RunState = "compiling"
	StateDone       RunState = "done"
	StateFailed     RunState = "failed"
)

// PlannedSection is one entry of the research outline.
type PlannedSection struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SectionPlan is the ordered outline produced by the planner. Order is
// creation order ("Section 1" first), not map iteration order.
type SectionPlan []PlannedSection

// SectionTask is the unit of work handed to a section processor.
type SectionTask struct {
	Topic      string
	Section    PlannedSection
	NumQueries int
	MaxResults int

	// Notify receives intermediate progress events for this task.
	// May be nil.
	Notify Notifier
}

// SectionResult is the settled output of one section task.
type SectionResult struct {
	Name    string
	Queries []string
	Content string // merged search corpus, may be empty
	Summary string

	TokensUsed int64
	Cost       float64
}

// ReportSection is the per-section slice of the terminal result.
type ReportSection struct {
	Name    string   `json:"name"`
	Queries []string `json:"queries"`
	Summary string   `json:"summary"`
}

// Report is the terminal result of a successful run.
type Report struct {
	Topic       string          `json:"topic"`
	Sections    []ReportSection `json:"sections"`
	FinalReport string          `json:"final_report"`
	Timestamp   time.Time       `json:"timestamp"`
}
