package report

import "log"

// Event is a single progress update pushed to the run's notifier.
type Event struct {
	Type     string                 `json:"type"` // status, complete, error
	Step     string                 `json:"step,omitempty"`
	Message  string                 `json:"message"`
	Progress int                    `json:"progress"`
	Details  map[string]interface{} `json:"details,omitempty"`
	Result   *Report                `json:"result,omitempty"`
}

const (
	EventStatus   = "status"
	EventComplete = "complete"
	EventError    = "error"
)

const (
	StepInitializing     = "initializing"
	StepPlanning         = "planning"
	StepPlanningComplete = "planning_complete"
	StepQueryGeneration  = "query_generation"
	StepResearching      = "researching"
	StepWriting          = "writing"
	StepFinalizing       = "finalizing"
	StepComplete         = "complete"
	StepError            = "error"
)

// Notifier receives progress events for one run. A nil Notifier is
// valid and means the caller does not care about progress.
type Notifier func(Event)

// notify delivers an event to a possibly-nil notifier. A panicking sink
// must never abort the run, so panics are swallowed and logged.
func notify(logger *log.Logger, n Notifier, ev Event) {
	if n == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil && logger != nil {
			logger.Printf("notifier panic on %s/%s: %v", ev.Type, ev.Step, r)
		}
	}()
	n(ev)
}
