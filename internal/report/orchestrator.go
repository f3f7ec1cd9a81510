package report

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mohammad-safakhou/researcher/config"
	"github.com/mohammad-safakhou/researcher/internal/llm"
	"github.com/mohammad-safakhou/researcher/internal/search"
	"github.com/mohammad-safakhou/researcher/internal/telemetry"
)

// Orchestrator runs the whole pipeline for one topic: plan the outline,
// process every section concurrently, compile the final report. Each
// call to Run is an independent single-shot run.
type Orchestrator struct {
	config    *config.Config
	logger    *log.Logger
	telemetry *telemetry.Telemetry

	planner   *Planner
	processor *SectionProcessor
	compiler  *Compiler
}

var reportTracer trace.Tracer = otel.Tracer("researcher/internal/report")

// NewOrchestrator builds an orchestrator from configuration, wiring the
// configured LLM provider and search provider.
func NewOrchestrator(cfg *config.Config, logger *log.Logger, tele *telemetry.Telemetry) (*Orchestrator, error) {
	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}

	searcher, err := search.NewWebSearcher(search.Provider(cfg.Search.Provider), cfg.SearchAPIKey(), search.Options{
		Timeout: cfg.Search.Timeout,
		Retries: cfg.Search.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create web searcher: %w", err)
	}

	return New(cfg, logger, tele, provider, searcher), nil
}

// New builds an orchestrator from explicit components.
func New(cfg *config.Config, logger *log.Logger, tele *telemetry.Telemetry, provider llm.Provider, searcher search.WebSearcher) *Orchestrator {
	if logger == nil {
		logger = log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	}
	return &Orchestrator{
		config:    cfg,
		logger:    logger,
		telemetry: tele,
		planner:   NewPlanner(cfg, provider, tele),
		processor: NewSectionProcessor(cfg, provider, searcher, tele),
		compiler:  NewCompiler(cfg, provider, tele),
	}
}

// Run executes one research run. The notifier may be nil; notifier
// failures never abort the run. On failure exactly one error event is
// emitted and the typed error is returned.
func (o *Orchestrator) Run(ctx context.Context, topic string, notifier Notifier) (*Report, error) {
	runID := uuid.NewString()
	start := time.Now()

	if o.config.General.MaxProcessingTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.General.MaxProcessingTime)
		defer cancel()
	}

	ctx, span := reportTracer.Start(ctx, "report.run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("run.topic", topic),
		))
	defer span.End()

	o.logger.Printf("Run %s started for topic %q", runID, topic)

	// progress is shared between the fan-out goroutines and the
	// section notifier; current only ever increases on the non-error
	// path.
	var mu sync.Mutex
	current := 5
	state := StatePlanning

	emit := func(ev Event) { notify(o.logger, notifier, ev) }
	progressNow := func() int {
		mu.Lock()
		defer mu.Unlock()
		return current
	}
	sectionNotify := func(ev Event) {
		ev.Progress = progressNow()
		emit(ev)
	}
	fail := func(err error) {
		mu.Lock()
		failedIn := state
		state = StateFailed
		mu.Unlock()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		emit(Event{
			Type:     EventError,
			Step:     StepError,
			Message:  fmt.Sprintf("Research error: %v", err),
			Progress: 0,
		})
		if o.telemetry != nil {
			o.telemetry.RecordRun(ctx, telemetry.RunEvent{
				ID: runID, Topic: topic, StartTime: start, EndTime: time.Now(),
				ProcessingTime: time.Since(start), Success: false, Error: err.Error(),
			})
		}
		o.logger.Printf("Run %s failed in state %s: %v", runID, failedIn, err)
	}

	emit(Event{
		Type:     EventStatus,
		Step:     StepInitializing,
		Message:  fmt.Sprintf("Starting research on: %s", topic),
		Progress: 5,
	})

	// Planning
	emit(Event{
		Type:     EventStatus,
		Step:     StepPlanning,
		Message:  "Creating research plan...",
		Progress: 5,
	})
	planCtx, planSpan := reportTracer.Start(ctx, "report.plan")
	plan, err := o.planner.Plan(planCtx, topic)
	if err != nil {
		planSpan.RecordError(err)
		planSpan.SetStatus(codes.Error, err.Error())
		planSpan.End()
		perr := &PlanningError{Err: err}
		fail(perr)
		return nil, perr
	}
	planSpan.SetAttributes(attribute.Int("plan.sections", len(plan)))
	planSpan.SetStatus(codes.Ok, "planned")
	planSpan.End()

	mu.Lock()
	current = 20
	state = StateProcessing
	mu.Unlock()

	sectionDetails := make([]map[string]interface{}, 0, len(plan))
	for _, s := range plan {
		sectionDetails = append(sectionDetails, map[string]interface{}{"name": s.Name, "description": s.Description})
	}
	emit(Event{
		Type:     EventStatus,
		Step:     StepPlanningComplete,
		Message:  fmt.Sprintf("Research plan created with %d sections", len(plan)),
		Progress: 20,
		Details:  map[string]interface{}{"sections": sectionDetails},
	})

	// Processing: one goroutine per planned section. Results are
	// appended under the mutex in completion order; the WaitGroup is
	// the barrier into compilation. On failure siblings still run to
	// completion and their results are discarded.
	total := len(plan)
	results := make([]SectionResult, 0, total)
	completed := 0
	var wg sync.WaitGroup
	errCh := make(chan error, total)

	for _, sec := range plan {
		wg.Add(1)
		go func(sec PlannedSection) {
			defer wg.Done()

			taskCtx, taskSpan := reportTracer.Start(ctx, "report.section",
				trace.WithAttributes(attribute.String("section.name", sec.Name)))
			defer taskSpan.End()

			res, err := o.processor.Process(taskCtx, SectionTask{
				Topic:      topic,
				Section:    sec,
				NumQueries: o.config.Report.QueriesPerSection,
				MaxResults: o.config.Report.MaxResultsPerQuery,
				Notify:     sectionNotify,
			})
			if err != nil {
				taskSpan.RecordError(err)
				taskSpan.SetStatus(codes.Error, err.Error())
				errCh <- &SectionTaskError{Section: sec.Name, Err: err}
				return
			}
			taskSpan.SetAttributes(
				attribute.Int("section.queries", len(res.Queries)),
				attribute.Int64("section.tokens", res.TokensUsed),
			)
			taskSpan.SetStatus(codes.Ok, "completed")

			// emitted under the lock so settle events reach the
			// notifier in the order their progress was computed
			mu.Lock()
			results = append(results, res)
			completed++
			done := completed
			current = 20 + done*50/total
			emit(Event{
				Type:     EventStatus,
				Step:     StepResearching,
				Message:  fmt.Sprintf("Completed analysis for: %s", sec.Name),
				Progress: current,
				Details: map[string]interface{}{
					"section":   sec.Name,
					"queries":   res.Queries,
					"completed": done,
					"total":     total,
				},
			})
			mu.Unlock()

			o.logger.Printf("Run %s completed section %q (%d/%d)", runID, sec.Name, done, total)
		}(sec)
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			fail(err)
			return nil, err
		}
	}

	// Compiling
	mu.Lock()
	current = 90
	state = StateCompiling
	mu.Unlock()

	emit(Event{
		Type:     EventStatus,
		Step:     StepFinalizing,
		Message:  "Compiling comprehensive research report...",
		Progress: 90,
	})

	compileCtx, compileSpan := reportTracer.Start(ctx, "report.compile")
	finalReport, err := o.compiler.Compile(compileCtx, topic, results)
	if err != nil {
		compileSpan.RecordError(err)
		compileSpan.SetStatus(codes.Error, err.Error())
		compileSpan.End()
		fail(err)
		return nil, err
	}
	compileSpan.SetStatus(codes.Ok, "compiled")
	compileSpan.End()

	// Terminal result keeps the plan order, independent of which
	// section settled first.
	byName := make(map[string]SectionResult, len(results))
	var tokens int64
	var cost float64
	for _, r := range results {
		byName[r.Name] = r
		tokens += r.TokensUsed
		cost += r.Cost
	}
	sections := make([]ReportSection, 0, len(plan))
	for _, s := range plan {
		r := byName[s.Name]
		sections = append(sections, ReportSection{Name: r.Name, Queries: r.Queries, Summary: r.Summary})
	}

	rep := &Report{
		Topic:       topic,
		Sections:    sections,
		FinalReport: finalReport,
		Timestamp:   time.Now().UTC(),
	}

	mu.Lock()
	current = 100
	state = StateDone
	mu.Unlock()

	emit(Event{
		Type:     EventComplete,
		Step:     StepComplete,
		Message:  "Research completed successfully",
		Progress: 100,
		Result:   rep,
	})

	if o.telemetry != nil {
		o.telemetry.RecordRun(ctx, telemetry.RunEvent{
			ID: runID, Topic: topic, StartTime: start, EndTime: time.Now(),
			ProcessingTime: time.Since(start), Success: true,
			TokensUsed: tokens, Cost: cost, Sections: len(sections),
		})
	}
	span.SetStatus(codes.Ok, "completed")
	o.logger.Printf("Run %s completed in %v", runID, time.Since(start))

	return rep, nil
}
