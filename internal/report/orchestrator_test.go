package report

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestRunHappyPath(t *testing.T) {
	provider := &stubLLM{}
	searcher := &stubSearcher{results: someResults()}
	o := testOrchestrator(provider, searcher)
	collector := &eventCollector{}

	rep, err := o.Run(context.Background(), "quantum computing", collector.notifier())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if rep.Topic != "quantum computing" {
		t.Fatalf("unexpected topic: %q", rep.Topic)
	}
	if rep.FinalReport != "FINAL REPORT" {
		t.Fatalf("unexpected final report: %q", rep.FinalReport)
	}
	if rep.Timestamp.IsZero() {
		t.Fatal("expected timestamp to be set")
	}
	if len(rep.Sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(rep.Sections))
	}
	for i, sec := range rep.Sections {
		want := []string{"Section 1", "Section 2", "Section 3"}[i]
		if sec.Name != want {
			t.Fatalf("section %d: got %q, want %q", i, sec.Name, want)
		}
		if len(sec.Queries) != 3 {
			t.Fatalf("section %q: expected 3 queries, got %d", sec.Name, len(sec.Queries))
		}
		if sec.Summary == "" {
			t.Fatalf("section %q: empty summary", sec.Name)
		}
	}

	// 3 sections x 3 queries
	if got := searcher.callCount(); got != 9 {
		t.Fatalf("expected 9 search calls, got %d", got)
	}

	events := collector.all()
	if len(events) == 0 {
		t.Fatal("expected progress events")
	}
	if events[0].Step != StepInitializing || events[0].Progress != 5 {
		t.Fatalf("unexpected first event: %+v", events[0])
	}
	last := events[len(events)-1]
	if last.Type != EventComplete || last.Progress != 100 || last.Result == nil {
		t.Fatalf("unexpected last event: %+v", last)
	}
	if len(collector.byType(EventError)) != 0 {
		t.Fatalf("unexpected error events: %+v", collector.byType(EventError))
	}

	// per-section settle percentages: 20 + completed*50/3
	var researching []int
	for _, ev := range events {
		if ev.Step == StepResearching && ev.Details["completed"] != nil {
			researching = append(researching, ev.Progress)
		}
	}
	want := []int{36, 53, 70}
	if len(researching) != len(want) {
		t.Fatalf("expected %d researching events, got %d", len(want), len(researching))
	}
	for i := range want {
		if researching[i] != want[i] {
			t.Fatalf("researching progress %d: got %d, want %d", i, researching[i], want[i])
		}
	}
}

func TestRunProgressMonotonic(t *testing.T) {
	// concurrent settles race to deliver their progress; repeat to give
	// the scheduler chances to interleave them
	for i := 0; i < 50; i++ {
		provider := &stubLLM{}
		searcher := &stubSearcher{results: someResults()}
		o := testOrchestrator(provider, searcher)
		collector := &eventCollector{}

		if _, err := o.Run(context.Background(), "renewable energy", collector.notifier()); err != nil {
			t.Fatalf("Run failed: %v", err)
		}

		prev := -1
		for _, ev := range collector.all() {
			if ev.Progress < prev {
				t.Fatalf("progress went backwards: %d after %d (%+v)", ev.Progress, prev, ev)
			}
			prev = ev.Progress
		}
	}
}

func TestRunPlanningFailure(t *testing.T) {
	provider := &stubLLM{planErr: errors.New("model unavailable")}
	searcher := &stubSearcher{results: someResults()}
	o := testOrchestrator(provider, searcher)
	collector := &eventCollector{}

	_, err := o.Run(context.Background(), "topic", collector.notifier())
	if err == nil {
		t.Fatal("expected error")
	}
	var perr *PlanningError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PlanningError, got %T: %v", err, err)
	}
	var gerr *GenerationError
	if !errors.As(err, &gerr) || gerr.Op != "plan" {
		t.Fatalf("expected wrapped GenerationError(plan), got %v", err)
	}

	// no section work started
	if got := searcher.callCount(); got != 0 {
		t.Fatalf("expected no search calls, got %d", got)
	}

	errs := collector.byType(EventError)
	if len(errs) != 1 {
		t.Fatalf("expected exactly one error event, got %d", len(errs))
	}
	if errs[0].Progress != 0 {
		t.Fatalf("error event progress: got %d, want 0", errs[0].Progress)
	}
	if len(collector.byType(EventComplete)) != 0 {
		t.Fatal("unexpected complete event after failure")
	}
}

func TestRunSectionFailure(t *testing.T) {
	provider := &stubLLM{
		summaryErr: func(section string) error {
			if section == "Section 2" {
				return errors.New("rate limited")
			}
			return nil
		},
	}
	searcher := &stubSearcher{results: someResults()}
	o := testOrchestrator(provider, searcher)
	collector := &eventCollector{}

	_, err := o.Run(context.Background(), "topic", collector.notifier())
	if err == nil {
		t.Fatal("expected error")
	}
	var serr *SectionTaskError
	if !errors.As(err, &serr) {
		t.Fatalf("expected SectionTaskError, got %T: %v", err, err)
	}
	if serr.Section != "Section 2" {
		t.Fatalf("expected Section 2 attribution, got %q", serr.Section)
	}

	// siblings ran to completion: every section searched all queries
	if got := searcher.callCount(); got != 9 {
		t.Fatalf("expected 9 search calls, got %d", got)
	}
	// the run never reached compilation
	if provider.compileCalls != 0 {
		t.Fatalf("expected no compile call, got %d", provider.compileCalls)
	}

	if got := len(collector.byType(EventError)); got != 1 {
		t.Fatalf("expected exactly one error event, got %d", got)
	}
	if len(collector.byType(EventComplete)) != 0 {
		t.Fatal("unexpected complete event after failure")
	}
}

// One of the dispatched tasks fails its retrieval; the run terminates
// with one error event naming a section and never compiles.
func TestRunSearchFailureIsTyped(t *testing.T) {
	provider := &stubLLM{}
	searcher := &stubSearcher{results: someResults(), err: errors.New("upstream 500"), failOn: 5}
	o := testOrchestrator(provider, searcher)
	collector := &eventCollector{}

	_, err := o.Run(context.Background(), "topic", collector.notifier())
	if err == nil {
		t.Fatal("expected error")
	}
	var serr *SectionTaskError
	if !errors.As(err, &serr) {
		t.Fatalf("expected SectionTaskError, got %T", err)
	}
	if serr.Section == "" {
		t.Fatal("expected failing section recorded")
	}
	var searchErr *SearchError
	if !errors.As(err, &searchErr) {
		t.Fatalf("expected wrapped SearchError, got %v", err)
	}
	if searchErr.Provider != "tavily" || searchErr.Query == "" {
		t.Fatalf("search error missing context: %+v", searchErr)
	}

	if provider.compileCalls != 0 {
		t.Fatalf("expected no compile call, got %d", provider.compileCalls)
	}
	if got := len(collector.byType(EventError)); got != 1 {
		t.Fatalf("expected exactly one error event, got %d", got)
	}
}

// Completion order must not affect the terminal result: sections settle
// 3, 2, 1 but the report keeps plan order and the compiler sees
// summaries in arrival order.
func TestRunOrderIndependence(t *testing.T) {
	var mu sync.Mutex
	settled := map[string]bool{}
	collector := &eventCollector{}

	waitFor := func(section string) {
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			mu.Lock()
			done := settled[section]
			mu.Unlock()
			if done {
				return
			}
			time.Sleep(time.Millisecond)
		}
	}

	provider := &stubLLM{
		summaryGate: func(section string) {
			switch section {
			case "Section 2":
				waitFor("Section 3")
			case "Section 1":
				waitFor("Section 2")
			}
		},
	}
	searcher := &stubSearcher{results: someResults()}
	o := testOrchestrator(provider, searcher)

	base := collector.notifier()
	notifier := func(ev Event) {
		if ev.Step == StepResearching && ev.Details["completed"] != nil {
			if name, ok := ev.Details["section"].(string); ok {
				mu.Lock()
				settled[name] = true
				mu.Unlock()
			}
		}
		base(ev)
	}

	rep, err := o.Run(context.Background(), "topic", notifier)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// settle order was reversed
	var order []string
	for _, ev := range collector.all() {
		if ev.Step == StepResearching && ev.Details["completed"] != nil {
			order = append(order, ev.Details["section"].(string))
		}
	}
	wantOrder := []string{"Section 3", "Section 2", "Section 1"}
	for i := range wantOrder {
		if order[i] != wantOrder[i] {
			t.Fatalf("settle order: got %v, want %v", order, wantOrder)
		}
	}

	// terminal result stays in plan order
	for i, want := range []string{"Section 1", "Section 2", "Section 3"} {
		if rep.Sections[i].Name != want {
			t.Fatalf("report section %d: got %q, want %q", i, rep.Sections[i].Name, want)
		}
	}

	// compiler input follows accumulator (arrival) order
	prompt := provider.lastCompilePrompt
	i3 := strings.Index(prompt, "## Section 3")
	i1 := strings.Index(prompt, "## Section 1")
	if i3 == -1 || i1 == -1 || i3 > i1 {
		t.Fatalf("compile prompt not in arrival order:\n%s", prompt)
	}
}

func TestRunEmptyCorpus(t *testing.T) {
	provider := &stubLLM{}
	searcher := &stubSearcher{} // zero results for every query
	o := testOrchestrator(provider, searcher)

	rep, err := o.Run(context.Background(), "obscure topic", nil)
	if err != nil {
		t.Fatalf("empty corpus must not fail the run: %v", err)
	}
	if len(rep.Sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(rep.Sections))
	}
	for _, sec := range rep.Sections {
		if sec.Summary == "" {
			t.Fatalf("section %q: expected summary despite empty corpus", sec.Name)
		}
	}
}

func TestRunNilNotifier(t *testing.T) {
	provider := &stubLLM{}
	searcher := &stubSearcher{results: someResults()}
	o := testOrchestrator(provider, searcher)

	if _, err := o.Run(context.Background(), "topic", nil); err != nil {
		t.Fatalf("Run with nil notifier failed: %v", err)
	}
}

func TestRunNotifierPanicDoesNotAbort(t *testing.T) {
	provider := &stubLLM{}
	searcher := &stubSearcher{results: someResults()}
	o := testOrchestrator(provider, searcher)

	rep, err := o.Run(context.Background(), "topic", func(Event) {
		panic("sink is broken")
	})
	if err != nil {
		t.Fatalf("notifier panic aborted the run: %v", err)
	}
	if rep == nil || rep.FinalReport == "" {
		t.Fatal("expected a complete report")
	}
}
