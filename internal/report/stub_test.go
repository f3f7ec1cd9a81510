package report

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/mohammad-safakhou/researcher/config"
	"github.com/mohammad-safakhou/researcher/internal/llm"
	"github.com/mohammad-safakhou/researcher/internal/search/models"
	"github.com/mohammad-safakhou/researcher/internal/telemetry"
)

// stubLLM scripts responses per pipeline stage, keyed off the prompt.
type stubLLM struct {
	mu sync.Mutex

	planResp  string
	planErr   error
	queryResp string
	queryErr  error
	// summaryErr lets a test fail the summary of one named section
	summaryErr func(section string) error
	// summaryGate blocks summary generation until the test releases it
	summaryGate func(section string)
	compileErr  error

	planCalls         int
	queryCalls        int
	summaryCalls      int
	compileCalls      int
	lastCompilePrompt string
}

var sectionNameRe = regexp.MustCompile(`Section: (Section \d+)`)

func (s *stubLLM) Generate(ctx context.Context, prompt, model string, options map[string]interface{}) (string, error) {
	out, _, _, err := s.GenerateWithTokens(ctx, prompt, model, options)
	return out, err
}

func (s *stubLLM) GenerateWithTokens(ctx context.Context, prompt, model string, options map[string]interface{}) (string, int64, int64, error) {
	switch {
	case strings.Contains(prompt, "initial research outline"):
		s.mu.Lock()
		s.planCalls++
		s.mu.Unlock()
		if s.planErr != nil {
			return "", 0, 0, s.planErr
		}
		resp := s.planResp
		if resp == "" {
			resp = `{"section_1": "Origins and history", "section_2": "Current landscape", "section_3": "Future directions"}`
		}
		return resp, 12, 8, nil

	case strings.Contains(prompt, "focused search queries"):
		s.mu.Lock()
		s.queryCalls++
		s.mu.Unlock()
		if s.queryErr != nil {
			return "", 0, 0, s.queryErr
		}
		resp := s.queryResp
		if resp == "" {
			resp = `{"queries": ["q1", "q2", "q3"]}`
		}
		return resp, 12, 8, nil

	case strings.Contains(prompt, "professional report writer"):
		s.mu.Lock()
		s.compileCalls++
		s.lastCompilePrompt = prompt
		s.mu.Unlock()
		if s.compileErr != nil {
			return "", 0, 0, s.compileErr
		}
		return "FINAL REPORT", 20, 30, nil

	case strings.Contains(prompt, "detailed summary"):
		section := ""
		if m := sectionNameRe.FindStringSubmatch(prompt); m != nil {
			section = m[1]
		}
		if s.summaryGate != nil {
			s.summaryGate(section)
		}
		if s.summaryErr != nil {
			if err := s.summaryErr(section); err != nil {
				return "", 0, 0, err
			}
		}
		s.mu.Lock()
		s.summaryCalls++
		s.mu.Unlock()
		return "summary of " + section, 15, 25, nil
	}
	return "", 0, 0, fmt.Errorf("unexpected prompt: %s", prompt)
}

func (s *stubLLM) GetAvailableModels() []string { return []string{"stub"} }

func (s *stubLLM) GetModelInfo(model string) (llm.ModelInfo, error) {
	return llm.ModelInfo{Name: model, Provider: "stub"}, nil
}

func (s *stubLLM) CalculateCost(inputTokens, outputTokens int64, model string) float64 {
	return float64(inputTokens+outputTokens) / 1000.0
}

// stubSearcher returns a fixed result set for every query. When failOn
// is set, only that call (1-based) fails.
type stubSearcher struct {
	mu      sync.Mutex
	calls   int
	results []models.Result
	err     error
	failOn  int
}

func (s *stubSearcher) Discover(ctx context.Context, q string, k int) ([]models.Result, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.mu.Unlock()
	if s.err != nil && (s.failOn == 0 || call == s.failOn) {
		return nil, s.err
	}
	return s.results, nil
}

func (s *stubSearcher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// eventCollector records every progress event in arrival order.
type eventCollector struct {
	mu     sync.Mutex
	events []Event
}

func (c *eventCollector) notifier() Notifier {
	return func(ev Event) {
		c.mu.Lock()
		c.events = append(c.events, ev)
		c.mu.Unlock()
	}
}

func (c *eventCollector) all() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

func (c *eventCollector) byType(typ string) []Event {
	var out []Event
	for _, ev := range c.all() {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func testConfig() *config.Config {
	return &config.Config{
		LLM: config.LLMConfig{
			Providers: map[string]config.LLMProvider{
				"stub": {Type: "openai", Models: map[string]config.LLMModel{"stub": {Name: "stub"}}},
			},
			Routing: config.LLMRoutingConfig{Planning: "stub", Research: "stub", Synthesis: "stub", Fallback: "stub"},
		},
		Search:    config.SearchConfig{Provider: "tavily"},
		Report:    config.ReportConfig{QueriesPerSection: 3, MaxResultsPerQuery: 5},
		Telemetry: config.TelemetryConfig{Enabled: false},
	}
}

func testOrchestrator(provider llm.Provider, searcher *stubSearcher) *Orchestrator {
	cfg := testConfig()
	return New(cfg, nil, telemetry.NewTelemetry(cfg.Telemetry), provider, searcher)
}

func someResults() []models.Result {
	return []models.Result{
		{Title: "A", URL: "https://a.example", Snippet: "alpha"},
		{Title: "B", URL: "https://b.example", Snippet: "beta"},
	}
}
