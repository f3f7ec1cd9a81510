package telemetry

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mohammad-safakhou/researcher/config"
)

// Telemetry provides run monitoring and cost tracking
type Telemetry struct {
	config      config.TelemetryConfig
	logger      *log.Logger
	costTracker *CostTracker
	mu          sync.RWMutex
}

// CostTracker tracks LLM costs across models
type CostTracker struct {
	mu sync.RWMutex

	// Model costs
	ModelCosts map[string]float64 // model -> cost

	// Total costs
	TotalCost   float64
	TotalTokens int64
}

// RunEvent represents a completed report run
type RunEvent struct {
	ID             string
	Topic          string
	StartTime      time.Time
	EndTime        time.Time
	ProcessingTime time.Duration
	Success        bool
	Error          string
	Cost           float64
	TokensUsed     int64
	Sections       int
}

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "researcher_runs_total",
		Help: "Report runs by outcome.",
	}, []string{"outcome"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "researcher_run_duration_seconds",
		Help:    "End-to-end report run duration.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	llmRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "researcher_llm_requests_total",
		Help: "LLM requests by model and outcome.",
	}, []string{"model", "outcome"})

	llmTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "researcher_llm_tokens_total",
		Help: "LLM tokens by model and direction.",
	}, []string{"model", "direction"})

	searchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "researcher_search_requests_total",
		Help: "Web search requests by provider and outcome.",
	}, []string{"provider", "outcome"})
)

// NewTelemetry creates a new telemetry instance
func NewTelemetry(cfg config.TelemetryConfig) *Telemetry {
	return &Telemetry{
		config: cfg,
		logger: log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
		costTracker: &CostTracker{
			ModelCosts: make(map[string]float64),
		},
	}
}

// RecordRun records a completed report run
func (t *Telemetry) RecordRun(ctx context.Context, event RunEvent) {
	if !t.config.Enabled {
		return
	}

	outcome := "success"
	if !event.Success {
		outcome = "failure"
	}
	runsTotal.WithLabelValues(outcome).Inc()
	runDuration.Observe(event.ProcessingTime.Seconds())

	t.mu.Lock()
	t.costTracker.TotalCost += event.Cost
	t.costTracker.TotalTokens += event.TokensUsed
	t.mu.Unlock()

	t.logger.Printf("Run: ID=%s, Success=%t, Duration=%v, Cost=$%.4f, Tokens=%d, Sections=%d",
		event.ID, event.Success, event.ProcessingTime, event.Cost, event.TokensUsed, event.Sections)
}

// RecordLLMCall records a single LLM request
func (t *Telemetry) RecordLLMCall(model string, inputTokens, outputTokens int64, cost float64, err error) {
	if !t.config.Enabled {
		return
	}

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	llmRequests.WithLabelValues(model, outcome).Inc()
	llmTokens.WithLabelValues(model, "input").Add(float64(inputTokens))
	llmTokens.WithLabelValues(model, "output").Add(float64(outputTokens))

	if t.config.CostTracking {
		t.costTracker.mu.Lock()
		t.costTracker.ModelCosts[model] += cost
		t.costTracker.mu.Unlock()
	}
}

// RecordSearch records a single web search request
func (t *Telemetry) RecordSearch(provider string, results int, err error) {
	if !t.config.Enabled {
		return
	}

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	searchRequests.WithLabelValues(provider, outcome).Inc()
}

// TotalCost returns the accumulated LLM cost
func (t *Telemetry) TotalCost() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.costTracker.TotalCost
}
