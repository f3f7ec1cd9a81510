package report

import (
	"context"
	"fmt"
	"log"

	"github.com/mohammad-safakhou/researcher/config"
	"github.com/mohammad-safakhou/researcher/internal/llm"
	"github.com/mohammad-safakhou/researcher/internal/search"
	"github.com/mohammad-safakhou/researcher/internal/telemetry"
)

// SectionProcessor runs one section task end to end: query generation,
// retrieval, summarization.
type SectionProcessor struct {
	llm          llm.Provider
	searcher     search.WebSearcher
	providerName string
	queryModel   string
	summaryModel string
	telemetry    *telemetry.Telemetry
	logger       *log.Logger
}

func NewSectionProcessor(cfg *config.Config, provider llm.Provider, searcher search.WebSearcher, tele *telemetry.Telemetry) *SectionProcessor {
	queryModel := cfg.LLM.Routing.Research
	if queryModel == "" {
		queryModel = cfg.LLM.Routing.Fallback
	}
	summaryModel := cfg.LLM.Routing.Synthesis
	if summaryModel == "" {
		summaryModel = cfg.LLM.Routing.Fallback
	}
	return &SectionProcessor{
		llm:          provider,
		searcher:     searcher,
		providerName: cfg.Search.Provider,
		queryModel:   queryModel,
		summaryModel: summaryModel,
		telemetry:    tele,
		logger:       log.New(log.Writer(), "[SECTION] ", log.LstdFlags),
	}
}

const queryPrompt = `You are a research assistant. Generate specific search queries to gather comprehensive information for a research section.

Topic: %s
Section: %s
Description: %s

Generate %d focused search queries that will help gather detailed information for this section.

Respond ONLY as strict JSON: {"queries": ["query", ...]}`

const summaryPrompt = `You are a research analyst. Create a comprehensive, detailed summary for a research section based on the provided search results.

The summary should:
- Be well-structured and informative
- Include key facts, insights, and relevant details from the search results
- Be substantial enough to stand as a complete section in a research report
- Maintain objectivity and cite important findings

Section: %s
Description: %s
Topic Context: %s

Search Results:
%s

Create a detailed summary for this section based on the search results above.`

// Process runs a single section task. Failures come back as
// GenerationError or SearchError; the orchestrator attributes them to
// the section.
func (sp *SectionProcessor) Process(ctx context.Context, task SectionTask) (SectionResult, error) {
	notify(sp.logger, task.Notify, Event{
		Type:    EventStatus,
		Step:    StepQueryGeneration,
		Message: fmt.Sprintf("Generating search queries for: %s", task.Section.Name),
		Details: map[string]interface{}{"section": task.Section.Name},
	})

	var tokens int64
	var cost float64

	// Step 1: sub-queries for this section
	var parsed struct {
		Queries []string `json:"queries"`
	}
	prompt := fmt.Sprintf(queryPrompt, task.Topic, task.Section.Name, task.Section.Description, task.NumQueries)
	inTok, outTok, err := llm.GenerateJSON(ctx, sp.llm, prompt, sp.queryModel, map[string]interface{}{"temperature": 0.2}, &parsed)
	if sp.telemetry != nil {
		sp.telemetry.RecordLLMCall(sp.queryModel, inTok, outTok, sp.llm.CalculateCost(inTok, outTok, sp.queryModel), err)
	}
	tokens += inTok + outTok
	cost += sp.llm.CalculateCost(inTok, outTok, sp.queryModel)
	if err != nil {
		return SectionResult{}, &GenerationError{Op: "queries", Err: err}
	}
	if len(parsed.Queries) == 0 {
		return SectionResult{}, &GenerationError{Op: "queries", Err: fmt.Errorf("no queries returned")}
	}
	queries := parsed.Queries
	if len(queries) > task.NumQueries {
		queries = queries[:task.NumQueries]
	}

	notify(sp.logger, task.Notify, Event{
		Type:    EventStatus,
		Step:    StepResearching,
		Message: fmt.Sprintf("Searching the web for: %s", task.Section.Name),
		Details: map[string]interface{}{"section": task.Section.Name, "queries": queries},
	})

	// Step 2: retrieval, merged across queries
	var batches []search.QueryResults
	for _, q := range queries {
		results, err := sp.searcher.Discover(ctx, q, task.MaxResults)
		if sp.telemetry != nil {
			sp.telemetry.RecordSearch(sp.providerName, len(results), err)
		}
		if err != nil {
			return SectionResult{}, &SearchError{Provider: sp.providerName, Query: q, Err: err}
		}
		batches = append(batches, search.QueryResults{Query: q, Results: results})
	}
	corpus := search.BuildCorpus(batches)
	if corpus == "" {
		sp.logger.Printf("Empty corpus for section %q, summarizing without sources", task.Section.Name)
	}

	notify(sp.logger, task.Notify, Event{
		Type:    EventStatus,
		Step:    StepWriting,
		Message: fmt.Sprintf("Writing summary for: %s", task.Section.Name),
		Details: map[string]interface{}{"section": task.Section.Name, "queries": queries},
	})

	// Step 3: detailed summary from the retrieved content
	sumPrompt := fmt.Sprintf(summaryPrompt, task.Section.Name, task.Section.Description, task.Topic, corpus)
	summary, inTok, outTok, err := sp.llm.GenerateWithTokens(ctx, sumPrompt, sp.summaryModel, map[string]interface{}{"temperature": 0.3})
	if sp.telemetry != nil {
		sp.telemetry.RecordLLMCall(sp.summaryModel, inTok, outTok, sp.llm.CalculateCost(inTok, outTok, sp.summaryModel), err)
	}
	tokens += inTok + outTok
	cost += sp.llm.CalculateCost(inTok, outTok, sp.summaryModel)
	if err != nil {
		return SectionResult{}, &GenerationError{Op: "summary", Err: err}
	}

	return SectionResult{
		Name:       task.Section.Name,
		Queries:    queries,
		Content:    corpus,
		Summary:    summary,
		TokensUsed: tokens,
		Cost:       cost,
	}, nil
}
