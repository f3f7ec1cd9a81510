package report

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mohammad-safakhou/researcher/config"
	"github.com/mohammad-safakhou/researcher/internal/llm"
	"github.com/mohammad-safakhou/researcher/internal/telemetry"
)

// Planner turns a topic into an ordered three-section outline with a
// single structured LLM call.
type Planner struct {
	llm       llm.Provider
	model     string
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

func NewPlanner(cfg *config.Config, provider llm.Provider, tele *telemetry.Telemetry) *Planner {
	model := cfg.LLM.Routing.Planning
	if model == "" {
		model = cfg.LLM.Routing.Fallback
	}
	return &Planner{
		llm:       provider,
		model:     model,
		telemetry: tele,
		logger:    log.New(log.Writer(), "[PLANNER] ", log.LstdFlags),
	}
}

const planPrompt = `You are a research analyst. Given a topic, create an initial research outline with exactly 3 main sections.

For each section, provide a clear, descriptive title and a brief description of what should be covered in that section. The 3 sections should provide comprehensive coverage of the topic from different angles or aspects.

Topic: %s

Respond ONLY as strict JSON:
{"section_1": "title and brief description", "section_2": "title and brief description", "section_3": "title and brief description"}`

// Plan produces the section plan for a topic. There are no partial
// plans: any non-conforming output fails the whole call.
func (p *Planner) Plan(ctx context.Context, topic string) (SectionPlan, error) {
	var parsed struct {
		Section1 string `json:"section_1"`
		Section2 string `json:"section_2"`
		Section3 string `json:"section_3"`
	}

	prompt := fmt.Sprintf(planPrompt, topic)
	inTok, outTok, err := llm.GenerateJSON(ctx, p.llm, prompt, p.model, map[string]interface{}{"temperature": 0.2}, &parsed)
	if p.telemetry != nil {
		p.telemetry.RecordLLMCall(p.model, inTok, outTok, p.llm.CalculateCost(inTok, outTok, p.model), err)
	}
	if err != nil {
		return nil, &GenerationError{Op: "plan", Err: err}
	}

	descriptions := []string{parsed.Section1, parsed.Section2, parsed.Section3}
	plan := make(SectionPlan, 0, len(descriptions))
	for i, desc := range descriptions {
		if strings.TrimSpace(desc) == "" {
			return nil, &GenerationError{Op: "plan", Err: fmt.Errorf("section_%d missing from outline", i+1)}
		}
		plan = append(plan, PlannedSection{
			Name:        fmt.Sprintf("Section %d", i+1),
			Description: desc,
		})
	}

	p.logger.Printf("Planned %d sections for topic %q", len(plan), topic)
	return plan, nil
}
