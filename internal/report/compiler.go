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

// Compiler turns the settled section results into the final report with
// one free-form LLM call. The model output is returned verbatim.
type Compiler struct {
	llm       llm.Provider
	model     string
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

func NewCompiler(cfg *config.Config, provider llm.Provider, tele *telemetry.Telemetry) *Compiler {
	model := cfg.LLM.Routing.Synthesis
	if model == "" {
		model = cfg.LLM.Routing.Fallback
	}
	return &Compiler{
		llm:       provider,
		model:     model,
		telemetry: tele,
		logger:    log.New(log.Writer(), "[COMPILER] ", log.LstdFlags),
	}
}

const compilePrompt = `You are a professional report writer. Create a comprehensive final report that includes:

1. A compelling title for the report
2. An executive summary that captures the key insights
3. The detailed sections (already provided, keep them as-is)
4. A conclusion that synthesizes the findings and provides final thoughts

The report should be well-structured, professional, and provide valuable insights on the topic.

Topic: %s

Detailed Sections:%s

Format this as a complete, professional report.`

// Compile builds the final report over the results in accumulator order.
func (c *Compiler) Compile(ctx context.Context, topic string, results []SectionResult) (string, error) {
	var sections strings.Builder
	for _, r := range results {
		fmt.Fprintf(&sections, "\n\n## %s\n%s", r.Name, r.Summary)
	}

	prompt := fmt.Sprintf(compilePrompt, topic, sections.String())
	out, inTok, outTok, err := c.llm.GenerateWithTokens(ctx, prompt, c.model, map[string]interface{}{"temperature": 0.3})
	if c.telemetry != nil {
		c.telemetry.RecordLLMCall(c.model, inTok, outTok, c.llm.CalculateCost(inTok, outTok, c.model), err)
	}
	if err != nil {
		return "", &GenerationError{Op: "compile", Err: err}
	}
	return out, nil
}
