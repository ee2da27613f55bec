package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// Skill tool names.
const (
	SkillFactQuestion    = "answer_fact_question"
	SkillSummarizeText   = "summarize_text"
	SkillCreativeWriting = "creative_writing"
)

type factInput struct {
	Question string `json:"question" jsonschema_description:"The factual question to answer"`
}

type summarizeInput struct {
	Text string `json:"text" jsonschema_description:"The text to summarize"`
}

type creativeInput struct {
	Topic string `json:"topic" jsonschema_description:"The topic or request for the creative piece"`
}

// skillRecorder captures the raw output of whichever skill ran during
// one Generate call. The gateway returns the recorded text verbatim so
// the orchestrating model cannot rewrite skill output on the way out.
type skillRecorder struct {
	mu     sync.Mutex
	skill  string
	output string
	used   bool
}

func (r *skillRecorder) record(skill, output string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skill = skill
	r.output = output
	r.used = true
}

func (r *skillRecorder) result() (skill, output string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.skill, r.output, r.used
}

type recorderKey struct{}

func withRecorder(ctx context.Context, r *skillRecorder) context.Context {
	return context.WithValue(ctx, recorderKey{}, r)
}

func recorderFrom(ctx context.Context) *skillRecorder {
	r, _ := ctx.Value(recorderKey{}).(*skillRecorder)
	return r
}

// defineSkills registers the three skill tools. Each skill runs its own
// generation with a narrow prompt, then records the raw output.
func (gw *Gateway) defineSkills() []ai.ToolRef {
	fact := genkit.DefineTool(gw.genkit, SkillFactQuestion,
		"Answers a factual question from the user.",
		func(ctx *ai.ToolContext, input factInput) (string, error) {
			return gw.runSkill(ctx, SkillFactQuestion, factPrompt, input.Question)
		})

	summarize := genkit.DefineTool(gw.genkit, SkillSummarizeText,
		"Summarizes a passage of text provided by the user.",
		func(ctx *ai.ToolContext, input summarizeInput) (string, error) {
			return gw.runSkill(ctx, SkillSummarizeText, summarizePrompt, input.Text)
		})

	creative := genkit.DefineTool(gw.genkit, SkillCreativeWriting,
		"Writes a short story, poem, or other creative piece.",
		func(ctx *ai.ToolContext, input creativeInput) (string, error) {
			return gw.runSkill(ctx, SkillCreativeWriting, creativePrompt, input.Topic)
		})

	return []ai.ToolRef{fact, summarize, creative}
}

// runSkill performs the sub-generation for one skill and records the
// untouched result for passthrough.
func (gw *Gateway) runSkill(ctx context.Context, skill, system, input string) (string, error) {
	resp, err := genkit.Generate(ctx, gw.genkit,
		ai.WithModelName(gw.modelName),
		ai.WithSystem(system),
		ai.WithPrompt(input),
	)
	if err != nil {
		return "", fmt.Errorf("%s generation: %w", skill, err)
	}

	output := resp.Text()
	if rec := recorderFrom(ctx); rec != nil {
		rec.record(skill, output)
	}
	gw.logger.Debug("skill completed", "skill", skill)
	return output, nil
}
