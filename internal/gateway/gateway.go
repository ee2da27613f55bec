// Package gateway is the single boundary between the application and
// the language model. All model access goes through Gateway.Generate,
// which validates input, orchestrates tool-calling, and folds every
// failure into a user-presentable result instead of an error.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"
)

// User-facing messages returned in Result.Err. The gateway never
// surfaces raw provider errors to the caller.
const (
	// MsgQuestionRequired is returned when the question is blank.
	MsgQuestionRequired = "Question is required."

	// MsgGenerationFailed is the generic failure message for any model
	// or orchestration error.
	MsgGenerationFailed = "I had trouble connecting to my brain. Please check your configuration and try again."
)

// DefaultMaxTurns bounds the orchestrator's tool-calling loop.
const DefaultMaxTurns = 3

// Message is one prior conversation turn passed as model context.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// Result is the gateway's only output shape. Exactly one of Data and
// Err is set; callers branch on Err being empty rather than on a Go
// error. Skill names the tool that produced Data, empty when the
// orchestrator answered directly.
type Result struct {
	Data  string `json:"data,omitempty"`
	Err   string `json:"error,omitempty"`
	Skill string `json:"skill,omitempty"`
}

// Config configures a Gateway.
type Config struct {
	Genkit    *genkit.Genkit
	Logger    *slog.Logger
	ModelName string
	MaxTurns  int
	// Limiter throttles outbound model calls. Nil disables throttling.
	Limiter *rate.Limiter
}

// Gateway orchestrates model generation with the three skill tools.
// Safe for concurrent use.
type Gateway struct {
	genkit    *genkit.Genkit
	logger    *slog.Logger
	modelName string
	maxTurns  int
	limiter   *rate.Limiter
	tools     []ai.ToolRef
}

// New creates a Gateway and registers its skill tools with the Genkit
// instance. Register at most one Gateway per Genkit instance; tool
// names are global to it.
func New(cfg Config) (*Gateway, error) {
	if cfg.Genkit == nil {
		return nil, fmt.Errorf("gateway: Genkit instance is required")
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("gateway: model name is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = DefaultMaxTurns
	}

	gw := &Gateway{
		genkit:    cfg.Genkit,
		logger:    cfg.Logger,
		modelName: cfg.ModelName,
		maxTurns:  cfg.MaxTurns,
		limiter:   cfg.Limiter,
	}
	gw.tools = gw.defineSkills()
	return gw, nil
}

// Generate answers one user question with the conversation history as
// context. It never returns a Go error: validation problems and model
// failures both come back inside the Result, already phrased for the
// end user. The question is not retried on failure.
func (gw *Gateway) Generate(ctx context.Context, question string, history []Message) Result {
	if strings.TrimSpace(question) == "" {
		return Result{Err: MsgQuestionRequired}
	}

	if gw.limiter != nil {
		if err := gw.limiter.Wait(ctx); err != nil {
			gw.logger.Warn("rate limiter wait failed", "error", err)
			return Result{Err: MsgGenerationFailed}
		}
	}

	rec := &skillRecorder{}
	ctx = withRecorder(ctx, rec)

	resp, err := genkit.Generate(ctx, gw.genkit,
		ai.WithModelName(gw.modelName),
		ai.WithSystem(personaPrompt),
		ai.WithMessages(buildMessages(history, question)...),
		ai.WithTools(gw.tools...),
		ai.WithMaxTurns(gw.maxTurns),
	)
	if err != nil {
		gw.logger.Error("generation failed", "error", err)
		return Result{Err: MsgGenerationFailed}
	}

	// Skill output is passed through untouched; the orchestrator's
	// final text only matters when no skill ran.
	if skill, output, ok := rec.result(); ok {
		gw.logger.Info("generation completed", "skill", skill)
		return Result{Data: output, Skill: skill}
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		gw.logger.Error("generation returned empty response")
		return Result{Err: MsgGenerationFailed}
	}

	gw.logger.Info("generation completed", "skill", "none")
	return Result{Data: text}
}

// buildMessages converts history plus the new question into the model
// message sequence. Unknown roles are skipped.
func buildMessages(history []Message, question string) []*ai.Message {
	msgs := make([]*ai.Message, 0, len(history)+1)
	for _, m := range history {
		switch m.Role {
		case "user":
			msgs = append(msgs, ai.NewUserMessage(ai.NewTextPart(m.Content)))
		case "assistant":
			msgs = append(msgs, ai.NewModelMessage(ai.NewTextPart(m.Content)))
		}
	}
	return append(msgs, ai.NewUserMessage(ai.NewTextPart(question)))
}
