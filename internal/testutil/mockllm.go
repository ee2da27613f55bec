package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// MockModelName is the name the mock registers under.
const MockModelName = "mock/test-model"

// MockLLM provides deterministic model responses for testing. It
// matches the last user message against registered patterns and
// returns the corresponding text or tool request.
//
// Safe for concurrent use.
type MockLLM struct {
	mu       sync.Mutex
	rules    []mockRule
	fallback string
	calls    []MockCall
	err      error
}

type mockRule struct {
	pattern  string // substring match, lowercased
	response string
	tool     *ai.ToolRequest // when set, request this tool before answering
}

// MockCall records a single invocation of the mock model.
type MockCall struct {
	UserMessage string
	Response    string
}

// NewMockLLM creates a mock with the given fallback response, returned
// when no pattern matches.
func NewMockLLM(fallback string) *MockLLM {
	return &MockLLM{fallback: fallback}
}

// AddResponse registers a pattern-response pair. Matching is
// case-insensitive substring; first registered match wins.
func (m *MockLLM) AddResponse(pattern, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{
		pattern:  strings.ToLower(pattern),
		response: response,
	})
}

// AddToolResponse registers a pattern that triggers a tool request. On
// the follow-up turn, after the tool has answered, the mock returns
// textResponse.
func (m *MockLLM) AddToolResponse(pattern string, tool *ai.ToolRequest, textResponse string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{
		pattern:  strings.ToLower(pattern),
		response: textResponse,
		tool:     tool,
	})
}

// FailWith makes every subsequent call return err.
func (m *MockLLM) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns a copy of all recorded calls.
func (m *MockLLM) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]MockCall, len(m.calls))
	copy(cp, m.calls)
	return cp
}

// Register registers the mock as a Genkit model under MockModelName.
func (m *MockLLM) Register(g *genkit.Genkit) ai.Model {
	return genkit.DefineModel(g, MockModelName, &ai.ModelOptions{
		Label: "Mock Test Model",
		Supports: &ai.ModelSupports{
			Multiturn:  true,
			Tools:      true,
			SystemRole: true,
		},
	}, m.generate)
}

func (m *MockLLM) generate(ctx context.Context, req *ai.ModelRequest, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
	var userText string
	toolAnswered := false
	for i := len(req.Messages) - 1; i >= 0; i-- {
		msg := req.Messages[i]
		if msg.Role == ai.RoleTool {
			toolAnswered = true
		}
		if msg.Role == ai.RoleUser && userText == "" {
			userText = msg.Text()
		}
	}

	m.mu.Lock()
	if m.err != nil {
		err := m.err
		m.mu.Unlock()
		return nil, err
	}

	var matched *mockRule
	lower := strings.ToLower(userText)
	for i := range m.rules {
		if strings.Contains(lower, m.rules[i].pattern) {
			matched = &m.rules[i]
			break
		}
	}

	responseText := m.fallback
	if matched != nil {
		responseText = matched.response
	}
	m.calls = append(m.calls, MockCall{UserMessage: userText, Response: responseText})

	// Request the tool only on the first turn. Once a tool response is
	// in the conversation, answer with text so generation terminates.
	var parts []*ai.Part
	if matched != nil && matched.tool != nil && !toolAnswered {
		parts = append(parts, &ai.Part{
			Kind:        ai.PartToolRequest,
			ToolRequest: matched.tool,
		})
	} else {
		parts = append(parts, ai.NewTextPart(responseText))
	}
	m.mu.Unlock()

	if cb != nil && len(parts) == 1 && parts[0].Kind == ai.PartText {
		_ = cb(ctx, &ai.ModelResponseChunk{
			Content: []*ai.Part{ai.NewTextPart(responseText)},
		})
	}

	return &ai.ModelResponse{
		Request: req,
		Message: &ai.Message{
			Role:    ai.RoleModel,
			Content: parts,
		},
	}, nil
}
