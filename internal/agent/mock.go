package agent

import (
	"context"
	"sync"
)

// MockAgent returns scripted responses without making API calls.
// With no script it answers UNCERTAIN, so mock mode runs end to end.
type MockAgent struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
	prompts   []string
	// Responder, when set, computes the answer from the prompt.
	Responder func(prompt string) (string, error)
}

const defaultMockResponse = `{"verdict": "UNCERTAIN", "confidence": 0.5, "rationale": "Mock provider: no analysis performed."}`

// NewMockAgent creates a new mock agent
func NewMockAgent() *MockAgent {
	return &MockAgent{}
}

// SetResponse forces a specific response for every call.
func (m *MockAgent) SetResponse(response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = []string{response}
	m.errs = nil
}

// Script queues responses returned in order; the last one repeats.
func (m *MockAgent) Script(responses ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = responses
}

// FailWith queues errors returned before any scripted response.
func (m *MockAgent) FailWith(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = errs
}

// Send implements the Agent interface.
func (m *MockAgent) Send(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	m.calls++
	m.prompts = append(m.prompts, prompt)
	responder := m.Responder
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		m.mu.Unlock()
		return "", err
	}
	resp := defaultMockResponse
	switch len(m.responses) {
	case 0:
	case 1:
		resp = m.responses[0]
	default:
		resp = m.responses[0]
		m.responses = m.responses[1:]
	}
	m.mu.Unlock()

	if responder != nil {
		return responder(prompt)
	}
	return resp, nil
}

// Calls returns the number of Send calls.
func (m *MockAgent) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Prompts returns every prompt received.
func (m *MockAgent) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}
