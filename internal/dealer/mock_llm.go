package dealer

import (
	"context"
	"sync"
	"time"

	"github.com/Veraticus/dealercheck/internal/llm"
)

// MockResponse scripts the answer for one operation.
type MockResponse struct {
	Err   error
	Text  string
	Delay time.Duration
}

// MockClient is a test implementation of llm.Client. Answers are keyed by
// Request.Operation ("status", "reputation", "legal" or "combined").
type MockClient struct {
	Responses map[string]MockResponse
	calls     []llm.Request
	mu        sync.Mutex
}

// NewMockClient creates a mock answering with responses.
func NewMockClient(responses map[string]MockResponse) *MockClient {
	return &MockClient{Responses: responses}
}

// Generate returns the scripted response for req.Operation.
func (m *MockClient) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	resp, ok := m.Responses[req.Operation]
	m.mu.Unlock()

	if resp.Delay > 0 {
		select {
		case <-ctx.Done():
			return llm.Response{}, ctx.Err()
		case <-time.After(resp.Delay):
		}
	}
	if !ok {
		return llm.Response{Text: "{}", Model: "mock"}, nil
	}
	if resp.Err != nil {
		return llm.Response{}, resp.Err
	}
	return llm.Response{
		Text:  resp.Text,
		Model: "mock",
		Usage: llm.Usage{InputTokens: 100, OutputTokens: 50},
	}, nil
}

// Calls returns a copy of the requests received so far.
func (m *MockClient) Calls() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.Request(nil), m.calls...)
}
