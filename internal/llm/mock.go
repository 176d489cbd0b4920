package llm

import "context"

// MockProvider is a test double that returns canned responses. When Fn is
// set it takes precedence, letting tests vary the reply per prompt.
type MockProvider struct {
	Response string
	Err      error
	Fn       func(ctx context.Context, prompt string) (string, error)
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) Generate(ctx context.Context, prompt string, _ Settings) (string, error) {
	if m.Fn != nil {
		return m.Fn(ctx, prompt)
	}
	return m.Response, m.Err
}
