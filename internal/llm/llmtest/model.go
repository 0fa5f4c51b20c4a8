// Package llmtest provides a scripted chat model for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Model answers every Generate call through Reply and records the inputs.
type Model struct {
	Reply func(msgs []*schema.Message) (string, error)

	mu    sync.Mutex
	calls [][]*schema.Message
}

var _ model.BaseChatModel = (*Model)(nil)

// Fixed returns a model that always answers text.
func Fixed(text string) *Model {
	return &Model{Reply: func([]*schema.Message) (string, error) { return text, nil }}
}

// Failing returns a model whose every call fails with err.
func Failing(err error) *Model {
	return &Model{Reply: func([]*schema.Message) (string, error) { return "", err }}
}

func (m *Model) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	m.calls = append(m.calls, input)
	m.mu.Unlock()

	text, err := m.Reply(input)
	if err != nil {
		return nil, err
	}
	return schema.AssistantMessage(text, nil), nil
}

func (m *Model) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// Calls returns the message lists passed to Generate so far.
func (m *Model) Calls() [][]*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]*schema.Message, len(m.calls))
	copy(out, m.calls)
	return out
}

// LastSystem returns the concatenated system messages of the latest call.
func (m *Model) LastSystem() string {
	calls := m.Calls()
	if len(calls) == 0 {
		return ""
	}
	var out string
	for _, msg := range calls[len(calls)-1] {
		if msg.Role == schema.System {
			out += msg.Content + "\n"
		}
	}
	return out
}
