package notifications

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockSink is a mock implementation of Sink
type MockSink struct {
	mock.Mock
}

func (m *MockSink) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockSink) Deliver(ctx context.Context, event Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

var _ Sink = (*MockSink)(nil)
