package testutils

import (
	"context"
	"fmt"

	"github.com/mnemohq/mnemo/pkg/eventstream"
)

// MockPublisher captures published record events for assertions.
type MockPublisher struct {
	Events []*eventstream.RecordPersistedEvent

	// FailPublish causes PublishRecord to return an error.
	FailPublish bool

	Closed bool
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishRecord(_ context.Context, event *eventstream.RecordPersistedEvent) error {
	if m.FailPublish {
		return fmt.Errorf("mock publish failure")
	}
	m.Events = append(m.Events, event)
	return nil
}

func (m *MockPublisher) Close() error {
	m.Closed = true
	return nil
}
