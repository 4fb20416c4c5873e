package testutils

import (
	"context"
	"fmt"

	"github.com/mnemohq/mnemo/pkg/vector"
)

// MockVectorDriver is an in-memory vector driver. Query returns the
// configured Results filtered by the caller's scope; Add/Delete maintain
// the document set so tests can assert on index contents.
type MockVectorDriver struct {
	Documents []vector.Document

	// Results is returned by Query after scope filtering.
	Results []vector.QueryResult

	// FailAdd causes Add to return an error.
	FailAdd bool
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{}
}

func (m *MockVectorDriver) Add(_ context.Context, docs []vector.Document) error {
	if m.FailAdd {
		return fmt.Errorf("mock vector add failure")
	}

	for _, doc := range docs {
		replaced := false
		for i, existing := range m.Documents {
			if existing.ID == doc.ID {
				m.Documents[i] = doc
				replaced = true
				break
			}
		}
		if !replaced {
			m.Documents = append(m.Documents, doc)
		}
	}
	return nil
}

func (m *MockVectorDriver) Query(_ context.Context, _ []float32, topK int, filter vector.Filter) ([]vector.QueryResult, error) {
	matched := make([]vector.QueryResult, 0, len(m.Results))
	for _, result := range m.Results {
		if !matches(result.Document, filter) {
			continue
		}
		matched = append(matched, result)
	}

	if len(matched) > topK {
		matched = matched[:topK]
	}
	return matched, nil
}

func (m *MockVectorDriver) Get(_ context.Context, ids []string) ([]vector.Document, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	docs := make([]vector.Document, 0, len(ids))
	for _, doc := range m.Documents {
		if want[doc.ID] {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (m *MockVectorDriver) Delete(_ context.Context, ids []string) error {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	kept := m.Documents[:0]
	for _, doc := range m.Documents {
		if !drop[doc.ID] {
			kept = append(kept, doc)
		}
	}
	m.Documents = kept
	return nil
}

func (m *MockVectorDriver) DeleteByRecord(_ context.Context, recordIDs []string) error {
	drop := make(map[string]bool, len(recordIDs))
	for _, id := range recordIDs {
		drop[id] = true
	}

	kept := m.Documents[:0]
	for _, doc := range m.Documents {
		if !drop[doc.RecordID] {
			kept = append(kept, doc)
		}
	}
	m.Documents = kept
	return nil
}

func (m *MockVectorDriver) Close() error {
	return nil
}

func matches(doc vector.Document, filter vector.Filter) bool {
	if filter.OrganizationID != "" && doc.OrganizationID != filter.OrganizationID {
		return false
	}
	if filter.UserID != "" && doc.UserID != filter.UserID {
		return false
	}
	if filter.Provider != "" && doc.Provider != filter.Provider {
		return false
	}
	if filter.Model != "" && doc.Model != filter.Model {
		return false
	}
	return true
}
