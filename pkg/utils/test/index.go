package testutils

import (
	"context"
	"fmt"

	"github.com/owlcave/wklp/pkg/index"
)

// MockIndex is a test index driver returning canned results
type MockIndex struct {
	Results []index.Result

	// FailSearch causes Search to return an error
	FailSearch bool
}

func NewMockIndex() *MockIndex {
	return &MockIndex{
		Results: make([]index.Result, 0),
	}
}

func (m *MockIndex) Search(_ context.Context, _ []float32, topK int) ([]index.Result, error) {
	if m.FailSearch {
		return nil, fmt.Errorf("mock search failure")
	}
	if len(m.Results) < topK {
		return m.Results, nil
	}
	return m.Results[:topK], nil
}

func (m *MockIndex) Size() int {
	return len(m.Results)
}

func (m *MockIndex) Close() error {
	return nil
}
