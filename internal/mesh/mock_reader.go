package mesh

import "context"

// MockReader is a mock implementation of Reader for testing.
type MockReader struct {
	// Nodes is returned by Read
	Nodes []SceneNode
	// PreReadErr can be set to make PreRead reject the bundle
	PreReadErr error
	// ReadErr can be set to make Read fail
	ReadErr error
	// Call counters
	PreReadCalls int
	ReadCalls    int
}

// NewMockReader creates a new MockReader for testing.
func NewMockReader() *MockReader {
	return &MockReader{}
}

// PreRead returns the configured rejection error, if any.
func (m *MockReader) PreRead(ctx context.Context, path string) error {
	m.PreReadCalls++
	return m.PreReadErr
}

// Read returns the configured scene nodes.
func (m *MockReader) Read(ctx context.Context, path string) ([]SceneNode, error) {
	m.ReadCalls++
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	if m.Nodes == nil {
		return []SceneNode{}, nil
	}
	return m.Nodes, nil
}

// Verify MockReader implements Reader
var _ Reader = (*MockReader)(nil)
