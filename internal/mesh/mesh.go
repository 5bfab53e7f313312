// Package mesh loads scene geometry from workspace bundles.
package mesh

import "context"

// SceneNode is one loaded scene object
type SceneNode struct {
	Name      string // Object name from the model document
	Vertices  int    // Vertex count
	Triangles int    // Triangle count
}

// Reader defines the contract for the geometry collaborator.
// PreRead cheaply validates that the bundle's scene content can be loaded
// and Read loads it. An import fails fast when PreRead returns an error.
type Reader interface {
	PreRead(ctx context.Context, path string) error
	Read(ctx context.Context, path string) ([]SceneNode, error)
}
