package mesh

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
)

// ModelPath is the scene document inside a 3MF bundle
const ModelPath = "3D/3dmodel.model"

// ThreeMFReader loads scene geometry from a bundle's 3MF model document.
type ThreeMFReader struct {
	logger *slog.Logger
}

// NewThreeMFReader creates a 3MF geometry reader.
// A nil logger falls back to slog.Default.
func NewThreeMFReader(logger *slog.Logger) *ThreeMFReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &ThreeMFReader{logger: logger}
}

// Model document structures, reduced to what scene nodes need.
type modelDocument struct {
	XMLName   xml.Name       `xml:"model"`
	Resources modelResources `xml:"resources"`
}

type modelResources struct {
	Objects []modelObject `xml:"object"`
}

type modelObject struct {
	ID   string     `xml:"id,attr"`
	Name string     `xml:"name,attr"`
	Mesh *modelMesh `xml:"mesh"`
}

type modelMesh struct {
	Vertices struct {
		Items []struct{} `xml:"vertex"`
	} `xml:"vertices"`
	Triangles struct {
		Items []struct{} `xml:"triangle"`
	} `xml:"triangles"`
}

// PreRead verifies that the bundle carries a scene document
func (r *ThreeMFReader) PreRead(ctx context.Context, path string) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("failed to open bundle %s: %w", path, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name == ModelPath {
			return nil
		}
	}
	return fmt.Errorf("bundle %s carries no scene document", path)
}

// Read loads the scene objects from the model document
func (r *ThreeMFReader) Read(ctx context.Context, path string) ([]SceneNode, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bundle %s: %w", path, err)
	}
	defer zr.Close()

	var model *zip.File
	for _, f := range zr.File {
		if f.Name == ModelPath {
			model = f
			break
		}
	}
	if model == nil {
		return nil, fmt.Errorf("bundle %s carries no scene document", path)
	}

	rc, err := model.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open scene document: %w", err)
	}
	defer rc.Close()

	var doc modelDocument
	if err := xml.NewDecoder(rc).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse scene document: %w", err)
	}

	nodes := make([]SceneNode, 0, len(doc.Resources.Objects))
	for _, obj := range doc.Resources.Objects {
		node := SceneNode{Name: obj.Name}
		if node.Name == "" {
			node.Name = "Object " + obj.ID
		}
		if obj.Mesh != nil {
			node.Vertices = len(obj.Mesh.Vertices.Items)
			node.Triangles = len(obj.Mesh.Triangles.Items)
		}
		nodes = append(nodes, node)
	}

	r.logger.Debug("scene loaded", "path", path, "objects", len(nodes))
	return nodes, nil
}

// Verify that *ThreeMFReader implements Reader at compile time
var _ Reader = (*ThreeMFReader)(nil)
