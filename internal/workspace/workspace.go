// Package workspace reads portable configuration bundles: zip archives
// carrying serialized container documents under a fixed configuration root.
package workspace

import (
	"archive/zip"
	"fmt"
	"io"

	"github.com/kilupskalvis/wsi/internal/container"
)

// Archive is an open workspace bundle
type Archive struct {
	path    string
	zr      *zip.ReadCloser
	entries []Entry
	files   map[string]*zip.File
}

// Open opens the bundle at path and indexes its configuration entries.
// Classified entries keep the archive's member order.
func Open(path string) (*Archive, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", path, err)
	}

	a := &Archive{
		path:  path,
		zr:    zr,
		files: make(map[string]*zip.File, len(zr.File)),
	}
	for _, f := range zr.File {
		a.files[f.Name] = f
		if entry, ok := Classify(f.Name); ok {
			a.entries = append(a.entries, entry)
		}
	}
	return a, nil
}

// Close releases the underlying zip reader
func (a *Archive) Close() error {
	return a.zr.Close()
}

// Path returns the bundle location on disk
func (a *Archive) Path() string {
	return a.path
}

// Entries returns all classified members in archive order
func (a *Archive) Entries() []Entry {
	return a.entries
}

// EntriesByClass returns the classified members of one entity class,
// archive order preserved
func (a *Archive) EntriesByClass(class container.Class) []Entry {
	var out []Entry
	for _, e := range a.entries {
		if e.Class == class {
			out = append(out, e)
		}
	}
	return out
}

// ReadAll returns the payload bytes of one archive member
func (a *Archive) ReadAll(path string) ([]byte, error) {
	f, ok := a.files[path]
	if !ok {
		return nil, fmt.Errorf("archive member %s not found", path)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open archive member %s: %w", path, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive member %s: %w", path, err)
	}
	return data, nil
}

// Preferences returns the bundled preferences document. The second return
// is false when the bundle does not carry one.
func (a *Archive) Preferences() ([]byte, bool, error) {
	if _, ok := a.files[PreferencesPath]; !ok {
		return nil, false, nil
	}
	data, err := a.ReadAll(PreferencesPath)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}
