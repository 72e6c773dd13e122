package skeleton

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/voxelab/skelstitch/pkg/errors"
)

// DocumentSchemaVersion identifies the persisted final-skeleton layout.
const DocumentSchemaVersion = 1

// Document is the persisted form of a merged skeleton. Unlike a Fragment it
// carries no chunk metadata: only the object id, a schema version, and the
// version tag assigned by the merge task (re-runs write a new version rather
// than mutating an existing document).
type Document struct {
	SchemaVersion int    `json:"schema_version"`
	Version       string `json:"version,omitempty"`
	ObjectID      uint64 `json:"object_id"`
	Nodes         []Node `json:"nodes"`
	Edges         []Edge `json:"edges"`
}

// NewDocument wraps a skeleton for persistence under the given version tag.
func NewDocument(s *Skeleton, version string) *Document {
	return &Document{
		SchemaVersion: DocumentSchemaVersion,
		Version:       version,
		ObjectID:      s.ObjectID,
		Nodes:         s.Nodes,
		Edges:         s.Edges,
	}
}

// Skeleton returns the document's graph as a Skeleton value.
func (d *Document) Skeleton() *Skeleton {
	return &Skeleton{ObjectID: d.ObjectID, Nodes: d.Nodes, Edges: d.Edges}
}

// MarshalDocument converts a document to JSON bytes.
func MarshalDocument(d *Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeDocumentTo(d, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteDocument writes a document as JSON to an io.Writer.
func WriteDocument(d *Document, w io.Writer) error {
	return writeDocumentTo(d, w)
}

// WriteDocumentFile writes a document to a JSON file.
// The file is created with 0644 permissions.
func WriteDocumentFile(d *Document, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return writeDocumentTo(d, f)
}

// ReadDocument decodes a JSON skeleton document from an io.Reader.
func ReadDocument(r io.Reader) (*Document, error) {
	return readDocumentFrom(r)
}

// ReadDocumentFile reads a JSON file and returns the decoded document.
func ReadDocumentFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return readDocumentFrom(f)
}

func writeDocumentTo(d *Document, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

func readDocumentFrom(r io.Reader) (*Document, error) {
	var d Document
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFragmentCorrupt, err, "decode skeleton document")
	}
	if d.SchemaVersion != DocumentSchemaVersion {
		return nil, errors.New(errors.ErrCodeFragmentCorrupt, "unsupported document schema version %d", d.SchemaVersion)
	}
	if err := d.Skeleton().Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFragmentCorrupt, err, "skeleton document fails graph validation")
	}
	return &d, nil
}
