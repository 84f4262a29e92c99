package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// WriteJSON encodes documents as an indented JSON array and writes it to w.
// The output can be re-imported with [ReadJSON].
func WriteJSON(docs []*Document, w io.Writer) error {
	if docs == nil {
		docs = []*Document{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(docs); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ReadJSON decodes a JSON array of documents from r. ReadJSON does not
// close r.
func ReadJSON(r io.Reader) ([]*Document, error) {
	var docs []*Document
	if err := json.NewDecoder(r).Decode(&docs); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return docs, nil
}

// ExportJSON writes documents to a JSON file at path.
func ExportJSON(docs []*Document, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(docs, f)
}

// ImportJSON reads a JSON file written by [ExportJSON].
func ImportJSON(path string) ([]*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f)
}

// ReadJSONLines decodes a stream of newline-delimited documents.
func ReadJSONLines(r io.Reader) ([]*Document, error) {
	dec := json.NewDecoder(r)
	var docs []*Document
	for dec.More() {
		var d Document
		if err := dec.Decode(&d); err != nil {
			return nil, fmt.Errorf("decode document %d: %w", len(docs)+1, err)
		}
		docs = append(docs, &d)
	}
	return docs, nil
}

// JSONLinesSink writes one compact JSON document per line. It is safe for
// concurrent use.
type JSONLinesSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONLinesSink returns a sink writing to w.
func NewJSONLinesSink(w io.Writer) *JSONLinesSink {
	return &JSONLinesSink{enc: json.NewEncoder(w)}
}

// Write encodes doc followed by a newline.
func (s *JSONLinesSink) Write(ctx context.Context, doc *Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(doc); err != nil {
		return fmt.Errorf("encode %s: %w", doc.Identity(), err)
	}
	return nil
}
