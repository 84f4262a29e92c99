package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/matzehuels/debsrc/pkg/source"
)

// BinaryDocument is the serialization format for one binary package.
type BinaryDocument struct {
	Package            string     `json:"package" bson:"package"`
	Version            string     `json:"version" bson:"version"`
	Source             string     `json:"source,omitempty" bson:"source,omitempty"`
	Section            string     `json:"section,omitempty" bson:"section,omitempty"`
	Priority           string     `json:"priority" bson:"priority"`
	Maintainer         []Person   `json:"maintainer" bson:"maintainer"`
	OriginalMaintainer []Person   `json:"original_maintainer,omitempty" bson:"original_maintainer,omitempty"`
	Homepage           string     `json:"homepage,omitempty" bson:"homepage,omitempty"`
	Architectures      []string   `json:"architectures" bson:"architectures"`
	Status             string     `json:"status,omitempty" bson:"status,omitempty"`
	Description        string     `json:"description" bson:"description"`
	File               *File      `json:"file,omitempty" bson:"file,omitempty"`
	InstalledSize      uint64     `json:"installed_size,omitempty" bson:"installed_size,omitempty"`
	Essential          bool       `json:"essential,omitempty" bson:"essential,omitempty"`
	BuildEssential     bool       `json:"build_essential,omitempty" bson:"build_essential,omitempty"`
	Relations          []Relation `json:"relations,omitempty" bson:"relations,omitempty"`
	Unparsed           []Field    `json:"unparsed,omitempty" bson:"unparsed,omitempty"`
	Leftovers          []string   `json:"leftovers,omitempty" bson:"leftovers,omitempty"`
}

// FromBinaryResult converts an assembled binary record to its
// serialization format.
func FromBinaryResult(res *source.BinaryResult) *BinaryDocument {
	r := res.Record
	doc := &BinaryDocument{
		Package:            r.Name,
		Version:            r.Version,
		Source:             r.Source,
		Section:            r.Section,
		Priority:           r.Priority.String(),
		Maintainer:         fromIdentities(r.Maintainer),
		OriginalMaintainer: fromIdentities(r.OriginalMaintainer),
		Homepage:           r.Homepage,
		Architectures:      r.Architectures,
		Status:             r.Status,
		Description:        r.Description,
		InstalledSize:      r.InstalledSize,
		Essential:          r.Essential,
		BuildEssential:     r.BuildEssential,
		Leftovers:          res.Leftovers,
	}

	if f := r.File; f != nil {
		digests := make(map[string]string, len(f.Digests))
		for alg, sum := range f.Digests {
			digests[alg.String()] = sum
		}
		doc.File = &File{Name: f.Name, Size: f.Size, Digests: digests}
	}
	for _, field := range source.BinaryRelationFields {
		if rel := r.Relation(field); rel != nil {
			doc.Relations = append(doc.Relations, fromRelation(field, rel))
		}
	}
	for _, f := range r.Unparsed {
		doc.Unparsed = append(doc.Unparsed, Field{Name: f.Name, Value: f.Value})
	}
	return doc
}

// WriteBinaryJSON writes docs as an indented JSON array, or one document
// per line when lines is set.
func WriteBinaryJSON(docs []*BinaryDocument, w io.Writer, lines bool) error {
	enc := json.NewEncoder(w)
	if lines {
		for _, doc := range docs {
			if err := enc.Encode(doc); err != nil {
				return fmt.Errorf("encode %s %s: %w", doc.Package, doc.Version, err)
			}
		}
		return nil
	}
	if docs == nil {
		docs = []*BinaryDocument{}
	}
	enc.SetIndent("", "  ")
	if err := enc.Encode(docs); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
