// Package stanza holds the in-memory form of one deb822 record: the ordered
// (field name, raw value) pairs exactly as they appeared.
//
// A Stanza performs no interpretation of values and does not collapse
// duplicate names; deciding what a repeated field means is left to the
// [ledger] that consumes it.
//
// [ledger]: github.com/matzehuels/debsrc/pkg/ledger
package stanza

import (
	"slices"

	"github.com/matzehuels/debsrc/pkg/errors"
)

// Field is one name/value pair. Value is the logical value with continuation
// lines already folded in, joined by '\n'.
type Field struct {
	Name  string
	Value string
}

// Stanza is an immutable ordered sequence of fields.
// The zero value is an empty stanza.
type Stanza struct {
	fields []Field
}

// New builds a Stanza from fields, validating every field name.
// Duplicate names are preserved.
func New(fields ...Field) (*Stanza, error) {
	for _, f := range fields {
		if err := errors.ValidateFieldName(f.Name); err != nil {
			return nil, err
		}
	}
	return &Stanza{fields: slices.Clone(fields)}, nil
}

// Len returns the number of fields, duplicates included.
func (s *Stanza) Len() int { return len(s.fields) }

// Fields returns a copy of all fields in source order.
func (s *Stanza) Fields() []Field { return slices.Clone(s.fields) }

// Names returns each distinct field name once, in order of first appearance.
func (s *Stanza) Names() []string {
	seen := make(map[string]bool, len(s.fields))
	names := make([]string, 0, len(s.fields))
	for _, f := range s.fields {
		if !seen[f.Name] {
			seen[f.Name] = true
			names = append(names, f.Name)
		}
	}
	return names
}

// Lookup returns every value stored under name, in source order.
func (s *Stanza) Lookup(name string) []string {
	var vals []string
	for _, f := range s.fields {
		if f.Name == name {
			vals = append(vals, f.Value)
		}
	}
	return vals
}

// Count returns how many times name occurs.
func (s *Stanza) Count(name string) int {
	n := 0
	for _, f := range s.fields {
		if f.Name == name {
			n++
		}
	}
	return n
}
