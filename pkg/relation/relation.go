// Package relation parses Debian relationship fields such as Build-Depends.
//
// A relationship is an AND of OR-groups:
//
//	libc6-dev (>= 2.36), debhelper-compat (= 13), python3:any | python3-minimal:any
//
// parses to three [Alternative] values, the last one holding two
// [Dependency] entries. Each dependency may carry an architecture qualifier
// (":any"), any number of version constraints, one architecture restriction
// ("[amd64 arm64]") and any number of build-profile restrictions
// ("<!nocheck>").
//
// The parser accounts for every byte of its input. Anything it cannot place
// in the grammar, including a trailing comma, fails with
// TRAILING_UNPARSED_INPUT. Versions are opaque strings here; use
// [Constraint.SatisfiedBy] to compare them.
package relation

import (
	"strings"

	"pault.ag/go/debian/version"

	"github.com/matzehuels/debsrc/pkg/errors"
)

// Relationship is a list of groups that must all be satisfied.
type Relationship []Alternative

// Alternative is a non-empty list of dependencies, any one of which
// satisfies the group.
type Alternative []Dependency

// Dependency is a single package reference with its qualifiers.
type Dependency struct {
	Package         string
	Arch            string // qualifier after ':', empty if absent
	Constraints     []Constraint
	ArchRestriction *string  // raw text between '[' and ']'; nil if absent
	Profiles        []string // raw text of each <...> group, in order
}

// Constraint is one "(op version)" clause.
type Constraint struct {
	Op      Operator
	Version string
}

// Operator is a version comparison operator.
type Operator uint8

const (
	OpLess Operator = iota
	OpLessEqual
	OpEqual
	OpGreaterEqual
	OpGreater

	opCount
)

var opNames = [...]string{
	OpLess:         "<<",
	OpLessEqual:    "<=",
	OpEqual:        "=",
	OpGreaterEqual: ">=",
	OpGreater:      ">>",
}

var (
	_ [len(opNames) - int(opCount)]struct{}
	_ [int(opCount) - len(opNames)]struct{}
)

func (o Operator) String() string {
	if o < opCount {
		return opNames[o]
	}
	return "Operator(?)"
}

// ParseOperator maps an operator token onto the closed set. The legacy
// single-character "<" and ">" are rejected.
func ParseOperator(s string) (Operator, error) {
	for i, name := range opNames {
		if s == name {
			return Operator(i), nil
		}
	}
	return OpEqual, errors.New(errors.ErrCodeUnknownOperator, "unknown version operator %q", s)
}

// SatisfiedBy reports whether version v meets the constraint under Debian
// version ordering.
func (c Constraint) SatisfiedBy(v string) (bool, error) {
	have, err := version.Parse(v)
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse version %q", v)
	}
	want, err := version.Parse(c.Version)
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse version %q", c.Version)
	}

	cmp := version.Compare(have, want)
	switch c.Op {
	case OpLess:
		return cmp < 0, nil
	case OpLessEqual:
		return cmp <= 0, nil
	case OpEqual:
		return cmp == 0, nil
	case OpGreaterEqual:
		return cmp >= 0, nil
	case OpGreater:
		return cmp > 0, nil
	}
	return false, errors.New(errors.ErrCodeUnknownOperator, "unknown version operator %d", c.Op)
}

// ArchList splits the architecture restriction into its tokens, e.g.
// "[amd64 !i386]" gives ["amd64", "!i386"]. It returns nil when there is
// no restriction.
func (d Dependency) ArchList() []string {
	if d.ArchRestriction == nil {
		return nil
	}
	return strings.Fields(*d.ArchRestriction)
}

// Packages returns every package name in r, in order of appearance, without
// duplicates.
func (r Relationship) Packages() []string {
	seen := make(map[string]bool)
	var names []string
	for _, alt := range r {
		for _, d := range alt {
			if !seen[d.Package] {
				seen[d.Package] = true
				names = append(names, d.Package)
			}
		}
	}
	return names
}

func (c Constraint) String() string {
	return "(" + c.Op.String() + " " + c.Version + ")"
}

// String renders d in canonical form, e.g. "a:any (>= 1.0) [amd64] <!nocheck>".
func (d Dependency) String() string {
	var b strings.Builder
	d.write(&b)
	return b.String()
}

func (d Dependency) write(b *strings.Builder) {
	b.WriteString(d.Package)
	if d.Arch != "" {
		b.WriteByte(':')
		b.WriteString(d.Arch)
	}
	for _, c := range d.Constraints {
		b.WriteByte(' ')
		b.WriteString(c.String())
	}
	if d.ArchRestriction != nil {
		b.WriteString(" [")
		b.WriteString(*d.ArchRestriction)
		b.WriteByte(']')
	}
	for _, p := range d.Profiles {
		b.WriteString(" <")
		b.WriteString(p)
		b.WriteByte('>')
	}
}

func (a Alternative) String() string {
	var b strings.Builder
	a.write(&b)
	return b.String()
}

func (a Alternative) write(b *strings.Builder) {
	for i, d := range a {
		if i > 0 {
			b.WriteString(" | ")
		}
		d.write(b)
	}
}

// String renders r in canonical form. Parsing the result yields r again.
func (r Relationship) String() string {
	var b strings.Builder
	for i, alt := range r {
		if i > 0 {
			b.WriteString(", ")
		}
		alt.write(&b)
	}
	return b.String()
}
