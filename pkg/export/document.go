package export

import (
	"fmt"
	"strings"

	"github.com/matzehuels/debsrc/pkg/control"
	"github.com/matzehuels/debsrc/pkg/relation"
	"github.com/matzehuels/debsrc/pkg/source"
	"github.com/matzehuels/debsrc/pkg/stanza"
)

// =============================================================================
// Document - Source Record Serialization
// =============================================================================

// Document is the canonical serialization format for one assembled record.
type Document struct {
	Package            string     `json:"package" bson:"package"`
	Version            string     `json:"version" bson:"version"`
	Directory          string     `json:"directory" bson:"directory"`
	Section            string     `json:"section,omitempty" bson:"section,omitempty"`
	Priority           string     `json:"priority" bson:"priority"`
	Maintainer         []Person   `json:"maintainer" bson:"maintainer"`
	Uploaders          []Person   `json:"uploaders,omitempty" bson:"uploaders,omitempty"`
	OriginalMaintainer []Person   `json:"original_maintainer,omitempty" bson:"original_maintainer,omitempty"`
	StandardsVersion   string     `json:"standards_version,omitempty" bson:"standards_version,omitempty"`
	Homepage           string     `json:"homepage,omitempty" bson:"homepage,omitempty"`
	Architectures      []string   `json:"architectures" bson:"architectures"`
	Binaries           []Binary   `json:"binaries,omitempty" bson:"binaries,omitempty"`
	Relations          []Relation `json:"relations,omitempty" bson:"relations,omitempty"`
	Files              []File     `json:"files" bson:"files"`
	Vcs                []Vcs      `json:"vcs,omitempty" bson:"vcs,omitempty"`
	Format             string     `json:"format" bson:"format"`
	Unparsed           []Field    `json:"unparsed,omitempty" bson:"unparsed,omitempty"`
	Leftovers          []string   `json:"leftovers,omitempty" bson:"leftovers,omitempty"`
}

// Person is a maintainer or uploader.
type Person struct {
	Name  string `json:"name" bson:"name"`
	Email string `json:"email" bson:"email"`
}

// Binary is one binary package built from the source.
type Binary struct {
	Name     string   `json:"name" bson:"name"`
	Style    string   `json:"style,omitempty" bson:"style,omitempty"`
	Section  string   `json:"section,omitempty" bson:"section,omitempty"`
	Priority string   `json:"priority" bson:"priority"`
	Extras   []string `json:"extras,omitempty" bson:"extras,omitempty"`
}

// Relation is one build relationship field.
type Relation struct {
	Field        string         `json:"field" bson:"field"`
	Text         string         `json:"text" bson:"text"` // canonical rendering, informational
	Alternatives [][]Dependency `json:"alternatives" bson:"alternatives"`
}

// Dependency is a single package reference.
type Dependency struct {
	Package         string       `json:"package" bson:"package"`
	Arch            string       `json:"arch,omitempty" bson:"arch,omitempty"`
	Constraints     []Constraint `json:"constraints,omitempty" bson:"constraints,omitempty"`
	ArchRestriction *string      `json:"arch_restriction,omitempty" bson:"arch_restriction,omitempty"`
	Profiles        []string     `json:"profiles,omitempty" bson:"profiles,omitempty"`
}

// Constraint is one version clause.
type Constraint struct {
	Op      string `json:"op" bson:"op"`
	Version string `json:"version" bson:"version"`
}

// File is one file of the source package with its digests keyed by
// algorithm tag.
type File struct {
	Name    string            `json:"name" bson:"name"`
	Size    uint64            `json:"size" bson:"size"`
	Digests map[string]string `json:"digests" bson:"digests"`
}

// Vcs is one version control reference.
type Vcs struct {
	System string `json:"system" bson:"system"`
	Kind   string `json:"kind" bson:"kind"`
	URL    string `json:"url" bson:"url"`
}

// Field is a raw stanza field kept in passthrough mode.
type Field struct {
	Name  string `json:"name" bson:"name"`
	Value string `json:"value" bson:"value"`
}

// Identity returns the (package, version) pair of the document.
func (d *Document) Identity() source.Identity {
	return source.Identity{Package: d.Package, Version: d.Version}
}

// =============================================================================
// Result → Document
// =============================================================================

// FromResult converts an assembled record to its serialization format.
func FromResult(res *source.Result) *Document {
	r := res.Record
	doc := &Document{
		Package:            r.Name,
		Version:            r.Version,
		Directory:          r.Directory,
		Section:            r.Section,
		Priority:           r.Priority.String(),
		Maintainer:         fromIdentities(r.Maintainer),
		Uploaders:          fromIdentities(r.Uploaders),
		OriginalMaintainer: fromIdentities(r.OriginalMaintainer),
		StandardsVersion:   r.StandardsVersion,
		Homepage:           r.Homepage,
		Architectures:      r.Architectures,
		Format:             r.Format.String(),
		Leftovers:          res.Leftovers,
	}

	for _, b := range r.Binaries {
		doc.Binaries = append(doc.Binaries, Binary{
			Name:     b.Name,
			Style:    b.Style,
			Section:  b.Section,
			Priority: b.Priority.String(),
			Extras:   b.Extras,
		})
	}

	for _, field := range source.RelationFields {
		if rel := r.Relation(field); rel != nil {
			doc.Relations = append(doc.Relations, fromRelation(field, rel))
		}
	}

	for _, f := range r.Files {
		digests := make(map[string]string, len(f.Digests))
		for alg, sum := range f.Digests {
			digests[alg.String()] = sum
		}
		doc.Files = append(doc.Files, File{Name: f.Name, Size: f.Size, Digests: digests})
	}

	for _, v := range r.Vcs {
		doc.Vcs = append(doc.Vcs, Vcs{System: v.System.String(), Kind: v.Kind.String(), URL: v.Description})
	}
	for _, f := range r.Unparsed {
		doc.Unparsed = append(doc.Unparsed, Field{Name: f.Name, Value: f.Value})
	}
	return doc
}

func fromIdentities(ids []control.Identity) []Person {
	if ids == nil {
		return nil
	}
	out := make([]Person, len(ids))
	for i, id := range ids {
		out[i] = Person{Name: id.Name, Email: id.Email}
	}
	return out
}

func fromRelation(field string, rel relation.Relationship) Relation {
	out := Relation{Field: field, Text: rel.String(), Alternatives: make([][]Dependency, len(rel))}
	for i, alt := range rel {
		out.Alternatives[i] = make([]Dependency, len(alt))
		for j, d := range alt {
			out.Alternatives[i][j] = fromDependency(d)
		}
	}
	return out
}

func fromDependency(d relation.Dependency) Dependency {
	out := Dependency{
		Package:         d.Package,
		Arch:            d.Arch,
		ArchRestriction: d.ArchRestriction,
		Profiles:        d.Profiles,
	}
	for _, c := range d.Constraints {
		out.Constraints = append(out.Constraints, Constraint{Op: c.Op.String(), Version: c.Version})
	}
	return out
}

// =============================================================================
// Document → Result
// =============================================================================

// Result converts the document back to an assembled record. It fails if an
// enumerated value is not one of the canonical strings.
func (d *Document) Result() (*source.Result, error) {
	r := &source.Record{
		Name:               d.Package,
		Version:            d.Version,
		Directory:          d.Directory,
		Section:            d.Section,
		Maintainer:         toIdentities(d.Maintainer),
		Uploaders:          toIdentities(d.Uploaders),
		OriginalMaintainer: toIdentities(d.OriginalMaintainer),
		StandardsVersion:   d.StandardsVersion,
		Homepage:           d.Homepage,
		Architectures:      d.Architectures,
	}

	var err error
	if r.Priority, err = control.ParsePriority("priority", d.Priority); err != nil {
		return nil, err
	}
	if r.Format, err = control.ParseFormat("format", d.Format); err != nil {
		return nil, err
	}

	for _, b := range d.Binaries {
		p, err := control.ParsePriority("binaries.priority", b.Priority)
		if err != nil {
			return nil, fmt.Errorf("binary %s: %w", b.Name, err)
		}
		r.Binaries = append(r.Binaries, control.Binary{
			Name:     b.Name,
			Style:    b.Style,
			Section:  b.Section,
			Priority: p,
			Extras:   b.Extras,
		})
	}

	for _, rd := range d.Relations {
		rel := make(relation.Relationship, len(rd.Alternatives))
		for i, alt := range rd.Alternatives {
			rel[i] = make(relation.Alternative, len(alt))
			for j, dep := range alt {
				if rel[i][j], err = toDependency(dep); err != nil {
					return nil, fmt.Errorf("%s: %w", rd.Field, err)
				}
			}
		}
		r.SetRelation(rd.Field, rel)
	}

	for _, f := range d.Files {
		digests := make(map[control.HashAlgorithm]string, len(f.Digests))
		for tag, sum := range f.Digests {
			alg, err := control.ParseHashAlgorithm(tag)
			if err != nil {
				return nil, fmt.Errorf("file %s: %w", f.Name, err)
			}
			digests[alg] = sum
		}
		r.Files = append(r.Files, control.FileEntry{Name: f.Name, Size: f.Size, Digests: digests})
	}

	for _, v := range d.Vcs {
		sys, err := control.ParseVcsSystem(v.System)
		if err != nil {
			return nil, err
		}
		kind, err := control.ParseVcsKind(v.Kind)
		if err != nil {
			return nil, err
		}
		r.Vcs = append(r.Vcs, control.VcsReference{System: sys, Kind: kind, Description: v.URL})
	}

	for _, f := range d.Unparsed {
		r.Unparsed = append(r.Unparsed, stanza.Field{Name: f.Name, Value: f.Value})
	}
	return &source.Result{Record: r, Leftovers: d.Leftovers}, nil
}

func toIdentities(ps []Person) []control.Identity {
	if ps == nil {
		return nil
	}
	out := make([]control.Identity, len(ps))
	for i, p := range ps {
		out[i] = control.Identity{Name: p.Name, Email: p.Email}
	}
	return out
}

func toDependency(d Dependency) (relation.Dependency, error) {
	out := relation.Dependency{
		Package:         d.Package,
		Arch:            d.Arch,
		ArchRestriction: d.ArchRestriction,
		Profiles:        d.Profiles,
	}
	for _, c := range d.Constraints {
		op, err := relation.ParseOperator(strings.TrimSpace(c.Op))
		if err != nil {
			return relation.Dependency{}, fmt.Errorf("%s: %w", d.Package, err)
		}
		out.Constraints = append(out.Constraints, relation.Constraint{Op: op, Version: c.Version})
	}
	return out, nil
}
