// Package source assembles Debian source-package stanzas into typed records.
//
// [Assemble] walks a fixed schema over a [ledger.Ledger]: identity fields
// first, then descriptive fields, then structural fields (binaries, build
// relationships, files, VCS, format). A missing mandatory field or a
// malformed value aborts the one record with a coded error. Fields the
// schema does not know are returned as leftovers and reported through
// [Options.Report]; they never fail assembly.
//
//	res, err := source.Assemble(st, source.Identity{Package: "hello", Version: "2.10-3"}, source.Options{
//	    Report: func(d source.Diagnostic) { logger.Warn(d.Message, "field", d.Field) },
//	})
//
// Entries of a Packages index or dpkg status file go through
// [AssembleBinary] instead, which shares the ledger, the relationship
// grammar and the error codes. [Detect] tells the two kinds apart.
package source

import (
	"github.com/matzehuels/debsrc/pkg/control"
	"github.com/matzehuels/debsrc/pkg/relation"
	"github.com/matzehuels/debsrc/pkg/stanza"
)

// Identity names the record being assembled. The caller obtains it
// independently of the stanza body, typically with deb822.Peek.
type Identity struct {
	Package string
	Version string
}

func (id Identity) String() string { return id.Package + " " + id.Version }

// Record is a fully typed source package.
type Record struct {
	Name      string
	Version   string
	Directory string
	Section   string

	Maintainer         []control.Identity
	Uploaders          []control.Identity
	OriginalMaintainer []control.Identity

	// Priority is PriorityUnknown when the field is absent.
	Priority         control.Priority
	StandardsVersion string
	Homepage         string
	Architectures    []string

	Binaries []control.Binary

	BuildDepends        relation.Relationship
	BuildDependsArch    relation.Relationship
	BuildDependsIndep   relation.Relationship
	BuildConflicts      relation.Relationship
	BuildConflictsArch  relation.Relationship
	BuildConflictsIndep relation.Relationship

	Files  []control.FileEntry
	Vcs    []control.VcsReference
	Format control.Format

	// Unparsed holds the fields the schema did not consume. It is only
	// filled in passthrough mode.
	Unparsed []stanza.Field
}

// RelationFields lists the relationship fields of a source stanza in schema
// order.
var RelationFields = []string{
	"Build-Depends",
	"Build-Depends-Arch",
	"Build-Depends-Indep",
	"Build-Conflicts",
	"Build-Conflicts-Arch",
	"Build-Conflicts-Indep",
}

// Relation returns the relationship stored for a field of RelationFields,
// or nil for any other name.
func (r *Record) Relation(field string) relation.Relationship {
	if p := r.relationPtr(field); p != nil {
		return *p
	}
	return nil
}

func (r *Record) relationPtr(field string) *relation.Relationship {
	switch field {
	case "Build-Depends":
		return &r.BuildDepends
	case "Build-Depends-Arch":
		return &r.BuildDependsArch
	case "Build-Depends-Indep":
		return &r.BuildDependsIndep
	case "Build-Conflicts":
		return &r.BuildConflicts
	case "Build-Conflicts-Arch":
		return &r.BuildConflictsArch
	case "Build-Conflicts-Indep":
		return &r.BuildConflictsIndep
	}
	return nil
}

// SetRelation stores rel under field. Unknown fields are ignored.
func (r *Record) SetRelation(field string, rel relation.Relationship) {
	if p := r.relationPtr(field); p != nil {
		*p = rel
	}
}

// BinaryNames returns the names of all binaries, in order.
func (r *Record) BinaryNames() []string {
	names := make([]string, len(r.Binaries))
	for i, b := range r.Binaries {
		names[i] = b.Name
	}
	return names
}
