package source

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matzehuels/debsrc/pkg/control"
	"github.com/matzehuels/debsrc/pkg/errors"
	"github.com/matzehuels/debsrc/pkg/ledger"
	"github.com/matzehuels/debsrc/pkg/relation"
	"github.com/matzehuels/debsrc/pkg/stanza"
)

// Kind tells source stanzas from binary ones.
type Kind uint8

const (
	KindSource Kind = iota
	KindBinary
)

func (k Kind) String() string {
	if k == KindBinary {
		return "binary"
	}
	return "source"
}

// Detect classifies st. A stanza that lists the binaries it builds (Binary
// or Package-List) or carries a Directory is a source stanza; anything else,
// such as an entry of a Packages index or dpkg's status file, is a binary.
func Detect(st *stanza.Stanza) Kind {
	for _, name := range []string{"Binary", "Package-List", "Directory"} {
		if st.Count(name) > 0 {
			return KindSource
		}
	}
	return KindBinary
}

// BinaryFile is the .deb a Packages entry points at.
type BinaryFile struct {
	Name    string
	Size    uint64
	Digests map[control.HashAlgorithm]string
}

// BinaryRecord is a fully typed binary package.
type BinaryRecord struct {
	Name    string
	Version string
	Section string

	Maintainer         []control.Identity
	OriginalMaintainer []control.Identity

	Priority      control.Priority
	Homepage      string
	Architectures []string

	// Source is the Source field verbatim: a name, optionally followed by
	// a parenthesised version.
	Source string
	Status string

	// Description keeps the synopsis on its first line.
	Description string

	// File is nil for stanzas without Filename, as in dpkg's status file.
	File          *BinaryFile
	InstalledSize uint64 // KiB

	Essential      bool
	BuildEssential bool

	PreDepends relation.Relationship
	Depends    relation.Relationship
	Recommends relation.Relationship
	Suggests   relation.Relationship
	Enhances   relation.Relationship
	Breaks     relation.Relationship
	Conflicts  relation.Relationship
	Replaces   relation.Relationship
	Provides   relation.Relationship

	Unparsed []stanza.Field
}

// BinaryRelationFields lists the relationship fields of a binary stanza in
// schema order.
var BinaryRelationFields = []string{
	"Pre-Depends",
	"Depends",
	"Recommends",
	"Suggests",
	"Enhances",
	"Breaks",
	"Conflicts",
	"Replaces",
	"Provides",
}

// binaryDigests maps the single-value digest fields of a Packages entry.
var binaryDigests = []struct {
	field string
	alg   control.HashAlgorithm
}{
	{"MD5sum", control.MD5},
	{"SHA1", control.SHA1},
	{"SHA256", control.SHA256},
	{"SHA512", control.SHA512},
}

// Relation returns the relationship stored for a field of
// BinaryRelationFields, or nil for any other name.
func (r *BinaryRecord) Relation(field string) relation.Relationship {
	if p := r.relationPtr(field); p != nil {
		return *p
	}
	return nil
}

func (r *BinaryRecord) relationPtr(field string) *relation.Relationship {
	switch field {
	case "Pre-Depends":
		return &r.PreDepends
	case "Depends":
		return &r.Depends
	case "Recommends":
		return &r.Recommends
	case "Suggests":
		return &r.Suggests
	case "Enhances":
		return &r.Enhances
	case "Breaks":
		return &r.Breaks
	case "Conflicts":
		return &r.Conflicts
	case "Replaces":
		return &r.Replaces
	case "Provides":
		return &r.Provides
	}
	return nil
}

// Synopsis returns the first line of the description.
func (r *BinaryRecord) Synopsis() string {
	line, _, _ := strings.Cut(r.Description, "\n")
	return line
}

// SourcePackage splits the Source field into name and version. Both fall
// back to the binary's own name and version, as dpkg does.
func (r *BinaryRecord) SourcePackage() Identity {
	id := Identity{Package: r.Name, Version: r.Version}
	name, rest, _ := strings.Cut(strings.TrimSpace(r.Source), " ")
	if name != "" {
		id.Package = name
	}
	rest = strings.TrimSpace(rest)
	if strings.HasPrefix(rest, "(") && strings.HasSuffix(rest, ")") {
		id.Version = strings.TrimSpace(rest[1 : len(rest)-1])
	}
	return id
}

// BinaryResult is an assembled binary record with the names of fields it
// did not use.
type BinaryResult struct {
	Record    *BinaryRecord
	Leftovers []string
}

// AssembleBinary builds a BinaryRecord from an entry of a Packages index or
// a dpkg status file. It shares the ledger, the relationship grammar and
// the error codes of Assemble.
func AssembleBinary(st *stanza.Stanza, id Identity, opts Options) (*BinaryResult, error) {
	a := &binaryAssembler{
		base: base{l: ledger.New(st), id: id, opts: opts},
		rec:  &BinaryRecord{},
	}

	for _, step := range []func() error{a.identity, a.descriptive, a.file, a.flags, a.relations} {
		if err := step(); err != nil {
			return nil, fmt.Errorf("binary %s: %w", id, err)
		}
	}

	res := &BinaryResult{Record: a.rec, Leftovers: a.l.Leftovers()}
	for _, name := range res.Leftovers {
		a.report(name, "field not handled by the binary schema")
	}
	if opts.Passthrough {
		a.rec.Unparsed = a.l.RawEntries(a.l.ConsumedSet())
	}
	return res, nil
}

// BinarySchemaFields returns every field name AssembleBinary may consume.
func BinarySchemaFields() []string {
	names := []string{
		"Package", "Version", "Section", "Priority", "Homepage",
		"Maintainer", "Original-Maintainer", "Orig-Maintainer", "Architecture",
		"Source", "Status", "Description",
		"Filename", "Size",
	}
	for _, d := range binaryDigests {
		names = append(names, d.field)
	}
	names = append(names, "Installed-Size", "Essential", "Build-Essential")
	return append(names, BinaryRelationFields...)
}

type binaryAssembler struct {
	base
	rec *BinaryRecord
}

func (a *binaryAssembler) identity() error {
	name, version, err := a.takeIdentity()
	if err != nil {
		return err
	}
	a.rec.Name, a.rec.Version = name, version
	return nil
}

func (a *binaryAssembler) descriptive() error {
	var err error
	if a.rec.Section, _, err = a.l.TakeOptional("Section"); err != nil {
		return err
	}
	if a.rec.Priority, err = a.takePriority(); err != nil {
		return err
	}
	if a.rec.Homepage, _, err = a.l.TakeOptional("Homepage"); err != nil {
		return err
	}

	maint, err := a.l.TakeMandatory("Maintainer")
	if err != nil {
		return err
	}
	if a.rec.Maintainer, err = control.ParseIdentities("Maintainer", maint); err != nil {
		return err
	}
	if a.rec.OriginalMaintainer, err = a.originalMaintainer(); err != nil {
		return err
	}
	if a.rec.Architectures, err = a.takeArchitectures(); err != nil {
		return err
	}

	if a.rec.Source, _, err = a.l.TakeOptional("Source"); err != nil {
		return err
	}
	if a.rec.Status, _, err = a.l.TakeOptional("Status"); err != nil {
		return err
	}
	a.rec.Description, err = a.l.TakeMandatory("Description")
	return err
}

// file reads Filename and the fields that describe it. Size is mandatory
// once Filename is present; each digest is optional.
func (a *binaryAssembler) file() error {
	name, ok, err := a.l.TakeOptional("Filename")
	if err != nil || !ok {
		return err
	}
	f := &BinaryFile{Name: name, Digests: make(map[control.HashAlgorithm]string)}

	size, err := a.l.TakeMandatory("Size")
	if err != nil {
		return err
	}
	if f.Size, err = parseSize("Size", size); err != nil {
		return err
	}

	for _, d := range binaryDigests {
		v, ok, err := a.l.TakeOptional(d.field)
		if err != nil {
			return err
		}
		if ok {
			f.Digests[d.alg] = strings.TrimSpace(v)
		}
	}
	a.rec.File = f
	return nil
}

func (a *binaryAssembler) flags() error {
	if v, ok, err := a.l.TakeOptional("Installed-Size"); err != nil {
		return err
	} else if ok {
		if a.rec.InstalledSize, err = parseSize("Installed-Size", v); err != nil {
			return err
		}
	}

	for _, f := range []struct {
		field string
		dst   *bool
	}{
		{"Essential", &a.rec.Essential},
		{"Build-Essential", &a.rec.BuildEssential},
	} {
		v, ok, err := a.l.TakeOptional(f.field)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if *f.dst, err = parseYesNo(f.field, v); err != nil {
			return err
		}
	}
	return nil
}

func (a *binaryAssembler) relations() error {
	for _, field := range BinaryRelationFields {
		v, ok, err := a.l.TakeOptional(field)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		rel, err := relation.ParseField(field, v)
		if err != nil {
			return err
		}
		*a.rec.relationPtr(field) = rel
	}
	return nil
}

func parseSize(field, v string) (uint64, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, errors.ForField(errors.ErrCodeInvalidSize, field, "invalid size %q", v)
	}
	return n, nil
}

func parseYesNo(field, v string) (bool, error) {
	switch v {
	case "yes":
		return true, nil
	case "no":
		return false, nil
	}
	return false, errors.ForField(errors.ErrCodeUnrecognizedEnum, field,
		"unrecognized value %q for %s (want yes or no)", v, field)
}
