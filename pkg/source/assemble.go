package source

import (
	"fmt"
	"slices"
	"strings"

	"github.com/matzehuels/debsrc/pkg/control"
	"github.com/matzehuels/debsrc/pkg/errors"
	"github.com/matzehuels/debsrc/pkg/ledger"
	"github.com/matzehuels/debsrc/pkg/relation"
	"github.com/matzehuels/debsrc/pkg/stanza"
)

// Options controls a single assembly.
type Options struct {
	// Passthrough copies unconsumed fields into Record.Unparsed.
	Passthrough bool

	// Report receives non-fatal findings. Nil discards them.
	Report func(Diagnostic)
}

// Diagnostic is a non-fatal finding about one record.
type Diagnostic struct {
	Package string
	Version string
	Field   string
	Message string
}

func (d Diagnostic) String() string {
	if d.Field == "" {
		return fmt.Sprintf("%s %s: %s", d.Package, d.Version, d.Message)
	}
	return fmt.Sprintf("%s %s: %s: %s", d.Package, d.Version, d.Field, d.Message)
}

// Result is an assembled record with the names of fields it did not use.
type Result struct {
	Record    *Record
	Leftovers []string
}

// Assemble builds a Record from st.
//
// Errors carry the record identity and keep their code, so
// errors.Is(err, errors.ErrCodeMissingField) works on the returned value.
func Assemble(st *stanza.Stanza, id Identity, opts Options) (*Result, error) {
	a := &assembler{
		base: base{l: ledger.New(st), id: id, opts: opts},
		rec:  &Record{},
	}

	for _, step := range []func() error{a.identity, a.descriptive, a.binaries, a.relations, a.files, a.vcs, a.format} {
		if err := step(); err != nil {
			return nil, fmt.Errorf("source %s: %w", id, err)
		}
	}

	res := &Result{Record: a.rec, Leftovers: a.l.Leftovers()}
	for _, name := range res.Leftovers {
		a.report(name, "field not handled by the source schema")
	}
	if opts.Passthrough {
		a.rec.Unparsed = a.l.RawEntries(a.l.ConsumedSet())
	}
	return res, nil
}

// SchemaFields returns every field name Assemble may consume. Stanza names
// outside this set always end up as leftovers.
func SchemaFields() []string {
	names := []string{
		"Package", "Version",
		"Directory", "Section", "Priority", "Standards-Version", "Homepage",
		"Maintainer", "Uploaders", "Original-Maintainer", "Orig-Maintainer", "Architecture",
		"Package-List", "Binary",
	}
	names = append(names, RelationFields...)
	for _, alg := range control.HashAlgorithms() {
		names = append(names, alg.Field())
	}
	for _, sys := range control.VcsSystems() {
		for _, kind := range control.VcsKinds() {
			names = append(names, control.VcsFieldNames(sys, kind)...)
		}
	}
	return append(names, "Format")
}

// base holds the state shared by the source and binary assemblers.
type base struct {
	l    *ledger.Ledger
	id   Identity
	opts Options
}

func (b *base) report(field, format string, args ...any) {
	if b.opts.Report == nil {
		return
	}
	b.opts.Report(Diagnostic{
		Package: b.id.Package,
		Version: b.id.Version,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	})
}

// takeIdentity consumes Package and Version and checks them against the
// caller's identity.
func (b *base) takeIdentity() (name, version string, err error) {
	if name, err = b.l.TakeMandatory("Package"); err != nil {
		return "", "", err
	}
	if version, err = b.l.TakeMandatory("Version"); err != nil {
		return "", "", err
	}

	if b.id.Package != "" && b.id.Package != name {
		b.report("Package", "stanza names %q, caller expected %q", name, b.id.Package)
	}
	if b.id.Version != "" && b.id.Version != version {
		b.report("Version", "stanza has %q, caller expected %q", version, b.id.Version)
	}
	if err := errors.ValidatePackageName(name); err != nil {
		b.report("Package", "%s", errors.UserMessage(err))
	}
	return name, version, nil
}

// takePriority returns PriorityUnknown when Priority is absent.
func (b *base) takePriority() (control.Priority, error) {
	v, ok, err := b.l.TakeOptional("Priority")
	if err != nil || !ok {
		return control.PriorityUnknown, err
	}
	return control.ParsePriority("Priority", v)
}

func (b *base) takeArchitectures() ([]string, error) {
	v, err := b.l.TakeMandatory("Architecture")
	if err != nil {
		return nil, err
	}
	arches := control.ParseArchitectures(v)
	if len(arches) == 1 && isWildcard(arches[0]) {
		b.report("Architecture", "single unexpanded architecture %q", arches[0])
	}
	return arches, nil
}

type assembler struct {
	base
	rec *Record
}

func (a *assembler) identity() error {
	name, version, err := a.takeIdentity()
	if err != nil {
		return err
	}
	a.rec.Name, a.rec.Version = name, version
	return nil
}

func (a *assembler) descriptive() error {
	var err error
	if a.rec.Directory, err = a.l.TakeMandatory("Directory"); err != nil {
		return err
	}
	if a.rec.Section, _, err = a.l.TakeOptional("Section"); err != nil {
		return err
	}

	if a.rec.Priority, err = a.takePriority(); err != nil {
		return err
	}

	if a.rec.StandardsVersion, _, err = a.l.TakeOptional("Standards-Version"); err != nil {
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

	if v, ok, err := a.l.TakeOptional("Uploaders"); err != nil {
		return err
	} else if ok {
		if a.rec.Uploaders, err = control.ParseIdentities("Uploaders", v); err != nil {
			return err
		}
	}

	if a.rec.OriginalMaintainer, err = a.originalMaintainer(); err != nil {
		return err
	}
	a.rec.Architectures, err = a.takeArchitectures()
	return err
}

// originalMaintainer reads Original-Maintainer or its misspelling
// Orig-Maintainer. Setting both is ambiguous.
func (b *base) originalMaintainer() ([]control.Identity, error) {
	var value, from string
	for _, name := range []string{"Original-Maintainer", "Orig-Maintainer"} {
		v, ok, err := b.l.TakeOptional(name)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if from != "" {
			return nil, errors.ForField(errors.ErrCodeDuplicateField, name, "%s and %s are both set", from, name)
		}
		value, from = v, name
	}
	if from == "" {
		return nil, nil
	}
	return control.ParseIdentities(from, value)
}

func isWildcard(arch string) bool {
	return arch == "any" || strings.HasPrefix(arch, "any-") || strings.HasSuffix(arch, "-any")
}

// binaries prefers Package-List and falls back to the legacy Binary field.
// When both are present the names must agree.
func (a *assembler) binaries() error {
	list, hasList, err := a.l.TakeOptional("Package-List")
	if err != nil {
		return err
	}
	csv, hasCSV, err := a.l.TakeOptional("Binary")
	if err != nil {
		return err
	}
	legacy := control.ParseBinaryNames(csv)

	if hasList {
		if a.rec.Binaries, err = control.ParsePackageList(list); err != nil {
			return err
		}
		if hasCSV && !sameNames(legacy, a.rec.BinaryNames()) {
			a.report("Binary", "names %v disagree with Package-List %v", legacy, a.rec.BinaryNames())
		}
	} else {
		for _, name := range legacy {
			a.rec.Binaries = append(a.rec.Binaries, control.Binary{Name: name, Priority: control.PriorityUnknown})
		}
	}

	field := "Binary"
	if hasList {
		field = "Package-List"
	}
	for _, b := range a.rec.Binaries {
		if err := errors.ValidatePackageName(b.Name); err != nil {
			a.report(field, "%s", errors.UserMessage(err))
		}
	}
	return nil
}

func sameNames(a, b []string) bool {
	a, b = slices.Clone(a), slices.Clone(b)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(slices.Compact(a), slices.Compact(b))
}

func (a *assembler) relations() error {
	for _, field := range RelationFields {
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
		a.rec.SetRelation(field, rel)
	}
	return nil
}

func (a *assembler) files() error {
	var tables []control.FileTable
	for _, alg := range control.HashAlgorithms() {
		field := alg.Field()
		var (
			v   string
			ok  bool
			err error
		)
		if alg == control.MD5 {
			v, err = a.l.TakeMandatory(field)
			ok = err == nil
		} else {
			v, ok, err = a.l.TakeOptional(field)
		}
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		t, err := control.ParseFileTable(field, v)
		if err != nil {
			return err
		}
		tables = append(tables, t)
	}

	entries, err := control.MergeFileTables(tables[0], tables[1:]...)
	if err != nil {
		return err
	}
	a.rec.Files = entries
	return nil
}

func (a *assembler) vcs() error {
	refs, err := control.CollectVcs(a.l)
	if err != nil {
		return err
	}
	a.rec.Vcs = refs
	return nil
}

func (a *assembler) format() error {
	v, err := a.l.TakeMandatory("Format")
	if err != nil {
		return err
	}
	a.rec.Format, err = control.ParseFormat("Format", v)
	return err
}
