package control

import (
	"github.com/matzehuels/debsrc/pkg/errors"
)

// Priority is the archive priority of a package.
type Priority uint8

const (
	PriorityRequired Priority = iota
	PriorityImportant
	PriorityStandard
	PriorityOptional
	PriorityExtra
	PrioritySource
	PriorityUnknown

	priorityCount
)

var priorityNames = [...]string{
	PriorityRequired:  "required",
	PriorityImportant: "important",
	PriorityStandard:  "standard",
	PriorityOptional:  "optional",
	PriorityExtra:     "extra",
	PrioritySource:    "source",
	PriorityUnknown:   "unknown",
}

// Adding a Priority without a name (or the reverse) fails to compile.
var (
	_ [len(priorityNames) - int(priorityCount)]struct{}
	_ [int(priorityCount) - len(priorityNames)]struct{}
)

func (p Priority) String() string {
	if p < priorityCount {
		return priorityNames[p]
	}
	return "Priority(?)"
}

// ParsePriority maps a priority string onto the closed vocabulary.
// field is used for error attribution.
func ParsePriority(field, s string) (Priority, error) {
	for i, name := range priorityNames {
		if s == name {
			return Priority(i), nil
		}
	}
	return PriorityUnknown, unrecognized(field, s)
}

// Format is the source package format.
type Format uint8

const (
	FormatOriginal Format = iota
	FormatNative
	FormatQuilt
	FormatGit

	formatCount
)

var formatNames = [...]string{
	FormatOriginal: "1.0",
	FormatNative:   "3.0 (native)",
	FormatQuilt:    "3.0 (quilt)",
	FormatGit:      "3.0 (git)",
}

var (
	_ [len(formatNames) - int(formatCount)]struct{}
	_ [int(formatCount) - len(formatNames)]struct{}
)

func (f Format) String() string {
	if f < formatCount {
		return formatNames[f]
	}
	return "Format(?)"
}

// ParseFormat maps a Format field value onto the closed vocabulary.
func ParseFormat(field, s string) (Format, error) {
	for i, name := range formatNames {
		if s == name {
			return Format(i), nil
		}
	}
	return FormatOriginal, unrecognized(field, s)
}

// HashAlgorithm identifies the digest carried by one file table.
type HashAlgorithm uint8

const (
	MD5 HashAlgorithm = iota
	SHA1
	SHA256
	SHA512

	hashCount
)

// hashTables pairs each algorithm with its tag and the stanza field holding
// its table.
var hashTables = [...]struct{ tag, field string }{
	MD5:    {"MD5", "Files"},
	SHA1:   {"SHA1", "Checksums-Sha1"},
	SHA256: {"SHA256", "Checksums-Sha256"},
	SHA512: {"SHA512", "Checksums-Sha512"},
}

var (
	_ [len(hashTables) - int(hashCount)]struct{}
	_ [int(hashCount) - len(hashTables)]struct{}
)

func (h HashAlgorithm) String() string {
	if h < hashCount {
		return hashTables[h].tag
	}
	return "HashAlgorithm(?)"
}

// Field returns the stanza field that holds the table for h.
func (h HashAlgorithm) Field() string {
	if h < hashCount {
		return hashTables[h].field
	}
	return ""
}

// HashAlgorithms returns every algorithm, primary first.
func HashAlgorithms() []HashAlgorithm {
	out := make([]HashAlgorithm, hashCount)
	for i := range out {
		out[i] = HashAlgorithm(i)
	}
	return out
}

// ParseHashAlgorithm maps a tag such as "SHA256" back to its algorithm.
func ParseHashAlgorithm(tag string) (HashAlgorithm, error) {
	for i, t := range hashTables {
		if t.tag == tag {
			return HashAlgorithm(i), nil
		}
	}
	return MD5, unrecognized("hash algorithm", tag)
}

func algorithmForField(field string) (HashAlgorithm, bool) {
	for i, t := range hashTables {
		if t.field == field {
			return HashAlgorithm(i), true
		}
	}
	return 0, false
}

// VcsSystem is the version control tool named by a Vcs-* field.
type VcsSystem uint8

const (
	VcsArch VcsSystem = iota
	VcsBrowser
	VcsBzr
	VcsCvs
	VcsDarcs
	VcsGit
	VcsHg
	VcsMtn
	VcsSvn

	vcsSystemCount
)

// vcsSystemTokens lists the field spellings per system. The first token is
// canonical.
var vcsSystemTokens = [...][]string{
	VcsArch:    {"Arch"},
	VcsBrowser: {"Browser", "Browse"},
	VcsBzr:     {"Bzr"},
	VcsCvs:     {"Cvs"},
	VcsDarcs:   {"Darcs"},
	VcsGit:     {"Git"},
	VcsHg:      {"Hg"},
	VcsMtn:     {"Mtn"},
	VcsSvn:     {"Svn"},
}

var (
	_ [len(vcsSystemTokens) - int(vcsSystemCount)]struct{}
	_ [int(vcsSystemCount) - len(vcsSystemTokens)]struct{}
)

func (v VcsSystem) String() string {
	if v < vcsSystemCount {
		return vcsSystemTokens[v][0]
	}
	return "VcsSystem(?)"
}

// VcsSystems returns every system in enumeration order.
func VcsSystems() []VcsSystem {
	out := make([]VcsSystem, vcsSystemCount)
	for i := range out {
		out[i] = VcsSystem(i)
	}
	return out
}

// ParseVcsSystem accepts any spelling of a system, aliases included.
func ParseVcsSystem(s string) (VcsSystem, error) {
	for i, toks := range vcsSystemTokens {
		for _, t := range toks {
			if t == s {
				return VcsSystem(i), nil
			}
		}
	}
	return VcsArch, unrecognized("vcs system", s)
}

// VcsKind says whose repository a VCS reference points at.
type VcsKind uint8

const (
	VcsKindVcs VcsKind = iota
	VcsKindOrig
	VcsKindDebian
	VcsKindUpstream

	vcsKindCount
)

// vcsKindTokens lists the field spellings per kind. VcsKindVcs is the plain
// Vcs-<System> form and has no token of its own.
var vcsKindTokens = [...][]string{
	VcsKindVcs:      nil,
	VcsKindOrig:     {"Orig", "Original"},
	VcsKindDebian:   {"Debian"},
	VcsKindUpstream: {"Upstream"},
}

var vcsKindNames = [...]string{
	VcsKindVcs:      "Vcs",
	VcsKindOrig:     "Orig",
	VcsKindDebian:   "Debian",
	VcsKindUpstream: "Upstream",
}

var (
	_ [len(vcsKindTokens) - int(vcsKindCount)]struct{}
	_ [int(vcsKindCount) - len(vcsKindTokens)]struct{}
	_ [len(vcsKindNames) - int(vcsKindCount)]struct{}
	_ [int(vcsKindCount) - len(vcsKindNames)]struct{}
)

func (k VcsKind) String() string {
	if k < vcsKindCount {
		return vcsKindNames[k]
	}
	return "VcsKind(?)"
}

// VcsKinds returns every kind in enumeration order.
func VcsKinds() []VcsKind {
	out := make([]VcsKind, vcsKindCount)
	for i := range out {
		out[i] = VcsKind(i)
	}
	return out
}

// ParseVcsKind maps a kind name back to its value.
func ParseVcsKind(s string) (VcsKind, error) {
	for i, name := range vcsKindNames {
		if name == s {
			return VcsKind(i), nil
		}
	}
	for i, toks := range vcsKindTokens {
		for _, t := range toks {
			if t == s {
				return VcsKind(i), nil
			}
		}
	}
	return VcsKindVcs, unrecognized("vcs kind", s)
}

func unrecognized(field, value string) error {
	return errors.ForField(errors.ErrCodeUnrecognizedEnum, field,
		"unrecognized value %q for %s", value, field)
}
