package control

import (
	"strings"

	"github.com/matzehuels/debsrc/pkg/errors"
)

const packageListField = "Package-List"

// Binary summarizes one binary package built from a source package.
type Binary struct {
	Name     string
	Style    string // package type, usually "deb" or "udeb"
	Section  string
	Priority Priority
	Extras   []string // trailing key=value annotations, verbatim
}

// ParsePackageList parses a Package-List value. Blank lines are skipped.
func ParsePackageList(value string) ([]Binary, error) {
	var out []Binary
	for _, line := range strings.Split(value, "\n") {
		toks := strings.Fields(line)
		if len(toks) == 0 {
			continue
		}
		if len(toks) < 4 {
			return nil, errors.ForField(errors.ErrCodeMalformedListEntry, packageListField,
				"entry %q has %d columns, want at least 4", strings.TrimSpace(line), len(toks))
		}

		prio, err := ParsePriority(packageListField, toks[3])
		if err != nil {
			return nil, err
		}

		b := Binary{
			Name:     toks[0],
			Style:    toks[1],
			Section:  toks[2],
			Priority: prio,
		}
		if len(toks) > 4 {
			b.Extras = toks[4:]
		}
		out = append(out, b)
	}
	return out, nil
}

// ParseBinaryNames splits the comma-separated Binary field.
func ParseBinaryNames(value string) []string {
	var names []string
	for _, part := range strings.Split(value, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// ParseArchitectures splits a whitespace-separated architecture list.
func ParseArchitectures(value string) []string {
	return strings.Fields(value)
}
