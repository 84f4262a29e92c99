package deb822

import (
	"strings"

	"github.com/matzehuels/debsrc/pkg/errors"
	"github.com/matzehuels/debsrc/pkg/stanza"
)

// ParseStanza folds the lines of one block into fields.
//
// A line starting with a space or tab continues the previous field; its
// content is trimmed and joined with '\n'. A lone "." stands for an empty
// line. When the text after the colon is empty, the value starts with the
// first continuation line. Lines starting with '#' are comments.
func ParseStanza(text string) (*stanza.Stanza, error) {
	var (
		fields []stanza.Field
		name   string
		lines  []string
		open   bool
	)
	flush := func() {
		if !open {
			return
		}
		if len(lines) > 1 && lines[0] == "" {
			lines = lines[1:]
		}
		fields = append(fields, stanza.Field{Name: name, Value: strings.Join(lines, "\n")})
		open = false
	}

	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" || line[0] == '#' {
			continue
		}

		if line[0] == ' ' || line[0] == '\t' {
			if !open {
				return nil, errors.New(errors.ErrCodeMalformedStanza,
					"line %d: continuation line without a field", i+1)
			}
			cont := strings.TrimSpace(line)
			if cont == "." {
				cont = ""
			}
			lines = append(lines, cont)
			continue
		}

		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			return nil, errors.New(errors.ErrCodeMalformedStanza, "line %d: missing ':' in %q", i+1, line)
		}
		flush()
		name = line[:colon]
		lines = []string{strings.TrimSpace(line[colon+1:])}
		open = true
	}
	flush()

	return stanza.New(fields...)
}

// Peek returns the first-line value of the first field called name without
// parsing the whole block. It is meant for cheap identity lookups.
func Peek(text, name string) (string, bool) {
	prefix := name + ":"
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(line[len(prefix):]), true
		}
	}
	return "", false
}
