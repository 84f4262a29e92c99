package control

import (
	"strconv"
	"strings"

	"github.com/matzehuels/debsrc/pkg/errors"
)

// Identity is a person or team, e.g. "Jane Doe <jane@example.org>".
type Identity struct {
	Name  string
	Email string
}

func (i Identity) String() string {
	return i.Name + " <" + i.Email + ">"
}

// ParseIdentities parses a comma-separated list of "Name <email>" entries.
// A trailing comma is allowed. Names may contain \', \" and \xNN escapes.
func ParseIdentities(field, value string) ([]Identity, error) {
	var out []Identity
	rest := strings.TrimSpace(value)
	for rest != "" {
		open := strings.Index(rest, " <")
		if open < 0 {
			return nil, errors.ForField(errors.ErrCodeMalformedListEntry, field,
				"identity %q has no <email>", rest)
		}
		after := rest[open+2:]
		end := strings.IndexByte(after, '>')
		if end < 0 {
			return nil, errors.ForField(errors.ErrCodeMalformedListEntry, field,
				"unterminated email in %q", rest)
		}

		name, err := unescapeName(strings.TrimSpace(rest[:open]))
		if err != nil {
			return nil, errors.ForField(errors.ErrCodeMalformedListEntry, field, "%s", errors.UserMessage(err))
		}
		out = append(out, Identity{Name: name, Email: after[:end]})

		rest = strings.TrimSpace(after[end+1:])
		if rest == "" {
			break
		}
		if rest[0] != ',' {
			return nil, errors.ForField(errors.ErrCodeMalformedListEntry, field,
				"expected ',' before %q", rest)
		}
		rest = strings.TrimSpace(rest[1:])
	}
	return out, nil
}

func unescapeName(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+1 >= len(s) {
			return "", errors.New(errors.ErrCodeMalformedListEntry, "backslash at end of %q", s)
		}
		i++
		switch s[i] {
		case '\'', '"':
			b.WriteByte(s[i])
		case 'x':
			if i+2 >= len(s) {
				return "", errors.New(errors.ErrCodeMalformedListEntry, "short \\x escape in %q", s)
			}
			n, err := strconv.ParseUint(s[i+1:i+3], 16, 8)
			if err != nil {
				return "", errors.New(errors.ErrCodeMalformedListEntry, "bad \\x escape in %q", s)
			}
			b.WriteByte(byte(n))
			i += 2
		default:
			return "", errors.New(errors.ErrCodeMalformedListEntry, "unsupported escape \\%c in %q", s[i], s)
		}
	}
	return b.String(), nil
}
