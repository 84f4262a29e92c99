// Package ledger tracks which fields of a stanza have been consumed by typed
// extraction, so that anything left over can be reported.
//
// A Ledger never mutates the stanza it wraps. Consumption is recorded in a
// separate set; the stanza stays available for raw passthrough.
//
//	l := ledger.New(st)
//	dir, err := l.TakeMandatory("Directory")
//	section, ok, err := l.TakeOptional("Section")
//	...
//	for _, name := range l.Leftovers() {
//	    log.Warn("unhandled field", "field", name)
//	}
//
// A Ledger is scoped to one stanza and is not safe for concurrent use.
package ledger

import (
	"github.com/matzehuels/debsrc/pkg/errors"
	"github.com/matzehuels/debsrc/pkg/stanza"
)

// Ledger wraps a stanza with a consumed-name set.
type Ledger struct {
	st       *stanza.Stanza
	consumed map[string]bool
	order    []string
}

// New returns a ledger over st with nothing consumed.
func New(st *stanza.Stanza) *Ledger {
	if st == nil {
		st = &stanza.Stanza{}
	}
	return &Ledger{
		st:       st,
		consumed: make(map[string]bool),
	}
}

// Stanza returns the wrapped stanza.
func (l *Ledger) Stanza() *stanza.Stanza { return l.st }

// TakeMandatory consumes name and returns its value.
// It fails with MISSING_MANDATORY_FIELD when the field is absent.
func (l *Ledger) TakeMandatory(name string) (string, error) {
	val, ok, err := l.take(name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.ForField(errors.ErrCodeMissingField, name, "mandatory field %s is missing", name)
	}
	return val, nil
}

// TakeOptional consumes name if present. The boolean reports presence.
func (l *Ledger) TakeOptional(name string) (string, bool, error) {
	return l.take(name)
}

func (l *Ledger) take(name string) (string, bool, error) {
	if l.consumed[name] {
		return "", false, errors.ForField(errors.ErrCodeInternal, name, "field %s consumed twice", name)
	}

	vals := l.st.Lookup(name)
	switch len(vals) {
	case 0:
		return "", false, nil
	case 1:
		l.mark(name)
		return vals[0], true, nil
	default:
		return "", false, errors.ForField(errors.ErrCodeDuplicateField, name,
			"field %s appears %d times", name, len(vals))
	}
}

func (l *Ledger) mark(name string) {
	l.consumed[name] = true
	l.order = append(l.order, name)
}

// Consumed reports whether name has been taken.
func (l *Ledger) Consumed(name string) bool { return l.consumed[name] }

// ConsumedNames returns the consumed field names in consumption order.
func (l *Ledger) ConsumedNames() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// ConsumedSet returns the consumed names as a set, suitable as the exclusion
// argument of [Ledger.RawEntries].
func (l *Ledger) ConsumedSet() map[string]bool {
	set := make(map[string]bool, len(l.consumed))
	for k := range l.consumed {
		set[k] = true
	}
	return set
}

// Leftovers returns the names of fields never consumed, in order of first
// appearance in the stanza.
func (l *Ledger) Leftovers() []string {
	var out []string
	for _, name := range l.st.Names() {
		if !l.consumed[name] {
			out = append(out, name)
		}
	}
	return out
}

// RawEntries returns every field whose name is not in exclude, in stanza
// order, duplicates included.
func (l *Ledger) RawEntries(exclude map[string]bool) []stanza.Field {
	var out []stanza.Field
	for _, f := range l.st.Fields() {
		if !exclude[f.Name] {
			out = append(out, f)
		}
	}
	return out
}
