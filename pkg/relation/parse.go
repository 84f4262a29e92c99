package relation

import (
	"github.com/matzehuels/debsrc/pkg/errors"
)

// Parse parses a relationship field value. Empty or blank input yields an
// empty Relationship.
//
//	relationship := "" | alternative ("," alternative)*
//	alternative  := dependency ("|" dependency)*
//	dependency   := name [":" arch] constraint* ["[" archlist "]"] ("<" profiles ">")*
//	constraint   := "(" operator version ")"
//
// Matching is greedy and never backtracks into a group once it has been
// accepted. A separator that is not followed by a valid production is left
// in the input and reported as trailing.
func Parse(s string) (Relationship, error) {
	return ParseField("", s)
}

// ParseField is Parse with errors attributed to field.
func ParseField(field, s string) (Relationship, error) {
	p := &parser{field: field, src: s}
	return p.relationship()
}

type parser struct {
	field string
	src   string
	pos   int
}

func (p *parser) relationship() (Relationship, error) {
	p.skipSpace()
	if p.eof() {
		return Relationship{}, nil
	}

	var rel Relationship
	alt, ok, err := p.alternative()
	if err != nil {
		return nil, err
	}
	if ok {
		rel = append(rel, alt)
		for {
			mark := p.pos
			p.skipSpace()
			if !p.accept(',') {
				p.pos = mark
				break
			}
			alt, ok, err := p.alternative()
			if err != nil {
				return nil, err
			}
			if !ok {
				p.pos = mark
				break
			}
			rel = append(rel, alt)
		}
	}

	p.skipSpace()
	if !p.eof() {
		return nil, errors.ForField(errors.ErrCodeTrailingInput, p.field,
			"unparsed input %q at offset %d", p.src[p.pos:], p.pos)
	}
	return rel, nil
}

func (p *parser) alternative() (Alternative, bool, error) {
	dep, ok, err := p.dependency()
	if err != nil || !ok {
		return nil, false, err
	}

	alt := Alternative{dep}
	for {
		mark := p.pos
		p.skipSpace()
		if !p.accept('|') {
			p.pos = mark
			break
		}
		dep, ok, err := p.dependency()
		if err != nil {
			return nil, false, err
		}
		if !ok {
			p.pos = mark
			break
		}
		alt = append(alt, dep)
	}
	return alt, true, nil
}

func (p *parser) dependency() (Dependency, bool, error) {
	start := p.pos
	p.skipSpace()
	name := p.run(isNameChar)
	if name == "" {
		p.pos = start
		return Dependency{}, false, nil
	}
	d := Dependency{Package: name}

	mark := p.pos
	p.skipSpace()
	if p.accept(':') {
		p.skipSpace()
		if d.Arch = p.run(isArchChar); d.Arch == "" {
			p.pos = mark
		}
	} else {
		p.pos = mark
	}

	for {
		c, ok, err := p.constraint()
		if err != nil {
			return Dependency{}, false, err
		}
		if !ok {
			break
		}
		d.Constraints = append(d.Constraints, c)
	}

	if r, ok := p.enclosed('[', ']'); ok {
		d.ArchRestriction = &r
	}

	for {
		prof, ok := p.enclosed('<', '>')
		if !ok {
			break
		}
		d.Profiles = append(d.Profiles, prof)
	}

	return d, true, nil
}

// constraint parses "(op version)". Once the opening parenthesis is seen the
// operator must be valid; an unclosed clause is left unconsumed.
func (p *parser) constraint() (Constraint, bool, error) {
	mark := p.pos
	p.skipSpace()
	if !p.accept('(') {
		p.pos = mark
		return Constraint{}, false, nil
	}

	p.skipSpace()
	opStart := p.pos
	tok := p.run(isOpChar)
	op, err := ParseOperator(tok)
	if err != nil {
		return Constraint{}, false, errors.ForField(errors.ErrCodeUnknownOperator, p.field,
			"unknown version operator %q at offset %d", tok, opStart)
	}

	p.skipSpace()
	ver := p.run(isVersionChar)
	p.skipSpace()
	if ver == "" || !p.accept(')') {
		p.pos = mark
		return Constraint{}, false, nil
	}
	return Constraint{Op: op, Version: ver}, true, nil
}

// enclosed parses lhs body rhs and returns the trimmed body. Empty bodies
// and bodies containing structural characters are rejected.
func (p *parser) enclosed(lhs, rhs byte) (string, bool) {
	mark := p.pos
	p.skipSpace()
	if !p.accept(lhs) {
		p.pos = mark
		return "", false
	}

	p.skipSpace()
	bodyStart := p.pos
	bodyEnd := p.pos
	for !p.eof() && isRestrictionChar(p.src[p.pos]) {
		p.pos++
		if !isSpace(p.src[p.pos-1]) {
			bodyEnd = p.pos
		}
	}
	if bodyEnd == bodyStart || !p.accept(rhs) {
		p.pos = mark
		return "", false
	}
	return p.src[bodyStart:bodyEnd], true
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) accept(c byte) bool {
	if !p.eof() && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *parser) skipSpace() {
	for !p.eof() && isSpace(p.src[p.pos]) {
		p.pos++
	}
}

func (p *parser) run(ok func(byte) bool) string {
	start := p.pos
	for !p.eof() && ok(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isAlnum(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func isNameChar(c byte) bool {
	return isAlnum(c) || c == '.' || c == '+' || c == '-'
}

func isArchChar(c byte) bool {
	return isAlnum(c) || c == '-'
}

func isOpChar(c byte) bool {
	return c == '<' || c == '>' || c == '=' || c == '!' || c == '~'
}

func isVersionChar(c byte) bool {
	switch c {
	case '(', ')', '[', ']', '<', '>', ',', '|':
		return false
	}
	return !isSpace(c)
}

func isRestrictionChar(c byte) bool {
	switch c {
	case '(', ')', '[', ']', '<', '>', ',', '|':
		return false
	}
	return true
}
