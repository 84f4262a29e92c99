package pipeline

import (
	"fmt"
	"io"

	"github.com/matzehuels/debsrc/pkg/deb822"
	"github.com/matzehuels/debsrc/pkg/source"
)

// ReadInputs splits an index into inputs. The identity of each stanza is
// peeked from its Package and Version lines without parsing the rest.
func ReadInputs(r io.Reader) ([]Input, error) {
	dr := deb822.NewReader(r)
	var inputs []Input
	for dr.Next() {
		text := dr.Text()
		pkg, _ := deb822.Peek(text, "Package")
		ver, _ := deb822.Peek(text, "Version")
		inputs = append(inputs, Input{
			Index:    len(inputs),
			Line:     dr.Line(),
			Text:     text,
			Identity: source.Identity{Package: pkg, Version: ver},
		})
	}
	if err := dr.Err(); err != nil {
		return nil, fmt.Errorf("read stanzas: %w", err)
	}
	return inputs, nil
}

// LoadInputs opens an index file, decompressing it if needed, and splits it
// into inputs.
func LoadInputs(path string) ([]Input, error) {
	f, err := deb822.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	inputs, err := ReadInputs(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return inputs, nil
}
