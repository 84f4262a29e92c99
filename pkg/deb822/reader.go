// Package deb822 splits Debian control-format indexes (Sources, Packages,
// .dsc files) into stanzas and folds each stanza's lines into fields.
//
// Reading a whole Sources index:
//
//	f, err := deb822.Open("Sources.xz")
//	if err != nil {
//	    return err
//	}
//	defer f.Close()
//
//	r := deb822.NewReader(f)
//	for r.Next() {
//	    st, err := deb822.ParseStanza(r.Text())
//	    ...
//	}
//	if err := r.Err(); err != nil {
//	    return err
//	}
//
// The Reader yields raw stanza text; [ParseStanza] turns one block into a
// [stanza.Stanza]. Keeping the two apart lets callers cache, hash or
// re-parse the raw text without touching the reader.
package deb822

import (
	"bufio"
	"io"
	"strings"
)

// DefaultMaxStanza bounds the size of a single line when no buffer has been
// supplied. Checksum tables of large source packages can exceed
// bufio.MaxScanTokenSize.
const DefaultMaxStanza = 4 << 20

// Reader splits an index into blank-line separated blocks.
type Reader struct {
	sc    *bufio.Scanner
	buf   []byte
	max   int
	init  bool
	block strings.Builder
	text  string
	line  int
	start int
	err   error
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{sc: bufio.NewScanner(r), max: DefaultMaxStanza}
}

// Buffer sets the scratch buffer used for scanning lines and the maximum
// line size. The caller owns buf and may reuse it once the Reader is done.
// Buffer must be called before the first call to Next.
func (r *Reader) Buffer(buf []byte, max int) {
	r.buf, r.max = buf, max
}

// Next advances to the next non-empty block. It returns false at EOF or on
// error.
func (r *Reader) Next() bool {
	if r.err != nil {
		return false
	}
	if !r.init {
		r.sc.Buffer(r.buf, r.max)
		r.init = true
	}

	r.block.Reset()
	r.text = ""
	for r.sc.Scan() {
		r.line++
		line := r.sc.Text()
		if strings.TrimSpace(line) == "" {
			if r.block.Len() > 0 {
				break
			}
			continue
		}
		if r.block.Len() == 0 {
			r.start = r.line
		}
		r.block.WriteString(line)
		r.block.WriteByte('\n')
	}
	if err := r.sc.Err(); err != nil {
		r.err = err
		return false
	}
	if r.block.Len() == 0 {
		return false
	}
	r.text = r.block.String()
	return true
}

// Text returns the raw text of the current block, newline terminated.
func (r *Reader) Text() string { return r.text }

// Line returns the 1-based line number where the current block starts.
func (r *Reader) Line() int { return r.start }

// Err returns the first non-EOF error encountered.
func (r *Reader) Err() error { return r.err }

// ReadAll returns every block of r.
func ReadAll(r io.Reader) ([]string, error) {
	rd := NewReader(r)
	var blocks []string
	for rd.Next() {
		blocks = append(blocks, rd.Text())
	}
	return blocks, rd.Err()
}
