package deb822

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/matzehuels/debsrc/pkg/errors"
)

// Compression identifies how an index file is compressed.
type Compression int

const (
	None Compression = iota
	Gzip
	XZ
	Zstd
)

var magic = []struct {
	c     Compression
	bytes []byte
}{
	{Gzip, []byte{0x1f, 0x8b}},
	{XZ, []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}},
	{Zstd, []byte{0x28, 0xb5, 0x2f, 0xfd}},
}

// Open opens an index file, transparently decompressing Sources.gz,
// Sources.xz and Sources.zst. The compression is detected from the file
// contents, not its name.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", filepath.Base(path))
		}
		return nil, err
	}

	rc, err := Decompress(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &fileReader{ReadCloser: rc, f: f}, nil
}

type fileReader struct {
	io.ReadCloser
	f *os.File
}

func (r *fileReader) Close() error {
	err := r.ReadCloser.Close()
	if ferr := r.f.Close(); err == nil {
		err = ferr
	}
	return err
}

// Decompress sniffs the first bytes of r and wraps it in the matching
// decompressor. Uncompressed input is passed through.
func Decompress(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(6)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, err
	}

	switch detect(head) {
	case Gzip:
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "gzip header")
		}
		return zr, nil
	case XZ:
		xr, err := xz.NewReader(br)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "xz header")
		}
		return io.NopCloser(xr), nil
	case Zstd:
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "zstd header")
		}
		return dec.IOReadCloser(), nil
	}
	return io.NopCloser(br), nil
}

func detect(head []byte) Compression {
	for _, m := range magic {
		if bytes.HasPrefix(head, m.bytes) {
			return m.c
		}
	}
	return None
}
