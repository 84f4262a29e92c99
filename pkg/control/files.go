package control

import (
	"strconv"
	"strings"

	"github.com/matzehuels/debsrc/pkg/errors"
)

// FileRow is one line of a checksum table.
type FileRow struct {
	Checksum string
	Size     uint64
	Name     string
}

// FileTable is one parsed checksum table, in source order.
type FileTable struct {
	Algorithm HashAlgorithm
	Rows      []FileRow
}

// FileEntry is a file of the source package with every digest supplied for
// it across all tables.
type FileEntry struct {
	Name    string
	Size    uint64
	Digests map[HashAlgorithm]string
}

// ParseFileTable parses the table stored in field, which must be one of
// Files or Checksums-Sha1/Sha256/Sha512.
func ParseFileTable(field, value string) (FileTable, error) {
	alg, ok := algorithmForField(field)
	if !ok {
		return FileTable{}, errors.ForField(errors.ErrCodeInvalidInput, field, "%s is not a checksum table", field)
	}

	t := FileTable{Algorithm: alg}
	seen := make(map[string]bool)
	for _, line := range strings.Split(value, "\n") {
		toks := strings.Fields(line)
		if len(toks) == 0 {
			continue
		}
		if len(toks) != 3 {
			return FileTable{}, errors.ForField(errors.ErrCodeMalformedFileEntry, field,
				"entry %q has %d columns, want 3", strings.TrimSpace(line), len(toks))
		}

		size, err := strconv.ParseUint(toks[1], 10, 64)
		if err != nil {
			return FileTable{}, errors.ForField(errors.ErrCodeInvalidSize, field,
				"invalid size %q for %s", toks[1], toks[2])
		}

		name := toks[2]
		if seen[name] {
			return FileTable{}, errors.ForField(errors.ErrCodeDuplicateFileName, field,
				"%s listed more than once", name)
		}
		seen[name] = true

		t.Rows = append(t.Rows, FileRow{Checksum: toks[0], Size: size, Name: name})
	}
	return t, nil
}

// MergeFileTables joins secondary tables into primary by filename.
//
// Every table must list exactly the filenames of primary with the same
// sizes; any difference fails with INCONSISTENT_HASH_SET. Output order
// follows primary.
func MergeFileTables(primary FileTable, secondaries ...FileTable) ([]FileEntry, error) {
	entries := make([]FileEntry, len(primary.Rows))
	index := make(map[string]int, len(primary.Rows))
	for i, row := range primary.Rows {
		entries[i] = FileEntry{
			Name:    row.Name,
			Size:    row.Size,
			Digests: map[HashAlgorithm]string{primary.Algorithm: row.Checksum},
		}
		index[row.Name] = i
	}

	merged := map[HashAlgorithm]bool{primary.Algorithm: true}
	for _, sec := range secondaries {
		field := sec.Algorithm.Field()
		if merged[sec.Algorithm] {
			return nil, errors.ForField(errors.ErrCodeInternal, field, "%s table supplied twice", sec.Algorithm)
		}
		merged[sec.Algorithm] = true

		if len(sec.Rows) != len(entries) {
			return nil, errors.ForField(errors.ErrCodeInconsistentHashes, field,
				"%s lists %d files, %s lists %d",
				field, len(sec.Rows), primary.Algorithm.Field(), len(entries))
		}
		for _, row := range sec.Rows {
			i, ok := index[row.Name]
			if !ok {
				return nil, errors.ForField(errors.ErrCodeInconsistentHashes, field,
					"%s is not listed in %s", row.Name, primary.Algorithm.Field())
			}
			if entries[i].Size != row.Size {
				return nil, errors.ForField(errors.ErrCodeInconsistentHashes, field,
					"size of %s is %d, %s says %d", row.Name, row.Size, primary.Algorithm.Field(), entries[i].Size)
			}
			entries[i].Digests[sec.Algorithm] = row.Checksum
		}
	}
	return entries, nil
}
