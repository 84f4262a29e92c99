// Package control parses the multi-valued fields of a Debian source control
// stanza: package lists, checksum tables, VCS references, maintainer
// identities, and the closed vocabularies for priority and source format.
//
// # Package lists
//
// [ParsePackageList] reads the Package-List field, one binary per line:
//
//	hello deb devel optional arch=any
//	hello-doc deb doc optional arch=all profile=!nodoc
//
// Columns are name, style, section and priority. Anything after the fourth
// column is kept verbatim in [Binary.Extras]. The older comma-separated
// Binary field is handled by [ParseBinaryNames].
//
// # File tables
//
// Files, Checksums-Sha1, Checksums-Sha256 and Checksums-Sha512 each list
// "checksum size filename" triples. [ParseFileTable] reads one table and
// [MergeFileTables] joins them by filename into [FileEntry] values. The
// tables must agree on the set of filenames and on each file's size.
//
// # Enumerations
//
// [Priority], [Format], [HashAlgorithm], [VcsSystem] and [VcsKind] are
// closed. Each has a single name table whose length is checked against the
// enumeration at compile time. Unknown strings fail with
// UNRECOGNIZED_ENUM_VALUE.
package control
