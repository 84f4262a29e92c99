// Package export provides the structured wire format for assembled source
// records.
//
// # Overview
//
// A [Document] is the serialization form of a [source.Result]. It is used
// for the CLI's JSON output, the HTTP API, the parse cache and the MongoDB
// store, so every consumer sees the same shape.
//
// The format is designed for round-trip fidelity:
//
//	doc := export.FromResult(res)
//	back, err := doc.Result() // back is equal to res
//
// # Encoding
//
// Closed vocabularies are written as their canonical strings:
//
//   - priority: "required", "important", ..., "unknown"
//   - format: "1.0", "3.0 (native)", "3.0 (quilt)", "3.0 (git)"
//   - file digests: keyed by "MD5", "SHA1", "SHA256", "SHA512"
//   - vcs: system "Git", "Browser", ...; kind "Vcs", "Orig", "Debian", "Upstream"
//   - constraint operators: "<<", "<=", "=", ">=", ">>"
//
// Relationship fields are structured (alternatives of dependencies) and
// also carry their canonical text for readability:
//
//	{
//	  "field": "Build-Depends",
//	  "text": "debhelper-compat (= 13), libc6-dev | libc-dev",
//	  "alternatives": [[{"package": "debhelper-compat", ...}], ...]
//	}
//
// # Containers
//
// [WriteJSON] and [ReadJSON] handle a JSON array of documents.
// [JSONLinesSink] streams one document per line and [ReadJSONLines] reads
// such a stream back.
//
// [source.Result]: github.com/matzehuels/debsrc/pkg/source.Result
package export
