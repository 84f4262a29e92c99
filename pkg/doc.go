// Package pkg provides the core libraries of debsrc.
//
// # Overview
//
// debsrc turns Debian source control stanzas (the entries of an archive's
// Sources index, or a single .dsc) into typed source records. The pkg
// directory is organized into three areas:
//
//  1. Record core: [stanza], [ledger], [relation], [control] and [source]
//  2. Input and output: [deb822], [export], [graph] and [store]
//  3. Orchestration: [pipeline], [cache] and [observability]
//
// # Architecture
//
// The typical data flow:
//
//	Sources.xz / .dsc
//	         ↓
//	    [deb822] (decompress, split into stanzas, parse fields)
//	         ↓
//	    [ledger] (track which fields were consumed)
//	         ↓
//	    [source] (assemble a Record using [relation] and [control])
//	         ↓
//	    [export] (JSON document), [graph] (DOT/SVG), [store] (MongoDB)
//
// [pipeline] runs the flow over whole indexes on a bounded worker pool,
// with [cache] in front of the assembler.
//
// # Quick Start
//
//	st, _ := deb822.ParseStanza(text)
//	res, err := source.Assemble(st, source.Identity{Package: "hello", Version: "2.10-3"}, source.Options{})
//	if errors.Is(err, errors.ErrCodeMissingField) {
//	    // skip the record
//	}
//	fmt.Println(res.Record.Relation("Build-Depends"))
//
// Or for a whole index:
//
//	inputs, _ := pipeline.LoadInputs("Sources.xz")
//	batch, _ := pipeline.NewRunner(nil, nil, logger).Run(ctx, inputs, pipeline.Options{})
//	export.WriteJSON(batch.Documents(), os.Stdout)
//
// # Testing
//
//	go test ./pkg/...                    # All tests
//	go test -run Example ./pkg/graph     # Examples only
//	go test -tags integration ./pkg/...  # Include Redis and MongoDB tests
//
// [stanza]: https://pkg.go.dev/github.com/matzehuels/debsrc/pkg/stanza
// [ledger]: https://pkg.go.dev/github.com/matzehuels/debsrc/pkg/ledger
// [relation]: https://pkg.go.dev/github.com/matzehuels/debsrc/pkg/relation
// [control]: https://pkg.go.dev/github.com/matzehuels/debsrc/pkg/control
// [source]: https://pkg.go.dev/github.com/matzehuels/debsrc/pkg/source
// [deb822]: https://pkg.go.dev/github.com/matzehuels/debsrc/pkg/deb822
// [export]: https://pkg.go.dev/github.com/matzehuels/debsrc/pkg/export
// [graph]: https://pkg.go.dev/github.com/matzehuels/debsrc/pkg/graph
// [store]: https://pkg.go.dev/github.com/matzehuels/debsrc/pkg/store
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/debsrc/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/debsrc/pkg/cache
// [observability]: https://pkg.go.dev/github.com/matzehuels/debsrc/pkg/observability
package pkg
