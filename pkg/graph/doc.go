// Package graph draws the build relationships of a source record as a
// node-link diagram.
//
// # Model
//
// [Build] turns a [source.Record] into a [Graph]:
//
//   - one "source" node for the record itself
//   - one "package" node per distinct package named in the selected fields
//   - one "alternative" node per group that offers more than one package
//
// Single-package groups link the source straight to the package. A group
// with alternatives links the source to its alternative node, which links
// to each choice. Every edge carries the relationship field it came from
// and, when the dependency has qualifiers, their canonical text
// ("(>= 2.36) [linux-any]").
//
// # Rendering
//
// [ToDOT] produces Graphviz DOT with deterministic node and edge order.
// [RenderSVG] renders DOT to SVG through go-graphviz, which bundles Graphviz
// as WebAssembly and needs no system installation.
//
//	g := graph.Build(rec, "Build-Depends", "Build-Depends-Indep")
//	svg, err := graph.RenderSVG(graph.ToDOT(g, graph.Options{Detailed: true}))
//
// [source.Record]: github.com/matzehuels/debsrc/pkg/source.Record
package graph
