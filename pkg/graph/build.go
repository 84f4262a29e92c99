package graph

import (
	"fmt"
	"strings"

	"github.com/matzehuels/debsrc/pkg/relation"
	"github.com/matzehuels/debsrc/pkg/source"
)

// Build creates the graph of rec restricted to fields. With no fields, all
// relationship fields are used. Names outside source.RelationFields are
// ignored.
func Build(rec *source.Record, fields ...string) *Graph {
	if len(fields) == 0 {
		fields = source.RelationFields
	}

	b := &builder{g: &Graph{}, seen: make(map[string]bool)}
	root := SourceID(rec.Name)
	b.node(Node{ID: root, Label: rec.Name + " " + rec.Version, Kind: KindSource})

	for _, field := range fields {
		for i, alt := range rec.Relation(field) {
			if len(alt) == 1 {
				b.dependency(root, field, alt[0])
				continue
			}
			id := AlternativeID(field, i)
			b.node(Node{ID: id, Label: "|", Kind: KindAlternative})
			b.g.Edges = append(b.g.Edges, Edge{From: root, To: id, Field: field})
			for _, d := range alt {
				b.dependency(id, field, d)
			}
		}
	}
	return b.g
}

// SourceID returns the node ID of a source package.
func SourceID(name string) string { return "src:" + name }

// PackageID returns the node ID of a depended-on package.
func PackageID(name string) string { return "pkg:" + name }

// AlternativeID returns the node ID of the i-th group of field.
func AlternativeID(field string, i int) string { return fmt.Sprintf("alt:%s:%d", field, i) }

type builder struct {
	g    *Graph
	seen map[string]bool
}

func (b *builder) node(n Node) {
	if b.seen[n.ID] {
		return
	}
	b.seen[n.ID] = true
	b.g.Nodes = append(b.g.Nodes, n)
}

func (b *builder) dependency(from, field string, d relation.Dependency) {
	id := PackageID(d.Package)
	b.node(Node{ID: id, Label: d.Package, Kind: KindPackage})
	b.g.Edges = append(b.g.Edges, Edge{From: from, To: id, Field: field, Label: qualifiers(d)})
}

// qualifiers renders everything of d after the package name.
func qualifiers(d relation.Dependency) string {
	return strings.TrimSpace(strings.TrimPrefix(d.String(), d.Package))
}
