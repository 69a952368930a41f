// Package sqlgraph evaluates query language predicates over a graph of
// SQL tables. Nodes are tables, edges are foreign keys or join tables.
package sqlgraph

import (
	"fmt"

	"github.com/syssam/quarry/schema/field"
)

// Rel is an edge relation type.
type Rel int

// Relation types.
const (
	Unk Rel = iota // Unknown.
	O2O            // One to one / has one.
	O2M            // One to many / has many.
	M2O            // Many to one (inverse perspective for O2M).
	M2M            // Many to many.
)

// String returns the relation name.
func (r Rel) String() (s string) {
	switch r {
	case O2O:
		s = "O2O"
	case O2M:
		s = "O2M"
	case M2O:
		s = "M2O"
	case M2M:
		s = "M2M"
	default:
		s = "Unknown"
	}
	return s
}

type (
	// FieldSpec holds the information for updating a field
	// column in the database.
	FieldSpec struct {
		Column string
		Type   field.Type
	}

	// NodeSpec defines the information for querying and
	// decoding nodes in the graph.
	NodeSpec struct {
		Table   string
		Columns []string
		// ID is the primary key of single-column tables.
		ID *FieldSpec
		// CompositeID holds the primary key columns of
		// tables keyed by more than one column.
		CompositeID []*FieldSpec
	}

	// EdgeSpec holds the information for updating a field
	// column in the database.
	//
	// For O2O, O2M and M2O edges, Table is the table that holds the
	// foreign key and Columns are the foreign key columns. RefColumns are
	// the referenced columns on the other side and default to its
	// primary key.
	//
	// For M2M edges, Table is the join table and Columns holds two
	// columns: the one referencing the owner side first and the one
	// referencing the inverse side second.
	EdgeSpec struct {
		Rel        Rel
		Inverse    bool
		Table      string
		Columns    []string
		RefColumns []string
	}

	// Node in the graph.
	Node struct {
		NodeSpec

		// Type holds the node type (model name).
		Type string
		// Fields maps from field names to their spec.
		Fields map[string]*FieldSpec
		// Edges maps from edge names to their spec.
		Edges map[string]struct {
			To   *Node
			Spec *EdgeSpec
		}
	}

	// Schema holds a representation of the graph schema.
	Schema struct {
		Nodes []*Node
	}
)

// IDColumns returns the primary key columns of the node.
func (n *NodeSpec) IDColumns() []string {
	if n.ID != nil {
		return []string{n.ID.Column}
	}
	columns := make([]string, len(n.CompositeID))
	for i, f := range n.CompositeID {
		columns[i] = f.Column
	}
	return columns
}

// column returns the column of the given field name. The primary key
// column can be referenced by its own name.
func (n *Node) column(name string) (string, error) {
	if f, ok := n.Fields[name]; ok {
		return f.Column, nil
	}
	for _, c := range n.IDColumns() {
		if c == name {
			return c, nil
		}
	}
	return "", fmt.Errorf("sqlgraph: field %q was not found for node %q", name, n.Type)
}

// Node returns the node with the given type.
func (g *Schema) Node(typ string) (*Node, error) {
	for _, n := range g.Nodes {
		if n.Type == typ {
			return n, nil
		}
	}
	return nil, fmt.Errorf("sqlgraph: node %q was not found in the graph schema", typ)
}

// AddE adds an edge to the graph. It fails, if one of the node
// types is missing.
//
//	g.AddE("pets", spec, "user", "pet")
//	g.AddE("friends", spec, "user", "user")
func (g *Schema) AddE(name string, spec *EdgeSpec, from, to string) error {
	var fromT, toT *Node
	for i := range g.Nodes {
		t := g.Nodes[i].Type
		if t == from {
			fromT = g.Nodes[i]
		}
		if t == to {
			toT = g.Nodes[i]
		}
	}
	if fromT == nil || toT == nil {
		return fmt.Errorf("from/to type was not found")
	}
	if fromT.Edges == nil {
		fromT.Edges = make(map[string]struct {
			To   *Node
			Spec *EdgeSpec
		})
	}
	fromT.Edges[name] = struct {
		To   *Node
		Spec *EdgeSpec
	}{
		To:   toT,
		Spec: spec,
	}
	return nil
}

// refColumns returns the columns an edge's foreign key references on n.
func (e *EdgeSpec) refColumns(n *Node) []string {
	if len(e.RefColumns) > 0 {
		return e.RefColumns
	}
	return n.IDColumns()
}
