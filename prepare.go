package netgen

import (
	"fmt"

	"github.com/google/uuid"
)

// Prepare readies a DAG for persistence.
// Nodes/edges without IDs get auto-generated UUIDs.
// Edge refs (FromNodeRef/ToNodeRef) are resolved to real node IDs.
// The resulting edge set must be acyclic.
func Prepare(d *DAG) error {
	// Build ref → ID mapping and assign IDs to nodes.
	refMap := make(map[string]string)
	for i := range d.Nodes {
		n := &d.Nodes[i]
		if n.ID == "" {
			n.ID = uuid.NewString()
		}
		if n.Ref != "" {
			refMap[n.Ref] = n.ID
		}
	}

	// Resolve edge refs and assign IDs to edges.
	for i := range d.Edges {
		e := &d.Edges[i]
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.FromNodeRef != "" {
			id, ok := refMap[e.FromNodeRef]
			if !ok {
				return fmt.Errorf("%w: from_node_ref %q", ErrUnknownRef, e.FromNodeRef)
			}
			e.FromNodeID = id
		}
		if e.ToNodeRef != "" {
			id, ok := refMap[e.ToNodeRef]
			if !ok {
				return fmt.Errorf("%w: to_node_ref %q", ErrUnknownRef, e.ToNodeRef)
			}
			e.ToNodeID = id
		}
	}

	return ValidateAcyclic(d.Nodes, d.Edges)
}

// ClearRefs drops the ref fields, which are never persisted.
func ClearRefs(d *DAG) {
	for i := range d.Nodes {
		d.Nodes[i].Ref = ""
	}
	for i := range d.Edges {
		d.Edges[i].FromNodeRef = ""
		d.Edges[i].ToNodeRef = ""
	}
}

// ValidateAcyclic reports ErrCycleDetected when the edges form a cycle.
// Endpoints missing from nodes still count as vertices.
func ValidateAcyclic(nodes []Node, edges []Edge) error {
	indeg := make(map[string]int, len(nodes))
	for _, n := range nodes {
		indeg[n.ID] = 0
	}
	out := make(map[string][]string)
	for _, e := range edges {
		if _, ok := indeg[e.FromNodeID]; !ok {
			indeg[e.FromNodeID] = 0
		}
		indeg[e.ToNodeID]++
		out[e.FromNodeID] = append(out[e.FromNodeID], e.ToNodeID)
	}

	var ready []string
	for id, d := range indeg {
		if d == 0 {
			ready = append(ready, id)
		}
	}
	removed := 0
	for len(ready) > 0 {
		id := ready[len(ready)-1]
		ready = ready[:len(ready)-1]
		removed++
		for _, next := range out[id] {
			if indeg[next]--; indeg[next] == 0 {
				ready = append(ready, next)
			}
		}
	}
	if removed < len(indeg) {
		return ErrCycleDetected
	}
	return nil
}
