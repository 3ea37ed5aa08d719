// Package memstore provides an ephemeral, thread-safe, in-memory
// implementation of netgen.Store. It is suitable for tests, examples and
// single-process servers that don't need diagrams to outlive the process.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/meikuraledutech/netgen"
)

type dagEntry struct {
	nodes []netgen.Node
	edges []netgen.Edge
}

// Store keeps every DAG in insertion order behind a single RWMutex.
type Store struct {
	mu      sync.RWMutex
	dags    map[string]*dagEntry
	nodeDAG map[string]string // node ID → DAG ID
	edgeDAG map[string]string // edge ID → DAG ID
}

var _ netgen.Store = (*Store)(nil)

// New creates a new, empty in-memory store.
func New() *Store {
	s := &Store{}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.dags = make(map[string]*dagEntry)
	s.nodeDAG = make(map[string]string)
	s.edgeDAG = make(map[string]string)
}

// CreateSchema is a no-op; the maps exist from construction.
func (s *Store) CreateSchema(ctx context.Context) error { return nil }

// DropSchema discards every stored DAG.
func (s *Store) DropSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	return nil
}

// CreateDAG saves a full DAG, replacing any DAG with the same ID.
// Returns the DAG with all IDs filled in and refs cleared.
func (s *Store) CreateDAG(ctx context.Context, d *netgen.DAG) (*netgen.DAG, error) {
	if err := netgen.Prepare(d); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkEndpoints(d.Nodes, d.Edges); err != nil {
		return nil, err
	}
	for _, n := range d.Nodes {
		if owner, ok := s.nodeDAG[n.ID]; ok && owner != d.ID {
			return nil, fmt.Errorf("%w: node %s already belongs to dag %s", netgen.ErrDuplicateID, n.ID, owner)
		}
	}
	for _, edge := range d.Edges {
		if owner, ok := s.edgeDAG[edge.ID]; ok && owner != d.ID {
			return nil, fmt.Errorf("%w: edge %s already belongs to dag %s", netgen.ErrDuplicateID, edge.ID, owner)
		}
	}
	s.deleteLocked(d.ID)

	netgen.ClearRefs(d)
	e := &dagEntry{}
	for _, n := range d.Nodes {
		e.nodes = append(e.nodes, cloneNode(n))
		s.nodeDAG[n.ID] = d.ID
	}
	for _, edge := range d.Edges {
		e.edges = append(e.edges, edge)
		s.edgeDAG[edge.ID] = d.ID
	}
	s.dags[d.ID] = e
	return d, nil
}

// GetDAG returns nil, nil if no nodes exist for the dagID.
func (s *Store) GetDAG(ctx context.Context, dagID string) (*netgen.DAG, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.dags[dagID]
	if !ok || len(e.nodes) == 0 {
		return nil, nil
	}
	d := &netgen.DAG{ID: dagID}
	for _, n := range e.nodes {
		d.Nodes = append(d.Nodes, cloneNode(n))
	}
	d.Edges = slices.Clone(e.edges)
	return d, nil
}

// DeleteDAG removes all nodes and edges for a dagID.
func (s *Store) DeleteDAG(ctx context.Context, dagID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(dagID)
	return nil
}

func (s *Store) deleteLocked(dagID string) {
	e, ok := s.dags[dagID]
	if !ok {
		return
	}
	for _, n := range e.nodes {
		delete(s.nodeDAG, n.ID)
	}
	for _, edge := range e.edges {
		delete(s.edgeDAG, edge.ID)
	}
	delete(s.dags, dagID)
}

// AddNode appends a node to a DAG, creating the DAG if needed.
func (s *Store) AddNode(ctx context.Context, dagID string, node *netgen.Node) (string, error) {
	if node.ID == "" {
		node.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.nodeDAG[node.ID]; exists {
		return "", fmt.Errorf("netgen: insert node: %w %s", netgen.ErrDuplicateID, node.ID)
	}
	e, ok := s.dags[dagID]
	if !ok {
		e = &dagEntry{}
		s.dags[dagID] = e
	}
	n := cloneNode(*node)
	n.Ref = ""
	e.nodes = append(e.nodes, n)
	s.nodeDAG[node.ID] = dagID
	return node.ID, nil
}

// GetNode returns nil, nil if not found.
func (s *Store) GetNode(ctx context.Context, nodeID string) (*netgen.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, i, ok := s.findNode(nodeID)
	if !ok {
		return nil, nil
	}
	n := cloneNode(s.dags[s.nodeDAG[nodeID]].nodes[i])
	return &n, nil
}

// UpdateNode replaces the type, text and arguments of an existing node.
func (s *Store) UpdateNode(ctx context.Context, node *netgen.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, i, ok := s.findNode(node.ID)
	if !ok {
		return netgen.ErrNodeNotFound
	}
	n := &e.nodes[i]
	n.Type = node.Type
	n.Text = node.Text
	n.Args = slices.Clone(node.Args)
	return nil
}

// DeleteNode deletes a node and the edges touching it.
func (s *Store) DeleteNode(ctx context.Context, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, i, ok := s.findNode(nodeID)
	if !ok {
		return nil
	}
	e.nodes = slices.Delete(e.nodes, i, i+1)
	delete(s.nodeDAG, nodeID)
	e.edges = slices.DeleteFunc(e.edges, func(edge netgen.Edge) bool {
		if edge.FromNodeID == nodeID || edge.ToNodeID == nodeID {
			delete(s.edgeDAG, edge.ID)
			return true
		}
		return false
	})
	return nil
}

// ListNodes returns an empty slice (not nil) if none found.
func (s *Store) ListNodes(ctx context.Context, dagID string) ([]netgen.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes := []netgen.Node{}
	if e, ok := s.dags[dagID]; ok {
		for _, n := range e.nodes {
			nodes = append(nodes, cloneNode(n))
		}
	}
	return nodes, nil
}

// AddEdge appends an edge, rejecting edges that would create a cycle.
func (s *Store) AddEdge(ctx context.Context, dagID string, edge *netgen.Edge) (string, error) {
	if edge.ID == "" {
		edge.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.edgeDAG[edge.ID]; exists {
		return "", fmt.Errorf("netgen: insert edge: %w %s", netgen.ErrDuplicateID, edge.ID)
	}
	e, ok := s.dags[dagID]
	if !ok {
		return "", fmt.Errorf("netgen: insert edge: %w", netgen.ErrNodeNotFound)
	}
	candidate := *edge
	candidate.FromNodeRef, candidate.ToNodeRef = "", ""
	if err := s.checkEndpoints(e.nodes, []netgen.Edge{candidate}); err != nil {
		return "", err
	}
	if err := netgen.ValidateAcyclic(e.nodes, append(slices.Clone(e.edges), candidate)); err != nil {
		return "", err
	}

	e.edges = append(e.edges, candidate)
	s.edgeDAG[edge.ID] = dagID
	return edge.ID, nil
}

// GetEdge returns nil, nil if not found.
func (s *Store) GetEdge(ctx context.Context, edgeID string) (*netgen.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, i, ok := s.findEdge(edgeID)
	if !ok {
		return nil, nil
	}
	edge := e.edges[i]
	return &edge, nil
}

// UpdateEdge rewires an existing edge, rejecting updates that create a cycle.
func (s *Store) UpdateEdge(ctx context.Context, edge *netgen.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, i, ok := s.findEdge(edge.ID)
	if !ok {
		return netgen.ErrEdgeNotFound
	}
	updated := slices.Clone(e.edges)
	updated[i].FromNodeID = edge.FromNodeID
	updated[i].ToNodeID = edge.ToNodeID
	if err := s.checkEndpoints(e.nodes, updated[i:i+1]); err != nil {
		return err
	}
	if err := netgen.ValidateAcyclic(e.nodes, updated); err != nil {
		return err
	}
	e.edges = updated
	return nil
}

// DeleteEdge deletes an edge by its ID. No error if it doesn't exist.
func (s *Store) DeleteEdge(ctx context.Context, edgeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, i, ok := s.findEdge(edgeID)
	if !ok {
		return nil
	}
	e.edges = slices.Delete(e.edges, i, i+1)
	delete(s.edgeDAG, edgeID)
	return nil
}

// ListEdges returns an empty slice (not nil) if none found.
func (s *Store) ListEdges(ctx context.Context, dagID string) ([]netgen.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	edges := []netgen.Edge{}
	if e, ok := s.dags[dagID]; ok {
		edges = append(edges, e.edges...)
	}
	return edges, nil
}

func (s *Store) findNode(nodeID string) (*dagEntry, int, bool) {
	dagID, ok := s.nodeDAG[nodeID]
	if !ok {
		return nil, 0, false
	}
	e := s.dags[dagID]
	i := slices.IndexFunc(e.nodes, func(n netgen.Node) bool { return n.ID == nodeID })
	return e, i, i >= 0
}

func (s *Store) findEdge(edgeID string) (*dagEntry, int, bool) {
	dagID, ok := s.edgeDAG[edgeID]
	if !ok {
		return nil, 0, false
	}
	e := s.dags[dagID]
	i := slices.IndexFunc(e.edges, func(edge netgen.Edge) bool { return edge.ID == edgeID })
	return e, i, i >= 0
}

// checkEndpoints mirrors the foreign keys of the SQL schema: both ends of every
// edge must be one of nodes.
func (s *Store) checkEndpoints(nodes []netgen.Node, edges []netgen.Edge) error {
	known := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		known[n.ID] = struct{}{}
	}
	for _, edge := range edges {
		for _, id := range []string{edge.FromNodeID, edge.ToNodeID} {
			if _, ok := known[id]; !ok {
				return fmt.Errorf("netgen: edge %s references node %s: %w", edge.ID, id, netgen.ErrNodeNotFound)
			}
		}
	}
	return nil
}

func cloneNode(n netgen.Node) netgen.Node {
	n.Args = slices.Clone(n.Args)
	return n
}
