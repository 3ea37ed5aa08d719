package postgres

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meikuraledutech/netgen"
)

// checkAcyclic loads the nodes and edges of dagID, lets rewire change the
// edge list, and rejects the result if it has a cycle.
func (s *PGStore) checkAcyclic(ctx context.Context, dagID string, rewire func([]netgen.Edge) []netgen.Edge) error {
	nodes, err := s.ListNodes(ctx, dagID)
	if err != nil {
		return err
	}
	edges, err := s.ListEdges(ctx, dagID)
	if err != nil {
		return err
	}
	return netgen.ValidateAcyclic(nodes, rewire(edges))
}

// AddEdge appends an edge to dagID, generating an ID when it has none.
func (s *PGStore) AddEdge(ctx context.Context, dagID string, edge *netgen.Edge) (string, error) {
	if edge.ID == "" {
		edge.ID = uuid.NewString()
	}
	err := s.checkAcyclic(ctx, dagID, func(edges []netgen.Edge) []netgen.Edge {
		return append(edges, *edge)
	})
	if err != nil {
		return "", err
	}

	if _, err := s.db.Exec(ctx,
		`INSERT INTO dag_edges (id, dag_id, from_node_id, to_node_id) VALUES ($1, $2, $3, $4)`,
		edge.ID, dagID, edge.FromNodeID, edge.ToNodeID,
	); err != nil {
		return "", writeError("insert edge", err)
	}
	return edge.ID, nil
}

// GetEdge returns nil, nil if not found.
func (s *PGStore) GetEdge(ctx context.Context, edgeID string) (*netgen.Edge, error) {
	e, err := scanEdge(s.db.QueryRow(ctx,
		`SELECT id, from_node_id, to_node_id FROM dag_edges WHERE id = $1`, edgeID))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("netgen: get edge: %w", err)
	}
	return &e, nil
}

// UpdateEdge rewires an existing edge in place. Its position is kept.
func (s *PGStore) UpdateEdge(ctx context.Context, edge *netgen.Edge) error {
	var dagID string
	err := s.db.QueryRow(ctx, `SELECT dag_id FROM dag_edges WHERE id = $1`, edge.ID).Scan(&dagID)
	if isNoRows(err) {
		return netgen.ErrEdgeNotFound
	}
	if err != nil {
		return fmt.Errorf("netgen: find edge: %w", err)
	}

	err = s.checkAcyclic(ctx, dagID, func(edges []netgen.Edge) []netgen.Edge {
		i := slices.IndexFunc(edges, func(e netgen.Edge) bool { return e.ID == edge.ID })
		if i >= 0 {
			edges[i].FromNodeID, edges[i].ToNodeID = edge.FromNodeID, edge.ToNodeID
		}
		return edges
	})
	if err != nil {
		return err
	}

	ct, err := s.db.Exec(ctx,
		`UPDATE dag_edges SET from_node_id = $1, to_node_id = $2 WHERE id = $3`,
		edge.FromNodeID, edge.ToNodeID, edge.ID,
	)
	if err != nil {
		return writeError("update edge", err)
	}
	if ct.RowsAffected() == 0 {
		return netgen.ErrEdgeNotFound
	}
	return nil
}

// DeleteEdge deletes an edge by its ID.
// No error if the edge doesn't exist.
func (s *PGStore) DeleteEdge(ctx context.Context, edgeID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM dag_edges WHERE id = $1`, edgeID)
	if err != nil {
		return fmt.Errorf("netgen: delete edge: %w", err)
	}
	return nil
}

// ListEdges returns the edges of dagID in insertion order, or an empty slice.
func (s *PGStore) ListEdges(ctx context.Context, dagID string) ([]netgen.Edge, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, from_node_id, to_node_id FROM dag_edges WHERE dag_id = $1 ORDER BY position`, dagID)
	if err != nil {
		return nil, fmt.Errorf("netgen: list edges: %w", err)
	}
	edges, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (netgen.Edge, error) {
		return scanEdge(row)
	})
	if err != nil {
		return nil, fmt.Errorf("netgen: scan edges: %w", err)
	}
	if edges == nil {
		edges = []netgen.Edge{}
	}
	return edges, nil
}

// scanEdge reads a row of (id, from_node_id, to_node_id).
func scanEdge(row pgx.Row) (netgen.Edge, error) {
	var e netgen.Edge
	err := row.Scan(&e.ID, &e.FromNodeID, &e.ToNodeID)
	return e, err
}
