package postgres

import (
	"context"
	"fmt"

	"github.com/meikuraledutech/netgen"
)

// CreateDAG saves a full DAG (nodes + edges) in one transaction, replacing any
// DAG stored under the same ID. IDs and refs are resolved by netgen.Prepare.
// Returns the DAG with all IDs filled in.
func (s *PGStore) CreateDAG(ctx context.Context, d *netgen.DAG) (*netgen.DAG, error) {
	if err := netgen.Prepare(d); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("netgen: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Delete existing DAG data if any (replace semantics).
	if _, err := tx.Exec(ctx, `DELETE FROM dag_edges WHERE dag_id = $1`, d.ID); err != nil {
		return nil, fmt.Errorf("netgen: delete edges: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM dag_nodes WHERE dag_id = $1`, d.ID); err != nil {
		return nil, fmt.Errorf("netgen: delete nodes: %w", err)
	}

	// Rows are inserted one by one so position follows slice order.
	for _, n := range d.Nodes {
		args, err := encodeArgs(n.Args)
		if err != nil {
			return nil, err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO dag_nodes (id, dag_id, type, text, args) VALUES ($1, $2, $3, $4, $5)`,
			n.ID, d.ID, n.Type, n.Text, args,
		); err != nil {
			return nil, writeError("insert node "+n.ID, err)
		}
	}

	for _, e := range d.Edges {
		if _, err := tx.Exec(ctx,
			`INSERT INTO dag_edges (id, dag_id, from_node_id, to_node_id) VALUES ($1, $2, $3, $4)`,
			e.ID, d.ID, e.FromNodeID, e.ToNodeID,
		); err != nil {
			return nil, writeError("insert edge "+e.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("netgen: commit: %w", err)
	}

	netgen.ClearRefs(d)
	return d, nil
}

// GetDAG retrieves a full DAG (nodes + edges) by its ID.
// Returns nil, nil if no nodes exist for the dagID.
func (s *PGStore) GetDAG(ctx context.Context, dagID string) (*netgen.DAG, error) {
	nodes, err := s.ListNodes(ctx, dagID)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}

	edges, err := s.ListEdges(ctx, dagID)
	if err != nil {
		return nil, err
	}

	return &netgen.DAG{ID: dagID, Nodes: nodes, Edges: edges}, nil
}

// DeleteDAG removes all nodes and edges for a dagID.
// No error if the dagID doesn't exist.
func (s *PGStore) DeleteDAG(ctx context.Context, dagID string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("netgen: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM dag_edges WHERE dag_id = $1`, dagID); err != nil {
		return fmt.Errorf("netgen: delete edges: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM dag_nodes WHERE dag_id = $1`, dagID); err != nil {
		return fmt.Errorf("netgen: delete nodes: %w", err)
	}

	return tx.Commit(ctx)
}
