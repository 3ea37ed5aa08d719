package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/meikuraledutech/netgen"
)

// AddNode inserts a single node into a DAG.
// If node.ID is empty, a UUID is auto-generated.
// Returns the node ID (generated or provided).
func (s *PGStore) AddNode(ctx context.Context, dagID string, node *netgen.Node) (string, error) {
	if node.ID == "" {
		node.ID = uuid.NewString()
	}
	args, err := encodeArgs(node.Args)
	if err != nil {
		return "", err
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO dag_nodes (id, dag_id, type, text, args) VALUES ($1, $2, $3, $4, $5)`,
		node.ID, dagID, node.Type, node.Text, args,
	)
	if err != nil {
		return "", writeError("insert node", err)
	}

	return node.ID, nil
}

// GetNode fetches a single node by its ID.
// Returns nil, nil if not found.
func (s *PGStore) GetNode(ctx context.Context, nodeID string) (*netgen.Node, error) {
	n, err := scanNode(s.db.QueryRow(ctx,
		`SELECT id, type, text, args FROM dag_nodes WHERE id = $1`, nodeID,
	))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("netgen: get node: %w", err)
	}

	return &n, nil
}

// UpdateNode updates the type, text and args of an existing node.
// Returns ErrNodeNotFound if the node doesn't exist.
func (s *PGStore) UpdateNode(ctx context.Context, node *netgen.Node) error {
	args, err := encodeArgs(node.Args)
	if err != nil {
		return err
	}
	ct, err := s.db.Exec(ctx,
		`UPDATE dag_nodes SET type = $1, text = $2, args = $3 WHERE id = $4`,
		node.Type, node.Text, args, node.ID,
	)
	if err != nil {
		return fmt.Errorf("netgen: update node: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return netgen.ErrNodeNotFound
	}
	return nil
}

// DeleteNode deletes a node by its ID.
// Associated edges are cascade-deleted by the DB.
// No error if the node doesn't exist.
func (s *PGStore) DeleteNode(ctx context.Context, nodeID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM dag_nodes WHERE id = $1`, nodeID)
	if err != nil {
		return fmt.Errorf("netgen: delete node: %w", err)
	}
	return nil
}

// ListNodes returns all nodes for a dagID in insertion order.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) ListNodes(ctx context.Context, dagID string) ([]netgen.Node, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, type, text, args FROM dag_nodes WHERE dag_id = $1 ORDER BY position`, dagID)
	if err != nil {
		return nil, fmt.Errorf("netgen: list nodes: %w", err)
	}
	defer rows.Close()

	nodes := []netgen.Node{}
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("netgen: scan node: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("netgen: rows nodes: %w", err)
	}

	return nodes, nil
}
