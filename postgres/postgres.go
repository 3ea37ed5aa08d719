// Package postgres implements netgen.Store on PostgreSQL via pgx.
package postgres

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/netgen"
)

// PGStore implements netgen.Store using PostgreSQL via pgx.
type PGStore struct {
	db *pgxpool.Pool
}

var _ netgen.Store = (*PGStore)(nil)

// New creates a new PGStore backed by the given pgx connection pool.
func New(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// isNoRows checks if the error is pgx's "no rows" error.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// SQLSTATE codes mapped to store sentinels.
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// writeError reports a unique violation as netgen.ErrDuplicateID and a
// foreign-key violation on dag_edges as netgen.ErrNodeNotFound.
func writeError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return fmt.Errorf("netgen: %s: %w (%s)", op, netgen.ErrDuplicateID, pgErr.Detail)
		case foreignKeyViolation:
			return fmt.Errorf("netgen: %s: %w (%s)", op, netgen.ErrNodeNotFound, pgErr.Detail)
		}
	}
	return fmt.Errorf("netgen: %s: %w", op, err)
}

func encodeArgs(args []netgen.Arg) ([]byte, error) {
	if args == nil {
		args = []netgen.Arg{}
	}
	b, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("netgen: encode args: %w", err)
	}
	return b, nil
}

func decodeArgs(raw []byte) ([]netgen.Arg, error) {
	var args []netgen.Arg
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("netgen: decode args: %w", err)
	}
	if len(args) == 0 {
		return nil, nil
	}
	return args, nil
}

// scanNode reads a row of (id, type, text, args).
func scanNode(row pgx.Row) (netgen.Node, error) {
	var (
		n   netgen.Node
		raw []byte
	)
	if err := row.Scan(&n.ID, &n.Type, &n.Text, &raw); err != nil {
		return n, err
	}
	args, err := decodeArgs(raw)
	if err != nil {
		return n, err
	}
	n.Args = args
	return n, nil
}
