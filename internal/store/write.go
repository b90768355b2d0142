package store

import (
	"context"
	"fmt"

	"github.com/roach88/capsule/internal/graph"
)

// Put stores g under its content ID and returns that ID.
// Uses ON CONFLICT(id) DO NOTHING for idempotency: inserted is false when
// the graph was already stored, and the existing row keeps its seq.
func (s *Store) Put(ctx context.Context, g *graph.Graph) (id string, inserted bool, err error) {
	id, err = graph.ID(g)
	if err != nil {
		return "", false, fmt.Errorf("put graph: %w", err)
	}
	payload, err := graph.Marshal(g)
	if err != nil {
		return "", false, fmt.Errorf("put graph: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO graphs (id, root, records, payload, seq)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		id,
		g.Root,
		g.Len(),
		string(payload),
		s.clock.Next(),
	)
	if err != nil {
		return "", false, fmt.Errorf("put graph: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("put graph: %w", err)
	}
	return id, n == 1, nil
}

// Label points name at the graph with the given ID, moving the label if
// it already exists. Returns ErrNotFound if no such graph is stored.
func (s *Store) Label(ctx context.Context, name, id string) error {
	if name == "" {
		return fmt.Errorf("label: name is required")
	}

	ok, err := s.has(ctx, id)
	if err != nil {
		return fmt.Errorf("label %q: %w", name, err)
	}
	if !ok {
		return fmt.Errorf("label %q: graph %s: %w", name, id, ErrNotFound)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO labels (name, graph_id, seq)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET graph_id = excluded.graph_id, seq = excluded.seq
	`, name, id, s.clock.Next())
	if err != nil {
		return fmt.Errorf("label %q: %w", name, err)
	}
	return nil
}

// Delete removes the graph with the given ID together with every label
// pointing at it, and returns the removed labels in name order.
// Returns ErrNotFound if no such graph is stored.
func (s *Store) Delete(ctx context.Context, id string) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("delete graph %s: %w", id, err)
	}
	defer tx.Rollback() // No-op if committed

	rows, err := tx.QueryContext(ctx, `SELECT name FROM labels WHERE graph_id = ? ORDER BY name ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("delete graph %s: %w", id, err)
	}
	labels := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("delete graph %s: %w", id, err)
		}
		labels = append(labels, name)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("delete graph %s: %w", id, err)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("delete graph %s: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM labels WHERE graph_id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete graph %s: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM graphs WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("delete graph %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("delete graph %s: %w", id, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("delete graph %s: %w", id, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("delete graph %s: %w", id, err)
	}
	return labels, nil
}
