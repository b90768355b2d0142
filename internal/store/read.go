package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/capsule/internal/graph"
)

// Entry summarizes one stored graph.
type Entry struct {
	ID      string   `json:"id" yaml:"id"`
	Root    int      `json:"root" yaml:"root"`
	Records int      `json:"records" yaml:"records"`
	Seq     int64    `json:"seq" yaml:"seq"`
	Labels  []string `json:"labels" yaml:"labels"`
}

// Get loads the graph stored under id. Returns ErrNotFound if absent.
func (s *Store) Get(ctx context.Context, id string) (*graph.Graph, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM graphs WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("graph %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get graph %s: %w", id, err)
	}

	g, err := graph.Parse([]byte(payload))
	if err != nil {
		return nil, fmt.Errorf("get graph %s: %w", id, err)
	}
	return g, nil
}

// Resolve turns a graph ID or a label into a graph ID. IDs take
// precedence over labels. Returns ErrNotFound if ref is neither.
func (s *Store) Resolve(ctx context.Context, ref string) (string, error) {
	ok, err := s.has(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", ref, err)
	}
	if ok {
		return ref, nil
	}

	var id string
	err = s.db.QueryRowContext(ctx, `SELECT graph_id FROM labels WHERE name = ?`, ref).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("resolve %q: %w", ref, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", ref, err)
	}
	return id, nil
}

// Load resolves ref and loads the graph it names.
func (s *Store) Load(ctx context.Context, ref string) (string, *graph.Graph, error) {
	id, err := s.Resolve(ctx, ref)
	if err != nil {
		return "", nil, err
	}
	g, err := s.Get(ctx, id)
	if err != nil {
		return "", nil, err
	}
	return id, g, nil
}

// List returns every stored graph with its labels.
// Ordered by seq ASC, id ASC COLLATE BINARY; labels within an entry by
// seq ASC, name ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, root, records, seq
		FROM graphs
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query graphs: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	index := make(map[string]int)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Root, &e.Records, &e.Seq); err != nil {
			return nil, fmt.Errorf("scan graph: %w", err)
		}
		e.Labels = []string{}
		index[e.ID] = len(entries)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate graphs: %w", err)
	}
	// The store runs on a single connection; release it before the next query.
	rows.Close()

	labels, err := s.db.QueryContext(ctx, `
		SELECT name, graph_id
		FROM labels
		ORDER BY seq ASC, name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query labels: %w", err)
	}
	defer labels.Close()

	for labels.Next() {
		var name, id string
		if err := labels.Scan(&name, &id); err != nil {
			return nil, fmt.Errorf("scan label: %w", err)
		}
		if i, ok := index[id]; ok {
			entries[i].Labels = append(entries[i].Labels, name)
		}
	}
	if err := labels.Err(); err != nil {
		return nil, fmt.Errorf("iterate labels: %w", err)
	}

	return entries, nil
}

// has reports whether a graph with the given ID is stored.
func (s *Store) has(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM graphs WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
