package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ReadCompilation returns a compilation with its decompressed IR.
func (s *Store) ReadCompilation(ctx context.Context, id string) (Compilation, error) {
	var (
		c    Compilation
		blob []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, function, kind, engine, fingerprint, ir, ir_size, seq
		FROM compilations
		WHERE id = ?
	`, id).Scan(&c.ID, &c.Function, &c.Kind, &c.Engine, &c.Fingerprint, &blob, &c.IRSize, &c.Seq)
	if errors.Is(err, sql.ErrNoRows) {
		return Compilation{}, fmt.Errorf("compilation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Compilation{}, fmt.Errorf("read compilation %s: %w", id, err)
	}

	c.IR, err = decompressIR(blob)
	if err != nil {
		return Compilation{}, fmt.Errorf("read compilation %s: %w", id, err)
	}
	return c, nil
}

// ListCompilations returns compilation metadata, without IR text, for one
// function or for all functions when function is empty.
// Results are ordered by seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if no records exist.
func (s *Store) ListCompilations(ctx context.Context, function string) ([]Compilation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, function, kind, engine, fingerprint, ir_size, seq
		FROM compilations
		WHERE ? = '' OR function = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, function, function)
	if err != nil {
		return nil, fmt.Errorf("query compilations: %w", err)
	}
	defer rows.Close()

	compilations := []Compilation{}
	for rows.Next() {
		var c Compilation
		if err := rows.Scan(&c.ID, &c.Function, &c.Kind, &c.Engine, &c.Fingerprint, &c.IRSize, &c.Seq); err != nil {
			return nil, fmt.Errorf("scan compilation: %w", err)
		}
		compilations = append(compilations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate compilations: %w", err)
	}
	return compilations, nil
}

// ReadInvocation returns a single invocation.
func (s *Store) ReadInvocation(ctx context.Context, id string) (Invocation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, function, compilation_id, inputs, outputs, error, seq
		FROM invocations
		WHERE id = ?
	`, id)
	inv, err := scanInvocation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Invocation{}, fmt.Errorf("invocation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Invocation{}, fmt.Errorf("read invocation %s: %w", id, err)
	}
	return inv, nil
}

// ListInvocations returns the most recent limit invocations of function
// (all functions when empty), oldest first. A limit <= 0 returns all.
func (s *Store) ListInvocations(ctx context.Context, function string, limit int) ([]Invocation, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, function, compilation_id, inputs, outputs, error, seq FROM (
			SELECT id, function, compilation_id, inputs, outputs, error, seq
			FROM invocations
			WHERE ? = '' OR function = ?
			ORDER BY seq DESC, id COLLATE BINARY DESC
			LIMIT ?
		)
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, function, function, limit)
	if err != nil {
		return nil, fmt.Errorf("query invocations: %w", err)
	}
	defer rows.Close()

	invocations := []Invocation{}
	for rows.Next() {
		inv, err := scanInvocation(rows)
		if err != nil {
			return nil, err
		}
		invocations = append(invocations, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invocations: %w", err)
	}
	return invocations, nil
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanInvocation(row scanner) (Invocation, error) {
	var (
		inv           Invocation
		compilationID sql.NullString
		inputs        string
		outputs       string
	)
	if err := row.Scan(&inv.ID, &inv.Function, &compilationID, &inputs, &outputs, &inv.Error, &inv.Seq); err != nil {
		return Invocation{}, err
	}
	inv.CompilationID = compilationID.String

	var err error
	if inv.Inputs, err = unmarshalValues(inputs); err != nil {
		return Invocation{}, fmt.Errorf("invocation %s inputs: %w", inv.ID, err)
	}
	if inv.Outputs, err = unmarshalValues(outputs); err != nil {
		return Invocation{}, fmt.Errorf("invocation %s outputs: %w", inv.ID, err)
	}
	return inv, nil
}

// MaxSeq returns the highest seq in the log, or 0 for an empty log. The
// evaluator resumes its clock from here.
func (s *Store) MaxSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(seq) FROM (
			SELECT seq FROM compilations
			UNION ALL
			SELECT seq FROM invocations
		)
	`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("max seq: %w", err)
	}
	return seq.Int64, nil
}

// Stats summarizes the log.
type Stats struct {
	Compilations  int
	Invocations   int
	Failures      int
	IRBytes       int64 // uncompressed
	IRStoredBytes int64 // compressed
}

// Stats returns record counts and IR storage sizes.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(ir_size), 0), COALESCE(SUM(LENGTH(ir)), 0)
		FROM compilations
	`).Scan(&st.Compilations, &st.IRBytes, &st.IRStoredBytes)
	if err != nil {
		return Stats{}, fmt.Errorf("compilation stats: %w", err)
	}
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN error != '' THEN 1 ELSE 0 END), 0)
		FROM invocations
	`).Scan(&st.Invocations, &st.Failures)
	if err != nil {
		return Stats{}, fmt.Errorf("invocation stats: %w", err)
	}
	return st, nil
}
