package store

import (
	"context"
	"fmt"
)

// Compilation records one derived body.
type Compilation struct {
	ID          string
	Function    string
	Kind        string // body kind produced, e.g. "tuple_call"
	Engine      string
	Fingerprint string
	IR          string // IR text; stored compressed
	IRSize      int    // uncompressed size, filled on read
	Seq         int64
}

// Invocation records one call through the evaluator. Inputs and Outputs
// hold values formatted by their type's codec. A failed call has Error
// set and no outputs.
type Invocation struct {
	ID            string
	Function      string
	CompilationID string // empty for host functions called directly
	Inputs        map[string]string
	Outputs       map[string]string
	Error         string
	Seq           int64
}

// WriteCompilation inserts a compilation record into the store.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) WriteCompilation(ctx context.Context, c Compilation) error {
	blob, err := compressIR(c.IR)
	if err != nil {
		return fmt.Errorf("write compilation: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO compilations
		(id, function, kind, engine, fingerprint, ir, ir_size, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		c.ID,
		c.Function,
		c.Kind,
		c.Engine,
		c.Fingerprint,
		blob,
		len(c.IR),
		c.Seq,
	)
	if err != nil {
		return fmt.Errorf("write compilation: %w", err)
	}
	return nil
}

// WriteInvocation inserts an invocation record into the store.
// Uses ON CONFLICT(id) DO NOTHING for idempotency.
//
// Note: a non-empty CompilationID must reference an existing compilation
// (foreign key constraint).
func (s *Store) WriteInvocation(ctx context.Context, inv Invocation) error {
	inputs, err := marshalValues(inv.Inputs)
	if err != nil {
		return fmt.Errorf("write invocation: %w", err)
	}
	outputs, err := marshalValues(inv.Outputs)
	if err != nil {
		return fmt.Errorf("write invocation: %w", err)
	}

	var compilationID any
	if inv.CompilationID != "" {
		compilationID = inv.CompilationID
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO invocations
		(id, function, compilation_id, inputs, outputs, error, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		inv.ID,
		inv.Function,
		compilationID,
		inputs,
		outputs,
		inv.Error,
		inv.Seq,
	)
	if err != nil {
		return fmt.Errorf("write invocation: %w", err)
	}
	return nil
}
