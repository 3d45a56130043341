// Package postgrestest provides a scripted in-memory stand-in for the pgx
// pool so service transactions can run without a database. Queries are
// answered by substring match; writes are staged per transaction and only
// land in the committed log when the transaction commits.
package postgrestest

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// RowSet answers every query whose SQL contains Match. Rows are scanned in
// order; a non-nil Err is returned from Scan instead.
type RowSet struct {
	Match string
	Rows  [][]any
	Err   error
}

// Exec records one write: the SQL text and its arguments.
type Exec struct {
	SQL  string
	Args []any
}

// Pool implements the store's Pool interface over scripted responses.
type Pool struct {
	mu        sync.Mutex
	rowSets   []RowSet
	staged    []Exec
	committed []Exec
}

func NewPool(rowSets ...RowSet) *Pool {
	return &Pool{rowSets: rowSets}
}

// Committed returns the writes of committed transactions plus any writes
// issued outside a transaction.
func (p *Pool) Committed() []Exec {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Exec, len(p.committed))
	copy(out, p.committed)
	return out
}

// CommittedMatching filters the committed log by SQL substring.
func (p *Pool) CommittedMatching(substr string) []Exec {
	var out []Exec
	for _, e := range p.Committed() {
		if strings.Contains(e.SQL, substr) {
			out = append(out, e)
		}
	}
	return out
}

func (p *Pool) lookup(sql string) (RowSet, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, rs := range p.rowSets {
		if strings.Contains(sql, rs.Match) {
			return rs, true
		}
	}
	return RowSet{}, false
}

func (p *Pool) record(sql string, args []any, inTx bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e := Exec{SQL: sql, Args: args}
	if inTx {
		p.staged = append(p.staged, e)
	} else {
		p.committed = append(p.committed, e)
	}
}

func (p *Pool) exec(ctx context.Context, sql string, args []any, inTx bool) (pgconn.CommandTag, error) {
	if rs, ok := p.lookup(sql); ok && rs.Err != nil {
		return pgconn.CommandTag{}, rs.Err
	}

	p.record(sql, args, inTx)
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (p *Pool) query(sql string) (pgx.Rows, error) {
	rs, ok := p.lookup(sql)
	if !ok {
		return &rows{}, nil
	}
	if rs.Err != nil {
		return nil, rs.Err
	}
	return &rows{data: rs.Rows}, nil
}

func (p *Pool) queryRow(sql string, args []any, inTx bool) pgx.Row {
	rs, ok := p.lookup(sql)
	switch {
	case !ok || (rs.Err == nil && len(rs.Rows) == 0):
		return row{err: pgx.ErrNoRows}
	case rs.Err != nil:
		return row{err: rs.Err}
	}

	// RETURNING inserts both answer and write.
	if strings.HasPrefix(strings.TrimSpace(sql), "INSERT") {
		p.record(sql, args, inTx)
	}

	return row{vals: rs.Rows[0]}
}

func (p *Pool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return p.exec(ctx, sql, args, false)
}

func (p *Pool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return p.query(sql)
}

func (p *Pool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return p.queryRow(sql, args, false)
}

func (p *Pool) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	for _, q := range b.QueuedQueries {
		p.record(q.SQL, q.Arguments, false)
	}
	return &batchResults{n: b.Len()}
}

func (p *Pool) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) {
	return &fakeTx{pool: p}, nil
}

// fakeTx stages writes until Commit. The embedded interface covers the
// pgx.Tx methods the store never calls.
type fakeTx struct {
	pgx.Tx
	pool *Pool
	done bool
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.pool.exec(ctx, sql, args, true)
}

func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return t.pool.query(sql)
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.pool.queryRow(sql, args, true)
}

func (t *fakeTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	for _, q := range b.QueuedQueries {
		t.pool.record(q.SQL, q.Arguments, true)
	}
	return &batchResults{n: b.Len()}
}

func (t *fakeTx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true

	t.pool.mu.Lock()
	defer t.pool.mu.Unlock()
	t.pool.committed = append(t.pool.committed, t.pool.staged...)
	t.pool.staged = nil
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true

	t.pool.mu.Lock()
	defer t.pool.mu.Unlock()
	t.pool.staged = nil
	return nil
}

type row struct {
	vals []any
	err  error
}

func (r row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(r.vals, dest)
}

type rows struct {
	data [][]any
	i    int
}

func (r *rows) Close()                                       {}
func (r *rows) Err() error                                   { return nil }
func (r *rows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *rows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *rows) RawValues() [][]byte                          { return nil }
func (r *rows) Conn() *pgx.Conn                              { return nil }

func (r *rows) Next() bool {
	r.i++
	return r.i <= len(r.data)
}

func (r *rows) Scan(dest ...any) error {
	return assign(r.data[r.i-1], dest)
}

func (r *rows) Values() ([]any, error) {
	return r.data[r.i-1], nil
}

type batchResults struct {
	n int
}

func (b *batchResults) Exec() (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (b *batchResults) Query() (pgx.Rows, error) { return &rows{}, nil }
func (b *batchResults) QueryRow() pgx.Row        { return row{err: pgx.ErrNoRows} }
func (b *batchResults) Close() error             { return nil }

// assign copies scripted values onto scan targets, allocating pointers for
// nullable columns and converting between compatible kinds.
func assign(vals []any, dest []any) error {
	if len(vals) != len(dest) {
		return fmt.Errorf("scan: %d values for %d targets", len(vals), len(dest))
	}

	for i, v := range vals {
		dv := reflect.ValueOf(dest[i])
		if dv.Kind() != reflect.Pointer || dv.IsNil() {
			return fmt.Errorf("scan: target %d is not a pointer", i)
		}
		elem := dv.Elem()

		if v == nil {
			elem.Set(reflect.Zero(elem.Type()))
			continue
		}

		sv := reflect.ValueOf(v)
		switch {
		case sv.Type().AssignableTo(elem.Type()):
			elem.Set(sv)
		case elem.Kind() == reflect.Pointer && sv.Type().AssignableTo(elem.Type().Elem()):
			ptr := reflect.New(elem.Type().Elem())
			ptr.Elem().Set(sv)
			elem.Set(ptr)
		case elem.Kind() == reflect.Pointer && sv.Type().ConvertibleTo(elem.Type().Elem()):
			ptr := reflect.New(elem.Type().Elem())
			ptr.Elem().Set(sv.Convert(elem.Type().Elem()))
			elem.Set(ptr)
		case sv.Type().ConvertibleTo(elem.Type()):
			elem.Set(sv.Convert(elem.Type()))
		default:
			return fmt.Errorf("scan: cannot put %T into %s", v, elem.Type())
		}
	}

	return nil
}
