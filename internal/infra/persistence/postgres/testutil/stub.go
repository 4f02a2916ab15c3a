// Package testutil provides a stub database/sql driver for postgres store tests.
// It understands the three statements the snapshot store issues against its
// state table: the DDL, the bucket upsert and the full select.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// ErrUnsupported is returned for statements the stub does not understand.
var ErrUnsupported = errors.New("stub: unsupported statement")

// StubConn keeps the state table as bucket payloads. Upserts issued inside a
// transaction are staged and only become visible on commit.
type StubConn struct {
	mu      sync.Mutex
	buckets map[string][]byte
	staged  map[string][]byte
	inTx    bool

	Execs      []string
	FailPing   bool
	FailExec   bool
	FailBegin  bool
	FailQuery  bool
	FailCommit bool
	RowsErr    error
}

var stubSeq atomic.Int64

// NewStubDB registers a uniquely named driver and returns a sql.DB bound to one stub connection.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{buckets: make(map[string][]byte)}
	name := fmt.Sprintf("stubpg-%d", stubSeq.Add(1))
	sql.Register(name, stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	db.SetMaxOpenConns(1)
	return db, conn
}

type stubDriver struct {
	conn *StubConn
}

func (d stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

// Bucket returns the committed payload of a bucket.
func (c *StubConn) Bucket(name string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	payload, ok := c.buckets[name]
	return payload, ok
}

// SetBucket seeds a committed bucket payload.
func (c *StubConn) SetBucket(name string, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buckets[name] = payload
}

// BucketNames lists committed buckets in sorted order.
func (c *StubConn) BucketNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.buckets))
	for name := range c.buckets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Prepare implements driver.Conn; only direct Exec/Query calls are supported.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, ErrUnsupported }

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// Ping implements driver.Pinger.
func (c *StubConn) Ping(context.Context) error {
	if c.FailPing {
		return errors.New("stub: ping failed")
	}
	return nil
}

// BeginTx implements driver.ConnBeginTx.
func (c *StubConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	if c.FailBegin {
		return nil, errors.New("stub: begin failed")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inTx = true
	c.staged = make(map[string][]byte)
	return stubTx{conn: c}, nil
}

// ExecContext implements driver.ExecerContext.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Execs = append(c.Execs, query)
	if c.FailExec {
		return nil, errors.New("stub: exec failed")
	}
	stmt := strings.ToUpper(strings.TrimSpace(query))
	switch {
	case strings.HasPrefix(stmt, "CREATE TABLE"):
		return driver.RowsAffected(0), nil
	case strings.HasPrefix(stmt, "INSERT INTO STATE"):
		if len(args) != 2 {
			return nil, fmt.Errorf("stub: upsert expects 2 args, got %d", len(args))
		}
		bucket, ok := args[0].Value.(string)
		if !ok {
			return nil, fmt.Errorf("stub: bucket must be a string, got %T", args[0].Value)
		}
		payload, _ := args[1].Value.([]byte)
		if c.inTx {
			c.staged[bucket] = payload
		} else {
			c.buckets[bucket] = payload
		}
		return driver.RowsAffected(1), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, query)
}

// QueryContext implements driver.QueryerContext.
func (c *StubConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "SELECT BUCKET, PAYLOAD FROM STATE") {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, query)
	}
	if c.FailQuery {
		return nil, errors.New("stub: query failed")
	}
	rows := &stubRows{err: c.RowsErr}
	for _, name := range c.BucketNames() {
		payload, _ := c.Bucket(name)
		rows.values = append(rows.values, []driver.Value{name, payload})
	}
	return rows, nil
}

type stubTx struct {
	conn *StubConn
}

func (t stubTx) Commit() error {
	c := t.conn
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.inTx, c.staged = false, nil }()
	if c.FailCommit {
		return errors.New("stub: commit failed")
	}
	for bucket, payload := range c.staged {
		c.buckets[bucket] = payload
	}
	return nil
}

func (t stubTx) Rollback() error {
	c := t.conn
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inTx, c.staged = false, nil
	return nil
}

type stubRows struct {
	values [][]driver.Value
	idx    int
	err    error
}

func (r *stubRows) Columns() []string { return []string{"bucket", "payload"} }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.values) {
		if r.err != nil {
			return r.err
		}
		return io.EOF
	}
	copy(dest, r.values[r.idx])
	r.idx++
	return nil
}
