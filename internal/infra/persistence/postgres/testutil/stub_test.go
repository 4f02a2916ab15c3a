package testutil

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
)

const upsert = "INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload"

func args(bucket, payload string) []driver.NamedValue {
	return []driver.NamedValue{{Ordinal: 1, Value: bucket}, {Ordinal: 2, Value: []byte(payload)}}
}

func TestStubStagesUpsertsUntilCommit(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()

	tx, err := conn.BeginTx(ctx, driver.TxOptions{})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := conn.ExecContext(ctx, upsert, args("tag", `[{"id":"t1"}]`)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, ok := conn.Bucket("tag"); ok {
		t.Fatalf("staged upsert must not be visible before commit")
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if payload, ok := conn.Bucket("tag"); !ok || string(payload) != `[{"id":"t1"}]` {
		t.Fatalf("unexpected bucket payload %q", payload)
	}

	tx, _ = conn.BeginTx(ctx, driver.TxOptions{})
	_, _ = conn.ExecContext(ctx, upsert, args("tag", `[]`))
	_ = tx.Rollback()
	if payload, _ := conn.Bucket("tag"); string(payload) != `[{"id":"t1"}]` {
		t.Fatalf("rollback must discard staged payload, got %q", payload)
	}
}

func TestStubQueryReturnsSortedBuckets(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()
	conn.SetBucket("tag", []byte(`[]`))
	conn.SetBucket("algorithm", []byte(`[]`))

	rows, err := conn.QueryContext(ctx, "SELECT bucket, payload FROM state", nil)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer func() { _ = rows.Close() }()
	dest := make([]driver.Value, 2)
	var got []string
	for rows.Next(dest) == nil {
		got = append(got, dest[0].(string))
	}
	if len(got) != 2 || got[0] != "algorithm" || got[1] != "tag" {
		t.Fatalf("unexpected buckets %v", got)
	}
}

func TestStubRejectsUnknownStatements(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()
	if _, err := conn.ExecContext(ctx, "DELETE FROM state", nil); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected unsupported exec, got %v", err)
	}
	if _, err := conn.QueryContext(ctx, "SELECT 1", nil); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected unsupported query, got %v", err)
	}
	if _, err := conn.ExecContext(ctx, upsert, []driver.NamedValue{{Value: 1}, {Value: nil}}); err == nil {
		t.Fatalf("expected non-string bucket to fail")
	}
}

func TestStubFailureSwitches(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name string
		set  func(*StubConn)
		call func(*StubConn) error
	}{
		{"ping", func(c *StubConn) { c.FailPing = true }, func(c *StubConn) error { return c.Ping(ctx) }},
		{"begin", func(c *StubConn) { c.FailBegin = true }, func(c *StubConn) error { _, err := c.BeginTx(ctx, driver.TxOptions{}); return err }},
		{"exec", func(c *StubConn) { c.FailExec = true }, func(c *StubConn) error { _, err := c.ExecContext(ctx, upsert, args("tag", "[]")); return err }},
		{"query", func(c *StubConn) { c.FailQuery = true }, func(c *StubConn) error {
			_, err := c.QueryContext(ctx, "SELECT bucket, payload FROM state", nil)
			return err
		}},
		{"commit", func(c *StubConn) { c.FailCommit = true }, func(c *StubConn) error {
			tx, err := c.BeginTx(ctx, driver.TxOptions{})
			if err != nil {
				return nil
			}
			return tx.Commit()
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, conn := NewStubDB()
			tc.set(conn)
			if err := tc.call(conn); err == nil {
				t.Fatalf("expected %s failure", tc.name)
			}
		})
	}
}
