package mysql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"Kluivert-Agent/deploy/migrations"
	xerrors "Kluivert-Agent/internal/errors"
	"Kluivert-Agent/internal/wallet"
)

func TestWalletStoreLoadReturnsNewest(t *testing.T) {
	t.Parallel()

	store, drv := newMockStore([]mockOperation{
		queryOp(selectLatestWalletSQL, mockRowsData{
			columns: []string{"wallet_data"},
			values:  [][]driver.Value{{`{"wallet_id":"latest"}`}},
		}),
	})
	defer drv.assertConsumed(t)

	data, ok, err := store.Load(context.Background())
	if err != nil || !ok {
		t.Fatalf("load failed: %v %v", ok, err)
	}
	if string(data) != `{"wallet_id":"latest"}` {
		t.Fatalf("unexpected data: %s", data)
	}
}

func TestWalletStoreLoadAbsent(t *testing.T) {
	t.Parallel()

	store, drv := newMockStore([]mockOperation{
		queryOp(selectLatestWalletSQL, mockRowsData{columns: []string{"wallet_data"}}),
	})
	defer drv.assertConsumed(t)

	data, ok, err := store.Load(context.Background())
	if err != nil || ok || data != nil {
		t.Fatalf("expected absent wallet, got %q %v %v", data, ok, err)
	}
}

func TestWalletStoreSaveInserts(t *testing.T) {
	t.Parallel()

	store, drv := newMockStore([]mockOperation{
		execOp(insertWalletSQL, mockResult{lastInsertID: 3, rowsAffected: 1}),
	})
	defer drv.assertConsumed(t)

	if err := store.Save(context.Background(), wallet.Data(`{"wallet_id":"w"}`)); err != nil {
		t.Fatalf("save failed: %v", err)
	}
}

func TestWalletStoreUnavailable(t *testing.T) {
	t.Parallel()

	store, drv := newMockStore(nil)
	drv.pingErr = errors.New("connection refused")

	if _, _, err := store.Load(context.Background()); xerrors.CodeOf(err) != xerrors.CodeStoreUnavailable {
		t.Fatalf("expected store unavailable on load, got %v", err)
	}
	if err := store.Save(context.Background(), wallet.Data(`{}`)); xerrors.CodeOf(err) != xerrors.CodeStoreUnavailable {
		t.Fatalf("expected store unavailable on save, got %v", err)
	}
}

func TestWalletStoreRejectsInvalidJSON(t *testing.T) {
	t.Parallel()

	store, drv := newMockStore(nil)
	defer drv.assertConsumed(t)

	if err := store.Save(context.Background(), wallet.Data("oops")); xerrors.CodeOf(err) != xerrors.CodeInvalidArgument {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestWalletStoreMigrate(t *testing.T) {
	t.Parallel()

	ops := []mockOperation{
		execOp(`CREATE TABLE IF NOT EXISTS schema_migrations (
        version VARCHAR(32) NOT NULL PRIMARY KEY,
        applied_at BIGINT NOT NULL
)`, mockResult{}),
		queryOp(`SELECT version FROM schema_migrations`, mockRowsData{columns: []string{"version"}}),
		beginOp(),
		execOp(readMigrationStatement(), mockResult{rowsAffected: 0}),
		execOp(`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`, mockResult{rowsAffected: 1}),
		commitOp(),
	}
	store, drv := newMockStore(ops)
	defer drv.assertConsumed(t)

	applied, err := store.Migrate(context.Background())
	if err != nil {
		t.Fatalf("run migrations failed: %v", err)
	}
	if len(applied) != 1 || applied[0] != "0001" {
		t.Fatalf("unexpected applied versions: %v", applied)
	}
}

func TestMigrateSkipsAppliedVersions(t *testing.T) {
	t.Parallel()

	ops := []mockOperation{
		execOp(`CREATE TABLE IF NOT EXISTS schema_migrations (
        version VARCHAR(32) NOT NULL PRIMARY KEY,
        applied_at BIGINT NOT NULL
)`, mockResult{}),
		queryOp(`SELECT version FROM schema_migrations`, mockRowsData{
			columns: []string{"version"},
			values:  [][]driver.Value{{"0001"}},
		}),
	}
	store, drv := newMockStore(ops)
	defer drv.assertConsumed(t)

	applied, err := store.Migrate(context.Background())
	if err != nil {
		t.Fatalf("run migrations failed: %v", err)
	}
	if len(applied) != 0 {
		t.Fatalf("expected nothing applied, got %v", applied)
	}
}

func TestOpenDatabaseRequiresDSN(t *testing.T) {
	if _, err := openDatabase(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}

func readMigrationStatement() string {
	files, err := migrations.Load(migrations.MySQL)
	if err != nil {
		panic(fmt.Sprintf("failed to read migrations: %v", err))
	}
	if len(files) == 0 || len(files[0].Statements) == 0 {
		panic("no statements in migration")
	}
	return files[0].Statements[0]
}

type operationType int

const (
	opExec operationType = iota
	opQuery
	opBegin
	opCommit
	opRollback
)

type mockOperation struct {
	typ    operationType
	query  string
	result mockResult
	rows   mockRowsData
	err    error
}

type mockResult struct {
	lastInsertID int64
	rowsAffected int64
}

func (r mockResult) LastInsertId() (int64, error) { return r.lastInsertID, nil }
func (r mockResult) RowsAffected() (int64, error) { return r.rowsAffected, nil }

type mockRowsData struct {
	columns []string
	values  [][]driver.Value
}

type queueDriver struct {
	ops     []mockOperation
	idx     int32
	pingErr error
}

var driverSeq atomic.Int32

func newMockDriver(ops []mockOperation) (string, *queueDriver) {
	drv := &queueDriver{ops: ops}
	name := fmt.Sprintf("mock-mysql-%d", driverSeq.Add(1))
	sql.Register(name, drv)
	return name, drv
}

func newMockStore(ops []mockOperation) (*WalletStore, *queueDriver) {
	name, drv := newMockDriver(ops)
	store := NewWalletStore(Config{DSN: "mock", Driver: name})
	store.now = func() time.Time { return time.Unix(1700000000, 0) }
	return store, drv
}

func execOp(query string, result mockResult) mockOperation {
	return mockOperation{typ: opExec, query: query, result: result}
}

func queryOp(query string, rows mockRowsData) mockOperation {
	return mockOperation{typ: opQuery, query: query, rows: rows}
}

func beginOp() mockOperation { return mockOperation{typ: opBegin} }

func commitOp() mockOperation { return mockOperation{typ: opCommit} }

func (d *queueDriver) assertConsumed(t *testing.T) {
	t.Helper()

	if int(atomic.LoadInt32(&d.idx)) != len(d.ops) {
		t.Fatalf("not all operations consumed: %d/%d", atomic.LoadInt32(&d.idx), len(d.ops))
	}
}

func (d *queueDriver) Open(name string) (driver.Conn, error) {
	return &mockConn{driver: d}, nil
}

type mockConn struct {
	driver *queueDriver
}

func (c *mockConn) Prepare(query string) (driver.Stmt, error) {
	return nil, fmt.Errorf("prepare not supported: %s", query)
}

func (c *mockConn) Close() error { return nil }

func (c *mockConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *mockConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	op, err := c.next(opBegin, "")
	if err != nil {
		return nil, err
	}
	if op.err != nil {
		return nil, op.err
	}
	return &mockTx{driver: c.driver}, nil
}

func (c *mockConn) Exec(query string, args []driver.Value) (driver.Result, error) {
	return c.ExecContext(context.Background(), query, named(args))
}

func (c *mockConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	op, err := c.next(opExec, query)
	if err != nil {
		return nil, err
	}
	if op.err != nil {
		return nil, op.err
	}
	return op.result, nil
}

func (c *mockConn) Query(query string, args []driver.Value) (driver.Rows, error) {
	return c.QueryContext(context.Background(), query, named(args))
}

func (c *mockConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	op, err := c.next(opQuery, query)
	if err != nil {
		return nil, err
	}
	if op.err != nil {
		return nil, op.err
	}
	return &mockRows{columns: op.rows.columns, values: op.rows.values}, nil
}

func (c *mockConn) Ping(ctx context.Context) error { return c.driver.pingErr }

func (c *mockConn) next(expected operationType, query string) (*mockOperation, error) {
	idx := int(atomic.LoadInt32(&c.driver.idx))
	if idx >= len(c.driver.ops) {
		return nil, fmt.Errorf("unexpected operation: %v", expected)
	}
	op := &c.driver.ops[idx]
	if op.typ != expected {
		return nil, fmt.Errorf("expected operation %v, got %v", expected, op.typ)
	}
	atomic.AddInt32(&c.driver.idx, 1)
	if op.query != "" {
		expectedSQL := normalizeSQL(op.query)
		actualSQL := normalizeSQL(query)
		if expectedSQL != actualSQL {
			return nil, fmt.Errorf("unexpected query. want %q got %q", expectedSQL, actualSQL)
		}
	}
	return op, nil
}

type mockTx struct {
	driver *queueDriver
}

func (t *mockTx) Commit() error {
	op, err := t.next(opCommit)
	if err != nil {
		return err
	}
	return op.err
}

func (t *mockTx) Rollback() error {
	op, err := t.next(opRollback)
	if err != nil {
		return err
	}
	return op.err
}

func (t *mockTx) next(expected operationType) (*mockOperation, error) {
	idx := int(atomic.LoadInt32(&t.driver.idx))
	if idx >= len(t.driver.ops) {
		return nil, fmt.Errorf("unexpected operation: %v", expected)
	}
	op := &t.driver.ops[idx]
	if op.typ != expected {
		return nil, fmt.Errorf("expected operation %v, got %v", expected, op.typ)
	}
	atomic.AddInt32(&t.driver.idx, 1)
	return op, nil
}

type mockRows struct {
	columns []string
	values  [][]driver.Value
	idx     int
}

func (r *mockRows) Columns() []string { return r.columns }
func (r *mockRows) Close() error      { return nil }

func (r *mockRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.values) {
		return io.EOF
	}
	copy(dest, r.values[r.idx])
	r.idx++
	return nil
}

func named(args []driver.Value) []driver.NamedValue {
	namedArgs := make([]driver.NamedValue, len(args))
	for i, arg := range args {
		namedArgs[i] = driver.NamedValue{Ordinal: i + 1, Value: arg}
	}
	return namedArgs
}

func normalizeSQL(query string) string {
	fields := strings.Fields(query)
	return strings.Join(fields, " ")
}
