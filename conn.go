package odbcbulk

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"
	"sync"
	"time"
)

// lastInsertIdQueries maps database types to their identity queries
var lastInsertIdQueries = map[string]string{
	"microsoft sql server": "SELECT SCOPE_IDENTITY()",
	"sql server":           "SELECT SCOPE_IDENTITY()",
	"mysql":                "SELECT LAST_INSERT_ID()",
	"mariadb":              "SELECT LAST_INSERT_ID()",
	"sqlite":               "SELECT last_insert_rowid()",
	"sqlite3":              "SELECT last_insert_rowid()",
	// PostgreSQL uses RETURNING clause, handled separately
	// Oracle uses RETURNING clause or sequences
}

// Conn implements driver.Conn over a bulk-API *Connection
// (environment.go): handle allocation, transaction control, and
// statement/cursor lifecycle all delegate to the same Environment and
// Connection the odbcbulk package's own Cursor/BlockCursor/BulkInserter
// surface is built on, rather than re-deriving them from a raw
// SQLHENV/SQLHDBC pair independently.
type Conn struct {
	conn   *Connection
	inTx   bool
	mu     sync.Mutex
	closed bool

	// Database type detection for LastInsertId
	dbType               string
	lastInsertIdBehavior LastInsertIdBehavior
	queryTimeout         time.Duration
}

// Prepare prepares a statement for execution
func (c *Conn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

// PrepareContext prepares a statement with context support
func (c *Conn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, driver.ErrBadConn
	}

	ps, err := c.conn.Prepare(query)
	if err != nil {
		return nil, err
	}

	stmt := &Stmt{
		conn:     c,
		stmt:     ps.Handle(),
		query:    query,
		numInput: ps.NumParams(),
	}

	return stmt, nil
}

// Close closes the connection, tearing down both the Connection and the
// Environment it was allocated from.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.conn == nil {
		return nil
	}

	err := c.conn.Close()
	if envErr := c.conn.env.Close(); err == nil {
		err = envErr
	}
	return err
}

// Begin starts a new transaction (deprecated, use BeginTx)
func (c *Conn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// BeginTx starts a new transaction with context and options
func (c *Conn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, driver.ErrBadConn
	}

	if c.inTx {
		return nil, errors.New("already in a transaction")
	}

	// Set transaction isolation level if specified
	if opts.Isolation != 0 {
		var isoLevel uintptr
		switch driver.IsolationLevel(opts.Isolation) {
		case driver.IsolationLevel(1): // LevelReadUncommitted
			isoLevel = SQL_TXN_READ_UNCOMMITTED
		case driver.IsolationLevel(2): // LevelReadCommitted
			isoLevel = SQL_TXN_READ_COMMITTED
		case driver.IsolationLevel(3): // LevelWriteCommitted (not standard, use read committed)
			isoLevel = SQL_TXN_READ_COMMITTED
		case driver.IsolationLevel(4): // LevelRepeatableRead
			isoLevel = SQL_TXN_REPEATABLE_READ
		case driver.IsolationLevel(5): // LevelSnapshot (use serializable as fallback)
			isoLevel = SQL_TXN_SERIALIZABLE
		case driver.IsolationLevel(6): // LevelSerializable
			isoLevel = SQL_TXN_SERIALIZABLE
		case driver.IsolationLevel(7): // LevelLinearizable (use serializable)
			isoLevel = SQL_TXN_SERIALIZABLE
		default:
			isoLevel = SQL_TXN_READ_COMMITTED
		}
		ret := SetConnectAttr(c.conn.dbc, SQL_ATTR_TXN_ISOLATION, isoLevel, 0)
		if !IsSuccess(ret) {
			return nil, NewError(SQL_HANDLE_DBC, SQLHANDLE(c.conn.dbc))
		}
	}

	// Set read-only mode if requested
	if opts.ReadOnly {
		ret := SetConnectAttr(c.conn.dbc, SQL_ATTR_ACCESS_MODE, SQL_MODE_READ_ONLY, 0)
		if !IsSuccess(ret) {
			return nil, NewError(SQL_HANDLE_DBC, SQLHANDLE(c.conn.dbc))
		}
	}

	// Disable autocommit to start the transaction, via Connection.BeginTx
	// rather than a second SetConnectAttr call site.
	if err := c.conn.BeginTx(); err != nil {
		return nil, err
	}

	c.inTx = true
	return &Tx{conn: c}, nil
}

// Ping verifies the connection is still alive by driving a Connection
// through its ExecuteDirect/Cursor path with a trivial query.
func (c *Conn) Ping(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.conn == nil {
		return driver.ErrBadConn
	}

	cur, err := c.conn.ExecuteDirect("SELECT 1")
	if err != nil {
		cause := err
		var execErr *ExecuteFailedError
		if errors.As(err, &execErr) {
			cause = execErr.Cause
		}
		if IsConnectionError(cause) {
			return driver.ErrBadConn
		}
		// Some databases don't support "SELECT 1"; the connection is
		// likely still fine if the failure wasn't a connection error.
		return nil
	}
	if cur != nil {
		cur.Close()
	}

	return nil
}

// ExecContext executes a query without returning rows
func (c *Conn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	// If no args, use direct execution
	if len(args) == 0 {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return nil, driver.ErrBadConn
		}

		ps, err := c.conn.PreallocatedStatement()
		if err != nil {
			c.mu.Unlock()
			return nil, err
		}
		c.mu.Unlock()
		defer ps.Close()

		ret := ExecDirect(ps.Handle(), query)
		if !IsSuccess(ret) && ret != SQL_NO_DATA {
			return nil, NewError(SQL_HANDLE_STMT, SQLHANDLE(ps.Handle()))
		}

		var rowCount SQLLEN
		RowCount(ps.Handle(), &rowCount)

		return NewResult(c.getLastInsertId(), int64(rowCount), nil), nil
	}

	// Use prepared statement for parameterized queries
	stmt, err := c.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()
	return stmt.(*Stmt).ExecContext(ctx, args)
}

// QueryContext executes a query that returns rows
func (c *Conn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	// If no args, use direct execution
	if len(args) == 0 {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return nil, driver.ErrBadConn
		}

		ps, err := c.conn.PreallocatedStatement()
		if err != nil {
			c.mu.Unlock()
			return nil, err
		}
		c.mu.Unlock()

		ret := ExecDirect(ps.Handle(), query)
		if !IsSuccess(ret) {
			err := NewError(SQL_HANDLE_STMT, SQLHANDLE(ps.Handle()))
			ps.Close()
			return nil, err
		}

		// Create a temporary stmt wrapper for rows
		stmt := &Stmt{
			conn:  c,
			stmt:  ps.Handle(),
			query: query,
		}
		return newRows(stmt, true) // closeStmt=true since we own the handle
	}

	// Use prepared statement for parameterized queries
	stmt, err := c.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.(*Stmt).QueryContext(ctx, args)
	if err != nil {
		stmt.Close()
		return nil, err
	}
	// Set closeStmt on rows so statement is closed when rows are closed
	rows.(*Rows).closeStmt = true
	return rows, nil
}

// ResetSession is called before a connection is reused
func (c *Conn) ResetSession(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return driver.ErrBadConn
	}

	// If still in a transaction, the connection is in a bad state
	if c.inTx {
		return driver.ErrBadConn
	}

	return nil
}

// IsValid returns true if the connection is valid
func (c *Conn) IsValid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && c.conn != nil
}

// CheckNamedValue validates and converts named values
func (c *Conn) CheckNamedValue(nv *driver.NamedValue) error {
	// Use the default converter for now
	return nil
}

// getLastInsertId executes a database-specific query to get the last
// inserted ID, reading the single-column result through Cursor/RowHandle.
func (c *Conn) getLastInsertId() int64 {
	if c.lastInsertIdBehavior != LastInsertIdAuto {
		return 0
	}

	// Find the appropriate query for this database type
	var query string

	if dbTypeLower := strings.ToLower(c.dbType); dbTypeLower != "" {
		for dbName, q := range lastInsertIdQueries {
			if strings.Contains(dbTypeLower, dbName) {
				query = q
				break
			}
		}
	}

	if query == "" {
		// No known query for this database type
		return 0
	}

	cur, err := c.conn.ExecuteDirect(query)
	if err != nil || cur == nil {
		return 0
	}
	defer cur.Close()

	row, err := cur.NextRow()
	if err != nil || row == nil {
		return 0
	}

	buf := make([]byte, 8)
	ind, err := row.GetData(1, SQL_C_SBIGINT, buf)
	if err != nil || ind.IsNull() {
		return 0
	}

	return int64(buf[0]) | int64(buf[1])<<8 | int64(buf[2])<<16 | int64(buf[3])<<24 |
		int64(buf[4])<<32 | int64(buf[5])<<40 | int64(buf[6])<<48 | int64(buf[7])<<56
}

// detectDatabaseType queries the ODBC driver for the database type
func (c *Conn) detectDatabaseType() {
	buf := make([]byte, 256)
	strLen, ret := GetInfo(c.conn.dbc, SQL_DBMS_NAME, buf)
	if IsSuccess(ret) && strLen > 0 {
		// Find the null terminator
		end := int(strLen)
		if end > len(buf) {
			end = len(buf)
		}
		for i := 0; i < end; i++ {
			if buf[i] == 0 {
				end = i
				break
			}
		}
		c.dbType = string(buf[:end])
	}
}

// PrepareWithCursor prepares a statement with a specific cursor type.
// Use this when you need scrollable cursors for random-access navigation.
func (c *Conn) PrepareWithCursor(ctx context.Context, query string, cursorType CursorType) (driver.Stmt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, driver.ErrBadConn
	}

	ps, err := c.conn.PreallocatedStatement()
	if err != nil {
		return nil, err
	}

	// Set cursor type
	var odbcCursorType uintptr
	switch cursorType {
	case CursorStatic:
		odbcCursorType = SQL_CURSOR_STATIC
	case CursorKeyset:
		odbcCursorType = SQL_CURSOR_KEYSET_DRIVEN
	case CursorDynamic:
		odbcCursorType = SQL_CURSOR_DYNAMIC
	default:
		odbcCursorType = SQL_CURSOR_FORWARD_ONLY
	}

	if ret := SetStmtAttr(ps.Handle(), SQL_ATTR_CURSOR_TYPE, odbcCursorType, 0); !IsSuccess(ret) {
		// Non-fatal: cursor type may not be supported
	}

	// Set scrollable if not forward-only
	if cursorType != CursorForwardOnly {
		if ret := SetStmtAttr(ps.Handle(), SQL_ATTR_CURSOR_SCROLLABLE, SQL_SCROLLABLE, 0); !IsSuccess(ret) {
			// Non-fatal: scrollable cursors may not be supported
		}
	}

	// Prepare the statement
	ret := Prepare(ps.Handle(), query)
	if !IsSuccess(ret) {
		err := NewError(SQL_HANDLE_STMT, SQLHANDLE(ps.Handle()))
		ps.Close()
		return nil, err
	}

	// Get number of parameters
	var numParams SQLSMALLINT
	ret = NumParams(ps.Handle(), &numParams)
	if !IsSuccess(ret) {
		numParams = -1
	}

	stmt := &Stmt{
		conn:       c,
		stmt:       ps.Handle(),
		query:      query,
		numInput:   int(numParams),
		cursorType: cursorType,
	}

	return stmt, nil
}

// Ensure Conn implements the required interfaces
var (
	_ driver.Conn               = (*Conn)(nil)
	_ driver.ConnPrepareContext = (*Conn)(nil)
	_ driver.ConnBeginTx        = (*Conn)(nil)
	_ driver.Pinger             = (*Conn)(nil)
	_ driver.ExecerContext      = (*Conn)(nil)
	_ driver.QueryerContext     = (*Conn)(nil)
	_ driver.SessionResetter    = (*Conn)(nil)
	_ driver.Validator          = (*Conn)(nil)
)
