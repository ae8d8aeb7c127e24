package odbcbulk

import "fmt"

// Environment is the SQL_HANDLE_ENV wrapper: the parent of every
// connection a process opens against this library. It is the bulk API's
// entry point, sharing the same purego-loaded entry points and the same
// ODBC-3 negotiation the database/sql adapter's Connector uses.
type Environment struct {
	handle SQLHENV
	closed bool
}

// NewEnvironment loads the native ODBC driver manager (once, process
// wide) and allocates an environment handle negotiated at ODBC 3.x.
func NewEnvironment() (*Environment, error) {
	if err := initODBC(); err != nil {
		return nil, err
	}
	var env SQLHENV
	if ret := AllocHandle(SQL_HANDLE_ENV, SQL_NULL_HANDLE, (*SQLHANDLE)(&env)); !IsSuccess(ret) {
		return nil, &NoDiagnosticsError{}
	}
	if ret := SetEnvAttr(env, SQL_ATTR_ODBC_VERSION, uintptr(SQL_OV_ODBC3), 0); !IsSuccess(ret) {
		err := NewError(SQL_HANDLE_ENV, SQLHANDLE(env))
		FreeHandle(SQL_HANDLE_ENV, SQLHANDLE(env))
		return nil, err
	}
	return &Environment{handle: env}, nil
}

// Connect allocates a connection handle from this environment and
// drives SQLDriverConnect with SQL_DRIVER_NOPROMPT against the given
// connection string.
func (e *Environment) Connect(connStr string) (*Connection, error) {
	var dbc SQLHDBC
	if ret := AllocHandle(SQL_HANDLE_DBC, SQLHANDLE(e.handle), (*SQLHANDLE)(&dbc)); !IsSuccess(ret) {
		return nil, NewError(SQL_HANDLE_ENV, SQLHANDLE(e.handle))
	}
	outConnStr := make([]byte, 1024)
	_, ret := DriverConnect(dbc, 0, connStr, outConnStr, SQL_DRIVER_NOPROMPT)
	if !IsSuccess(ret) {
		err := NewError(SQL_HANDLE_DBC, SQLHANDLE(dbc))
		FreeHandle(SQL_HANDLE_DBC, SQLHANDLE(dbc))
		return nil, err
	}
	return &Connection{env: e, dbc: dbc}, nil
}

// Close frees the environment handle. It is the caller's responsibility
// to close every Connection obtained from it first.
func (e *Environment) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	if ret := FreeHandle(SQL_HANDLE_ENV, SQLHANDLE(e.handle)); !IsSuccess(ret) {
		return NewError(SQL_HANDLE_ENV, SQLHANDLE(e.handle))
	}
	return nil
}

// Connection is a single ODBC dbc handle produced by an Environment. It
// is the bulk API's analog of the database/sql adapter's Conn, minus
// the database/sql-specific bookkeeping (dbType detection, LastInsertId
// heuristics): those stay in conn.go for the driver surface.
type Connection struct {
	env    *Environment
	dbc    SQLHDBC
	closed bool
}

// ExecuteFailedError is returned by ExecuteDirect/Prepare on failure; it
// carries the original *Connection back to the caller so a failed,
// otherwise-healthy connection can be retried rather than discarded.
type ExecuteFailedError struct {
	Connection *Connection
	Cause      error
}

func (e *ExecuteFailedError) Error() string {
	return fmt.Sprintf("odbcbulk: execute failed: %v", e.Cause)
}

func (e *ExecuteFailedError) Unwrap() error { return e.Cause }

// Environment returns the Environment this Connection was allocated
// from, so a caller holding only the Connection (e.g. from
// Driver.OpenEnvironment) can close the environment handle once done.
func (c *Connection) Environment() *Environment { return c.env }

func (c *Connection) allocStmt() (SQLHSTMT, error) {
	var stmt SQLHSTMT
	if ret := AllocHandle(SQL_HANDLE_STMT, SQLHANDLE(c.dbc), (*SQLHANDLE)(&stmt)); !IsSuccess(ret) {
		return 0, NewError(SQL_HANDLE_DBC, SQLHANDLE(c.dbc))
	}
	return stmt, nil
}

// ExecuteDirect allocates a statement, executes sql directly, and
// returns a Cursor if the statement produced a result set. On failure
// the error is an *ExecuteFailedError carrying this Connection back so
// it can be retried.
func (c *Connection) ExecuteDirect(sql string) (*Cursor, error) {
	stmt, err := c.allocStmt()
	if err != nil {
		return nil, &ExecuteFailedError{Connection: c, Cause: err}
	}
	ret := ExecDirect(stmt, sql)
	if ret == SQL_NO_DATA {
		FreeStmt(stmt, SQL_CLOSE)
		FreeHandle(SQL_HANDLE_STMT, SQLHANDLE(stmt))
		return nil, nil
	}
	if !IsSuccess(ret) {
		err := NewError(SQL_HANDLE_STMT, SQLHANDLE(stmt))
		FreeHandle(SQL_HANDLE_STMT, SQLHANDLE(stmt))
		return nil, &ExecuteFailedError{Connection: c, Cause: err}
	}
	var numCols SQLSMALLINT
	NumResultCols(stmt, &numCols)
	if numCols == 0 {
		FreeStmt(stmt, SQL_CLOSE)
		FreeHandle(SQL_HANDLE_STMT, SQLHANDLE(stmt))
		return nil, nil
	}
	return &Cursor{stmt: stmt, state: cursorOpen, ownsHandle: true}, nil
}

// Prepare produces a statement handle from sql without
// executing it, ready for repeated Execute calls with bound buffers.
func (c *Connection) Prepare(sql string) (*PreparedStatement, error) {
	stmt, err := c.allocStmt()
	if err != nil {
		return nil, &ExecuteFailedError{Connection: c, Cause: err}
	}
	if ret := Prepare(stmt, sql); !IsSuccess(ret) {
		err := NewError(SQL_HANDLE_STMT, SQLHANDLE(stmt))
		FreeHandle(SQL_HANDLE_STMT, SQLHANDLE(stmt))
		return nil, &ExecuteFailedError{Connection: c, Cause: err}
	}
	var numParams SQLSMALLINT
	NumParams(stmt, &numParams)
	return &PreparedStatement{conn: c, stmt: stmt, numParams: int(numParams)}, nil
}

// PreallocatedStatement allocates a bare statement handle for repeated
// one-off ExecDirect calls without a prepare step.
func (c *Connection) PreallocatedStatement() (*PreparedStatement, error) {
	stmt, err := c.allocStmt()
	if err != nil {
		return nil, &ExecuteFailedError{Connection: c, Cause: err}
	}
	return &PreparedStatement{conn: c, stmt: stmt}, nil
}

// BeginTx disables autocommit, entering manual transaction mode.
func (c *Connection) BeginTx() error {
	if ret := SetConnectAttr(c.dbc, SQL_ATTR_AUTOCOMMIT, uintptr(SQL_AUTOCOMMIT_OFF), 0); !IsSuccess(ret) {
		return NewError(SQL_HANDLE_DBC, SQLHANDLE(c.dbc))
	}
	return nil
}

// Commit ends the current transaction with SQL_COMMIT and restores
// autocommit mode.
func (c *Connection) Commit() error { return c.endTran(SQL_COMMIT) }

// Rollback ends the current transaction with SQL_ROLLBACK and restores
// autocommit mode.
func (c *Connection) Rollback() error { return c.endTran(SQL_ROLLBACK) }

func (c *Connection) endTran(completionType SQLSMALLINT) error {
	ret := EndTran(SQL_HANDLE_DBC, SQLHANDLE(c.dbc), completionType)
	SetConnectAttr(c.dbc, SQL_ATTR_AUTOCOMMIT, uintptr(SQL_AUTOCOMMIT_ON), 0)
	if !IsSuccess(ret) {
		return NewError(SQL_HANDLE_DBC, SQLHANDLE(c.dbc))
	}
	return nil
}

// Close disconnects and frees the connection handle.
func (c *Connection) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	Disconnect(c.dbc)
	if ret := FreeHandle(SQL_HANDLE_DBC, SQLHANDLE(c.dbc)); !IsSuccess(ret) {
		return NewError(SQL_HANDLE_DBC, SQLHANDLE(c.dbc))
	}
	return nil
}

// PreparedStatement wraps a prepared (or preallocated) statement handle,
// ready to produce a BulkInserter or be driven through the Cursor state
// machine directly.
type PreparedStatement struct {
	conn      *Connection
	stmt      SQLHSTMT
	numParams int
}

// NumParams returns the parameter count SQLNumParams reported.
func (p *PreparedStatement) NumParams() int { return p.numParams }

// Handle returns the underlying statement handle, for callers driving
// the Cursor state machine directly (e.g. BindBuffer).
func (p *PreparedStatement) Handle() SQLHSTMT { return p.stmt }

// Execute runs the prepared statement and returns a Cursor if it
// produced a result set.
func (p *PreparedStatement) Execute() (*Cursor, error) {
	ret := Execute(p.stmt)
	if ret == SQL_NO_DATA {
		return nil, nil
	}
	if !IsSuccess(ret) {
		return nil, &ExecuteFailedError{Connection: p.conn, Cause: NewError(SQL_HANDLE_STMT, SQLHANDLE(p.stmt))}
	}
	var numCols SQLSMALLINT
	NumResultCols(p.stmt, &numCols)
	if numCols == 0 {
		return nil, nil
	}
	return &Cursor{stmt: p.stmt, state: cursorOpen}, nil
}

// Inserter builds a BulkInserter over descs, one parameter column buffer
// per description, with identity parameter-index mapping.
func (p *PreparedStatement) Inserter(descs []BufferDesc, capacity int) (*BulkInserter, error) {
	return NewBulkInserter(p, descs, capacity)
}

// BulkInserter builds a BulkInserter over externally supplied column
// buffers, with identity parameter-index mapping.
func (p *PreparedStatement) BulkInserter(buffers []*ColumnBuffer) (*BulkInserter, error) {
	return NewBulkInserterFromBuffers(p, buffers)
}

// Close frees the statement handle.
func (p *PreparedStatement) Close() error {
	if ret := FreeHandle(SQL_HANDLE_STMT, SQLHANDLE(p.stmt)); !IsSuccess(ret) {
		return NewError(SQL_HANDLE_STMT, SQLHANDLE(p.stmt))
	}
	return nil
}
