package odbcbulk

import (
	"database/sql/driver"
)

// Tx implements driver.Tx, delegating transaction completion to the
// underlying Connection's endTran path (environment.go) rather than
// re-issuing SQLEndTran/SQLSetConnectAttr against the raw dbc handle.
type Tx struct {
	conn *Conn
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	return t.end(t.conn.conn.Commit)
}

// Rollback rolls back the transaction.
func (t *Tx) Rollback() error {
	return t.end(t.conn.conn.Rollback)
}

// end runs finish (Connection.Commit or Connection.Rollback), clears the
// in-transaction flag, and restores read-write access mode: Connection's
// endTran already restores autocommit, but access mode is a database/sql
// adapter concern BeginTx introduced, so it's undone here rather than in
// environment.go.
func (t *Tx) end(finish func() error) error {
	t.conn.mu.Lock()
	defer t.conn.mu.Unlock()

	if !t.conn.inTx {
		return nil // Already committed or rolled back
	}

	err := finish()
	t.conn.inTx = false

	SetConnectAttr(t.conn.conn.dbc, SQL_ATTR_ACCESS_MODE, SQL_MODE_READ_WRITE, 0)

	return err
}

// Ensure Tx implements driver.Tx
var _ driver.Tx = (*Tx)(nil)
