package odbcbulk

import (
	"context"
	"database/sql/driver"
	"time"
)

// Connector implements driver.Connector for efficient connection pooling
type Connector struct {
	dsn    string
	driver *Driver

	// Enhanced Type Handling options
	DefaultTimezone           *time.Location       // Stored by WithTimezone; Connect does not pass it on, and timestamps are read back in UTC
	DefaultTimestampPrecision TimestampPrecision   // Stored by WithTimestampPrecision; Connect does not pass it on (zero value is TimestampPrecisionSeconds)
	LastInsertIdBehavior      LastInsertIdBehavior // How to handle LastInsertId() (defaults to Auto)

	// Query execution options
	QueryTimeout time.Duration // Default query timeout (0 = no timeout)
}

// ConnectorOption configures a Connector
type ConnectorOption func(*Connector)

// WithTimezone sets the default timezone for timestamp handling
func WithTimezone(tz *time.Location) ConnectorOption {
	return func(c *Connector) {
		c.DefaultTimezone = tz
	}
}

// WithTimestampPrecision sets the default timestamp precision
func WithTimestampPrecision(precision TimestampPrecision) ConnectorOption {
	return func(c *Connector) {
		c.DefaultTimestampPrecision = precision
	}
}

// WithLastInsertIdBehavior sets the behavior for LastInsertId()
func WithLastInsertIdBehavior(behavior LastInsertIdBehavior) ConnectorOption {
	return func(c *Connector) {
		c.LastInsertIdBehavior = behavior
	}
}

// WithQueryTimeout sets the default query timeout for all statements.
// The timeout is applied using SQL_ATTR_QUERY_TIMEOUT and context cancellation.
// A value of 0 means no timeout (the default).
func WithQueryTimeout(d time.Duration) ConnectorOption {
	return func(c *Connector) {
		c.QueryTimeout = d
	}
}

// Connect establishes a new connection to the database, sharing the
// same Environment/Connection handle-allocation path the bulk API uses
// (environment.go), so both surfaces negotiate ODBC 3.x and connect
// identically.
func (c *Connector) Connect(ctx context.Context) (driver.Conn, error) {
	env, err := NewEnvironment()
	if err != nil {
		return nil, err
	}
	dbConn, err := env.Connect(c.dsn)
	if err != nil {
		env.Close()
		return nil, err
	}

	// Create and return the connection
	conn := &Conn{
		conn:                 dbConn,
		lastInsertIdBehavior: c.LastInsertIdBehavior,
		queryTimeout:         c.QueryTimeout,
	}

	// Detect database type for LastInsertId support
	if conn.lastInsertIdBehavior == LastInsertIdAuto {
		conn.detectDatabaseType()
	}

	return conn, nil
}

// Driver returns the underlying Driver
func (c *Connector) Driver() driver.Driver {
	return c.driver
}

// Ensure Connector implements driver.Connector
var _ driver.Connector = (*Connector)(nil)
