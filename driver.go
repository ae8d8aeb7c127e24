package odbcbulk

import (
	"context"
	"database/sql"
	"database/sql/driver"
)

func init() {
	sql.Register("odbc", &Driver{})
}

// Driver implements the database/sql/driver.Driver interface
type Driver struct{}

// Open opens a new connection to the database
// The name is an ODBC connection string, e.g.:
//   - "DSN=mydsn;UID=user;PWD=password"
//   - "Driver={SQL Server};Server=localhost;Database=mydb;UID=user;PWD=password"
func (d *Driver) Open(name string) (driver.Conn, error) {
	connector, err := d.OpenConnector(name)
	if err != nil {
		return nil, err
	}
	return connector.Connect(context.Background())
}

// OpenConnector returns a new Connector for the given connection string
// This implements driver.DriverContext for connection pooling efficiency
func (d *Driver) OpenConnector(name string) (driver.Connector, error) {
	// Initialize ODBC library if not already done
	if err := initODBC(); err != nil {
		return nil, err
	}
	return &Connector{dsn: name, driver: d}, nil
}

// OpenEnvironment connects name through the same negotiation path as
// Open, but returns the bulk API's *Connection directly instead of
// wrapping it in a database/sql/driver.Conn. Use this when the caller
// wants columnar/row-wise block binding (BindBuffer, BulkInserter)
// rather than the database/sql surface.
func (d *Driver) OpenEnvironment(name string) (*Connection, error) {
	if err := initODBC(); err != nil {
		return nil, err
	}
	env, err := NewEnvironment()
	if err != nil {
		return nil, err
	}
	conn, err := env.Connect(name)
	if err != nil {
		env.Close()
		return nil, err
	}
	return conn, nil
}

// Ensure Driver implements the required interfaces
var (
	_ driver.Driver        = (*Driver)(nil)
	_ driver.DriverContext = (*Driver)(nil)
)
