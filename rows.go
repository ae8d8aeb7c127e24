package odbcbulk

import (
	"database/sql/driver"
	"io"
	"reflect"
	"time"
	"unsafe"
)

// Rows implements driver.Rows for result set iteration. Fetch and
// per-column retrieval are driven through a Cursor/RowHandle
// (cursor.go) rather than reimplementing SQLFetch/SQLGetData here: this
// is the single-row streaming path the bulk engine's BlockCursor
// complements for columnar/row-wise batches.
type Rows struct {
	stmt      *Stmt
	cursor    *Cursor
	columns   []string
	colTypes  []SQLSMALLINT
	colSizes  []SQLULEN
	decDigits []SQLSMALLINT // decimal digits (scale) for NUMERIC/DECIMAL types
	nullable  []SQLSMALLINT
	closed    bool
	closeStmt bool // Whether to close the statement when rows are closed
}

// newRows creates a new Rows from a statement already positioned for
// SQLFetch (executed directly or via a prepared statement).
func newRows(stmt *Stmt, closeStmt bool) (*Rows, error) {
	var numCols SQLSMALLINT
	ret := NumResultCols(stmt.stmt, &numCols)
	if !IsSuccess(ret) {
		return nil, NewError(SQL_HANDLE_STMT, SQLHANDLE(stmt.stmt))
	}

	if numCols == 0 {
		// No result set (e.g., UPDATE/INSERT)
		return &Rows{
			stmt:      stmt,
			columns:   nil,
			closeStmt: closeStmt,
		}, nil
	}

	columns, colTypes, colSizes, decDigits, nullable, err := describeColumns(stmt.stmt, numCols)
	if err != nil {
		return nil, err
	}

	return &Rows{
		stmt:      stmt,
		cursor:    &Cursor{stmt: stmt.stmt, state: cursorOpen},
		columns:   columns,
		colTypes:  colTypes,
		colSizes:  colSizes,
		decDigits: decDigits,
		nullable:  nullable,
		closeStmt: closeStmt,
	}, nil
}

// describeColumns runs SQLDescribeCol over every result-set column,
// shared by newRows and NextResultSet.
func describeColumns(stmt SQLHSTMT, numCols SQLSMALLINT) (columns []string, colTypes []SQLSMALLINT, colSizes []SQLULEN, decDigits []SQLSMALLINT, nullable []SQLSMALLINT, err error) {
	columns = make([]string, numCols)
	colTypes = make([]SQLSMALLINT, numCols)
	colSizes = make([]SQLULEN, numCols)
	decDigits = make([]SQLSMALLINT, numCols)
	nullable = make([]SQLSMALLINT, numCols)

	colName := make([]byte, 256)
	for i := SQLUSMALLINT(1); i <= SQLUSMALLINT(numCols); i++ {
		nameLen, dataType, colSize, decDigitsVal, nullableVal, ret := DescribeCol(stmt, i, colName)
		if !IsSuccess(ret) {
			return nil, nil, nil, nil, nil, NewError(SQL_HANDLE_STMT, SQLHANDLE(stmt))
		}

		columns[i-1] = string(colName[:nameLen])
		colTypes[i-1] = dataType
		colSizes[i-1] = colSize
		decDigits[i-1] = decDigitsVal
		nullable[i-1] = nullableVal
	}
	return columns, colTypes, colSizes, decDigits, nullable, nil
}

// Columns returns the column names
func (r *Rows) Columns() []string {
	return r.columns
}

// Close closes the rows iterator
func (r *Rows) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	if r.cursor != nil {
		r.cursor.Close()
	} else {
		CloseCursor(r.stmt.stmt)
	}

	// Close statement if we own it
	if r.closeStmt && r.stmt != nil {
		return r.stmt.Close()
	}

	return nil
}

// Next fetches the next row
func (r *Rows) Next(dest []driver.Value) error {
	if r.closed || r.cursor == nil {
		return io.EOF
	}

	row, err := r.cursor.NextRow()
	if err != nil {
		return err
	}
	if row == nil {
		return io.EOF
	}

	// Get data for each column
	for i := 0; i < len(dest); i++ {
		val, err := r.getColumnData(row, SQLUSMALLINT(i+1))
		if err != nil {
			return err
		}
		dest[i] = val
	}

	return nil
}

// getColumnData retrieves data for a single column of the current row
func (r *Rows) getColumnData(row *RowHandle, colNum SQLUSMALLINT) (interface{}, error) {
	idx := int(colNum) - 1
	if idx < 0 || idx >= len(r.colTypes) {
		return nil, nil
	}

	colType := r.colTypes[idx]

	switch colType {
	case SQL_BIT:
		return r.getBool(row, colNum)
	case SQL_TINYINT:
		return r.getInt8(row, colNum)
	case SQL_SMALLINT:
		return r.getInt16(row, colNum)
	case SQL_INTEGER:
		return r.getInt32(row, colNum)
	case SQL_BIGINT:
		return r.getInt64(row, colNum)
	case SQL_REAL:
		return r.getFloat32(row, colNum)
	case SQL_FLOAT, SQL_DOUBLE:
		return r.getFloat64(row, colNum)
	case SQL_NUMERIC, SQL_DECIMAL:
		// Get as string and parse
		return r.getString(row, colNum)
	case SQL_CHAR, SQL_VARCHAR, SQL_LONGVARCHAR:
		return r.getString(row, colNum)
	case SQL_WCHAR, SQL_WVARCHAR, SQL_WLONGVARCHAR:
		return r.getWideString(row, colNum)
	case SQL_BINARY, SQL_VARBINARY, SQL_LONGVARBINARY:
		return r.getBinary(row, colNum)
	case SQL_TYPE_DATE:
		return r.getDate(row, colNum)
	case SQL_TYPE_TIME:
		return r.getTime(row, colNum)
	case SQL_TYPE_TIMESTAMP, SQL_DATETIME:
		return r.getTimestamp(row, colNum)
	case SQL_GUID:
		return r.getGUID(row, colNum)
	default:
		// Default to string
		return r.getString(row, colNum)
	}
}

func (r *Rows) getBool(row *RowHandle, colNum SQLUSMALLINT) (interface{}, error) {
	buf := make([]byte, 1)
	ind, err := row.GetData(int(colNum), SQL_C_BIT, buf)
	if err != nil {
		return nil, err
	}
	if ind.IsNull() {
		return nil, nil
	}
	return buf[0] != 0, nil
}

func (r *Rows) getInt8(row *RowHandle, colNum SQLUSMALLINT) (interface{}, error) {
	buf := make([]byte, 1)
	ind, err := row.GetData(int(colNum), SQL_C_STINYINT, buf)
	if err != nil {
		return nil, err
	}
	if ind.IsNull() {
		return nil, nil
	}
	return int64(*(*int8)(unsafe.Pointer(&buf[0]))), nil
}

func (r *Rows) getInt16(row *RowHandle, colNum SQLUSMALLINT) (interface{}, error) {
	buf := make([]byte, 2)
	ind, err := row.GetData(int(colNum), SQL_C_SSHORT, buf)
	if err != nil {
		return nil, err
	}
	if ind.IsNull() {
		return nil, nil
	}
	return int64(*(*int16)(unsafe.Pointer(&buf[0]))), nil
}

func (r *Rows) getInt32(row *RowHandle, colNum SQLUSMALLINT) (interface{}, error) {
	buf := make([]byte, 4)
	ind, err := row.GetData(int(colNum), SQL_C_SLONG, buf)
	if err != nil {
		return nil, err
	}
	if ind.IsNull() {
		return nil, nil
	}
	return int64(*(*int32)(unsafe.Pointer(&buf[0]))), nil
}

func (r *Rows) getInt64(row *RowHandle, colNum SQLUSMALLINT) (interface{}, error) {
	buf := make([]byte, 8)
	ind, err := row.GetData(int(colNum), SQL_C_SBIGINT, buf)
	if err != nil {
		return nil, err
	}
	if ind.IsNull() {
		return nil, nil
	}
	return *(*int64)(unsafe.Pointer(&buf[0])), nil
}

func (r *Rows) getFloat32(row *RowHandle, colNum SQLUSMALLINT) (interface{}, error) {
	buf := make([]byte, 4)
	ind, err := row.GetData(int(colNum), SQL_C_FLOAT, buf)
	if err != nil {
		return nil, err
	}
	if ind.IsNull() {
		return nil, nil
	}
	return float64(*(*float32)(unsafe.Pointer(&buf[0]))), nil
}

func (r *Rows) getFloat64(row *RowHandle, colNum SQLUSMALLINT) (interface{}, error) {
	buf := make([]byte, 8)
	ind, err := row.GetData(int(colNum), SQL_C_DOUBLE, buf)
	if err != nil {
		return nil, err
	}
	if ind.IsNull() {
		return nil, nil
	}
	return *(*float64)(unsafe.Pointer(&buf[0])), nil
}

// getString retrieves a narrow-text value, delegating the
// grow-and-retry streaming protocol entirely to RowHandle.GetText.
func (r *Rows) getString(row *RowHandle, colNum SQLUSMALLINT) (interface{}, error) {
	b, ok, err := row.GetText(int(colNum))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return string(b), nil
}

// getBinary retrieves a binary value via RowHandle.GetBinary.
func (r *Rows) getBinary(row *RowHandle, colNum SQLUSMALLINT) (interface{}, error) {
	b, ok, err := row.GetBinary(int(colNum))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return b, nil
}

func (r *Rows) getDate(row *RowHandle, colNum SQLUSMALLINT) (interface{}, error) {
	var date SQL_DATE_STRUCT
	buf := make([]byte, unsafe.Sizeof(date))
	ind, err := row.GetData(int(colNum), SQL_C_DATE, buf)
	if err != nil {
		return nil, err
	}
	if ind.IsNull() {
		return nil, nil
	}
	date = *(*SQL_DATE_STRUCT)(unsafe.Pointer(&buf[0]))
	return time.Date(int(date.Year), time.Month(date.Month), int(date.Day), 0, 0, 0, 0, time.UTC), nil
}

func (r *Rows) getTime(row *RowHandle, colNum SQLUSMALLINT) (interface{}, error) {
	var t SQL_TIME_STRUCT
	buf := make([]byte, unsafe.Sizeof(t))
	ind, err := row.GetData(int(colNum), SQL_C_TIME, buf)
	if err != nil {
		return nil, err
	}
	if ind.IsNull() {
		return nil, nil
	}
	t = *(*SQL_TIME_STRUCT)(unsafe.Pointer(&buf[0]))
	return time.Date(0, 1, 1, int(t.Hour), int(t.Minute), int(t.Second), 0, time.UTC), nil
}

func (r *Rows) getTimestamp(row *RowHandle, colNum SQLUSMALLINT) (interface{}, error) {
	var ts SQL_TIMESTAMP_STRUCT
	buf := make([]byte, unsafe.Sizeof(ts))
	ind, err := row.GetData(int(colNum), SQL_C_TIMESTAMP, buf)
	if err != nil {
		return nil, err
	}
	if ind.IsNull() {
		return nil, nil
	}
	ts = *(*SQL_TIMESTAMP_STRUCT)(unsafe.Pointer(&buf[0]))
	// Fraction is in billionths of a second, convert to nanoseconds
	nanos := int(ts.Fraction)
	return time.Date(int(ts.Year), time.Month(ts.Month), int(ts.Day),
		int(ts.Hour), int(ts.Minute), int(ts.Second), nanos, time.UTC), nil
}

// getWideString retrieves a wide character (UTF-16) string, reusing
// RowHandle's internal variadic streaming loop with a 2-byte (UTF-16
// null) terminator unit, and converts the result to UTF-8.
func (r *Rows) getWideString(row *RowHandle, colNum SQLUSMALLINT) (interface{}, error) {
	b, ok, err := row.getVariadic(int(colNum), SQL_C_WCHAR, 2)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = uint16(b[2*i]) | uint16(b[2*i+1])<<8
	}
	return utf16ToString(units), nil
}

// utf16ToString converts a UTF-16 encoded slice to a UTF-8 string
func utf16ToString(u []uint16) string {
	// Convert UTF-16 to runes, then to string
	runes := make([]rune, 0, len(u))
	for i := 0; i < len(u); i++ {
		r := u[i]
		if r >= 0xD800 && r <= 0xDBFF && i+1 < len(u) {
			// High surrogate - check for low surrogate
			r2 := u[i+1]
			if r2 >= 0xDC00 && r2 <= 0xDFFF {
				// Valid surrogate pair - decode to rune
				runes = append(runes, rune(((int(r)-0xD800)<<10)+(int(r2)-0xDC00)+0x10000))
				i++
				continue
			}
		}
		runes = append(runes, rune(r))
	}
	return string(runes)
}

// getGUID retrieves a GUID value as a formatted string
func (r *Rows) getGUID(row *RowHandle, colNum SQLUSMALLINT) (interface{}, error) {
	var guid SQL_GUID_STRUCT
	buf := make([]byte, unsafe.Sizeof(guid))
	ind, err := row.GetData(int(colNum), SQL_C_GUID, buf)
	if err != nil {
		return nil, err
	}
	if ind.IsNull() {
		return nil, nil
	}
	guid = *(*SQL_GUID_STRUCT)(unsafe.Pointer(&buf[0]))
	return guid.String(), nil
}

// ColumnTypeScanType returns the Go type suitable for scanning into
func (r *Rows) ColumnTypeScanType(index int) reflect.Type {
	if index < 0 || index >= len(r.colTypes) {
		return reflect.TypeOf(new(interface{})).Elem()
	}

	switch r.colTypes[index] {
	case SQL_BIT:
		return reflect.TypeOf(false)
	case SQL_TINYINT, SQL_SMALLINT, SQL_INTEGER, SQL_BIGINT:
		return reflect.TypeOf(int64(0))
	case SQL_REAL:
		return reflect.TypeOf(float32(0))
	case SQL_FLOAT, SQL_DOUBLE:
		return reflect.TypeOf(float64(0))
	case SQL_NUMERIC, SQL_DECIMAL:
		return reflect.TypeOf("") // String preserves decimal precision
	case SQL_CHAR, SQL_VARCHAR, SQL_LONGVARCHAR, SQL_WCHAR, SQL_WVARCHAR, SQL_WLONGVARCHAR:
		return reflect.TypeOf("")
	case SQL_BINARY, SQL_VARBINARY, SQL_LONGVARBINARY:
		return reflect.TypeOf([]byte{})
	case SQL_TYPE_DATE, SQL_TYPE_TIME, SQL_TYPE_TIMESTAMP, SQL_DATETIME:
		return reflect.TypeOf(time.Time{})
	default:
		return reflect.TypeOf(new(interface{})).Elem()
	}
}

// ColumnTypeDatabaseTypeName returns the database type name
func (r *Rows) ColumnTypeDatabaseTypeName(index int) string {
	if index < 0 || index >= len(r.colTypes) {
		return ""
	}

	switch r.colTypes[index] {
	case SQL_CHAR:
		return "CHAR"
	case SQL_VARCHAR:
		return "VARCHAR"
	case SQL_LONGVARCHAR:
		return "TEXT"
	case SQL_WCHAR:
		return "NCHAR"
	case SQL_WVARCHAR:
		return "NVARCHAR"
	case SQL_WLONGVARCHAR:
		return "NTEXT"
	case SQL_DECIMAL:
		return "DECIMAL"
	case SQL_NUMERIC:
		return "NUMERIC"
	case SQL_SMALLINT:
		return "SMALLINT"
	case SQL_INTEGER:
		return "INTEGER"
	case SQL_REAL:
		return "REAL"
	case SQL_FLOAT:
		return "FLOAT"
	case SQL_DOUBLE:
		return "DOUBLE"
	case SQL_BIT:
		return "BIT"
	case SQL_TINYINT:
		return "TINYINT"
	case SQL_BIGINT:
		return "BIGINT"
	case SQL_BINARY:
		return "BINARY"
	case SQL_VARBINARY:
		return "VARBINARY"
	case SQL_LONGVARBINARY:
		return "BLOB"
	case SQL_TYPE_DATE:
		return "DATE"
	case SQL_TYPE_TIME:
		return "TIME"
	case SQL_TYPE_TIMESTAMP, SQL_DATETIME:
		return "TIMESTAMP"
	case SQL_GUID:
		return "GUID"
	default:
		return "UNKNOWN"
	}
}

// ColumnTypeLength returns the length of a column
func (r *Rows) ColumnTypeLength(index int) (length int64, ok bool) {
	if index < 0 || index >= len(r.colSizes) {
		return 0, false
	}
	// Only return length for variable-length types
	switch r.colTypes[index] {
	case SQL_CHAR, SQL_VARCHAR, SQL_LONGVARCHAR, SQL_WCHAR, SQL_WVARCHAR, SQL_WLONGVARCHAR,
		SQL_BINARY, SQL_VARBINARY, SQL_LONGVARBINARY:
		return int64(r.colSizes[index]), true
	}
	return 0, false
}

// ColumnTypeNullable returns whether a column is nullable
func (r *Rows) ColumnTypeNullable(index int) (nullable, ok bool) {
	if index < 0 || index >= len(r.nullable) {
		return false, false
	}
	switch r.nullable[index] {
	case SQL_NO_NULLS:
		return false, true
	case SQL_NULLABLE:
		return true, true
	default:
		return false, false // Unknown
	}
}

// ColumnTypePrecisionScale returns the precision and scale for NUMERIC/DECIMAL types
func (r *Rows) ColumnTypePrecisionScale(index int) (precision, scale int64, ok bool) {
	if index < 0 || index >= len(r.colTypes) {
		return 0, 0, false
	}
	switch r.colTypes[index] {
	case SQL_NUMERIC, SQL_DECIMAL:
		// colSize = precision (total digits), decDigits = scale (digits after decimal)
		return int64(r.colSizes[index]), int64(r.decDigits[index]), true
	default:
		return 0, 0, false
	}
}

// HasNextResultSet checks if there are more result sets
func (r *Rows) HasNextResultSet() bool {
	if r.cursor == nil {
		return false
	}
	return MoreResults(r.cursor.stmt) == SQL_SUCCESS
}

// NextResultSet advances to the next result set
func (r *Rows) NextResultSet() error {
	if r.cursor == nil {
		return io.EOF
	}
	cur, err := r.cursor.MoreResults()
	if err != nil {
		return err
	}
	if cur == nil {
		return io.EOF
	}

	// Re-fetch column info for new result set
	var numCols SQLSMALLINT
	ret := NumResultCols(r.cursor.stmt, &numCols)
	if !IsSuccess(ret) {
		return NewError(SQL_HANDLE_STMT, SQLHANDLE(r.cursor.stmt))
	}

	columns, colTypes, colSizes, decDigits, nullable, err := describeColumns(r.cursor.stmt, numCols)
	if err != nil {
		return err
	}

	r.columns = columns
	r.colTypes = colTypes
	r.colSizes = colSizes
	r.decDigits = decDigits
	r.nullable = nullable

	return nil
}

// Ensure Rows implements the required interfaces
var (
	_ driver.Rows                           = (*Rows)(nil)
	_ driver.RowsColumnTypeScanType         = (*Rows)(nil)
	_ driver.RowsColumnTypeDatabaseTypeName = (*Rows)(nil)
	_ driver.RowsColumnTypeLength           = (*Rows)(nil)
	_ driver.RowsColumnTypeNullable         = (*Rows)(nil)
	_ driver.RowsColumnTypePrecisionScale   = (*Rows)(nil)
	_ driver.RowsNextResultSet              = (*Rows)(nil)
)
