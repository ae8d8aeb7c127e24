package odbcbulk

import "unsafe"

// RowLayout is the contract a fixed-size, bit-copyable row struct
// implements to participate in row-wise binding. BindMembers binds each
// member as a column at consecutive column indices, using the member's
// byte offset from firstRowPtr; the driver derives subsequent row
// addresses by adding the row's size, once SQL_ATTR_ROW_BIND_TYPE names
// that size.
type RowLayout interface {
	BindMembers(stmt SQLHSTMT, firstRowPtr uintptr) error
}

// TruncationReporter is implemented by row types carrying variadic
// members, to report whether any of those members holds a truncated
// value. Row types with only fixed-width members need not implement it.
type TruncationReporter interface {
	Truncation() (Indicator, bool)
}

// RowWiseRowSetBuffer is a row-wise row-set buffer: a contiguous slice
// of identically laid out rows sharing one rows-fetched counter cell.
// Only the first row is bound; the driver walks subsequent rows by
// adding sizeof(R) to the bound addresses.
type RowWiseRowSetBuffer[R RowLayout] struct {
	data        []R
	rowsFetched SQLULEN
}

// NewRowWiseRowSetBuffer allocates a buffer of capacity identical rows.
func NewRowWiseRowSetBuffer[R RowLayout](capacity int) *RowWiseRowSetBuffer[R] {
	return &RowWiseRowSetBuffer[R]{data: make([]R, capacity)}
}

// Capacity returns the number of rows the buffer can hold.
func (rb *RowWiseRowSetBuffer[R]) Capacity() int { return len(rb.data) }

// RowsFetched returns the number of valid rows in the most recent fetch.
func (rb *RowWiseRowSetBuffer[R]) RowsFetched() int { return int(rb.rowsFetched) }

// RowAt returns a pointer to row i for in-place filling or inspection.
func (rb *RowWiseRowSetBuffer[R]) RowAt(i int) *R { return &rb.data[i] }

// Batch returns the valid prefix of the buffer, per the last fetch.
func (rb *RowWiseRowSetBuffer[R]) Batch() []R { return rb.data[:rb.rowsFetched] }

// BindAll sets the row-wise binding attributes — row size, row array
// size, rows-fetched pointer — and delegates member binding to the
// first row's BindMembers.
func (rb *RowWiseRowSetBuffer[R]) BindAll(stmt SQLHSTMT) error {
	var zero R
	rowSize := int(unsafe.Sizeof(zero))
	if ret := SetStmtAttr(stmt, SQL_ATTR_ROW_BIND_TYPE, uintptr(rowSize), 0); !IsSuccess(ret) {
		return NewError(SQL_HANDLE_STMT, SQLHANDLE(stmt))
	}
	if ret := SetStmtAttr(stmt, SQL_ATTR_ROW_ARRAY_SIZE, uintptr(len(rb.data)), 0); !IsSuccess(ret) {
		return remapRowArraySizeError(len(rb.data), GetDiagRecords(SQL_HANDLE_STMT, SQLHANDLE(stmt)))
	}
	if ret := SetStmtAttr(stmt, SQL_ATTR_ROWS_FETCHED_PTR, uintptr(unsafe.Pointer(&rb.rowsFetched)), 0); !IsSuccess(ret) {
		return NewError(SQL_HANDLE_STMT, SQLHANDLE(stmt))
	}
	if len(rb.data) == 0 {
		return nil
	}
	firstRowPtr := uintptr(unsafe.Pointer(&rb.data[0]))
	return rb.data[0].BindMembers(stmt, firstRowPtr)
}

// Unbind clears the rows-fetched counter pointer. It does not unbind
// the columns that BindAll bound through the RowLayout; those bindings
// stay on the statement.
func (rb *RowWiseRowSetBuffer[R]) Unbind(stmt SQLHSTMT) {
	SetStmtAttr(stmt, SQL_ATTR_ROWS_FETCHED_PTR, 0, 0)
}

// Truncation reports the first truncated variadic member across the
// valid batch, for row types implementing TruncationReporter. Row types
// that don't implement it are reported as never truncated.
func (rb *RowWiseRowSetBuffer[R]) Truncation() (Indicator, bool) {
	for i := 0; i < int(rb.rowsFetched); i++ {
		reporter, ok := any(rb.data[i]).(TruncationReporter)
		if !ok {
			return Indicator{}, false
		}
		if ind, truncated := reporter.Truncation(); truncated {
			return ind, true
		}
	}
	return Indicator{}, false
}

// CheckTruncation reports the first truncated row found via Truncation,
// with buffer index always 0 since a row-wise buffer truncates as a
// whole row rather than a specific column buffer.
func (rb *RowWiseRowSetBuffer[R]) CheckTruncation() (int, Indicator, bool) {
	if ind, truncated := rb.Truncation(); truncated {
		return 0, ind, true
	}
	return 0, Indicator{}, false
}

// BindRowColumn is a helper for RowLayout.BindMembers implementations:
// it binds the column at colIndex to the member at valueOffset bytes
// from firstRowPtr, with an optional indicator member at
// indicatorOffset (pass -1 when the member carries no indicator).
func BindRowColumn(stmt SQLHSTMT, colIndex int, cType SQLSMALLINT, firstRowPtr uintptr, valueOffset uintptr, valueSize int, indicatorOffset int) error {
	valPtr := firstRowPtr + valueOffset
	var indPtr *SQLLEN
	if indicatorOffset >= 0 {
		indPtr = (*SQLLEN)(unsafe.Pointer(firstRowPtr + uintptr(indicatorOffset)))
	}
	ret := BindCol(stmt, SQLUSMALLINT(colIndex), cType, valPtr, SQLLEN(valueSize), indPtr)
	if !IsSuccess(ret) {
		return NewError(SQL_HANDLE_STMT, SQLHANDLE(stmt))
	}
	return nil
}
