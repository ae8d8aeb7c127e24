package odbcbulk

import "unsafe"

// cursorState tracks the statement-handle lifecycle spec.md §4.5.1
// describes: allocated → (optionally) prepared → executing →
// cursor-open → cursor-closed → freed. This library only needs to
// distinguish the states that change which operations are legal:
// binding is legal in cursorAllocated/cursorOpen, fetch only in
// cursorOpen.
type cursorState int

const (
	cursorAllocated cursorState = iota
	cursorOpen
	cursorClosed
	cursorFreed
)

// Cursor is a borrow of a statement handle in the cursor-open state,
// offering single-row streaming access and the transition into a
// BlockCursor via BindBuffer.
type Cursor struct {
	stmt       SQLHSTMT
	state      cursorState
	ownsHandle bool
}

// RowHandle is the short-lived value next_row hands back: a view onto
// the statement's current fetched row, offering typed GetData and the
// streaming get-text/get-binary helpers.
type RowHandle struct {
	stmt SQLHSTMT
}

// NextRow issues a single-row fetch. It returns (nil, nil) at
// end-of-result-set.
func (c *Cursor) NextRow() (*RowHandle, error) {
	if c.state != cursorOpen {
		return nil, &Error{SQLState: "HY010", Message: "NextRow called outside cursor-open state"}
	}
	ret := Fetch(c.stmt)
	if ret == SQL_NO_DATA {
		return nil, nil
	}
	if !IsSuccess(ret) {
		return nil, NewError(SQL_HANDLE_STMT, SQLHANDLE(c.stmt))
	}
	return &RowHandle{stmt: c.stmt}, nil
}

// GetData retrieves column col into a single fixed-width value of
// targetType, returning the driver-reported indicator.
func (r *RowHandle) GetData(col int, targetType SQLSMALLINT, buf []byte) (Indicator, error) {
	var ind SQLLEN
	var ptr uintptr
	if len(buf) > 0 {
		ptr = uintptr(unsafe.Pointer(&buf[0]))
	}
	ret := GetData(r.stmt, SQLUSMALLINT(col), targetType, ptr, SQLLEN(len(buf)), &ind)
	if !IsSuccess(ret) && ret != SQL_SUCCESS_WITH_INFO {
		return Indicator{}, NewError(SQL_HANDLE_STMT, SQLHANDLE(r.stmt))
	}
	return IndicatorFromRaw(ind), nil
}

// streamingInitialCapacity is the initial buffer size GetText/GetBinary
// grow from, per spec.md §4.5.1's example (a 32-byte initial buffer).
const streamingInitialCapacity = 32

// GetText streams a narrow-text value out of column col, growing buf
// (doubling on SQL_NO_TOTAL, or to the announced length otherwise) and
// re-issuing SQLGetData on the tail until the indicator reports the
// value complete. Returns the complete payload and true, or false if
// the column was NULL.
func (r *RowHandle) GetText(col int) ([]byte, bool, error) {
	return r.getVariadic(col, SQL_C_CHAR, 1)
}

// GetBinary streams a binary value out of column col with the same
// buffer-growth discipline as GetText.
func (r *RowHandle) GetBinary(col int) ([]byte, bool, error) {
	return r.getVariadic(col, SQL_C_BINARY, 0)
}

// getVariadic implements the shared streaming loop for GetText/GetBinary.
// terminatorUnit is 1 for narrow text (the driver writes a trailing
// NUL we must trim), 0 for binary (no terminator).
func (r *RowHandle) getVariadic(col int, cType SQLSMALLINT, terminatorUnit int) ([]byte, bool, error) {
	buf := make([]byte, streamingInitialCapacity)
	total := 0
	for {
		var ind SQLLEN
		space := len(buf) - total
		if space < 1 {
			buf = append(buf, make([]byte, len(buf))...)
			space = len(buf) - total
		}
		ptr := uintptr(unsafe.Pointer(&buf[total]))
		ret := GetData(r.stmt, SQLUSMALLINT(col), cType, ptr, SQLLEN(space), &ind)
		if ret == SQL_NO_DATA && total == 0 {
			return nil, false, nil
		}
		if !IsSuccess(ret) {
			return nil, false, NewError(SQL_HANDLE_STMT, SQLHANDLE(r.stmt))
		}
		indicator := IndicatorFromRaw(ind)
		if indicator.IsNull() {
			return nil, false, nil
		}
		if indicator.IsNoTotal() {
			// Driver could not report a total; it filled (at most) the
			// space we offered minus the terminator. Grow and retry.
			chunk := space - terminatorUnit
			if chunk < 0 {
				chunk = 0
			}
			total += chunk
			buf = append(buf, make([]byte, len(buf))...)
			continue
		}
		length, _ := indicator.Length()
		written := length
		if written > space-terminatorUnit {
			written = space - terminatorUnit
		}
		total += written
		if length <= space-terminatorUnit {
			return buf[:total], true, nil
		}
		needed := total + (length - written) + terminatorUnit
		if needed > len(buf) {
			grown := make([]byte, needed)
			copy(grown, buf[:total])
			buf = grown
		}
	}
}

// RowSetBuffer is the contract both ColumnarRowSetBuffer and
// RowWiseRowSetBuffer satisfy, letting Cursor.BindBuffer and
// BlockCursor work uniformly over either layout.
type RowSetBuffer interface {
	BindAll(stmt SQLHSTMT) error
	Unbind(stmt SQLHSTMT)
	RowsFetched() int
	CheckTruncation() (bufferIndex int, indicator Indicator, truncated bool)
}

// BindBuffer transitions the cursor to a BlockCursor bound to rb: it
// sets the row-bind-type, row-array-size, and rows-fetched-pointer
// attributes and invokes rb's bind-all operation.
func BindBuffer[T RowSetBuffer](c *Cursor, rb T) (*BlockCursor[T], error) {
	if c.state != cursorOpen && c.state != cursorAllocated {
		return nil, &Error{SQLState: "HY010", Message: "BindBuffer called outside allocated/cursor-open state"}
	}
	if err := rb.BindAll(c.stmt); err != nil {
		return nil, err
	}
	return &BlockCursor[T]{stmt: c.stmt, buffer: rb, ownsHandle: c.ownsHandle}, nil
}

// MoreResults advances to the next result set of a multi-statement
// batch, returning (nil, nil) if there is none.
func (c *Cursor) MoreResults() (*Cursor, error) {
	ret := MoreResults(c.stmt)
	if ret == SQL_NO_DATA {
		return nil, nil
	}
	if !IsSuccess(ret) {
		return nil, NewError(SQL_HANDLE_STMT, SQLHANDLE(c.stmt))
	}
	return c, nil
}

// Close closes the cursor (SQLCloseCursor) and, if this Cursor owns its
// handle (produced by Connection.ExecuteDirect), frees the statement
// handle as well.
func (c *Cursor) Close() error {
	if c.state == cursorFreed {
		return nil
	}
	CloseCursor(c.stmt)
	c.state = cursorClosed
	if c.ownsHandle {
		ret := FreeHandle(SQL_HANDLE_STMT, SQLHANDLE(c.stmt))
		c.state = cursorFreed
		if !IsSuccess(ret) {
			return NewError(SQL_HANDLE_STMT, SQLHANDLE(c.stmt))
		}
	}
	return nil
}
