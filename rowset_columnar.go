package odbcbulk

import (
	"fmt"
	"unsafe"
)

// ColumnBufferPair names the one-based result-set (or parameter) column
// index a buffer description should be bound at.
type ColumnBufferPair struct {
	ColIndex int
	Desc     BufferDesc
}

type columnarEntry struct {
	colIndex int
	buffer   *ColumnBuffer
}

// ColumnarRowSetBuffer is a columnar (column-wise) row-set buffer: an
// ordered set of (column index, column buffer) pairs sharing one
// "rows fetched" counter cell, whose stable address is handed to the
// driver for the lifetime of the binding.
type ColumnarRowSetBuffer struct {
	capacity    int
	columns     []columnarEntry
	rowsFetched SQLULEN
}

// NewColumnarRowSetBuffer builds a buffer with one column per
// description, bound at consecutive column indices starting at 1.
func NewColumnarRowSetBuffer(descs []BufferDesc, capacity int) (*ColumnarRowSetBuffer, error) {
	pairs := make([]ColumnBufferPair, len(descs))
	for i, d := range descs {
		pairs[i] = ColumnBufferPair{ColIndex: i + 1, Desc: d}
	}
	return NewColumnarRowSetBufferFromPairs(pairs, capacity)
}

// MustNewColumnarRowSetBuffer is the infallible counterpart of
// NewColumnarRowSetBuffer.
func MustNewColumnarRowSetBuffer(descs []BufferDesc, capacity int) *ColumnarRowSetBuffer {
	rb, err := NewColumnarRowSetBuffer(descs, capacity)
	if err != nil {
		panic(err)
	}
	return rb
}

// NewColumnarRowSetBufferFromPairs builds a buffer from explicit
// (column index, description) pairs, permitting result-set columns to
// be skipped. Duplicate column indices are rejected.
func NewColumnarRowSetBufferFromPairs(pairs []ColumnBufferPair, capacity int) (*ColumnarRowSetBuffer, error) {
	rb := &ColumnarRowSetBuffer{capacity: capacity}
	seen := make(map[int]bool, len(pairs))
	for _, p := range pairs {
		if seen[p.ColIndex] {
			return nil, fmt.Errorf("odbcbulk: duplicate column index %d in columnar row-set buffer", p.ColIndex)
		}
		seen[p.ColIndex] = true
		buf, err := NewColumnBuffer(p.ColIndex, p.Desc, capacity)
		if err != nil {
			return nil, err
		}
		rb.columns = append(rb.columns, columnarEntry{colIndex: p.ColIndex, buffer: buf})
	}
	return rb, nil
}

// MustNewColumnarRowSetBufferFromPairs is the infallible counterpart of
// NewColumnarRowSetBufferFromPairs.
func MustNewColumnarRowSetBufferFromPairs(pairs []ColumnBufferPair, capacity int) *ColumnarRowSetBuffer {
	rb, err := NewColumnarRowSetBufferFromPairs(pairs, capacity)
	if err != nil {
		panic(err)
	}
	return rb
}

// Capacity returns the row-array size the buffer was constructed with.
func (rb *ColumnarRowSetBuffer) Capacity() int { return rb.capacity }

// RowsFetched returns the number of valid rows in the most recent fetch.
func (rb *ColumnarRowSetBuffer) RowsFetched() int { return int(rb.rowsFetched) }

// ColumnAt returns the buffer bound to the given column index.
func (rb *ColumnarRowSetBuffer) ColumnAt(colIndex int) (*ColumnBuffer, bool) {
	for _, e := range rb.columns {
		if e.colIndex == colIndex {
			return e.buffer, true
		}
	}
	return nil, false
}

// Columns returns every buffer in insertion order.
func (rb *ColumnarRowSetBuffer) Columns() []*ColumnBuffer {
	out := make([]*ColumnBuffer, len(rb.columns))
	for i, e := range rb.columns {
		out[i] = e.buffer
	}
	return out
}

// BindAll sets the statement's columnar-binding attributes and binds
// every column buffer in turn. If binding column k fails, columns
// 0..k-1 are unbound before the error is returned, leaving the
// statement with no dangling bound buffers.
func (rb *ColumnarRowSetBuffer) BindAll(stmt SQLHSTMT) error {
	if ret := SetStmtAttr(stmt, SQL_ATTR_ROW_BIND_TYPE, uintptr(SQL_BIND_BY_COLUMN), 0); !IsSuccess(ret) {
		return NewError(SQL_HANDLE_STMT, SQLHANDLE(stmt))
	}
	if ret := SetStmtAttr(stmt, SQL_ATTR_ROW_ARRAY_SIZE, uintptr(rb.capacity), 0); !IsSuccess(ret) {
		return remapRowArraySizeError(rb.capacity, GetDiagRecords(SQL_HANDLE_STMT, SQLHANDLE(stmt)))
	}
	if ret := SetStmtAttr(stmt, SQL_ATTR_ROWS_FETCHED_PTR, uintptr(unsafe.Pointer(&rb.rowsFetched)), 0); !IsSuccess(ret) {
		return NewError(SQL_HANDLE_STMT, SQLHANDLE(stmt))
	}
	for i, e := range rb.columns {
		ret := BindCol(stmt, SQLUSMALLINT(e.colIndex), e.buffer.Desc().Kind.cType(), e.buffer.ValuePtr(), SQLLEN(e.buffer.ElementStride()), e.buffer.IndicatorPtr())
		if !IsSuccess(ret) {
			for j := 0; j < i; j++ {
				BindCol(stmt, SQLUSMALLINT(rb.columns[j].colIndex), SQL_C_DEFAULT, 0, 0, nil)
			}
			return NewError(SQL_HANDLE_STMT, SQLHANDLE(stmt))
		}
	}
	return nil
}

// Unbind removes the statement's references to every bound column and
// clears the rows-fetched counter pointer. Best-effort: individual
// SQLBindCol failures during unbind are not surfaced, matching the
// destructor policy of swallowing errors encountered while tearing down.
func (rb *ColumnarRowSetBuffer) Unbind(stmt SQLHSTMT) {
	for _, e := range rb.columns {
		BindCol(stmt, SQLUSMALLINT(e.colIndex), SQL_C_DEFAULT, 0, 0, nil)
	}
	SetStmtAttr(stmt, SQL_ATTR_ROWS_FETCHED_PTR, 0, 0)
}

// CheckTruncation scans every column for a truncated value within the
// current rows-fetched count, returning the first one found.
func (rb *ColumnarRowSetBuffer) CheckTruncation() (int, Indicator, bool) {
	rows := int(rb.rowsFetched)
	for _, e := range rb.columns {
		if ind, truncated := e.buffer.HasTruncation(rows); truncated {
			return e.colIndex, ind, true
		}
	}
	return 0, Indicator{}, false
}

// FillDefault pads every column's rows in [validRows, Capacity()) with
// the appropriate default so the buffer remains safe to rebind with a
// parameter-set size larger than the actual batch.
func (rb *ColumnarRowSetBuffer) FillDefault(validRows int) {
	for _, e := range rb.columns {
		e.buffer.FillDefault(validRows)
	}
}

// ColumnarBatchView is a read-only view over the rows fetched into a
// ColumnarRowSetBuffer, bounded to the rows-fetched count observed at
// the time the view was taken.
type ColumnarBatchView struct {
	owner *ColumnarRowSetBuffer
	rows  int
}

// View snapshots the current rows-fetched count into a batch view.
func (rb *ColumnarRowSetBuffer) View() *ColumnarBatchView {
	return &ColumnarBatchView{owner: rb, rows: int(rb.rowsFetched)}
}

// Rows returns the number of valid rows in this view.
func (v *ColumnarBatchView) Rows() int { return v.rows }

// Column returns the buffer bound at the given column index.
func (v *ColumnarBatchView) Column(colIndex int) (*ColumnBuffer, bool) {
	return v.owner.ColumnAt(colIndex)
}
