package odbcbulk

// InputParameterMapping supplies the correspondence between SQL
// placeholder position (one-based) and bound column-buffer index
// (zero-based). The default, Identity, reuses placeholder i for buffer
// i-1; a non-identity mapping lets one buffer back multiple occurrences
// of the same value in the SQL text.
type InputParameterMapping interface {
	NumParameters() int
	ParameterIndexToColumnIndex(paramIdx int) int
}

// IdentityMapping is the one-to-one InputParameterMapping: placeholder i
// (one-based) binds buffer i-1 (zero-based).
type IdentityMapping struct{ N int }

func (m IdentityMapping) NumParameters() int { return m.N }
func (m IdentityMapping) ParameterIndexToColumnIndex(paramIdx int) int {
	return paramIdx - 1
}

// BulkInserter owns a prepared statement and a set of parameter column
// buffers, and streams batches of rows through repeated Execute calls.
type BulkInserter struct {
	stmt     *PreparedStatement
	buffers  []*ColumnBuffer
	mapping  InputParameterMapping
	capacity int
	numRows  int
}

// NewBulkInserter allocates one column buffer per description and binds
// them as input parameters to stmt, one per placeholder in declaration
// order.
func NewBulkInserter(stmt *PreparedStatement, descs []BufferDesc, capacity int) (*BulkInserter, error) {
	buffers := make([]*ColumnBuffer, len(descs))
	for i, d := range descs {
		buf, err := NewColumnBuffer(i+1, d, capacity)
		if err != nil {
			return nil, err
		}
		buffers[i] = buf
	}
	return newBoundBulkInserter(stmt, buffers, IdentityMapping{N: len(buffers)})
}

// NewBulkInserterFromBuffers builds a BulkInserter over externally
// supplied column buffers, with identity parameter-index mapping. All
// buffers must share the same capacity.
func NewBulkInserterFromBuffers(stmt *PreparedStatement, buffers []*ColumnBuffer) (*BulkInserter, error) {
	return newBoundBulkInserter(stmt, buffers, IdentityMapping{N: len(buffers)})
}

// NewBulkInserterWithMapping builds a BulkInserter over externally
// supplied column buffers using a caller-supplied parameter mapping.
func NewBulkInserterWithMapping(stmt *PreparedStatement, buffers []*ColumnBuffer, mapping InputParameterMapping) (*BulkInserter, error) {
	return newBoundBulkInserter(stmt, buffers, mapping)
}

func newBoundBulkInserter(stmt *PreparedStatement, buffers []*ColumnBuffer, mapping InputParameterMapping) (*BulkInserter, error) {
	capacity := 0
	if len(buffers) > 0 {
		capacity = buffers[0].Capacity()
	}
	bi := &BulkInserter{stmt: stmt, buffers: buffers, mapping: mapping, capacity: capacity}
	if err := bi.bindParameters(); err != nil {
		return nil, err
	}
	return bi, nil
}

// bindParameters binds every SQL placeholder to its mapped buffer via
// SQLBindParameter with column-wise parameter binding. A failure partway
// resets every parameter already bound on the statement.
func (bi *BulkInserter) bindParameters() error {
	h := bi.stmt.Handle()
	if ret := SetStmtAttr(h, SQL_ATTR_PARAM_BIND_TYPE, SQL_PARAM_BIND_BY_COLUMN, 0); !IsSuccess(ret) {
		return NewError(SQL_HANDLE_STMT, SQLHANDLE(h))
	}
	n := bi.mapping.NumParameters()
	for paramIdx := 1; paramIdx <= n; paramIdx++ {
		bufIdx := bi.mapping.ParameterIndexToColumnIndex(paramIdx)
		buf := bi.buffers[bufIdx]
		desc := buf.Desc()
		colSize := SQLULEN(desc.MaxLen)
		if !desc.Kind.isVariadic() {
			colSize = 0
		}
		ret := BindParameter(h, SQLUSMALLINT(paramIdx), SQL_PARAM_INPUT, desc.Kind.cType(), desc.Kind.defaultSQLType(),
			colSize, 0, buf.ValuePtr(), SQLLEN(buf.ElementStride()), buf.IndicatorPtr())
		if !IsSuccess(ret) {
			for j := 1; j < paramIdx; j++ {
				BindParameter(h, SQLUSMALLINT(j), SQL_PARAM_INPUT, SQL_C_DEFAULT, SQL_VARCHAR, 0, 0, 0, 0, nil)
			}
			return NewError(SQL_HANDLE_STMT, SQLHANDLE(h))
		}
	}
	return nil
}

// Capacity returns the maximum batch size the inserter's buffers hold.
func (bi *BulkInserter) Capacity() int { return bi.capacity }

// Column returns the column buffer backing parameter buffer index i for
// filling.
func (bi *BulkInserter) Column(i int) *ColumnBuffer { return bi.buffers[i] }

// SetNumRows declares how many rows of the buffers are valid for the
// next Execute. Must be ≤ Capacity().
func (bi *BulkInserter) SetNumRows(k int) error {
	if k < 0 || k > bi.capacity {
		return &Error{SQLState: "HY090", Message: "SetNumRows: row count out of range"}
	}
	bi.numRows = k
	return nil
}

// Execute sets the parameter-set-size attribute to the declared row
// count and runs the statement. If numRows is zero, no call is issued
// and (nil, nil) is returned, per spec.
func (bi *BulkInserter) Execute() (*Cursor, error) {
	if bi.numRows == 0 {
		return nil, nil
	}
	for _, buf := range bi.buffers {
		if _, truncated := buf.HasTruncation(bi.numRows); truncated {
			panic("odbcbulk: BulkInserter.Execute called with a truncated input buffer")
		}
	}
	h := bi.stmt.Handle()
	if ret := SetStmtAttr(h, SQL_ATTR_PARAMSET_SIZE, uintptr(bi.numRows), 0); !IsSuccess(ret) {
		return nil, NewError(SQL_HANDLE_STMT, SQLHANDLE(h))
	}
	return bi.stmt.Execute()
}

// Clear resets the declared valid-row count to zero.
func (bi *BulkInserter) Clear() { bi.numRows = 0 }

// Resize rebuilds the inserter with resized buffers of newCapacity,
// preserving valid rows truncated to min(old valid rows, newCapacity).
// The returned inserter replaces this one; its buffers have been
// rebound to the statement.
func (bi *BulkInserter) Resize(newCapacity int, mapping InputParameterMapping) (*BulkInserter, error) {
	if mapping == nil {
		mapping = bi.mapping
	}
	newBuffers := make([]*ColumnBuffer, len(bi.buffers))
	preserve := bi.numRows
	if preserve > newCapacity {
		preserve = newCapacity
	}
	for i, old := range bi.buffers {
		nb, err := NewColumnBuffer(old.Column(), old.Desc(), newCapacity)
		if err != nil {
			return nil, err
		}
		for r := 0; r < preserve; r++ {
			if old.Desc().Kind.isVariadic() {
				if v, ok := old.ValueAt(r); ok {
					nb.SetValue(r, v)
				} else {
					nb.SetValue(r, nil)
				}
			} else {
				copy(nb.data[r*nb.stride:(r+1)*nb.stride], old.data[r*old.stride:(r+1)*old.stride])
				if old.HasIndicator() {
					nb.SetIndicator(r, old.IndicatorAt(r))
				}
			}
		}
		newBuffers[i] = nb
	}
	resized, err := newBoundBulkInserter(bi.stmt, newBuffers, mapping)
	if err != nil {
		return nil, err
	}
	resized.numRows = preserve
	return resized, nil
}

// TextAppender is a specialization convenience for a narrow-text column
// buffer that grows its per-row max length on demand as values are
// appended, rebinding to the statement as needed.
type TextAppender struct {
	inserter *BulkInserter
	colIndex int
}

// TextAppender returns a TextAppender over column buffer i, which must
// be a Text-kind buffer.
func (bi *BulkInserter) TextAppender(i int) *TextAppender {
	if bi.buffers[i].Desc().Kind != KindText {
		panic("odbcbulk: TextAppender requires a Text column buffer")
	}
	return &TextAppender{inserter: bi, colIndex: i}
}

// Append writes values starting at row 0, growing the buffer's max
// element length as needed and rebinding the inserter's parameters
// afterward if growth occurred. A nil entry writes NULL.
func (a *TextAppender) Append(values [][]byte) error {
	buf := a.inserter.buffers[a.colIndex]
	grew := false
	for _, v := range values {
		if v != nil && len(v) > buf.Desc().MaxLen {
			buf.EnsureMaxElementLength(len(v), len(values))
			grew = true
		}
	}
	for i, v := range values {
		buf.SetValue(i, v)
	}
	if grew {
		return a.inserter.bindParameters()
	}
	return nil
}
