package odbcbulk

// BlockCursor owns a statement handle (mutably, in spirit — Go has no
// borrow checker, so this is a usage discipline: do not drive the
// underlying Cursor concurrently with a bound BlockCursor) and a
// row-set buffer, and issues batched fetches into it.
type BlockCursor[T RowSetBuffer] struct {
	stmt       SQLHSTMT
	buffer     T
	ownsHandle bool
	done       bool
}

// Fetch issues SQLFetch; the driver writes directly into the row-set
// buffer's bound columns and rows-fetched counter. Returns the buffer
// and true, or the zero value and false at end-of-data.
func (bc *BlockCursor[T]) Fetch() (T, bool, error) {
	var zero T
	if bc.done {
		return zero, false, nil
	}
	ret := Fetch(bc.stmt)
	if ret == SQL_NO_DATA {
		bc.done = true
		return zero, false, nil
	}
	if !IsSuccess(ret) {
		return zero, false, NewError(SQL_HANDLE_STMT, SQLHANDLE(bc.stmt))
	}
	return bc.buffer, true, nil
}

// FetchWithTruncationCheck behaves like Fetch, but when errorOnTruncation
// is set and the fetched batch contains a truncated variadic value, the
// batch is rejected with a *TooLargeValueForBufferError rather than
// returned to the caller.
func (bc *BlockCursor[T]) FetchWithTruncationCheck(errorOnTruncation bool) (T, bool, error) {
	buf, ok, err := bc.Fetch()
	if err != nil || !ok {
		return buf, ok, err
	}
	if errorOnTruncation {
		if bufIdx, ind, truncated := buf.CheckTruncation(); truncated {
			var zero T
			return zero, false, &TooLargeValueForBufferError{BufferIndex: bufIdx, Indicator: ind}
		}
	}
	return buf, ok, nil
}

// Unbind removes the statement's references to the buffer and yields
// the underlying Cursor and the row-set buffer separately, without
// running any destructor-style cleanup. Use this to swap buffers
// between batches; Close achieves the same via a destructor-style path.
func (bc *BlockCursor[T]) Unbind() (*Cursor, T) {
	bc.buffer.Unbind(bc.stmt)
	cursor := &Cursor{stmt: bc.stmt, state: cursorOpen, ownsHandle: bc.ownsHandle}
	return cursor, bc.buffer
}

// Close best-effort unbinds the buffer from the statement. Unbind
// reports no errors, and any panic raised while unbinding is recovered
// and discarded, so Close itself never panics.
func (bc *BlockCursor[T]) Close() {
	defer func() { recover() }()
	bc.buffer.Unbind(bc.stmt)
}
