package odbcbulk

import (
	"testing"
	"unsafe"
)

// fakeODBC installs fake SQLFetch/SQLGetData/SQLBindCol implementations
// for the duration of a test, restoring the originals on cleanup. This
// mirrors the teacher's own style of exercising conversion logic
// directly rather than against a live driver.
func fakeODBC(t *testing.T) {
	t.Helper()
	origFetch, origGetData, origBindCol := sqlFetch, sqlGetData, sqlBindCol
	t.Cleanup(func() {
		sqlFetch, sqlGetData, sqlBindCol = origFetch, origGetData, origBindCol
	})
}

func TestCursorNextRowEndOfData(t *testing.T) {
	fakeODBC(t)
	sqlFetch = func(stmt SQLHSTMT) SQLRETURN { return SQL_NO_DATA }

	c := &Cursor{stmt: 1, state: cursorOpen}
	row, err := c.NextRow()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row != nil {
		t.Fatalf("expected nil row at end of data")
	}
}

func TestCursorNextRowOutsideOpenState(t *testing.T) {
	c := &Cursor{stmt: 1, state: cursorAllocated}
	if _, err := c.NextRow(); err == nil {
		t.Fatal("expected error calling NextRow outside cursor-open state")
	}
}

func TestRowHandleGetTextSingleChunk(t *testing.T) {
	fakeODBC(t)
	payload := []byte("hello, world")
	sqlGetData = func(stmt SQLHSTMT, colNum SQLUSMALLINT, targetType SQLSMALLINT, targetValue uintptr, bufferLen SQLLEN, strLenOrInd *SQLLEN) SQLRETURN {
		n := copy(unsafe.Slice((*byte)(unsafe.Pointer(targetValue)), int(bufferLen)), payload)
		_ = n
		*strLenOrInd = SQLLEN(len(payload))
		return SQL_SUCCESS
	}

	row := &RowHandle{stmt: 1}
	got, ok, err := row.GetText(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected ok=true")
	}
	if string(got) != "hello, world" {
		t.Fatalf("got %q, want %q", got, "hello, world")
	}
}

func TestRowHandleGetTextNull(t *testing.T) {
	fakeODBC(t)
	sqlGetData = func(stmt SQLHSTMT, colNum SQLUSMALLINT, targetType SQLSMALLINT, targetValue uintptr, bufferLen SQLLEN, strLenOrInd *SQLLEN) SQLRETURN {
		*strLenOrInd = SQL_NULL_DATA
		return SQL_SUCCESS
	}

	row := &RowHandle{stmt: 1}
	got, ok, err := row.GetText(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || got != nil {
		t.Fatalf("expected null value, got (%v, %v)", got, ok)
	}
}

func TestRowHandleGetTextGrowsOnLargerAnnouncedLength(t *testing.T) {
	fakeODBC(t)
	full := make([]byte, 2000)
	for i := range full {
		full[i] = 'a'
	}
	calls := 0
	sent := 0
	sqlGetData = func(stmt SQLHSTMT, colNum SQLUSMALLINT, targetType SQLSMALLINT, targetValue uintptr, bufferLen SQLLEN, strLenOrInd *SQLLEN) SQLRETURN {
		calls++
		dst := unsafe.Slice((*byte)(unsafe.Pointer(targetValue)), int(bufferLen))
		remaining := full[sent:]
		n := copy(dst[:len(dst)-1], remaining)
		dst[n] = 0
		*strLenOrInd = SQLLEN(len(remaining))
		sent += n
		return SQL_SUCCESS
	}

	row := &RowHandle{stmt: 1}
	got, ok, err := row.GetText(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected ok=true")
	}
	if len(got) != len(full) {
		t.Fatalf("got length %d, want %d", len(got), len(full))
	}
	if calls < 2 {
		t.Fatalf("expected buffer growth to require multiple GetData calls, got %d", calls)
	}
}

func TestBindBufferAndBlockCursorFetch(t *testing.T) {
	fakeODBC(t)
	var boundValuePtr uintptr
	var boundIndPtr *SQLLEN
	sqlBindCol = func(stmt SQLHSTMT, colNum SQLUSMALLINT, targetType SQLSMALLINT, targetValue uintptr, bufferLen SQLLEN, strLenOrInd *SQLLEN) SQLRETURN {
		boundValuePtr = targetValue
		boundIndPtr = strLenOrInd
		return SQL_SUCCESS
	}
	origSetStmtAttr := sqlSetStmtAttr
	var rowsFetchedPtr *SQLULEN
	sqlSetStmtAttr = func(stmt SQLHSTMT, attribute SQLINTEGER, value uintptr, stringLength SQLINTEGER) SQLRETURN {
		if attribute == SQL_ATTR_ROWS_FETCHED_PTR && value != 0 {
			rowsFetchedPtr = (*SQLULEN)(unsafe.Pointer(value))
		}
		return SQL_SUCCESS
	}
	t.Cleanup(func() { sqlSetStmtAttr = origSetStmtAttr })

	rb := MustNewColumnarRowSetBuffer([]BufferDesc{Required(KindI32)}, 4)
	c := &Cursor{stmt: 1, state: cursorOpen}
	bc, err := BindBuffer[*ColumnarRowSetBuffer](c, rb)
	if err != nil {
		t.Fatalf("BindBuffer failed: %v", err)
	}
	if boundValuePtr == 0 {
		t.Fatal("expected SQLBindCol to be called with a non-zero value pointer")
	}
	if boundIndPtr != nil {
		t.Fatal("expected nil indicator pointer for a required column buffer")
	}

	sqlFetch = func(stmt SQLHSTMT) SQLRETURN {
		if rowsFetchedPtr != nil {
			*rowsFetchedPtr = 2
		}
		return SQL_SUCCESS
	}
	batch, ok, err := bc.Fetch()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected a batch")
	}
	if batch.RowsFetched() != 2 {
		t.Fatalf("expected 2 rows fetched, got %d", batch.RowsFetched())
	}
}

func TestBulkInserterExecuteNoOpOnZeroRows(t *testing.T) {
	bi := &BulkInserter{numRows: 0}
	cur, err := bi.Execute()
	if err != nil || cur != nil {
		t.Fatalf("expected (nil, nil) for zero rows, got (%v, %v)", cur, err)
	}
}

func TestBulkInserterExecutePanicsOnTruncatedBuffer(t *testing.T) {
	buf := MustNewColumnBuffer(0, TextDesc(4), 2)
	buf.SetIndicator(0, LengthIndicator(100))
	bi := &BulkInserter{buffers: []*ColumnBuffer{buf}, numRows: 1, capacity: 2}
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic on truncated input buffer")
		}
	}()
	bi.Execute()
}
