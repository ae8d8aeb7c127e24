package odbcbulk

import "testing"

func TestConcurrentBlockCursorFetchFillPipeline(t *testing.T) {
	fakeODBC(t)
	fetchCount := 0
	sqlFetch = func(stmt SQLHSTMT) SQLRETURN {
		fetchCount++
		if fetchCount > 3 {
			return SQL_NO_DATA
		}
		return SQL_SUCCESS
	}
	sqlBindCol = func(stmt SQLHSTMT, colNum SQLUSMALLINT, targetType SQLSMALLINT, targetValue uintptr, bufferLen SQLLEN, strLenOrInd *SQLLEN) SQLRETURN {
		return SQL_SUCCESS
	}
	origSetStmtAttr := sqlSetStmtAttr
	sqlSetStmtAttr = func(stmt SQLHSTMT, attribute SQLINTEGER, value uintptr, stringLength SQLINTEGER) SQLRETURN {
		return SQL_SUCCESS
	}
	t.Cleanup(func() { sqlSetStmtAttr = origSetStmtAttr })

	bc := &BlockCursor[*ColumnarRowSetBuffer]{
		stmt:   1,
		buffer: MustNewColumnarRowSetBuffer([]BufferDesc{Required(KindI32)}, 4),
	}
	cc := NewConcurrentBlockCursor[*ColumnarRowSetBuffer](bc)

	buf := MustNewColumnarRowSetBuffer([]BufferDesc{Required(KindI32)}, 4)
	got := 0
	for {
		next, ok, err := cc.Fetch()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			break
		}
		got++
		cc.Fill(buf)
		buf = next
	}
	if got != 3 {
		t.Fatalf("expected 3 batches, got %d", got)
	}
}

func TestConcurrentBlockCursorIntoCursorShutsDownCleanly(t *testing.T) {
	fakeODBC(t)
	sqlFetch = func(stmt SQLHSTMT) SQLRETURN { return SQL_SUCCESS }

	bc := &BlockCursor[*ColumnarRowSetBuffer]{
		stmt:   1,
		buffer: MustNewColumnarRowSetBuffer([]BufferDesc{Required(KindI32)}, 4),
	}
	cc := NewConcurrentBlockCursor[*ColumnarRowSetBuffer](bc)

	if _, ok, err := cc.Fetch(); err != nil || !ok {
		t.Fatalf("expected a first batch, got ok=%v err=%v", ok, err)
	}
	cur := cc.IntoCursor()
	if cur == nil {
		t.Fatal("expected a non-nil cursor")
	}
}
