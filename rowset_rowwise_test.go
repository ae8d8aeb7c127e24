package odbcbulk

import (
	"testing"
	"unsafe"
)

type testRow struct {
	ID      int32
	Name    [50]byte
	NameInd SQLLEN
}

func (r testRow) BindMembers(stmt SQLHSTMT, firstRowPtr uintptr) error {
	if err := BindRowColumn(stmt, 1, SQL_C_SLONG, firstRowPtr, unsafe.Offsetof(r.ID), int(unsafe.Sizeof(r.ID)), -1); err != nil {
		return err
	}
	return BindRowColumn(stmt, 2, SQL_C_CHAR, firstRowPtr, unsafe.Offsetof(r.Name), len(r.Name), int(unsafe.Offsetof(r.NameInd)))
}

func TestRowWiseRowSetBufferCapacityAndRowAt(t *testing.T) {
	rb := NewRowWiseRowSetBuffer[testRow](3)
	if rb.Capacity() != 3 {
		t.Fatalf("expected capacity 3, got %d", rb.Capacity())
	}
	rb.RowAt(0).ID = 42
	if rb.data[0].ID != 42 {
		t.Errorf("expected row 0 ID 42, got %d", rb.data[0].ID)
	}
}

func TestRowWiseRowSetBufferBatchBoundedByRowsFetched(t *testing.T) {
	rb := NewRowWiseRowSetBuffer[testRow](5)
	rb.rowsFetched = 2
	rb.RowAt(0).ID = 1
	rb.RowAt(1).ID = 2
	batch := rb.Batch()
	if len(batch) != 2 {
		t.Fatalf("expected batch length 2, got %d", len(batch))
	}
}

func TestRowWiseRowSetBufferTruncationDefaultsFalse(t *testing.T) {
	rb := NewRowWiseRowSetBuffer[testRow](1)
	rb.rowsFetched = 1
	if _, truncated := rb.Truncation(); truncated {
		t.Errorf("testRow does not implement TruncationReporter; expected no truncation reported")
	}
}
