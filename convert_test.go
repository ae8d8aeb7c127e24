package odbcbulk

import (
	"testing"
	"time"
)

// =============================================================================
// Scalar parameter conversion (convert.go) — the single-value bind path
// execBatchRowByRow and the no-array branch of ExecContext still use.
// =============================================================================

func TestConvertToODBC_Nil(t *testing.T) {
	buf, cType, sqlType, _, _, indicator, err := convertToODBC(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf != nil {
		t.Errorf("expected nil buffer, got %v", buf)
	}
	if cType != SQL_C_CHAR {
		t.Errorf("expected SQL_C_CHAR, got %d", cType)
	}
	if indicator != SQLLEN(SQL_NULL_DATA) {
		t.Errorf("expected SQL_NULL_DATA indicator, got %d", indicator)
	}
}

func TestConvertToODBC_Bool(t *testing.T) {
	buf, cType, sqlType, _, _, ind, err := convertToODBC(true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, ok := buf.(*byte)
	if !ok || *b != 1 {
		t.Errorf("expected *byte(1), got %v", buf)
	}
	if cType != SQL_C_BIT || sqlType != SQL_BIT || ind != 1 {
		t.Errorf("unexpected binding shape: cType=%d sqlType=%d ind=%d", cType, sqlType, ind)
	}
}

func TestConvertToODBC_Integers(t *testing.T) {
	buf, cType, sqlType, _, _, ind, err := convertToODBC(int64(42))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, ok := buf.(*int64)
	if !ok || *v != 42 {
		t.Errorf("expected *int64(42), got %v", buf)
	}
	if cType != SQL_C_SBIGINT || sqlType != SQL_BIGINT || ind != 8 {
		t.Errorf("unexpected binding shape: cType=%d sqlType=%d ind=%d", cType, sqlType, ind)
	}
}

func TestConvertToODBC_Float64(t *testing.T) {
	buf, cType, _, _, _, ind, err := convertToODBC(3.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, ok := buf.(*float64)
	if !ok || *v != 3.5 {
		t.Errorf("expected *float64(3.5), got %v", buf)
	}
	if cType != SQL_C_DOUBLE || ind != 8 {
		t.Errorf("unexpected binding shape: cType=%d ind=%d", cType, ind)
	}
}

func TestConvertToODBC_String(t *testing.T) {
	buf, cType, sqlType, colSize, _, _, err := convertToODBC("hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	units, ok := buf.([]uint16)
	if !ok || len(units)-1 != 5 {
		t.Errorf("expected 5 UTF-16 units plus terminator, got %v", buf)
	}
	if cType != SQL_C_WCHAR || sqlType != SQL_WVARCHAR || colSize != 5 {
		t.Errorf("unexpected binding shape: cType=%d sqlType=%d colSize=%d", cType, sqlType, colSize)
	}
}

func TestConvertToODBC_Bytes(t *testing.T) {
	data := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	buf, cType, sqlType, colSize, _, ind, err := convertToODBC(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, ok := buf.([]byte)
	if !ok || len(v) != 4 {
		t.Errorf("expected 4-byte buffer, got %v", buf)
	}
	if cType != SQL_C_BINARY || sqlType != SQL_VARBINARY || colSize != 4 || ind != 4 {
		t.Errorf("unexpected binding shape: cType=%d sqlType=%d colSize=%d ind=%d", cType, sqlType, colSize, ind)
	}
}

func TestConvertToODBC_Time(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 123000000, time.UTC)
	buf, cType, sqlType, colSize, decDigits, _, err := convertToODBC(ts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sts, ok := buf.(*SQL_TIMESTAMP_STRUCT)
	if !ok {
		t.Fatalf("expected *SQL_TIMESTAMP_STRUCT, got %T", buf)
	}
	if sts.Year != 2024 || sts.Month != 6 || sts.Day != 15 {
		t.Errorf("unexpected date fields: %+v", sts)
	}
	if cType != SQL_C_TIMESTAMP || sqlType != SQL_TYPE_TIMESTAMP || colSize != 23 || decDigits != 3 {
		t.Errorf("unexpected binding shape: cType=%d sqlType=%d colSize=%d decDigits=%d", cType, sqlType, colSize, decDigits)
	}
}

func TestConvertToODBC_GUID(t *testing.T) {
	g, err := ParseGUID("550e8400-e29b-41d4-a716-446655440000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	buf, cType, sqlType, colSize, _, _, err := convertToODBC(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b, ok := buf.([]byte); !ok || len(b) != 16 {
		t.Errorf("expected 16-byte GUID buffer, got %v", buf)
	}
	if cType != SQL_C_GUID || sqlType != SQL_GUID || colSize != 16 {
		t.Errorf("unexpected binding shape: cType=%d sqlType=%d colSize=%d", cType, sqlType, colSize)
	}
}

func TestParseGUID_RoundTrip(t *testing.T) {
	g, err := ParseGUID("550e8400-e29b-41d4-a716-446655440000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	back := SQL_GUID_STRUCT{
		Data1: uint32(g[3])<<24 | uint32(g[2])<<16 | uint32(g[1])<<8 | uint32(g[0]),
		Data2: uint16(g[5])<<8 | uint16(g[4]),
		Data3: uint16(g[7])<<8 | uint16(g[6]),
	}
	copy(back.Data4[:], g[8:])
	if got := back.String(); got != "550E8400-E29B-41D4-A716-446655440000" {
		t.Errorf("round-trip mismatch: got %q", got)
	}
}

func TestParseGUID_Invalid(t *testing.T) {
	if _, err := ParseGUID("not-a-guid"); err == nil {
		t.Error("expected error for malformed GUID")
	}
}

func TestNewDecimal_Valid(t *testing.T) {
	d, err := NewDecimal("123.45", 5, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Value != "123.45" || d.Precision != 5 || d.Scale != 2 {
		t.Errorf("unexpected decimal: %+v", d)
	}
}

func TestNewDecimal_InvalidPrecision(t *testing.T) {
	if _, err := NewDecimal("1", 0, 0); err == nil {
		t.Error("expected error for precision 0")
	}
	if _, err := NewDecimal("1", 39, 0); err == nil {
		t.Error("expected error for precision > 38")
	}
}

func TestParseDecimal(t *testing.T) {
	d, err := ParseDecimal("-12.3400")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Scale != 4 {
		t.Errorf("expected scale 4, got %d", d.Scale)
	}
}

func TestConvertToODBC_Decimal(t *testing.T) {
	d, err := NewDecimal("99.99", 4, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	buf, cType, sqlType, colSize, decDigits, _, err := convertToODBC(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b, ok := buf.([]byte); !ok || string(b[:len(b)-1]) != "99.99" {
		t.Errorf("expected null-terminated decimal string, got %v", buf)
	}
	if cType != SQL_C_CHAR || sqlType != SQL_DECIMAL || colSize != 4 || decDigits != 2 {
		t.Errorf("unexpected binding shape: cType=%d sqlType=%d colSize=%d decDigits=%d", cType, sqlType, colSize, decDigits)
	}
}

func TestIntervalDaySecond_ToDuration(t *testing.T) {
	iv := IntervalDaySecond{Days: 1, Hours: 2, Minutes: 3, Seconds: 4, Nanoseconds: 5}
	got := iv.ToDuration()
	want := 26*time.Hour + 3*time.Minute + 4*time.Second + 5*time.Nanosecond
	if got != want {
		t.Errorf("expected %v, got %v", want, got)
	}
	neg := IntervalDaySecond{Days: 1, Negative: true}
	if neg.ToDuration() != -24*time.Hour {
		t.Errorf("expected negated duration, got %v", neg.ToDuration())
	}
}

func TestUTF16RoundTrip(t *testing.T) {
	units := stringToUTF16("héllo 世界")
	got := utf16ToString(units[:len(units)-1])
	if got != "héllo 世界" {
		t.Errorf("round-trip mismatch: got %q", got)
	}
}

func TestSQLTypeName(t *testing.T) {
	if got := SQLTypeName(SQL_VARCHAR); got != "VARCHAR" {
		t.Errorf("expected VARCHAR, got %q", got)
	}
	if got := SQLTypeName(SQLSMALLINT(-9999)); got == "" {
		t.Error("expected a non-empty fallback name for an unknown SQL type")
	}
}

// =============================================================================
// Array-parameter binding (the columnar path execBatchArrayBinding drives):
// elementKindForValues' type inference and AllocateParameterArray's
// ColumnBuffer construction/population.
// =============================================================================

func TestElementKindForValues_Int64(t *testing.T) {
	desc := elementKindForValues([]interface{}{int64(1), nil, int64(3)})
	if desc.Kind != KindI64 {
		t.Errorf("expected KindI64, got %s", desc.Kind)
	}
	if !desc.Nullable {
		t.Error("expected nullable descriptor for an integer column with a nil value present")
	}
}

func TestElementKindForValues_String(t *testing.T) {
	desc := elementKindForValues([]interface{}{"ab", "world", nil})
	if desc.Kind != KindWideText {
		t.Errorf("expected KindWideText, got %s", desc.Kind)
	}
	if desc.MaxLen != 5 {
		t.Errorf("expected MaxLen 5 (len of \"world\"), got %d", desc.MaxLen)
	}
}

func TestElementKindForValues_AllNil(t *testing.T) {
	desc := elementKindForValues([]interface{}{nil, nil})
	if desc.Kind != KindText {
		t.Errorf("expected fallback KindText for an all-NULL column, got %s", desc.Kind)
	}
}

func TestAllocateParameterArray_Int64WithNulls(t *testing.T) {
	cb, err := AllocateParameterArray(1, []interface{}{int64(10), nil, int64(30)}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cb.Int64At(0) != 10 || cb.Int64At(2) != 30 {
		t.Errorf("unexpected values: row0=%d row2=%d", cb.Int64At(0), cb.Int64At(2))
	}
	if !cb.IndicatorAt(1).IsNull() {
		t.Error("expected row 1 to carry a NULL indicator")
	}
	if cb.IndicatorAt(0).IsNull() {
		t.Error("row 0 should not be NULL")
	}
}

func TestAllocateParameterArray_Bool(t *testing.T) {
	cb, err := AllocateParameterArray(1, []interface{}{true, false, true}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cb.BitAt(0) != 1 || cb.BitAt(1) != 0 || cb.BitAt(2) != 1 {
		t.Errorf("unexpected bit values: %v %v %v", cb.BitAt(0), cb.BitAt(1), cb.BitAt(2))
	}
}

func TestAllocateParameterArray_Float64(t *testing.T) {
	cb, err := AllocateParameterArray(1, []interface{}{1.5, 2.5}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cb.Float64At(0) != 1.5 || cb.Float64At(1) != 2.5 {
		t.Errorf("unexpected float values: %v %v", cb.Float64At(0), cb.Float64At(1))
	}
}

func TestAllocateParameterArray_String(t *testing.T) {
	cb, err := AllocateParameterArray(1, []interface{}{"a", "longer value"}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v0, ok0 := cb.ValueAt(0)
	v1, ok1 := cb.ValueAt(1)
	if !ok0 || !ok1 {
		t.Fatal("expected both string rows to be present")
	}
	if len(v0) != 2 { // "a" as 1 UTF-16 unit, 2 bytes
		t.Errorf("expected 2-byte payload for row 0, got %d", len(v0))
	}
	if len(v1) != len("longer value")*2 {
		t.Errorf("expected %d-byte payload for row 1, got %d", len("longer value")*2, len(v1))
	}
}

func TestAllocateParameterArray_Timestamp(t *testing.T) {
	t1 := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	cb, err := AllocateParameterArray(1, []interface{}{t1}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ts := cb.TimestampAt(0)
	if ts.Year != 2024 || ts.Month != 1 || ts.Day != 2 {
		t.Errorf("unexpected timestamp: %+v", ts)
	}
}

func TestAllocateParameterArray_TypeMismatch(t *testing.T) {
	// First non-nil value is a bool, so the column is typed KindBit; a
	// later string value must be rejected rather than silently coerced.
	if _, err := AllocateParameterArray(1, []interface{}{true, "oops"}, 2); err == nil {
		t.Error("expected an error for a mismatched element type")
	}
}

func TestAllocateParameterArray_ZeroRows(t *testing.T) {
	cb, err := AllocateParameterArray(1, nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cb != nil {
		t.Errorf("expected nil buffer for zero rows, got %v", cb)
	}
}

func TestColumnSizeForDesc(t *testing.T) {
	if got := columnSizeForDesc(NullableDesc(KindTimestamp)); got != 23 {
		t.Errorf("expected 23, got %d", got)
	}
	if got := columnSizeForDesc(TextDesc(40)); got != 40 {
		t.Errorf("expected 40, got %d", got)
	}
}
