package odbcbulk

import "testing"

func TestColumnBufferFixedWidthRoundTrip(t *testing.T) {
	cb := MustNewColumnBuffer(1, Required(KindI32), 4)
	for i, v := range []int32{10, -20, 30, 0} {
		cb.SetInt32(i, v)
	}
	for i, want := range []int32{10, -20, 30, 0} {
		if got := cb.Int32At(i); got != want {
			t.Errorf("row %d: got %d, want %d", i, got, want)
		}
	}
}

func TestColumnBufferNullableIndicators(t *testing.T) {
	cb := MustNewColumnBuffer(1, NullableDesc(KindI64), 3)
	cb.SetInt64(0, 42)
	cb.SetIndicator(0, LengthIndicator(8))
	cb.SetIndicator(1, NullIndicator())
	if ind := cb.IndicatorAt(1); !ind.IsNull() {
		t.Errorf("expected row 1 null, got %v", ind)
	}
	if ind := cb.IndicatorAt(0); ind.IsNull() {
		t.Errorf("expected row 0 non-null")
	}
}

func TestColumnBufferVariadicTextRoundTrip(t *testing.T) {
	cb := MustNewColumnBuffer(1, TextDesc(16), 2)
	cb.SetValue(0, []byte("hello"))
	cb.SetValue(1, nil)

	v, ok := cb.ValueAt(0)
	if !ok || string(v) != "hello" {
		t.Errorf("row 0: got (%q, %v), want (\"hello\", true)", v, ok)
	}
	if _, ok := cb.ValueAt(1); ok {
		t.Errorf("row 1: expected null")
	}
}

func TestColumnBufferSetValuePanicsOnOverflow(t *testing.T) {
	cb := MustNewColumnBuffer(1, TextDesc(4), 1)
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic on oversized value")
		}
	}()
	cb.SetValue(0, []byte("too long"))
}

func TestColumnBufferEnsureMaxElementLengthGrows(t *testing.T) {
	cb := MustNewColumnBuffer(1, TextDesc(4), 2)
	cb.SetValue(0, []byte("abcd"))
	cb.EnsureMaxElementLength(10, 1)
	if cb.Desc().MaxLen != 10 {
		t.Fatalf("expected MaxLen 10, got %d", cb.Desc().MaxLen)
	}
	v, ok := cb.ValueAt(0)
	if !ok || string(v) != "abcd" {
		t.Errorf("preserved row 0: got (%q, %v)", v, ok)
	}
	cb.SetValue(1, []byte("0123456789"))
	v, ok = cb.ValueAt(1)
	if !ok || string(v) != "0123456789" {
		t.Errorf("row 1 after grow: got (%q, %v)", v, ok)
	}
}

func TestColumnBufferHasTruncation(t *testing.T) {
	cb := MustNewColumnBuffer(1, TextDesc(8), 2)
	cb.SetValue(0, []byte("short"))
	if _, trunc := cb.HasTruncation(2); trunc {
		t.Fatalf("expected no truncation")
	}
	cb.SetIndicator(1, LengthIndicator(100))
	ind, trunc := cb.HasTruncation(2)
	if !trunc {
		t.Fatalf("expected truncation detected")
	}
	if n, _ := ind.Length(); n != 100 {
		t.Errorf("expected reported length 100, got %d", n)
	}
}

func TestColumnBufferHideTruncation(t *testing.T) {
	cb := MustNewColumnBuffer(1, TextDesc(8), 1)
	cb.SetIndicator(0, LengthIndicator(100))
	cb.HideTruncation(1)
	if _, trunc := cb.HasTruncation(1); trunc {
		t.Fatalf("expected truncation hidden")
	}
}

func TestColumnBufferFillDefault(t *testing.T) {
	cb := MustNewColumnBuffer(1, Required(KindI32), 4)
	cb.SetInt32(0, 7)
	cb.SetInt32(1, 8)
	cb.FillDefault(2)
	if v := cb.Int32At(2); v != 0 {
		t.Errorf("expected zero-filled tail, got %d", v)
	}
	if v := cb.Int32At(3); v != 0 {
		t.Errorf("expected zero-filled tail, got %d", v)
	}
}

func TestColumnBufferFillDefaultNullable(t *testing.T) {
	cb := MustNewColumnBuffer(1, NullableDesc(KindI32), 3)
	cb.SetInt32(0, 1)
	cb.SetIndicator(0, LengthIndicator(4))
	cb.FillDefault(1)
	if ind := cb.IndicatorAt(1); !ind.IsNull() {
		t.Errorf("expected row 1 NULL after fill-default, got %v", ind)
	}
	if ind := cb.IndicatorAt(2); !ind.IsNull() {
		t.Errorf("expected row 2 NULL after fill-default, got %v", ind)
	}
}

func TestNewColumnBufferRejectsOversizedRequest(t *testing.T) {
	_, err := NewColumnBuffer(1, BinaryDesc(1<<40), 1<<30)
	if err == nil {
		t.Fatal("expected TooLargeBufferError")
	}
	if _, ok := err.(*TooLargeBufferError); !ok {
		t.Fatalf("expected *TooLargeBufferError, got %T", err)
	}
}

func TestColumnBufferValuePtrAndIndicatorPtrStability(t *testing.T) {
	cb := MustNewColumnBuffer(1, NullableDesc(KindI32), 2)
	if cb.ValuePtr() == 0 {
		t.Fatal("expected non-zero value pointer")
	}
	if cb.IndicatorPtr() == nil {
		t.Fatal("expected non-nil indicator pointer")
	}
	required := MustNewColumnBuffer(1, Required(KindI32), 2)
	if required.IndicatorPtr() != nil {
		t.Fatal("expected nil indicator pointer for required buffer")
	}
}
