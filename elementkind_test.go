package odbcbulk

import "testing"

func TestBufferDescBytesPerRow(t *testing.T) {
	tests := []struct {
		name string
		desc BufferDesc
		want int
	}{
		{"required i32", Required(KindI32), 4},
		{"nullable i32", NullableDesc(KindI32), 4 + indicatorSlabEntrySize},
		{"required i64", Required(KindI64), 8},
		{"text", TextDesc(10), 10 + 1 + indicatorSlabEntrySize},
		{"wide text", WideTextDesc(10), (10+1)*2 + indicatorSlabEntrySize},
		{"binary", BinaryDesc(16), 16 + indicatorSlabEntrySize},
	}
	for _, tt := range tests {
		if got := tt.desc.BytesPerRow(); got != tt.want {
			t.Errorf("%s: BytesPerRow() = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestDataTypeToBufferDesc(t *testing.T) {
	tests := []struct {
		name          string
		sqlType       SQLSMALLINT
		columnSize    int
		decimalDigits int
		wantKind      ElementKind
	}{
		{"integer", SQL_INTEGER, 10, 0, KindI32},
		{"smallint", SQL_SMALLINT, 5, 0, KindI16},
		{"tinyint", SQL_TINYINT, 3, 0, KindI8},
		{"bigint", SQL_BIGINT, 19, 0, KindI64},
		{"bit", SQL_BIT, 1, 0, KindBit},
		{"real", SQL_REAL, 0, 0, KindF32},
		{"double", SQL_DOUBLE, 0, 0, KindF64},
		{"varchar", SQL_VARCHAR, 255, 0, KindText},
		{"nvarchar", SQL_WVARCHAR, 255, 0, KindWideText},
		{"varbinary", SQL_VARBINARY, 64, 0, KindBinary},
		{"date", SQL_TYPE_DATE, 0, 0, KindDate},
		{"time no fraction", SQL_TYPE_TIME, 0, 0, KindTime},
		{"time with fraction", SQL_TYPE_TIME, 12, 3, KindText},
		{"timestamp", SQL_TYPE_TIMESTAMP, 0, 0, KindTimestamp},
		{"numeric scale0 small", SQL_NUMERIC, 2, 0, KindI8},
		{"numeric scale0 medium", SQL_NUMERIC, 9, 0, KindI32},
		{"numeric scale0 large", SQL_NUMERIC, 18, 0, KindI64},
		{"numeric scale0 huge falls to text", SQL_NUMERIC, 30, 0, KindText},
		{"decimal with scale", SQL_DECIMAL, 10, 2, KindText},
	}
	for _, tt := range tests {
		desc := DataTypeToBufferDesc(tt.sqlType, tt.columnSize, tt.decimalDigits, false)
		if desc.Kind != tt.wantKind {
			t.Errorf("%s: Kind = %s, want %s", tt.name, desc.Kind, tt.wantKind)
		}
	}
}

func TestDataTypeToBufferDescNullablePropagates(t *testing.T) {
	desc := DataTypeToBufferDesc(SQL_INTEGER, 10, 0, true)
	if !desc.Nullable {
		t.Errorf("expected Nullable to propagate")
	}
}
