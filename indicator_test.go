package odbcbulk

import "testing"

func TestIndicatorFromRaw(t *testing.T) {
	tests := []struct {
		raw      SQLLEN
		wantNull bool
		wantNT   bool
		wantLen  int
	}{
		{SQL_NULL_DATA, true, false, 0},
		{SQL_NO_TOTAL, false, true, 0},
		{0, false, false, 0},
		{128, false, false, 128},
	}

	for _, tt := range tests {
		ind := IndicatorFromRaw(tt.raw)
		if ind.IsNull() != tt.wantNull {
			t.Errorf("raw %d: IsNull() = %v, want %v", tt.raw, ind.IsNull(), tt.wantNull)
		}
		if ind.IsNoTotal() != tt.wantNT {
			t.Errorf("raw %d: IsNoTotal() = %v, want %v", tt.raw, ind.IsNoTotal(), tt.wantNT)
		}
		if n, ok := ind.Length(); !tt.wantNull && !tt.wantNT {
			if !ok || n != tt.wantLen {
				t.Errorf("raw %d: Length() = (%d, %v), want (%d, true)", tt.raw, n, ok, tt.wantLen)
			}
		}
	}
}

func TestIndicatorRawRoundTrip(t *testing.T) {
	for _, raw := range []SQLLEN{SQL_NULL_DATA, SQL_NO_TOTAL, 0, 1, 4096} {
		if got := IndicatorFromRaw(raw).Raw(); got != raw {
			t.Errorf("round trip of %d produced %d", raw, got)
		}
	}
}

func TestIndicatorIsTruncated(t *testing.T) {
	tests := []struct {
		name     string
		ind      Indicator
		capacity int
		want     bool
	}{
		{"null never truncated", NullIndicator(), 0, false},
		{"no-total always truncated", NoTotalIndicator(), 1 << 20, true},
		{"fits exactly", LengthIndicator(64), 64, false},
		{"fits under", LengthIndicator(10), 64, false},
		{"overflows", LengthIndicator(100), 64, true},
	}
	for _, tt := range tests {
		if got := tt.ind.IsTruncated(tt.capacity); got != tt.want {
			t.Errorf("%s: IsTruncated(%d) = %v, want %v", tt.name, tt.capacity, got, tt.want)
		}
	}
}

func TestLengthIndicatorClampsNegative(t *testing.T) {
	ind := LengthIndicator(-5)
	n, ok := ind.Length()
	if !ok || n != 0 {
		t.Errorf("LengthIndicator(-5).Length() = (%d, %v), want (0, true)", n, ok)
	}
}
