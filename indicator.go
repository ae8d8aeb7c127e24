package odbcbulk

import "fmt"

// Indicator is the three-valued domain an ODBC driver writes into an
// indicator/length buffer alongside every bound value: the value is
// either null, or present with a known byte length, or present but of a
// length the driver could not determine ahead of completing the
// transfer (SQL_NO_TOTAL). Only Length is safe to use as an exact byte
// count; NoTotal means "read until the driver says otherwise."
type Indicator struct {
	kind indicatorKind
	len  int
}

type indicatorKind int

const (
	indicatorLength indicatorKind = iota
	indicatorNull
	indicatorNoTotal
)

// NullIndicator reports a SQL_NULL_DATA value.
func NullIndicator() Indicator { return Indicator{kind: indicatorNull} }

// NoTotalIndicator reports a SQL_NO_TOTAL value: present, length unknown.
func NoTotalIndicator() Indicator { return Indicator{kind: indicatorNoTotal} }

// LengthIndicator reports a value present with the given byte length.
// A negative length that is neither SQL_NULL_DATA nor SQL_NO_TOTAL is
// clamped to zero defensively; real drivers never emit one.
func LengthIndicator(n int) Indicator {
	if n < 0 {
		n = 0
	}
	return Indicator{kind: indicatorLength, len: n}
}

// IndicatorFromRaw decodes the SQLLEN a driver wrote into an
// indicator/length buffer into an Indicator.
func IndicatorFromRaw(raw SQLLEN) Indicator {
	switch raw {
	case SQL_NULL_DATA:
		return NullIndicator()
	case SQL_NO_TOTAL:
		return NoTotalIndicator()
	default:
		return LengthIndicator(int(raw))
	}
}

// IsNull reports whether the indicator denotes SQL_NULL_DATA.
func (i Indicator) IsNull() bool { return i.kind == indicatorNull }

// IsNoTotal reports whether the indicator denotes SQL_NO_TOTAL.
func (i Indicator) IsNoTotal() bool { return i.kind == indicatorNoTotal }

// Length returns the reported byte length and true, or (0, false) if the
// indicator is Null or NoTotal and therefore carries no usable length.
func (i Indicator) Length() (int, bool) {
	if i.kind != indicatorLength {
		return 0, false
	}
	return i.len, true
}

// IsTruncated reports whether a value reported by this indicator would
// not have fit entirely within a buffer of the given capacity. NoTotal
// is always treated as truncated: the driver could not promise the
// value ended within the buffer it filled.
func (i Indicator) IsTruncated(bufferCapacity int) bool {
	switch i.kind {
	case indicatorNull:
		return false
	case indicatorNoTotal:
		return true
	default:
		return i.len > bufferCapacity
	}
}

func (i Indicator) String() string {
	switch i.kind {
	case indicatorNull:
		return "null"
	case indicatorNoTotal:
		return "no-total"
	default:
		return fmt.Sprintf("length(%d)", i.len)
	}
}

// Raw encodes the Indicator back into the SQLLEN representation a driver
// would have written, for tests and for code constructing synthetic
// indicator slabs.
func (i Indicator) Raw() SQLLEN {
	switch i.kind {
	case indicatorNull:
		return SQL_NULL_DATA
	case indicatorNoTotal:
		return SQL_NO_TOTAL
	default:
		return SQLLEN(i.len)
	}
}
