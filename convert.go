package odbcbulk

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unsafe"
)

// GUID represents a UUID/GUID value for use as a parameter
type GUID [16]byte

// =============================================================================
// Timestamp Precision Helpers
// =============================================================================

// truncateFraction truncates nanoseconds to the specified precision
func truncateFraction(nanos int, precision TimestampPrecision) SQLUINTEGER {
	switch precision {
	case TimestampPrecisionSeconds:
		return 0
	case TimestampPrecisionMilliseconds:
		return SQLUINTEGER((nanos / 1_000_000) * 1_000_000)
	case TimestampPrecisionMicroseconds:
		return SQLUINTEGER((nanos / 1_000) * 1_000)
	case TimestampPrecisionNanoseconds:
		return SQLUINTEGER(nanos)
	default:
		// Default to milliseconds for backward compatibility
		return SQLUINTEGER((nanos / 1_000_000) * 1_000_000)
	}
}

// timestampColumnSize returns the ODBC column size for a given precision
// Format: YYYY-MM-DD HH:MM:SS[.fractional]
// Base size: 19 (no fractional), with fractional: 20 + precision
func timestampColumnSize(precision TimestampPrecision) SQLULEN {
	if precision == 0 {
		return 19
	}
	return SQLULEN(20 + int(precision))
}

// =============================================================================
// UTF-16 Conversion Helpers
// =============================================================================

// stringToUTF16 converts a UTF-8 string to UTF-16LE with null terminator
func stringToUTF16(s string) []uint16 {
	runes := []rune(s)
	result := make([]uint16, 0, len(runes)+1)
	for _, r := range runes {
		if r > 0xFFFF {
			// Encode as surrogate pair
			r -= 0x10000
			result = append(result, uint16((r>>10)+0xD800))
			result = append(result, uint16((r&0x3FF)+0xDC00))
		} else {
			result = append(result, uint16(r))
		}
	}
	result = append(result, 0) // Null terminator
	return result
}

// =============================================================================
// Interval Helpers
// =============================================================================

// boolToIntervalSign converts a boolean negative flag to ODBC interval sign
func boolToIntervalSign(negative bool) SQLSMALLINT {
	if negative {
		return 1
	}
	return 0
}

// abs returns the absolute value of an integer
func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// ParseGUID parses a GUID string in the format xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx
func ParseGUID(s string) (GUID, error) {
	s = strings.ReplaceAll(s, "-", "")
	if len(s) != 32 {
		return GUID{}, fmt.Errorf("invalid GUID length: %d", len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return GUID{}, fmt.Errorf("invalid GUID hex: %w", err)
	}
	var g GUID
	// GUID byte order: Data1 (4 bytes, little-endian), Data2 (2 bytes, LE), Data3 (2 bytes, LE), Data4 (8 bytes, big-endian)
	// But in the string, it's represented as: Data1-Data2-Data3-Data4[0:2]-Data4[2:8] all big-endian
	// We need to swap bytes for Data1, Data2, Data3
	g[0], g[1], g[2], g[3] = b[3], b[2], b[1], b[0] // Data1 swap
	g[4], g[5] = b[5], b[4]                         // Data2 swap
	g[6], g[7] = b[7], b[6]                         // Data3 swap
	copy(g[8:], b[8:])                              // Data4 stays as-is
	return g, nil
}

// convertToODBC converts a Go value to ODBC binding parameters
// Returns: buffer, C type, SQL type, column size, decimal digits, length indicator, error
func convertToODBC(value interface{}) (interface{}, SQLSMALLINT, SQLSMALLINT, SQLULEN, SQLSMALLINT, SQLLEN, error) {
	if value == nil {
		return nil, SQL_C_CHAR, SQL_VARCHAR, 0, 0, SQLLEN(SQL_NULL_DATA), nil
	}

	switch v := value.(type) {
	case bool:
		b := new(byte)
		if v {
			*b = 1
		}
		return b, SQL_C_BIT, SQL_BIT, 1, 0, 1, nil

	case int:
		val := new(int64)
		*val = int64(v)
		return val, SQL_C_SBIGINT, SQL_BIGINT, 20, 0, 8, nil

	case int8:
		val := new(int8)
		*val = v
		return val, SQL_C_STINYINT, SQL_TINYINT, 4, 0, 1, nil

	case int16:
		val := new(int16)
		*val = v
		return val, SQL_C_SSHORT, SQL_SMALLINT, 6, 0, 2, nil

	case int32:
		val := new(int32)
		*val = v
		return val, SQL_C_SLONG, SQL_INTEGER, 11, 0, 4, nil

	case int64:
		val := new(int64)
		*val = v
		return val, SQL_C_SBIGINT, SQL_BIGINT, 20, 0, 8, nil

	case uint:
		val := new(int64)
		*val = int64(v)
		return val, SQL_C_SBIGINT, SQL_BIGINT, 20, 0, 8, nil

	case uint8:
		val := new(uint8)
		*val = v
		return val, SQL_C_UTINYINT, SQL_TINYINT, 3, 0, 1, nil

	case uint16:
		val := new(uint16)
		*val = v
		return val, SQL_C_USHORT, SQL_SMALLINT, 5, 0, 2, nil

	case uint32:
		val := new(uint32)
		*val = v
		return val, SQL_C_ULONG, SQL_INTEGER, 10, 0, 4, nil

	case uint64:
		// Convert to string for large uint64 values to avoid overflow
		s := strconv.FormatUint(v, 10)
		buf := append([]byte(s), 0)
		return buf, SQL_C_CHAR, SQL_VARCHAR, SQLULEN(len(s)), 0, SQLLEN(len(s)), nil

	case float32:
		val := new(float32)
		*val = v
		return val, SQL_C_FLOAT, SQL_REAL, 7, 0, 4, nil

	case float64:
		val := new(float64)
		*val = v
		return val, SQL_C_DOUBLE, SQL_DOUBLE, 15, 0, 8, nil

	case string:
		// Use UTF-16 for proper Unicode support across all databases
		utf16Buf := stringToUTF16(v)
		charCount := len(utf16Buf) - 1 // Exclude null terminator
		bufBytes := charCount * 2      // 2 bytes per UTF-16 code unit
		return utf16Buf, SQL_C_WCHAR, SQL_WVARCHAR, SQLULEN(charCount), 0, SQLLEN(bufBytes), nil

	case []byte:
		if len(v) == 0 {
			return nil, SQL_C_BINARY, SQL_VARBINARY, 0, 0, 0, nil
		}
		return v, SQL_C_BINARY, SQL_VARBINARY, SQLULEN(len(v)), 0, SQLLEN(len(v)), nil

	case GUID:
		buf := make([]byte, 16)
		copy(buf, v[:])
		return buf, SQL_C_GUID, SQL_GUID, 16, 0, 16, nil

	case time.Time:
		// Convert nanoseconds to billionths, but truncate to milliseconds (3 decimal places)
		// for broader database compatibility (SQL Server DATETIME only supports ~3.33ms precision)
		// Fraction field is in billionths of a second (nanoseconds)
		// To get millisecond precision: (nanoseconds / 1_000_000) * 1_000_000
		fraction := SQLUINTEGER((v.Nanosecond() / 1_000_000) * 1_000_000)
		ts := &SQL_TIMESTAMP_STRUCT{
			Year:     SQLSMALLINT(v.Year()),
			Month:    SQLUSMALLINT(v.Month()),
			Day:      SQLUSMALLINT(v.Day()),
			Hour:     SQLUSMALLINT(v.Hour()),
			Minute:   SQLUSMALLINT(v.Minute()),
			Second:   SQLUSMALLINT(v.Second()),
			Fraction: fraction,
		}
		// Use column size 23 and decimal digits 3 for broader compatibility
		// This matches SQL Server datetime2(3) precision
		return ts, SQL_C_TIMESTAMP, SQL_TYPE_TIMESTAMP, 23, 3, SQLLEN(unsafe.Sizeof(*ts)), nil

	// ==========================================================================
	// Enhanced Types
	// ==========================================================================

	case Timestamp:
		// Timestamp with explicit precision control
		fraction := truncateFraction(v.Time.Nanosecond(), v.Precision)
		ts := &SQL_TIMESTAMP_STRUCT{
			Year:     SQLSMALLINT(v.Time.Year()),
			Month:    SQLUSMALLINT(v.Time.Month()),
			Day:      SQLUSMALLINT(v.Time.Day()),
			Hour:     SQLUSMALLINT(v.Time.Hour()),
			Minute:   SQLUSMALLINT(v.Time.Minute()),
			Second:   SQLUSMALLINT(v.Time.Second()),
			Fraction: fraction,
		}
		colSize := timestampColumnSize(v.Precision)
		decDigits := SQLSMALLINT(v.Precision)
		return ts, SQL_C_TIMESTAMP, SQL_TYPE_TIMESTAMP, colSize, decDigits, SQLLEN(unsafe.Sizeof(*ts)), nil

	case TimestampTZ:
		// Timezone-aware timestamp - convert to UTC for storage
		t := v.Time
		if v.TZ != nil && v.TZ != time.UTC {
			t = t.UTC()
		}
		fraction := truncateFraction(t.Nanosecond(), v.Precision)
		ts := &SQL_TIMESTAMP_STRUCT{
			Year:     SQLSMALLINT(t.Year()),
			Month:    SQLUSMALLINT(t.Month()),
			Day:      SQLUSMALLINT(t.Day()),
			Hour:     SQLUSMALLINT(t.Hour()),
			Minute:   SQLUSMALLINT(t.Minute()),
			Second:   SQLUSMALLINT(t.Second()),
			Fraction: fraction,
		}
		colSize := timestampColumnSize(v.Precision)
		decDigits := SQLSMALLINT(v.Precision)
		return ts, SQL_C_TIMESTAMP, SQL_TYPE_TIMESTAMP, colSize, decDigits, SQLLEN(unsafe.Sizeof(*ts)), nil

	case WideString:
		// UTF-16 wide string for NVARCHAR/NCHAR columns
		utf16Buf := stringToUTF16(string(v))
		// Column size is character count (excluding null terminator)
		charCount := len(utf16Buf) - 1
		// Buffer size in bytes (2 bytes per code unit), excluding null terminator
		bufBytes := charCount * 2
		return utf16Buf, SQL_C_WCHAR, SQL_WVARCHAR, SQLULEN(charCount), 0, SQLLEN(bufBytes), nil

	case Decimal:
		// Decimal with explicit precision/scale - bind as string for maximum compatibility
		buf := append([]byte(v.Value), 0) // Null-terminated
		return buf, SQL_C_CHAR, SQL_DECIMAL, SQLULEN(v.Precision), SQLSMALLINT(v.Scale), SQLLEN(len(v.Value)), nil

	case IntervalYearMonth:
		// Year-month interval
		is := &SQL_INTERVAL_STRUCT{
			IntervalType: SQL_INTERVAL_YEAR_TO_MONTH,
			IntervalSign: boolToIntervalSign(v.Negative),
		}
		is.YearMonth.Year = SQLUINTEGER(abs(v.Years))
		is.YearMonth.Month = SQLUINTEGER(abs(v.Months))
		return is, SQL_C_INTERVAL_YEAR_TO_MONTH, SQL_INTERVAL_YEAR_TO_MONTH, 0, 0, SQLLEN(unsafe.Sizeof(*is)), nil

	case IntervalDaySecond:
		// Day-time interval
		is := &SQL_INTERVAL_STRUCT{
			IntervalType: SQL_INTERVAL_DAY_TO_SECOND,
			IntervalSign: boolToIntervalSign(v.Negative),
		}
		is.DaySecond.Day = SQLUINTEGER(abs(v.Days))
		is.DaySecond.Hour = SQLUINTEGER(abs(v.Hours))
		is.DaySecond.Minute = SQLUINTEGER(abs(v.Minutes))
		is.DaySecond.Second = SQLUINTEGER(abs(v.Seconds))
		is.DaySecond.Fraction = SQLUINTEGER(abs(v.Nanoseconds))
		return is, SQL_C_INTERVAL_DAY_TO_SECOND, SQL_INTERVAL_DAY_TO_SECOND, 0, 0, SQLLEN(unsafe.Sizeof(*is)), nil

	default:
		// Try to convert to string
		s := fmt.Sprintf("%v", v)
		buf := append([]byte(s), 0)
		return buf, SQL_C_CHAR, SQL_VARCHAR, SQLULEN(len(s)), 0, SQLLEN(len(s)), nil
	}
}

// getBufferPtr returns a pointer to the buffer data and its length
func getBufferPtr(buf interface{}) (uintptr, SQLLEN) {
	switch v := buf.(type) {
	case []byte:
		if len(v) == 0 {
			return 0, 0
		}
		return uintptr(unsafe.Pointer(&v[0])), SQLLEN(len(v))

	case *int8:
		return uintptr(unsafe.Pointer(v)), 1

	case *int16:
		return uintptr(unsafe.Pointer(v)), 2

	case *int32:
		return uintptr(unsafe.Pointer(v)), 4

	case *int64:
		return uintptr(unsafe.Pointer(v)), 8

	case *uint8: // same as *byte
		return uintptr(unsafe.Pointer(v)), 1

	case *uint16:
		return uintptr(unsafe.Pointer(v)), 2

	case *uint32:
		return uintptr(unsafe.Pointer(v)), 4

	case *uint64:
		return uintptr(unsafe.Pointer(v)), 8

	case *float32:
		return uintptr(unsafe.Pointer(v)), 4

	case *float64:
		return uintptr(unsafe.Pointer(v)), 8

	case *SQL_TIMESTAMP_STRUCT:
		return uintptr(unsafe.Pointer(v)), SQLLEN(unsafe.Sizeof(*v))

	case *SQL_DATE_STRUCT:
		return uintptr(unsafe.Pointer(v)), SQLLEN(unsafe.Sizeof(*v))

	case *SQL_TIME_STRUCT:
		return uintptr(unsafe.Pointer(v)), SQLLEN(unsafe.Sizeof(*v))

	case []uint16:
		// For wide strings (UTF-16)
		if len(v) == 0 {
			return 0, 0
		}
		return uintptr(unsafe.Pointer(&v[0])), SQLLEN(len(v) * 2)

	case *SQL_INTERVAL_STRUCT:
		return uintptr(unsafe.Pointer(v)), SQLLEN(unsafe.Sizeof(*v))

	default:
		return 0, 0
	}
}

// elementKindForValues infers the BufferDesc an array-parameter column
// should allocate from the Go types of its values, mirroring the type
// dispatch convertToODBC uses for a single scalar parameter. Every kind
// it returns is nullable except the variadic ones, which carry an
// indicator slab unconditionally (buffer.go).
func elementKindForValues(values []interface{}) BufferDesc {
	var typeHint interface{}
	for _, v := range values {
		if v != nil {
			typeHint = v
			break
		}
	}
	if typeHint == nil {
		return TextDesc(255)
	}

	switch typeHint.(type) {
	case bool:
		return NullableDesc(KindBit)
	case int, int64, int32, int16, int8:
		return NullableDesc(KindI64)
	case float64, float32:
		return NullableDesc(KindF64)
	case string:
		return WideTextDesc(maxUTF16Units(values))
	case []byte:
		return BinaryDesc(maxByteLen(values))
	case time.Time:
		return NullableDesc(KindTimestamp)
	default:
		return TextDesc(255)
	}
}

// maxUTF16Units returns the largest UTF-16 code unit count (surrogate
// pairs counted as two units) among the string values in the column.
func maxUTF16Units(values []interface{}) int {
	maxUnits := 0
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		units := 0
		for _, r := range s {
			if r > 0xFFFF {
				units += 2
			} else {
				units++
			}
		}
		if units > maxUnits {
			maxUnits = units
		}
	}
	if maxUnits == 0 {
		maxUnits = 255
	}
	return maxUnits
}

// maxByteLen returns the largest []byte length among the column's values.
func maxByteLen(values []interface{}) int {
	maxLen := 0
	for _, v := range values {
		if b, ok := v.([]byte); ok && len(b) > maxLen {
			maxLen = len(b)
		}
	}
	if maxLen == 0 {
		maxLen = 255
	}
	return maxLen
}

// toInt64Param widens any of the signed integer kinds convertToODBC
// accepts into the int64 lane array parameters are bound through.
func toInt64Param(v interface{}) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int64:
		return val, true
	case int32:
		return int64(val), true
	case int16:
		return int64(val), true
	case int8:
		return int64(val), true
	default:
		return 0, false
	}
}

func toFloat64Param(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	default:
		return 0, false
	}
}

// AllocateParameterArray builds the column ColumnBuffer (buffer.go) for
// one array-bound input parameter, inferring its element kind from the
// Go values present and filling it row by row through the buffer's
// typed accessors rather than a parallel ad hoc layout.
func AllocateParameterArray(column int, values []interface{}, numRows int) (*ColumnBuffer, error) {
	if numRows == 0 {
		return nil, nil
	}

	desc := elementKindForValues(values)
	cb, err := NewColumnBuffer(column, desc, numRows)
	if err != nil {
		return nil, err
	}

	for i := 0; i < numRows && i < len(values); i++ {
		v := values[i]
		if v == nil {
			if cb.HasIndicator() {
				cb.SetIndicator(i, NullIndicator())
			}
			continue
		}
		if err := setParameterElement(cb, desc.Kind, i, v); err != nil {
			return nil, err
		}
	}
	return cb, nil
}

// setParameterElement writes one row of a parameter ColumnBuffer using
// the accessor appropriate to kind.
func setParameterElement(cb *ColumnBuffer, kind ElementKind, i int, v interface{}) error {
	switch kind {
	case KindBit:
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("odbcbulk: column %d: expected bool, got %T", cb.Column(), v)
		}
		if b {
			cb.SetBit(i, 1)
		} else {
			cb.SetBit(i, 0)
		}
		cb.SetIndicator(i, LengthIndicator(1))
	case KindI64:
		n, ok := toInt64Param(v)
		if !ok {
			return fmt.Errorf("odbcbulk: column %d: expected integer, got %T", cb.Column(), v)
		}
		cb.SetInt64(i, n)
		cb.SetIndicator(i, LengthIndicator(8))
	case KindF64:
		f, ok := toFloat64Param(v)
		if !ok {
			return fmt.Errorf("odbcbulk: column %d: expected float, got %T", cb.Column(), v)
		}
		cb.SetFloat64(i, f)
		cb.SetIndicator(i, LengthIndicator(8))
	case KindTimestamp:
		t, ok := v.(time.Time)
		if !ok {
			return fmt.Errorf("odbcbulk: column %d: expected time.Time, got %T", cb.Column(), v)
		}
		cb.SetTimestamp(i, SQL_TIMESTAMP_STRUCT{
			Year:     SQLSMALLINT(t.Year()),
			Month:    SQLUSMALLINT(t.Month()),
			Day:      SQLUSMALLINT(t.Day()),
			Hour:     SQLUSMALLINT(t.Hour()),
			Minute:   SQLUSMALLINT(t.Minute()),
			Second:   SQLUSMALLINT(t.Second()),
			Fraction: SQLUINTEGER((t.Nanosecond() / 1_000_000) * 1_000_000),
		})
		cb.SetIndicator(i, LengthIndicator(int(unsafe.Sizeof(SQL_TIMESTAMP_STRUCT{}))))
	case KindWideText:
		s, ok := v.(string)
		if !ok {
			s = fmt.Sprintf("%v", v)
		}
		cb.SetValue(i, utf16LEBytes(s))
	case KindBinary:
		b, ok := v.([]byte)
		if !ok {
			return fmt.Errorf("odbcbulk: column %d: expected []byte, got %T", cb.Column(), v)
		}
		cb.SetValue(i, b)
	case KindText:
		s, ok := v.(string)
		if !ok {
			s = fmt.Sprintf("%v", v)
		}
		cb.SetValue(i, []byte(s))
	default:
		return fmt.Errorf("odbcbulk: column %d: unsupported array-parameter kind %s", cb.Column(), kind)
	}
	return nil
}

// utf16LEBytes encodes s as little-endian UTF-16 bytes, without a
// trailing null terminator: ColumnBuffer.SetValue's indicator already
// carries the payload length.
func utf16LEBytes(s string) []byte {
	units := stringToUTF16(s)
	units = units[:len(units)-1] // drop stringToUTF16's null terminator
	out := make([]byte, len(units)*2)
	for i, u := range units {
		out[i*2] = byte(u)
		out[i*2+1] = byte(u >> 8)
	}
	return out
}

// columnSizeForDesc returns the SQL column size to declare when binding
// a parameter array buffer described by desc.
func columnSizeForDesc(desc BufferDesc) SQLULEN {
	switch desc.Kind {
	case KindText, KindWideText, KindBinary:
		return SQLULEN(desc.MaxLen)
	case KindTimestamp:
		return 23
	case KindI64:
		return 20
	case KindF64:
		return 15
	default:
		return 0
	}
}

// decimalDigitsForDesc returns the SQL decimal-digits (scale) to declare
// when binding a parameter array buffer described by desc.
func decimalDigitsForDesc(desc BufferDesc) SQLSMALLINT {
	if desc.Kind == KindTimestamp {
		return 3
	}
	return 0
}

// SQLTypeName returns a human-readable name for an SQL type
func SQLTypeName(sqlType SQLSMALLINT) string {
	switch sqlType {
	case SQL_CHAR:
		return "CHAR"
	case SQL_VARCHAR:
		return "VARCHAR"
	case SQL_LONGVARCHAR:
		return "LONGVARCHAR"
	case SQL_WCHAR:
		return "WCHAR"
	case SQL_WVARCHAR:
		return "WVARCHAR"
	case SQL_WLONGVARCHAR:
		return "WLONGVARCHAR"
	case SQL_DECIMAL:
		return "DECIMAL"
	case SQL_NUMERIC:
		return "NUMERIC"
	case SQL_SMALLINT:
		return "SMALLINT"
	case SQL_INTEGER:
		return "INTEGER"
	case SQL_REAL:
		return "REAL"
	case SQL_FLOAT:
		return "FLOAT"
	case SQL_DOUBLE:
		return "DOUBLE"
	case SQL_BIT:
		return "BIT"
	case SQL_TINYINT:
		return "TINYINT"
	case SQL_BIGINT:
		return "BIGINT"
	case SQL_BINARY:
		return "BINARY"
	case SQL_VARBINARY:
		return "VARBINARY"
	case SQL_LONGVARBINARY:
		return "LONGVARBINARY"
	case SQL_TYPE_DATE:
		return "DATE"
	case SQL_TYPE_TIME:
		return "TIME"
	case SQL_TYPE_TIMESTAMP:
		return "TIMESTAMP"
	case SQL_DATETIME:
		return "DATETIME"
	case SQL_GUID:
		return "GUID"
	// Interval types
	case SQL_INTERVAL_YEAR:
		return "INTERVAL YEAR"
	case SQL_INTERVAL_MONTH:
		return "INTERVAL MONTH"
	case SQL_INTERVAL_DAY:
		return "INTERVAL DAY"
	case SQL_INTERVAL_HOUR:
		return "INTERVAL HOUR"
	case SQL_INTERVAL_MINUTE:
		return "INTERVAL MINUTE"
	case SQL_INTERVAL_SECOND:
		return "INTERVAL SECOND"
	case SQL_INTERVAL_YEAR_TO_MONTH:
		return "INTERVAL YEAR TO MONTH"
	case SQL_INTERVAL_DAY_TO_HOUR:
		return "INTERVAL DAY TO HOUR"
	case SQL_INTERVAL_DAY_TO_MINUTE:
		return "INTERVAL DAY TO MINUTE"
	case SQL_INTERVAL_DAY_TO_SECOND:
		return "INTERVAL DAY TO SECOND"
	case SQL_INTERVAL_HOUR_TO_MINUTE:
		return "INTERVAL HOUR TO MINUTE"
	case SQL_INTERVAL_HOUR_TO_SECOND:
		return "INTERVAL HOUR TO SECOND"
	case SQL_INTERVAL_MINUTE_TO_SECOND:
		return "INTERVAL MINUTE TO SECOND"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", sqlType)
	}
}
