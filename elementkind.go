package odbcbulk

import (
	"fmt"
	"unsafe"
)

// ElementKind is the closed set of column element kinds the bulk binding
// engine understands. Each kind is offered in two flavors: required
// (no indicator slab) and nullable (indicator slab present). Binary,
// Text, and WideText carry an indicator slab in both flavors because the
// indicator is also how the driver reports payload length.
type ElementKind int

const (
	KindBinary ElementKind = iota
	KindText
	KindWideText
	KindBit
	KindI8
	KindU8
	KindI16
	KindI32
	KindI64
	KindF32
	KindF64
	KindDate
	KindTime
	KindTimestamp
)

func (k ElementKind) String() string {
	switch k {
	case KindBinary:
		return "Binary"
	case KindText:
		return "Text"
	case KindWideText:
		return "WideText"
	case KindBit:
		return "Bit"
	case KindI8:
		return "I8"
	case KindU8:
		return "U8"
	case KindI16:
		return "I16"
	case KindI32:
		return "I32"
	case KindI64:
		return "I64"
	case KindF32:
		return "F32"
	case KindF64:
		return "F64"
	case KindDate:
		return "Date"
	case KindTime:
		return "Time"
	case KindTimestamp:
		return "Timestamp"
	default:
		return fmt.Sprintf("ElementKind(%d)", int(k))
	}
}

// isVariadic reports whether a kind is text/wide-text/binary: these
// always carry an indicator slab, and their value slab is row-major with
// a per-row maximum payload length rather than a fixed element width.
func (k ElementKind) isVariadic() bool {
	return k == KindBinary || k == KindText || k == KindWideText
}

// elementWidth returns the fixed element width in bytes for non-variadic
// kinds. It panics for variadic kinds, whose width depends on the
// buffer's max_len and is computed separately.
func (k ElementKind) elementWidth() int {
	switch k {
	case KindBit, KindI8, KindU8:
		return 1
	case KindI16:
		return 2
	case KindI32, KindF32:
		return 4
	case KindI64, KindF64:
		return 8
	case KindDate:
		return sqlDateStructSize
	case KindTime:
		return sqlTimeStructSize
	case KindTimestamp:
		return sqlTimestampStructSize
	default:
		panic(fmt.Sprintf("odbcbulk: elementWidth called on variadic kind %s", k))
	}
}

// cType returns the SQL_C_* type code used to bind a buffer of this kind.
func (k ElementKind) cType() SQLSMALLINT {
	switch k {
	case KindBinary:
		return SQL_C_BINARY
	case KindText:
		return SQL_C_CHAR
	case KindWideText:
		return SQL_C_WCHAR
	case KindBit:
		return SQL_C_BIT
	case KindI8:
		return SQL_C_STINYINT
	case KindU8:
		return SQL_C_UTINYINT
	case KindI16:
		return SQL_C_SSHORT
	case KindI32:
		return SQL_C_SLONG
	case KindI64:
		return SQL_C_SBIGINT
	case KindF32:
		return SQL_C_FLOAT
	case KindF64:
		return SQL_C_DOUBLE
	case KindDate:
		return SQL_C_DATE
	case KindTime:
		return SQL_C_TIME
	case KindTimestamp:
		return SQL_C_TIMESTAMP
	default:
		panic(fmt.Sprintf("odbcbulk: cType called on unknown kind %s", k))
	}
}

// defaultSQLType returns the relational SQL_* type code a buffer of this
// kind should declare when used to bind an input parameter.
func (k ElementKind) defaultSQLType() SQLSMALLINT {
	switch k {
	case KindBinary:
		return SQL_VARBINARY
	case KindText:
		return SQL_VARCHAR
	case KindWideText:
		return SQL_WVARCHAR
	case KindBit:
		return SQL_BIT
	case KindI8:
		return SQL_TINYINT
	case KindU8:
		return SQL_TINYINT
	case KindI16:
		return SQL_SMALLINT
	case KindI32:
		return SQL_INTEGER
	case KindI64:
		return SQL_BIGINT
	case KindF32:
		return SQL_REAL
	case KindF64:
		return SQL_DOUBLE
	case KindDate:
		return SQL_TYPE_DATE
	case KindTime:
		return SQL_TYPE_TIME
	case KindTimestamp:
		return SQL_TYPE_TIMESTAMP
	default:
		panic(fmt.Sprintf("odbcbulk: defaultSQLType called on unknown kind %s", k))
	}
}

var (
	sqlDateStructSize      = int(unsafe.Sizeof(SQL_DATE_STRUCT{}))
	sqlTimeStructSize      = int(unsafe.Sizeof(SQL_TIME_STRUCT{}))
	sqlTimestampStructSize = int(unsafe.Sizeof(SQL_TIMESTAMP_STRUCT{}))
)

// indicatorSlabEntrySize is the width in bytes of one cell of an
// indicator/length slab: a signed machine word, mirroring SQLLEN.
const indicatorSlabEntrySize = 8

// BufferDesc describes the shape of a column buffer to allocate: its
// element kind, nullability, and — for variadic kinds — the per-row
// maximum string length (MaxLen: bytes for Text, UTF-16 units for
// WideText), or — for Binary — the fixed payload length in bytes.
type BufferDesc struct {
	Kind     ElementKind
	Nullable bool
	MaxLen   int // meaningful only for Binary/Text/WideText
}

// Required builds a BufferDesc for a fixed-width non-nullable kind.
func Required(kind ElementKind) BufferDesc {
	return BufferDesc{Kind: kind, Nullable: false}
}

// NullableDesc builds a BufferDesc for a fixed-width nullable kind.
func NullableDesc(kind ElementKind) BufferDesc {
	return BufferDesc{Kind: kind, Nullable: true}
}

// BinaryDesc builds a BufferDesc for a fixed-length binary column.
func BinaryDesc(length int) BufferDesc {
	return BufferDesc{Kind: KindBinary, MaxLen: length}
}

// TextDesc builds a BufferDesc for a narrow-text column with the given
// maximum string length in bytes.
func TextDesc(maxStrLen int) BufferDesc {
	return BufferDesc{Kind: KindText, MaxLen: maxStrLen}
}

// WideTextDesc builds a BufferDesc for a wide-text (UTF-16) column with
// the given maximum string length in UTF-16 units.
func WideTextDesc(maxStrLen int) BufferDesc {
	return BufferDesc{Kind: KindWideText, MaxLen: maxStrLen}
}

// BytesPerRow computes the per-row byte footprint of a buffer described
// by d, per spec: fixed_width + (nullable ? indicator : 0) for
// fixed-width kinds; max_str_len + terminator + indicator for text
// kinds (string and terminator in 2-byte units for wide text); length +
// indicator for binary, which has no terminator.
func (d BufferDesc) BytesPerRow() int {
	switch d.Kind {
	case KindText:
		return d.MaxLen + 1 + indicatorSlabEntrySize
	case KindWideText:
		return (d.MaxLen+1)*2 + indicatorSlabEntrySize
	case KindBinary:
		return d.MaxLen + indicatorSlabEntrySize
	default:
		n := d.Kind.elementWidth()
		if d.Nullable {
			n += indicatorSlabEntrySize
		}
		return n
	}
}

// DataTypeToBufferDesc chooses a default BufferDesc for a SQL relational
// column, given its SQL type code, declared column size (display size /
// length), and decimal digits (scale), following the driver-reported
// metadata SQLDescribeCol/SQLColAttribute would surface.
func DataTypeToBufferDesc(sqlType SQLSMALLINT, columnSize int, decimalDigits int, nullable bool) BufferDesc {
	desc := dataTypeToBufferDescKind(sqlType, columnSize, decimalDigits)
	desc.Nullable = nullable
	return desc
}

func dataTypeToBufferDescKind(sqlType SQLSMALLINT, columnSize int, decimalDigits int) BufferDesc {
	switch sqlType {
	case SQL_NUMERIC, SQL_DECIMAL:
		if decimalDigits == 0 {
			switch {
			case columnSize < 3:
				return BufferDesc{Kind: KindI8}
			case columnSize < 10:
				return BufferDesc{Kind: KindI32}
			case columnSize < 19:
				return BufferDesc{Kind: KindI64}
			}
		}
		return TextDesc(columnSize)
	case SQL_INTEGER:
		return BufferDesc{Kind: KindI32}
	case SQL_SMALLINT:
		return BufferDesc{Kind: KindI16}
	case SQL_TINYINT:
		return BufferDesc{Kind: KindI8}
	case SQL_BIGINT:
		return BufferDesc{Kind: KindI64}
	case SQL_BIT:
		return BufferDesc{Kind: KindBit}
	case SQL_REAL:
		return BufferDesc{Kind: KindF32}
	case SQL_FLOAT, SQL_DOUBLE:
		return BufferDesc{Kind: KindF64}
	case SQL_CHAR, SQL_VARCHAR, SQL_LONGVARCHAR:
		return TextDesc(columnSize)
	case SQL_WCHAR, SQL_WVARCHAR, SQL_WLONGVARCHAR:
		return WideTextDesc(columnSize)
	case SQL_BINARY, SQL_VARBINARY, SQL_LONGVARBINARY:
		return BinaryDesc(columnSize)
	case SQL_TYPE_DATE:
		return BufferDesc{Kind: KindDate}
	case SQL_TYPE_TIME:
		if decimalDigits > 0 {
			return TextDesc(columnSize)
		}
		return BufferDesc{Kind: KindTime}
	case SQL_TYPE_TIMESTAMP:
		return BufferDesc{Kind: KindTimestamp}
	default:
		return TextDesc(columnSize)
	}
}
