package odbcbulk

import (
	"fmt"
	"unsafe"
)

// maxColumnBufferBytes bounds a single column buffer's value-slab
// allocation. Requests above this are rejected by the fallible
// constructor rather than handed to make(), which would otherwise
// either succeed in exhausting memory or panic uncatchably for
// requests that overflow int.
const maxColumnBufferBytes = 1 << 34

// ColumnBuffer is a column's value slab plus, for nullable or variadic
// kinds, an indicator slab. It is the sole buffer representation for
// every element kind in the closed set (§3.2): fixed-width kinds use a
// flat byte slab reinterpreted through unsafe accessors below, variadic
// kinds use a row-major slab of capacity×stride bytes.
type ColumnBuffer struct {
	column     int
	desc       BufferDesc
	capacity   int
	stride     int // bytes per row in the value slab
	data       []byte
	indicators []SQLLEN // nil when the kind is fixed-width and required
}

// NewColumnBuffer is the fallible constructor: it never panics on an
// oversized request, returning a *TooLargeBufferError instead.
func NewColumnBuffer(column int, desc BufferDesc, capacity int) (*ColumnBuffer, error) {
	if capacity < 0 {
		return nil, &TooLargeBufferError{Column: column, NumElements: capacity, ElementSize: 0}
	}
	stride := valueStride(desc)
	total := capacity * stride
	if stride <= 0 || (capacity > 0 && total/capacity != stride) || total > maxColumnBufferBytes {
		return nil, &TooLargeBufferError{Column: column, NumElements: capacity, ElementSize: stride}
	}
	data, err := allocBytes(total)
	if err != nil {
		return nil, &TooLargeBufferError{Column: column, NumElements: capacity, ElementSize: stride}
	}
	var indicators []SQLLEN
	if desc.Nullable || desc.Kind.isVariadic() {
		indicators = make([]SQLLEN, capacity)
	}
	return &ColumnBuffer{column: column, desc: desc, capacity: capacity, stride: stride, data: data, indicators: indicators}, nil
}

// MustNewColumnBuffer is the infallible constructor; it panics on
// allocation failure rather than returning an error.
func MustNewColumnBuffer(column int, desc BufferDesc, capacity int) *ColumnBuffer {
	cb, err := NewColumnBuffer(column, desc, capacity)
	if err != nil {
		panic(err)
	}
	return cb
}

func allocBytes(n int) (b []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("odbcbulk: allocation of %d bytes failed: %v", n, r)
		}
	}()
	b = make([]byte, n)
	return b, nil
}

func valueStride(desc BufferDesc) int {
	switch desc.Kind {
	case KindText:
		return desc.MaxLen + 1
	case KindWideText:
		return (desc.MaxLen + 1) * 2
	case KindBinary:
		return desc.MaxLen
	default:
		return desc.Kind.elementWidth()
	}
}

// maxPayloadBytes returns the largest payload, in bytes, a variadic
// buffer's declared max_len admits before a value counts as truncated.
func (d BufferDesc) maxPayloadBytes() int {
	switch d.Kind {
	case KindWideText:
		return d.MaxLen * 2
	case KindText, KindBinary:
		return d.MaxLen
	default:
		panic(fmt.Sprintf("odbcbulk: maxPayloadBytes called on fixed-width kind %s", d.Kind))
	}
}

// Column returns the one-based result-set or parameter column index this
// buffer was allocated for.
func (cb *ColumnBuffer) Column() int { return cb.column }

// Desc returns the buffer's element description.
func (cb *ColumnBuffer) Desc() BufferDesc { return cb.desc }

// Capacity returns the number of rows the buffer can hold.
func (cb *ColumnBuffer) Capacity() int { return cb.capacity }

// ElementStride returns the per-row byte stride of the value slab.
func (cb *ColumnBuffer) ElementStride() int { return cb.stride }

// ValuePtr returns the address of the value slab's first byte, for
// binding to the driver. Returns 0 for a zero-capacity buffer.
func (cb *ColumnBuffer) ValuePtr() uintptr {
	if len(cb.data) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&cb.data[0]))
}

// IndicatorPtr returns the address of the indicator slab's first entry,
// or nil if this buffer carries no indicator slab.
func (cb *ColumnBuffer) IndicatorPtr() *SQLLEN {
	if len(cb.indicators) == 0 {
		return nil
	}
	return &cb.indicators[0]
}

// HasIndicator reports whether this buffer carries an indicator slab.
func (cb *ColumnBuffer) HasIndicator() bool { return cb.indicators != nil }

func (cb *ColumnBuffer) rowOffset(i int) int { return i * cb.stride }

// FillNull sets the indicator range [from, to) to NULL without touching
// the value slab. Panics if the buffer carries no indicator slab.
func (cb *ColumnBuffer) FillNull(from, to int) {
	if cb.indicators == nil {
		panic("odbcbulk: FillNull called on a buffer without an indicator slab")
	}
	for i := from; i < to; i++ {
		cb.indicators[i] = SQL_NULL_DATA
	}
}

// ZeroFill overwrites the value-slab range [from, to) with zero bytes,
// used to pad the tail of a required fixed-width buffer at flush time.
func (cb *ColumnBuffer) ZeroFill(from, to int) {
	start, end := cb.rowOffset(from), cb.rowOffset(to)
	for i := start; i < end; i++ {
		cb.data[i] = 0
	}
}

// FillDefault pads the rows in [validRows, Capacity()) so the buffer is
// safe to bind with a parameter-set size larger than the actual batch:
// NULL for nullable/variadic kinds, zero-valued elements otherwise.
func (cb *ColumnBuffer) FillDefault(validRows int) {
	if cb.indicators != nil {
		cb.FillNull(validRows, cb.capacity)
	}
	if !cb.desc.Nullable {
		cb.ZeroFill(validRows, cb.capacity)
	}
}

// IndicatorAt reports the indicator for row i. Fixed-width required
// buffers report a Length equal to the element stride, since they carry
// no real indicator and are never null or truncated.
func (cb *ColumnBuffer) IndicatorAt(i int) Indicator {
	if cb.indicators == nil {
		return LengthIndicator(cb.stride)
	}
	return IndicatorFromRaw(cb.indicators[i])
}

// SetIndicator writes the raw indicator value for row i directly; used
// when filling parameter buffers with an explicit NULL or length.
func (cb *ColumnBuffer) SetIndicator(i int, ind Indicator) {
	if cb.indicators == nil {
		panic("odbcbulk: SetIndicator called on a buffer without an indicator slab")
	}
	cb.indicators[i] = ind.Raw()
}

// HasTruncation scans the first numRows indicators of a variadic buffer
// and returns the first truncated one. Always reports false for
// fixed-width kinds, which cannot truncate.
func (cb *ColumnBuffer) HasTruncation(numRows int) (Indicator, bool) {
	if !cb.desc.Kind.isVariadic() {
		return Indicator{}, false
	}
	maxBytes := cb.desc.maxPayloadBytes()
	n := numRows
	if n > cb.capacity {
		n = cb.capacity
	}
	for i := 0; i < n; i++ {
		ind := IndicatorFromRaw(cb.indicators[i])
		if ind.IsTruncated(maxBytes) {
			return ind, true
		}
	}
	return Indicator{}, false
}

// HideTruncation clamps every truncated indicator in [0, numRows) to the
// buffer's max payload length, so a previously-fetched, truncated value
// can legally be rebound as input (spec's "terminating zero convention").
func (cb *ColumnBuffer) HideTruncation(numRows int) {
	if !cb.desc.Kind.isVariadic() {
		return
	}
	maxBytes := cb.desc.maxPayloadBytes()
	n := numRows
	if n > cb.capacity {
		n = cb.capacity
	}
	for i := 0; i < n; i++ {
		ind := IndicatorFromRaw(cb.indicators[i])
		if ind.IsTruncated(maxBytes) {
			cb.indicators[i] = SQLLEN(maxBytes)
		}
	}
}

// ValueAt returns the raw bytes stored for row i of a variadic buffer,
// and false if the row is NULL. The returned slice aliases the buffer
// and is invalidated by the next EnsureMaxElementLength call.
func (cb *ColumnBuffer) ValueAt(i int) ([]byte, bool) {
	if !cb.desc.Kind.isVariadic() {
		panic(fmt.Sprintf("odbcbulk: ValueAt called on fixed-width kind %s", cb.desc.Kind))
	}
	ind := IndicatorFromRaw(cb.indicators[i])
	if ind.IsNull() {
		return nil, false
	}
	maxBytes := cb.desc.maxPayloadBytes()
	n := maxBytes
	if length, ok := ind.Length(); ok && length < maxBytes {
		n = length
	}
	off := cb.rowOffset(i)
	return cb.data[off : off+n], true
}

// SetValue writes value into row i of a variadic buffer, or NULL when
// value is nil. Panics if the value exceeds the declared max payload
// length; call EnsureMaxElementLength first to grow the buffer.
func (cb *ColumnBuffer) SetValue(i int, value []byte) {
	if !cb.desc.Kind.isVariadic() {
		panic(fmt.Sprintf("odbcbulk: SetValue called on fixed-width kind %s", cb.desc.Kind))
	}
	if value == nil {
		cb.indicators[i] = SQL_NULL_DATA
		return
	}
	maxBytes := cb.desc.maxPayloadBytes()
	if len(value) > maxBytes {
		panic(fmt.Sprintf("odbcbulk: value of %d bytes exceeds max element length %d for column %d; call EnsureMaxElementLength first",
			len(value), maxBytes, cb.column))
	}
	off := cb.rowOffset(i)
	copy(cb.data[off:off+cb.stride], value)
	cb.indicators[i] = SQLLEN(len(value))
}

// EnsureMaxElementLength grows the per-row value allocation so each
// element can hold at least required bytes (required interpreted in the
// same units as the BufferDesc.MaxLen it was constructed with), copying
// forward the first preserveRows rows. Bookkeeping only: a buffer
// resized this way must be rebound to its statement before further use.
func (cb *ColumnBuffer) EnsureMaxElementLength(required int, preserveRows int) {
	if !cb.desc.Kind.isVariadic() {
		panic(fmt.Sprintf("odbcbulk: EnsureMaxElementLength called on fixed-width kind %s", cb.desc.Kind))
	}
	if required <= cb.desc.MaxLen {
		return
	}
	newDesc := cb.desc
	newDesc.MaxLen = required
	newStride := valueStride(newDesc)
	newData := make([]byte, cb.capacity*newStride)
	rows := preserveRows
	if rows > cb.capacity {
		rows = cb.capacity
	}
	for i := 0; i < rows; i++ {
		copy(newData[i*newStride:(i+1)*newStride], cb.data[i*cb.stride:(i+1)*cb.stride])
	}
	cb.data = newData
	cb.stride = newStride
	cb.desc = newDesc
}

// --- fixed-width typed accessors ---------------------------------------
//
// ODBC binds fixed-width C types in host-native layout, so these reuse
// the slab's backing memory directly via unsafe rather than an
// encoding/binary round trip.

func (cb *ColumnBuffer) fixedPtr(i int) unsafe.Pointer {
	return unsafe.Pointer(&cb.data[cb.rowOffset(i)])
}

func (cb *ColumnBuffer) Int8At(i int) int8  { return *(*int8)(cb.fixedPtr(i)) }
func (cb *ColumnBuffer) SetInt8(i int, v int8) { *(*int8)(cb.fixedPtr(i)) = v }

func (cb *ColumnBuffer) Uint8At(i int) uint8    { return *(*uint8)(cb.fixedPtr(i)) }
func (cb *ColumnBuffer) SetUint8(i int, v uint8) { *(*uint8)(cb.fixedPtr(i)) = v }

func (cb *ColumnBuffer) BitAt(i int) Bit      { return Bit(*(*byte)(cb.fixedPtr(i))) }
func (cb *ColumnBuffer) SetBit(i int, v Bit)  { *(*byte)(cb.fixedPtr(i)) = byte(v) }

func (cb *ColumnBuffer) Int16At(i int) int16    { return *(*int16)(cb.fixedPtr(i)) }
func (cb *ColumnBuffer) SetInt16(i int, v int16) { *(*int16)(cb.fixedPtr(i)) = v }

func (cb *ColumnBuffer) Int32At(i int) int32    { return *(*int32)(cb.fixedPtr(i)) }
func (cb *ColumnBuffer) SetInt32(i int, v int32) { *(*int32)(cb.fixedPtr(i)) = v }

func (cb *ColumnBuffer) Int64At(i int) int64    { return *(*int64)(cb.fixedPtr(i)) }
func (cb *ColumnBuffer) SetInt64(i int, v int64) { *(*int64)(cb.fixedPtr(i)) = v }

func (cb *ColumnBuffer) Float32At(i int) float32    { return *(*float32)(cb.fixedPtr(i)) }
func (cb *ColumnBuffer) SetFloat32(i int, v float32) { *(*float32)(cb.fixedPtr(i)) = v }

func (cb *ColumnBuffer) Float64At(i int) float64    { return *(*float64)(cb.fixedPtr(i)) }
func (cb *ColumnBuffer) SetFloat64(i int, v float64) { *(*float64)(cb.fixedPtr(i)) = v }

func (cb *ColumnBuffer) DateAt(i int) SQL_DATE_STRUCT { return *(*SQL_DATE_STRUCT)(cb.fixedPtr(i)) }
func (cb *ColumnBuffer) SetDate(i int, v SQL_DATE_STRUCT) {
	*(*SQL_DATE_STRUCT)(cb.fixedPtr(i)) = v
}

func (cb *ColumnBuffer) TimeAt(i int) SQL_TIME_STRUCT { return *(*SQL_TIME_STRUCT)(cb.fixedPtr(i)) }
func (cb *ColumnBuffer) SetTime(i int, v SQL_TIME_STRUCT) {
	*(*SQL_TIME_STRUCT)(cb.fixedPtr(i)) = v
}

func (cb *ColumnBuffer) TimestampAt(i int) SQL_TIMESTAMP_STRUCT {
	return *(*SQL_TIMESTAMP_STRUCT)(cb.fixedPtr(i))
}
func (cb *ColumnBuffer) SetTimestamp(i int, v SQL_TIMESTAMP_STRUCT) {
	*(*SQL_TIMESTAMP_STRUCT)(cb.fixedPtr(i)) = v
}
