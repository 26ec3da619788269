package hetensor

import (
	"encoding/binary"
	"math"
)

// decodeElement reads one element of dtype out of src (which must be at
// least dtype.ElementSize() bytes) as a float64, the common currency
// every Plaintext carries. Grounded on HETensor::write's
// type_to_double(src, element_type) call in
// original_source/src/he_tensor.cpp, re-expressed per concrete Go type
// instead of dispatching on an ngraph::element::Type at runtime.
func decodeElement(dtype DataType, src []byte) float64 {
	switch dtype {
	case F32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(src)))
	case F64:
		return math.Float64frombits(binary.LittleEndian.Uint64(src))
	case I32:
		return float64(int32(binary.LittleEndian.Uint32(src)))
	case I64:
		return float64(int64(binary.LittleEndian.Uint64(src)))
	default:
		return 0
	}
}

// encodeElement is decodeElement's inverse: it writes v into dst
// (dtype.ElementSize() bytes) in dtype's wire representation. Grounded
// on HETensor::read's ngraph::he::decode(dst, plain, element_type, ...)
// call in the same file.
func encodeElement(dtype DataType, v float64, dst []byte) {
	switch dtype {
	case F32:
		binary.LittleEndian.PutUint32(dst, math.Float32bits(float32(v)))
	case F64:
		binary.LittleEndian.PutUint64(dst, math.Float64bits(v))
	case I32:
		binary.LittleEndian.PutUint32(dst, uint32(int32(v)))
	case I64:
		binary.LittleEndian.PutUint64(dst, uint64(int64(v)))
	}
}
