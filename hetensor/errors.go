package hetensor

import "fmt"

// ShapeMismatch reports a tensor-level shape inconsistency: a write/read
// byte count that doesn't divide evenly into elements and batch lanes,
// a SetElements call with the wrong slot count, or a pack/unpack call on
// a shape that doesn't admit the requested transform.
type ShapeMismatch struct {
	Reason string
}

func (e *ShapeMismatch) Error() string { return fmt.Sprintf("shape mismatch: %s", e.Reason) }

// IoOutOfRange reports a write/read/get_element access past the bounds
// of the tensor. Grounded on HETensor::check_io_bounds in
// original_source/src/he_tensor.cpp, which throws std::out_of_range for
// the same condition.
type IoOutOfRange struct {
	Index, Bound int
}

func (e *IoOutOfRange) Error() string {
	return fmt.Sprintf("io out of range: index %d, bound %d", e.Index, e.Bound)
}

// UnsupportedAxis reports an attempt to pack/batch along any axis other
// than 0. Grounded on HETensor::pack_shape/unpack_shape in
// original_source/src/he_tensor.cpp, both of which throw
// ngraph_error("Packing only supported along axis 0") for batch_axis != 0.
type UnsupportedAxis struct {
	Axis int
}

func (e *UnsupportedAxis) Error() string {
	return fmt.Sprintf("unsupported axis %d: packing is only supported along axis 0", e.Axis)
}

// UnsupportedElementType reports a kernel or tensor operation seeing a
// datatype outside {f32, f64, i32, i64} (§4.2's element-type closure).
type UnsupportedElementType struct {
	Type DataType
}

func (e *UnsupportedElementType) Error() string {
	return fmt.Sprintf("unsupported element type %v", e.Type)
}
