package kernel

import (
	"github.com/nnhe/nnhe/hetensor"
	"github.com/nnhe/nnhe/hevalue"
)

// Broadcast is §4.3.6: a purely structural kernel, no crypto involved.
// For every output coordinate it projects away the broadcast axes to
// find the corresponding input coordinate and aliases that slot's
// HeValue — copying the struct copies its Inner ciphertext pointer (for
// cipher slots) or its value slice header (for plain slots), not the
// underlying data, matching §4.3.6's "values are shared by reference
// semantics". Grounded on
// original_source/src/kernel/broadcast.cpp's CoordinateTransform-based
// project/index loop, re-expressed with explicit row-major strides
// instead of the original's CoordinateTransform helper class.
func Broadcast(in []hevalue.HeValue, inShape, outShape hetensor.Shape, broadcastAxes []int) ([]hevalue.HeValue, error) {
	isBroadcast := make(map[int]bool, len(broadcastAxes))
	for _, ax := range broadcastAxes {
		if ax < 0 || ax >= len(outShape) {
			return nil, &hetensor.UnsupportedAxis{Axis: ax}
		}
		isBroadcast[ax] = true
	}
	if len(outShape)-len(broadcastAxes) != len(inShape) {
		return nil, &hetensor.ShapeMismatch{Reason: "in_shape rank must equal out_shape rank minus len(broadcast_axes)"}
	}
	if len(in) < inShape.Product() {
		return nil, &hetensor.ShapeMismatch{Reason: "in slice shorter than in_shape implies"}
	}

	outStrides := rowMajorStrides(outShape)
	inStrides := rowMajorStrides(inShape)
	total := outShape.Product()

	out := make([]hevalue.HeValue, total)
	for idx := 0; idx < total; idx++ {
		rem := idx
		inIdx := 0
		inAxis := 0
		for axis, stride := range outStrides {
			coord := rem / stride
			rem %= stride
			if !isBroadcast[axis] {
				inIdx += coord * inStrides[inAxis]
				inAxis++
			}
		}
		out[idx] = in[inIdx]
	}
	return out, nil
}
