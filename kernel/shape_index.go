package kernel

import "github.com/nnhe/nnhe/hetensor"

// rowMajorStrides returns the row-major stride of each axis of shape:
// stride[i] = product(shape[i+1:]).
func rowMajorStrides(shape hetensor.Shape) []int {
	strides := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= shape[i]
	}
	return strides
}

// coordFromIndex decomposes a row-major linear index into a coordinate
// within shape.
func coordFromIndex(idx int, shape hetensor.Shape) []int {
	coord := make([]int, len(shape))
	strides := rowMajorStrides(shape)
	for axis, stride := range strides {
		coord[axis] = idx / stride
		idx %= stride
	}
	return coord
}

// linearIndex is coordFromIndex's inverse: it computes the row-major
// linear index of coord within shape.
func linearIndex(coord []int, shape hetensor.Shape) int {
	strides := rowMajorStrides(shape)
	idx := 0
	for axis, c := range coord {
		idx += c * strides[axis]
	}
	return idx
}

// concatCoords returns a fresh slice holding a followed by b, leaving
// both inputs untouched (append alone would risk aliasing a's backing
// array across loop iterations).
func concatCoords(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}
