package kernel

import (
	"fmt"

	"github.com/nnhe/nnhe/hescheme"
	"github.com/nnhe/nnhe/hetensor"
	"github.com/nnhe/nnhe/hevalue"
)

// Dot is §4.3.4: given aShape = outerA ++ reduceAxes and
// bShape = reduceAxes ++ outerB (reductionAxes giving the count of
// shared trailing/leading axes), computes, for every (outerA, outerB)
// coordinate pair, the sum over the reduction axes of
// scalar_multiply(A[outerA,k], B[k,outerB]).
//
// The inner sum is accumulated with pairwise tree reduction — partial
// products are pushed onto a queue, the two oldest are repeatedly
// combined and the sum appended to the back, and the last remaining
// entry is the result. This is ported directly from
// original_source/src/kernel/dot.cpp's summing loop
// (`for (i = 0; i < summands.size() - 1; i += 2) { ...; summands.emplace_back(sum); }`,
// re-expressed with Go's growing-slice-in-a-for-loop, which has the
// same re-evaluated-bound semantics as the C++ `vector::size()` call):
// it keeps every partial sum at a similar scale/chain index, which is
// the property CKKS's rescale bookkeeping needs and is why §4.3.4 calls
// this order mandatory rather than incidental.
func Dot(scheme hescheme.Scheme, a, b []hevalue.HeValue, aShape, bShape hetensor.Shape, reductionAxes int) ([]hevalue.HeValue, hetensor.Shape, error) {
	if reductionAxes < 1 {
		return nil, nil, &hetensor.ShapeMismatch{Reason: "dot requires at least one reduction axis"}
	}
	if len(aShape) < reductionAxes || len(bShape) < reductionAxes {
		return nil, nil, &hetensor.ShapeMismatch{Reason: "reduction_axes_count exceeds an operand's rank"}
	}

	outerA := aShape[:len(aShape)-reductionAxes]
	reduceFromA := aShape[len(aShape)-reductionAxes:]
	reduceFromB := bShape[:reductionAxes]
	outerB := bShape[reductionAxes:]

	for i := range reduceFromA {
		if reduceFromA[i] != reduceFromB[i] {
			return nil, nil, &hetensor.ShapeMismatch{Reason: fmt.Sprintf(
				"dot reduction axis %d: extents %d vs %d", i, reduceFromA[i], reduceFromB[i])}
		}
	}

	outShape := concatShapes(outerA, outerB)
	outerASize := outerA.Product()
	outerBSize := outerB.Product()
	reduceSize := reduceFromB.Product()

	if len(a) < aShape.Product() || len(b) < bShape.Product() {
		return nil, nil, &hetensor.ShapeMismatch{Reason: "operand slot count does not match its declared shape"}
	}

	out := make([]hevalue.HeValue, outerASize*outerBSize)

	for pa := 0; pa < outerASize; pa++ {
		aOuterCoord := coordFromIndex(pa, outerA)

		for pb := 0; pb < outerBSize; pb++ {
			bOuterCoord := coordFromIndex(pb, outerB)

			summands := make([]hevalue.HeValue, 0, reduceSize)
			for k := 0; k < reduceSize; k++ {
				reduceCoord := coordFromIndex(k, reduceFromB)

				aIdx := linearIndex(concatCoords(aOuterCoord, reduceCoord), aShape)
				bIdx := linearIndex(concatCoords(reduceCoord, bOuterCoord), bShape)

				prod, err := ScalarMultiply(scheme, a[aIdx], b[bIdx])
				if err != nil {
					return nil, nil, err
				}
				summands = append(summands, prod)
			}

			for i := 0; i < len(summands)-1; i += 2 {
				sum, err := ScalarAdd(scheme, summands[i], summands[i+1])
				if err != nil {
					return nil, nil, err
				}
				summands = append(summands, sum)
			}

			out[pa*outerBSize+pb] = summands[len(summands)-1]
		}
	}

	return out, outShape, nil
}

func concatShapes(a, b hetensor.Shape) hetensor.Shape {
	out := make(hetensor.Shape, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}
