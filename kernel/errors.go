package kernel

import "fmt"

// ChainMismatch is returned by a binary kernel when both operands are
// ciphertexts at different chain indices; the kernels do not rescale
// either operand to make them match (§3 invariant 3, §4.3.7).
type ChainMismatch struct {
	A, B int
}

func (e *ChainMismatch) Error() string {
	return fmt.Sprintf("chain index mismatch: %d vs %d", e.A, e.B)
}

// ScaleMismatch is returned when both operands are ciphertexts with
// matching chain index but different CKKS scales — rescaling brings
// the chain index into line but does not by itself guarantee equal
// scales when the two operands took different paths to get there.
type ScaleMismatch struct {
	A, B float64
}

func (e *ScaleMismatch) Error() string {
	return fmt.Sprintf("scale mismatch: %v vs %v", e.A, e.B)
}
