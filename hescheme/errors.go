package hescheme

import "fmt"

// SchemeParamError reports an invalid configuration: a bad
// poly_modulus_degree, an unknown scheme_name, a missing required key.
type SchemeParamError struct {
	Reason string
}

func (e *SchemeParamError) Error() string {
	return fmt.Sprintf("scheme parameter error: %s", e.Reason)
}

// BfvNonIntegral is returned by the BFV adapter's Encode when a value
// in the batch is not integral (value != math.Ceil(value)); the
// integer scheme has no notion of a fractional plaintext slot.
type BfvNonIntegral struct {
	Index int
	Value float64
}

func (e *BfvNonIntegral) Error() string {
	return fmt.Sprintf("bfv encode: value at index %d (%v) is not integral", e.Index, e.Value)
}

// SchemeError wraps whatever the underlying rlwe/heint/hefloat layer
// surfaces (noise budget exhausted, missing relinearization key, and
// so on) without this package trying to re-interpret it.
type SchemeError struct {
	Op    string
	Inner error
}

func (e *SchemeError) Error() string {
	return fmt.Sprintf("scheme error in %s: %v", e.Op, e.Inner)
}

func (e *SchemeError) Unwrap() error { return e.Inner }

func wrapSchemeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &SchemeError{Op: op, Inner: err}
}
