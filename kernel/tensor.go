package kernel

import (
	"fmt"
	"runtime"

	"github.com/nnhe/nnhe/hescheme"
	"github.com/nnhe/nnhe/hetensor"
	"github.com/nnhe/nnhe/hevalue"
	"github.com/nnhe/nnhe/utils/concurrency"
)

// workerCount bounds how many tensor slots are processed concurrently;
// kernel workers are CPU-bound (§5's concurrency model), so one worker
// per core is the natural fan-out width.
func workerCount(n int) int {
	w := runtime.NumCPU()
	if w > n {
		w = n
	}
	if w < 1 {
		w = 1
	}
	return w
}

// fanOut runs f(i) for every i in [0, n) over a pool of workerCount(n)
// tokens, using the teacher's utils/concurrency.ResourceManager the
// same way kernel workers in the pack fan array-slot work out over a
// bounded set of reusable tokens. Output slots are written disjointly
// by each call, which is what makes this safe (§5).
func fanOut(n int, f func(i int) error) error {
	if n == 0 {
		return nil
	}
	tokens := make([]struct{}, workerCount(n))
	rm := concurrency.NewRessourceManager(tokens)
	for i := 0; i < n; i++ {
		i := i
		rm.Run(func(struct{}) error { return f(i) })
	}
	return rm.Wait()
}

// TensorAdd is §4.3.1's tensor-level form: a trivial parallel fan-out
// of ScalarAdd over matching slot pairs.
func TensorAdd(scheme hescheme.Scheme, a, b []hevalue.HeValue) ([]hevalue.HeValue, error) {
	if len(a) != len(b) {
		return nil, &hetensor.ShapeMismatch{Reason: fmt.Sprintf("tensor slot count mismatch: %d vs %d", len(a), len(b))}
	}
	out := make([]hevalue.HeValue, len(a))
	err := fanOut(len(a), func(i int) error {
		v, err := ScalarAdd(scheme, a[i], b[i])
		if err != nil {
			return err
		}
		out[i] = v
		return nil
	})
	return out, err
}

// TensorMultiply is §4.3.2's tensor-level form.
func TensorMultiply(scheme hescheme.Scheme, a, b []hevalue.HeValue) ([]hevalue.HeValue, error) {
	if len(a) != len(b) {
		return nil, &hetensor.ShapeMismatch{Reason: fmt.Sprintf("tensor slot count mismatch: %d vs %d", len(a), len(b))}
	}
	out := make([]hevalue.HeValue, len(a))
	err := fanOut(len(a), func(i int) error {
		v, err := ScalarMultiply(scheme, a[i], b[i])
		if err != nil {
			return err
		}
		out[i] = v
		return nil
	})
	return out, err
}

// TensorNegate is §4.3.3's tensor-level form.
func TensorNegate(scheme hescheme.Scheme, a []hevalue.HeValue) ([]hevalue.HeValue, error) {
	out := make([]hevalue.HeValue, len(a))
	err := fanOut(len(a), func(i int) error {
		v, err := ScalarNegate(scheme, a[i])
		if err != nil {
			return err
		}
		out[i] = v
		return nil
	})
	return out, err
}
