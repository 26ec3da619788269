package kernel

import "github.com/nnhe/nnhe/hescheme"
import "github.com/nnhe/nnhe/hevalue"

// Relinearize runs scheme.Relinearize over every cipher slot in slots,
// leaving plain slots untouched. Per §4.7 it is the kernel the
// inserted OpRelinearize graph node dispatches to: a no-op on BFV
// (folded into Mul/Square there) and a real key-switch on CKKS.
func Relinearize(scheme hescheme.Scheme, slots []hevalue.HeValue) ([]hevalue.HeValue, error) {
	out := make([]hevalue.HeValue, len(slots))
	for i, v := range slots {
		c, ok := v.Cipher()
		if !ok {
			out[i] = v
			continue
		}
		relin, err := scheme.Relinearize(c.Inner)
		if err != nil {
			return nil, err
		}
		c.Inner = relin
		out[i] = hevalue.FromCipher(c)
	}
	return out, nil
}
