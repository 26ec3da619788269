package kernel

import (
	"fmt"

	"github.com/nnhe/nnhe/hescheme"
	"github.com/nnhe/nnhe/hevalue"
)

// Rescale is §4.3.5: CKKS only, a no-op on BFV since bfvScheme.Rescale
// always returns rescaled=false. It determines the new chain index as
// the minimum existing chain_index across ciphertext slots minus one;
// if that minimum is already 0 there's no headroom left and the kernel
// returns immediately. Plaintext slots are untouched. Mutates slots in
// place and reports whether anything was rescaled.
func Rescale(scheme hescheme.Scheme, slots []hevalue.HeValue) (bool, error) {
	minChain := -1
	for _, v := range slots {
		if !v.IsCipher() {
			continue
		}
		c := v.MustCipher()
		if minChain == -1 || c.ChainIndex < minChain {
			minChain = c.ChainIndex
		}
	}
	if minChain <= 0 {
		// Either every slot is plaintext (minChain still -1) or the
		// lowest ciphertext is already at chain index 0: nothing to do.
		return false, nil
	}

	rescaledAny := false
	for i, v := range slots {
		if !v.IsCipher() {
			continue
		}
		c := v.MustCipher()
		newCt, rescaled, err := scheme.Rescale(c.Inner)
		if err != nil {
			return false, fmt.Errorf("kernel.Rescale: slot %d: %w", i, err)
		}
		if !rescaled {
			continue
		}
		c.Inner = newCt
		c.ChainIndex = scheme.ChainIndex(newCt)
		c.Scale = newCt.Scale.Float64()
		slots[i] = hevalue.FromCipher(c)
		rescaledAny = true
	}
	return rescaledAny, nil
}
