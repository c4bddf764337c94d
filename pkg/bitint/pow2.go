// SPDX-License-Identifier: MIT

/*
Package bitint provides the power-of-two helpers used to size analysis
frames. Both functions are branch-light, allocation free and safe to call
from the capture hot path.

Usage:

	// Reject frame lengths the FFT cannot plan efficiently
	ok := bitint.IsPowerOfTwo(frameLength)

	// Suggest the closest valid frame length in an error message
	hint := bitint.NextPowerOfTwo(2000) // 2048
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size.
//
// The shift is computed from size-1 so exact powers of two map to
// themselves: for 8, size-1 = 0b0111 has bit length 3 and 1<<3 = 8.
//
//	Input  Output
//	2048   2048
//	2000   2048
//	0      1
//	-1     1
func NextPowerOfTwo(size int) int {
	if size <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2. A power of two
// has exactly one bit set, so clearing its lowest set bit with n&(n-1)
// leaves zero.
//
//	Input  Output  Binary
//	8      true    1000 & 0111 = 0000
//	7      false   0111 & 0110 = 0110
//	0      false   not positive
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
