package core

import "math"

// utoa converts an unsigned integer to a string without using fmt.
func utoa(n uint32) string {
	var buf [10]byte
	return string(appendUint(buf[:0], n))
}

// appendUint appends the decimal form of n to dst.
func appendUint(dst []byte, n uint32) []byte {
	if n == 0 {
		return append(dst, '0')
	}

	var tmp [10]byte
	pos := len(tmp)
	for n > 0 {
		pos--
		tmp[pos] = byte('0' + n%10)
		n /= 10
	}
	return append(dst, tmp[pos:]...)
}

// accumulateDigit adds one decimal digit to v, saturating at MaxUint32.
func accumulateDigit(v uint32, d byte) uint32 {
	next := uint64(v)*10 + uint64(d-'0')
	if next > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(next)
}
