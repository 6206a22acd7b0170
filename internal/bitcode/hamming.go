package bitcode

// The Hamming(8,4) and (7,4) variants below are not the textbook forms:
// they are the exact parity polynomials used by the SX1272 modem and must
// be reproduced bit-for-bit to interoperate with it.

// EncodeHamming84Sx encodes a 4-bit nibble into an 8-bit sx-variant
// Hamming codeword. The data nibble occupies bits 0..3 unchanged; bits
// 4..7 carry parity.
func EncodeHamming84Sx(nibble byte) byte {
	d0 := (nibble >> 0) & 1
	d1 := (nibble >> 1) & 1
	d2 := (nibble >> 2) & 1
	d3 := (nibble >> 3) & 1

	b4 := d0 ^ d1 ^ d2
	b5 := d1 ^ d2 ^ d3
	b6 := d0 ^ d1 ^ d3
	b7 := d0 ^ d2 ^ d3

	return (nibble & 0xf) | b4<<4 | b5<<5 | b6<<6 | b7<<7
}

// DecodeHamming84Sx recovers the data nibble from an sx Hamming(8,4)
// codeword. error is set on any nonzero syndrome; bad is set when the
// syndrome corresponds to an uncorrectable (multi-bit) error, in which
// case the raw low nibble is returned as-is.
func DecodeHamming84Sx(codeword byte) (nibble byte, errorFlag bool, bad bool) {
	b0 := (codeword >> 0) & 1
	b1 := (codeword >> 1) & 1
	b2 := (codeword >> 2) & 1
	b3 := (codeword >> 3) & 1
	b4 := (codeword >> 4) & 1
	b5 := (codeword >> 5) & 1
	b6 := (codeword >> 6) & 1
	b7 := (codeword >> 7) & 1

	p0 := b0 ^ b1 ^ b2 ^ b4
	p1 := b1 ^ b2 ^ b3 ^ b5
	p2 := b0 ^ b1 ^ b3 ^ b6
	p3 := b0 ^ b2 ^ b3 ^ b7

	syndrome := p0 | p1<<1 | p2<<2 | p3<<3
	corrected := codeword

	switch syndrome {
	case 0x0:
		// no error
	case 0x1, 0x2, 0x4, 0x8:
		// single parity bit flipped, data untouched
		errorFlag = true
	case 0xD:
		corrected ^= 0x1
		errorFlag = true
	case 0x7:
		corrected ^= 0x2
		errorFlag = true
	case 0xB:
		corrected ^= 0x4
		errorFlag = true
	case 0xE:
		corrected ^= 0x8
		errorFlag = true
	default:
		errorFlag = true
		bad = true
	}

	return corrected & 0xf, errorFlag, bad
}

// EncodeHamming74Sx encodes a 4-bit nibble into a 7-bit sx-variant
// Hamming codeword (no b7 parity bit).
func EncodeHamming74Sx(nibble byte) byte {
	d0 := (nibble >> 0) & 1
	d1 := (nibble >> 1) & 1
	d2 := (nibble >> 2) & 1
	d3 := (nibble >> 3) & 1

	b4 := d0 ^ d1 ^ d2
	b5 := d1 ^ d2 ^ d3
	b6 := d0 ^ d1 ^ d3

	return (nibble & 0xf) | b4<<4 | b5<<5 | b6<<6
}

// DecodeHamming74Sx recovers the data nibble from an sx Hamming(7,4)
// codeword, correcting any single-bit error. error is set whenever the
// syndrome is nonzero.
func DecodeHamming74Sx(codeword byte) (nibble byte, errorFlag bool) {
	b0 := (codeword >> 0) & 1
	b1 := (codeword >> 1) & 1
	b2 := (codeword >> 2) & 1
	b3 := (codeword >> 3) & 1
	b4 := (codeword >> 4) & 1
	b5 := (codeword >> 5) & 1
	b6 := (codeword >> 6) & 1

	p0 := b0 ^ b1 ^ b2 ^ b4
	p1 := b1 ^ b2 ^ b3 ^ b5
	p2 := b0 ^ b1 ^ b3 ^ b6

	syndrome := p0 | p1<<1 | p2<<2
	corrected := codeword

	switch syndrome {
	case 0x0:
		// no error
	case 0x1, 0x2, 0x4:
		// parity bit itself flipped, data untouched
		errorFlag = true
	case 0x5:
		corrected ^= 0x1
		errorFlag = true
	case 0x7:
		corrected ^= 0x2
		errorFlag = true
	case 0x3:
		corrected ^= 0x4
		errorFlag = true
	case 0x6:
		corrected ^= 0x8
		errorFlag = true
	default:
		errorFlag = true
	}

	return corrected & 0xf, errorFlag
}
