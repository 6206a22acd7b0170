package bitcode

// EncodeParity54 places a single even-parity bit over the full nibble in
// bit 4, giving a 5-bit codeword. This is the CR=4/5 code (RDD=1).
func EncodeParity54(nibble byte) byte {
	d0 := (nibble >> 0) & 1
	d1 := (nibble >> 1) & 1
	d2 := (nibble >> 2) & 1
	d3 := (nibble >> 3) & 1
	p := d0 ^ d1 ^ d2 ^ d3
	return (nibble & 0xf) | p<<4
}

// DecodeParity54 checks the parity(5,4) codeword. error is set on any
// mismatch; the low nibble is returned unchanged regardless.
func DecodeParity54(codeword byte) (nibble byte, errorFlag bool) {
	nibble = codeword & 0xf
	d0 := (nibble >> 0) & 1
	d1 := (nibble >> 1) & 1
	d2 := (nibble >> 2) & 1
	d3 := (nibble >> 3) & 1
	want := d0 ^ d1 ^ d2 ^ d3
	got := (codeword >> 4) & 1
	errorFlag = want != got
	return nibble, errorFlag
}

// EncodeParity64 places two even-parity bits in bits 4 and 5, over the
// same bit groupings the sx Hamming(8,4) code uses for b4 and b5. This is
// the CR=4/6 code (RDD=2).
func EncodeParity64(nibble byte) byte {
	d0 := (nibble >> 0) & 1
	d1 := (nibble >> 1) & 1
	d2 := (nibble >> 2) & 1
	d3 := (nibble >> 3) & 1
	p4 := d0 ^ d1 ^ d2
	p5 := d1 ^ d2 ^ d3
	return (nibble & 0xf) | p4<<4 | p5<<5
}

// DecodeParity64 checks the parity(6,4) codeword. error is set if either
// parity bit mismatches; the low nibble is returned unchanged regardless.
func DecodeParity64(codeword byte) (nibble byte, errorFlag bool) {
	nibble = codeword & 0xf
	d0 := (nibble >> 0) & 1
	d1 := (nibble >> 1) & 1
	d2 := (nibble >> 2) & 1
	d3 := (nibble >> 3) & 1
	wantP4 := d0 ^ d1 ^ d2
	wantP5 := d1 ^ d2 ^ d3
	gotP4 := (codeword >> 4) & 1
	gotP5 := (codeword >> 5) & 1
	errorFlag = wantP4 != gotP4 || wantP5 != gotP5
	return nibble, errorFlag
}
