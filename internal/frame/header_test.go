package frame_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cwsl/lora-phy/internal/frame"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		h := frame.Header{
			Length:     rapid.IntRange(0, 255).Draw(t, "length"),
			CRCPresent: rapid.Bool().Draw(t, "crc"),
			RDD:        rapid.IntRange(0, 4).Draw(t, "rdd"),
		}
		cw := frame.Codewords(h)
		res := frame.Decode(cw)
		require.True(t, res.ChecksumOK)
		require.False(t, res.FECBad)
		require.Zero(t, res.FECErrorCount)
		require.Equal(t, h, res.Header)
	})
}

func TestDecodeDetectsChecksumMismatch(t *testing.T) {
	h := frame.Header{Length: 10, CRCPresent: true, RDD: 1}
	cw := frame.Codewords(h)
	// Corrupt the checksum codeword's data nibble directly (not via a
	// bit-flip that Hamming(8,4) would silently correct).
	cw[4] = cw[4]&0xf0 | ((cw[4] & 0xf) ^ 0x3)
	res := frame.Decode(cw)
	require.False(t, res.ChecksumOK)
}

func TestDecodeCorrectsSingleBitErrorInHeaderCodeword(t *testing.T) {
	h := frame.Header{Length: 42, CRCPresent: false, RDD: 4}
	cw := frame.Codewords(h)
	cw[0] ^= 0x10 // flip a parity bit, not a data bit
	res := frame.Decode(cw)
	require.True(t, res.ChecksumOK)
	require.Equal(t, h, res.Header)
	require.Equal(t, 1, res.FECErrorCount)
}
