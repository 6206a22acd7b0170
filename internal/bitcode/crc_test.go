package bitcode_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cwsl/lora-phy/internal/bitcode"
)

func TestCRC16SensitiveToSingleByteChange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := rapid.SliceOfN(rapid.Byte(), 1, 32).Draw(t, "data")
		idx := rapid.IntRange(0, len(data)-1).Draw(t, "idx")
		delta := byte(rapid.IntRange(1, 255).Draw(t, "delta"))

		before := bitcode.CRC16(data)
		mutated := append([]byte(nil), data...)
		mutated[idx] ^= delta
		after := bitcode.CRC16(mutated)

		require.NotEqual(t, before, after)
	})
}

func TestCRC16AllZeroPayloadIsNotZero(t *testing.T) {
	// The LFSR mask specifically defeats the degenerate all-zero case a
	// plain CCITT CRC would produce.
	zeros := make([]byte, 16)
	require.NotZero(t, bitcode.CRC16(zeros))
}

func TestHeaderChecksumDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		h0 := byte(rapid.IntRange(0, 255).Draw(t, "h0"))
		h1 := byte(rapid.IntRange(0, 255).Draw(t, "h1"))
		require.Equal(t, bitcode.HeaderChecksum(h0, h1), bitcode.HeaderChecksum(h0, h1))
	})
}
