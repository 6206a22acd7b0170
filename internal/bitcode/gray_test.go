package bitcode_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cwsl/lora-phy/internal/bitcode"
)

func TestGrayRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := uint16(rapid.IntRange(0, 1<<16-1).Draw(t, "n"))
		require.Equal(t, n, bitcode.UnGray(bitcode.Gray(n)))
	})
}

func TestGrayAdjacentSymbolsDifferByOneBit(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := uint16(rapid.IntRange(0, 1<<12-2).Draw(t, "n"))
		a := bitcode.Gray(n)
		b := bitcode.Gray(n + 1)
		diff := a ^ b
		require.NotZero(t, diff)
		require.Zero(t, diff&(diff-1), "adjacent Gray codes must differ in exactly one bit")
	})
}
