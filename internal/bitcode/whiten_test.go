package bitcode_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cwsl/lora-phy/internal/bitcode"
)

func TestXorCodewordsIsSelfInverse(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rdd := rapid.IntRange(0, 4).Draw(t, "rdd")
		width := 4 + rdd
		n := rapid.IntRange(1, 20).Draw(t, "n")
		bitOfs := rapid.IntRange(0, 8).Draw(t, "bitOfs")

		original := make([]byte, n)
		for i := range original {
			original[i] = byte(rapid.IntRange(0, (1<<uint(width))-1).Draw(t, "cw"))
		}

		whitened := append([]byte(nil), original...)
		bitcode.XorCodewords(whitened, width, rdd, bitOfs)

		dewhitened := append([]byte(nil), whitened...)
		bitcode.XorCodewords(dewhitened, width, rdd, bitOfs)
		require.Equal(t, original, dewhitened)
	})
}

func TestWhitenerSkipMatchesSequentialConsumption(t *testing.T) {
	rdd := 0
	width := 4

	skipped := bitcode.NewWhitener(rdd)
	skipped.Skip(5)
	wantKey := skipped.Next(width)

	sequential := bitcode.NewWhitener(rdd)
	for i := 0; i < 5; i++ {
		sequential.Next(width)
	}
	gotKey := sequential.Next(width)

	require.Equal(t, wantKey, gotKey)
}
