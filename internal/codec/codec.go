// Package codec implements the LoRa encoder and decoder pipelines:
// bytes -> header -> codewords -> whitening -> interleave -> Gray^-1 ->
// symbols, and its inverse.
package codec

import "github.com/cwsl/lora-phy/internal/bitcode"

// DropReason identifies which check caused a decoded packet to be
// discarded. It is observer-only telemetry (spec's "observable side
// channel") and never influences the decoding of other packets.
type DropReason int

const (
	DropNone DropReason = iota
	DropHeaderChecksum
	DropHeaderRDD
	DropCRC
	DropFECUncorrectable
)

func (r DropReason) String() string {
	switch r {
	case DropNone:
		return "none"
	case DropHeaderChecksum:
		return "header_checksum"
	case DropHeaderRDD:
		return "header_rdd"
	case DropCRC:
		return "crc"
	case DropFECUncorrectable:
		return "fec_uncorrectable"
	default:
		return "unknown"
	}
}

func roundUp(n, multiple int) int {
	if multiple <= 0 {
		return n
	}
	rem := n % multiple
	if rem == 0 {
		return n
	}
	return n + (multiple - rem)
}

// dataNibbles splits data into count nibbles, low nibble of byte 0 first,
// then its high nibble, then byte 1's low/high, and so on. Positions
// beyond len(data)*2 are zero, which is how trailing padding codewords
// (needed to round the codeword count up to a multiple of PPM) are filled.
func dataNibbles(data []byte, count int) []byte {
	out := make([]byte, count)
	for i := 0; i < count; i++ {
		byteIdx := i >> 1
		if byteIdx >= len(data) {
			continue
		}
		if i&1 == 0 {
			out[i] = data[byteIdx] & 0xf
		} else {
			out[i] = data[byteIdx] >> 4
		}
	}
	return out
}

// packBytes is the inverse of dataNibbles: pairs of nibbles (low, high)
// become bytes. Any odd trailing nibble is dropped.
func packBytes(nibbles []byte) []byte {
	out := make([]byte, len(nibbles)/2)
	for i := range out {
		out[i] = (nibbles[2*i] & 0xf) | (nibbles[2*i+1] << 4)
	}
	return out
}

func codewordWidth(rdd int) int { return 4 + rdd }

func encodeDataCodeword(nibble byte, rdd int) byte {
	switch rdd {
	case 0:
		return nibble & 0xf
	case 1:
		return bitcode.EncodeParity54(nibble)
	case 2:
		return bitcode.EncodeParity64(nibble)
	case 3:
		return bitcode.EncodeHamming74Sx(nibble)
	default:
		return bitcode.EncodeHamming84Sx(nibble)
	}
}

// decodeDataCodeword decodes one data codeword with the code selected by
// rdd. bad is only ever set for rdd==4 (sx Hamming(8,4) is the only code
// here with an uncorrectable classification).
func decodeDataCodeword(codeword byte, rdd int) (nibble byte, errorFlag bool, bad bool) {
	switch rdd {
	case 0:
		return codeword & 0xf, false, false
	case 1:
		n, e := bitcode.DecodeParity54(codeword)
		return n, e, false
	case 2:
		n, e := bitcode.DecodeParity64(codeword)
		return n, e, false
	case 3:
		n, e := bitcode.DecodeHamming74Sx(codeword)
		return n, e, false
	default:
		return bitcode.DecodeHamming84Sx(codeword)
	}
}
