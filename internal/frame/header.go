// Package frame implements the LoRa explicit-header framing: a
// three-byte header (payload length, coding-rate/CRC-flag nibble, and a
// 5-bit checksum) coded as five sx Hamming(8,4) codewords.
package frame

import "github.com/cwsl/lora-phy/internal/bitcode"

// Header is the parsed explicit PHY header.
type Header struct {
	Length     int  // payload length in bytes
	CRCPresent bool // whether a trailing CRC-16 follows the payload
	RDD        int  // body coding-rate redundancy, 0..4
}

// Encode packs a Header into its three raw bytes: length, coding
// info+CRC flag, and checksum.
func Encode(h Header) [3]byte {
	var raw [3]byte
	raw[0] = byte(h.Length)
	flags := byte(0)
	if h.CRCPresent {
		flags |= 0x1
	}
	flags |= byte(h.RDD) << 1
	raw[1] = flags & 0xf
	raw[2] = bitcode.HeaderChecksum(raw[0], raw[1])
	return raw
}

// Codewords produces the five sx Hamming(8,4) codewords transmitted in
// the header row for a Header.
func Codewords(h Header) [5]byte {
	raw := Encode(h)
	return [5]byte{
		bitcode.EncodeHamming84Sx(raw[0] >> 4),
		bitcode.EncodeHamming84Sx(raw[0] & 0xf),
		bitcode.EncodeHamming84Sx(raw[1] & 0xf),
		bitcode.EncodeHamming84Sx(raw[2] >> 4),
		bitcode.EncodeHamming84Sx(raw[2] & 0xf),
	}
}

// DecodeResult is the outcome of decoding the five header codewords.
type DecodeResult struct {
	Header         Header
	ChecksumOK     bool
	FECBad         bool // any codeword was uncorrectable
	FECErrorCount  int  // count of codewords with a corrected/flagged error
}

// Decode reconstructs a Header from the five explicit-header codewords,
// verifying the 5-bit checksum. RDD is not range-checked here; callers
// must reject RDD > 4 per spec §4.6 step 5.
func Decode(codewords [5]byte) DecodeResult {
	var res DecodeResult

	nib := make([]byte, 5)
	for i, cw := range codewords {
		n, errFlag, bad := bitcode.DecodeHamming84Sx(cw)
		nib[i] = n
		if errFlag {
			res.FECErrorCount++
		}
		if bad {
			res.FECBad = true
		}
	}

	lengthByte := nib[1] | nib[0]<<4
	flags := nib[2]
	checksumByte := nib[4] | nib[3]<<4

	res.Header = Header{
		Length:     int(lengthByte),
		CRCPresent: flags&0x1 != 0,
		RDD:        int((flags >> 1) & 0x7),
	}

	want := bitcode.HeaderChecksum(lengthByte, flags)
	res.ChecksumOK = want == checksumByte&0x1f

	return res
}
