package codec

import (
	"errors"
	"fmt"

	"github.com/cwsl/lora-phy/internal/bitcode"
	"github.com/cwsl/lora-phy/internal/frame"
	"github.com/cwsl/lora-phy/internal/interleave"
	"github.com/cwsl/lora-phy/internal/phyparam"
)

// ErrShortPacket is returned when fewer than a header row's worth of
// symbols were supplied, or the decoded data-nibble stream is shorter than
// the length the header (or, in implicit mode, the configuration) claims.
var ErrShortPacket = errors.New("codec: not enough symbols for a complete packet")

// Result is the outcome of decoding one packet's worth of symbols.
type Result struct {
	Payload  []byte
	Header   *frame.Header // set only when cfg.ExposeHeader and cfg.Explicit
	Dropped  bool
	Reason   DropReason
	FECBad   bool // any data codeword was uncorrectable
	FECCount int  // number of data codewords with a corrected/flagged error
}

// Decode runs the full LoRa decode pipeline (spec §4.6) over raw modem
// symbol values: PPM/Gray recovery, diagonal deinterleaving of the header
// row (fixed sx Hamming(8,4)) and data row (the configured coding rate, or
// the header's own RDD field in explicit mode), dewhitening, header
// parsing and checksum verification, FEC decode of every data codeword,
// and CRC-16 verification. Whether a header-checksum, CRC or FEC failure
// drops the packet is governed by cfg.ErrorCheck (spec §7b); a header
// whose RDD field exceeds 4 is dropped even with ErrorCheck disabled.
// Body codewords past the header/dataLength byte count (plus CRC) are not
// decoded, so trailing symbols do not affect FECBad or FECCount.
func Decode(symbols []uint16, cfg phyparam.Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	if len(symbols) < phyparam.NumHeaderSymbols {
		return Result{}, ErrShortPacket
	}

	ppm := cfg.EffectivePPM()
	rdd := cfg.RDD()
	codeWidth := codewordWidth(rdd)

	bodyLen := roundUp(len(symbols)-phyparam.NumHeaderSymbols, codeWidth)
	raw := make([]uint16, phyparam.NumHeaderSymbols+bodyLen)
	copy(raw, symbols)

	var headerCodewords, bodyCodewords []byte
	headerCW := 0
	if cfg.Explicit {
		headerCW = phyparam.NumHeaderCodewords
	}
	headerRowDataCount := ppm - headerCW

	if cfg.Interleaving {
		sym := ungrayShift(raw, cfg.SF, ppm)
		headerCodewords = interleave.Deinterleave(sym[:phyparam.NumHeaderSymbols], ppm, 8)
		if bodyLen > 0 {
			bodyCodewords = interleave.Deinterleave(sym[phyparam.NumHeaderSymbols:], ppm, codeWidth)
		}
	} else {
		sym := ungrayShift(symbols, cfg.SF, ppm)
		headerCodewords = make([]byte, ppm)
		for i := 0; i < ppm && i < len(sym); i++ {
			headerCodewords[i] = byte(sym[i])
		}
		if len(sym) > ppm {
			bodyCodewords = make([]byte, len(sym)-ppm)
			for i := range bodyCodewords {
				bodyCodewords[i] = byte(sym[ppm+i])
			}
		}
	}

	if cfg.Whitening {
		bitcode.XorCodewords(headerCodewords[headerCW:], codewordWidth(phyparam.HeaderRDD), phyparam.HeaderRDD, 0)
		if len(bodyCodewords) > 0 {
			bitcode.XorCodewords(bodyCodewords, codeWidth, rdd, headerRowDataCount)
		}
	}

	var hdr *frame.Header
	fecBad := false
	fecCount := 0
	effectiveRDD := rdd

	if cfg.Explicit {
		var raw5 [5]byte
		copy(raw5[:], headerCodewords[:phyparam.NumHeaderCodewords])
		hres := frame.Decode(raw5)
		fecCount += hres.FECErrorCount
		if hres.FECBad {
			fecBad = true
		}
		if !hres.ChecksumOK && cfg.ErrorCheck {
			return Result{Dropped: true, Reason: DropHeaderChecksum}, nil
		}
		if hres.Header.RDD > phyparam.HeaderRDD {
			return Result{Dropped: true, Reason: DropHeaderRDD}, nil
		}
		hdr = &hres.Header
		effectiveRDD = hres.Header.RDD
	}

	nibbles := make([]byte, 0, headerRowDataCount+len(bodyCodewords))
	for _, cw := range headerCodewords[headerCW:] {
		n, errFlag, bad := bitcode.DecodeHamming84Sx(cw)
		if errFlag {
			fecCount++
		}
		if bad {
			fecBad = true
		}
		nibbles = append(nibbles, n)
	}
	needNibbles := 2 * cfg.DataLength
	crcOn := cfg.CRC
	if hdr != nil {
		needNibbles, crcOn = 2*hdr.Length, hdr.CRCPresent
	}
	if crcOn {
		needNibbles += 4
	}
	for _, cw := range bodyCodewords {
		if len(nibbles) >= needNibbles {
			break
		}
		n, errFlag, bad := decodeDataCodeword(cw, effectiveRDD)
		if errFlag {
			fecCount++
		}
		if bad {
			fecBad = true
		}
		nibbles = append(nibbles, n)
	}

	dataBytes := packBytes(nibbles)

	var payloadLen int
	var crcPresent bool
	if cfg.Explicit {
		payloadLen = hdr.Length
		crcPresent = hdr.CRCPresent
	} else {
		payloadLen = cfg.DataLength
		crcPresent = cfg.CRC
	}

	totalNeeded := payloadLen
	if crcPresent {
		totalNeeded += 2
	}
	if totalNeeded < 0 || totalNeeded > len(dataBytes) {
		return Result{}, fmt.Errorf("%w: need %d data bytes, decoded %d", ErrShortPacket, totalNeeded, len(dataBytes))
	}

	if crcPresent {
		want := bitcode.CRC16(dataBytes[:payloadLen])
		got := uint16(dataBytes[payloadLen]) | uint16(dataBytes[payloadLen+1])<<8
		if want != got && cfg.ErrorCheck {
			return Result{Dropped: true, Reason: DropCRC, FECBad: fecBad, FECCount: fecCount}, nil
		}
	}

	if fecBad && cfg.ErrorCheck {
		return Result{Dropped: true, Reason: DropFECUncorrectable, FECBad: fecBad, FECCount: fecCount}, nil
	}

	res := Result{
		Payload:  dataBytes[:payloadLen],
		FECBad:   fecBad,
		FECCount: fecCount,
	}
	if cfg.Explicit && cfg.ExposeHeader {
		res.Header = hdr
	}
	return res, nil
}

// ungrayShift inverts grayShift: round-shift each symbol down out of the
// top PPM bits of the SF bit space, then re-apply forward Gray coding to
// recover the interleaved bit-vector.
func ungrayShift(symbols []uint16, sf, ppm int) []uint16 {
	out := make([]uint16, len(symbols))
	shift := uint(sf - ppm)
	half := uint16(0)
	if shift > 0 {
		half = uint16(1) << (shift - 1)
	}
	for i, s := range symbols {
		s += half
		s >>= shift
		out[i] = bitcode.Gray(s)
	}
	return out
}
