package codec

import (
	"github.com/cwsl/lora-phy/internal/bitcode"
	"github.com/cwsl/lora-phy/internal/frame"
	"github.com/cwsl/lora-phy/internal/interleave"
	"github.com/cwsl/lora-phy/internal/phyparam"
)

// Encode runs the full LoRa encode pipeline (spec §4.5) over payload: an
// optional CRC-16 append, explicit-header framing, per-row FEC (the header
// row is always sx Hamming(8,4); the data row uses the configured coding
// rate), optional whitening and diagonal interleaving, and the Gray/PPM
// symbol mapping. It returns the raw modem symbol values (not yet
// shifted into a chirp phase — that is chirp.Generator's job).
func Encode(payload []byte, cfg phyparam.Config) ([]uint16, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ppm := cfg.EffectivePPM()
	rdd := cfg.RDD()

	data := payload
	if cfg.CRC {
		crc := bitcode.CRC16(payload)
		data = make([]byte, len(payload)+2)
		copy(data, payload)
		data[len(payload)] = byte(crc)
		data[len(payload)+1] = byte(crc >> 8)
	}

	headerCW := 0
	if cfg.Explicit {
		headerCW = phyparam.NumHeaderCodewords
	}
	totalCodewords := roundUp(2*len(data)+headerCW, ppm)
	dataCodewordCount := totalCodewords - headerCW
	nibbles := dataNibbles(data, dataCodewordCount)

	headerRowDataCount := ppm - headerCW
	codewords := make([]byte, totalCodewords)
	cOfs := 0

	if cfg.Explicit {
		hdr := frame.Header{Length: len(payload), CRCPresent: cfg.CRC, RDD: rdd}
		hcw := frame.Codewords(hdr)
		copy(codewords[:phyparam.NumHeaderCodewords], hcw[:])
		cOfs = phyparam.NumHeaderCodewords
	}

	nOfs := 0
	for i := 0; i < headerRowDataCount; i++ {
		codewords[cOfs] = bitcode.EncodeHamming84Sx(nibbles[nOfs])
		cOfs++
		nOfs++
	}

	if cfg.Whitening {
		bitcode.XorCodewords(codewords[headerCW:ppm], codewordWidth(phyparam.HeaderRDD), phyparam.HeaderRDD, 0)
	}

	if totalCodewords > ppm {
		bodyStart := cOfs
		for nOfs < len(nibbles) {
			codewords[cOfs] = encodeDataCodeword(nibbles[nOfs], rdd)
			cOfs++
			nOfs++
		}
		if cfg.Whitening {
			bitcode.XorCodewords(codewords[bodyStart:totalCodewords], codewordWidth(rdd), rdd, headerRowDataCount)
		}
	}

	if !cfg.Interleaving {
		symbols := make([]uint16, len(codewords))
		for i, c := range codewords {
			symbols[i] = uint16(c)
		}
		return grayShift(symbols, cfg.SF, ppm), nil
	}

	symbols := make([]uint16, 0, totalCodewords/ppm*8)
	symbols = append(symbols, interleave.Interleave(codewords[:ppm], ppm, 8)...)
	if totalCodewords > ppm {
		symbols = append(symbols, interleave.Interleave(codewords[ppm:], ppm, codewordWidth(rdd))...)
	}

	return grayShift(symbols, cfg.SF, ppm), nil
}

// grayShift converts each interleaved bit-vector into a transmittable
// symbol: inverse-Gray, then left-shifted into the top PPM bits of the SF
// bit symbol space (spec §4.5 step 6).
func grayShift(symbols []uint16, sf, ppm int) []uint16 {
	out := make([]uint16, len(symbols))
	shift := uint(sf - ppm)
	for i, s := range symbols {
		out[i] = bitcode.UnGray(s) << shift
	}
	return out
}
