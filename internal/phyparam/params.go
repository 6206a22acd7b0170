// Package phyparam holds the LoRa PHY block configuration shared by the
// encoder, decoder, modulator, and demodulator, and the validation rules
// that turn a caller-supplied configuration into a halting error per the
// configuration error kind of the block design.
package phyparam

import "fmt"

// CodingRate is the caller-facing "4/N" string form of RDD.
type CodingRate string

const (
	CR4_4 CodingRate = "4/4"
	CR4_5 CodingRate = "4/5"
	CR4_6 CodingRate = "4/6"
	CR4_7 CodingRate = "4/7"
	CR4_8 CodingRate = "4/8"
)

// RDD maps a coding-rate string to its redundancy value 0..4.
func (cr CodingRate) RDD() (int, error) {
	switch cr {
	case CR4_4:
		return 0, nil
	case CR4_5:
		return 1, nil
	case CR4_6:
		return 2, nil
	case CR4_7:
		return 3, nil
	case CR4_8:
		return 4, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidCodingRate, cr)
	}
}

// RDDToCodingRate is the inverse of CodingRate.RDD, used when reporting a
// header-derived RDD back to a caller.
func RDDToCodingRate(rdd int) (CodingRate, error) {
	switch rdd {
	case 0:
		return CR4_4, nil
	case 1:
		return CR4_5, nil
	case 2:
		return CR4_6, nil
	case 3:
		return CR4_7, nil
	case 4:
		return CR4_8, nil
	default:
		return "", fmt.Errorf("%w: rdd=%d", ErrInvalidCodingRate, rdd)
	}
}

// Header framing constants, fixed regardless of the body's coding rate.
const (
	HeaderRDD             = 4
	NumHeaderSymbols      = 8
	NumHeaderCodewords    = 5
	HeaderPayloadBytes    = 3
)

// Config is the shared per-block configuration (spec §6). Not every field
// is meaningful to every block: SF/PPM/RDD/sync/whitening/interleaving
// apply everywhere; explicit/crc/errorCheck/exposeHeader/dataLength are
// codec-only; ampl/padding/ovs/mtu/threshDB are chirp/modem-only.
type Config struct {
	SF  int // 7..12
	PPM int // 0 means PPM==SF
	CR  CodingRate

	Sync byte

	Explicit     bool
	CRC          bool
	Whitening    bool
	Interleaving bool
	ErrorCheck   bool
	ExposeHeader bool
	DataLength   int // implicit-mode payload length in bytes

	Ampl     float64
	Padding  int
	OVS      int
	MTU      int
	ThreshDB float64
}

// EffectivePPM resolves the PPM==0 sentinel to SF.
func (c Config) EffectivePPM() int {
	if c.PPM == 0 {
		return c.SF
	}
	return c.PPM
}

// N is the number of samples per symbol, 2^SF.
func (c Config) N() int { return 1 << uint(c.SF) }

// Validate checks the configuration-error conditions of the block design:
// invalid coding-rate string, PPM > SF, and invalid oversampling.
func (c Config) Validate() error {
	if c.SF < 7 || c.SF > 12 {
		return fmt.Errorf("%w: SF=%d", ErrInvalidSF, c.SF)
	}
	if _, err := c.CR.RDD(); err != nil {
		return err
	}
	ppm := c.EffectivePPM()
	if ppm > c.SF || ppm <= 0 {
		return fmt.Errorf("%w: PPM=%d SF=%d", ErrPPMExceedsSF, ppm, c.SF)
	}
	if c.OVS < 1 || c.OVS > 256 {
		return fmt.Errorf("%w: OVS=%d", ErrInvalidOversample, c.OVS)
	}
	return nil
}

// RDD resolves the configured coding-rate string; callers that already
// validated the config can ignore the error.
func (c Config) RDD() int {
	rdd, _ := c.CR.RDD()
	return rdd
}
