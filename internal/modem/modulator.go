package modem

import (
	"fmt"
	"math"

	"github.com/cwsl/lora-phy/internal/chirp"
	"github.com/cwsl/lora-phy/internal/phyparam"
)

// Modulator turns a symbol vector (already coded and shifted by
// codec.Encode) into a phase-continuous complex baseband sample stream,
// following the WAIT_INPUT -> FRAMESYNC -> SYNCWORD0 -> SYNCWORD1 ->
// DOWNCHIRP0 -> DOWNCHIRP1 -> QUARTERCHIRP -> DATASYMBOLS -> PADSYMBOLS
// state sequence of spec §4.7. It is not a streaming work() step: one
// call runs a whole packet through, since the "external dataflow
// runtime" that would suspend it mid-packet is out of scope (spec §1).
type Modulator struct {
	cfg phyparam.Config
	gen *chirp.Generator
}

const numPreambleUpchirps = 10

// NewModulator builds a modulator for the given block configuration.
func NewModulator(cfg phyparam.Config) (*Modulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Modulator{
		cfg: cfg,
		gen: chirp.NewGenerator(cfg.N(), cfg.OVS, cfg.Ampl),
	}, nil
}

// symbolFreq maps a symbol value in [0, nn) to the chirp generator's f0
// convention: a cyclic shift of 2*pi*sym/nn radians/sample, where nn is
// the oversampled symbol length N*OVS.
func symbolFreq(sym, nn int) float64 {
	return 2 * math.Pi * float64(sym) / float64(nn)
}

// Modulate runs one full packet through the state machine and returns the
// sample stream and the label markers emitted along the way.
func (m *Modulator) Modulate(symbols []uint16) ([]complex64, []Label) {
	n := m.cfg.N()
	nn := n * m.cfg.OVS
	var samples []complex64
	var labels []Label

	emit := func(name string) {
		labels = append(labels, Label{Sample: len(samples), Name: name})
	}

	// FRAMESYNC
	for i := 0; i < numPreambleUpchirps; i++ {
		samples = append(samples, m.gen.Upchirp(0)...)
	}

	// SYNCWORD0 / SYNCWORD1
	emit("SYNC")
	syncHi := int(m.cfg.Sync>>4) * 8
	syncLo := int(m.cfg.Sync&0xf) * 8
	samples = append(samples, m.gen.Upchirp(symbolFreq(syncHi, nn))...)
	samples = append(samples, m.gen.Upchirp(symbolFreq(syncLo, nn))...)

	// DOWNCHIRP0 / DOWNCHIRP1
	emit("DC")
	samples = append(samples, m.gen.Downchirp(0)...)
	samples = append(samples, m.gen.Downchirp(0)...)

	// QUARTERCHIRP
	emit("QC")
	samples = append(samples, m.gen.QuarterDownchirp(0)...)

	// DATASYMBOLS
	for i, sym := range symbols {
		emit(fmt.Sprintf("S%d", i+1))
		samples = append(samples, m.gen.Upchirp(symbolFreq(int(sym), nn))...)
	}

	// PADSYMBOLS
	if m.cfg.Padding > 0 {
		pad := make([]complex64, m.cfg.Padding*n*m.cfg.OVS)
		samples = append(samples, pad...)
	}

	if len(samples) > 0 {
		labels = append(labels, Label{Sample: len(samples) - 1, Name: "txEnd"})
	}

	return samples, labels
}
