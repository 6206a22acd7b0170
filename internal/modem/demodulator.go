package modem

import (
	"errors"
	"fmt"

	"github.com/cwsl/lora-phy/internal/chirp"
	"github.com/cwsl/lora-phy/internal/detector"
	"github.com/cwsl/lora-phy/internal/phyparam"
)

// State is one state of the demodulator's per-work-cycle state machine
// (spec §4.8).
type State int

const (
	StateFrameSync State = iota
	StateDownchirp0
	StateDownchirp1
	StateQuarterChirp
	StateDataSymbols
)

func (s State) String() string {
	switch s {
	case StateFrameSync:
		return "FRAMESYNC"
	case StateDownchirp0:
		return "DOWNCHIRP0"
	case StateDownchirp1:
		return "DOWNCHIRP1"
	case StateQuarterChirp:
		return "QUARTERCHIRP"
	case StateDataSymbols:
		return "DATASYMBOLS"
	default:
		return "UNKNOWN"
	}
}

// ErrNeedMoreSamples is returned by Step when fewer than Needed samples
// were supplied for the current state; per spec §5 the demodulator
// suspends rather than erroring, resuming on the next Step call once the
// caller has more input buffered.
type ErrNeedMoreSamples struct {
	Needed int
}

func (e *ErrNeedMoreSamples) Error() string {
	return fmt.Sprintf("modem: need %d samples", e.Needed)
}

// StepResult reports what one Step call did.
type StepResult struct {
	Consumed        int
	State           State
	PacketReady     bool
	Symbols         []uint16
	Power           float64
	SNR             float64
	FineFreqError   float64
	CoarseFreqError float64
}

// Demodulator recovers a symbol vector from a complex baseband sample
// stream: preamble lock, sync-word match, downchirp/quarter-chirp
// alignment, and an MTU-bounded DATASYMBOLS capture (spec §4.8). Step is
// the work() cycle: it consumes a caller-owned prefix of samples and
// either suspends (ErrNeedMoreSamples), reports progress, or reports a
// completed packet.
type Demodulator struct {
	cfg              phyparam.Config
	n                int
	samplesPerSymbol int

	det      *detector.Detector
	fineTune *fineTuneTable

	upRef      []complex64
	downRef    []complex64
	quarterRef []complex64

	state           State
	pendingSyncHi   bool
	fineFreqErr     float64
	coarseFreqErr   float64
	downchirp0Off   float64
	symbols         []uint16
}

// NewDemodulator builds a demodulator for the given block configuration.
func NewDemodulator(cfg phyparam.Config) (*Demodulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n := cfg.N()
	sps := n * cfg.OVS

	upGen := chirp.NewGenerator(n, cfg.OVS, 1)
	downGen := chirp.NewGenerator(n, cfg.OVS, 1)

	d := &Demodulator{
		cfg:              cfg,
		n:                n,
		samplesPerSymbol: sps,
		det:              detector.New(n),
		fineTune:         newFineTuneTable(n),
		upRef:            upGen.Upchirp(0),
		downRef:          downGen.Downchirp(0),
		quarterRef:       downGen.QuarterDownchirp(0),
		state:            StateFrameSync,
	}
	return d, nil
}

// Reset returns the demodulator to FRAMESYNC and clears all tracked
// state, as happens at packet end or squelch timeout (spec §3 Lifecycle).
func (d *Demodulator) Reset() {
	d.state = StateFrameSync
	d.pendingSyncHi = false
	d.fineFreqErr = 0
	d.coarseFreqErr = 0
	d.downchirp0Off = 0
	d.symbols = nil
}

func dechirpAndDecimate(samples, ref []complex64, ovs int) []complex64 {
	n := len(ref) / ovs
	out := make([]complex64, n)
	for i := 0; i < n; i++ {
		s := samples[i*ovs]
		r := ref[i*ovs]
		out[i] = s * complex(real(r), -imag(r))
	}
	return out
}

// wrapSigned maps a bin index in [0, n) to a signed offset in [-n/2, n/2).
func wrapSigned(v, n int) int {
	if v >= n/2 {
		return v - n
	}
	return v
}

// Step runs one work cycle. samples must hold at least Needed samples for
// the current state (n*OVS, except n/4*OVS-ish for QUARTERCHIRP); when it
// does not, Step returns *ErrNeedMoreSamples and consumes nothing.
func (d *Demodulator) Step(samples []complex64) (StepResult, error) {
	switch d.state {
	case StateFrameSync:
		return d.stepFrameSync(samples)
	case StateDownchirp0:
		return d.stepDownchirp(samples, true)
	case StateDownchirp1:
		return d.stepDownchirp(samples, false)
	case StateQuarterChirp:
		return d.stepQuarterChirp(samples)
	case StateDataSymbols:
		return d.stepDataSymbols(samples)
	default:
		return StepResult{}, errors.New("modem: unreachable demodulator state")
	}
}

func (d *Demodulator) detectSymbol(samples, ref []complex64) (v int, power, snr, fIndex float64, err error) {
	if len(samples) < d.samplesPerSymbol {
		return 0, 0, 0, 0, &ErrNeedMoreSamples{Needed: d.samplesPerSymbol}
	}
	tuned := d.fineTune.Rotate(samples[:d.samplesPerSymbol], d.fineFreqErr)
	mixed := dechirpAndDecimate(tuned, ref, d.cfg.OVS)
	res := d.det.Detect(mixed)
	return res.MaxIndex, res.Power, res.Power - res.PowerAvg, res.FIndex, nil
}

func (d *Demodulator) stepFrameSync(samples []complex64) (StepResult, error) {
	v, power, snr, fIndex, err := d.detectSymbol(samples, d.upRef)
	if err != nil {
		return StepResult{}, err
	}

	nibble := (v + 4) / 8

	if d.pendingSyncHi {
		d.pendingSyncHi = false
		if nibble == int(d.cfg.Sync&0xf) {
			d.state = StateDownchirp0
			return StepResult{
				Consumed: d.samplesPerSymbol,
				State:    d.state,
				Power:    power,
				SNR:      snr,
			}, nil
		}
	}

	hit := snr > d.cfg.ThreshDB && nibble == int(d.cfg.Sync>>4)
	if hit {
		d.pendingSyncHi = true
		return StepResult{Consumed: d.samplesPerSymbol, State: d.state, Power: power, SNR: snr}, nil
	}

	d.fineFreqErr += fIndex
	advance := (d.n - v) * d.cfg.OVS
	if advance <= 0 || advance > len(samples) {
		advance = d.samplesPerSymbol
	}
	return StepResult{
		Consumed:      advance,
		State:         d.state,
		Power:         power,
		SNR:           snr,
		FineFreqError: d.fineFreqErr,
	}, nil
}

func (d *Demodulator) stepDownchirp(samples []complex64, first bool) (StepResult, error) {
	v, power, snr, _, err := d.detectSymbol(samples, d.downRef)
	if err != nil {
		return StepResult{}, err
	}

	off := float64(wrapSigned(v, d.n))
	if first {
		d.downchirp0Off = off
		d.state = StateDownchirp1
	} else {
		d.coarseFreqErr = (d.downchirp0Off + off) / 2
		d.state = StateQuarterChirp
	}

	return StepResult{
		Consumed:        d.samplesPerSymbol,
		State:           d.state,
		Power:           power,
		SNR:             snr,
		CoarseFreqError: d.coarseFreqErr,
	}, nil
}

func (d *Demodulator) stepQuarterChirp(samples []complex64) (StepResult, error) {
	need := d.n/4 + int(d.coarseFreqErr/2)
	if need < 0 {
		need = 0
	}
	needSamples := need * d.cfg.OVS
	if len(samples) < needSamples {
		return StepResult{}, &ErrNeedMoreSamples{Needed: needSamples}
	}

	d.fineFreqErr += d.coarseFreqErr / 2
	d.state = StateDataSymbols
	d.symbols = d.symbols[:0]

	return StepResult{
		Consumed:      needSamples,
		State:         d.state,
		FineFreqError: d.fineFreqErr,
	}, nil
}

func (d *Demodulator) stepDataSymbols(samples []complex64) (StepResult, error) {
	v, power, snr, fIndex, err := d.detectSymbol(samples, d.upRef)
	if err != nil {
		return StepResult{}, err
	}

	d.fineFreqErr += fIndex
	d.symbols = append(d.symbols, uint16(v))

	mtu := d.cfg.MTU
	if mtu <= 0 {
		mtu = 1
	}

	// !(snr > thresh) also squelches on all-zero input, where snr is NaN.
	if len(d.symbols) >= mtu || !(snr > d.cfg.ThreshDB) {
		out := make([]uint16, len(d.symbols))
		copy(out, d.symbols)
		d.Reset()
		return StepResult{
			Consumed:    d.samplesPerSymbol,
			State:       StateFrameSync,
			PacketReady: true,
			Symbols:     out,
			Power:       power,
			SNR:         snr,
		}, nil
	}

	return StepResult{
		Consumed:      d.samplesPerSymbol,
		State:         d.state,
		Power:         power,
		SNR:           snr,
		FineFreqError: d.fineFreqErr,
	}, nil
}
