package modem_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cwsl/lora-phy/internal/modem"
	"github.com/cwsl/lora-phy/internal/phyparam"
)

func testConfig() phyparam.Config {
	return phyparam.Config{
		SF: 8, PPM: 8, CR: phyparam.CR4_5, Sync: 0x34,
		Explicit: true, CRC: true, Whitening: true, Interleaving: true,
		ErrorCheck: true, Ampl: 1.0, Padding: 4, OVS: 1, MTU: 255, ThreshDB: 6,
	}
}

func TestModulateLengthMatchesStateSequence(t *testing.T) {
	cfg := testConfig()
	mod, err := modem.NewModulator(cfg)
	require.NoError(t, err)

	symbols := []uint16{5, 17, 200}
	samples, labels := mod.Modulate(symbols)

	n := cfg.N()
	sps := n * cfg.OVS
	// 10 preamble + 2 syncword + 2 downchirp + len(symbols) full chirps,
	// one quarter chirp, plus zero padding.
	wantFull := (10 + 2 + 2 + len(symbols)) * sps
	wantQuarter := sps / 4
	wantPad := cfg.Padding * sps
	require.Len(t, samples, wantFull+wantQuarter+wantPad)

	last := labels[len(labels)-1]
	require.Equal(t, "txEnd", last.Name)
	require.Equal(t, len(samples)-1, last.Sample)
}

func TestModulateEmptySymbolsStillFramesSyncAndChirps(t *testing.T) {
	cfg := testConfig()
	cfg.Padding = 0
	mod, err := modem.NewModulator(cfg)
	require.NoError(t, err)

	samples, labels := mod.Modulate(nil)
	require.NotEmpty(t, samples)
	require.NotEmpty(t, labels)
}

func TestDemodulatorStepReportsNeedMoreSamples(t *testing.T) {
	cfg := testConfig()
	demod, err := modem.NewDemodulator(cfg)
	require.NoError(t, err)

	_, err = demod.Step(make([]complex64, 1))
	require.Error(t, err)
	var needMore *modem.ErrNeedMoreSamples
	require.ErrorAs(t, err, &needMore)
	require.Positive(t, needMore.Needed)
}
