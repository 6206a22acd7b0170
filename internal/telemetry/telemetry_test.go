package telemetry_test

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/cwsl/lora-phy/internal/codec"
	"github.com/cwsl/lora-phy/internal/telemetry"
)

// TestMetricsRecordResultAndDetect exercises every collector via the
// public API in one test function, since promauto registers against the
// default registry and a second telemetry.New() call in this process
// would panic on duplicate registration.
func TestMetricsRecordResultAndDetect(t *testing.T) {
	m := telemetry.New()

	m.RecordResult("chan0", codec.Result{Payload: []byte("ok"), FECCount: 2})
	m.RecordResult("chan0", codec.Result{Dropped: true, Reason: codec.DropCRC})
	m.RecordDetect("chan0", -12.5, 30.0, 0.02)

	const expected = `
# HELP lora_packets_decoded_total Packets successfully decoded per channel.
# TYPE lora_packets_decoded_total counter
lora_packets_decoded_total{channel="chan0"} 1
`
	require.NoError(t, testutil.GatherAndCompare(prometheus.DefaultGatherer, strings.NewReader(expected), "lora_packets_decoded_total"))

	const expectedFEC = `
# HELP lora_fec_corrected_codewords_total Data codewords with a corrected or flagged FEC error, per channel.
# TYPE lora_fec_corrected_codewords_total counter
lora_fec_corrected_codewords_total{channel="chan0"} 2
`
	require.NoError(t, testutil.GatherAndCompare(prometheus.DefaultGatherer, strings.NewReader(expectedFEC), "lora_fec_corrected_codewords_total"))

	const expectedDropped = `
# HELP lora_packets_dropped_total Packets dropped per channel and reason.
# TYPE lora_packets_dropped_total counter
lora_packets_dropped_total{channel="chan0",reason="crc"} 1
`
	require.NoError(t, testutil.GatherAndCompare(prometheus.DefaultGatherer, strings.NewReader(expectedDropped), "lora_packets_dropped_total"))

	const expectedGauges = `
# HELP lora_detector_power_db Most recent detector peak-bin power, per channel.
# TYPE lora_detector_power_db gauge
lora_detector_power_db{channel="chan0"} -12.5
# HELP lora_detector_snr_db Most recent detector SNR estimate, per channel.
# TYPE lora_detector_snr_db gauge
lora_detector_snr_db{channel="chan0"} 30
`
	require.NoError(t, testutil.GatherAndCompare(prometheus.DefaultGatherer, strings.NewReader(expectedGauges), "lora_detector_power_db", "lora_detector_snr_db"))
}
