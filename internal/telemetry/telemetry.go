// Package telemetry exposes Prometheus metrics for the gateway daemon:
// per-channel decode counts, per-cause drop counts, and detector power/SNR
// gauges. It is the "observable side channel" of spec §9 — these metrics
// are observer-only and never feed back into decode correctness.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cwsl/lora-phy/internal/codec"
)

// Metrics holds the registered collectors, all labeled by channel name.
type Metrics struct {
	packetsDecoded *prometheus.CounterVec
	packetsDropped *prometheus.CounterVec
	fecErrors      *prometheus.CounterVec
	power          *prometheus.GaugeVec
	snr            *prometheus.GaugeVec
	fineFreqError  *prometheus.GaugeVec
}

// New creates and registers the gateway's metrics against the default
// registry, matching the promauto convention prometheus.go uses.
func New() *Metrics {
	return &Metrics{
		packetsDecoded: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lora_packets_decoded_total",
				Help: "Packets successfully decoded per channel.",
			},
			[]string{"channel"},
		),
		packetsDropped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lora_packets_dropped_total",
				Help: "Packets dropped per channel and reason.",
			},
			[]string{"channel", "reason"},
		),
		fecErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lora_fec_corrected_codewords_total",
				Help: "Data codewords with a corrected or flagged FEC error, per channel.",
			},
			[]string{"channel"},
		),
		power: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "lora_detector_power_db",
				Help: "Most recent detector peak-bin power, per channel.",
			},
			[]string{"channel"},
		),
		snr: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "lora_detector_snr_db",
				Help: "Most recent detector SNR estimate, per channel.",
			},
			[]string{"channel"},
		),
		fineFreqError: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "lora_fine_freq_error",
				Help: "Most recent fine-frequency error accumulator, per channel.",
			},
			[]string{"channel"},
		),
	}
}

// RecordResult updates decode/drop/FEC counters from one codec.Result.
func (m *Metrics) RecordResult(channel string, res codec.Result) {
	if res.Dropped {
		m.packetsDropped.WithLabelValues(channel, res.Reason.String()).Inc()
		return
	}
	m.packetsDecoded.WithLabelValues(channel).Inc()
	if res.FECCount > 0 {
		m.fecErrors.WithLabelValues(channel).Add(float64(res.FECCount))
	}
}

// RecordDetect updates the power/SNR/fine-frequency gauges from one
// demodulator work-cycle observation.
func (m *Metrics) RecordDetect(channel string, power, snr, fineFreqError float64) {
	m.power.WithLabelValues(channel).Set(power)
	m.snr.WithLabelValues(channel).Set(snr)
	m.fineFreqError.WithLabelValues(channel).Set(fineFreqError)
}
