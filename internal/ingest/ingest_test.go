package ingest_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cwsl/lora-phy/internal/ingest"
)

func TestNewReceiverStartsEmpty(t *testing.T) {
	r := ingest.NewReceiver(16)
	require.NotNil(t, r.Packets)
	require.Equal(t, 16, cap(r.Packets))
}

func TestStopBeforeStartIsNoop(t *testing.T) {
	r := ingest.NewReceiver(4)
	require.NotPanics(t, func() {
		r.Stop()
	})
}
