package mqttpub

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateClientIDIsUniqueAndPrefixed(t *testing.T) {
	a := generateClientID()
	b := generateClientID()
	require.NotEqual(t, a, b)
	require.Contains(t, a, "lora-gwd_")
}

func TestLoadTLSConfigDisabledReturnsNil(t *testing.T) {
	cfg, err := loadTLSConfig(TLSConfig{Enabled: false})
	require.NoError(t, err)
	require.Nil(t, cfg)
}

func TestLoadTLSConfigMissingCACertErrors(t *testing.T) {
	_, err := loadTLSConfig(TLSConfig{Enabled: true, CACert: "/nonexistent/ca.pem"})
	require.Error(t, err)
}
