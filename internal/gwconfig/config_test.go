package gwconfig_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cwsl/lora-phy/internal/gwconfig"
)

const sampleYAML = `
admin:
  listen_addr: "127.0.0.1:8090"
channels:
  - name: chan0
    multicast_addr: "239.10.0.1:5004"
    sf: 9
    ppm: 9
    cr: "4/5"
    sync: 52
    explicit: true
    crc: true
    whitening: true
    interleaving: true
    error_check: true
    expose_header: true
    ampl: 1.0
    padding: 4
    ovs: 4
    mtu: 255
    thresh_db: 6
mqtt:
  enabled: false
  broker: "tcp://localhost:1883"
  topic_prefix: "lora-gwd"
prometheus:
  enabled: true
  listen_addr: "127.0.0.1:9090"
monitor:
  enabled: true
  listen_addr: "127.0.0.1:9091"
capture:
  enabled: false
logging:
  debug: false
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, sampleYAML)
	cfg, err := gwconfig.Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Channels, 1)
	require.Equal(t, "chan0", cfg.Channels[0].Name)

	phyCfg, err := cfg.Channels[0].PHYConfig()
	require.NoError(t, err)
	require.Equal(t, 9, phyCfg.SF)
	require.True(t, phyCfg.Explicit)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := gwconfig.Load("/nonexistent/path/config.yaml")
	require.Error(t, err)
}

func TestLoadRejectsNoChannels(t *testing.T) {
	path := writeConfig(t, "channels: []\n")
	_, err := gwconfig.Load(path)
	require.Error(t, err)
}

func TestLoadRejectsDuplicateChannelNames(t *testing.T) {
	const dup = `
channels:
  - name: chan0
    multicast_addr: "239.10.0.1:5004"
    sf: 9
    cr: "4/5"
    ovs: 4
  - name: chan0
    multicast_addr: "239.10.0.2:5004"
    sf: 9
    cr: "4/5"
    ovs: 4
`
	path := writeConfig(t, dup)
	_, err := gwconfig.Load(path)
	require.Error(t, err)
}

func TestLoadRejectsInvalidPHYConfig(t *testing.T) {
	bad := `
channels:
  - name: chan0
    multicast_addr: "239.10.0.1:5004"
    sf: 20
    cr: "4/5"
    ovs: 4
`
	path := writeConfig(t, bad)
	_, err := gwconfig.Load(path)
	require.Error(t, err)
}
