// Package gwconfig loads the gateway daemon's YAML configuration:
// per-channel PHY parameters, ingest multicast groups, and the ambient
// MQTT/Prometheus/WebSocket/admin settings, following the LoadConfig and
// struct-tag conventions of config.go.
package gwconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cwsl/lora-phy/internal/mqttpub"
	"github.com/cwsl/lora-phy/internal/phyparam"
)

// Config is the top-level gateway configuration.
type Config struct {
	Admin      AdminConfig      `yaml:"admin"`
	Channels   []ChannelConfig  `yaml:"channels"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	Prometheus PrometheusConfig `yaml:"prometheus"`
	Monitor    MonitorConfig    `yaml:"monitor"`
	Capture    CaptureConfig    `yaml:"capture"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// AdminConfig contains the admin HTTP surface's bind address.
type AdminConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// ChannelConfig binds one multicast ingest group to a demodulator/decoder
// instance and its PHY parameters.
type ChannelConfig struct {
	Name         string  `yaml:"name"`
	MulticastAddr string `yaml:"multicast_addr"`
	Interface    string  `yaml:"interface,omitempty"`

	SF           int     `yaml:"sf"`
	PPM          int     `yaml:"ppm,omitempty"`
	CR           string  `yaml:"cr"`
	Sync         uint8   `yaml:"sync"`
	Explicit     bool    `yaml:"explicit"`
	CRC          bool    `yaml:"crc"`
	Whitening    bool    `yaml:"whitening"`
	Interleaving bool    `yaml:"interleaving"`
	ErrorCheck   bool    `yaml:"error_check"`
	ExposeHeader bool    `yaml:"expose_header"`
	DataLength   int     `yaml:"data_length,omitempty"`
	Ampl         float64 `yaml:"ampl"`
	Padding      int     `yaml:"padding"`
	OVS          int     `yaml:"ovs"`
	MTU          int     `yaml:"mtu"`
	ThreshDB     float64 `yaml:"thresh_db"`
}

// PHYConfig converts a ChannelConfig into the phyparam.Config the codec
// and modem packages consume.
func (c ChannelConfig) PHYConfig() (phyparam.Config, error) {
	cfg := phyparam.Config{
		SF:           c.SF,
		PPM:          c.PPM,
		CR:           phyparam.CodingRate(c.CR),
		Sync:         c.Sync,
		Explicit:     c.Explicit,
		CRC:          c.CRC,
		Whitening:    c.Whitening,
		Interleaving: c.Interleaving,
		ErrorCheck:   c.ErrorCheck,
		ExposeHeader: c.ExposeHeader,
		DataLength:   c.DataLength,
		Ampl:         c.Ampl,
		Padding:      c.Padding,
		OVS:          c.OVS,
		MTU:          c.MTU,
		ThreshDB:     c.ThreshDB,
	}
	if err := cfg.Validate(); err != nil {
		return phyparam.Config{}, fmt.Errorf("channel %q: %w", c.Name, err)
	}
	return cfg, nil
}

// MQTTConfig mirrors mqttpub.Config with YAML tags.
type MQTTConfig struct {
	Enabled     bool               `yaml:"enabled"`
	Broker      string             `yaml:"broker"`
	Username    string             `yaml:"username"`
	Password    string             `yaml:"password"`
	TopicPrefix string             `yaml:"topic_prefix"`
	QoS         byte               `yaml:"qos"`
	Retain      bool               `yaml:"retain"`
	TLS         MQTTTLSConfig      `yaml:"tls"`
}

// MQTTTLSConfig mirrors mqttpub.TLSConfig with YAML tags.
type MQTTTLSConfig struct {
	Enabled    bool   `yaml:"enabled"`
	CACert     string `yaml:"ca_cert"`
	ClientCert string `yaml:"client_cert"`
	ClientKey  string `yaml:"client_key"`
}

// ToPublisherConfig converts to the plain value object mqttpub.New takes.
func (m MQTTConfig) ToPublisherConfig() mqttpub.Config {
	return mqttpub.Config{
		Enabled:     m.Enabled,
		Broker:      m.Broker,
		Username:    m.Username,
		Password:    m.Password,
		TopicPrefix: m.TopicPrefix,
		QoS:         m.QoS,
		Retain:      m.Retain,
		TLS: mqttpub.TLSConfig{
			Enabled:    m.TLS.Enabled,
			CACert:     m.TLS.CACert,
			ClientCert: m.TLS.ClientCert,
			ClientKey:  m.TLS.ClientKey,
		},
	}
}

// PrometheusConfig contains the metrics HTTP endpoint's bind address.
type PrometheusConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

// MonitorConfig contains the websocket monitor endpoint's bind address.
type MonitorConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

// CaptureConfig controls the optional raw I/Q capture recorder.
type CaptureConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Directory   string `yaml:"directory"`
	Compression bool   `yaml:"compression"`
}

// LoggingConfig holds the debug-logging flag parsed from YAML. Nothing in
// the daemon reads Debug; its logging is unconditional.
type LoggingConfig struct {
	Debug bool `yaml:"debug"`
}

// Load reads and parses a YAML configuration file.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("gwconfig: read %s: %w", filename, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("gwconfig: parse %s: %w", filename, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks structural requirements Unmarshal cannot express:
// at least one channel, unique channel names, and that each channel's PHY
// parameters are individually valid.
func (c *Config) Validate() error {
	if len(c.Channels) == 0 {
		return fmt.Errorf("gwconfig: at least one channel is required")
	}
	seen := make(map[string]bool, len(c.Channels))
	for _, ch := range c.Channels {
		if seen[ch.Name] {
			return fmt.Errorf("gwconfig: duplicate channel name %q", ch.Name)
		}
		seen[ch.Name] = true
		if _, err := ch.PHYConfig(); err != nil {
			return err
		}
	}
	return nil
}
