// Package mqttpub publishes decoded LoRa packets to an MQTT broker, the
// common LoRaWAN-gateway integration path, following the connection setup
// and publish-loop conventions of mqtt_publisher.go.
package mqttpub

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/cwsl/lora-phy/internal/codec"
)

// TLSConfig is the client TLS material for a broker connection.
type TLSConfig struct {
	Enabled    bool
	CACert     string
	ClientCert string
	ClientKey  string
}

// Config configures the broker connection and publish topic layout.
type Config struct {
	Enabled     bool
	Broker      string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte
	Retain      bool
	TLS         TLSConfig
}

// Publisher publishes decoded packets and drop events to MQTT, on two
// topics per channel ("packet" and "dropped") under Config.TopicPrefix.
type Publisher struct {
	client mqtt.Client
	config Config
}

// Packet is the JSON payload published for one successfully decoded
// packet.
type Packet struct {
	Timestamp  int64  `json:"timestamp"`
	Channel    string `json:"channel"`
	SessionID  string `json:"session_id"`
	Payload    []byte `json:"payload"`
	Length     int    `json:"length"`
	CRCPresent bool   `json:"crc_present,omitempty"`
	FECErrors  int    `json:"fec_errors,omitempty"`
}

// DropEvent is the JSON payload published when a packet is dropped.
type DropEvent struct {
	Timestamp int64  `json:"timestamp"`
	Channel   string `json:"channel"`
	Reason    string `json:"reason"`
}

func generateClientID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return "lora-gwd_" + hex.EncodeToString(b)
}

func loadTLSConfig(cfg TLSConfig) (*tls.Config, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	tlsCfg := &tls.Config{}
	if cfg.CACert != "" {
		caCert, err := os.ReadFile(cfg.CACert)
		if err != nil {
			return nil, fmt.Errorf("read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("parse CA certificate")
		}
		tlsCfg.RootCAs = pool
	}
	if cfg.ClientCert != "" && cfg.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCert, cfg.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}
	return tlsCfg, nil
}

// New connects to the configured broker and returns a ready Publisher.
func New(cfg Config) (*Publisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(generateClientID())
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	if cfg.TLS.Enabled {
		tlsCfg, err := loadTLSConfig(cfg.TLS)
		if err != nil {
			return nil, fmt.Errorf("mqttpub: TLS config: %w", err)
		}
		opts.SetTLSConfig(tlsCfg)
	}

	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Println("mqttpub: connected to broker")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("mqttpub: connection lost: %v", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqttpub: connect to %s: %w", cfg.Broker, token.Error())
	}
	log.Printf("mqttpub: connected to %s", cfg.Broker)

	return &Publisher{client: client, config: cfg}, nil
}

// PublishDecoded publishes one decoded packet under
// "<prefix>/<channel>/packet".
func (p *Publisher) PublishDecoded(channel string, res codec.Result, now time.Time) error {
	pkt := Packet{
		Timestamp: now.Unix(),
		Channel:   channel,
		SessionID: uuid.NewString(),
		Payload:   res.Payload,
		Length:    len(res.Payload),
		FECErrors: res.FECCount,
	}
	if res.Header != nil {
		pkt.CRCPresent = res.Header.CRCPresent
	}
	body, err := json.Marshal(pkt)
	if err != nil {
		return fmt.Errorf("mqttpub: marshal packet: %w", err)
	}
	topic := fmt.Sprintf("%s/%s/packet", p.config.TopicPrefix, channel)
	token := p.client.Publish(topic, p.config.QoS, p.config.Retain, body)
	token.Wait()
	return token.Error()
}

// PublishDrop publishes one drop event under "<prefix>/<channel>/dropped".
func (p *Publisher) PublishDrop(channel string, res codec.Result, now time.Time) error {
	evt := DropEvent{Timestamp: now.Unix(), Channel: channel, Reason: res.Reason.String()}
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("mqttpub: marshal drop event: %w", err)
	}
	topic := fmt.Sprintf("%s/%s/dropped", p.config.TopicPrefix, channel)
	token := p.client.Publish(topic, p.config.QoS, p.config.Retain, body)
	token.Wait()
	return token.Error()
}

// Run publishes res on the appropriate topic depending on whether the
// packet was decoded or dropped, honoring ctx cancellation.
func (p *Publisher) Run(ctx context.Context, channel string, res codec.Result) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	now := time.Now()
	if res.Dropped {
		return p.PublishDrop(channel, res, now)
	}
	return p.PublishDecoded(channel, res, now)
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
