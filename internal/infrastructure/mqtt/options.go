package mqtt

import (
	"crypto/tls"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/fimp2ha/internal/infrastructure/config"
)

const (
	// defaultConnectTimeout applies when connect_timeout is unset.
	defaultConnectTimeout = 5 * time.Second

	// defaultPublishTimeout bounds every wait for a broker ack.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is in milliseconds, as paho expects.
	defaultDisconnectQuiesce = 1000

	keepAlive = 60 * time.Second
	maxQoS    = 2
	willQoS   = 1
)

// Values of the retained bridge status topic. Home Assistant can point an
// entity's availability_topic straight at it.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

func brokerURL(cfg config.MQTTConfig) string {
	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port)
}

// buildClientOptions maps the mqtt config section onto paho. The first
// connect is never retried; auto reconnect follows mqtt.reconnect.enabled.
// Paho's ordered routing is kept: handlers see messages one at a time in
// arrival order, so the first matching response is the one a request gets.
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	timeout := cfg.ConnectTimeout()
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(brokerURL(cfg)).
		SetClientID(cfg.Broker.ClientID).
		SetCleanSession(true).
		SetConnectTimeout(timeout).
		SetKeepAlive(keepAlive).
		SetConnectRetry(false).
		SetAutoReconnect(cfg.Reconnect.Enabled)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username).SetPassword(cfg.Auth.Password)
	}
	if cfg.Reconnect.Enabled {
		opts.SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second)
		opts.SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)
	}
	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	return opts
}

// configureLWT has the broker publish a retained "offline" to the bridge
// status topic if the session dies without Close.
func configureLWT(opts *pahomqtt.ClientOptions) {
	opts.SetWill(Topics{}.BridgeStatus(), StatusOffline, willQoS, true)
}
