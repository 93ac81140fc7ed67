package publish

import (
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/temoto/meterlink/helpers"
)

const (
	DefaultTopicPrefix    = "meterlink"
	DefaultNetworkTimeout = 30 * time.Second
	DefaultKeepalive      = 60 * time.Second
)

type Config struct { //nolint:maligned
	Enable            bool   `hcl:"enable"`
	LogDebug          bool   `hcl:"log_debug"`
	MqttBroker        string `hcl:"mqtt_broker"`
	MqttClientId      string `hcl:"mqtt_client_id"`
	MqttUsername      string `hcl:"mqtt_username"`
	MqttPassword      string `hcl:"mqtt_password"` // secret
	MqttLogDebug      bool   `hcl:"mqtt_log_debug"`
	TopicPrefix       string `hcl:"topic_prefix"`
	KeepaliveSec      int    `hcl:"keepalive_sec"`
	NetworkTimeoutSec int    `hcl:"network_timeout_sec"`
	TlsCaFile         string `hcl:"tls_ca_file"`
	// Empty keeps queue in memory, undelivered reports are lost on exit.
	PersistPath string `hcl:"persist_path"`
}

func (c *Config) NetworkTimeout() time.Duration {
	d := helpers.IntSecondDefault(c.NetworkTimeoutSec, DefaultNetworkTimeout)
	if d < time.Second {
		d = time.Second
	}
	return d
}

func (c *Config) Keepalive() time.Duration {
	return helpers.IntSecondDefault(c.KeepaliveSec, DefaultKeepalive)
}

func (c *Config) TopicReport() string { return c.topic("report") }
func (c *Config) TopicState() string  { return c.topic("state") }
func (c *Config) TopicError() string  { return c.topic("error") }
func (c *Config) topic(suffix string) string {
	return fmt.Sprintf("%s/%s/%s", c.TopicPrefix, c.MqttClientId, suffix)
}

// Validate fills defaults, including random client id.
func (c *Config) Validate() error {
	if !c.Enable {
		return nil
	}
	if c.MqttBroker == "" {
		return errors.NotValidf("publish mqtt_broker empty")
	}
	if _, err := url.ParseRequestURI(c.MqttBroker); err != nil {
		return errors.NewNotValid(err, fmt.Sprintf("publish mqtt_broker=%s", c.MqttBroker))
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = DefaultTopicPrefix
	}
	if c.MqttClientId == "" {
		c.MqttClientId = "meterlink-" + uuid.New().String()
	}
	return nil
}
