package transport

import "time"

type SecurityMode string

const (
	SecurityModeDevelopment SecurityMode = "development"
	SecurityModeProduction  SecurityMode = "production"
)

// TLSConfig points at PEM files; nothing is loaded until a connection is
// dialed or a listener starts.
type TLSConfig struct {
	Enabled            bool
	Mutual             bool
	InsecureSkipVerify bool
	CertFile           string
	KeyFile            string
	CAFile             string
	ServerName         string
}

// Config defines connection establishment and framing defaults.
type Config struct {
	ConnectTimeout   time.Duration
	HandshakeTimeout time.Duration
	PollInterval     time.Duration
	SendQueueDepth   int
	SecurityMode     SecurityMode
	TLS              TLSConfig
}

func DefaultConfig() Config {
	opts := DefaultOptions()
	return Config{
		ConnectTimeout:   5 * time.Second,
		HandshakeTimeout: 5 * time.Second,
		PollInterval:     opts.PollInterval,
		SendQueueDepth:   opts.SendQueueDepth,
		SecurityMode:     SecurityModeDevelopment,
	}
}

// WithDefaults fills every zero-valued field from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	if c.SendQueueDepth <= 0 {
		c.SendQueueDepth = def.SendQueueDepth
	}
	c.SecurityMode = NormalizeSecurityMode(c.SecurityMode)
	return c
}

func (c Config) Options() Options {
	return Options{
		PollInterval:   c.PollInterval,
		SendQueueDepth: c.SendQueueDepth,
	}.withDefaults()
}
