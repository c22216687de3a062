package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/framewire/internal/transport"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownFormat = errors.New("config: unknown file format")
	ErrUnknownKeys   = errors.New("config: unknown keys")
)

// fileConfig mirrors transport.Config as it appears on disk. Nil fields
// were absent and keep their defaults.
type fileConfig struct {
	ConnectTimeout     *string `toml:"connect_timeout" yaml:"connect_timeout"`
	HandshakeTimeout   *string `toml:"handshake_timeout" yaml:"handshake_timeout"`
	PollInterval       *string `toml:"poll_interval" yaml:"poll_interval"`
	SendQueueDepth     *int    `toml:"send_queue_depth" yaml:"send_queue_depth"`
	SecurityMode       *string `toml:"security_mode" yaml:"security_mode"`
	TLSEnabled         *bool   `toml:"tls_enabled" yaml:"tls_enabled"`
	TLSMutual          *bool   `toml:"tls_mutual" yaml:"tls_mutual"`
	InsecureSkipVerify *bool   `toml:"tls_insecure_skip_verify" yaml:"tls_insecure_skip_verify"`
	CertFile           *string `toml:"tls_cert_file" yaml:"tls_cert_file"`
	KeyFile            *string `toml:"tls_key_file" yaml:"tls_key_file"`
	CAFile             *string `toml:"tls_ca_file" yaml:"tls_ca_file"`
	ServerName         *string `toml:"tls_server_name" yaml:"tls_server_name"`
}

// Format names a config file encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// Load reads a transport config from a .toml, .yaml or .yml file. Absent
// keys keep transport.DefaultConfig values; unknown keys are rejected.
func Load(path string) (transport.Config, error) {
	f, err := formatOf(path)
	if err != nil {
		return transport.Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return transport.Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	cfg, err := Parse(data, f)
	if err != nil {
		return transport.Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data in the given format.
func Parse(data []byte, f Format) (transport.Config, error) {
	var raw fileConfig
	switch f {
	case FormatTOML:
		meta, err := toml.Decode(string(data), &raw)
		if err != nil {
			return transport.Config{}, err
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			sort.Strings(keys)
			return transport.Config{}, fmt.Errorf("%w: %s", ErrUnknownKeys, strings.Join(keys, ", "))
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			var te *yaml.TypeError
			if errors.As(err, &te) && strings.Contains(err.Error(), "not found in type") {
				return transport.Config{}, fmt.Errorf("%w: %v", ErrUnknownKeys, err)
			}
			return transport.Config{}, err
		}
	default:
		return transport.Config{}, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	return raw.apply(transport.DefaultConfig())
}

func (raw fileConfig) apply(cfg transport.Config) (transport.Config, error) {
	durations := []struct {
		key string
		src *string
		dst *time.Duration
	}{
		{"connect_timeout", raw.ConnectTimeout, &cfg.ConnectTimeout},
		{"handshake_timeout", raw.HandshakeTimeout, &cfg.HandshakeTimeout},
		{"poll_interval", raw.PollInterval, &cfg.PollInterval},
	}
	for _, d := range durations {
		if d.src == nil {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(*d.src))
		if err != nil {
			return transport.Config{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		if v <= 0 {
			return transport.Config{}, fmt.Errorf("parse %s: must be positive, got %s", d.key, v)
		}
		*d.dst = v
	}

	if raw.SendQueueDepth != nil {
		if *raw.SendQueueDepth <= 0 {
			return transport.Config{}, fmt.Errorf("send_queue_depth must be positive, got %d", *raw.SendQueueDepth)
		}
		cfg.SendQueueDepth = *raw.SendQueueDepth
	}
	if raw.SecurityMode != nil {
		cfg.SecurityMode = transport.NormalizeSecurityMode(transport.SecurityMode(*raw.SecurityMode))
	}
	setBool(&cfg.TLS.Enabled, raw.TLSEnabled)
	setBool(&cfg.TLS.Mutual, raw.TLSMutual)
	setBool(&cfg.TLS.InsecureSkipVerify, raw.InsecureSkipVerify)
	setString(&cfg.TLS.CertFile, raw.CertFile)
	setString(&cfg.TLS.KeyFile, raw.KeyFile)
	setString(&cfg.TLS.CAFile, raw.CAFile)
	setString(&cfg.TLS.ServerName, raw.ServerName)
	return cfg, nil
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func formatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}
