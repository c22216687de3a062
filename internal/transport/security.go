package transport

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidSecurityMode     = errors.New("transport: invalid security mode")
	ErrTLSRequired             = errors.New("transport: tls required")
	ErrMTLSRequired            = errors.New("transport: mtls required")
	ErrTLSCertFileRequired     = errors.New("transport: tls cert file required")
	ErrTLSKeyFileRequired      = errors.New("transport: tls key file required")
	ErrTLSCAFileRequired       = errors.New("transport: tls ca file required")
	ErrTLSInsecureSkipNotAllow = errors.New("transport: insecure skip verify not allowed")
)

// NormalizeSecurityMode lowercases mode; empty means development.
func NormalizeSecurityMode(mode SecurityMode) SecurityMode {
	v := strings.ToLower(strings.TrimSpace(string(mode)))
	if v == "" {
		return SecurityModeDevelopment
	}
	return SecurityMode(v)
}

// ValidateClientTransport checks the dialing side. Production demands
// verified mutual TLS; any TLS client needs a CA unless verification is
// explicitly skipped.
func (c Config) ValidateClientTransport() error {
	if err := c.validatePolicy(); err != nil {
		return err
	}
	if c.production() && c.TLS.InsecureSkipVerify {
		return ErrTLSInsecureSkipNotAllow
	}
	if !c.TLS.Enabled {
		return nil
	}
	if !c.TLS.InsecureSkipVerify && blank(c.TLS.CAFile) {
		return ErrTLSCAFileRequired
	}
	if c.TLS.Mutual {
		return c.requireKeyPair()
	}
	return nil
}

// ValidateServerTransport checks the listening side. A TLS server always
// needs its key pair; verifying clients also needs a CA.
func (c Config) ValidateServerTransport() error {
	if err := c.validatePolicy(); err != nil {
		return err
	}
	if !c.TLS.Enabled {
		return nil
	}
	if err := c.requireKeyPair(); err != nil {
		return err
	}
	if c.TLS.Mutual && blank(c.TLS.CAFile) {
		return ErrTLSCAFileRequired
	}
	return nil
}

func (c Config) validatePolicy() error {
	switch NormalizeSecurityMode(c.SecurityMode) {
	case SecurityModeDevelopment, SecurityModeProduction:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSecurityMode, c.SecurityMode)
	}
	if (c.production() || c.TLS.Mutual) && !c.TLS.Enabled {
		return ErrTLSRequired
	}
	if c.production() && !c.TLS.Mutual {
		return ErrMTLSRequired
	}
	return nil
}

func (c Config) requireKeyPair() error {
	if blank(c.TLS.CertFile) {
		return ErrTLSCertFileRequired
	}
	if blank(c.TLS.KeyFile) {
		return ErrTLSKeyFileRequired
	}
	return nil
}

func (c Config) production() bool {
	return NormalizeSecurityMode(c.SecurityMode) == SecurityModeProduction
}

// requirePeerCert reports whether servers must see a client certificate.
func (c Config) requirePeerCert() bool {
	return c.TLS.Mutual || c.production()
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
