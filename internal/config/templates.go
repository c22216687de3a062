package config

import (
	"fmt"
	"os"
)

// Template returns a commented starter config in the given format. Every
// value shown is the default.
func Template(f Format) (string, error) {
	switch f {
	case FormatTOML:
		return tomlTemplate, nil
	case FormatYAML:
		return yamlTemplate, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

// WriteTemplate writes the starter config for path's extension.
func WriteTemplate(path string, overwrite bool) error {
	f, err := formatOf(path)
	if err != nil {
		return err
	}
	template, err := Template(f)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const tomlTemplate = `# framewire transport config
connect_timeout = "5s"
handshake_timeout = "5s"
poll_interval = "1ms"
send_queue_depth = 64

# development | production (production requires mutual TLS)
security_mode = "development"

tls_enabled = false
tls_mutual = false
tls_insecure_skip_verify = false
tls_cert_file = ""
tls_key_file = ""
tls_ca_file = ""
tls_server_name = ""
`

const yamlTemplate = `# framewire transport config
connect_timeout: 5s
handshake_timeout: 5s
poll_interval: 1ms
send_queue_depth: 64

# development | production (production requires mutual TLS)
security_mode: development

tls_enabled: false
tls_mutual: false
tls_insecure_skip_verify: false
tls_cert_file: ""
tls_key_file: ""
tls_ca_file: ""
tls_server_name: ""
`
