// Package mtconfig provides configuration parsing and validation for the
// session core's host-facing settings: which datacenter to dial, which
// transport to carry frames over, where the RSA key table and persisted
// session blob live.
package mtconfig

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the complete client configuration.
type Config struct {
	Log         LogConfig         `yaml:"log"`
	DC          DCConfig          `yaml:"dc"`
	Transport   TransportConfig   `yaml:"transport"`
	RSA         RSAConfig         `yaml:"rsa"`
	Persistence PersistenceConfig `yaml:"persistence"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// DCConfig selects the Telegram datacenter to dial and, for test or
// self-hosted deployments, its address.
type DCConfig struct {
	// ID is the datacenter number (1-5 for production Telegram DCs).
	ID int32 `yaml:"id"`

	// Address overrides the built-in address table; empty uses the
	// well-known production address for ID.
	Address string `yaml:"address"`

	// Test selects the -1/test DC address table instead of production.
	Test bool `yaml:"test"`
}

// TransportConfig selects which (send_bytes, recv_bytes) carrier to use
// and its connection-level knobs.
type TransportConfig struct {
	// Kind is one of "tcp", "ws", "quic", "h2".
	Kind string `yaml:"kind"`

	// ALPN is a TLS Application-Layer Protocol Negotiation identifier.
	// No carrier reads it: the quic and h2 carriers always offer their
	// built-in identifiers ("mtproto" and "h2").
	ALPN string `yaml:"alpn"`

	// WSPath is the HTTP path the ws/h2 carriers dial.
	WSPath string `yaml:"ws_path"`

	// InsecureSkipVerify disables TLS certificate verification. Dev only.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// RSAConfig points at an alternate RSA public key table.
type RSAConfig struct {
	// PEMPath names a PEM bundle of RSA public keys. The handshake and
	// run commands do not read it; they always use the embedded default
	// key table.
	PEMPath string `yaml:"pem_path"`
}

// PersistenceConfig controls where the session blob (§6.4) is stored.
type PersistenceConfig struct {
	// Path is the file the session blob is read from and written to.
	// Empty disables persistence; the host re-handshakes every run.
	Path string `yaml:"path"`

	// Passphrase, when set, encrypts the blob at rest (see internal/wizard).
	Passphrase string `yaml:"passphrase"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		DC: DCConfig{
			ID: 2,
		},
		Transport: TransportConfig{
			Kind: "tcp",
		},
	}
}

// Load reads and parses a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses configuration from YAML bytes, expanding ${VAR}/$VAR
// environment references before unmarshaling.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		var name string
		if strings.HasPrefix(match, "${") {
			name = match[2 : len(match)-1]
		} else {
			name = match[1:]
		}

		if idx := strings.Index(name, ":-"); idx != -1 {
			varName := name[:idx]
			defaultVal := name[idx+2:]
			if val, ok := os.LookupEnv(varName); ok {
				return val
			}
			return defaultVal
		}

		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if !isValidLogLevel(c.Log.Level) {
		errs = append(errs, fmt.Sprintf("invalid log.level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}
	if !isValidLogFormat(c.Log.Format) {
		errs = append(errs, fmt.Sprintf("invalid log.format: %s (must be text or json)", c.Log.Format))
	}
	if !c.DC.Test && (c.DC.ID < 1 || c.DC.ID > 5) {
		errs = append(errs, "dc.id must be between 1 and 5 for production (set dc.test for the -1 test DCs)")
	}
	if !isValidTransportKind(c.Transport.Kind) {
		errs = append(errs, fmt.Sprintf("invalid transport.kind: %s (must be tcp, ws, quic, or h2)", c.Transport.Kind))
	}
	if (c.Transport.Kind == "ws" || c.Transport.Kind == "h2") && c.Transport.WSPath == "" {
		errs = append(errs, "transport.ws_path is required for ws/h2 transport")
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func isValidLogFormat(format string) bool {
	switch format {
	case "text", "json":
		return true
	default:
		return false
	}
}

func isValidTransportKind(kind string) bool {
	switch kind {
	case "tcp", "ws", "quic", "h2":
		return true
	default:
		return false
	}
}

const redactedValue = "[REDACTED]"

// String returns a YAML representation of the config with the
// persistence passphrase redacted. Safe to log.
func (c *Config) String() string {
	redacted := c.Redacted()
	data, _ := yaml.Marshal(redacted)
	return string(data)
}

// Redacted returns a deep copy of the config with sensitive values
// redacted, safe to log or display to operators.
func (c *Config) Redacted() *Config {
	data, err := yaml.Marshal(c)
	if err != nil {
		return c
	}

	redacted := &Config{}
	if err := yaml.Unmarshal(data, redacted); err != nil {
		return c
	}

	if redacted.Persistence.Passphrase != "" {
		redacted.Persistence.Passphrase = redactedValue
	}

	return redacted
}
