// Package wizard provides an interactive first-run setup flow for the
// session core: pick a datacenter, a transport carrier, TLS verification
// mode, and (optionally) a passphrase protecting the persisted session
// blob at rest. It writes the result out as an mtconfig.Config the host
// can hand straight to cmd/mtproto-session's run/handshake commands.
package wizard

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/postalsys/mtproto-session/internal/mtconfig"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Result is the wizard's output: the built config plus where it, and the
// optional passphrase verifier, were written.
type Result struct {
	Config         *mtconfig.Config
	ConfigPath     string
	PassphraseHash string // bcrypt hash written alongside the blob, empty if no passphrase
}

// Wizard drives the interactive prompts. Zero value is ready to use.
type Wizard struct {
	existing *mtconfig.Config
}

// New creates a setup wizard with no existing configuration loaded.
func New() *Wizard {
	return &Wizard{}
}

// LoadExisting loads path as the wizard's defaults, if present. A missing
// file is not an error: the wizard falls back to mtconfig.Default.
func (w *Wizard) LoadExisting(path string) error {
	cfg, err := mtconfig.Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	w.existing = cfg
	return nil
}

var bannerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("212")).
	Padding(0, 1)

// Run executes the interactive setup and returns the assembled config.
func (w *Wizard) Run() (*Result, error) {
	fmt.Println(bannerStyle.Render("mtproto-session setup"))
	fmt.Println()

	cfg := mtconfig.Default()
	if w.existing != nil {
		cfg = w.existing
	}
	configPath := "./mtproto-session.yaml"

	dcIDStr := strconv.Itoa(int(cfg.DC.ID))
	dcTest := cfg.DC.Test
	dcAddress := cfg.DC.Address
	transportKind := cfg.Transport.Kind
	wsPath := cfg.Transport.WSPath
	insecure := cfg.Transport.InsecureSkipVerify
	persistPath := cfg.Persistence.Path
	logLevel := cfg.Log.Level
	logFormat := cfg.Log.Format
	var usePassphrase bool
	var passphrase, passphraseConfirm string

	dcGroup := huh.NewGroup(
		huh.NewInput().
			Title("Config file path").
			Value(&configPath),
		huh.NewConfirm().
			Title("Dial the -1/test datacenters instead of production?").
			Value(&dcTest),
		huh.NewInput().
			Title("Datacenter ID").
			Description("1-5 for production, any positive ID for test DCs").
			Value(&dcIDStr).
			Validate(func(s string) error {
				n, err := strconv.Atoi(s)
				if err != nil {
					return fmt.Errorf("must be a number")
				}
				if !dcTest && (n < 1 || n > 5) {
					return fmt.Errorf("production DC id must be 1-5")
				}
				return nil
			}),
		huh.NewInput().
			Title("Datacenter address override").
			Description("leave empty to use the built-in address table").
			Value(&dcAddress),
	)

	transportGroup := huh.NewGroup(
		huh.NewSelect[string]().
			Title("Transport carrier").
			Options(
				huh.NewOption("tcp - length-prefixed TCP/TLS", "tcp"),
				huh.NewOption("ws - WebSocket binary frames", "ws"),
				huh.NewOption("quic - QUIC bidirectional stream", "quic"),
				huh.NewOption("h2 - streaming HTTP/2 POST", "h2"),
			).
			Value(&transportKind),
		huh.NewInput().
			Title("HTTP path").
			Description("used by the ws and h2 carriers").
			Value(&wsPath),
		huh.NewConfirm().
			Title("Skip TLS certificate verification?").
			Description("only for dialing local test fixtures, never production DCs").
			Value(&insecure),
	)

	persistGroup := huh.NewGroup(
		huh.NewInput().
			Title("Session blob path").
			Description("empty disables persistence: re-handshake on every run").
			Value(&persistPath),
		huh.NewConfirm().
			Title("Protect the session blob with a passphrase?").
			Value(&usePassphrase),
	)

	passphraseGroup := huh.NewGroup(
		huh.NewInput().
			Title("Passphrase").
			EchoMode(huh.EchoModePassword).
			Value(&passphrase).
			Validate(func(s string) error {
				if len(s) < 8 {
					return fmt.Errorf("passphrase must be at least 8 characters")
				}
				return nil
			}),
		huh.NewInput().
			Title("Confirm passphrase").
			EchoMode(huh.EchoModePassword).
			Value(&passphraseConfirm),
	).WithHideFunc(func() bool { return !usePassphrase })

	loggingGroup := huh.NewGroup(
		huh.NewSelect[string]().
			Title("Log level").
			Options(
				huh.NewOption("debug", "debug"),
				huh.NewOption("info", "info"),
				huh.NewOption("warn", "warn"),
				huh.NewOption("error", "error"),
			).
			Value(&logLevel),
		huh.NewSelect[string]().
			Title("Log format").
			Options(
				huh.NewOption("text", "text"),
				huh.NewOption("json", "json"),
			).
			Value(&logFormat),
	)

	form := huh.NewForm(dcGroup, transportGroup, persistGroup, passphraseGroup, loggingGroup)
	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("wizard: %w", err)
	}

	if usePassphrase && passphrase != passphraseConfirm {
		return nil, fmt.Errorf("wizard: passphrases do not match")
	}

	dcID, err := strconv.Atoi(dcIDStr)
	if err != nil {
		return nil, fmt.Errorf("wizard: parse dc id: %w", err)
	}

	cfg = &mtconfig.Config{
		Log: mtconfig.LogConfig{
			Level:  logLevel,
			Format: logFormat,
		},
		DC: mtconfig.DCConfig{
			ID:      int32(dcID),
			Address: dcAddress,
			Test:    dcTest,
		},
		Transport: mtconfig.TransportConfig{
			Kind:               transportKind,
			WSPath:             wsPath,
			InsecureSkipVerify: insecure,
		},
		Persistence: mtconfig.PersistenceConfig{
			Path: persistPath,
		},
	}

	var passphraseHash string
	if usePassphrase {
		cfg.Persistence.Passphrase = passphrase
		hash, err := bcrypt.GenerateFromPassword([]byte(passphrase), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("wizard: hash passphrase: %w", err)
		}
		passphraseHash = string(hash)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("wizard: %w", err)
	}

	if err := writeConfig(cfg, configPath); err != nil {
		return nil, err
	}

	if passphraseHash != "" {
		if err := writePassphraseVerifier(persistPath, passphraseHash); err != nil {
			return nil, err
		}
	}

	w.printSummary(configPath, cfg)

	return &Result{Config: cfg, ConfigPath: configPath, PassphraseHash: passphraseHash}, nil
}

func writeConfig(cfg *mtconfig.Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("wizard: marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("wizard: create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("wizard: write config: %w", err)
	}
	return nil
}

// passphraseVerifierName is the sidecar file storing the bcrypt hash of
// the blob passphrase, read back by VerifyPassphrase. blobstore.Load
// does not consult it.
const passphraseVerifierName = ".passphrase"

func writePassphraseVerifier(persistPath, hash string) error {
	if persistPath == "" {
		return fmt.Errorf("wizard: passphrase requires a persistence path")
	}
	verifierPath := filepath.Join(filepath.Dir(persistPath), passphraseVerifierName)
	if err := os.WriteFile(verifierPath, []byte(hash), 0o600); err != nil {
		return fmt.Errorf("wizard: write passphrase verifier: %w", err)
	}
	return nil
}

// VerifyPassphrase checks candidate against the bcrypt verifier stored
// alongside the session blob at persistPath, added when the blob was
// first protected with a passphrase.
func VerifyPassphrase(persistPath, candidate string) error {
	verifierPath := filepath.Join(filepath.Dir(persistPath), passphraseVerifierName)
	hash, err := os.ReadFile(verifierPath)
	if err != nil {
		return fmt.Errorf("wizard: read passphrase verifier: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(candidate)); err != nil {
		return fmt.Errorf("wizard: passphrase does not match")
	}
	return nil
}

func (w *Wizard) printSummary(configPath string, cfg *mtconfig.Config) {
	fmt.Println()
	fmt.Println(bannerStyle.Render("Setup complete"))
	fmt.Printf("Config written to: %s\n", configPath)
	fmt.Printf("Datacenter: %d (test=%v)\n", cfg.DC.ID, cfg.DC.Test)
	fmt.Printf("Transport: %s\n", cfg.Transport.Kind)
	if cfg.Persistence.Path != "" {
		fmt.Printf("Session blob: %s\n", cfg.Persistence.Path)
	} else {
		fmt.Println("Session blob: disabled, will re-handshake every run")
	}
	fmt.Println()
	fmt.Println("Run the handshake with:")
	fmt.Printf("  mtproto-session handshake -c %s\n", configPath)
}
