package shutdown

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	serrors "github.com/vinayprograms/shutdownkit/errors"
)

// Config configures the shutdown coordinator.
type Config struct {
	// Signals that start an episode.
	// Default: SIGINT, SIGTERM, SIGQUIT (os.Interrupt, SIGTERM on windows)
	Signals []os.Signal

	// Event is the subject shutdown notices are published on.
	// Default: "shutdown"
	Event string

	// Timeout is the hard deadline for all participants to acknowledge.
	// Default: 10 seconds
	Timeout time.Duration

	// FaultPolicy decides whether participant panics become failed acknowledgements.
	// Default: FaultAcknowledge
	FaultPolicy FaultPolicy

	// ForceOnRepeat terminates immediately with ExitFailure when a signal
	// arrives while an episode is already running.
	// Default: false
	ForceOnRepeat bool

	// OnProgress is called after each acknowledgement.
	// It may be called concurrently from participant goroutines.
	OnProgress func(result Result)
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Signals:     defaultSignals(),
		Event:       "shutdown",
		Timeout:     10 * time.Second,
		FaultPolicy: FaultAcknowledge,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if len(c.Signals) == 0 {
		c.Signals = def.Signals
	} else {
		c.Signals = append([]os.Signal(nil), c.Signals...)
	}
	if c.Event == "" {
		c.Event = def.Event
	}
	if c.Timeout == 0 {
		c.Timeout = def.Timeout
	}
	if c.FaultPolicy == "" {
		c.FaultPolicy = def.FaultPolicy
	}
	return c
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return invalidConfig("timeout must not be negative, got %s", c.Timeout)
	}
	if len(c.Signals) == 0 {
		return invalidConfig("at least one signal is required")
	}
	for _, sig := range c.Signals {
		if sig == nil {
			return invalidConfig("nil signal in signal list")
		}
	}
	if !c.FaultPolicy.Valid() {
		return invalidConfig("unknown fault policy %q", c.FaultPolicy)
	}
	return nil
}

func invalidConfig(format string, args ...interface{}) error {
	return serrors.WrapWithCode(ErrInvalidConfig, serrors.ErrCodeInvalidConfig, fmt.Sprintf(format, args...))
}

// fileConfig is the TOML form of Config.
type fileConfig struct {
	Shutdown struct {
		Signals       []string `toml:"signals"`
		Event         string   `toml:"event"`
		Timeout       string   `toml:"timeout"`
		FaultPolicy   string   `toml:"fault_policy"`
		ForceOnRepeat bool     `toml:"force_on_repeat"`
	} `toml:"shutdown"`
}

// LoadConfig reads a TOML config file.
func LoadConfig(path string) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read shutdown config: %w", err)
	}
	return ParseConfig(string(content))
}

// ParseConfig parses a [shutdown] table from TOML content.
// Keys that are absent keep their defaults.
//
//	[shutdown]
//	signals = ["SIGINT", "SIGTERM"]
//	event = "shutdown"
//	timeout = "15s"
//	fault_policy = "acknowledge"
//	force_on_repeat = true
func ParseConfig(content string) (Config, error) {
	var raw fileConfig
	if _, err := toml.Decode(content, &raw); err != nil {
		return Config{}, serrors.WrapWithCode(err, serrors.ErrCodeInvalidConfig, "failed to parse shutdown config")
	}

	cfg := DefaultConfig()
	sc := raw.Shutdown

	if len(sc.Signals) > 0 {
		cfg.Signals = make([]os.Signal, 0, len(sc.Signals))
		for _, name := range sc.Signals {
			sig, err := ParseSignal(name)
			if err != nil {
				return Config{}, err
			}
			cfg.Signals = append(cfg.Signals, sig)
		}
	}
	if sc.Event != "" {
		cfg.Event = sc.Event
	}
	if sc.Timeout != "" {
		d, err := time.ParseDuration(sc.Timeout)
		if err != nil {
			return Config{}, serrors.WrapWithCode(err, serrors.ErrCodeInvalidConfig,
				fmt.Sprintf("invalid timeout %q", sc.Timeout))
		}
		cfg.Timeout = d
	}
	if sc.FaultPolicy != "" {
		cfg.FaultPolicy = FaultPolicy(strings.ToLower(sc.FaultPolicy))
	}
	cfg.ForceOnRepeat = sc.ForceOnRepeat

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseSignal resolves a signal name such as "SIGTERM", "term" or "interrupt".
func ParseSignal(name string) (os.Signal, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	if n == "INTERRUPT" {
		return os.Interrupt, nil
	}
	n = strings.TrimPrefix(n, "SIG")
	if sig, ok := signalNames[n]; ok {
		return sig, nil
	}
	return nil, serrors.New(serrors.ErrCodeUnknownSignal, fmt.Sprintf("unknown signal %q", name))
}

// SignalName returns the conventional name of sig, e.g. "SIGTERM".
func SignalName(sig os.Signal) string {
	if sig == nil {
		return ""
	}
	for name, s := range signalNames {
		if s == sig {
			return "SIG" + name
		}
	}
	return sig.String()
}
