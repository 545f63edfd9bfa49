// Package config loads the YAML configuration of the asic0x tool.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lourenssteyn/asic0x"
	"gopkg.in/yaml.v2"
)

// EnvConfig names a config file used when no path is given.
const EnvConfig = "ASIC0X_CONFIG"

type Config struct {
	Debug         bool      `yaml:"debug"`
	Iface         string    `yaml:"iface"`
	MTU           int       `yaml:"mtu"`
	PollTimeoutMs int       `yaml:"pollTimeoutMs"`
	Retries       uint      `yaml:"retries"`
	USB           USBConfig `yaml:"usb"`
	Log           LogConfig `yaml:"log"`
}

// USBConfig holds the bring-up parameters.
type USBConfig struct {
	SetupRequest     uint8   `yaml:"setupRequest"`
	ControlTimeoutMs int     `yaml:"controlTimeoutMs"`
	BulkTimeoutMs    int     `yaml:"bulkTimeoutMs"`
	ModemVariants    []uint8 `yaml:"modemVariants"`
	// ConfigPayload is hex, whitespace is ignored.
	ConfigPayload string `yaml:"configPayload"`
}

// LogConfig is handed to lumberjack when File is set.
type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	Compress   bool   `yaml:"compress"`
}

func Default() *Config {
	def := asic0x.DefaultAdapterConfig()
	variants := make([]uint8, len(def.ModemVariants))
	for i, v := range def.ModemVariants {
		variants[i] = uint8(v)
	}
	return &Config{
		Iface:         "ib%d",
		MTU:           def.MTU,
		PollTimeoutMs: 500,
		Retries:       3,
		USB: USBConfig{
			SetupRequest:     def.SetupRequest,
			ControlTimeoutMs: int(def.ControlTimeout / time.Millisecond),
			BulkTimeoutMs:    int(def.BulkTimeout / time.Millisecond),
			ModemVariants:    variants,
			ConfigPayload:    hex.EncodeToString(def.ConfigPayload),
		},
		Log: LogConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load returns the defaults overlaid with the file at path, or the file
// named by ASIC0X_CONFIG when path is empty, and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	return yaml.UnmarshalStrict(data, cfg)
}

func applyEnvOverrides(cfg *Config) {
	if iface := os.Getenv("ASIC0X_IFACE"); iface != "" {
		cfg.Iface = iface
	}
	if debug := os.Getenv("ASIC0X_DEBUG"); debug != "" {
		if b, err := strconv.ParseBool(debug); err == nil {
			cfg.Debug = b
		}
	}
}

func (cfg *Config) Validate() error {
	if cfg.MTU < 68 || cfg.MTU > 65535 {
		return fmt.Errorf("invalid mtu %d", cfg.MTU)
	}
	if len(cfg.Iface) == 0 || len(cfg.Iface) >= 16 {
		return fmt.Errorf("invalid interface name %q", cfg.Iface)
	}
	if cfg.PollTimeoutMs <= 0 {
		return fmt.Errorf("invalid poll timeout %dms", cfg.PollTimeoutMs)
	}
	if cfg.USB.ControlTimeoutMs <= 0 || cfg.USB.BulkTimeoutMs <= 0 {
		return fmt.Errorf("usb timeouts must be positive")
	}
	if len(cfg.USB.ModemVariants) == 0 {
		return fmt.Errorf("no modem variants accepted")
	}
	if _, err := cfg.Payload(); err != nil {
		return err
	}
	return nil
}

// Payload decodes the configuration payload.
func (cfg *Config) Payload() ([]byte, error) {
	s := strings.Join(strings.Fields(cfg.USB.ConfigPayload), "")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid config payload: %w", err)
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("empty config payload")
	}
	return b, nil
}

func (cfg *Config) PollTimeout() time.Duration {
	return time.Duration(cfg.PollTimeoutMs) * time.Millisecond
}

// AdapterConfig converts to the adapter configuration. cfg must be valid.
func (cfg *Config) AdapterConfig() *asic0x.AdapterConfig {
	ac := asic0x.DefaultAdapterConfig()
	ac.Debug = cfg.Debug
	ac.SetupRequest = cfg.USB.SetupRequest
	ac.ControlTimeout = time.Duration(cfg.USB.ControlTimeoutMs) * time.Millisecond
	ac.BulkTimeout = time.Duration(cfg.USB.BulkTimeoutMs) * time.Millisecond
	ac.ModemVariants = ac.ModemVariants[:0]
	for _, v := range cfg.USB.ModemVariants {
		ac.ModemVariants = append(ac.ModemVariants, asic0x.ModemVariant(v))
	}
	if payload, err := cfg.Payload(); err == nil {
		ac.ConfigPayload = payload
	}
	ac.MTU = cfg.MTU
	return ac
}
