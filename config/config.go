package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the daemon's node-level configuration. Platform economics
// (rates, admin, allocations) live in the genesis file instead, so a config
// file can be shared between networks.
type Config struct {
	RPCAddress  string `toml:"RPCAddress"`
	DataDir     string `toml:"DataDir"`
	GenesisFile string `toml:"GenesisFile"`
	NetworkName string `toml:"NetworkName"`

	LogLevel      string `toml:"LogLevel"`
	LogFile       string `toml:"LogFile"`
	LogMaxSizeMB  int    `toml:"LogMaxSizeMB"`
	LogMaxBackups int    `toml:"LogMaxBackups"`

	// RPCAuthToken guards mutating RPC methods. The INVOCHAIN_RPC_TOKEN
	// environment variable overrides whatever the file holds so tokens stay
	// out of checked-in configs.
	RPCAuthToken string `toml:"RPCAuthToken"`

	RateLimitPerSecond float64 `toml:"RateLimitPerSecond"`
	RateLimitBurst     int     `toml:"RateLimitBurst"`
}

// Load reads the configuration from the given path, creating a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if token := strings.TrimSpace(os.Getenv("INVOCHAIN_RPC_TOKEN")); token != "" {
		cfg.RPCAuthToken = token
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.RPCAddress) == "" {
		c.RPCAddress = ":8080"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./invochain-data"
	}
	if strings.TrimSpace(c.NetworkName) == "" {
		c.NetworkName = "invochain-local"
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = "info"
	}
	if c.RateLimitPerSecond <= 0 {
		c.RateLimitPerSecond = 25
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = 50
	}
}

// Validate performs shallow sanity checks on the loaded values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.RPCAddress) == "" {
		return fmt.Errorf("config: RPCAddress required")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: DataDir required")
	}
	if c.RateLimitPerSecond <= 0 {
		return fmt.Errorf("config: RateLimitPerSecond must be positive")
	}
	if c.RateLimitBurst <= 0 {
		return fmt.Errorf("config: RateLimitBurst must be positive")
	}
	return nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		RPCAddress:         ":8080",
		DataDir:            "./invochain-data",
		GenesisFile:        "",
		NetworkName:        "invochain-local",
		LogLevel:           "info",
		RateLimitPerSecond: 25,
		RateLimitBurst:     50,
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	if token := strings.TrimSpace(os.Getenv("INVOCHAIN_RPC_TOKEN")); token != "" {
		cfg.RPCAuthToken = token
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}
