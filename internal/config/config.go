package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// Config is everything the daemon needs at startup.
type Config struct {
	Server   ServerConfig   `json:"server"`
	Wallet   WalletConfig   `json:"wallet"`
	Chain    ChainConfig    `json:"chain"`
	Poll     PollConfig     `json:"poll"`
	History  HistoryConfig  `json:"history"`
	Cache    CacheConfig    `json:"cache"`
	Alerting AlertingConfig `json:"alerting"`
	Logging  LoggingConfig  `json:"logging"`
}

// ServerConfig controls the REST listener.
type ServerConfig struct {
	Address string `json:"address"`
}

// WalletConfig locates the keystore that acts as the wallet capability.
type WalletConfig struct {
	KeystoreDir    string `json:"keystore_dir"`
	Account        string `json:"account,omitempty"`
	PassphraseFile string `json:"passphrase_file,omitempty"`
}

// ChainConfig points at the network definitions and the game contract.
type ChainConfig struct {
	Definitions     string `json:"definitions"`
	DefaultChain    string `json:"default_chain"`
	ContractAddress string `json:"contract_address"`
}

// PollConfig bounds the eventual-consistency loop that runs after a
// confirmed write. Worst case latency is Attempts * Interval, about 100s
// with the defaults; UI timeouts should be built on that bound.
type PollConfig struct {
	Attempts        int `json:"attempts"`
	IntervalSeconds int `json:"interval_seconds"`
}

// Interval returns the poll interval as a duration.
func (p PollConfig) Interval() time.Duration {
	return time.Duration(p.IntervalSeconds) * time.Second
}

// HistoryConfig selects the write-journal backend.
type HistoryConfig struct {
	Driver string `json:"driver"`
	DSN    string `json:"dsn,omitempty"`
}

// CacheConfig enables the Redis snapshot cache.
type CacheConfig struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address,omitempty"`
	Password   string `json:"password,omitempty"`
	DB         int    `json:"db,omitempty"`
	TTLSeconds int    `json:"ttl_seconds,omitempty"`
}

// AlertingConfig configures outcome alert fanout.
type AlertingConfig struct {
	AMQP AMQPConfig `json:"amqp"`
}

// AMQPConfig describes the optional AMQP alert channel.
type AMQPConfig struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url,omitempty"`
	Queue   string `json:"queue,omitempty"`
}

// LoggingConfig mirrors pkg/logger.Config.
type LoggingConfig struct {
	Level       string             `json:"level"`
	Format      string             `json:"format"`
	OutputPaths []string           `json:"output_paths,omitempty"`
	Audit       AuditLoggingConfig `json:"audit"`
}

// AuditLoggingConfig controls the audit trail file.
type AuditLoggingConfig struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
	MaxAgeDays int    `json:"max_age_days,omitempty"`
}

// Load parses the JSON config file at path and fills in defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8390"
	}
	if c.Chain.DefaultChain == "" {
		c.Chain.DefaultChain = "rsk-testnet"
	}
	if c.Poll.Attempts <= 0 {
		c.Poll.Attempts = 10
	}
	if c.Poll.IntervalSeconds <= 0 {
		c.Poll.IntervalSeconds = 10
	}
	if c.History.Driver == "" {
		c.History.Driver = "memory"
	}
	if c.Cache.Enabled && c.Cache.TTLSeconds <= 0 {
		c.Cache.TTLSeconds = 300
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

func (c *Config) validate() error {
	if c.Wallet.KeystoreDir == "" {
		return errors.New("wallet.keystore_dir is required")
	}
	if c.Chain.ContractAddress == "" {
		return errors.New("chain.contract_address is required")
	}
	if c.History.Driver == "mysql" && c.History.DSN == "" {
		return errors.New("history.dsn is required for the mysql driver")
	}
	if c.Cache.Enabled && c.Cache.Address == "" {
		return errors.New("cache.address is required when the cache is enabled")
	}
	if c.Alerting.AMQP.Enabled && c.Alerting.AMQP.URL == "" {
		return errors.New("alerting.amqp.url is required when AMQP alerting is enabled")
	}
	return nil
}

// Passphrase reads the keystore passphrase file, if configured.
func (c *Config) Passphrase() (string, error) {
	if c.Wallet.PassphraseFile == "" {
		return "", nil
	}
	content, err := os.ReadFile(c.Wallet.PassphraseFile)
	if err != nil {
		return "", fmt.Errorf("read passphrase file: %w", err)
	}
	return trimNewline(string(content)), nil
}

func trimNewline(s string) string {
	for len(s) > 0 {
		last := s[len(s)-1]
		if last != '\n' && last != '\r' {
			break
		}
		s = s[:len(s)-1]
	}
	return s
}
