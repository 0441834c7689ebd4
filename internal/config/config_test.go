package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rootagotchi.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `{
		"wallet": {"keystore_dir": "/tmp/keys"},
		"chain": {"contract_address": "0x8D69eB7fED28EaD25E4b2D6c3d0cdbeBBa50363b"}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Poll.Attempts != 10 {
		t.Fatalf("default attempts = %d, want 10", cfg.Poll.Attempts)
	}
	if cfg.Poll.Interval() != 10*time.Second {
		t.Fatalf("default interval = %s, want 10s", cfg.Poll.Interval())
	}
	if cfg.History.Driver != "memory" {
		t.Fatalf("default history driver = %q", cfg.History.Driver)
	}
	if cfg.Chain.DefaultChain != "rsk-testnet" {
		t.Fatalf("default chain = %q", cfg.Chain.DefaultChain)
	}
}

func TestLoadRejectsMissingKeystore(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `{"chain": {"contract_address": "0x1"}}`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing keystore dir")
	}
}

func TestLoadRejectsMySQLWithoutDSN(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `{
		"wallet": {"keystore_dir": "/tmp/keys"},
		"chain": {"contract_address": "0x1"},
		"history": {"driver": "mysql"}
	}`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for mysql driver without dsn")
	}
}

func TestPassphraseStripsTrailingNewline(t *testing.T) {
	t.Parallel()

	secret := filepath.Join(t.TempDir(), "passphrase")
	if err := os.WriteFile(secret, []byte("hunter2\n"), 0o600); err != nil {
		t.Fatalf("write passphrase: %v", err)
	}
	cfg := &Config{Wallet: WalletConfig{PassphraseFile: secret}}
	got, err := cfg.Passphrase()
	if err != nil {
		t.Fatalf("passphrase: %v", err)
	}
	if got != "hunter2" {
		t.Fatalf("passphrase = %q", got)
	}
}
