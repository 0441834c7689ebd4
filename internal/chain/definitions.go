package chain

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Currency describes the chain's native currency for display purposes.
type Currency struct {
	Name     string `yaml:"name"`
	Symbol   string `yaml:"symbol"`
	Decimals int    `yaml:"decimals"`
}

// Params is the full description of a network: what a wallet needs to add
// or activate the chain on behalf of the user.
type Params struct {
	Name         string   `yaml:"name"`
	ChainID      uint64   `yaml:"chain_id"`
	Currency     Currency `yaml:"native_currency"`
	RPCURLs      []string `yaml:"rpc_urls"`
	ExplorerURLs []string `yaml:"block_explorer_urls"`
}

// Definitions models the structure of chains.yaml.
type Definitions struct {
	Chains map[string]Params `yaml:"chains"`
}

// DefaultParams returns the built-in Rootstock testnet definition used when
// no definitions file is configured.
func DefaultParams() Params {
	return Params{
		Name:    "RSK Testnet",
		ChainID: 31,
		Currency: Currency{
			Name:     "Testnet R-BTC",
			Symbol:   "tRBTC",
			Decimals: 18,
		},
		RPCURLs:      []string{"https://public-node.testnet.rsk.co"},
		ExplorerURLs: []string{"https://explorer.testnet.rsk.co"},
	}
}

// LoadDefinitions parses the YAML file containing network metadata. An empty
// path yields just the built-in default network.
func LoadDefinitions(path string) (Definitions, error) {
	defs := Definitions{Chains: map[string]Params{"rsk-testnet": DefaultParams()}}
	if strings.TrimSpace(path) == "" {
		return defs, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return Definitions{}, fmt.Errorf("read chain definitions: %w", err)
	}
	var parsed Definitions
	if err := yaml.Unmarshal(content, &parsed); err != nil {
		return Definitions{}, fmt.Errorf("parse chain definitions: %w", err)
	}
	for name, params := range parsed.Chains {
		if params.ChainID == 0 {
			return Definitions{}, fmt.Errorf("chain %s is missing a chain_id", name)
		}
		if len(params.RPCURLs) == 0 {
			return Definitions{}, fmt.Errorf("chain %s has no rpc_urls", name)
		}
		defs.Chains[name] = params
	}
	return defs, nil
}

// Params returns the named network definition.
func (d Definitions) Params(name string) (Params, bool) {
	params, ok := d.Chains[name]
	return params, ok
}
