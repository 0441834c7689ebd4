// Package chain houses EVM connectivity for the game client: network
// definitions loaded from YAML, the RPC client wrapper used for reads and
// signed writes, and the contract backend abstraction the game layer builds
// on. The default network is the Rootstock testnet the contract is deployed
// to, but any EVM chain can be described in the definitions file.
package chain
