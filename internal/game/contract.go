package game

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/souzavinny/rootagotchi/internal/chain"
)

// blockagotchiABI is the fragment of the game contract the client consumes:
// the active-creature index, the creature records, and the two writes.
const blockagotchiABI = `[
	{"type":"function","name":"activeBlockagotchi","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"blockagotchis","stateMutability":"view","inputs":[{"name":"","type":"uint256"}],"outputs":[{"name":"name","type":"bytes32"},{"name":"stage","type":"uint8"},{"name":"race","type":"uint8"},{"name":"experience","type":"uint256"},{"name":"happiness","type":"uint256"},{"name":"health","type":"uint256"},{"name":"isShiny","type":"bool"}]},
	{"type":"function","name":"createBlockagotchi","stateMutability":"nonpayable","inputs":[{"name":"name","type":"bytes32"}],"outputs":[]},
	{"type":"function","name":"performAction","stateMutability":"nonpayable","inputs":[{"name":"blockagotchiId","type":"uint256"},{"name":"action","type":"uint8"}],"outputs":[]}
]`

// Record is the raw creature record as returned by the contract getter.
type Record struct {
	Name       [NameLength]byte
	Stage      uint8
	Race       uint8
	Experience *big.Int
	Happiness  *big.Int
	Health     *big.Int
	Shiny      bool
}

// Contract is the typed binding over the deployed blockagotchi contract.
type Contract struct {
	address common.Address
	bound   *bind.BoundContract
}

// NewContract binds the contract at address to the given backend.
func NewContract(address common.Address, backend chain.Backend) (*Contract, error) {
	parsed, err := abi.JSON(strings.NewReader(blockagotchiABI))
	if err != nil {
		return nil, fmt.Errorf("parse contract ABI: %w", err)
	}
	return &Contract{
		address: address,
		bound:   bind.NewBoundContract(address, parsed, backend, backend, backend),
	}, nil
}

// Address returns the bound contract address.
func (c *Contract) Address() common.Address {
	return c.address
}

// ActiveCreature resolves the active creature id for an owner. Zero means
// the owner has no active creature.
func (c *Contract) ActiveCreature(ctx context.Context, owner common.Address) (*big.Int, error) {
	var out []interface{}
	if err := c.bound.Call(&bind.CallOpts{Context: ctx}, &out, "activeBlockagotchi", owner); err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// Creature fetches the raw record for a creature id.
func (c *Contract) Creature(ctx context.Context, id *big.Int) (Record, error) {
	var out []interface{}
	if err := c.bound.Call(&bind.CallOpts{Context: ctx}, &out, "blockagotchis", id); err != nil {
		return Record{}, err
	}
	return Record{
		Name:       *abi.ConvertType(out[0], new([NameLength]byte)).(*[NameLength]byte),
		Stage:      *abi.ConvertType(out[1], new(uint8)).(*uint8),
		Race:       *abi.ConvertType(out[2], new(uint8)).(*uint8),
		Experience: *abi.ConvertType(out[3], new(*big.Int)).(**big.Int),
		Happiness:  *abi.ConvertType(out[4], new(*big.Int)).(**big.Int),
		Health:     *abi.ConvertType(out[5], new(*big.Int)).(**big.Int),
		Shiny:      *abi.ConvertType(out[6], new(bool)).(*bool),
	}, nil
}

// CreateCreature submits the creation transaction.
func (c *Contract) CreateCreature(opts *bind.TransactOpts, name [NameLength]byte) (*types.Transaction, error) {
	return c.bound.Transact(opts, "createBlockagotchi", name)
}

// PerformAction submits an action transaction for a creature.
func (c *Contract) PerformAction(opts *bind.TransactOpts, id *big.Int, action uint8) (*types.Transaction, error) {
	return c.bound.Transact(opts, "performAction", id, action)
}
