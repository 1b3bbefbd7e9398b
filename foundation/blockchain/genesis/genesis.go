// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/shopspring/decimal"
)

// Genesis represents the genesis file. These values are the economic and
// mining rules every node in the network must agree on.
type Genesis struct {
	FirstDifficulty uint            `json:"first_difficulty"` // Leading zero bits required for the first block.
	Difficulty      uint            `json:"difficulty"`       // Leading zero bits required for every other block.
	CreatorBalance  decimal.Decimal `json:"creator_balance"`  // Reward paid to the creator of the chain in block 1.
	FeePercentage   decimal.Decimal `json:"fee_percentage"`   // Share of each amount paid to the miner.
	InitReward      decimal.Decimal `json:"init_reward"`      // Reward for mining a block before any halving.
	HalvingInterval uint64          `json:"halving_interval"` // Number of blocks between reward halvings.
}

// Default returns the genesis values the network runs with when no genesis
// file is provided.
func Default() Genesis {
	return Genesis{
		FirstDifficulty: 12,
		Difficulty:      6,
		CreatorBalance:  decimal.NewFromInt(500),
		FeePercentage:   decimal.RequireFromString("0.02"),
		InitReward:      decimal.NewFromInt(50),
		HalvingInterval: 5,
	}
}

// Validate checks the genesis values can be used to run a chain.
func (g Genesis) Validate() error {
	switch {
	case g.HalvingInterval == 0:
		return errors.New("halving interval must be greater than zero")
	case g.CreatorBalance.IsNegative():
		return errors.New("creator balance can't be negative")
	case g.InitReward.IsNegative():
		return errors.New("init reward can't be negative")
	case g.FeePercentage.IsNegative() || g.FeePercentage.GreaterThan(decimal.NewFromInt(1)):
		return errors.New("fee percentage must be between 0 and 1")
	}

	return nil
}

// =============================================================================

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	err = json.Unmarshal(content, &genesis)
	if err != nil {
		return Genesis{}, err
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}
