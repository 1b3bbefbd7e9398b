package state

import (
	"fmt"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/genesis"
	"github.com/shopspring/decimal"
)

// half is used to halve the mining reward.
var half = decimal.New(5, -1)

// Reward returns the mining reward for the block at the specified 1-based
// position in the chain. The reward halves every halving interval blocks.
func Reward(n uint64, gen genesis.Genesis) decimal.Decimal {
	reward := gen.InitReward
	for n > gen.HalvingInterval {
		n -= gen.HalvingInterval
		reward = reward.Mul(half)
	}

	return reward
}

// Replay computes the balance of every account touched by the blocks. The
// sender pays the amount, the receiver gets the amount minus the fee and
// the miner gets the fee plus the reward.
func Replay(blocks []database.Block[database.MinedTx]) map[database.AccountID]decimal.Decimal {
	balances := make(map[database.AccountID]decimal.Decimal)

	for _, block := range blocks {
		tx := block.Data

		balances[tx.From] = balances[tx.From].Sub(tx.Amount)
		balances[tx.To] = balances[tx.To].Add(tx.Amount.Sub(tx.Fee))
		balances[tx.Miner] = balances[tx.Miner].Add(tx.Fee.Add(tx.Reward))
	}

	return balances
}

// ValidateChain applies the ledger rules on top of the structural rules of
// the chain. Amounts, fees and rewards can't be negative and no account can
// end with a negative balance. Every fee must match the fee percentage, the
// first block must pay the creator balance and every other block must pay
// the scheduled reward and can't be a transfer to the sender.
func ValidateChain(chain *database.Chain[database.MinedTx], gen genesis.Genesis) error {
	blocks := chain.Blocks()

	for i, block := range blocks {
		tx := block.Data

		switch {
		case tx.Amount.IsNegative():
			return fmt.Errorf("block %d: %w", i+1, database.ErrInvalidAmount)
		case tx.Fee.IsNegative():
			return fmt.Errorf("block %d: negative fee %s", i+1, tx.Fee)
		case tx.Reward.IsNegative():
			return fmt.Errorf("block %d: negative reward %s", i+1, tx.Reward)
		}
	}

	for account, balance := range Replay(blocks) {
		if balance.IsNegative() {
			return fmt.Errorf("account %s: negative balance %s", account.Short(), balance)
		}
	}

	for i, block := range blocks {
		n := uint64(i + 1)
		tx := block.Data

		if fee := tx.Amount.Mul(gen.FeePercentage); !tx.Fee.Equal(fee) {
			return fmt.Errorf("block %d: fee %s, expected %s", n, tx.Fee, fee)
		}

		if n == 1 {
			if !tx.Reward.Equal(gen.CreatorBalance) {
				return fmt.Errorf("block %d: reward %s, expected creator balance %s", n, tx.Reward, gen.CreatorBalance)
			}
			continue
		}

		if reward := Reward(n, gen); !tx.Reward.Equal(reward) {
			return fmt.Errorf("block %d: reward %s, expected %s", n, tx.Reward, reward)
		}

		if tx.From == tx.To {
			return fmt.Errorf("block %d: %w", n, ErrSelfTransfer)
		}
	}

	return chain.Validate()
}
