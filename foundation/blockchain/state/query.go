package state

import (
	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/shopspring/decimal"
)

// Balance returns the balance of the account by replaying the chain. The
// chain is the only source of truth for balances.
func (s *State) Balance(account database.AccountID) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	balance := decimal.Zero
	for _, block := range s.chain.Blocks() {
		tx := block.Data

		if tx.From == account {
			balance = balance.Sub(tx.Amount)
		}

		if tx.To == account {
			balance = balance.Add(tx.Amount.Sub(tx.Fee))
		}

		if tx.Miner == account {
			balance = balance.Add(tx.Fee.Add(tx.Reward))
		}
	}

	return balance
}

// Balances returns the balance of every account on the chain sorted by
// account id.
func (s *State) Balances() []database.Account {
	s.mu.Lock()
	balances := Replay(s.chain.Blocks())
	s.mu.Unlock()

	accounts := make([]database.Account, 0, len(balances))
	for account, balance := range balances {
		accounts = append(accounts, database.Account{AccountID: account, Balance: balance})
	}
	database.SortAccounts(accounts)

	return accounts
}

// ChainLength returns the number of blocks in the chain.
func (s *State) ChainLength() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.chain.Length()
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}
