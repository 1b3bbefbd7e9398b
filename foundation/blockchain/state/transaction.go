package state

import (
	"context"
	"fmt"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/shopspring/decimal"
)

// SubmitTransaction signs a transfer of the amount from this node's account
// to the specified account, shares it with the network and adds it to the
// mempool. If mining is on, a mining operation is started.
func (s *State) SubmitTransaction(ctx context.Context, to database.AccountID, amount decimal.Decimal) (database.Tx, error) {
	if to == s.accountID {
		return database.Tx{}, ErrSelfTransfer
	}

	if !to.IsAccountID() {
		return database.Tx{}, fmt.Errorf("invalid to account %q", to.Short())
	}

	if s.Balance(s.accountID).LessThan(amount) {
		return database.Tx{}, ErrInsufficientFunds
	}

	tx, err := database.NewTx(s.privateKey, to, amount)
	if err != nil {
		return database.Tx{}, err
	}

	s.evHandler("state: SubmitTransaction: tx[%s]", tx)

	// Share the transaction with the network in the background when a
	// worker is running.
	if s.Worker != nil {
		s.Worker.SignalShareTx(tx)
	} else {
		s.NetSendTxToPeers(tx)
	}

	s.addTransaction(tx)
	s.TriggerMining(ctx)

	return tx, nil
}

// ReceiveTransaction adds a transaction received from another node to the
// mempool. False is returned if the transaction is invalid or already
// known to the chain or the mempool.
func (s *State) ReceiveTransaction(tx database.Tx) bool {
	if err := tx.Validate(); err != nil {
		s.evHandler("state: ReceiveTransaction: rejected: tx[%s]: %s", tx, err)
		return false
	}

	if !s.addTransaction(tx) {
		s.evHandler("state: ReceiveTransaction: duplicate: tx[%s]", tx)
		return false
	}

	s.evHandler("state: ReceiveTransaction: added: tx[%s]", tx)

	return true
}

// TriggerMining starts a mining operation if mining is on. When a worker is
// running the operation happens in the background, otherwise it happens
// on the calling goroutine.
func (s *State) TriggerMining(ctx context.Context) {
	if !s.IsMining() {
		return
	}

	if s.Worker != nil {
		s.Worker.SignalStartMining()
		return
	}

	if _, err := s.MinePending(ctx); err != nil {
		s.evHandler("state: TriggerMining: %s", err)
	}
}

// =============================================================================

// addTransaction adds the transaction to the mempool if it's not already
// recorded on the chain or waiting in the mempool.
func (s *State) addTransaction(tx database.Tx) bool {
	s.mu.Lock()
	exists := s.chain.ContainsID(tx.ID)
	s.mu.Unlock()

	if exists {
		return false
	}

	return s.mempool.Upsert(tx)
}
