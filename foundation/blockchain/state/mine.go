package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/pow"
)

// SetMining turns mining on or off. Turning mining off stops any search
// in flight.
func (s *State) SetMining(on bool) {
	s.mining.Store(on)

	if on {
		s.engine.Resume()
		s.evHandler("state: SetMining: mining on")
		return
	}

	s.engine.Stop()
	if s.Worker != nil {
		s.Worker.SignalCancelMining()
	}
	s.evHandler("state: SetMining: mining off")
}

// IsMining reports if this node is mining.
func (s *State) IsMining() bool {
	return s.mining.Load()
}

// MiningState returns the state of the mining engine.
func (s *State) MiningState() pow.State {
	return s.engine.State()
}

// MineOnce is an explicit request to mine the next transaction in the
// mempool, even if mining is off. While mining is on, more transactions
// will be mined until the mempool has nothing left to mine.
func (s *State) MineOnce(ctx context.Context) (bool, error) {
	s.engine.Resume()
	return s.MinePending(ctx)
}

// MinePending mines the next candidate transaction and continues mining
// while mining is on. The result reflects the first block only. Unlike
// MineOnce, a stopped engine is not resumed.
func (s *State) MinePending(ctx context.Context) (bool, error) {
	if err := s.mineNext(ctx); err != nil {
		return false, err
	}

	for s.IsMining() {
		if err := s.mineNext(ctx); err != nil {
			if !errors.Is(err, ErrNoCandidate) && !errors.Is(err, pow.ErrCancelled) {
				s.evHandler("state: MinePending: WARNING: %s", err)
			}
			break
		}
	}

	return true, nil
}

// =============================================================================

// mineNext finds the next candidate transaction in the mempool, mines it
// into a new block and shares the new chain with the network.
func (s *State) mineNext(ctx context.Context) error {
	s.mineMu.Lock()
	defer s.mineMu.Unlock()

	// Without a genesis block there is nothing to mine on top of. Leave the
	// mempool alone so the transactions can be mined later.
	s.mu.Lock()
	last, err := s.chain.Last()
	n := s.chain.Length() + 1
	s.mu.Unlock()

	if err != nil {
		return err
	}

	tx, err := s.nextCandidate()
	if err != nil {
		return err
	}

	mtx := database.NewMinedTx(tx, s.accountID, s.genesis.FeePercentage, Reward(uint64(n), s.genesis))

	s.evHandler("state: mineNext: MINING: started: block[%d]: tx[%s]", n, tx)

	block, err := database.Mine(ctx, s.engine, &last, mtx, s.difficulty.Standard)
	if err != nil {
		if errors.Is(err, pow.ErrCancelled) {
			s.evHandler("state: mineNext: MINING: CANCELLED: tx[%s]", tx)
		}
		return err
	}

	clone, err := s.addBlock(block)
	if err != nil {
		return fmt.Errorf("add block: %w", err)
	}

	s.evHandler("state: mineNext: MINING: SOLVED: block[%d]: hash[%s]", n, block.Hash())
	s.NetSendChainToPeers(clone)

	return nil
}

// nextCandidate pops transactions from the mempool until it finds one that
// is not already on the chain and the sender can afford. Transactions that
// fail these checks are dropped.
func (s *State) nextCandidate() (database.Tx, error) {
	for {
		tx, ok := s.mempool.Pop()
		if !ok {
			return database.Tx{}, ErrNoCandidate
		}

		s.mu.Lock()
		exists := s.chain.ContainsID(tx.ID)
		s.mu.Unlock()

		switch {
		case exists:
			s.evHandler("state: nextCandidate: dropped: already mined: tx[%s]", tx)

		case tx.From == tx.To:
			s.evHandler("state: nextCandidate: dropped: self transfer: tx[%s]", tx)

		case !tx.VerifySignature():
			s.evHandler("state: nextCandidate: dropped: invalid signature: tx[%s]", tx)

		case s.Balance(tx.From).LessThan(tx.Amount):
			s.evHandler("state: nextCandidate: dropped: insufficient funds: tx[%s]", tx)

		default:
			return tx, nil
		}
	}
}
