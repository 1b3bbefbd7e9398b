package state

import (
	"context"
	"fmt"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/shopspring/decimal"
)

// CreateGenesis mines the first block of the chain. The block carries a
// zero amount transfer to ourselves that pays the creator balance as the
// mining reward.
func (s *State) CreateGenesis(ctx context.Context) error {
	s.evHandler("state: CreateGenesis: started")
	defer s.evHandler("state: CreateGenesis: completed")

	if s.ChainLength() > 0 {
		return ErrGenesisExists
	}

	tx, err := database.NewTx(s.privateKey, s.accountID, decimal.Zero)
	if err != nil {
		return fmt.Errorf("genesis tx: %w", err)
	}

	mtx := database.NewMinedTx(tx, s.accountID, s.genesis.FeePercentage, s.genesis.CreatorBalance)

	s.mineMu.Lock()
	defer s.mineMu.Unlock()

	s.engine.Resume()

	block, err := database.Mine(ctx, s.engine, nil, mtx, s.difficulty.First)
	if err != nil {
		return err
	}

	clone, err := s.addBlock(block)
	if err != nil {
		return err
	}

	s.evHandler("state: CreateGenesis: block[%s]", block.Hash())
	s.NetSendChainToPeers(clone)

	return nil
}

// ReceiveChain replaces our chain with the candidate chain when the candidate
// is longer and passes every structural and ledger rule.
func (s *State) ReceiveChain(blocks []database.Block[database.MinedTx]) bool {
	s.evHandler("state: ReceiveChain: started: blocks[%d]", len(blocks))

	candidate := database.FromBlocks(s.difficulty, blocks)

	s.mu.Lock()
	defer s.mu.Unlock()

	if candidate.Length() <= s.chain.Length() {
		s.evHandler("state: ReceiveChain: ignored: ours[%d] theirs[%d]", s.chain.Length(), candidate.Length())
		return false
	}

	if err := ValidateChain(candidate, s.genesis); err != nil {
		s.evHandler("state: ReceiveChain: rejected: %s", err)
		return false
	}

	if !s.chain.Replace(candidate) {
		s.evHandler("state: ReceiveChain: rejected: replace failed")
		return false
	}

	s.evHandler("state: ReceiveChain: replaced: length[%d]", s.chain.Length())

	return true
}

// =============================================================================

// addBlock appends the block to a copy of the chain and swaps the copy in
// only when the copy passes every ledger rule. A copy of the new chain is
// returned for broadcasting.
func (s *State) addBlock(block database.Block[database.MinedTx]) (*database.Chain[database.MinedTx], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.chain.Clone()
	if !next.Append(block) {
		return nil, fmt.Errorf("%w: block does not fit the chain", ErrChainRejected)
	}

	if err := ValidateChain(next, s.genesis); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrChainRejected, err)
	}

	s.chain = next

	return s.chain.Clone(), nil
}
