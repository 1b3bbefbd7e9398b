// Package database handles the chain of blocks maintained by each node and
// the data types recorded inside those blocks.
package database

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/ardanlabs/powledger/foundation/blockchain/pow"
)

// ErrChainEmpty is returned when a block is requested from an empty chain.
var ErrChainEmpty = errors.New("chain is empty")

// =============================================================================

// Chain maintains an ordered sequence of validated blocks. A Chain is not
// safe for concurrent use, the owner is responsible for locking.
type Chain[T Payload] struct {
	difficulty Difficulty
	blocks     []Block[T]
}

// NewChain constructs an empty chain that validates blocks at the
// specified difficulty.
func NewChain[T Payload](d Difficulty) *Chain[T] {
	return &Chain[T]{
		difficulty: d,
	}
}

// FromBlocks constructs a chain from the specified blocks without validating
// them. This is used for chains received over the network or loaded from
// disk, callers are expected to call Validate.
func FromBlocks[T Payload](d Difficulty, blocks []Block[T]) *Chain[T] {
	return &Chain[T]{
		difficulty: d,
		blocks:     slices.Clone(blocks),
	}
}

// Difficulty returns the difficulty settings for the chain.
func (c *Chain[T]) Difficulty() Difficulty {
	return c.difficulty
}

// Length returns the number of blocks in the chain.
func (c *Chain[T]) Length() int {
	return len(c.blocks)
}

// First returns the first block of the chain.
func (c *Chain[T]) First() (Block[T], error) {
	if len(c.blocks) == 0 {
		return Block[T]{}, ErrChainEmpty
	}

	return c.blocks[0], nil
}

// Last returns the last block of the chain.
func (c *Chain[T]) Last() (Block[T], error) {
	if len(c.blocks) == 0 {
		return Block[T]{}, ErrChainEmpty
	}

	return c.blocks[len(c.blocks)-1], nil
}

// Blocks returns a copy of the blocks in the chain.
func (c *Chain[T]) Blocks() []Block[T] {
	return slices.Clone(c.blocks)
}

// ContainsID reports if a block in the chain carries a payload with the
// specified id.
func (c *Chain[T]) ContainsID(id string) bool {
	for _, block := range c.blocks {
		if block.Data.UniqueID() == id {
			return true
		}
	}

	return false
}

// Clone returns a copy of the chain that can be handed to other goroutines
// without sharing the block sequence.
func (c *Chain[T]) Clone() *Chain[T] {
	return FromBlocks(c.difficulty, c.blocks)
}

// =============================================================================

// Validate checks every block in the chain. Payload ids must be unique,
// each block must be valid for its position and link to the previous block.
func (c *Chain[T]) Validate() error {
	ids := make(map[string]struct{}, len(c.blocks))

	for i, block := range c.blocks {
		id := block.Data.UniqueID()
		if _, exists := ids[id]; exists {
			return fmt.Errorf("block %d: duplicate id %q", i+1, id)
		}
		ids[id] = struct{}{}

		if !block.Verify(i == 0, c.difficulty) {
			return fmt.Errorf("block %d: invalid signature or proof of work", i+1)
		}

		if i > 0 && block.PrevHash != c.blocks[i-1].Hash() {
			return fmt.Errorf("block %d: previous hash does not match", i+1)
		}
	}

	return nil
}

// IsValid reports if the chain passes validation.
func (c *Chain[T]) IsValid() bool {
	return c.Validate() == nil
}

// Append adds the mined block to the end of the chain. The chain is
// validated again after the block is added and the block is removed if
// the chain is no longer valid.
func (c *Chain[T]) Append(block Block[T]) bool {
	switch len(c.blocks) {
	case 0:
		if !block.Verify(true, c.difficulty) {
			return false
		}

	default:
		if !block.Verify(false, c.difficulty) {
			return false
		}

		if block.PrevHash != c.blocks[len(c.blocks)-1].Hash() {
			return false
		}
	}

	c.blocks = append(c.blocks, block)

	if !c.IsValid() {
		c.blocks = c.blocks[:len(c.blocks)-1]
		return false
	}

	return true
}

// AppendData mines a new block for the data against the last block of the
// chain and appends it. A cancelled search returns pow.ErrCancelled.
func (c *Chain[T]) AppendData(ctx context.Context, eng *pow.Engine, data T) (bool, error) {
	var prev *Block[T]
	if len(c.blocks) > 0 {
		prev = &c.blocks[len(c.blocks)-1]
	}

	block, err := Mine(ctx, eng, prev, data, c.difficulty.For(prev == nil))
	if err != nil {
		return false, err
	}

	return c.Append(block), nil
}

// Replace swaps the blocks of this chain for a copy of the candidate's blocks
// when the candidate is strictly longer and valid. Replacing a chain with
// itself succeeds without change.
func (c *Chain[T]) Replace(candidate *Chain[T]) bool {
	if candidate == c {
		return true
	}

	if candidate.Length() <= c.Length() {
		return false
	}

	if !candidate.IsValid() {
		return false
	}

	c.blocks = slices.Clone(candidate.blocks)

	return true
}
