package database

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ardanlabs/powledger/foundation/blockchain/pow"
	"github.com/ardanlabs/powledger/foundation/blockchain/signature"
)

// Payload represents the behavior required of the data stored in a block.
type Payload interface {
	Hash() string
	VerifySignature() bool
	UniqueID() string
}

// Difficulty represents the number of leading zero bits a block hash must
// have. The first block of a chain is mined at a harder difficulty.
type Difficulty struct {
	First    uint `json:"first"`
	Standard uint `json:"standard"`
}

// For returns the difficulty for a block based on its position.
func (d Difficulty) For(isFirst bool) uint {
	if isFirst {
		return d.First
	}

	return d.Standard
}

// =============================================================================

// Block represents a single piece of data linked to the block before it.
type Block[T Payload] struct {
	PrevHash string `json:"prev_hash"`
	Data     T      `json:"data"`
	Nonce    uint64 `json:"nonce"`
}

// NewBlock constructs an unmined block that links to the specified previous
// block. A nil previous block constructs the first block of a chain.
func NewBlock[T Payload](prev *Block[T], data T) Block[T] {
	var prevHash string
	if prev != nil {
		prevHash = prev.Hash()
	}

	return Block[T]{
		PrevHash: prevHash,
		Data:     data,
	}
}

// ComputeHash returns the hash of the block for the specified nonce.
func (b Block[T]) ComputeHash(nonce uint64) string {
	return signature.Hash(b.PrevHash, strconv.FormatUint(nonce, 10), b.Data.Hash())
}

// Hash returns the hash of the block using the block's nonce.
func (b Block[T]) Hash() string {
	return b.ComputeHash(b.Nonce)
}

// VerifyPOW checks the hash for the specified nonce solves the puzzle at
// the specified difficulty.
func (b Block[T]) VerifyPOW(nonce uint64, difficulty uint) bool {
	return pow.IsSolved(b.ComputeHash(nonce), difficulty)
}

// Verify checks the payload signature and the proof of work for the block
// based on its position in the chain.
func (b Block[T]) Verify(isFirst bool, d Difficulty) bool {
	return b.Data.VerifySignature() && b.VerifyPOW(b.Nonce, d.For(isFirst))
}

// =============================================================================

// Mine constructs a new block linked to the previous block and performs the
// work to find a nonce that solves the proof of work at the specified
// difficulty. Data that is not properly signed is refused before any work
// is performed.
func Mine[T Payload](ctx context.Context, eng *pow.Engine, prev *Block[T], data T, difficulty uint) (Block[T], error) {
	if !data.VerifySignature() {
		return Block[T]{}, ErrInvalidSignature
	}

	nb := NewBlock(prev, data)

	nonce, err := eng.Search(ctx, nb.ComputeHash, difficulty)
	if err != nil {
		return Block[T]{}, err
	}
	nb.Nonce = nonce

	if !nb.VerifyPOW(nb.Nonce, difficulty) {
		panic(fmt.Sprintf("mined block failed proof of work: nonce[%d] difficulty[%d]", nb.Nonce, difficulty))
	}

	return nb, nil
}
