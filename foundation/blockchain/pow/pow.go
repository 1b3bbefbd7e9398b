// Package pow implements the proof of work nonce search used to mine blocks.
// Each node owns its own Engine so stopping one node's mining never affects
// another node running in the same process.
package pow

import (
	"context"
	"crypto/rand"
	"errors"
	"math"
	"math/big"
	"sync/atomic"
)

// ErrCancelled is returned when a search is stopped before a solution
// is found. This is a normal outcome and not a failure.
var ErrCancelled = errors.New("mining cancelled")

// reportEvery represents how many attempts happen between progress events.
const reportEvery = 1_000_000

// =============================================================================

// State represents where the engine is in its search life cycle.
type State int32

// Set of states an engine can be in.
const (
	StateIdle State = iota
	StateSearching
	StateFound
	StateCancelled
)

// String implements the fmt.Stringer interface.
func (s State) String() string {
	switch s {
	case StateSearching:
		return "searching"
	case StateFound:
		return "found"
	case StateCancelled:
		return "cancelled"
	default:
		return "idle"
	}
}

// HashFunc computes the hash of a block for the specified nonce.
type HashFunc func(nonce uint64) string

// =============================================================================

// Engine performs nonce searches. The stop flag is advisory and is checked
// once per iteration of the search loop.
type Engine struct {
	stop      atomic.Bool
	state     atomic.Int32
	evHandler func(v string, args ...any)
}

// New constructs an engine ready to search.
func New(evHandler func(v string, args ...any)) *Engine {
	if evHandler == nil {
		evHandler = func(v string, args ...any) {}
	}

	return &Engine{
		evHandler: evHandler,
	}
}

// Stop signals any search in flight to return. Calling Stop more than once
// has no additional effect.
func (e *Engine) Stop() {
	e.stop.Store(true)
}

// Resume clears the stop flag so new searches can take place.
func (e *Engine) Resume() {
	e.stop.Store(false)
}

// Stopped reports if the stop flag is set.
func (e *Engine) Stopped() bool {
	return e.stop.Load()
}

// State returns the state of the last or current search.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Search looks for a nonce where the hash produced by hashFn has the
// specified number of leading zero bits. The search starts from a random
// nonce to reduce the chance of nodes mining the same nonce range.
func (e *Engine) Search(ctx context.Context, hashFn HashFunc, difficulty uint) (uint64, error) {
	e.evHandler("pow: Search: MINING: started: difficulty[%d]", difficulty)
	defer e.evHandler("pow: Search: MINING: completed")

	e.state.Store(int32(StateSearching))

	// Choose a random starting point for the nonce. After this, the nonce
	// will be incremented by 1 until a solution is found or we are stopped.
	nBig, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		e.state.Store(int32(StateIdle))
		return 0, err
	}
	nonce := nBig.Uint64()

	var attempts uint64
	for {
		attempts++
		if attempts%reportEvery == 0 {
			e.evHandler("pow: Search: MINING: attempts[%d]", attempts)
		}

		if e.stop.Load() || ctx.Err() != nil {
			e.state.Store(int32(StateCancelled))
			e.evHandler("pow: Search: MINING: CANCELLED: attempts[%d]", attempts)
			return 0, ErrCancelled
		}

		hash := hashFn(nonce)
		if !IsSolved(hash, difficulty) {
			nonce++
			continue
		}

		e.state.Store(int32(StateFound))
		e.evHandler("pow: Search: MINING: SOLVED: hash[%s]: attempts[%d]", hash, attempts)

		return nonce, nil
	}
}

// =============================================================================

// IsSolved checks the leading difficulty bits of the hex encoded hash are
// all zero. Bits are taken from each hex character, most significant first.
func IsSolved(hash string, difficulty uint) bool {
	if difficulty > uint(len(hash))*4 {
		return false
	}

	for i := uint(0); i < difficulty; i++ {
		nibble, ok := hexValue(hash[i/4])
		if !ok {
			return false
		}

		if nibble&(0x8>>(i%4)) != 0 {
			return false
		}
	}

	return true
}

// hexValue returns the numeric value of the hex character.
func hexValue(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}

	return 0, false
}
