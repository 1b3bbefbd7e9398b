package database

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ardanlabs/powledger/foundation/blockchain/signature"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Set of error variables for constructing transactions.
var (
	ErrInvalidAmount    = errors.New("amount can't be negative")
	ErrInvalidSignature = errors.New("invalid signature")
)

// =============================================================================

// Tx is the transactional information between two parties. The id is unique
// across the network and is used to detect replays of the same transaction.
type Tx struct {
	ID        string          `json:"id"`
	From      AccountID       `json:"from"`
	To        AccountID       `json:"to"`
	Amount    decimal.Decimal `json:"amount"`
	Signature string          `json:"signature"`
}

// NewTx constructs a new transaction with a fresh id and signs it with the
// sender's private key.
func NewTx(from *ecdsa.PrivateKey, to AccountID, amount decimal.Decimal) (Tx, error) {
	if amount.IsNegative() {
		return Tx{}, ErrInvalidAmount
	}

	tx := Tx{
		ID:     uuid.NewString(),
		From:   PublicKeyToAccountID(from.PublicKey),
		To:     to,
		Amount: amount,
	}

	sig, err := signature.Sign(tx.Hash(), from)
	if err != nil {
		return Tx{}, fmt.Errorf("sign: %w", err)
	}
	tx.Signature = sig

	if !tx.VerifySignature() {
		return Tx{}, ErrInvalidSignature
	}

	return tx, nil
}

// NewSignedTx constructs a transaction that was already signed, usually after
// receiving it over the network.
func NewSignedTx(id string, from AccountID, to AccountID, amount decimal.Decimal, sig string) (Tx, error) {
	if amount.IsNegative() {
		return Tx{}, ErrInvalidAmount
	}

	tx := Tx{
		ID:        id,
		From:      from,
		To:        to,
		Amount:    amount,
		Signature: sig,
	}

	return tx, nil
}

// Hash returns the hash of the signed fields of the transaction.
func (tx Tx) Hash() string {
	return signature.Hash(tx.ID, string(tx.From), string(tx.To), tx.Amount.String())
}

// UniqueID returns the id of the transaction.
func (tx Tx) UniqueID() string {
	return tx.ID
}

// VerifySignature checks the transaction was signed by the sender.
func (tx Tx) VerifySignature() bool {
	return signature.Verify(tx.Hash(), tx.Signature, string(tx.From))
}

// Validate checks the transaction is well formed and properly signed.
func (tx Tx) Validate() error {
	if tx.ID == "" {
		return errors.New("missing transaction id")
	}

	if tx.Amount.IsNegative() {
		return ErrInvalidAmount
	}

	if !tx.To.IsAccountID() {
		return errors.New("invalid account for to account")
	}

	if !tx.VerifySignature() {
		return ErrInvalidSignature
	}

	return nil
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	return fmt.Sprintf("%s:%s->%s:%s", tx.ID, tx.From.Short(), tx.To.Short(), tx.Amount)
}

// =============================================================================

// MinedTx represents the transaction as it's recorded inside a block. This
// includes the account of the miner and the fee and reward paid to it.
type MinedTx struct {
	Tx
	Miner  AccountID       `json:"miner"`
	Fee    decimal.Decimal `json:"fee"`
	Reward decimal.Decimal `json:"reward"`
}

// NewMinedTx constructs a mined transaction. The fee is taken from the
// amount using the fee percentage.
func NewMinedTx(tx Tx, miner AccountID, feePercentage decimal.Decimal, reward decimal.Decimal) MinedTx {
	return MinedTx{
		Tx:     tx,
		Miner:  miner,
		Fee:    tx.Amount.Mul(feePercentage),
		Reward: reward,
	}
}

// Hash folds the hash of the inner transaction with its signature and the
// mining economics. Changing the miner, fee or reward changes this hash
// even though the inner transaction hash stays the same.
func (tx MinedTx) Hash() string {
	return signature.Hash(tx.Tx.Hash(), tx.Signature, string(tx.Miner), tx.Fee.String(), tx.Reward.String())
}

// String implements the fmt.Stringer interface for logging.
func (tx MinedTx) String() string {
	return fmt.Sprintf("%s:miner[%s]:fee[%s]:reward[%s]", tx.Tx, tx.Miner.Short(), tx.Fee, tx.Reward)
}
