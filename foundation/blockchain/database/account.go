package database

import (
	"crypto/ecdsa"
	"errors"
	"sort"

	"github.com/ardanlabs/powledger/foundation/blockchain/signature"
	"github.com/shopspring/decimal"
)

// Account represents the balance of an individual account as computed by
// replaying the chain.
type Account struct {
	AccountID AccountID       `json:"account"`
	Balance   decimal.Decimal `json:"balance"`
}

// =============================================================================

// AccountID represents an account id that is used to sign transactions and is
// associated with transactions on the blockchain. It's the hex encoded
// uncompressed public key of the account owner.
type AccountID string

// ToAccountID converts a hex-encoded string to an account and validates the
// hex-encoded string is a public key.
func ToAccountID(hex string) (AccountID, error) {
	a := AccountID(hex)
	if !a.IsAccountID() {
		return "", errors.New("invalid account format")
	}

	return a, nil
}

// PublicKeyToAccountID converts the public key to an account value.
func PublicKeyToAccountID(pk ecdsa.PublicKey) AccountID {
	return AccountID(signature.EncodePublicKey(pk))
}

// IsAccountID verifies whether the underlying data represents a valid
// public key.
func (a AccountID) IsAccountID() bool {
	_, err := signature.DecodePublicKey(string(a))
	return err == nil
}

// Short returns an abbreviated form of the account for logging.
func (a AccountID) Short() string {
	if len(a) <= 16 {
		return string(a)
	}

	return string(a[len(a)-16:])
}

// =============================================================================

// byAccount provides sorting support by the account id value.
type byAccount []Account

// Len returns the number of accounts in the list.
func (ba byAccount) Len() int {
	return len(ba)
}

// Less helps to sort the list by account id in ascending order.
func (ba byAccount) Less(i, j int) bool {
	return ba[i].AccountID < ba[j].AccountID
}

// Swap moves accounts in the order of the account id value.
func (ba byAccount) Swap(i, j int) {
	ba[i], ba[j] = ba[j], ba[i]
}

// SortAccounts orders the accounts by account id.
func SortAccounts(accounts []Account) {
	sort.Sort(byAccount(accounts))
}
