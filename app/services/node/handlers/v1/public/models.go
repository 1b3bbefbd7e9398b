package public

import (
	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/peer"
	"github.com/shopspring/decimal"
)

type tx struct {
	ID        string             `json:"id"`
	From      database.AccountID `json:"from"`
	FromName  string             `json:"from_name"`
	To        database.AccountID `json:"to"`
	ToName    string             `json:"to_name"`
	Amount    decimal.Decimal    `json:"amount"`
	Signature string             `json:"signature"`
}

type block struct {
	Number    int                `json:"number"`
	Hash      string             `json:"hash"`
	PrevHash  string             `json:"prev_hash"`
	Nonce     uint64             `json:"nonce"`
	Tx        tx                 `json:"tx"`
	Miner     database.AccountID `json:"miner"`
	MinerName string             `json:"miner_name"`
	Fee       decimal.Decimal    `json:"fee"`
	Reward    decimal.Decimal    `json:"reward"`
}

type balance struct {
	Account database.AccountID `json:"account"`
	Name    string             `json:"name"`
	Balance decimal.Decimal    `json:"balance"`
}

type balances struct {
	LatestBlock string    `json:"latest_block"`
	Uncommitted int       `json:"uncommitted"`
	Balances    []balance `json:"balances"`
}

type status struct {
	Self        peer.Peer          `json:"self"`
	Account     database.AccountID `json:"account"`
	Mining      bool               `json:"mining"`
	MiningState string             `json:"mining_state"`
	ChainLength int                `json:"chain_length"`
	Uncommitted int                `json:"uncommitted"`
	KnownPeers  int                `json:"known_peers"`
}

// SubmitTx is the request to send money from this node's account.
type SubmitTx struct {
	To     string `json:"to" validate:"required,hexadecimal"`
	Amount string `json:"amount" validate:"required,numeric"`
}
