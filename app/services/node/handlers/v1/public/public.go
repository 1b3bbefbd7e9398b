// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ardanlabs/powledger/business/web/errs"
	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/state"
	"github.com/ardanlabs/powledger/foundation/events"
	"github.com/ardanlabs/powledger/foundation/nameservice"
	"github.com/ardanlabs/powledger/foundation/web"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Handlers manages the set of node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	id, ch := h.Evts.Subscribe()
	defer h.Evts.Unsubscribe(id)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Status returns the state of this node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	st := status{
		Self:        h.State.RetrieveSelf(),
		Account:     h.State.RetrieveAccountID(),
		Mining:      h.State.IsMining(),
		MiningState: h.State.MiningState().String(),
		ChainLength: h.State.ChainLength(),
		Uncommitted: h.State.QueryMempoolLength(),
		KnownPeers:  len(h.State.RetrieveKnownPeers()),
	}

	return web.Respond(ctx, w, st, http.StatusOK)
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveGenesis(), http.StatusOK)
}

// CreateGenesis mines the first block of the chain on this node.
func (h Handlers) CreateGenesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := h.State.CreateGenesis(ctx); err != nil {
		return errs.Ledger(err)
	}

	return web.Respond(ctx, w, h.blocks(h.State.RetrieveChain()), http.StatusCreated)
}

// Balances returns the current balances for all accounts or the one
// specified account.
func (h Handlers) Balances(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var accounts []database.Account

	switch account := web.Param(r, "account"); account {
	case "":
		accounts = h.State.Balances()

	default:
		accountID, err := database.ToAccountID(account)
		if err != nil {
			return errs.NewTrusted(err, http.StatusBadRequest)
		}
		accounts = []database.Account{{AccountID: accountID, Balance: h.State.Balance(accountID)}}
	}

	bals := make([]balance, len(accounts))
	for i, acct := range accounts {
		bals[i] = balance{
			Account: acct.AccountID,
			Name:    h.NS.Lookup(acct.AccountID),
			Balance: acct.Balance,
		}
	}

	var latest string
	if last, err := h.State.RetrieveChain().Last(); err == nil {
		latest = last.Hash()
	}

	resp := balances{
		LatestBlock: latest,
		Uncommitted: h.State.QueryMempoolLength(),
		Balances:    bals,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Chain returns every block in the chain with account names resolved.
func (h Handlers) Chain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.blocks(h.State.RetrieveChain()), http.StatusOK)
}

// Mempool returns the set of uncommitted transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	pool := h.State.RetrieveMempool()

	txs := make([]tx, len(pool))
	for i, t := range pool {
		txs[i] = h.tx(t)
	}

	return web.Respond(ctx, w, txs, http.StatusOK)
}

// SubmitTransaction signs and submits a transfer from this node's account.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req SubmitTx
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	to, err := database.ToAccountID(req.To)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("invalid amount: %w", err), http.StatusBadRequest)
	}

	h.Log.Infow("submit tx", "traceid", web.GetTraceID(ctx), "to", to.Short(), "amount", amount)

	// Mining a new transaction may happen on this request when no worker is
	// running, so the request context must not cancel it.
	t, err := h.State.SubmitTransaction(context.Background(), to, amount)
	if err != nil {
		return errs.Ledger(err)
	}

	return web.Respond(ctx, w, h.tx(t), http.StatusOK)
}

// Mining turns mining on or off.
func (h Handlers) Mining(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	switch web.Param(r, "state") {
	case "on":
		h.State.SetMining(true)
		h.State.TriggerMining(context.Background())

	case "off":
		h.State.SetMining(false)

	default:
		return errs.NewTrusted(errors.New("mining state must be on or off"), http.StatusBadRequest)
	}

	resp := struct {
		Mining bool `json:"mining"`
	}{
		Mining: h.State.IsMining(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// MineOnce mines the next transaction in the mempool.
func (h Handlers) MineOnce(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	mined, err := h.State.MineOnce(ctx)
	if err != nil {
		return errs.Ledger(err)
	}

	resp := struct {
		Mined       bool `json:"mined"`
		ChainLength int  `json:"chain_length"`
	}{
		Mined:       mined,
		ChainLength: h.State.ChainLength(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Peers returns the known peers.
func (h Handlers) Peers(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveKnownPeers(), http.StatusOK)
}

// =============================================================================

func (h Handlers) tx(t database.Tx) tx {
	return tx{
		ID:        t.ID,
		From:      t.From,
		FromName:  h.NS.Lookup(t.From),
		To:        t.To,
		ToName:    h.NS.Lookup(t.To),
		Amount:    t.Amount,
		Signature: t.Signature,
	}
}

func (h Handlers) blocks(chain *database.Chain[database.MinedTx]) []block {
	dbBlocks := chain.Blocks()

	blocks := make([]block, len(dbBlocks))
	for i, b := range dbBlocks {
		blocks[i] = block{
			Number:    i + 1,
			Hash:      b.Hash(),
			PrevHash:  b.PrevHash,
			Nonce:     b.Nonce,
			Tx:        h.tx(b.Data.Tx),
			Miner:     b.Data.Miner,
			MinerName: h.NS.Lookup(b.Data.Miner),
			Fee:       b.Data.Fee,
			Reward:    b.Data.Reward,
		}
	}

	return blocks
}
