package state_test

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"testing"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/powledger/foundation/blockchain/peer"
	"github.com/ardanlabs/powledger/foundation/blockchain/pow"
	"github.com/ardanlabs/powledger/foundation/blockchain/signature"
	"github.com/ardanlabs/powledger/foundation/blockchain/state"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	kennedyKey = "9f332e3700d8fc2446eaf6d15034cf96e0c2745e40353deef032a5dbf1dfed93"
	pavelKey   = "aed31b6b5a1d8b8a1b1d8b5f0bbfe6a7e2e3d2f1a4b6c8d0e2f4a6b8c0d2e4f6"
	minerKey   = "8dc79feefd3b86e2f9991def0e5ccd9a5128e104682407b308594bc1032ac7f0"
)

// network delivers messages directly to other in process nodes.
type network struct {
	peers []*state.State
}

func (n *network) SendTxToPeers(tx database.Tx) {
	for _, s := range n.peers {
		s.ReceiveTransaction(tx)
	}
}

func (n *network) SendChainToPeers(chain *database.Chain[database.MinedTx]) {
	for _, s := range n.peers {
		s.ReceiveChain(chain.Blocks())
	}
}

func (n *network) RequestPeers() ([]peer.Peer, error) {
	var peers []peer.Peer
	for _, s := range n.peers {
		peers = append(peers, s.RetrieveSelf())
	}
	return peers, nil
}

func privateKey(t *testing.T, hexKey string) *ecdsa.PrivateKey {
	pk, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		t.Fatalf("Should be able to load the private key: %s", err)
	}

	return pk
}

func newState(t *testing.T, hexKey string, port int, alias string) *state.State {
	s, err := state.New(state.Config{
		Self:       peer.New("127.0.0.1", port, alias, ""),
		PrivateKey: privateKey(t, hexKey),
		Genesis:    genesis.Default(),
	})
	if err != nil {
		t.Fatalf("Should be able to construct the state: %s", err)
	}

	return s
}

// =============================================================================

func Test_Genesis(t *testing.T) {
	ctx := context.Background()

	t.Log("Given the need to create the genesis block.")
	{
		s := newState(t, kennedyKey, 3000, "kennedy")

		if err := s.CreateGenesis(ctx); err != nil {
			t.Fatalf("\t%s\tShould be able to create the genesis block: %s", failed, err)
		}
		t.Logf("\t%s\tShould be able to create the genesis block.", success)

		if s.ChainLength() != 1 {
			t.Fatalf("\t%s\tShould have a chain of length 1, got %d.", failed, s.ChainLength())
		}
		t.Logf("\t%s\tShould have a chain of length 1.", success)

		if b := s.Balance(s.RetrieveAccountID()); !b.Equal(decimal.NewFromInt(500)) {
			t.Fatalf("\t%s\tShould have a balance of 500, got %s.", failed, b)
		}
		t.Logf("\t%s\tShould have a balance of 500.", success)

		if err := s.CreateGenesis(ctx); !errors.Is(err, state.ErrGenesisExists) {
			t.Fatalf("\t%s\tShould not be able to create a second genesis block: %v", failed, err)
		}
		t.Logf("\t%s\tShould not be able to create a second genesis block.", success)

		if err := state.ValidateChain(s.RetrieveChain(), s.RetrieveGenesis()); err != nil {
			t.Fatalf("\t%s\tShould produce a chain that passes the ledger rules: %s", failed, err)
		}
		t.Logf("\t%s\tShould produce a chain that passes the ledger rules.", success)
	}
}

func Test_Economics(t *testing.T) {
	const n = 5
	ctx := context.Background()

	sender := newState(t, kennedyKey, 3000, "kennedy")
	receiver := newState(t, pavelKey, 3001, "pavel")
	miner := newState(t, minerKey, 3002, "miner")

	sender.Network = &network{peers: []*state.State{miner, receiver}}
	miner.Network = &network{peers: []*state.State{sender, receiver}}

	t.Log("Given the need to move money between accounts.")
	{
		if err := sender.CreateGenesis(ctx); err != nil {
			t.Fatalf("\t%s\tShould be able to create the genesis block: %s", failed, err)
		}

		if miner.ChainLength() != 1 || receiver.ChainLength() != 1 {
			t.Fatalf("\t%s\tShould share the genesis chain with the peers.", failed)
		}
		t.Logf("\t%s\tShould share the genesis chain with the peers.", success)

		amount := decimal.RequireFromString("0.001")
		for i := 0; i < n; i++ {
			if _, err := sender.SubmitTransaction(ctx, receiver.RetrieveAccountID(), amount); err != nil {
				t.Fatalf("\t%s\tShould be able to submit transaction %d: %s", failed, i, err)
			}

			mined, err := miner.MineOnce(ctx)
			if err != nil || !mined {
				t.Fatalf("\t%s\tShould be able to mine transaction %d: %v", failed, i, err)
			}
		}
		t.Logf("\t%s\tShould be able to submit and mine %d transactions.", success, n)

		for _, s := range []*state.State{sender, receiver, miner} {
			if s.ChainLength() != n+1 {
				t.Fatalf("\t%s\tShould have a chain of length %d on %s, got %d.", failed, n+1, s.RetrieveSelf().Alias, s.ChainLength())
			}
		}
		t.Logf("\t%s\tShould have the same chain length on every node.", success)

		exp := amount.Mul(decimal.NewFromInt(n)).Mul(decimal.RequireFromString("0.98"))
		if b := miner.Balance(receiver.RetrieveAccountID()); !b.Equal(exp) {
			t.Fatalf("\t%s\tShould have a receiver balance of %s, got %s.", failed, exp, b)
		}
		t.Logf("\t%s\tShould have a receiver balance of %s.", success, exp)

		gen := miner.RetrieveGenesis()
		total := gen.CreatorBalance
		for i := 2; i <= n+1; i++ {
			total = total.Add(state.Reward(uint64(i), gen))
		}

		sum := decimal.Zero
		for _, s := range []*state.State{sender, receiver, miner} {
			sum = sum.Add(miner.Balance(s.RetrieveAccountID()))
		}

		if !sum.Equal(total) {
			t.Fatalf("\t%s\tShould have balances that sum to %s, got %s.", failed, total, sum)
		}
		t.Logf("\t%s\tShould have balances that sum to the rewards paid.", success)

		if b := miner.Balance(miner.RetrieveAccountID()); !b.Equal(decimal.RequireFromString("225.0001")) {
			t.Fatalf("\t%s\tShould pay the miner the fees and rewards, got %s.", failed, b)
		}
		t.Logf("\t%s\tShould pay the miner the fees and rewards.", success)
	}
}

func Test_SubmitRejected(t *testing.T) {
	ctx := context.Background()

	s := newState(t, kennedyKey, 3000, "kennedy")
	other := newState(t, pavelKey, 3001, "pavel")

	if err := s.CreateGenesis(ctx); err != nil {
		t.Fatalf("Should be able to create the genesis block: %s", err)
	}

	type table struct {
		name   string
		to     database.AccountID
		amount decimal.Decimal
		err    error
	}

	tt := []table{
		{name: "self", to: s.RetrieveAccountID(), amount: decimal.NewFromInt(1), err: state.ErrSelfTransfer},
		{name: "funds", to: other.RetrieveAccountID(), amount: decimal.NewFromInt(501), err: state.ErrInsufficientFunds},
		{name: "negative", to: other.RetrieveAccountID(), amount: decimal.NewFromInt(-1), err: database.ErrInvalidAmount},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			_, err := s.SubmitTransaction(ctx, tst.to, tst.amount)
			if !errors.Is(err, tst.err) {
				t.Fatalf("Test %s:\tShould get error %v, got %v.", tst.name, tst.err, err)
			}
		}

		t.Run(tst.name, f)
	}

	if _, err := s.SubmitTransaction(ctx, "abcd", decimal.NewFromInt(1)); err == nil {
		t.Fatalf("Should reject an invalid account.")
	}

	if s.QueryMempoolLength() != 0 {
		t.Fatalf("Should not add rejected transactions to the mempool.")
	}

	if _, err := other.SubmitTransaction(ctx, s.RetrieveAccountID(), decimal.NewFromInt(1)); !errors.Is(err, state.ErrInsufficientFunds) {
		t.Fatalf("Should reject a transaction from an empty account: %v", err)
	}
}

func Test_MineDropsNonCandidates(t *testing.T) {
	ctx := context.Background()

	miner := newState(t, kennedyKey, 3000, "kennedy")
	if err := miner.CreateGenesis(ctx); err != nil {
		t.Fatalf("Should be able to create the genesis block: %s", err)
	}

	pavel := privateKey(t, pavelKey)
	pavelID := database.PublicKeyToAccountID(pavel.PublicKey)

	broke, err := database.NewTx(pavel, miner.RetrieveAccountID(), decimal.NewFromInt(10))
	if err != nil {
		t.Fatalf("Should be able to construct a transaction: %s", err)
	}

	rich, err := database.NewTx(privateKey(t, kennedyKey), pavelID, decimal.NewFromInt(10))
	if err != nil {
		t.Fatalf("Should be able to construct a transaction: %s", err)
	}

	if !miner.ReceiveTransaction(broke) || !miner.ReceiveTransaction(rich) {
		t.Fatalf("Should be able to receive the transactions.")
	}

	if miner.ReceiveTransaction(rich) {
		t.Fatalf("Should not receive the same transaction twice.")
	}

	mined, err := miner.MineOnce(ctx)
	if err != nil || !mined {
		t.Fatalf("Should be able to mine: %v", err)
	}

	if miner.QueryMempoolLength() != 0 {
		t.Fatalf("Should drop the transaction the sender can't afford.")
	}

	chain := miner.RetrieveChain()
	if chain.Length() != 2 || !chain.ContainsID(rich.ID) || chain.ContainsID(broke.ID) {
		t.Fatalf("Should only mine the affordable transaction.")
	}

	if miner.ReceiveTransaction(rich) {
		t.Fatalf("Should not receive a transaction already on the chain.")
	}

	if _, err := miner.MineOnce(ctx); !errors.Is(err, state.ErrNoCandidate) {
		t.Fatalf("Should get no candidate from an empty mempool: %v", err)
	}
}

func Test_MineWithoutGenesis(t *testing.T) {
	ctx := context.Background()

	s := newState(t, kennedyKey, 3000, "kennedy")
	tx, err := database.NewTx(privateKey(t, pavelKey), s.RetrieveAccountID(), decimal.Zero)
	if err != nil {
		t.Fatalf("Should be able to construct a transaction: %s", err)
	}
	s.ReceiveTransaction(tx)

	if _, err := s.MineOnce(ctx); !errors.Is(err, database.ErrChainEmpty) {
		t.Fatalf("Should not be able to mine without a genesis block: %v", err)
	}

	if s.QueryMempoolLength() != 1 {
		t.Fatalf("Should keep the transaction for later.")
	}
}

func Test_MiningSwitch(t *testing.T) {
	ctx := context.Background()

	s := newState(t, kennedyKey, 3000, "kennedy")
	other := newState(t, pavelKey, 3001, "pavel")

	if err := s.CreateGenesis(ctx); err != nil {
		t.Fatalf("Should be able to create the genesis block with mining off: %s", err)
	}

	if s.IsMining() {
		t.Fatalf("Should not be mining.")
	}

	if _, err := s.SubmitTransaction(ctx, other.RetrieveAccountID(), decimal.NewFromInt(5)); err != nil {
		t.Fatalf("Should be able to submit a transaction: %s", err)
	}

	if s.ChainLength() != 1 || s.QueryMempoolLength() != 1 {
		t.Fatalf("Should leave the transaction in the mempool: length[%d] pool[%d]", s.ChainLength(), s.QueryMempoolLength())
	}

	// With mining on, a submitted transaction is mined right away and mining
	// continues until the mempool is drained.
	s.SetMining(true)
	if _, err := s.SubmitTransaction(ctx, other.RetrieveAccountID(), decimal.NewFromInt(5)); err != nil {
		t.Fatalf("Should be able to submit a transaction: %s", err)
	}

	if s.ChainLength() != 3 || s.QueryMempoolLength() != 0 {
		t.Fatalf("Should mine every transaction right away: length[%d] pool[%d]", s.ChainLength(), s.QueryMempoolLength())
	}

	if s.MiningState() != pow.StateFound {
		t.Fatalf("Should report the last search as found, got %s", s.MiningState())
	}
}

func Test_ReceiveChain(t *testing.T) {
	ctx := context.Background()

	long := newState(t, kennedyKey, 3000, "kennedy")
	if err := long.CreateGenesis(ctx); err != nil {
		t.Fatalf("Should be able to create the genesis block: %s", err)
	}

	other := newState(t, pavelKey, 3001, "pavel")
	if _, err := long.SubmitTransaction(ctx, other.RetrieveAccountID(), decimal.NewFromInt(5)); err != nil {
		t.Fatalf("Should be able to submit a transaction: %s", err)
	}
	if _, err := long.MineOnce(ctx); err != nil {
		t.Fatalf("Should be able to mine: %s", err)
	}

	short := newState(t, minerKey, 3002, "miner")
	if err := short.CreateGenesis(ctx); err != nil {
		t.Fatalf("Should be able to create the genesis block: %s", err)
	}

	t.Log("Given the need to accept chains from other nodes.")
	{
		if long.ReceiveChain(short.RetrieveChain().Blocks()) {
			t.Fatalf("\t%s\tShould not accept a shorter chain.", failed)
		}
		t.Logf("\t%s\tShould not accept a shorter chain.", success)

		if !short.ReceiveChain(long.RetrieveChain().Blocks()) {
			t.Fatalf("\t%s\tShould accept a longer valid chain.", failed)
		}
		t.Logf("\t%s\tShould accept a longer valid chain.", success)

		if short.ChainLength() != 2 {
			t.Fatalf("\t%s\tShould have replaced the chain.", failed)
		}
		t.Logf("\t%s\tShould have replaced the chain.", success)

		// Build a chain that pays itself too much and mine it properly.
		greedy := privateKey(t, minerKey)
		greedyID := database.PublicKeyToAccountID(greedy.PublicKey)
		gen := genesis.Default()

		tx, err := database.NewTx(greedy, greedyID, decimal.Zero)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct a transaction: %s", failed, err)
		}

		eng := pow.New(nil)
		chain := database.NewChain[database.MinedTx](short.Difficulty())
		mtx := database.NewMinedTx(tx, greedyID, gen.FeePercentage, decimal.NewFromInt(5000))
		if ok, err := chain.AppendData(ctx, eng, mtx); err != nil || !ok {
			t.Fatalf("\t%s\tShould be able to mine the greedy block: %v", failed, err)
		}

		for i := 0; i < 2; i++ {
			tx, err := database.NewTx(greedy, database.PublicKeyToAccountID(privateKey(t, pavelKey).PublicKey), decimal.NewFromInt(1))
			if err != nil {
				t.Fatalf("\t%s\tShould be able to construct a transaction: %s", failed, err)
			}

			mtx := database.NewMinedTx(tx, greedyID, gen.FeePercentage, state.Reward(uint64(i+2), gen))
			if ok, err := chain.AppendData(ctx, eng, mtx); err != nil || !ok {
				t.Fatalf("\t%s\tShould be able to mine block %d: %v", failed, i+2, err)
			}
		}

		if !chain.IsValid() {
			t.Fatalf("\t%s\tShould build a structurally valid chain.", failed)
		}

		if short.ReceiveChain(chain.Blocks()) {
			t.Fatalf("\t%s\tShould reject a chain with the wrong creator reward.", failed)
		}
		t.Logf("\t%s\tShould reject a chain with the wrong creator reward.", success)

		if short.ChainLength() != 2 {
			t.Fatalf("\t%s\tShould keep the current chain.", failed)
		}
		t.Logf("\t%s\tShould keep the current chain.", success)
	}
}

// signedTx constructs a transaction signed by the private key without the
// checks NewTx applies, the way a dishonest node could.
func signedTx(t *testing.T, pk *ecdsa.PrivateKey, id string, to database.AccountID, amount decimal.Decimal) database.Tx {
	tx := database.Tx{
		ID:     id,
		From:   database.PublicKeyToAccountID(pk.PublicKey),
		To:     to,
		Amount: amount,
	}

	sig, err := signature.Sign(tx.Hash(), pk)
	if err != nil {
		t.Fatalf("Should be able to sign the transaction: %s", err)
	}
	tx.Signature = sig

	return tx
}

func Test_ValidateChain(t *testing.T) {
	ctx := context.Background()

	victim := newState(t, kennedyKey, 3000, "kennedy")
	if err := victim.CreateGenesis(ctx); err != nil {
		t.Fatalf("Should be able to create the genesis block: %s", err)
	}

	first, err := victim.RetrieveChain().Last()
	if err != nil {
		t.Fatalf("Should be able to retrieve the genesis block: %s", err)
	}

	gen := victim.RetrieveGenesis()
	eng := pow.New(nil)

	kennedy := privateKey(t, kennedyKey)
	pavel := privateKey(t, pavelKey)
	thief := privateKey(t, minerKey)

	kennedyID := database.PublicKeyToAccountID(kennedy.PublicKey)
	pavelID := database.PublicKeyToAccountID(pavel.PublicKey)
	thiefID := database.PublicKeyToAccountID(thief.PublicKey)

	ten := decimal.NewFromInt(10)
	fee := ten.Mul(gen.FeePercentage)
	reward := state.Reward(2, gen)

	type table struct {
		name  string
		data  database.MinedTx
		valid bool
	}

	tt := []table{
		{
			name:  "valid",
			data:  database.NewMinedTx(signedTx(t, kennedy, "tx-valid", pavelID, ten), thiefID, gen.FeePercentage, reward),
			valid: true,
		},
		{
			name: "negative-amount",
			data: database.MinedTx{
				Tx:     signedTx(t, thief, "tx-negative", kennedyID, decimal.NewFromInt(-100)),
				Miner:  thiefID,
				Fee:    decimal.NewFromInt(-2),
				Reward: reward,
			},
		},
		{
			name: "negative-reward",
			data: database.NewMinedTx(signedTx(t, kennedy, "tx-reward", pavelID, ten), thiefID, gen.FeePercentage, reward.Neg()),
		},
		{
			name: "wrong-fee",
			data: database.MinedTx{
				Tx:     signedTx(t, kennedy, "tx-fee", pavelID, ten),
				Miner:  thiefID,
				Fee:    fee.Add(decimal.NewFromInt(1)),
				Reward: reward,
			},
		},
		{
			name: "wrong-reward",
			data: database.NewMinedTx(signedTx(t, kennedy, "tx-bonus", pavelID, ten), thiefID, gen.FeePercentage, reward.Add(decimal.NewFromInt(1))),
		},
		{
			name: "self-transfer",
			data: database.NewMinedTx(signedTx(t, kennedy, "tx-self", kennedyID, ten), thiefID, gen.FeePercentage, reward),
		},
		{
			name: "negative-balance",
			data: database.NewMinedTx(signedTx(t, pavel, "tx-broke", kennedyID, ten), thiefID, gen.FeePercentage, reward),
		},
	}

	t.Log("Given the need to apply the ledger rules to chains from other nodes.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				block, err := database.Mine(ctx, eng, &first, tst.data, gen.Difficulty)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to mine the block: %s", failed, testID, err)
				}

				chain := database.FromBlocks(victim.Difficulty(), []database.Block[database.MinedTx]{first, block})
				if !chain.IsValid() {
					t.Fatalf("\t%s\tTest %d:\tShould build a structurally valid chain.", failed, testID)
				}

				err = state.ValidateChain(chain, gen)
				if (err == nil) != tst.valid {
					t.Fatalf("\t%s\tTest %d:\tShould get valid=%v, got err=%v.", failed, testID, tst.valid, err)
				}
				t.Logf("\t%s\tTest %d:\tShould get valid=%v.", success, testID, tst.valid)

				receiver := newState(t, pavelKey, 3001, "pavel")
				if !receiver.ReceiveChain([]database.Block[database.MinedTx]{first}) {
					t.Fatalf("\t%s\tTest %d:\tShould accept the genesis chain.", failed, testID)
				}

				if got := receiver.ReceiveChain(chain.Blocks()); got != tst.valid {
					t.Fatalf("\t%s\tTest %d:\tShould get accepted=%v, got %v.", failed, testID, tst.valid, got)
				}

				exp := 1
				if tst.valid {
					exp = 2
				}
				if receiver.ChainLength() != exp {
					t.Fatalf("\t%s\tTest %d:\tShould have a chain of length %d, got %d.", failed, testID, exp, receiver.ChainLength())
				}
				t.Logf("\t%s\tTest %d:\tShould have a chain of length %d.", success, testID, exp)

				if b := receiver.Balance(kennedyID); b.LessThan(gen.CreatorBalance.Sub(ten)) {
					t.Fatalf("\t%s\tTest %d:\tShould not move money out of an account without its signature, got %s.", failed, testID, b)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_Reward(t *testing.T) {
	gen := genesis.Default()

	type table struct {
		n      uint64
		reward string
	}

	tt := []table{
		{n: 1, reward: "50"},
		{n: 5, reward: "50"},
		{n: 6, reward: "25"},
		{n: 10, reward: "25"},
		{n: 11, reward: "12.5"},
		{n: 16, reward: "6.25"},
	}

	for _, tst := range tt {
		if got := state.Reward(tst.n, gen); !got.Equal(decimal.RequireFromString(tst.reward)) {
			t.Fatalf("Should get a reward of %s for block %d, got %s.", tst.reward, tst.n, got)
		}
	}
}

func Test_Snapshot(t *testing.T) {
	ctx := context.Background()

	s := newState(t, kennedyKey, 3000, "kennedy")
	if err := s.CreateGenesis(ctx); err != nil {
		t.Fatalf("Should be able to create the genesis block: %s", err)
	}

	other := newState(t, pavelKey, 3001, "pavel")
	s.AddKnownPeer(other.RetrieveSelf())

	if _, err := s.SubmitTransaction(ctx, other.RetrieveAccountID(), decimal.NewFromInt(5)); err != nil {
		t.Fatalf("Should be able to submit a transaction: %s", err)
	}

	restored, err := state.FromSnapshot(s.Snapshot(), genesis.Default(), nil)
	if err != nil {
		t.Fatalf("Should be able to restore from a snapshot: %s", err)
	}

	if restored.ChainLength() != 1 || restored.QueryMempoolLength() != 1 {
		t.Fatalf("Should restore the chain and the mempool.")
	}

	if restored.RetrieveSelf() != s.RetrieveSelf() {
		t.Fatalf("Should restore the identity.")
	}

	if len(restored.RetrieveKnownPeers()) != 1 {
		t.Fatalf("Should restore the known peers.")
	}

	n := &network{peers: []*state.State{other}}
	restored.Network = n
	if added, err := restored.NetRequestPeers(); err != nil || added != 0 {
		t.Fatalf("Should not add a known peer twice: added[%d] err[%v]", added, err)
	}
}
