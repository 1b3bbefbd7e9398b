package mempool_test

import (
	"context"
	"testing"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/mempool"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func sign(t *testing.T, amount int64) database.Tx {
	pk, err := crypto.HexToECDSA("fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959")
	if err != nil {
		t.Fatalf("Should be able to load the private key: %s", err)
	}

	tx, err := database.NewTx(pk, database.PublicKeyToAccountID(pk.PublicKey), decimal.NewFromInt(amount))
	if err != nil {
		t.Fatalf("Should be able to construct a transaction: %s", err)
	}

	return tx
}

func TestCRUD(t *testing.T) {
	type table struct {
		name    string
		amounts []int64
	}

	tt := []table{
		{name: "single", amounts: []int64{10}},
		{name: "basic", amounts: []int64{10, 50, 100, 10}},
	}

	t.Log("Given the need to validate mempool api.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a set of transaction.", testID)
			{
				f := func(t *testing.T) {
					mp := mempool.New()

					var txs []database.Tx
					for _, amount := range tst.amounts {
						tx := sign(t, amount)
						txs = append(txs, tx)

						if !mp.Upsert(tx) {
							t.Fatalf("\t%s\tTest %d:\tShould be able to add transaction: %s", failed, testID, tx)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould be able to add transactions.", success, testID)

					if mp.Upsert(txs[0]) {
						t.Fatalf("\t%s\tTest %d:\tShould not add the same transaction twice.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould not add the same transaction twice.", success, testID)

					if mp.Count() != len(txs) {
						t.Fatalf("\t%s\tTest %d:\tShould have %d transactions, got %d.", failed, testID, len(txs), mp.Count())
					}
					t.Logf("\t%s\tTest %d:\tShould have the right number of transactions.", success, testID)

					copied := mp.Copy()
					for i := range txs {
						if copied[i].ID != txs[i].ID {
							t.Fatalf("\t%s\tTest %d:\tShould copy in queue order at index %d.", failed, testID, i)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould copy in queue order.", success, testID)

					for i := range txs {
						tx, ok := mp.Pop()
						if !ok || tx.ID != txs[i].ID {
							t.Fatalf("\t%s\tTest %d:\tShould pop in queue order at index %d.", failed, testID, i)
						}

						if mp.Contains(tx.ID) {
							t.Fatalf("\t%s\tTest %d:\tShould not contain a popped transaction.", failed, testID)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould pop in queue order.", success, testID)

					if _, ok := mp.Pop(); ok {
						t.Fatalf("\t%s\tTest %d:\tShould not pop from an empty pool.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould not pop from an empty pool.", success, testID)

					if !mp.Upsert(txs[0]) {
						t.Fatalf("\t%s\tTest %d:\tShould be able to add a popped transaction again.", failed, testID)
					}

					mp.Truncate()
					if mp.Count() != 0 || mp.Contains(txs[0].ID) {
						t.Fatalf("\t%s\tTest %d:\tShould be able to truncate the pool.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to truncate the pool.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func TestTake(t *testing.T) {
	mp := mempool.New()
	tx := sign(t, 5)

	result := make(chan database.Tx, 1)
	go func() {
		tx, err := mp.Take(context.Background())
		if err == nil {
			result <- tx
		}
	}()

	time.Sleep(10 * time.Millisecond)
	mp.Upsert(tx)

	select {
	case got := <-result:
		if got.ID != tx.ID {
			t.Fatalf("Should take the added transaction.")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Should wake up when a transaction is added.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := mp.Take(ctx); err == nil {
		t.Fatalf("Should get an error when the context expires.")
	}
}
