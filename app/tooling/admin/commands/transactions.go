package commands

import (
	"fmt"
	"strconv"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/powledger/foundation/blockchain/storage"
	"go.uber.org/zap"
)

// Transactions prints the transactions of a node's saved chain followed by
// the transactions still waiting in its pool.
func Transactions(args conf.Args, strg *storage.Storage) error {
	snap, err := load(args, strg)
	if err != nil {
		return err
	}

	for i, block := range snap.Chain {
		tx := block.Data
		fmt.Printf("Block %d: %s\n", i, block.Hash())
		fmt.Printf("\tID: %s  From: %s  To: %s  Amount: %s\n", tx.ID, tx.From.Short(), tx.To.Short(), tx.Amount)
		fmt.Printf("\tMiner: %s  Fee: %s  Reward: %s  Nonce: %d\n", tx.Miner.Short(), tx.Fee, tx.Reward, block.Nonce)
	}

	if len(snap.Pool) > 0 {
		fmt.Println("\nPending:")
		for _, tx := range snap.Pool {
			fmt.Printf("\t%s\n", tx)
		}
	}

	return nil
}

// Delete removes the snapshot for the port named by the second argument.
func Delete(args conf.Args, log *zap.SugaredLogger, strg *storage.Storage) error {
	port, err := strconv.Atoi(args.Num(1))
	if err != nil {
		return fmt.Errorf("invalid port %q", args.Num(1))
	}

	if err := strg.Delete(port); err != nil {
		return err
	}

	log.Infow("admin", "status", "snapshot deleted", "port", port)
	return nil
}
