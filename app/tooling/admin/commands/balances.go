// Package commands contains the functionality for the set of commands
// currently supported by the admin tool.
package commands

import (
	"fmt"
	"strconv"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/state"
	"github.com/ardanlabs/powledger/foundation/blockchain/storage"
)

// Nodes prints the ports that have a saved snapshot.
func Nodes(strg *storage.Storage) error {
	ports, err := strg.Ports()
	if err != nil {
		return err
	}

	for _, port := range ports {
		fmt.Println(port)
	}

	return nil
}

// Balances prints the balances computed from a node's saved chain.
func Balances(args conf.Args, strg *storage.Storage) error {
	snap, err := load(args, strg)
	if err != nil {
		return err
	}

	fmt.Printf("Node: %s  Blocks: %d  Pool: %d\n\n", snap.Self, len(snap.Chain), len(snap.Pool))

	bals := state.Replay(snap.Chain)

	accounts := make([]database.Account, 0, len(bals))
	for id, bal := range bals {
		accounts = append(accounts, database.Account{AccountID: id, Balance: bal})
	}
	database.SortAccounts(accounts)

	for _, act := range accounts {
		fmt.Printf("Account: %s  Balance: %s\n", act.AccountID, act.Balance)
	}

	return nil
}

// load reads the snapshot for the port named by the second argument.
func load(args conf.Args, strg *storage.Storage) (storage.Snapshot, error) {
	port, err := strconv.Atoi(args.Num(1))
	if err != nil {
		return storage.Snapshot{}, fmt.Errorf("invalid port %q", args.Num(1))
	}

	return strg.Load(port)
}
