// This program performs administrative tasks against the snapshots nodes
// save when they shut down.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/powledger/app/tooling/admin/commands"
	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/powledger/foundation/blockchain/storage"
	"github.com/ardanlabs/powledger/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	cfg := struct {
		conf.Version
		Args    conf.Args
		DBPath  string `conf:"default:zblock/nodes.db"`
		Genesis string `conf:"default:zblock/genesis.json"`
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "proof of work ledger admin",
		},
	}

	const prefix = "ADMIN"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	gen, err := genesis.Load(cfg.Genesis)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("unable to load genesis: %w", err)
		}
		gen = genesis.Default()
	}

	strg, err := storage.New(cfg.DBPath, database.Difficulty{First: gen.FirstDifficulty, Standard: gen.Difficulty})
	if err != nil {
		return err
	}
	defer strg.Close()

	return processCommands(cfg.Args, log, strg)
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args conf.Args, log *zap.SugaredLogger, strg *storage.Storage) error {
	switch args.Num(0) {
	case "nodes":
		if err := commands.Nodes(strg); err != nil {
			return fmt.Errorf("listing nodes: %w", err)
		}

	case "bals":
		if err := commands.Balances(args, strg); err != nil {
			return fmt.Errorf("getting balances: %w", err)
		}

	case "trans":
		if err := commands.Transactions(args, strg); err != nil {
			return fmt.Errorf("getting transactions: %w", err)
		}

	case "delete":
		if err := commands.Delete(args, log, strg); err != nil {
			return fmt.Errorf("deleting snapshot: %w", err)
		}

	default:
		fmt.Println("nodes:          list the ports with a saved snapshot")
		fmt.Println("bals <port>:    print the balances of the node's chain")
		fmt.Println("trans <port>:   print the transactions of the node's chain")
		fmt.Println("delete <port>:  remove the node's snapshot")
		fmt.Println("provide a command to get more help.")
	}

	return nil
}
