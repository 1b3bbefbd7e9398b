package main

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/powledger/app/services/node/handlers"
	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/powledger/foundation/blockchain/p2p"
	"github.com/ardanlabs/powledger/foundation/blockchain/peer"
	"github.com/ardanlabs/powledger/foundation/blockchain/signature"
	"github.com/ardanlabs/powledger/foundation/blockchain/state"
	"github.com/ardanlabs/powledger/foundation/blockchain/storage"
	"github.com/ardanlabs/powledger/foundation/blockchain/worker"
	"github.com/ardanlabs/powledger/foundation/events"
	"github.com/ardanlabs/powledger/foundation/logger"
	"github.com/ardanlabs/powledger/foundation/nameservice"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("NODE")
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

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:60s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
		}
		Node struct {
			Address string `conf:"default:127.0.0.1"`
			Port    int    `conf:"default:3000"`
			Alias   string `conf:"default:miner1"`
			Mining  bool   `conf:"default:false"`
			DBPath  string `conf:"default:zblock/nodes.db"`
		}
		Genesis struct {
			Path string `conf:"default:zblock/genesis.json"`
		}
		P2P struct {
			Workers       int           `conf:"default:20"`
			ShutdownGrace time.Duration `conf:"default:3s"`
			Timeout       time.Duration `conf:"default:30s"`
		}
		Directory struct {
			Host string `conf:"default:127.0.0.1:2000"`
		}
		NameService struct {
			Folder string `conf:"default:zblock/accounts/"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "proof of work ledger node",
		},
	}

	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Name Service Support

	// The names come from the file names in the accounts folder and from the
	// aliases of the peers this node learns about.
	ns, err := nameservice.New(cfg.NameService.Folder)
	if err != nil {
		return fmt.Errorf("unable to load account name service: %w", err)
	}

	for account, name := range ns.Copy() {
		log.Infow("startup", "status", "nameservice", "name", name, "account", account.Short())
	}

	// =========================================================================
	// Blockchain Support

	gen, err := genesis.Load(cfg.Genesis.Path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("unable to load genesis: %w", err)
		}
		gen = genesis.Default()
	}

	// The ledger packages accept a function of this signature to allow the
	// application to log. These raw messages are also sent to any websocket
	// client that is connected into the system through the events package.
	evts := events.New()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		evts.Send(s)
	}

	difficulty := database.Difficulty{
		First:    gen.FirstDifficulty,
		Standard: gen.Difficulty,
	}

	strg, err := storage.New(cfg.Node.DBPath, difficulty)
	if err != nil {
		return fmt.Errorf("unable to open storage: %w", err)
	}
	defer strg.Close()

	// A node that has run before picks up where it left off. A snapshot that
	// fails validation stops the node from starting.
	var st *state.State
	switch snap, err := strg.Load(cfg.Node.Port); {
	case err == nil:
		log.Infow("startup", "status", "loading snapshot", "port", cfg.Node.Port, "blocks", len(snap.Chain))
		st, err = state.FromSnapshot(snap, gen, ev)
		if err != nil {
			return fmt.Errorf("unable to restore snapshot: %w", err)
		}

	case errors.Is(err, storage.ErrNotFound):
		privateKey, err := loadKey(cfg.NameService.Folder, cfg.Node.Alias)
		if err != nil {
			return err
		}

		st, err = state.New(state.Config{
			Self:       peer.New(cfg.Node.Address, cfg.Node.Port, cfg.Node.Alias, ""),
			PrivateKey: privateKey,
			Genesis:    gen,
			KnownPeers: peer.NewPeerSet(),
			Mining:     cfg.Node.Mining,
			EvHandler:  ev,
		})
		if err != nil {
			return err
		}

	default:
		return fmt.Errorf("unable to load snapshot: %w", err)
	}

	self := st.RetrieveSelf()
	ns.AddPeers(self)
	log.Infow("startup", "status", "node identity", "peer", self, "account", st.RetrieveAccountID().Short())

	// The network sends transactions and chains to the known peers and finds
	// new peers through the directory.
	client := p2p.NewClient(self, cfg.P2P.Timeout, ev)
	st.Network = p2p.NewNetwork(client, st, cfg.Directory.Host)

	srv := p2p.NewServer(p2p.ServerConfig{
		Handler:       st,
		Workers:       cfg.P2P.Workers,
		ShutdownGrace: cfg.P2P.ShutdownGrace,
		Timeout:       cfg.P2P.Timeout,
		EvHandler:     ev,
	})
	if err := srv.Start(self.Host()); err != nil {
		return fmt.Errorf("unable to start p2p server: %w", err)
	}

	// The worker package implements the different workflows such as mining,
	// transaction peer sharing, and peer updates. The worker will register
	// itself with the state.
	worker.Run(st, ev)
	ns.AddPeers(st.RetrieveKnownPeers()...)

	// Shutting down the node saves a snapshot so the node can restart with
	// the same identity, chain and pool.
	defer func() {
		log.Infow("shutdown", "status", "stopping p2p server")
		srv.Shutdown()
		st.Shutdown()

		if err := strg.Save(st.Snapshot()); err != nil {
			log.Errorw("shutdown", "status", "saving snapshot", "ERROR", err)
			return
		}
		log.Infow("shutdown", "status", "snapshot saved", "port", self.Port)
	}()

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	debugMux := handlers.DebugMux(build, log, st)

	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		State:    st,
		NS:       ns,
		Evts:     evts,
	})

	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}

// loadKey reads the node's private key from the accounts folder. A node
// without a key file gets a new key which is saved for the next start.
func loadKey(folder string, alias string) (*ecdsa.PrivateKey, error) {
	path := filepath.Join(folder, alias+".ecdsa")

	privateKey, err := crypto.LoadECDSA(path)
	switch {
	case err == nil:
		return privateKey, nil

	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("unable to load private key for node: %w", err)
	}

	privateKey, err = signature.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("unable to generate private key: %w", err)
	}

	if err := os.MkdirAll(folder, 0755); err != nil {
		return nil, fmt.Errorf("unable to create accounts folder: %w", err)
	}

	if err := crypto.SaveECDSA(path, privateKey); err != nil {
		return nil, fmt.Errorf("unable to save private key: %w", err)
	}

	return privateKey, nil
}
