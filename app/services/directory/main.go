package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/powledger/foundation/blockchain/directory"
	"github.com/ardanlabs/powledger/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {
	log, err := logger.New("DIRECTORY")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

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
		Host    string        `conf:"default:127.0.0.1:2000"`
		Workers int           `conf:"default:15"`
		Timeout time.Duration `conf:"default:30s"`
		DBPath  string        `conf:"default:zblock/directory.db"`
		Reset   bool          `conf:"default:false"`
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "proof of work ledger peer directory",
		},
	}

	const prefix = "DIRECTORY"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Directory Support

	store, err := directory.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.Reset {
		log.Infow("startup", "status", "resetting peer table")
		if err := store.Reset(); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	}

	peers, err := store.List()
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	log.Infow("startup", "status", "peer table loaded", "peers", len(peers))

	srv := directory.NewServer(directory.Config{
		Store:   store,
		Workers: cfg.Workers,
		Timeout: cfg.Timeout,
		EvHandler: func(v string, args ...any) {
			log.Infow(fmt.Sprintf(v, args...))
		},
	})

	ln, err := net.Listen("tcp", cfg.Host)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Serve(ln)
	}()

	// =========================================================================
	// Shutdown

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		srv.Shutdown()
	}

	return nil
}
