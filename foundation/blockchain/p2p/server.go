// Package p2p implements the TCP transport nodes use to share transactions
// and chains with each other. Every connection carries exactly one request:
// the sender's identity, one payload and an acknowledgment from the receiver.
package p2p

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/peer"
	"github.com/ardanlabs/powledger/foundation/blockchain/wire"
)

// Set of defaults for the server configuration.
const (
	DefaultWorkers       = 20
	DefaultShutdownGrace = 3 * time.Second
	DefaultTimeout       = 30 * time.Second
)

// ErrServerClosed is returned by Serve once Shutdown has been called.
var ErrServerClosed = errors.New("p2p: server closed")

// =============================================================================

// Handler represents the ledger operations a server routes requests to.
type Handler interface {
	AddKnownPeer(p peer.Peer) bool
	ReceiveChain(blocks []database.Block[database.MinedTx]) bool
	ReceiveTransaction(tx database.Tx) bool
	TriggerMining(ctx context.Context)
}

// ServerConfig represents the configuration for a server.
type ServerConfig struct {
	Handler       Handler
	Workers       int
	ShutdownGrace time.Duration
	Timeout       time.Duration
	EvHandler     func(v string, args ...any)
}

// Server accepts connections from other nodes and hands each one to a
// fixed pool of workers.
type Server struct {
	handler   Handler
	workers   int
	grace     time.Duration
	timeout   time.Duration
	evHandler func(v string, args ...any)

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	listener net.Listener
	active   map[net.Conn]struct{}

	conns    chan net.Conn
	shut     chan struct{}
	shutOnce sync.Once
	wg       sync.WaitGroup
}

// NewServer constructs a server ready to serve.
func NewServer(cfg ServerConfig) *Server {
	ev := cfg.EvHandler
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}

	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = DefaultShutdownGrace
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		handler:   cfg.Handler,
		workers:   cfg.Workers,
		grace:     cfg.ShutdownGrace,
		timeout:   cfg.Timeout,
		evHandler: ev,
		ctx:       ctx,
		cancel:    cancel,
		active:    make(map[net.Conn]struct{}),
		conns:     make(chan net.Conn),
		shut:      make(chan struct{}),
	}
}

// Start opens a listener on the host and serves connections in the
// background.
func (s *Server) Start(host string) error {
	ln, err := net.Listen("tcp", host)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	go func() {
		if err := s.Serve(ln); err != nil && !errors.Is(err, ErrServerClosed) {
			s.evHandler("p2p: server: ERROR: %s", err)
		}
	}()

	return nil
}

// Serve accepts connections on the listener until Shutdown is called. The
// worker pool is started before the first connection is accepted.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.isShutdown() {
		s.mu.Unlock()
		ln.Close()
		return ErrServerClosed
	}
	s.listener = ln
	s.wg.Add(s.workers)
	s.mu.Unlock()

	s.evHandler("p2p: server: listening: host[%s]: workers[%d]", ln.Addr(), s.workers)

	for i := 0; i < s.workers; i++ {
		go func() {
			defer s.wg.Done()
			s.work()
		}()
	}

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isShutdown() {
				return ErrServerClosed
			}

			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}

			return fmt.Errorf("accept: %w", err)
		}

		select {
		case s.conns <- conn:
		case <-s.shut:
			conn.Close()
			return ErrServerClosed
		}
	}
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}

	return s.listener.Addr()
}

// Shutdown closes the listener and gives the workers the grace period to
// finish the connections in flight. Connections still open after the grace
// period are closed.
func (s *Server) Shutdown() {
	s.evHandler("p2p: server: shutdown: started")
	defer s.evHandler("p2p: server: shutdown: completed")

	s.shutOnce.Do(func() {
		s.mu.Lock()
		close(s.shut)
		if s.listener != nil {
			s.listener.Close()
		}
		s.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return
	case <-time.After(s.grace):
		s.evHandler("p2p: server: shutdown: grace period expired: closing connections")
	}

	// Cancel any work started on behalf of a connection and force the
	// remaining connections closed.
	s.cancel()

	s.mu.Lock()
	for conn := range s.active {
		conn.Close()
	}
	s.mu.Unlock()

	<-done
}

// =============================================================================

// work pulls connections off the queue until the server is shut down.
func (s *Server) work() {
	for {
		select {
		case conn := <-s.conns:
			s.track(conn, true)
			mine := s.handle(conn)
			s.track(conn, false)
			conn.Close()

			// A new transaction may start mining on this worker once the
			// sender has its acknowledgment.
			if mine {
				s.handler.TriggerMining(s.ctx)
			}

		case <-s.shut:
			return
		}
	}
}

// track records which connections are being handled.
func (s *Server) track(conn net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if add {
		s.active[conn] = struct{}{}
		return
	}

	delete(s.active, conn)
}

// handle reads the identity and payload from the connection, routes the
// payload to the handler and writes back the acknowledgment. True is
// returned when a new transaction was accepted.
func (s *Server) handle(conn net.Conn) bool {
	remote := conn.RemoteAddr()

	conn.SetDeadline(time.Now().Add(s.timeout))

	msg, err := wire.Read(conn)
	if err != nil {
		s.evHandler("p2p: handle: remote[%s]: read identity: %s", remote, err)
		return false
	}

	if msg.Kind != wire.KindIdentity {
		s.evHandler("p2p: handle: remote[%s]: expected identity, got %s", remote, msg.Kind)
		return false
	}

	var from peer.Peer
	if err := msg.Decode(&from); err != nil {
		s.evHandler("p2p: handle: remote[%s]: %s", remote, err)
		return false
	}

	s.handler.AddKnownPeer(from)

	msg, err = wire.Read(conn)
	if err != nil {
		s.evHandler("p2p: handle: peer[%s]: read payload: %s", from, err)
		return false
	}

	s.evHandler("p2p: handle: peer[%s]: received %s", from, msg.Kind)

	var mine bool

	switch msg.Kind {
	case wire.KindChain:
		var blocks []database.Block[database.MinedTx]
		if err := msg.Decode(&blocks); err != nil {
			s.evHandler("p2p: handle: peer[%s]: %s", from, err)
			break
		}
		s.handler.ReceiveChain(blocks)

	case wire.KindTx:
		var tx database.Tx
		if err := msg.Decode(&tx); err != nil {
			s.evHandler("p2p: handle: peer[%s]: %s", from, err)
			break
		}
		mine = s.handler.ReceiveTransaction(tx)

	case wire.KindMinedTx:
		var mtx database.MinedTx
		if err := msg.Decode(&mtx); err != nil {
			s.evHandler("p2p: handle: peer[%s]: %s", from, err)
			break
		}
		mine = s.handler.ReceiveTransaction(mtx.Tx)

	case wire.KindEmpty:

	default:
		s.evHandler("p2p: handle: peer[%s]: unexpected kind %s", from, msg.Kind)
	}

	if err := wire.Write(conn, wire.KindEmpty, nil); err != nil {
		s.evHandler("p2p: handle: peer[%s]: write ack: %s", from, err)
		return false
	}

	return mine
}

// isShutdown reports if Shutdown has been called.
func (s *Server) isShutdown() bool {
	select {
	case <-s.shut:
		return true
	default:
		return false
	}
}
