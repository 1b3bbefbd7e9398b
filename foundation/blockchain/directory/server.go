package directory

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/peer"
	"github.com/ardanlabs/powledger/foundation/blockchain/wire"
)

// DefaultWorkers represents the number of connections handled at once.
const DefaultWorkers = 15

// ErrServerClosed is returned by Serve once Shutdown has been called.
var ErrServerClosed = errors.New("directory: server closed")

// Config represents the configuration for the directory server.
type Config struct {
	Store     *Store
	Workers   int
	Timeout   time.Duration
	EvHandler func(v string, args ...any)
}

// Server answers register and list requests over the wire protocol.
type Server struct {
	store     *Store
	timeout   time.Duration
	evHandler func(v string, args ...any)

	sem  chan struct{}
	wg   sync.WaitGroup
	mu   sync.Mutex
	ln   net.Listener
	shut bool
}

// NewServer constructs a directory server over the store.
func NewServer(cfg Config) *Server {
	if cfg.EvHandler == nil {
		cfg.EvHandler = func(v string, args ...any) {}
	}

	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Server{
		store:     cfg.Store,
		timeout:   cfg.Timeout,
		evHandler: cfg.EvHandler,
		sem:       make(chan struct{}, cfg.Workers),
	}
}

// Serve accepts connections until Shutdown is called. No more than the
// configured number of connections are handled at once.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.shut {
		s.mu.Unlock()
		ln.Close()
		return ErrServerClosed
	}
	s.ln = ln
	s.mu.Unlock()

	s.evHandler("directory: listening: host[%s]", ln.Addr())

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			shut := s.shut
			s.mu.Unlock()

			if shut {
				return ErrServerClosed
			}
			return fmt.Errorf("accept: %w", err)
		}

		s.sem <- struct{}{}

		// Connections are only counted while the server is open so the
		// count never grows once Shutdown is waiting on it.
		s.mu.Lock()
		if s.shut {
			s.mu.Unlock()
			conn.Close()
			<-s.sem
			return ErrServerClosed
		}
		s.wg.Add(1)
		s.mu.Unlock()

		go func() {
			defer func() {
				conn.Close()
				<-s.sem
				s.wg.Done()
			}()

			s.handle(conn)
		}()
	}
}

// Shutdown closes the listener and waits for the connections in flight.
func (s *Server) Shutdown() {
	s.mu.Lock()
	s.shut = true
	if s.ln != nil {
		s.ln.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// handle answers a single request.
func (s *Server) handle(conn net.Conn) {
	conn.SetDeadline(time.Now().Add(s.timeout))
	remote := conn.RemoteAddr()

	msg, err := wire.Read(conn)
	if err != nil || msg.Kind != wire.KindIdentity {
		s.evHandler("directory: handle: remote[%s]: expected identity: %v", remote, err)
		return
	}

	msg, err = wire.Read(conn)
	if err != nil {
		s.evHandler("directory: handle: remote[%s]: read payload: %s", remote, err)
		return
	}

	switch msg.Kind {
	case wire.KindRegister:
		var p peer.Peer
		if err := msg.Decode(&p); err != nil {
			s.evHandler("directory: handle: remote[%s]: %s", remote, err)
			return
		}

		added, err := s.store.Register(p)
		switch {
		case err != nil:
			s.evHandler("directory: register: rejected: %s", err)
			return
		case added:
			s.evHandler("directory: register: added: peer[%s]", p)
		default:
			s.evHandler("directory: register: exists: peer[%s]", p)
		}

		s.reply(conn)

	case wire.KindList:
		s.reply(conn)

	default:
		if err := wire.Write(conn, wire.KindEmpty, nil); err != nil {
			s.evHandler("directory: handle: remote[%s]: %s", remote, err)
		}
	}
}

// reply writes the full peer list back to the caller.
func (s *Server) reply(conn net.Conn) {
	peers, err := s.store.List()
	if err != nil {
		s.evHandler("directory: list: ERROR: %s", err)
		return
	}

	if err := wire.Write(conn, wire.KindPeers, peers); err != nil {
		s.evHandler("directory: reply: remote[%s]: %s", conn.RemoteAddr(), err)
	}
}
