package p2p

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/peer"
	"github.com/ardanlabs/powledger/foundation/blockchain/wire"
)

// Client sends requests to other nodes on behalf of this node.
type Client struct {
	self      peer.Peer
	timeout   time.Duration
	evHandler func(v string, args ...any)
}

// NewClient constructs a client that identifies itself as self.
func NewClient(self peer.Peer, timeout time.Duration, evHandler func(v string, args ...any)) *Client {
	if evHandler == nil {
		evHandler = func(v string, args ...any) {}
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		self:      self,
		timeout:   timeout,
		evHandler: evHandler,
	}
}

// Self returns the identity the client sends with every request.
func (c *Client) Self() peer.Peer {
	return c.self
}

// Send delivers the value to the peer and waits for the reply. Sending to
// this node never opens a connection and returns an empty reply.
func (c *Client) Send(ctx context.Context, to peer.Peer, kind wire.Kind, v any) (wire.Message, error) {
	if to.Match(c.self.Host()) {
		return wire.Message{Kind: wire.KindEmpty, Body: json.RawMessage("[]")}, nil
	}

	return c.exchange(ctx, to.Host(), kind, v)
}

// Broadcast delivers the value to each peer, each connection bounded by the
// client timeout. A failure to reach a peer is logged and the broadcast
// continues with the remaining peers. The number of peers that acknowledged
// the value is returned.
func (c *Client) Broadcast(ctx context.Context, peers []peer.Peer, kind wire.Kind, v any) int {
	var sent int

	for _, p := range peers {
		if p.Match(c.self.Host()) {
			continue
		}

		if _, err := c.Send(ctx, p, kind, v); err != nil {
			c.evHandler("p2p: Broadcast: peer[%s]: %s: ERROR: %s", p, kind, err)
			continue
		}

		sent++
	}

	c.evHandler("p2p: Broadcast: %s: sent[%d] of peers[%d]", kind, sent, len(peers))

	return sent
}

// =============================================================================

// Register adds this node to the directory at the host and returns the
// peers the directory knows about.
func (c *Client) Register(ctx context.Context, directory string) ([]peer.Peer, error) {
	return c.peers(ctx, directory, wire.KindRegister, c.self)
}

// ListPeers returns the peers the directory at the host knows about.
func (c *Client) ListPeers(ctx context.Context, directory string) ([]peer.Peer, error) {
	return c.peers(ctx, directory, wire.KindList, nil)
}

// peers performs a directory request that replies with a list of peers.
func (c *Client) peers(ctx context.Context, directory string, kind wire.Kind, v any) ([]peer.Peer, error) {
	msg, err := c.exchange(ctx, directory, kind, v)
	if err != nil {
		return nil, err
	}

	if msg.Kind != wire.KindPeers {
		return nil, fmt.Errorf("directory: unexpected reply %s", msg.Kind)
	}

	var peers []peer.Peer
	if err := msg.Decode(&peers); err != nil {
		return nil, fmt.Errorf("directory: %w", err)
	}

	return peers, nil
}

// exchange opens a connection to the host, writes this node's identity and
// the payload, and reads back a single reply.
func (c *Client) exchange(ctx context.Context, host string, kind wire.Kind, v any) (wire.Message, error) {
	dialer := net.Dialer{Timeout: c.timeout}

	conn, err := dialer.DialContext(ctx, "tcp", host)
	if err != nil {
		return wire.Message{}, fmt.Errorf("dial %s: %w", host, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetDeadline(deadline)

	if err := wire.Write(conn, wire.KindIdentity, c.self); err != nil {
		return wire.Message{}, err
	}

	if err := wire.Write(conn, kind, v); err != nil {
		return wire.Message{}, err
	}

	msg, err := wire.Read(conn)
	if err != nil {
		return wire.Message{}, fmt.Errorf("read reply from %s: %w", host, err)
	}

	return msg, nil
}
