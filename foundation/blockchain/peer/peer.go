// Package peer maintains the peer related information such as the set
// of know peers and their identity.
package peer

import (
	"fmt"
	"net"
	"sort"
	"strconv"
	"sync"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Peer represents information about a Node in the network. The public key
// is the hex encoded key the node signs its transactions with.
type Peer struct {
	Address   string `json:"address" validate:"required,ipv4"`
	Port      int    `json:"port" validate:"gte=0,lte=65535"`
	Alias     string `json:"alias" validate:"required"`
	PublicKey string `json:"public_key" validate:"required,hexadecimal"`
}

// New contructs a new peer value.
func New(address string, port int, alias string, publicKey string) Peer {
	return Peer{
		Address:   address,
		Port:      port,
		Alias:     alias,
		PublicKey: publicKey,
	}
}

// Host returns the address:port the peer is listening on. This is the
// value that identifies a peer in a set.
func (p Peer) Host() string {
	return net.JoinHostPort(p.Address, strconv.Itoa(p.Port))
}

// Match validates if the specified host matches this node.
func (p Peer) Match(host string) bool {
	return p.Host() == host
}

// Validate checks the peer carries a complete identity with an IPv4
// address and a valid port.
func (p Peer) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid peer %s: %w", p.Host(), err)
	}

	return nil
}

// String implements the fmt.Stringer interface for logging.
func (p Peer) String() string {
	return fmt.Sprintf("%s[%s]", p.Alias, p.Host())
}

// =============================================================================

// PeerSet represents the data representation to maintain a set of known peers.
type PeerSet struct {
	mu  sync.RWMutex
	set map[string]Peer
}

// NewPeerSet constructs a new info set to manage node peer information.
func NewPeerSet() *PeerSet {
	return &PeerSet{
		set: make(map[string]Peer),
	}
}

// Add adds a new node to the set. The identity of a known node is never
// replaced. True is returned only when the node was not known.
func (ps *PeerSet) Add(peer Peer) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if _, exists := ps.set[peer.Host()]; exists {
		return false
	}
	ps.set[peer.Host()] = peer

	return true
}

// Remove removes a node from the set.
func (ps *PeerSet) Remove(peer Peer) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	delete(ps.set, peer.Host())
}

// Lookup finds the peer that owns the specified public key.
func (ps *PeerSet) Lookup(publicKey string) (Peer, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	for _, peer := range ps.set {
		if peer.PublicKey == publicKey {
			return peer, true
		}
	}

	return Peer{}, false
}

// Count returns the number of known peers.
func (ps *PeerSet) Count() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	return len(ps.set)
}

// Copy returns a list of the known peers sorted by host, excluding the
// peer matching the specified host.
func (ps *PeerSet) Copy(host string) []Peer {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	var peers []Peer
	for _, peer := range ps.set {
		if !peer.Match(host) {
			peers = append(peers, peer)
		}
	}

	sort.Slice(peers, func(i, j int) bool {
		return peers[i].Host() < peers[j].Host()
	})

	return peers
}
