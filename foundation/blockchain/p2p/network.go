package p2p

import (
	"context"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/peer"
	"github.com/ardanlabs/powledger/foundation/blockchain/wire"
)

// PeerSource provides the set of peers to share data with.
type PeerSource interface {
	RetrieveKnownPeers() []peer.Peer
}

// Network shares transactions and chains with the known peers over the
// client. It satisfies the network behavior the ledger requires.
type Network struct {
	client    *Client
	peers     PeerSource
	directory string
}

// NewNetwork constructs a network for the peer source. The directory host
// is optional, without one no new peers are discovered.
func NewNetwork(client *Client, peers PeerSource, directory string) *Network {
	return &Network{
		client:    client,
		peers:     peers,
		directory: directory,
	}
}

// SendTxToPeers shares the transaction with every known peer.
func (n *Network) SendTxToPeers(tx database.Tx) {
	n.client.Broadcast(context.Background(), n.peers.RetrieveKnownPeers(), wire.KindTx, tx)
}

// SendChainToPeers shares the chain with every known peer.
func (n *Network) SendChainToPeers(chain *database.Chain[database.MinedTx]) {
	n.client.Broadcast(context.Background(), n.peers.RetrieveKnownPeers(), wire.KindChain, chain.Blocks())
}

// RequestPeers registers this node with the directory and returns the
// peers the directory knows about.
func (n *Network) RequestPeers() ([]peer.Peer, error) {
	if n.directory == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.client.timeout)
	defer cancel()

	return n.client.Register(ctx, n.directory)
}
