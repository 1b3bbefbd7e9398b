// Package directory maintains the table of nodes that have joined the
// network. Nodes register their identity with the directory and receive
// back every identity registered so far.
package directory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ardanlabs/powledger/foundation/blockchain/peer"
	bolt "go.etcd.io/bbolt"
)

var bucketPeers = []byte("peers")

// Store persists the registered peers keyed by address:port.
type Store struct {
	db *bolt.DB
}

// Open provides access to the peer table at the path.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketPeers)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Register adds the peer if no peer with the same address and port is
// registered. True is returned when the peer was added.
func (s *Store) Register(p peer.Peer) (bool, error) {
	if err := p.Validate(); err != nil {
		return false, err
	}

	data, err := json.Marshal(p)
	if err != nil {
		return false, err
	}

	var added bool
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPeers)

		key := []byte(p.Host())
		if b.Get(key) != nil {
			return nil
		}

		added = true
		return b.Put(key, data)
	})

	return added, err
}

// List returns every registered peer ordered by address:port.
func (s *Store) List() ([]peer.Peer, error) {
	peers := []peer.Peer{}

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPeers).ForEach(func(k, v []byte) error {
			var p peer.Peer
			if err := json.Unmarshal(v, &p); err != nil {
				return fmt.Errorf("decode peer %s: %w", k, err)
			}
			peers = append(peers, p)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return peers, nil
}

// Reset removes every registered peer.
func (s *Store) Reset() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketPeers); err != nil {
			return err
		}

		_, err := tx.CreateBucket(bucketPeers)
		return err
	})
}
