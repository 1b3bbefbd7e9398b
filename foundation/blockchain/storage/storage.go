// Package storage handles saving and loading node snapshots so a node can
// be stopped and started again with the same identity, chain and pool.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/peer"
	"github.com/ardanlabs/powledger/foundation/blockchain/signature"
	bolt "go.etcd.io/bbolt"
)

// Set of error variables for loading snapshots.
var (
	ErrNotFound        = errors.New("snapshot not found")
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
)

var bucketSnapshots = []byte("snapshots")

// =============================================================================

// Snapshot represents everything a node needs to restart where it left off.
type Snapshot struct {
	Self       peer.Peer                          `json:"self"`
	PrivateKey string                             `json:"private_key"`
	Mining     bool                               `json:"mining"`
	Chain      []database.Block[database.MinedTx] `json:"chain"`
	Pool       []database.Tx                      `json:"pool"`
	Peers      []peer.Peer                        `json:"peers"`
}

// =============================================================================

// Storage manages reading and writing of node snapshots. Snapshots are
// keyed by the port the node listens on.
type Storage struct {
	db         *bolt.DB
	difficulty database.Difficulty
}

// New provides access to snapshot storage. Chains are validated on load
// using the specified difficulty.
func New(dbPath string, difficulty database.Difficulty) (*Storage, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSnapshots)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	strg := Storage{
		db:         db,
		difficulty: difficulty,
	}

	return &strg, nil
}

// Close cleanly releases the storage area.
func (str *Storage) Close() error {
	return str.db.Close()
}

// Save writes the snapshot, replacing any snapshot for the same port.
func (str *Storage) Save(snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	return str.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSnapshots).Put(portKey(snap.Self.Port), data)
	})
}

// Load reads the snapshot for the specified port. A snapshot that fails
// validation is never returned.
func (str *Storage) Load(port int) (Snapshot, error) {
	var data []byte
	err := str.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketSnapshots).Get(portKey(port))
		if v == nil {
			return ErrNotFound
		}

		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("%w: decode: %s", ErrCorruptSnapshot, err)
	}

	if err := str.validate(port, snap); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrCorruptSnapshot, err)
	}

	return snap, nil
}

// Delete removes the snapshot for the specified port.
func (str *Storage) Delete(port int) error {
	return str.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSnapshots).Delete(portKey(port))
	})
}

// Ports returns the ports of every stored snapshot in ascending order.
func (str *Storage) Ports() ([]int, error) {
	var ports []int
	err := str.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSnapshots).ForEach(func(k, v []byte) error {
			port, err := strconv.Atoi(string(k))
			if err != nil {
				return err
			}
			ports = append(ports, port)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Ints(ports)

	return ports, nil
}

// =============================================================================

// validate checks the snapshot carries a valid chain and a complete identity
// for the node listening on the specified port.
func (str *Storage) validate(port int, snap Snapshot) error {
	chain := database.FromBlocks(str.difficulty, snap.Chain)
	if err := chain.Validate(); err != nil {
		return fmt.Errorf("chain: %w", err)
	}

	if err := snap.Self.Validate(); err != nil {
		return fmt.Errorf("identity: %w", err)
	}

	if snap.Self.Port != port {
		return fmt.Errorf("port mismatch: stored[%d] requested[%d]", snap.Self.Port, port)
	}

	pk, err := signature.DecodePrivateKey(snap.PrivateKey)
	if err != nil {
		return fmt.Errorf("private key: %w", err)
	}

	if signature.EncodePublicKey(pk.PublicKey) != snap.Self.PublicKey {
		return errors.New("private key does not match public key")
	}

	return nil
}

// portKey returns the bucket key for the specified port.
func portKey(port int) []byte {
	return []byte(strconv.Itoa(port))
}
