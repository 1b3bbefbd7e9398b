// Package nameservice maps accounts to readable names. Names come from the
// key files in a folder and from the aliases of known peers.
package nameservice

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/peer"
	"github.com/ethereum/go-ethereum/crypto"
)

// NameService maintains a map of accounts for name lookup.
type NameService struct {
	mu       sync.RWMutex
	accounts map[database.AccountID]string
}

// New constructs a name service with the accounts from the .ecdsa key files
// found under root. A missing folder produces an empty name service.
func New(root string) (*NameService, error) {
	ns := NameService{
		accounts: make(map[database.AccountID]string),
	}

	fn := func(fileName string, d fs.DirEntry, err error) error {
		if err != nil {
			if fileName == root && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if d.IsDir() || filepath.Ext(fileName) != ".ecdsa" {
			return nil
		}

		privateKey, err := crypto.LoadECDSA(fileName)
		if err != nil {
			return fmt.Errorf("load %s: %w", fileName, err)
		}

		account := database.PublicKeyToAccountID(privateKey.PublicKey)
		ns.accounts[account] = strings.TrimSuffix(filepath.Base(fileName), ".ecdsa")

		return nil
	}

	if err := filepath.WalkDir(root, fn); err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ns, nil
}

// AddPeers names the accounts of the peers by their alias. Names from key
// files are kept.
func (ns *NameService) AddPeers(peers ...peer.Peer) {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	for _, p := range peers {
		account := database.AccountID(p.PublicKey)
		if _, exists := ns.accounts[account]; !exists {
			ns.accounts[account] = p.Alias
		}
	}
}

// Lookup returns the name for the specified account. Accounts without a
// name are returned in their short form.
func (ns *NameService) Lookup(account database.AccountID) string {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	name, exists := ns.accounts[account]
	if !exists {
		return account.Short()
	}
	return name
}

// Copy returns a copy of the map of names and accounts.
func (ns *NameService) Copy() map[database.AccountID]string {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	cpy := make(map[database.AccountID]string, len(ns.accounts))
	for account, name := range ns.accounts {
		cpy[account] = name
	}
	return cpy
}
