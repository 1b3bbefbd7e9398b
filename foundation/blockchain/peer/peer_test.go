package peer_test

import (
	"testing"

	"github.com/ardanlabs/powledger/foundation/blockchain/peer"
)

func Test_CRUD(t *testing.T) {
	type table struct {
		name  string
		peers []peer.Peer
	}

	tt := []table{
		{
			name: "basic",
			peers: []peer.Peer{
				peer.New("127.0.0.1", 3001, "host1", "0a"),
				peer.New("127.0.0.1", 3002, "host2", "0b"),
				peer.New("127.0.0.1", 3003, "host3", "0c"),
			},
		},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			ps := peer.NewPeerSet()

			for _, peer := range tst.peers {
				if !ps.Add(peer) {
					t.Fatalf("Test %s:\tShould be able to add a new peer.", tst.name)
				}
			}

			peers := ps.Copy("")
			if len(peers) != len(tst.peers) {
				t.Logf("Test %s:\tgot: %d", tst.name, len(peers))
				t.Logf("Test %s:\texp: %d", tst.name, len(tst.peers))
				t.Fatalf("Test %s:\tShould get back the right peers.", tst.name)
			}

			peers = ps.Copy("127.0.0.1:3002")
			if len(peers) != len(tst.peers)-1 {
				t.Logf("Test %s:\tgot: %d", tst.name, len(peers))
				t.Logf("Test %s:\texp: %d", tst.name, len(tst.peers)-1)
				t.Fatalf("Test %s:\tShould get back the right peers.", tst.name)
			}

			rebound := tst.peers[0]
			rebound.Alias = "rebound"
			rebound.PublicKey = "ff"
			if ps.Add(rebound) {
				t.Fatalf("Test %s:\tShould not report a known host as new.", tst.name)
			}

			if ps.Count() != len(tst.peers) {
				t.Fatalf("Test %s:\tShould not add a duplicate host.", tst.name)
			}

			if _, ok := ps.Lookup(rebound.PublicKey); ok {
				t.Fatalf("Test %s:\tShould not bind a known host to a new key.", tst.name)
			}

			got, ok := ps.Lookup(tst.peers[0].PublicKey)
			if !ok || got.Alias != tst.peers[0].Alias {
				t.Fatalf("Test %s:\tShould keep the first identity of a known host.", tst.name)
			}

			ps.Remove(rebound)
			if _, ok := ps.Lookup(tst.peers[0].PublicKey); ok {
				t.Fatalf("Test %s:\tShould be able to remove a peer.", tst.name)
			}
		}

		t.Run(tst.name, f)
	}
}

func Test_Validate(t *testing.T) {
	type table struct {
		name  string
		peer  peer.Peer
		valid bool
	}

	tt := []table{
		{name: "valid", peer: peer.New("127.0.0.1", 3000, "node", "ab01"), valid: true},
		{name: "portzero", peer: peer.New("10.0.0.1", 0, "node", "ab01"), valid: true},
		{name: "hostname", peer: peer.New("localhost", 3000, "node", "ab01"), valid: false},
		{name: "ipv6", peer: peer.New("::1", 3000, "node", "ab01"), valid: false},
		{name: "badport", peer: peer.New("127.0.0.1", 70000, "node", "ab01"), valid: false},
		{name: "negport", peer: peer.New("127.0.0.1", -1, "node", "ab01"), valid: false},
		{name: "noalias", peer: peer.New("127.0.0.1", 3000, "", "ab01"), valid: false},
		{name: "nokey", peer: peer.New("127.0.0.1", 3000, "node", ""), valid: false},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			err := tst.peer.Validate()
			if (err == nil) != tst.valid {
				t.Fatalf("Test %s:\tShould get valid=%v, got err=%v.", tst.name, tst.valid, err)
			}
		}

		t.Run(tst.name, f)
	}
}
