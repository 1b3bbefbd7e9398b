package signature_test

import (
	"testing"

	"github.com/ardanlabs/powledger/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	pkHexKey    = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	otherHexKey = "8dc79feefd3b86e2f9991def0e5ccd9a5128e104682407b308594bc1032ac7f0"
)

// =============================================================================

func Test_Hash(t *testing.T) {
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

	if h := signature.Hash(); h != empty {
		t.Logf("got: %s", h)
		t.Logf("exp: %s", empty)
		t.Fatalf("Should hash no input as the empty string.")
	}

	if h := signature.Hash(""); h != empty {
		t.Logf("got: %s", h)
		t.Logf("exp: %s", empty)
		t.Fatalf("Should hash the empty string.")
	}

	h := signature.Hash("Bill")
	if len(h) != 64 {
		t.Fatalf("Should get back a 64 character hash: %d", len(h))
	}

	for _, c := range h {
		if !('0' <= c && c <= '9') && !('a' <= c && c <= 'f') {
			t.Fatalf("Should get back a lowercase hex hash: %s", h)
		}
	}

	if signature.Hash("Bill") != h {
		t.Fatalf("Should get back the same hash twice.")
	}
}

func Test_HashCombine(t *testing.T) {
	a, b, c, d := "a", "b", "c", "d"

	combined := signature.Hash(signature.Hash(signature.Hash(a)) + signature.Hash(b))
	if h := signature.Hash(a, b); h != combined {
		t.Logf("got: %s", h)
		t.Logf("exp: %s", combined)
		t.Fatalf("Should fold two inputs as hash(hash(hash(a))+hash(b)).")
	}

	if signature.Hash(a, b) == signature.Hash(b, a) {
		t.Fatalf("Should be order sensitive.")
	}

	if signature.Hash(a, b, b, a) != signature.Hash(a, b, b, a) {
		t.Fatalf("Should be deterministic.")
	}

	if signature.Hash(a, b) == signature.Hash(c, d) {
		t.Fatalf("Should not collide for unrelated inputs.")
	}

	three := signature.Hash(signature.Hash(combined)+signature.Hash(c))
	if h := signature.Hash(a, b, c); h != three {
		t.Logf("got: %s", h)
		t.Logf("exp: %s", three)
		t.Fatalf("Should fold three inputs left to right.")
	}
}

func Test_Signing(t *testing.T) {
	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	hash := signature.Hash("Bill")
	pub := signature.EncodePublicKey(pk.PublicKey)

	sig, err := signature.Sign(hash, pk)
	if err != nil {
		t.Fatalf("Should be able to sign data: %s", err)
	}

	if !signature.Verify(hash, sig, pub) {
		t.Fatalf("Should be able to verify the signature.")
	}

	sig2, err := signature.Sign(hash, pk)
	if err != nil {
		t.Fatalf("Should be able to sign data: %s", err)
	}

	if sig != sig2 {
		t.Logf("got: %s", sig2[:10])
		t.Logf("exp: %s", sig[:10])
		t.Fatalf("Should get back a deterministic signature.")
	}

	if signature.Verify(signature.Hash("Jill"), sig, pub) {
		t.Fatalf("Should not verify the signature against different data.")
	}
}

func Test_VerifyFailures(t *testing.T) {
	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	other, err := crypto.HexToECDSA(otherHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	hash := signature.Hash("Bill")
	sig, err := signature.Sign(hash, pk)
	if err != nil {
		t.Fatalf("Should be able to sign data: %s", err)
	}

	type table struct {
		name string
		hash string
		sig  string
		pub  string
	}

	tt := []table{
		{name: "wrongkey", hash: hash, sig: sig, pub: signature.EncodePublicKey(other.PublicKey)},
		{name: "badsig", hash: hash, sig: "zz" + sig[2:], pub: signature.EncodePublicKey(pk.PublicKey)},
		{name: "shortsig", hash: hash, sig: sig[:20], pub: signature.EncodePublicKey(pk.PublicKey)},
		{name: "badhash", hash: "xyz", sig: sig, pub: signature.EncodePublicKey(pk.PublicKey)},
		{name: "badpub", hash: hash, sig: sig, pub: "0102"},
		{name: "empty", hash: "", sig: "", pub: ""},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			if signature.Verify(tst.hash, tst.sig, tst.pub) {
				t.Fatalf("Test %s:\tShould fail verification.", tst.name)
			}
		}

		t.Run(tst.name, f)
	}
}

func Test_KeyEncoding(t *testing.T) {
	pk, err := signature.GenerateKey()
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	pub := signature.EncodePublicKey(pk.PublicKey)

	decoded, err := signature.DecodePublicKey(pub)
	if err != nil {
		t.Fatalf("Should be able to decode the public key: %s", err)
	}

	if signature.EncodePublicKey(*decoded) != pub {
		t.Fatalf("Should get back the same public key.")
	}

	priv, err := signature.DecodePrivateKey(signature.EncodePrivateKey(pk))
	if err != nil {
		t.Fatalf("Should be able to decode the private key: %s", err)
	}

	if !priv.Equal(pk) {
		t.Fatalf("Should get back the same private key.")
	}

	if _, err := signature.DecodePublicKey("abc"); err == nil {
		t.Fatalf("Should not be able to decode a bad public key.")
	}
}
