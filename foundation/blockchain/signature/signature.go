// Package signature provides helper functions for handling the blockchain
// hashing and signature needs.
package signature

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ZeroHash represents a hash code of zeros.
const ZeroHash string = "0000000000000000000000000000000000000000000000000000000000000000"

// =============================================================================

// Hash returns the hex encoded SHA-256 hash of the specified strings. More than
// one string is folded left to right: the running hash and the next string are
// hashed individually and the concatenation of both hashes is hashed again.
// Order matters, Hash(a, b) != Hash(b, a).
func Hash(data ...string) string {
	if len(data) == 0 {
		return hash("")
	}

	result := hash(data[0])
	for _, next := range data[1:] {
		result = hash(hash(result) + hash(next))
	}

	return result
}

// hash returns the lowercase hex form of the SHA-256 digest of the string.
func hash(data string) string {
	sum := sha256.Sum256([]byte(data))
	return common.Bytes2Hex(sum[:])
}

// =============================================================================

// GenerateKey constructs a new private key for signing transactions.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return crypto.GenerateKey()
}

// EncodePublicKey returns the hex encoded uncompressed form of the public key.
// This is the form used to identify accounts on the chain.
func EncodePublicKey(pk ecdsa.PublicKey) string {
	return common.Bytes2Hex(crypto.FromECDSAPub(&pk))
}

// DecodePublicKey converts the hex encoded public key back into a public key.
func DecodePublicKey(key string) (*ecdsa.PublicKey, error) {
	data, err := hexutil.Decode("0x" + key)
	if err != nil {
		return nil, err
	}

	return crypto.UnmarshalPubkey(data)
}

// EncodePrivateKey returns the hex form of the private key.
func EncodePrivateKey(pk *ecdsa.PrivateKey) string {
	return common.Bytes2Hex(crypto.FromECDSA(pk))
}

// DecodePrivateKey converts the hex form of a private key back into a key.
func DecodePrivateKey(key string) (*ecdsa.PrivateKey, error) {
	return crypto.HexToECDSA(key)
}

// =============================================================================

// Sign uses the specified private key to sign the hex encoded hash. The
// underlying scheme is deterministic, the same hash and key always produce
// the same signature.
func Sign(hash string, privateKey *ecdsa.PrivateKey) (string, error) {

	// Prepare the data for signing.
	data, err := stamp(hash)
	if err != nil {
		return "", err
	}

	// Sign the hash with the private key to produce a signature.
	sig, err := crypto.Sign(data, privateKey)
	if err != nil {
		return "", err
	}

	// Check the signature against the public key of the signer.
	pub := crypto.FromECDSAPub(&privateKey.PublicKey)
	if !crypto.VerifySignature(pub, data, sig[:crypto.RecoveryIDOffset]) {
		return "", errors.New("invalid signature")
	}

	return common.Bytes2Hex(sig), nil
}

// Verify checks the signature was produced over the hash by the private key
// associated with the hex encoded public key. Any decoding problem is
// reported as a failed verification.
func Verify(hash string, sig string, publicKey string) bool {
	data, err := stamp(hash)
	if err != nil {
		return false
	}

	sigBytes, err := hexutil.Decode("0x" + sig)
	if err != nil || len(sigBytes) != crypto.SignatureLength {
		return false
	}

	pub, err := hexutil.Decode("0x" + publicKey)
	if err != nil {
		return false
	}

	return crypto.VerifySignature(pub, data, sigBytes[:crypto.RecoveryIDOffset])
}

// =============================================================================

// stamp returns a hash of 32 bytes that represents the hex encoded hash with
// the ledger stamp embedded into the final hash.
func stamp(hash string) ([]byte, error) {
	data, err := hexutil.Decode("0x" + hash)
	if err != nil {
		return nil, err
	}

	// This stamp is used so signatures we produce when signing data
	// are always unique to this ledger.
	stamp := []byte("\x19PoW Ledger Signed Message:\n32")

	return crypto.Keccak256(stamp, data), nil
}
