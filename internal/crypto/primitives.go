// Package crypto implements the hashing, AEAD, key-derivation, and
// secp256k1 signing primitives the rest of the SDK is built on. Every
// function here is pure — no logging, no package-level state — so the
// higher layers that sign and encrypt block data stay testable in
// isolation.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/hkdf"
)

// KeySize is the width of every derived/encryption key used by the SDK.
const KeySize = 32

// nonceSize and tagSize fix the AES-GCM wire layout to
// nonce(12) || ciphertext || tag(16).
const (
	nonceSize = 12
	tagSize   = 16
)

// Keccak256 hashes the concatenation of data with Ethereum's keccak256.
func Keccak256(data ...[]byte) [32]byte {
	return ethcrypto.Keccak256Hash(data...)
}

// DeriveKey runs HKDF-Extract+Expand (SHA-256) over parent keyed by info,
// yielding exactly KeySize bytes. info binds the derived key to its
// purpose (e.g. "block_3", "chunk_1", or a bucket/file path).
func DeriveKey(parent [32]byte, info []byte) ([32]byte, error) {
	var out [32]byte
	r := hkdf.New(sha256New, parent[:], nil, info)
	if _, err := io.ReadFull(r, out[:]); err != nil {
		return out, fmt.Errorf("crypto: derive key: %w", err)
	}
	return out, nil
}

// SealAESGCM encrypts plaintext under a key derived from (parent, info).
// info is mixed into key derivation only, never into the AEAD additional
// data. The returned ciphertext is laid out as
// nonce(12) || ciphertext || tag(16).
func SealAESGCM(parent [32]byte, plaintext, info []byte) ([]byte, error) {
	key, err := DeriveKey(parent, info)
	if err != nil {
		return nil, err
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("crypto: generate nonce: %w", err)
	}
	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	return append(nonce, sealed...), nil
}

// OpenAESGCM reverses SealAESGCM, re-deriving the same (parent, info) key.
func OpenAESGCM(parent [32]byte, ciphertext, info []byte) ([]byte, error) {
	if len(ciphertext) < nonceSize+tagSize {
		return nil, fmt.Errorf("crypto: ciphertext too short: %d bytes", len(ciphertext))
	}
	key, err := DeriveKey(parent, info)
	if err != nil {
		return nil, err
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("crypto: open: %w", err)
	}
	return plaintext, nil
}

func newGCM(key [32]byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("crypto: new aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: new gcm: %w", err)
	}
	return gcm, nil
}

// Sign produces a 65-byte r||s||v secp256k1 signature over digest, with v
// normalized to 27/28 for Solidity-style ecrecover.
func Sign(key *ecdsa.PrivateKey, digest [32]byte) ([65]byte, error) {
	var out [65]byte
	sig, err := ethcrypto.Sign(digest[:], key)
	if err != nil {
		return out, fmt.Errorf("crypto: sign: %w", err)
	}
	// go-ethereum's Sign returns v in {0,1}; normalize to {27,28} exactly
	// once — never re-add if the caller already produced a wire signature.
	if sig[64] < 27 {
		sig[64] += 27
	}
	copy(out[:], sig)
	return out, nil
}

// Recover recovers the signer address from a digest and a 65-byte r||s||v
// signature. v may be {0,1} or {27,28}.
func Recover(digest [32]byte, sig [65]byte) (common.Address, error) {
	normalized := sig
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}
	pub, err := ethcrypto.SigToPub(digest[:], normalized[:])
	if err != nil {
		return common.Address{}, fmt.Errorf("crypto: recover: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}
