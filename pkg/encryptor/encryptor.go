// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package encryptor implements the cryptographic primitives of the node:
// RSA-OAEP key agreement, ChaCha20/AES-CTR stream ciphers, ECDSA sign and
// verify, SHA-256 digests, and a per-peer public-key registry. The key
// generation and signature shapes follow a conventional RS256/ES256
// key-handling convention: PKCS8-marshaled keys persisted by id through
// a pluggable KeyStorage.
package encryptor

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"
	"time"

	"golang.org/x/crypto/chacha20"

	"github.com/sage-x-project/race/internal/raceerr"
	"github.com/sage-x-project/race/pkg/types"
)

// chachaNonce is the fixed nonce this protocol mandates for encryptChacha20 /
// decryptChacha20: [1, 0, 0, ..., 0], 12 bytes.
var chachaNonce = func() [12]byte {
	var n [12]byte
	n[0] = 1
	return n
}()

// KeyStorage persists a node's keys across process restarts, grounded on
// a conventional KeyStorage interface shape.
type KeyStorage interface {
	Store(id string, priv []byte) error
	Load(id string) ([]byte, error)
}

// PublicKeys is the pair of public keys a peer registers.
type PublicKeys struct {
	RSA *rsa.PublicKey
	EC  *ecdsa.PublicKey
}

// Encryptor owns this node's private keys and a registry of peers'
// public keys. It is the sole owner of private-key material (the
// Ownership).
type Encryptor struct {
	mu      sync.RWMutex
	self    types.Address
	rsaPriv *rsa.PrivateKey
	ecPriv  *ecdsa.PrivateKey
	peers   map[types.Address]PublicKeys
	storage KeyStorage
}

// New constructs an Encryptor for the given wallet address. storage may
// be nil to skip persistence.
func New(self types.Address, storage KeyStorage) *Encryptor {
	return &Encryptor{
		self:    self,
		peers:   make(map[types.Address]PublicKeys),
		storage: storage,
	}
}

// Generate creates RSA-2048 (OAEP, SHA-256) and ECDSA-P256 keypairs for
// this node, optionally persisting them under a key versioned by the
// wallet address.
func (enc *Encryptor) Generate() error {
	rsaPriv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return fmt.Errorf("encryptor: generate rsa key: %w", err)
	}
	ecPriv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("encryptor: generate ecdsa key: %w", err)
	}

	enc.mu.Lock()
	enc.rsaPriv = rsaPriv
	enc.ecPriv = ecPriv
	enc.mu.Unlock()

	if enc.storage != nil {
		rsaBytes, err := x509.MarshalPKCS8PrivateKey(rsaPriv)
		if err != nil {
			return err
		}
		if err := enc.storage.Store(string(enc.self)+":rsa", rsaBytes); err != nil {
			return err
		}
		ecBytes, err := x509.MarshalPKCS8PrivateKey(ecPriv)
		if err != nil {
			return err
		}
		if err := enc.storage.Store(string(enc.self)+":ec", ecBytes); err != nil {
			return err
		}
	}
	return nil
}

// AddPublicKey records a peer's RSA and ECDSA public keys.
func (enc *Encryptor) AddPublicKey(addr types.Address, keys PublicKeys) {
	enc.mu.Lock()
	defer enc.mu.Unlock()
	enc.peers[addr] = keys
}

// ExportPublicKey returns addr's (or, if addr is empty, this node's)
// public keys as base64 SPKI strings.
func (enc *Encryptor) ExportPublicKey(addr types.Address) (rsaB64, ecB64 string, err error) {
	enc.mu.RLock()
	defer enc.mu.RUnlock()

	var rsaPub *rsa.PublicKey
	var ecPub *ecdsa.PublicKey
	if addr == "" || addr == enc.self {
		if enc.rsaPriv == nil || enc.ecPriv == nil {
			return "", "", raceerr.New(raceerr.KindKeyMissing, string(enc.self), nil)
		}
		rsaPub, ecPub = &enc.rsaPriv.PublicKey, &enc.ecPriv.PublicKey
	} else {
		peer, ok := enc.peers[addr]
		if !ok {
			return "", "", raceerr.New(raceerr.KindKeyMissing, string(addr), nil)
		}
		rsaPub, ecPub = peer.RSA, peer.EC
	}

	rsaSpki, err := x509.MarshalPKIXPublicKey(rsaPub)
	if err != nil {
		return "", "", err
	}
	ecSpki, err := x509.MarshalPKIXPublicKey(ecPub)
	if err != nil {
		return "", "", err
	}
	return base64.StdEncoding.EncodeToString(rsaSpki), base64.StdEncoding.EncodeToString(ecSpki), nil
}

// DecryptRsa decrypts an RSA-OAEP (SHA-256) ciphertext with this node's
// private key.
func (enc *Encryptor) DecryptRsa(ciphertext []byte) ([]byte, error) {
	enc.mu.RLock()
	priv := enc.rsaPriv
	enc.mu.RUnlock()
	if priv == nil {
		return nil, raceerr.New(raceerr.KindKeyMissing, string(enc.self), nil)
	}
	return rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, ciphertext, nil)
}

// EncryptRsa encrypts plaintext with addr's registered RSA public key.
func (enc *Encryptor) EncryptRsa(addr types.Address, plaintext []byte) ([]byte, error) {
	enc.mu.RLock()
	peer, ok := enc.peers[addr]
	enc.mu.RUnlock()
	if !ok || peer.RSA == nil {
		return nil, raceerr.New(raceerr.KindKeyMissing, string(addr), nil)
	}
	return rsa.EncryptOAEP(sha256.New(), rand.Reader, peer.RSA, plaintext, nil)
}

// timestampedMessage prepends a little-endian 64-bit millisecond
// timestamp, as this protocol requires for Sign/Verify.
func timestampedMessage(message []byte, millis uint64) []byte {
	out := make([]byte, 8+len(message))
	binary.LittleEndian.PutUint64(out[:8], millis)
	copy(out[8:], message)
	return out
}

// Sign signs message under signer's ECDSA key (must be this node's own
// key) after prepending a little-endian millisecond timestamp.
func (enc *Encryptor) Sign(message []byte, signer types.Address) ([]byte, error) {
	enc.mu.RLock()
	priv := enc.ecPriv
	self := enc.self
	enc.mu.RUnlock()
	if signer != self || priv == nil {
		return nil, raceerr.New(raceerr.KindKeyMissing, string(signer), nil)
	}

	millis := uint64(time.Now().UnixMilli())
	digest := sha256.Sum256(timestampedMessage(message, millis))
	r, s, err := ecdsa.Sign(rand.Reader, priv, digest[:])
	if err != nil {
		return nil, err
	}

	sig := make([]byte, 72)
	binary.LittleEndian.PutUint64(sig[:8], millis)
	rb, sb := r.Bytes(), s.Bytes()
	copy(sig[8+32-len(rb):40], rb)
	copy(sig[40+32-len(sb):72], sb)
	return sig, nil
}

// Verify checks a signature produced by Sign against signer's registered
// ECDSA public key (or this node's own, if signer is the local address).
func (enc *Encryptor) Verify(message []byte, signer types.Address, signature []byte) error {
	if len(signature) != 72 {
		return raceerr.New(raceerr.KindInvalidResult, "signature", nil)
	}
	pub, err := enc.ecdsaPublicKey(signer)
	if err != nil {
		return err
	}

	millis := binary.LittleEndian.Uint64(signature[:8])
	r := new(big.Int).SetBytes(signature[8:40])
	s := new(big.Int).SetBytes(signature[40:72])
	digest := sha256.Sum256(timestampedMessage(message, millis))
	if !ecdsa.Verify(pub, digest[:], r, s) {
		return raceerr.New(raceerr.KindInvalidResult, "signature", nil)
	}
	return nil
}

func (enc *Encryptor) ecdsaPublicKey(addr types.Address) (*ecdsa.PublicKey, error) {
	enc.mu.RLock()
	defer enc.mu.RUnlock()
	if addr == enc.self {
		if enc.ecPriv == nil {
			return nil, raceerr.New(raceerr.KindKeyMissing, string(addr), nil)
		}
		return &enc.ecPriv.PublicKey, nil
	}
	peer, ok := enc.peers[addr]
	if !ok || peer.EC == nil {
		return nil, raceerr.New(raceerr.KindKeyMissing, string(addr), nil)
	}
	return peer.EC, nil
}

// EncryptChacha20 XORs text with a ChaCha20 keystream derived from secret
// and the protocol's fixed nonce. Used for the mental-poker mask/lock
// layers, where stream-cipher commutativity (not authentication) is the
// point.
func EncryptChacha20(secret, text []byte) ([]byte, error) {
	return chacha20Xor(secret, text)
}

// DecryptChacha20 reverses EncryptChacha20 (ChaCha20 is its own inverse).
func DecryptChacha20(secret, text []byte) ([]byte, error) {
	return chacha20Xor(secret, text)
}

func chacha20Xor(secret, text []byte) ([]byte, error) {
	key := padKey(secret)
	c, err := chacha20.NewUnauthenticatedCipher(key, chachaNonce[:])
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(text))
	c.XORKeyStream(out, text)
	return out, nil
}

// contentIV is 16 zero bytes; digestIV is identical but for the final
// byte, set to 1 — the convention for keeping the "content" and
// "digest" AES-CTR keystreams independent under the same key.
var contentIV = make([]byte, 16)
var digestIV = func() []byte {
	iv := make([]byte, 16)
	iv[15] = 1
	return iv
}()

// ContentIV and DigestIV expose the fixed IVs to callers building
// LockedCiphertext digests (pkg/random).
func ContentIV() []byte { return append([]byte(nil), contentIV...) }
func DigestIV() []byte  { return append([]byte(nil), digestIV...) }

// EncryptAes applies AES-CTR with the given key and iv, producing a
// 64-byte (or input-length) stream-XORed output.
func EncryptAes(key, text, iv []byte) ([]byte, error) {
	return aesCtr(key, text, iv)
}

// DecryptAes reverses EncryptAes (CTR mode is a pure XOR stream).
func DecryptAes(key, text, iv []byte) ([]byte, error) {
	return aesCtr(key, text, iv)
}

func aesCtr(key, text, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(padKey(key))
	if err != nil {
		return nil, err
	}
	stream := cipher.NewCTR(block, iv)
	out := make([]byte, len(text))
	stream.XORKeyStream(out, text)
	return out, nil
}

// padKey stretches/truncates an arbitrary secret to a valid AES-256 key
// length via SHA-256, matching a conventional habit (crypto/keys id
// derivation) of hashing variable-length secrets into fixed key material.
func padKey(secret []byte) []byte {
	sum := sha256.Sum256(secret)
	return sum[:]
}

// DecryptAesMulti applies DecryptAes in sequence for each secret. CTR
// mode's keystream XOR is commutative, so the order of secrets here may
// be the reverse of the order they were applied during encryption.
func DecryptAesMulti(secrets [][]byte, text []byte) ([]byte, error) {
	out := text
	var err error
	for _, s := range secrets {
		out, err = DecryptAes(s, out, contentIV)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// DecryptWithSecrets decrypts each indexed ciphertext with its secrets
// and checks the UTF-8 result is a member of validOptions.
func DecryptWithSecrets(ciphertexts map[int][]byte, secrets map[int][][]byte, validOptions map[string]struct{}) (map[int]string, error) {
	out := make(map[int]string, len(ciphertexts))
	for idx, ct := range ciphertexts {
		plain, err := DecryptAesMulti(secrets[idx], ct)
		if err != nil {
			return nil, err
		}
		s := string(plain)
		if _, ok := validOptions[s]; !ok {
			return nil, raceerr.New(raceerr.KindInvalidResult, s, nil)
		}
		out[idx] = s
	}
	return out, nil
}
