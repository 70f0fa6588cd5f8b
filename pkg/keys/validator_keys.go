// Package keys provides secp256k1 keypair handling for bridge committee
// validators: generation, deterministic derivation, recoverable signing, and
// encryption for key storage. The curve matches what the on-chain contracts
// recover against.
package keys

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/hkdf"
)

// ValidatorKeyPair is a committee validator signing keypair.
type ValidatorKeyPair struct {
	PublicKey  []byte // 33-byte compressed secp256k1 public key
	PrivateKey []byte // 32-byte secp256k1 private key
}

// Generate creates a new random validator keypair.
func Generate() (*ValidatorKeyPair, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate secp256k1 keypair: %w", err)
	}
	return &ValidatorKeyPair{
		PublicKey:  crypto.CompressPubkey(&privateKey.PublicKey),
		PrivateKey: crypto.FromECDSA(privateKey),
	}, nil
}

// Derive deterministically derives a validator keypair from an operator seed
// and a label (HKDF-SHA256). The same seed and label always yield the same
// keypair, so operators can regenerate keys from backed-up seeds.
func Derive(seed []byte, label string) (*ValidatorKeyPair, error) {
	if len(seed) < 32 {
		return nil, fmt.Errorf("seed must be at least 32 bytes")
	}

	info := []byte("bridge-validator-" + label)
	hkdfReader := hkdf.New(sha256.New, seed, nil, info)

	privateKeyBytes := make([]byte, 32)
	if _, err := io.ReadFull(hkdfReader, privateKeyBytes); err != nil {
		return nil, fmt.Errorf("failed to derive key material: %w", err)
	}

	privateKey, err := crypto.ToECDSA(privateKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to build private key: %w", err)
	}

	return &ValidatorKeyPair{
		PublicKey:  crypto.CompressPubkey(&privateKey.PublicKey),
		PrivateKey: privateKeyBytes,
	}, nil
}

// FromPrivateKeyHex parses a 32-byte hex private key (with or without 0x).
func FromPrivateKeyHex(hexKey string) (*ValidatorKeyPair, error) {
	if len(hexKey) >= 2 && hexKey[:2] == "0x" {
		hexKey = hexKey[2:]
	}
	privateKey, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key hex: %w", err)
	}
	return &ValidatorKeyPair{
		PublicKey:  crypto.CompressPubkey(&privateKey.PublicKey),
		PrivateKey: crypto.FromECDSA(privateKey),
	}, nil
}

// Address returns the 20-byte address derived from the public key, the
// identity the committee registry keys members by.
func (kp *ValidatorKeyPair) Address() (common.Address, error) {
	pub, err := crypto.DecompressPubkey(kp.PublicKey)
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// PublicKeyHex returns the compressed public key as hex.
func (kp *ValidatorKeyPair) PublicKeyHex() string {
	return fmt.Sprintf("%x", kp.PublicKey)
}

// PrivateKeyHex returns the private key as 0x-prefixed hex.
func (kp *ValidatorKeyPair) PrivateKeyHex() string {
	return fmt.Sprintf("0x%x", kp.PrivateKey)
}

// SignDigest signs a 32-byte message digest, returning the 65-byte
// recoverable signature [R || S || V] that committee verification expects.
func (kp *ValidatorKeyPair) SignDigest(digest []byte) ([]byte, error) {
	if len(digest) != 32 {
		return nil, fmt.Errorf("digest must be 32 bytes, got %d", len(digest))
	}
	privateKey, err := crypto.ToECDSA(kp.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load private key: %w", err)
	}
	signature, err := crypto.Sign(digest, privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign digest: %w", err)
	}
	return signature, nil
}

// VerifyDigest checks a 65-byte recoverable signature against this keypair's
// public key.
func (kp *ValidatorKeyPair) VerifyDigest(digest, signature []byte) bool {
	if len(digest) != 32 || len(signature) != 65 {
		return false
	}
	recovered, err := crypto.SigToPub(digest, signature)
	if err != nil {
		return false
	}
	expected, err := crypto.DecompressPubkey(kp.PublicKey)
	if err != nil {
		return false
	}
	return crypto.PubkeyToAddress(*recovered) == crypto.PubkeyToAddress(*expected)
}

// EncryptPrivateKey encrypts a private key with AES-256-GCM under a 32-byte
// master key. Output is base64(nonce || ciphertext || tag).
func EncryptPrivateKey(privateKey, masterKey []byte) (string, error) {
	if len(masterKey) != 32 {
		return "", fmt.Errorf("master key must be 32 bytes (AES-256)")
	}
	if len(privateKey) != 32 {
		return "", fmt.Errorf("private key must be 32 bytes (secp256k1)")
	}

	block, err := aes.NewCipher(masterKey)
	if err != nil {
		return "", fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, privateKey, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptPrivateKey reverses EncryptPrivateKey.
func DecryptPrivateKey(encrypted string, masterKey []byte) ([]byte, error) {
	if len(masterKey) != 32 {
		return nil, fmt.Errorf("master key must be 32 bytes (AES-256)")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}

	block, err := aes.NewCipher(masterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	if len(plaintext) != 32 {
		return nil, fmt.Errorf("decrypted key has wrong size: got %d, want 32", len(plaintext))
	}
	return plaintext, nil
}

// GenerateMasterKey creates a random 32-byte master key for key encryption.
func GenerateMasterKey() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate master key: %w", err)
	}
	return key, nil
}
