package solana

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mr-tron/base58"
)

// Signer is an immutable ed25519 fee payer. It is safe to share between
// goroutines.
type Signer struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// NewSigner wraps a 64-byte ed25519 private key.
func NewSigner(priv ed25519.PrivateKey) (*Signer, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("keypair must be %d bytes, got %d", ed25519.PrivateKeySize, len(priv))
	}
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("unexpected public key type")
	}
	return &Signer{priv: priv, pub: pub}, nil
}

// GenerateSigner creates a fresh random keypair.
func GenerateSigner() (*Signer, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	return NewSigner(priv)
}

// LoadKeypair reads a keypair file in the Solana CLI format: a JSON array of
// 64 byte values (secret key followed by public key). A leading "~/" is
// expanded to the user's home directory.
func LoadKeypair(path string) (*Signer, error) {
	path, err := expandHome(path)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keypair file: %w", err)
	}
	var b []byte
	// A []byte field would be decoded from base64, so decode ints explicitly.
	var ints []int
	if err := json.Unmarshal(raw, &ints); err != nil {
		return nil, fmt.Errorf("parse keypair json: %w", err)
	}
	for _, n := range ints {
		if n < 0 || n > 255 {
			return nil, fmt.Errorf("keypair byte out of range: %d", n)
		}
		b = append(b, byte(n))
	}
	s, err := NewSigner(ed25519.PrivateKey(b))
	if err != nil {
		return nil, fmt.Errorf("invalid keypair data: %w", err)
	}
	return s, nil
}

// MarshalKeypair encodes the signer in the Solana CLI keypair format.
func (s *Signer) MarshalKeypair() ([]byte, error) {
	ints := make([]int, len(s.priv))
	for i, v := range s.priv {
		ints[i] = int(v)
	}
	return json.Marshal(ints)
}

// PublicKey returns the raw 32-byte public key.
func (s *Signer) PublicKey() ed25519.PublicKey { return s.pub }

// Address returns the base58 encoded public key.
func (s *Signer) Address() string { return base58.Encode(s.pub) }

// Sign signs msg with the private key.
func (s *Signer) Sign(msg []byte) []byte { return ed25519.Sign(s.priv, msg) }

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand keypair path: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
