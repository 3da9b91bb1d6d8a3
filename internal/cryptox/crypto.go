// Package cryptox holds the server's cryptographic primitives: password
// hashing for the credential store and AES-GCM sealing of media blobs at rest.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/mediavault/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// MasterKeySize is the length of the key that wraps per-file keys.
const MasterKeySize = 32

var ErrInvalidMasterKey = errors.New("master key must be 32 bytes of hex")

// PasswordHasher turns a plaintext password into a salted slow digest and
// checks candidates against it.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// BcryptHasher implements PasswordHasher with bcrypt, which embeds its own salt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher with the given cost; values outside
// bcrypt's range fall back to bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h *BcryptHasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// ParseMasterKey decodes a hex-encoded 32-byte key. An empty string yields
// a nil key, which turns encryption off.
func ParseMasterKey(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(s)
	if err != nil || len(key) != MasterKeySize {
		return nil, ErrInvalidMasterKey
	}
	return key, nil
}

// SealedBlob is an encrypted payload plus what is needed to open it again.
// WrappedKey is the per-file key sealed under the master key, prefixed with
// its own nonce; Nonce belongs to the payload.
type SealedBlob struct {
	Ciphertext []byte
	WrappedKey []byte
	Nonce      []byte
}

// SealBlob encrypts plaintext with a fresh random file key and wraps that
// key with masterKey.
func SealBlob(masterKey, plaintext []byte) (*SealedBlob, error) {
	fileKey := common.GenerateRandByteArray(32)
	defer common.WipeByteArray(fileKey)

	ciphertext, nonce, err := seal(fileKey, plaintext)
	if err != nil {
		return nil, err
	}

	wrapped, keyNonce, err := seal(masterKey, fileKey)
	if err != nil {
		return nil, fmt.Errorf("wrap file key: %w", err)
	}

	return &SealedBlob{
		Ciphertext: ciphertext,
		WrappedKey: append(keyNonce, wrapped...),
		Nonce:      nonce,
	}, nil
}

// OpenBlob reverses SealBlob.
func OpenBlob(masterKey, ciphertext, wrappedKey, nonce []byte) ([]byte, error) {
	gcm, err := newGCM(masterKey)
	if err != nil {
		return nil, err
	}
	ns := gcm.NonceSize()
	if len(wrappedKey) < ns {
		return nil, errors.New("wrapped key too short")
	}

	fileKey, err := gcm.Open(nil, wrappedKey[:ns], wrappedKey[ns:], nil)
	if err != nil {
		return nil, fmt.Errorf("unwrap file key: %w", err)
	}
	defer common.WipeByteArray(fileKey)

	fileGCM, err := newGCM(fileKey)
	if err != nil {
		return nil, err
	}
	return fileGCM.Open(nil, nonce, ciphertext, nil)
}

func seal(key, plaintext []byte) (ciphertext, nonce []byte, err error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}
	nonce = common.GenerateRandByteArray(gcm.NonceSize())
	return gcm.Seal(nil, nonce, plaintext, nil), nonce, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Pack serialises the blob into a single byte slice so it can live in one
// storage object: len(WrappedKey) | WrappedKey | len(Nonce) | Nonce | Ciphertext.
func (b *SealedBlob) Pack() []byte {
	out := make([]byte, 0, 2+len(b.WrappedKey)+len(b.Nonce)+len(b.Ciphertext))
	out = append(out, byte(len(b.WrappedKey)))
	out = append(out, b.WrappedKey...)
	out = append(out, byte(len(b.Nonce)))
	out = append(out, b.Nonce...)
	return append(out, b.Ciphertext...)
}

// OpenPacked opens a blob produced by SealBlob followed by Pack.
func OpenPacked(masterKey, data []byte) ([]byte, error) {
	if len(data) < 1 {
		return nil, errors.New("packed blob too short")
	}
	kl := int(data[0])
	if len(data) < 2+kl {
		return nil, errors.New("packed blob too short")
	}
	wrapped := data[1 : 1+kl]
	nl := int(data[1+kl])
	rest := data[2+kl:]
	if len(rest) < nl {
		return nil, errors.New("packed blob too short")
	}
	return OpenBlob(masterKey, rest[nl:], wrapped, rest[:nl])
}
