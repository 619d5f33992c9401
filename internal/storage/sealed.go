package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/yndnr/sessbox-go/pkg/crypto/adaptive"
)

// Every sealed value starts with sealMagic and a cipher id byte.
var sealMagic = []byte("SB1")

const (
	cipherIDAESGCM   byte = 1
	cipherIDChaCha20 byte = 2
)

// ErrSealed is returned when a sealed value cannot be opened, usually
// because the passphrase is wrong.
var ErrSealed = errors.New("sealed store: cannot decrypt value (wrong passphrase?)")

// SealedStore encrypts values before handing them to the wrapped store.
// The key is derived from a passphrase and a per-store random salt kept
// under KeySealSalt. Each value is bound to its key as associated data,
// so blobs cannot be swapped between keys.
type SealedStore struct {
	inner  KeyValueStore
	key    []byte
	cipher *adaptive.Cipher
}

// NewSealedStore wraps inner. The salt is created on first use.
func NewSealedStore(ctx context.Context, inner KeyValueStore, passphrase string) (*SealedStore, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("sealed store: passphrase is required")
	}

	salt, err := inner.Get(ctx, KeySealSalt)
	if errors.Is(err, ErrKeyNotFound) {
		if salt, err = adaptive.NewSalt(); err != nil {
			return nil, err
		}
		if err = inner.Set(ctx, KeySealSalt, salt); err != nil {
			return nil, fmt.Errorf("sealed store: persist salt: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("sealed store: read salt: %w", err)
	}

	key := adaptive.DeriveKey([]byte(passphrase), salt)
	c, err := adaptive.New(key)
	if err != nil {
		return nil, err
	}
	return &SealedStore{inner: inner, key: key, cipher: c}, nil
}

// Get decrypts the value stored under key.
func (s *SealedStore) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	hl := len(sealMagic) + 1
	if len(raw) < hl || string(raw[:len(sealMagic)]) != string(sealMagic) {
		return nil, ErrSealed
	}

	c := s.cipher
	if typ := cipherTypeOf(raw[len(sealMagic)]); typ != c.Type() {
		// Written on a platform that preferred the other algorithm.
		if c, err = adaptive.NewWithType(s.key, typ); err != nil {
			return nil, err
		}
	}

	plain, err := c.Decrypt(raw[hl:], []byte(key))
	if err != nil {
		return nil, ErrSealed
	}
	return plain, nil
}

// Set encrypts value and stores it under key.
func (s *SealedStore) Set(ctx context.Context, key string, value []byte) error {
	sealed, err := s.cipher.Encrypt(value, []byte(key))
	if err != nil {
		return err
	}
	out := make([]byte, 0, len(sealMagic)+1+len(sealed))
	out = append(out, sealMagic...)
	out = append(out, cipherIDOf(s.cipher.Type()))
	out = append(out, sealed...)
	return s.inner.Set(ctx, key, out)
}

// Delete removes key from the wrapped store.
func (s *SealedStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}

// Close closes the wrapped store.
func (s *SealedStore) Close() error {
	return s.inner.Close()
}

func cipherIDOf(t adaptive.CipherType) byte {
	if t == adaptive.CipherChaCha20 {
		return cipherIDChaCha20
	}
	return cipherIDAESGCM
}

func cipherTypeOf(id byte) adaptive.CipherType {
	if id == cipherIDChaCha20 {
		return adaptive.CipherChaCha20
	}
	return adaptive.CipherAESGCM
}
