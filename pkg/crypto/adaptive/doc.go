// Package adaptive provides authenticated encryption with automatic
// algorithm selection, and passphrase key derivation.
//
// AES-256-GCM is chosen where the platform has hardware AES, and
// ChaCha20-Poly1305 otherwise. Both produce nonce||ciphertext||tag, so a
// value sealed by one can only be opened by a cipher of the same type;
// the type is recorded next to the data by callers that need to switch.
//
// Keys derived from a passphrase use Argon2id.
//
// Usage:
//
//	key := adaptive.DeriveKey([]byte(passphrase), salt)
//	c, err := adaptive.New(key)
//	sealed, err := c.Encrypt(plaintext, aad)
//	plaintext, err := c.Decrypt(sealed, aad)
package adaptive
