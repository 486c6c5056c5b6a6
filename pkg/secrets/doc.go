// Package secrets encrypts small secrets, such as OAuth provider tokens,
// before they are written to storage.
//
// A Cipher derives its AES-256 key from a master secret with PBKDF2-SHA256.
// The salt is bound to the deployment environment, so the same master secret
// yields different keys in staging and production. The key is derived lazily
// on first use and kept for the lifetime of the Cipher.
//
// Output layout is base64(nonce ‖ tag ‖ ciphertext) with a 16-byte nonce and
// a 16-byte GCM tag. Any modification of the blob makes Decrypt fail with
// ErrDecryptionFailed.
package secrets
