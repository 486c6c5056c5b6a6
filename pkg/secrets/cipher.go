package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// MinMasterSecretLength is the shortest accepted master secret.
	MinMasterSecretLength = 32
	// Iterations is the PBKDF2 work factor.
	Iterations = 100_000

	keySize   = 32
	nonceSize = 16
	tagSize   = 16
)

var encoding = base64.StdEncoding.Strict()

// Cipher is an AES-256-GCM cipher keyed from a master secret.
// It is safe for concurrent use.
type Cipher struct {
	master []byte
	salt   []byte

	once sync.Once
	aead cipher.AEAD
	err  error
}

// NewCipher validates master and binds it to env. No key material is derived
// until the first Encrypt or Decrypt call.
func NewCipher(master, env string) (*Cipher, error) {
	if len(master) < MinMasterSecretLength {
		return nil, ErrMasterSecretTooShort
	}
	salt := sha256.Sum256([]byte(master + ":" + env))
	return &Cipher{master: []byte(master), salt: salt[:]}, nil
}

func (c *Cipher) gcm() (cipher.AEAD, error) {
	c.once.Do(func() {
		key := pbkdf2.Key(c.master, c.salt, Iterations, keySize, sha256.New)
		block, err := aes.NewCipher(key)
		if err != nil {
			c.err = err
			return
		}
		c.aead, c.err = cipher.NewGCMWithNonceSize(block, nonceSize)
	})
	return c.aead, c.err
}

// Encrypt seals plaintext under a fresh random nonce. Empty input returns an
// empty string and no error.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	aead, err := c.gcm()
	if err != nil {
		return "", errors.Join(ErrEncryptionFailed, err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.Join(ErrEncryptionFailed, err)
	}

	// Seal appends the tag after the ciphertext; the stored layout puts it first.
	sealed := aead.Seal(nil, nonce, []byte(plaintext), nil)
	ct, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	out := make([]byte, 0, nonceSize+len(sealed))
	out = append(out, nonce...)
	out = append(out, tag...)
	out = append(out, ct...)
	return encoding.EncodeToString(out), nil
}

// Decrypt opens a blob produced by Encrypt. Empty input returns an empty
// string. Malformed or tampered blobs fail with ErrDecryptionFailed.
func (c *Cipher) Decrypt(blob string) (string, error) {
	if blob == "" {
		return "", nil
	}
	raw, err := encoding.DecodeString(blob)
	if err != nil {
		return "", errors.Join(ErrDecryptionFailed, err)
	}
	if len(raw) < nonceSize+tagSize {
		return "", ErrDecryptionFailed
	}

	aead, err := c.gcm()
	if err != nil {
		return "", errors.Join(ErrDecryptionFailed, err)
	}

	nonce, tag, ct := raw[:nonceSize], raw[nonceSize:nonceSize+tagSize], raw[nonceSize+tagSize:]
	sealed := make([]byte, 0, len(ct)+tagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", errors.Join(ErrDecryptionFailed, err)
	}
	return string(plain), nil
}
