package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

// DefaultLength is the number of random bytes in a generated token.
const DefaultLength = 32

// Pair holds a freshly generated token and its storage digest.
type Pair struct {
	Plain string
	Hash  string
}

// Hasher computes HMAC-SHA256 digests of opaque tokens.
type Hasher struct {
	secret []byte
}

// NewHasher returns a Hasher keyed with secret.
func NewHasher(secret string) (*Hasher, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Hasher{secret: []byte(secret)}, nil
}

// Hash returns the lowercase hex HMAC-SHA256 of plain.
func (h *Hasher) Hash(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmptyInput
	}
	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(plain))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Generate reads n random bytes, encodes them as unpadded base64url and
// returns the encoded token together with its digest.
func (h *Hasher) Generate(n int) (Pair, error) {
	if n <= 0 {
		return Pair{}, ErrInvalidLength
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return Pair{}, errors.Join(ErrRandomSource, err)
	}
	plain := base64.RawURLEncoding.EncodeToString(buf)
	digest, err := h.Hash(plain)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Plain: plain, Hash: digest}, nil
}
