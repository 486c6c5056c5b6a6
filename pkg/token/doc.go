// Package token generates opaque, high-entropy tokens and derives the keyed
// digests that are stored in their place.
//
// Plain tokens leave the process (email links, response bodies) and are never
// persisted. Only Hash output is written to storage, so a leaked table cannot
// be replayed without the HMAC secret.
//
//	h, err := token.NewHasher(secret)
//	pair, err := h.Generate(token.DefaultLength)
//	// send pair.Plain, store pair.Hash
//	digest, err := h.Hash(presented)
package token
