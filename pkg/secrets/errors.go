package secrets

import "errors"

var (
	ErrMasterSecretTooShort = errors.New("secrets: master secret must be at least 32 characters")
	ErrEncryptionFailed     = errors.New("secrets: encryption failed")
	ErrDecryptionFailed     = errors.New("secrets: decryption failed")
)
