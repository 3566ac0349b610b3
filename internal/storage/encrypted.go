package storage

import (
	"context"

	"github.com/campushub/campushub/internal/crypto"
)

// EncryptedBlob seals the document before handing it to the wrapped Blob
// and opens it after loading. Plaintext documents load unchanged, so
// encryption can be switched on for an existing store.
type EncryptedBlob struct {
	inner     Blob
	encryptor *crypto.Encryptor
}

// NewEncryptedBlob wraps inner. An empty passphrase returns inner unwrapped.
func NewEncryptedBlob(inner Blob, passphrase string) Blob {
	enc := crypto.NewEncryptor(passphrase)
	if enc == nil {
		return inner
	}
	return &EncryptedBlob{inner: inner, encryptor: enc}
}

// Load reads and decrypts the document
func (e *EncryptedBlob) Load(ctx context.Context) ([]byte, error) {
	data, err := e.inner.Load(ctx)
	if err != nil {
		return nil, err
	}
	return e.encryptor.Open(data)
}

// Save encrypts and writes the document
func (e *EncryptedBlob) Save(ctx context.Context, data []byte) error {
	sealed, err := e.encryptor.Seal(data)
	if err != nil {
		return err
	}
	return e.inner.Save(ctx, sealed)
}
