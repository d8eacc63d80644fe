package backup

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/argon2"
)

// Artifact layout: [16-byte salt][12-byte nonce][AES-256-GCM ciphertext].
// The salt is generated fresh per artifact, so every backup can be
// decrypted with the passphrase alone.
const (
	saltLen  = 16
	nonceLen = 12
	keyLen   = 32
)

// argon2id parameters for key derivation.
const (
	kdfTime    = 3
	kdfMemory  = 64 * 1024
	kdfThreads = 4
)

func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, kdfTime, kdfMemory, kdfThreads, keyLen)
}

// EncryptFile encrypts srcPath into dstPath using a key derived from the
// passphrase with a per-artifact random salt.
func EncryptFile(srcPath, dstPath, passphrase string) error {
	plaintext, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}

	header := make([]byte, saltLen+nonceLen)
	if _, err := io.ReadFull(rand.Reader, header); err != nil {
		return fmt.Errorf("generate salt and nonce: %w", err)
	}
	salt, nonce := header[:saltLen], header[saltLen:]

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return err
	}

	out := gcm.Seal(header, nonce, plaintext, nil)
	if err := os.WriteFile(dstPath, out, 0600); err != nil {
		return fmt.Errorf("write encrypted file: %w", err)
	}
	return nil
}

// DecryptFile decrypts srcPath into dstPath, reading the salt and nonce
// from the artifact header.
func DecryptFile(srcPath, dstPath, passphrase string) error {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("read encrypted file: %w", err)
	}
	if len(data) < saltLen+nonceLen {
		return fmt.Errorf("encrypted file too small")
	}

	salt := data[:saltLen]
	nonce := data[saltLen : saltLen+nonceLen]
	ciphertext := data[saltLen+nonceLen:]

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return fmt.Errorf("decrypt: wrong passphrase or corrupt artifact: %w", err)
	}

	if err := os.WriteFile(dstPath, plaintext, 0600); err != nil {
		return fmt.Errorf("write decrypted file: %w", err)
	}
	return nil
}

func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}
