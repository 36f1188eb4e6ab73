package credential

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

// Encrypted credential file format.
const (
	magicBytes    = "BSCR"
	formatVersion = 1

	// Argon2id parameters (OWASP recommended)
	argonTime    = 3
	argonMemory  = 64 * 1024 // 64 MB
	argonThreads = 4
	argonKeyLen  = 32 // AES-256

	saltSize  = 32
	nonceSize = 12 // GCM standard nonce size

	// magic(4) + version(4) + salt(32) + nonce(12)
	headerSize = 4 + 4 + saltSize + nonceSize
)

var (
	errInvalidVersion = errors.New("unsupported credential encryption version")

	// ErrDecryptFailed is returned for a wrong passphrase or corrupted file.
	ErrDecryptFailed = errors.New("credential decryption failed: wrong passphrase or corrupted data")
)

func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// encrypt seals plaintext with AES-256-GCM under an argon2id-derived key.
// Output layout: magic + version + salt + nonce + ciphertext.
func encrypt(plaintext []byte, passphrase string) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	output := make([]byte, headerSize+len(ciphertext))
	copy(output[0:4], magicBytes)
	binary.LittleEndian.PutUint32(output[4:8], formatVersion)
	copy(output[8:8+saltSize], salt)
	copy(output[8+saltSize:headerSize], nonce)
	copy(output[headerSize:], ciphertext)
	return output, nil
}

// decrypt opens data produced by encrypt.
func decrypt(data []byte, passphrase string) ([]byte, error) {
	if !isEncrypted(data) || len(data) < headerSize {
		return nil, ErrDecryptFailed
	}
	if binary.LittleEndian.Uint32(data[4:8]) != formatVersion {
		return nil, errInvalidVersion
	}

	salt := data[8 : 8+saltSize]
	nonce := data[8+saltSize : headerSize]
	ciphertext := data[headerSize:]

	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plaintext, nil
}

// isEncrypted reports whether data carries the encrypted-file magic.
func isEncrypted(data []byte) bool {
	return len(data) >= 4 && string(data[0:4]) == magicBytes
}
