package service

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	keymanagerDomain "github.com/allisson/pfbackup/internal/keymanager/domain"
)

// AESCBCWrapper implements KeyWrapper with AES-256 in CBC mode and PKCS#7 padding.
//
// There is no integrity tag. A corrupted ciphertext fails with ErrInvalidPadding when the
// damage reaches the padding block, and otherwise decrypts to different key bytes. Either
// way the original DEK is never returned for a modified ciphertext.
//
// The wrapper is stateless and safe for concurrent use.
type AESCBCWrapper struct{}

// NewAESCBCWrapper creates a new AESCBCWrapper.
func NewAESCBCWrapper() *AESCBCWrapper {
	return &AESCBCWrapper{}
}

// Wrap encrypts a KeySize DEK under a KeySize KEK with an IVSize iv.
// A 32-byte DEK produces 48 bytes of ciphertext since PKCS#7 always appends padding.
func (w *AESCBCWrapper) Wrap(dek, kek, iv []byte) ([]byte, error) {
	if len(dek) != keymanagerDomain.KeySize {
		return nil, fmt.Errorf("%w: dek must be %d bytes", keymanagerDomain.ErrInvalidKeySize, keymanagerDomain.KeySize)
	}
	block, err := newBlock(kek, iv)
	if err != nil {
		return nil, err
	}

	ciphertext := pkcs7Pad(dek, aes.BlockSize)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, ciphertext)
	return ciphertext, nil
}

// Unwrap decrypts ciphertext under kek with iv and strips the padding.
func (w *AESCBCWrapper) Unwrap(ciphertext, kek, iv []byte) ([]byte, error) {
	block, err := newBlock(kek, iv)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf(
			"%w: ciphertext length %d is not a multiple of the block size",
			keymanagerDomain.ErrDecryptionFailed,
			len(ciphertext),
		)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	dek, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		keymanagerDomain.Zero(plaintext)
		return nil, err
	}
	return dek, nil
}

func newBlock(kek, iv []byte) (cipher.Block, error) {
	if len(kek) != keymanagerDomain.KeySize {
		return nil, fmt.Errorf(
			"%w: kek must be %d bytes, got %d",
			keymanagerDomain.ErrInvalidKeySize,
			keymanagerDomain.KeySize,
			len(kek),
		)
	}
	if len(iv) != keymanagerDomain.IVSize {
		return nil, fmt.Errorf(
			"%w: iv must be %d bytes, got %d",
			keymanagerDomain.ErrInvalidIVSize,
			keymanagerDomain.IVSize,
			len(iv),
		)
	}

	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	return block, nil
}

// pkcs7Pad returns a copy of data padded to a multiple of blockSize.
func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

// pkcs7Unpad strips PKCS#7 padding, returning a subslice of data.
func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, keymanagerDomain.ErrInvalidPadding
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize {
		return nil, keymanagerDomain.ErrInvalidPadding
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, keymanagerDomain.ErrInvalidPadding
		}
	}
	return data[:len(data)-padLen], nil
}
