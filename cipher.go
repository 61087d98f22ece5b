package fpgasign

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// KeySize is the size of the session secret key.
const KeySize = 32

// decrypter decrypts AES-256-CBC.
type decrypter interface {
	// Decrypt decrypts src into dst. len(src) is a multiple of the block size
	// and len(dst) >= len(src).
	Decrypt(dst, src, key, iv []byte) error
}

func newDecrypter(ct CipherType) (decrypter, error) {
	switch ct {
	case CipherSoftware:
		return softwareDecrypter{}, nil
	case CipherKernel:
		return newKernelDecrypter()
	default:
		return nil, fmt.Errorf("%w: unknown cipher backend", ErrCipherSetup)
	}
}

type softwareDecrypter struct{}

func (softwareDecrypter) Decrypt(dst, src, key, iv []byte) error {
	block, err := aes.NewCipher(key)
	if err != nil {
		return err
	}
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(dst, src)
	return nil
}

// checkDecryptArgs validates what the CBC decrypter would otherwise panic on.
func checkDecryptArgs(ciphertext, iv []byte) error {
	if len(iv) != aes.BlockSize {
		return fmt.Errorf("%w: iv is %d bytes, want %d", ErrCipherSetup, len(iv), aes.BlockSize)
	}
	if len(ciphertext)%aes.BlockSize != 0 {
		return fmt.Errorf("%w: ciphertext is not a multiple of the block size", ErrCipherSetup)
	}
	return nil
}
