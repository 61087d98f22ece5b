//go:build !linux || !(amd64 || arm || arm64 || riscv64)

package fpgasign

import "fmt"

func newKernelDecrypter() (decrypter, error) {
	return nil, fmt.Errorf("%w: kernel cipher is only available on linux", ErrCipherSetup)
}
