//go:build linux && (amd64 || arm || arm64 || riscv64)

package fpgasign

import (
	"errors"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// kernelDecrypter decrypts with the kernel "cbc(aes)" skcipher over AF_ALG.
//
// A fresh operation socket is used for every call, so the IV and key always
// match the arguments.
type kernelDecrypter struct{}

func newKernelDecrypter() (decrypter, error) {
	// probe once so a missing algorithm fails at session setup
	fd, err := bindAlg()
	if err != nil {
		return nil, err
	}
	_ = unix.Close(fd)
	return kernelDecrypter{}, nil
}

func bindAlg() (int, error) {
	fd, err := unix.Socket(unix.AF_ALG, unix.SOCK_SEQPACKET, 0)
	if err != nil {
		return -1, err
	}

	addr := &unix.SockaddrALG{
		Type: "skcipher",
		Name: "cbc(aes)",
	}
	if err := unix.Bind(fd, addr); err != nil {
		_ = unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

func (kernelDecrypter) Decrypt(dst, src, key, iv []byte) error {
	if len(src) == 0 {
		return nil
	}

	sfd, err := bindAlg()
	if err != nil {
		return err
	}
	defer unix.Close(sfd)

	if err := unix.SetsockoptString(sfd, unix.SOL_ALG, unix.ALG_SET_KEY, string(key)); err != nil {
		return err
	}

	// unix.Accept cannot decode an AF_ALG peer address
	fd, _, errno := unix.Syscall(unix.SYS_ACCEPT, uintptr(sfd), 0, 0)
	if errno != 0 {
		return syscall.Errno(errno)
	}
	defer unix.Close(int(fd))

	oob := algCmsg{}.setOp(unix.ALG_OP_DECRYPT).setIV(iv)
	if err := unix.Sendmsg(int(fd), src, oob, nil, 0); err != nil {
		return err
	}

	n, _, _, _, err := unix.Recvmsg(int(fd), dst[:len(src)], nil, 0)
	if err != nil {
		return err
	}
	if n != len(src) {
		return errors.New("fpgasign: short read from kernel cipher")
	}
	return nil
}

type algCmsg []byte

func cmsgData(cmsg *unix.Cmsghdr, offset uintptr) unsafe.Pointer {
	return unsafe.Pointer(uintptr(unsafe.Pointer(cmsg)) + uintptr(unix.SizeofCmsghdr) + offset)
}

func (m algCmsg) setOp(op int) algCmsg {
	cbuf := make([]byte, unix.CmsgSpace(4))
	h := (*unix.Cmsghdr)(unsafe.Pointer(&cbuf[0]))
	h.Level = unix.SOL_ALG
	h.Type = unix.ALG_SET_OP
	h.SetLen(unix.CmsgLen(4))
	*(*uint32)(cmsgData(h, 0)) = uint32(op)
	return append(m, cbuf...)
}

func (m algCmsg) setIV(iv []byte) algCmsg {
	size := 4 + len(iv)
	cbuf := make([]byte, unix.CmsgSpace(size))
	h := (*unix.Cmsghdr)(unsafe.Pointer(&cbuf[0]))
	h.Level = unix.SOL_ALG
	h.Type = unix.ALG_SET_IV
	h.SetLen(unix.CmsgLen(size))
	*(*uint32)(cmsgData(h, 0)) = uint32(len(iv))
	copy(cbuf[unix.CmsgLen(4):], iv)
	return append(m, cbuf...)
}
