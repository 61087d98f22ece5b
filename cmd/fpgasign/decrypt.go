package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/northvolt/go-fpgasign"
	"github.com/peterbourgon/ff/v3/ffcli"
)

type decryptConfig struct {
	rootConfig *rootConfig
	in         io.Reader
	out        io.Writer
	err        io.Writer
	raw        bool
}

func (c *decryptConfig) Exec(ctx context.Context, _ []string) (err error) {
	if c.rootConfig.verbose {
		fmt.Fprintf(c.err, "decrypt\n")
	}

	ciphertext, err := readHex(c.in)
	if err != nil {
		return err
	}
	iv, err := parseIV(c.rootConfig.iv)
	if err != nil {
		return err
	}

	// Decryption happens on the host, so the bus is never opened.
	rc := *c.rootConfig
	rc.iface = "emu"
	s, err := newSession(ctx, &rc)
	if err != nil {
		return err
	}
	defer keepFirst(&err, s.Terminate)

	plaintext, err := s.Decrypt(ciphertext, iv)
	if err != nil {
		return err
	}

	if c.raw {
		_, err = c.out.Write(plaintext)
		return err
	}
	fmt.Fprintln(c.out, prettyHex(plaintext))
	return nil
}

func newDecryptCmd(
	rootConfig *rootConfig, in io.Reader, out io.Writer, err io.Writer,
) *ffcli.Command {
	cfg := decryptConfig{
		rootConfig: rootConfig,
		in:         in,
		out:        out,
		err:        err,
	}

	fs := flag.NewFlagSet("fpgasign decrypt", flag.ExitOnError)
	fs.BoolVar(&cfg.raw, "raw", false, "write the plaintext as binary")
	rootConfig.registerFlags(fs)

	return addLongHelp(&ffcli.Command{
		Name:       "decrypt",
		ShortUsage: "decrypt < ciphertext.hex",
		ShortHelp:  "Decrypts hex read from stdin with AES-256-CBC on the host.",
		LongHelp: fmt.Sprintf(
			"Decrypts hex read from stdin with AES-256-CBC on the host.\n\n"+
				"The key is zero padded to %d bytes. Whitespace in the input is ignored.",
			fpgasign.KeySize,
		),
		FlagSet: fs,
		Options: ffOptions,
		Exec:    cfg.Exec,
	})
}
