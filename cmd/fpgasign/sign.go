package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/northvolt/go-fpgasign"
	"github.com/peterbourgon/ff/v3/ffcli"
)

type signConfig struct {
	rootConfig *rootConfig
	in         io.Reader
	out        io.Writer
	err        io.Writer
	verify     bool
	json       bool
}

type signOutput struct {
	Payload   string `json:"payload"`
	Signature string `json:"signature"`
	Verified  *bool  `json:"verified,omitempty"`
}

func (c *signConfig) Exec(ctx context.Context, _ []string) (err error) {
	if c.rootConfig.verbose {
		fmt.Fprintf(c.err, "sign\n")
	}

	in, err := io.ReadAll(c.in)
	if err != nil {
		return err
	}
	payload := []byte(strings.TrimRight(string(in), "\r\n"))
	if len(payload) != fpgasign.PayloadSize {
		return fmt.Errorf("sign: payload is %d bytes, want %d", len(payload), fpgasign.PayloadSize)
	}

	iv, err := parseIV(c.rootConfig.iv)
	if err != nil {
		return err
	}

	s, err := newSession(ctx, c.rootConfig)
	if err != nil {
		return err
	}
	defer keepFirst(&err, s.Terminate)

	sig, err := s.Sign(ctx, payload, iv)
	if err != nil {
		return err
	}

	var verified *bool
	if c.verify {
		err := checkSignature(s, payload, sig, iv)
		if err != nil && !errors.Is(err, errSignatureMismatch) {
			return err
		}
		ok := err == nil
		verified = &ok
	}

	if c.json {
		return writeJSON(c.out, signOutput{
			Payload:   string(payload),
			Signature: fmt.Sprintf("%x", sig),
			Verified:  verified,
		})
	}

	fmt.Fprintln(c.out, "Payload:")
	fmt.Fprintln(c.out, prettyHex(payload))
	fmt.Fprintln(c.out, "\nSignature:")
	fmt.Fprintln(c.out, prettyHex(sig))
	if verified != nil {
		fmt.Fprintln(c.out, "\nVerifying the signature:")
		if *verified {
			fmt.Fprintln(c.out, "    Signature is valid")
		} else {
			fmt.Fprintln(c.out, "    Signature is invalid")
		}
	}
	return nil
}

func newSignCmd(
	rootConfig *rootConfig, in io.Reader, out io.Writer, err io.Writer,
) *ffcli.Command {
	cfg := signConfig{
		rootConfig: rootConfig,
		in:         in,
		out:        out,
		err:        err,
	}

	fs := flag.NewFlagSet("fpgasign sign", flag.ExitOnError)
	fs.BoolVar(&cfg.verify, "verify", false, "decrypt the signature on the host and compare with the payload digest")
	fs.BoolVar(&cfg.json, "json", false, "output in json mode")
	rootConfig.registerFlags(fs)

	return addLongHelp(&ffcli.Command{
		Name:       "sign",
		ShortUsage: "sign < payload",
		ShortHelp:  "Signs a 32 byte payload read from stdin.",
		FlagSet:    fs,
		Options:    ffOptions,
		Exec:       cfg.Exec,
	})
}
