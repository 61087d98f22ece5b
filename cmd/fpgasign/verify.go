package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/northvolt/go-fpgasign/pkg/record"
	"github.com/peterbourgon/ff/v3/ffcli"
)

type verifyConfig struct {
	rootConfig *rootConfig
	out        io.Writer
	err        io.Writer
	input      string
	format     string
}

func (c *verifyConfig) Exec(ctx context.Context, _ []string) (err error) {
	if c.rootConfig.verbose {
		fmt.Fprintf(c.err, "verify\n")
	}

	format, err := record.ParseFormat(c.format)
	if err != nil {
		return err
	}
	iv, err := parseIV(c.rootConfig.iv)
	if err != nil {
		return err
	}

	f, err := os.Open(c.input)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := record.NewReader(f, format)
	if err != nil {
		return err
	}

	rc := *c.rootConfig
	rc.iface = "emu"
	s, err := newSession(ctx, &rc)
	if err != nil {
		return err
	}
	defer keepFirst(&err, s.Terminate)

	var total, bad int
	for ; ; total++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return fmt.Errorf("verify: record %d: %w", total, err)
		}

		err = checkSignature(s, rec.Payload, rec.Signature, iv)
		if errors.Is(err, errSignatureMismatch) {
			bad++
			fmt.Fprintf(c.out, "record %d: %s: signature does not match\n", total, rec.Payload)
		} else if err != nil {
			return err
		}
	}

	fmt.Fprintf(c.out, "%d of %d records verified\n", total-bad, total)
	if bad > 0 {
		return fmt.Errorf("verify: %d invalid signatures", bad)
	}
	return nil
}

func newVerifyCmd(rootConfig *rootConfig, out io.Writer, err io.Writer) *ffcli.Command {
	cfg := verifyConfig{
		rootConfig: rootConfig,
		out:        out,
		err:        err,
	}

	fs := flag.NewFlagSet("fpgasign verify", flag.ExitOnError)
	fs.StringVar(&cfg.input, "in", "data.out", "read records from this file")
	fs.StringVar(&cfg.format, "format", "text", "record format: text, json or cbor")
	rootConfig.registerFlags(fs)

	return addLongHelp(&ffcli.Command{
		Name:       "verify",
		ShortUsage: "verify",
		ShortHelp:  "Checks every signature in a record file against its payload.",
		FlagSet:    fs,
		Options:    ffOptions,
		Exec:       cfg.Exec,
	})
}
