package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/northvolt/go-fpgasign"
	"github.com/northvolt/go-fpgasign/pkg/record"
	"github.com/northvolt/go-fpgasign/pkg/sensor"
	"github.com/peterbourgon/ff/v3/ffcli"
)

const (
	sourceAuto   = "auto"
	sourceRandom = "random"
	sourceAnalog = "analog"
)

type benchConfig struct {
	rootConfig *rootConfig
	in         io.Reader
	out        io.Writer
	err        io.Writer
	iters      int
	source     string
	pin        string
	i2cBus     string
	seed       int64
	output     string
	format     string
	verify     bool
	wait       bool
}

func (c *benchConfig) Exec(ctx context.Context, _ []string) (err error) {
	if c.rootConfig.verbose {
		fmt.Fprintf(c.err, "bench\n")
	}
	if c.iters <= 0 {
		return errors.New("bench: iterations must be positive")
	}

	format, err := record.ParseFormat(c.format)
	if err != nil {
		return err
	}
	iv, err := parseIV(c.rootConfig.iv)
	if err != nil {
		return err
	}
	board, err := fpgasign.BoardFromName(c.rootConfig.board)
	if err != nil {
		return err
	}
	sampler, release, err := c.newSampler(board)
	if err != nil {
		return err
	}
	defer keepFirst(&err, release)

	s, err := newSession(ctx, c.rootConfig)
	if err != nil {
		return err
	}
	defer keepFirst(&err, s.Terminate)

	var f io.Writer = c.out
	if c.output != "-" {
		file, ferr := os.Create(c.output)
		if ferr != nil {
			return ferr
		}
		defer keepFirst(&err, file.Close)
		f = file
	}
	bw := bufio.NewWriter(f)
	w, err := record.NewWriter(bw, format)
	if err != nil {
		return err
	}

	if c.wait {
		fmt.Fprint(c.err, "Program or reset FPGA and press enter...")
		if _, err := bufio.NewReader(c.in).ReadString('\n'); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
	}

	var total time.Duration
	for i := 0; i < c.iters; i++ {
		payload, err := sensor.Fill(sampler)
		if err != nil {
			return err
		}

		start := time.Now()
		sig, err := s.Sign(ctx, payload, iv)
		elapsed := time.Since(start)
		if err != nil {
			return fmt.Errorf("iteration %d: %w", i, err)
		}
		total += elapsed

		if c.verify {
			if err := checkSignature(s, payload, sig, iv); err != nil {
				return fmt.Errorf("iteration %d: %w", i, err)
			}
		}
		if err := w.Write(record.Record{Payload: payload, Signature: sig, Elapsed: elapsed}); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(c.err, "Total time: %d us\n", total.Microseconds())
	fmt.Fprintf(c.err, "Time per iteration: %d us\n", total.Microseconds()/int64(c.iters))
	if c.verify {
		fmt.Fprintf(c.err, "Verified %d signatures\n", c.iters)
	}
	return nil
}

// newSampler returns the payload source and a func releasing it.
func (c *benchConfig) newSampler(board fpgasign.Board) (sensor.Sampler, func() error, error) {
	source := c.source
	if source == sourceAuto {
		source = sourceRandom
		if board.AnalogInput() != "" {
			source = sourceAnalog
		}
	}

	switch source {
	case sourceRandom:
		seed := c.seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		return sensor.NewRandom(seed), func() error { return nil }, nil
	case sourceAnalog:
		name := c.pin
		if name == "" {
			name = board.AnalogInput()
		}
		pin, err := openADC(c.i2cBus, name)
		if err != nil {
			return nil, nil, err
		}
		return sensor.NewAnalog(pin), pin.Halt, nil
	default:
		return nil, nil, fmt.Errorf("bench: unknown source %q", c.source)
	}
}

func newBenchCmd(
	rootConfig *rootConfig, in io.Reader, out io.Writer, err io.Writer,
) *ffcli.Command {
	cfg := benchConfig{
		rootConfig: rootConfig,
		in:         in,
		out:        out,
		err:        err,
	}

	fs := flag.NewFlagSet("fpgasign bench", flag.ExitOnError)
	fs.IntVar(&cfg.iters, "iters", 128, "number of payloads to sign")
	fs.StringVar(&cfg.source, "source", sourceAuto, "payload source: auto, random or analog")
	fs.StringVar(&cfg.pin, "pin", "", "analog input name, A0 to A3, board default when empty")
	fs.StringVar(&cfg.i2cBus, "i2c-bus", "", "i2c bus of the ADS1x15 analog input, first available when empty")
	fs.Int64Var(&cfg.seed, "seed", 0, "random source seed, current time when 0")
	fs.StringVar(&cfg.output, "out", "data.out", "write records to this file, - for stdout")
	fs.StringVar(&cfg.format, "format", "text", "record format: text, json or cbor")
	fs.BoolVar(&cfg.verify, "verify", false, "decrypt every signature and compare with the payload digest")
	fs.BoolVar(&cfg.wait, "wait", false, "wait for enter before starting")
	rootConfig.registerFlags(fs)

	return addLongHelp(&ffcli.Command{
		Name:       "bench",
		ShortUsage: "bench",
		ShortHelp:  "Signs sampled payloads and reports the time it took.",
		FlagSet:    fs,
		Options:    ffOptions,
		Exec:       cfg.Exec,
	})
}
