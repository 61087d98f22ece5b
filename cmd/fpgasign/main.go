/*
fpgasign is a tool to benchmark and use an FPGA that signs sensor readings.

The FPGA is reached on a SPI port, through a MCP2210 USB bridge, or replaced
by a software model with -i emu.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/peterbourgon/ff/v3/ffcli"
)

func newCommands(in io.Reader, out io.Writer, err io.Writer) (*ffcli.Command, *rootConfig) {
	rootCmd, cfg := newRootCmd()
	rootCmd.Subcommands = []*ffcli.Command{
		newBenchCmd(cfg, in, out, err),
		newSignCmd(cfg, in, out, err),
		newDecryptCmd(cfg, in, out, err),
		newVerifyCmd(cfg, out, err),
		newInfoCmd(cfg, out, err),
	}
	return rootCmd, cfg
}

func main() {
	rootCmd, cfg := newCommands(os.Stdin, os.Stdout, os.Stderr)

	ctx, cancel := context.WithCancel(context.Background())

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		var num = 0
		for range c {
			num += 1
			if num >= 3 {
				os.Exit(1)
			} else {
				cancel()
			}
		}
	}()

	if err := rootCmd.ParseAndRun(ctx, os.Args[1:]); err != nil {
		if !errors.Is(err, context.Canceled) {
			libPrefix := "fpgasign: "
			msg := strings.TrimPrefix(err.Error(), libPrefix)
			fmt.Fprintf(os.Stderr, "%s: %s\n", rootCmd.Name, msg)
			os.Exit(1)
		} else if cfg.verbose {
			fmt.Fprintf(os.Stderr, "%s: cancelled\n", rootCmd.Name)
		}
	}
}
