package main

import (
	"context"
	"flag"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"periph.io/x/conn/v3/physic"
)

type rootConfig struct {
	verbose  bool
	iface    string
	port     string
	hz       physic.Frequency
	board    string
	cipher   string
	devIndex int
	key      string
	iv       string
	config   string
}

func (c *rootConfig) registerFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.verbose, "v", false, "increase log verbosity")
	fs.StringVar(&c.iface, "i", "spi", "interface type, spi, hid or emu")
	fs.StringVar(&c.port, "port", "", "spi port name or number, first available when empty")
	fs.Var(&c.hz, "hz", "spi clock eg 4MHz, board default when unset")
	fs.StringVar(&c.board, "board", "rpi", "host board, rpi or galileo")
	fs.StringVar(&c.cipher, "cipher", "software", "decrypt backend, software or kernel")
	fs.IntVar(&c.devIndex, "dev-index", 0, "usb bridge index when enumerating")
	fs.StringVar(&c.key, "key", defaultKey, "secret key, zero padded to 32 bytes, prefix with hex: for hex")
	fs.StringVar(&c.iv, "iv", defaultIV, "16 byte iv, prefix with hex: for hex")
	fs.StringVar(&c.config, "config", "", "read flags from this file, one flag per line")
}

// ffOptions let every flag also be set from the environment or a file.
var ffOptions = []ff.Option{
	ff.WithEnvVarPrefix("FPGASIGN"),
	ff.WithConfigFileFlag("config"),
	ff.WithConfigFileParser(ff.PlainParser),
}

func (c *rootConfig) Exec(context.Context, []string) error {
	return flag.ErrHelp
}

func newRootCmd() (*ffcli.Command, *rootConfig) {
	var cfg rootConfig

	fs := flag.NewFlagSet("fpgasign", flag.ExitOnError)
	cfg.registerFlags(fs)

	return addLongHelp(&ffcli.Command{
		Name:       "fpgasign",
		ShortUsage: "fpgasign [flags] <subcommand>",
		ShortHelp:  "Benchmarks and uses an FPGA that hashes and encrypts sensor readings.",
		FlagSet:    fs,
		Options:    ffOptions,
		Exec:       cfg.Exec,
	}), &cfg
}

var fpgasignLongHelp = `

GENERAL
Every flag can also be set with an environment variable, eg FPGASIGN_I=emu
for -i emu, or in a file given with -config.

Use -i emu to run without hardware. The software model signs with the
configured key and iv, so its signatures verify on the host.

Frames are 74 bytes: the payload goes out in bytes 0 to 31 and the result
comes back in bytes 42 to 73 of the same transfer.`
